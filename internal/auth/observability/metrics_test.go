package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestHTTPMiddlewareLabelsByPattern(t *testing.T) {
	m := NewMetrics()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/auth/profile", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	h := HTTPMiddleware(m)(mux)

	for _, path := range []string{"/api/auth/profile", "/api/auth/profile", "/nope"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "GET /api/auth/profile", "401")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestRecordAuthAndHandler(t *testing.T) {
	var nilMetrics *Metrics
	nilMetrics.RecordAuth("login", OutcomeSuccess)

	m := NewMetrics()
	m.RecordAuth("login", OutcomeSuccess)
	m.RecordAuth("login", OutcomeInvalid)
	m.PasswordResetsCleared.Add(3)

	require.Equal(t, 1.0, testutil.ToFloat64(m.AuthAttempts.WithLabelValues("login", OutcomeInvalid)))

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.Contains(t, string(body), `ecowise_auth_attempts_total{operation="login",outcome="success"} 1`)
	require.Contains(t, string(body), "ecowise_password_resets_cleared_total 3")
	require.Contains(t, string(body), "go_goroutines")
}
