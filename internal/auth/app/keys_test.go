package app

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ecowise/ecowise/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func signAndVerify(t *testing.T, signer jwtx.Signer, verifier jwtx.Verifier, issuer string) {
	t.Helper()
	token, err := signer.Sign(jwtx.NewClaims("user-1", "user", 0, jwtx.DefaultTokenTTL, issuer, time.Now()))
	require.NoError(t, err)

	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
}

func TestInitAuthKeysHS256(t *testing.T) {
	cfg := Config{Issuer: "ecowise-test", Algorithm: AlgHS256, JWTSecret: "a-shared-secret-of-reasonable-length"}

	signer, verifier, err := InitAuthKeys(cfg, discardLogger())
	require.NoError(t, err)
	require.Equal(t, "HS256", signer.Alg())
	signAndVerify(t, signer, verifier, cfg.Issuer)

	t.Run("same secret verifies across restarts", func(t *testing.T) {
		_, again, err := InitAuthKeys(cfg, discardLogger())
		require.NoError(t, err)
		signAndVerify(t, signer, again, cfg.Issuer)
	})

	t.Run("ephemeral secret", func(t *testing.T) {
		cfg := cfg
		cfg.JWTSecret = ""
		signer, verifier, err := InitAuthKeys(cfg, discardLogger())
		require.NoError(t, err)
		signAndVerify(t, signer, verifier, cfg.Issuer)
	})
}

func TestInitAuthKeysEdDSA(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "keys", "signing.pem")
	cfg := Config{Issuer: "ecowise-test", Algorithm: AlgEdDSA, KeyFile: keyFile}

	signer, verifier, err := InitAuthKeys(cfg, discardLogger())
	require.NoError(t, err)
	require.Equal(t, "EdDSA", signer.Alg())
	signAndVerify(t, signer, verifier, cfg.Issuer)

	info, err := os.Stat(keyFile)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// A restart reuses the key on disk.
	_, again, err := InitAuthKeys(cfg, discardLogger())
	require.NoError(t, err)
	signAndVerify(t, signer, again, cfg.Issuer)
}

func TestInitAuthKeysUnknownAlgorithm(t *testing.T) {
	_, _, err := InitAuthKeys(Config{Algorithm: "RS256"}, discardLogger())
	require.ErrorContains(t, err, "unsupported AUTH_ALGORITHM")
}
