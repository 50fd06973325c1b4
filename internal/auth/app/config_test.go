package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV", "prod")
	for _, key := range []string{
		"AUTH_ISSUER", "AUTH_ALGORITHM", "DB_DRIVER", "JWT_EXPIRES_IN",
		"PORT", "AUTH_COOKIE_SECURE", "AUTH_ALLOW_ADMIN_SIGNUP",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	require.Equal(t, "ecowise-auth", cfg.Issuer)
	require.Equal(t, AlgHS256, cfg.Algorithm)
	require.Equal(t, DriverSQLite, cfg.DBDriver)
	require.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
	require.Equal(t, 5000, cfg.Port)
	require.True(t, cfg.CookieSecure, "secure cookies outside dev")
	require.False(t, cfg.AllowAdminSignup)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ENV", "staging")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://ecowise@db/ecowise?sslmode=disable")
	t.Setenv("AUTH_ALGORITHM", AlgEdDSA)
	t.Setenv("JWT_EXPIRES_IN", "12h")
	t.Setenv("AUTH_COOKIE_SECURE", "false")
	t.Setenv("AUTH_ALLOW_ADMIN_SIGNUP", "true")
	t.Setenv("AUTH_HASH_CONCURRENCY", "4")
	t.Setenv("PORT", "not-a-port")

	cfg := LoadConfig()
	require.Equal(t, DriverPostgres, cfg.DBDriver)
	require.Equal(t, AlgEdDSA, cfg.Algorithm)
	require.Equal(t, 12*time.Hour, cfg.TokenTTL)
	require.False(t, cfg.CookieSecure)
	require.True(t, cfg.AllowAdminSignup)
	require.Equal(t, 4, cfg.HashConcurrency)
	require.Equal(t, 5000, cfg.Port, "unparseable values fall back")
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"7d", 7 * 24 * time.Hour, true},
		{"90s", 90 * time.Second, true},
		{"1h30m", 90 * time.Minute, true},
		{"15", 15 * time.Minute, true},
		{"-1d", 0, false},
		{"xd", 0, false},
		{"soon", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseDuration(tt.in)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}
