package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ecowise/ecowise/pkg/jwtx"
	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	AlgHS256 = "HS256"
	AlgEdDSA = "EdDSA"
)

type Config struct {
	Issuer    string        // Optional: issuer claim for tokens (default: ecowise-auth)
	Algorithm string        // Optional: JWT signing algorithm (HS256, EdDSA) (default: HS256)
	JWTSecret string        // Optional: HS256 shared secret; random per process when empty
	KeyFile   string        // Optional: Ed25519 PEM key path for EdDSA (default: ./signing.pem)
	TokenTTL  time.Duration // Optional: session token lifetime (default: 7d)

	DBDriver     string // Optional: sqlite or postgres (default: sqlite)
	DatabaseFile string // Optional: path to SQLite database file (default: ./auth.db)
	DatabaseURL  string // Required for postgres: lib/pq connection string
	PepperFile   string // Optional: path to file containing pepper for password hashing (default: ./pepper)

	HashConcurrency  int  // Optional: concurrent password hashes (default: GOMAXPROCS)
	CookieSecure     bool // Optional: mark the token cookie Secure (default: true outside dev)
	AllowAdminSignup bool // Optional: honour role "admin" on register (default: false)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 5000)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

// LoadConfig reads the configuration from the environment. In dev a .env
// file in the working directory is loaded first; variables already set win.
func LoadConfig() Config {
	if getEnvOrDefault("ENV", "dev") == "dev" {
		_ = godotenv.Load()
	}

	env := getEnvOrDefault("ENV", "dev")
	cfg := Config{
		Issuer:    getEnvOrDefault("AUTH_ISSUER", "ecowise-auth"),
		Algorithm: getEnvOrDefault("AUTH_ALGORITHM", AlgHS256),
		JWTSecret: os.Getenv("JWT_SECRET"),
		KeyFile:   getEnvOrDefault("AUTH_SIGNING_KEY_FILE", "signing.pem"),
		TokenTTL:  getEnvDurationOrDefault("JWT_EXPIRES_IN", jwtx.DefaultTokenTTL),

		DBDriver:     strings.ToLower(getEnvOrDefault("DB_DRIVER", DriverSQLite)),
		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		PepperFile:   getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		HashConcurrency:  getEnvIntOrDefault("AUTH_HASH_CONCURRENCY", 0),
		CookieSecure:     getEnvBoolOrDefault("AUTH_COOKIE_SECURE", env != "dev"),
		AllowAdminSignup: getEnvBoolOrDefault("AUTH_ALLOW_ADMIN_SIGNUP", false),

		Env:                  env,
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 5000),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if d, ok := parseDuration(value); ok {
		return d
	}

	return defaultValue
}

// parseDuration accepts Go durations ("1h", "90s"), whole days ("7d") and,
// for backwards compatibility, bare integers as minutes.
func parseDuration(value string) (time.Duration, bool) {
	if duration, err := time.ParseDuration(value); err == nil {
		return duration, true
	}

	if days, ok := strings.CutSuffix(value, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil && n >= 0 {
			return time.Duration(n) * 24 * time.Hour, true
		}
		return 0, false
	}

	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute, true
	}

	return 0, false
}
