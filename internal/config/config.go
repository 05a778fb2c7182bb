package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env    string // application environment (e.g. "dev", "prod")
	Port   string // HTTP port to listen on
	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	CommitTimeout      time.Duration // upper bound for one booking transaction including retries
	CommitMaxAttempts  int           // attempts per booking when transactions conflict
	CommitRetryBackoff time.Duration // base delay between attempts
	MaxStayNights      int           // longest accepted reservation

	AllowedOrigins []string // CORS allow-list
	LogLevel       string   // zap level name; empty picks the environment default
}

// defaultOrigins are the local development frontends.
var defaultOrigins = []string{"http://localhost:5173", "http://localhost:3000"}

// LoadDotEnv reads a .env file from the working directory when one exists.
// Variables already set in the environment win.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Load reads configuration values from environment variables.  Every
// missing required variable is reported in one error.
func Load() (Config, error) {
	var missing []string
	must := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := Config{
		Env:    must("APP_ENV"),
		Port:   must("APP_PORT"),
		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		CommitTimeout:      envDur("COMMIT_TIMEOUT", 5*time.Second),
		CommitMaxAttempts:  envInt("COMMIT_MAX_ATTEMPTS", 3),
		CommitRetryBackoff: envDur("COMMIT_RETRY_BACKOFF", 50*time.Millisecond),
		MaxStayNights:      envInt("MAX_STAY_NIGHTS", 365),

		AllowedOrigins: allowedOrigins(),
		LogLevel:       os.Getenv("LOG_LEVEL"),
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if cfg.CommitMaxAttempts < 1 {
		cfg.CommitMaxAttempts = 1
	}
	if cfg.CommitTimeout <= 0 {
		return Config{}, fmt.Errorf("COMMIT_TIMEOUT must be positive, got %s", cfg.CommitTimeout)
	}
	if cfg.MaxStayNights < 1 {
		return Config{}, fmt.Errorf("MAX_STAY_NIGHTS must be at least 1, got %d", cfg.MaxStayNights)
	}
	return cfg, nil
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	switch strings.ToLower(c.Env) {
	case "prod", "production":
		return true
	}
	return false
}

// allowedOrigins merges CORS_ALLOWED_ORIGINS (or the development defaults)
// with FRONTEND_URL.
func allowedOrigins() []string {
	origins := defaultOrigins
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins = splitList(v)
	}
	out := append([]string{}, origins...)
	if fe := strings.TrimSpace(os.Getenv("FRONTEND_URL")); fe != "" {
		out = append(out, fe)
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
