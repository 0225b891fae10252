// Package config loads process configuration from the environment.
//
// Callers load a .env file (godotenv) before calling Load; values already
// present in the environment always win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the fully parsed server configuration.
type Config struct {
	DatabaseURL      string
	Port             string
	JWTSecret        string
	JWTTTL           time.Duration
	AllowedOrigins   string
	LockTimeout      time.Duration
	RequestBodyLimit int64
	LogLevel         string
	LogFormat        string
	MetricsEnabled   bool
	Business         Business
}

// Business is printed on POS invoices.
type Business struct {
	Name    string
	Address string
	Phone   string
}

const minJWTSecretLen = 16

// Load reads the environment and returns a validated Config.
// Every invalid key is reported in one aggregated error.
func Load() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	var errs []error

	cfg := &Config{
		DatabaseURL:    getenv("DATABASE_URL"),
		Port:           withDefault(getenv("SERVER_PORT"), "8080"),
		JWTSecret:      getenv("JWT_SECRET"),
		AllowedOrigins: getenv("ALLOWED_ORIGINS"),
		LogLevel:       withDefault(getenv("LOG_LEVEL"), "info"),
		LogFormat:      withDefault(getenv("LOG_FORMAT"), "text"),
		Business: Business{
			Name:    withDefault(getenv("BUSINESS_NAME"), "Branch POS"),
			Address: getenv("BUSINESS_ADDRESS"),
			Phone:   getenv("BUSINESS_PHONE"),
		},
	}

	if cfg.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if len(cfg.JWTSecret) < minJWTSecretLen {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLen))
	}

	var err error
	if cfg.JWTTTL, err = parseDuration(getenv("JWT_TTL"), 12*time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("JWT_TTL: %w", err))
	}
	if cfg.LockTimeout, err = parseDuration(getenv("LOCK_TIMEOUT"), 5*time.Second); err != nil {
		errs = append(errs, fmt.Errorf("LOCK_TIMEOUT: %w", err))
	}
	if cfg.RequestBodyLimit, err = parseInt64(getenv("REQUEST_BODY_LIMIT"), 1<<20); err != nil {
		errs = append(errs, fmt.Errorf("REQUEST_BODY_LIMIT: %w", err))
	}
	if cfg.MetricsEnabled, err = parseBool(getenv("METRICS_ENABLED"), false); err != nil {
		errs = append(errs, fmt.Errorf("METRICS_ENABLED: %w", err))
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT: must be text or json, got %q", cfg.LogFormat))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func withDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func parseDuration(v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative, got %s", v)
	}
	return d, nil
}

func parseInt64(v string, def int64) (int64, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}

func parseBool(v string, def bool) (bool, error) {
	if v == "" {
		return def, nil
	}
	return strconv.ParseBool(v)
}
