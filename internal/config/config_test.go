package config

import (
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(envMap(map[string]string{
		"DATABASE_URL": "postgres://localhost/pos",
		"JWT_SECRET":   "0123456789abcdef",
	}))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Port)
	}
	if cfg.JWTTTL != 12*time.Hour {
		t.Errorf("expected JWT TTL 12h, got %s", cfg.JWTTTL)
	}
	if cfg.LockTimeout != 5*time.Second {
		t.Errorf("expected lock timeout 5s, got %s", cfg.LockTimeout)
	}
	if cfg.RequestBodyLimit != 1<<20 {
		t.Errorf("expected 1 MiB body limit, got %d", cfg.RequestBodyLimit)
	}
	if cfg.MetricsEnabled {
		t.Error("metrics should be disabled by default")
	}
	if cfg.LogFormat != "text" || cfg.LogLevel != "info" {
		t.Errorf("unexpected log settings: %s/%s", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(envMap(map[string]string{
		"DATABASE_URL":    "postgres://localhost/pos",
		"JWT_SECRET":      "0123456789abcdef0123",
		"SERVER_PORT":     "9090",
		"LOCK_TIMEOUT":    "0s",
		"METRICS_ENABLED": "true",
		"LOG_FORMAT":      "json",
		"BUSINESS_NAME":   "Corner Shop",
	}))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.LockTimeout != 0 {
		t.Errorf("expected lock timeout disabled, got %s", cfg.LockTimeout)
	}
	if !cfg.MetricsEnabled {
		t.Error("expected metrics enabled")
	}
	if cfg.Business.Name != "Corner Shop" {
		t.Errorf("expected business name override, got %q", cfg.Business.Name)
	}
}

func TestLoad_AggregatesErrors(t *testing.T) {
	_, err := load(envMap(map[string]string{
		"JWT_SECRET":   "short",
		"LOCK_TIMEOUT": "soon",
		"LOG_FORMAT":   "xml",
	}))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	msg := err.Error()
	for _, want := range []string{"DATABASE_URL", "JWT_SECRET", "LOCK_TIMEOUT", "LOG_FORMAT"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected error to mention %s, got: %s", want, msg)
		}
	}
}
