package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
backend:
  base_url: https://api.fprax.example
session:
  ttl: 12h
  watch_interval: 15s
limits:
  login_per_minute: 10
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Backend.BaseURL != "https://api.fprax.example" {
		t.Fatalf("unexpected backend base url: %s", cfg.Backend.BaseURL)
	}
	if cfg.Session.TTL.String() != "12h0m0s" {
		t.Fatalf("unexpected session ttl: %s", cfg.Session.TTL)
	}
	if cfg.Session.WatchInterval.String() != "15s" {
		t.Fatalf("unexpected watch interval: %s", cfg.Session.WatchInterval)
	}
	if cfg.Limits.LoginPerMinute != 10 {
		t.Fatalf("unexpected login/minute limit: %d", cfg.Limits.LoginPerMinute)
	}

	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("http addr default should stay :8080, got %s", cfg.HTTP.Addr)
	}
	if cfg.Limits.LoginPer10Seconds != 5 {
		t.Fatalf("login/10s default should stay 5, got %d", cfg.Limits.LoginPer10Seconds)
	}
	if cfg.Backend.WSURL != "ws://localhost:5000" {
		t.Fatalf("ws url default should stay local, got %s", cfg.Backend.WSURL)
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config with missing file: %v", err)
	}

	if cfg.Backend.BaseURL != "http://localhost:5000" {
		t.Fatalf("unexpected default backend base url: %s", cfg.Backend.BaseURL)
	}
	if cfg.Session.WatchInterval.String() != "30s" {
		t.Fatalf("unexpected default watch interval: %s", cfg.Session.WatchInterval)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected default redis addr: %s", cfg.Redis.Addr)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("BACKEND_BASE_URL", "https://env.fprax.example")
	t.Setenv("SESSION_WATCH_INTERVAL", "1m")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Backend.BaseURL != "https://env.fprax.example" {
		t.Fatalf("env override not applied: %s", cfg.Backend.BaseURL)
	}
	if cfg.Session.WatchInterval.String() != "1m0s" {
		t.Fatalf("env override not applied: %s", cfg.Session.WatchInterval)
	}
	if cfg.Redis.DB != 3 {
		t.Fatalf("env override not applied: %d", cfg.Redis.DB)
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV",
		"HTTP_ADDR",
		"HTTP_READ_TIMEOUT",
		"HTTP_WRITE_TIMEOUT",
		"HTTP_IDLE_TIMEOUT",
		"LOG_LEVEL",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"BACKEND_BASE_URL",
		"BACKEND_WS_URL",
		"BACKEND_TIMEOUT",
		"SESSION_TTL",
		"SESSION_WATCH_INTERVAL",
		"LOGIN_PER_MINUTE",
		"LOGIN_PER_10SEC",
	} {
		t.Setenv(key, "")
	}
}
