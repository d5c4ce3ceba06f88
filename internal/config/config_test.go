package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "TEAMBOARD_API_URL", "TEAMBOARD_ASSET_URL", "TEAMBOARD_SESSION_FILE",
		"TEAMBOARD_TIMEOUT", "TEAMBOARD_RATE_LIMIT", "TEAMBOARD_RATE_BURST", "LOG_LEVEL", "MOCKAPI_TOKEN_TTL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Addr != ":3000" {
		t.Fatalf("expected :3000, got %q", cfg.Server.Addr)
	}
	if cfg.Client.APIURL != DefaultAPIURL {
		t.Fatalf("expected default api url, got %q", cfg.Client.APIURL)
	}
	if cfg.Client.AssetURL != "http://localhost:3000" {
		t.Fatalf("expected asset host derived from api url, got %q", cfg.Client.AssetURL)
	}
	if cfg.Client.Timeout != 30*time.Second {
		t.Fatalf("expected 30s timeout, got %v", cfg.Client.Timeout)
	}
	if cfg.Client.RateLimit != 0 || cfg.Client.RateBurst != 1 {
		t.Fatalf("expected rate limit off, got %v/%d", cfg.Client.RateLimit, cfg.Client.RateBurst)
	}
	if cfg.Mock.TokenTTL != 15*time.Minute {
		t.Fatalf("expected 15m token ttl, got %v", cfg.Mock.TokenTTL)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("expected info level, got %v", cfg.LogLevel)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("TEAMBOARD_API_URL", "https://api.example.com/api/v1/")
	t.Setenv("TEAMBOARD_ASSET_URL", "")
	t.Setenv("TEAMBOARD_TIMEOUT", "5")
	t.Setenv("TEAMBOARD_RATE_LIMIT", "2.5")
	t.Setenv("TEAMBOARD_RATE_BURST", "4")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MOCKAPI_TOKEN_TTL", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	if cfg.Client.APIURL != "https://api.example.com/api/v1" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Client.APIURL)
	}
	if cfg.Client.AssetURL != "https://api.example.com" {
		t.Fatalf("unexpected asset url %q", cfg.Client.AssetURL)
	}
	if cfg.Client.Timeout != 5*time.Second || cfg.Client.RateLimit != 2.5 || cfg.Client.RateBurst != 4 {
		t.Fatalf("unexpected client config %+v", cfg.Client)
	}
	if cfg.Mock.TokenTTL != time.Second {
		t.Fatalf("expected ttl clamped to 1s, got %v", cfg.Mock.TokenTTL)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", cfg.LogLevel)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":                 "80 80",
		"TEAMBOARD_TIMEOUT":    "soon",
		"TEAMBOARD_RATE_LIMIT": "-1",
		"LOG_LEVEL":            "loud",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}
