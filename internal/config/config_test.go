package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "8080")
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q, want %q", cfg.RedisAddr, "localhost:6379")
	}
	if cfg.JWTExpiration != 30*time.Minute {
		t.Errorf("JWTExpiration = %v, want 30m", cfg.JWTExpiration)
	}
	if cfg.DefaultLLM != "anthropic" {
		t.Errorf("DefaultLLM = %q, want %q", cfg.DefaultLLM, "anthropic")
	}
	if cfg.MaxTokens != 4096 {
		t.Errorf("MaxTokens = %d, want 4096", cfg.MaxTokens)
	}
	if cfg.EventsEnabled {
		t.Error("EventsEnabled should default to false")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_EXPIRATION", "1h")
	t.Setenv("LLM_TEMPERATURE", "0.7")
	t.Setenv("EVENTS_ENABLED", "true")
	t.Setenv("RATE_LIMIT_REQUESTS", "10")

	cfg := Load()

	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "9090")
	}
	if cfg.JWTExpiration != time.Hour {
		t.Errorf("JWTExpiration = %v, want 1h", cfg.JWTExpiration)
	}
	if cfg.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", cfg.Temperature)
	}
	if !cfg.EventsEnabled {
		t.Error("EventsEnabled = false, want true")
	}
	if cfg.RateLimitRequests != 10 {
		t.Errorf("RateLimitRequests = %d, want 10", cfg.RateLimitRequests)
	}
}

func TestLoad_IgnoresUnparseableValues(t *testing.T) {
	t.Setenv("JWT_EXPIRATION", "soon")
	t.Setenv("RATE_LIMIT_REQUESTS", "lots")

	cfg := Load()

	if cfg.JWTExpiration != 30*time.Minute {
		t.Errorf("JWTExpiration = %v, want default 30m", cfg.JWTExpiration)
	}
	if cfg.RateLimitRequests != 60 {
		t.Errorf("RateLimitRequests = %d, want default 60", cfg.RateLimitRequests)
	}
}
