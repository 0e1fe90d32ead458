package config

import (
	"testing"
	"time"
)

const testSecret = "test-session-secret-32bytes-long!"

func setRequiredEnvVars(t *testing.T) {
	t.Helper()
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("BASE_URL", "http://localhost:8080")
	t.Setenv("APP_ENV", "")
}

func TestLoad_AllRequiredVarsSet_ReturnsConfig(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.SessionSecret != testSecret {
		t.Errorf("SessionSecret = %q, want %q", cfg.SessionSecret, testSecret)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, "http://localhost:8080")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("EXTERNAL_API_BASE_URL", "")
	t.Setenv("MAX_REQUEST_DURATION", "")
	t.Setenv("RATE_LIMIT_GENERAL", "")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("TRACING_ENABLED", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.ExternalAPIBaseURL != "http://localhost:8000/api" {
		t.Errorf("ExternalAPIBaseURL = %q, want %q", cfg.ExternalAPIBaseURL, "http://localhost:8000/api")
	}
	if cfg.AppEnv != "development" {
		t.Errorf("AppEnv = %q, want %q", cfg.AppEnv, "development")
	}
	if cfg.MaxRequestDuration != 60*time.Second {
		t.Errorf("MaxRequestDuration = %v, want %v", cfg.MaxRequestDuration, 60*time.Second)
	}
	if cfg.RateLimitGeneral != 120 {
		t.Errorf("RateLimitGeneral = %d, want %d", cfg.RateLimitGeneral, 120)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "8080")
	}
	if cfg.CookieSecure {
		t.Error("CookieSecure should be false for http BASE_URL in development")
	}
	if cfg.TracingEnabled {
		t.Error("TracingEnabled should default to false")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnvVars(t)

	t.Setenv("EXTERNAL_API_BASE_URL", "http://backend:9000/api/")
	t.Setenv("API_TIMEOUT", "5s")
	t.Setenv("MAX_REQUEST_DURATION", "2m")
	t.Setenv("RATE_LIMIT_GENERAL", "0")
	t.Setenv("SERVER_PORT", "3000")
	t.Setenv("METRICS_PORT", "")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// 末尾のスラッシュは除去される
	if cfg.ExternalAPIBaseURL != "http://backend:9000/api" {
		t.Errorf("ExternalAPIBaseURL = %q, want %q", cfg.ExternalAPIBaseURL, "http://backend:9000/api")
	}
	if cfg.APITimeout != 5*time.Second {
		t.Errorf("APITimeout = %v, want %v", cfg.APITimeout, 5*time.Second)
	}
	if cfg.MaxRequestDuration != 2*time.Minute {
		t.Errorf("MaxRequestDuration = %v, want %v", cfg.MaxRequestDuration, 2*time.Minute)
	}
	if cfg.RateLimitGeneral != 0 {
		t.Errorf("RateLimitGeneral = %d, want 0", cfg.RateLimitGeneral)
	}
	if cfg.ServerPort != "3000" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "3000")
	}
	if cfg.MetricsPort != "" {
		t.Errorf("MetricsPort = %q, want empty (disabled)", cfg.MetricsPort)
	}
	if !cfg.TracingEnabled {
		t.Error("TracingEnabled should be true")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
}

func TestLoad_Production_SetsCookieSecure(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction() should be true")
	}
	if !cfg.CookieSecure {
		t.Error("CookieSecure should be true in production")
	}
}

func TestLoad_HTTPSBaseURL_SetsCookieSecure(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("BASE_URL", "https://chat.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !cfg.CookieSecure {
		t.Error("CookieSecure should be true for https BASE_URL")
	}
}

func TestLoad_InvalidDuration_FallsBackToDefault(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("MAX_REQUEST_DURATION", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.MaxRequestDuration != 60*time.Second {
		t.Errorf("MaxRequestDuration = %v, want %v", cfg.MaxRequestDuration, 60*time.Second)
	}
}

func TestLoad_MissingSessionSecret_ReturnsError(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("SESSION_SECRET", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing SESSION_SECRET, got nil")
	}
}

func TestLoad_ShortSessionSecret_ReturnsError(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("SESSION_SECRET", "too-short")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for short SESSION_SECRET, got nil")
	}
}

func TestLoad_MissingBaseURL_ReturnsError(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("BASE_URL", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing BASE_URL, got nil")
	}
}
