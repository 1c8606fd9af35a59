package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()
	t.Setenv("API_BASE_URL", "http://localhost:5000")
}

func TestLoad_AllRequiredVarsSet_ReturnsConfig(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.APIBaseURL != "http://localhost:5000" {
		t.Errorf("APIBaseURL = %q, want %q", cfg.APIBaseURL, "http://localhost:5000")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("UPLOADS_BASE_URL", "")
	t.Setenv("API_TIMEOUT", "")
	t.Setenv("API_RATE_LIMIT", "")
	t.Setenv("API_RATE_BURST", "")
	t.Setenv("MESSAGE_CLEAR_DELAY", "")
	t.Setenv("SEARCH_PARAM", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("METRICS_ADDR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.UploadsBaseURL != "http://localhost:5000/uploads" {
		t.Errorf("UploadsBaseURL = %q, want %q", cfg.UploadsBaseURL, "http://localhost:5000/uploads")
	}
	if cfg.APITimeout != 10*time.Second {
		t.Errorf("APITimeout = %v, want %v", cfg.APITimeout, 10*time.Second)
	}
	if cfg.APIRateLimit != 10 {
		t.Errorf("APIRateLimit = %v, want %v", cfg.APIRateLimit, 10)
	}
	if cfg.APIRateBurst != 20 {
		t.Errorf("APIRateBurst = %d, want %d", cfg.APIRateBurst, 20)
	}
	if cfg.MessageClearDelay != 2*time.Second {
		t.Errorf("MessageClearDelay = %v, want %v", cfg.MessageClearDelay, 2*time.Second)
	}
	if cfg.SearchParam != "q" {
		t.Errorf("SearchParam = %q, want %q", cfg.SearchParam, "q")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.MetricsAddr != "" {
		t.Errorf("MetricsAddr = %q, want empty", cfg.MetricsAddr)
	}
	if !strings.HasSuffix(cfg.CredentialFile, "credentials.json") {
		t.Errorf("CredentialFile = %q, want suffix credentials.json", cfg.CredentialFile)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnvVars(t)

	t.Setenv("UPLOADS_BASE_URL", "https://cdn.example.com/uploads/")
	t.Setenv("API_TIMEOUT", "30s")
	t.Setenv("API_RATE_LIMIT", "2.5")
	t.Setenv("API_RATE_BURST", "5")
	t.Setenv("MESSAGE_CLEAR_DELAY", "500ms")
	t.Setenv("CREDENTIAL_FILE", "/tmp/creds.json")
	t.Setenv("SEARCH_PARAM", "term")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("METRICS_ADDR", ":9100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.UploadsBaseURL != "https://cdn.example.com/uploads" {
		t.Errorf("UploadsBaseURL = %q, want trailing slash trimmed", cfg.UploadsBaseURL)
	}
	if cfg.APITimeout != 30*time.Second {
		t.Errorf("APITimeout = %v, want %v", cfg.APITimeout, 30*time.Second)
	}
	if cfg.APIRateLimit != 2.5 {
		t.Errorf("APIRateLimit = %v, want %v", cfg.APIRateLimit, 2.5)
	}
	if cfg.APIRateBurst != 5 {
		t.Errorf("APIRateBurst = %d, want %d", cfg.APIRateBurst, 5)
	}
	if cfg.MessageClearDelay != 500*time.Millisecond {
		t.Errorf("MessageClearDelay = %v, want %v", cfg.MessageClearDelay, 500*time.Millisecond)
	}
	if cfg.CredentialFile != "/tmp/creds.json" {
		t.Errorf("CredentialFile = %q, want %q", cfg.CredentialFile, "/tmp/creds.json")
	}
	if cfg.SearchParam != "term" {
		t.Errorf("SearchParam = %q, want %q", cfg.SearchParam, "term")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.MetricsAddr != ":9100" {
		t.Errorf("MetricsAddr = %q, want %q", cfg.MetricsAddr, ":9100")
	}
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("API_TIMEOUT", "soon")
	t.Setenv("API_RATE_BURST", "many")
	t.Setenv("API_RATE_LIMIT", "fast")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.APITimeout != 10*time.Second {
		t.Errorf("APITimeout = %v, want default", cfg.APITimeout)
	}
	if cfg.APIRateBurst != 20 {
		t.Errorf("APIRateBurst = %d, want default", cfg.APIRateBurst)
	}
	if cfg.APIRateLimit != 10 {
		t.Errorf("APIRateLimit = %v, want default", cfg.APIRateLimit)
	}
}

func TestLoad_TrimsTrailingSlashFromBaseURL(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://localhost:5000/")
	t.Setenv("UPLOADS_BASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.APIBaseURL != "http://localhost:5000" {
		t.Errorf("APIBaseURL = %q, want trailing slash trimmed", cfg.APIBaseURL)
	}
}

func TestLoad_MissingAPIBaseURL_ReturnsError(t *testing.T) {
	t.Setenv("API_BASE_URL", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing API_BASE_URL, got nil")
	}
}

func TestLoad_InvalidSchemeReturnsError(t *testing.T) {
	t.Setenv("API_BASE_URL", "ftp://example.com")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for non-http API_BASE_URL, got nil")
	}
}
