package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "EXTRACTION_PROVIDER", "GEMINI_MODEL_ID", "BOOKINGS_STORE",
		"EMAIL_PROVIDER", "SMTP_SERVER", "SMTP_PORT", "EMAIL_ADDRESS", "BUSINESS_EMAIL", "BUSINESS_NAME",
		"SESSION_STORE", "SESSION_TTL", "GEMINI_API_KEY", "GENAI_API_KEY", "CORS_ALLOWED_ORIGINS",
		"DYNAMODB_SESSIONS_TABLE", "CHAT_RATE_PER_MINUTE", "CHAT_RATE_BURST"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.ExtractionProvider != "gemini" || cfg.GeminiModelID != "gemini-2.5-flash" {
		t.Fatalf("unexpected engine defaults: %s %s", cfg.ExtractionProvider, cfg.GeminiModelID)
	}
	if cfg.BookingsStore != "sheets" {
		t.Fatalf("expected sheets store by default, got %s", cfg.BookingsStore)
	}
	if cfg.SMTPServer != "smtp.gmail.com" || cfg.SMTPPort != 587 {
		t.Fatalf("unexpected smtp defaults %s:%d", cfg.SMTPServer, cfg.SMTPPort)
	}
	if cfg.BusinessName != "Appointment Booking Service" {
		t.Fatalf("unexpected business name %q", cfg.BusinessName)
	}
	if cfg.SessionStore != "memory" || cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("unexpected session defaults %s %s", cfg.SessionStore, cfg.SessionTTL)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.SessionsTable != "booking-sessions" || cfg.ChatRatePerMinute != 30 || cfg.ChatRateBurst != 10 {
		t.Fatalf("unexpected session table / rate defaults %s %d %d", cfg.SessionsTable, cfg.ChatRatePerMinute, cfg.ChatRateBurst)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("EXTRACTION_PROVIDER", " Bedrock ")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GENAI_API_KEY", "legacy-key")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("EMAIL_ADDRESS", "bot@clinic.test")
	t.Setenv("BUSINESS_EMAIL", "")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("SESSION_TTL", "90m")
	t.Setenv("EXTRACTION_FALLBACK_PROVIDER", " Gemini ")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.test, ,https://b.test")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.ExtractionProvider != "bedrock" {
		t.Fatalf("expected normalized provider, got %q", cfg.ExtractionProvider)
	}
	if cfg.ExtractionFallbackProvider != "gemini" {
		t.Fatalf("expected normalized fallback provider, got %q", cfg.ExtractionFallbackProvider)
	}
	if cfg.GeminiAPIKey != "legacy-key" {
		t.Fatalf("expected GENAI_API_KEY fallback, got %q", cfg.GeminiAPIKey)
	}
	if cfg.SMTPPort != 2525 {
		t.Fatalf("expected smtp port override, got %d", cfg.SMTPPort)
	}
	if cfg.BusinessEmail != "bot@clinic.test" {
		t.Fatalf("expected business email to default to EMAIL_ADDRESS, got %q", cfg.BusinessEmail)
	}
	if !cfg.RedisTLS || cfg.SessionTTL != 90*time.Minute {
		t.Fatalf("unexpected redis/session overrides: %v %s", cfg.RedisTLS, cfg.SessionTTL)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.test" {
		t.Fatalf("unexpected CORS origins %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("SMTP_PORT", "not-a-number")
	t.Setenv("SESSION_TTL", "forever")
	cfg := Load()
	if cfg.SMTPPort != 587 {
		t.Fatalf("expected default smtp port, got %d", cfg.SMTPPort)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("expected default ttl, got %s", cfg.SessionTTL)
	}
}

func TestLocation(t *testing.T) {
	cfg := &Config{BusinessTimezone: "America/New_York"}
	if got := cfg.Location().String(); got != "America/New_York" {
		t.Fatalf("expected New York location, got %s", got)
	}
	cfg.BusinessTimezone = "Mars/Olympus"
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC fallback for invalid zone")
	}
	var nilCfg *Config
	if nilCfg.Location() != time.UTC {
		t.Fatalf("expected UTC for nil config")
	}
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("BUSINESS_NAME=Dotenv Clinic\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("BUSINESS_NAME", "")
	os.Unsetenv("BUSINESS_NAME")

	if err := LoadDotenv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotenv: %v", err)
	}
	if got := Load().BusinessName; got != "Dotenv Clinic" {
		t.Fatalf("expected business name from .env, got %q", got)
	}
}
