package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string

	// Extraction engine
	ExtractionProvider string
	GeminiAPIKey       string
	GeminiModelID      string
	BedrockModelID     string
	EngineTimeout      time.Duration

	// ExtractionFallbackProvider is tried when the primary engine errors.
	ExtractionFallbackProvider string

	// AWS (Bedrock, SES)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Persistence
	BookingsStore           string
	GoogleSpreadsheetID     string
	GoogleSheetsCredentials string
	GoogleSheetName         string
	DatabaseURL             string

	// Email
	EmailProvider  string
	SMTPServer     string
	SMTPPort       int
	EmailAddress   string
	EmailPassword  string
	SendGridAPIKey string

	// Business identity
	BusinessName     string
	BusinessEmail    string
	BusinessTimezone string

	// Sessions
	SessionStore  string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	SessionTTL    time.Duration
	SessionsTable string

	// Chat turn throttling per client address; zero disables it.
	ChatRatePerMinute int
	ChatRateBurst     int
}

// LoadDotenv loads variables from the given .env files (default ".env") into
// the process environment. A missing file is not an error; existing
// environment variables win.
func LoadDotenv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// Load reads configuration from environment variables
func Load() *Config {
	emailAddress := getEnv("EMAIL_ADDRESS", "")
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		ExtractionProvider: strings.ToLower(strings.TrimSpace(getEnv("EXTRACTION_PROVIDER", "gemini"))),
		GeminiAPIKey:       firstEnv("GEMINI_API_KEY", "GENAI_API_KEY"),
		GeminiModelID:      getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		BedrockModelID:     getEnv("BEDROCK_MODEL_ID", ""),
		EngineTimeout:      getEnvAsDuration("ENGINE_TIMEOUT", 30*time.Second),

		ExtractionFallbackProvider: strings.ToLower(strings.TrimSpace(getEnv("EXTRACTION_FALLBACK_PROVIDER", ""))),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		BookingsStore:           strings.ToLower(strings.TrimSpace(getEnv("BOOKINGS_STORE", "sheets"))),
		GoogleSpreadsheetID:     getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetsCredentials: getEnv("GOOGLE_SHEETS_CREDENTIALS", ""),
		GoogleSheetName:         getEnv("GOOGLE_SHEET_NAME", "Sheet1"),
		DatabaseURL:             getEnv("DATABASE_URL", ""),

		EmailProvider:  strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "smtp"))),
		SMTPServer:     getEnv("SMTP_SERVER", "smtp.gmail.com"),
		SMTPPort:       getEnvAsInt("SMTP_PORT", 587),
		EmailAddress:   emailAddress,
		EmailPassword:  getEnv("EMAIL_PASSWORD", ""),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),

		BusinessName:     getEnv("BUSINESS_NAME", "Appointment Booking Service"),
		BusinessEmail:    getEnv("BUSINESS_EMAIL", emailAddress),
		BusinessTimezone: getEnv("BUSINESS_TIMEZONE", "UTC"),

		SessionStore:  strings.ToLower(strings.TrimSpace(getEnv("SESSION_STORE", "memory"))),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		SessionsTable: getEnv("DYNAMODB_SESSIONS_TABLE", "booking-sessions"),

		ChatRatePerMinute: getEnvAsInt("CHAT_RATE_PER_MINUTE", 30),
		ChatRateBurst:     getEnvAsInt("CHAT_RATE_BURST", 10),
	}
}

// Location resolves BusinessTimezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if c == nil || strings.TrimSpace(c.BusinessTimezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.BusinessTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// firstEnv returns the first non-empty variable among keys.
func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
