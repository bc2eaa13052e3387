package mainconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/booking-assistant/internal/bookings"
	appconfig "github.com/wolfman30/booking-assistant/internal/config"
	"github.com/wolfman30/booking-assistant/internal/conversation"
	"github.com/wolfman30/booking-assistant/internal/notify"
	"github.com/wolfman30/booking-assistant/pkg/logging"
)

// AWSLoader resolves the AWS config on first use.
type AWSLoader func(ctx context.Context) (aws.Config, error)

// LazyAWSLoader loads the AWS config once, only when a component asks for it.
func LazyAWSLoader(cfg *appconfig.Config) AWSLoader {
	var (
		mu     sync.Mutex
		loaded bool
		awsCfg aws.Config
	)
	return func(ctx context.Context) (aws.Config, error) {
		mu.Lock()
		defer mu.Unlock()
		if loaded {
			return awsCfg, nil
		}
		c, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
		}
		awsCfg, loaded = c, true
		return awsCfg, nil
	}
}

// ConnectPostgresPool returns nil without a DATABASE_URL.
func ConnectPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// LLMSelection is the extraction engine picked from config.
type LLMSelection struct {
	Client   conversation.LLMClient
	Provider string
	Model    string
}

// BuildLLMClient picks the extraction engine, chaining the fallback provider
// behind the primary when both are usable. A nil Client means every turn is
// answered by the fallback responder.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, loadAWS AWSLoader, logger *logging.Logger) (LLMSelection, error) {
	primary, err := buildProvider(ctx, cfg.ExtractionProvider, cfg, loadAWS, logger)
	if err != nil {
		return LLMSelection{}, err
	}
	name := cfg.ExtractionFallbackProvider
	if name == "" || name == "none" || name == cfg.ExtractionProvider {
		return primary, nil
	}
	secondary, err := buildProvider(ctx, name, cfg, loadAWS, logger)
	if err != nil {
		return LLMSelection{}, fmt.Errorf("fallback provider: %w", err)
	}
	switch {
	case secondary.Client == nil:
		return primary, nil
	case primary.Client == nil:
		return secondary, nil
	}
	return LLMSelection{
		Client:   conversation.NewFailoverLLMClient(primary.Client, secondary.Client, logger),
		Provider: primary.Provider + "+" + secondary.Provider,
		Model:    primary.Model,
	}, nil
}

func buildProvider(ctx context.Context, name string, cfg *appconfig.Config, loadAWS AWSLoader, logger *logging.Logger) (LLMSelection, error) {
	switch name {
	case "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			logger.Warn("GEMINI_API_KEY not set; gemini engine disabled")
			return LLMSelection{Provider: "none"}, nil
		}
		client, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return LLMSelection{}, err
		}
		return LLMSelection{Client: client, Provider: "gemini", Model: cfg.GeminiModelID}, nil
	case "bedrock":
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			return LLMSelection{}, errors.New("BEDROCK_MODEL_ID is required for the bedrock provider")
		}
		awsCfg, err := loadAWS(ctx)
		if err != nil {
			return LLMSelection{}, err
		}
		client := conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
		return LLMSelection{Client: client, Provider: "bedrock", Model: cfg.BedrockModelID}, nil
	case "none", "":
		return LLMSelection{Provider: "none"}, nil
	default:
		return LLMSelection{}, fmt.Errorf("unknown extraction provider %q", name)
	}
}

// SheetsCredentials accepts the service-account JSON inline or a path to it.
func SheetsCredentials(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, errors.New("GOOGLE_SHEETS_CREDENTIALS not set")
	}
	data := []byte(value)
	if !strings.HasPrefix(value, "{") {
		b, err := os.ReadFile(value)
		if err != nil {
			return nil, fmt.Errorf("read GOOGLE_SHEETS_CREDENTIALS: %w", err)
		}
		data = b
	}
	if !json.Valid(data) {
		return nil, errors.New("invalid JSON in GOOGLE_SHEETS_CREDENTIALS")
	}
	return data, nil
}

// BuildBookingStore opens the persistent booking log. pool may be nil unless
// BOOKINGS_STORE=postgres.
func BuildBookingStore(ctx context.Context, cfg *appconfig.Config, pool *pgxpool.Pool, logger *logging.Logger) (bookings.Store, error) {
	switch cfg.BookingsStore {
	case "sheets":
		if strings.TrimSpace(cfg.GoogleSpreadsheetID) == "" {
			return nil, errors.New("GOOGLE_SPREADSHEET_ID not set")
		}
		creds, err := SheetsCredentials(cfg.GoogleSheetsCredentials)
		if err != nil {
			return nil, err
		}
		store, err := bookings.NewSheetsStore(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, creds, logger)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureHeaders(ctx); err != nil {
			// Append retries the header repair.
			logger.Warn("bookings sheet header check failed", "error", err)
		}
		return store, nil
	case "postgres":
		if pool == nil {
			return nil, errors.New("DATABASE_URL is required for the postgres bookings store")
		}
		return bookings.NewPostgresStore(pool), nil
	case "memory":
		logger.Warn("bookings are kept in memory and lost on restart")
		return bookings.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown BOOKINGS_STORE %q", cfg.BookingsStore)
	}
}

// BuildEmailSender returns nil when the chosen provider lacks credentials;
// notifications then fail with a configuration error while bookings still
// commit.
func BuildEmailSender(ctx context.Context, cfg *appconfig.Config, loadAWS AWSLoader, logger *logging.Logger) (notify.EmailSender, error) {
	switch cfg.EmailProvider {
	case "smtp":
		s := notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTPServer,
			Port:     cfg.SMTPPort,
			Username: cfg.EmailAddress,
			Password: cfg.EmailPassword,
			FromName: cfg.BusinessName,
		}, logger)
		if s == nil {
			return nil, nil
		}
		return s, nil
	case "sendgrid":
		s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailAddress,
			FromName:  cfg.BusinessName,
		}, logger)
		if s == nil {
			return nil, nil
		}
		return s, nil
	case "ses":
		awsCfg, err := loadAWS(ctx)
		if err != nil {
			return nil, err
		}
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.EmailAddress,
			FromName:  cfg.BusinessName,
		}, logger), nil
	case "log":
		return notify.NewStubEmailSender(logger), nil
	default:
		return nil, fmt.Errorf("unknown EMAIL_PROVIDER %q", cfg.EmailProvider)
	}
}
