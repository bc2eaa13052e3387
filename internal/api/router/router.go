package router

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/booking-assistant/internal/bookings"
	httpmiddleware "github.com/wolfman30/booking-assistant/internal/http/middleware"
	"github.com/wolfman30/booking-assistant/internal/webchat"
	"github.com/wolfman30/booking-assistant/pkg/logging"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	ChatHandler        *webchat.Handler
	SlotsHandler       *bookings.SlotsHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	// ChatLimiter throttles chat turns per client; nil disables limiting.
	ChatLimiter  *httpmiddleware.RateLimiter
	HealthChecks map[string]HealthCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthHandler(cfg.HealthChecks))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	if cfg.SlotsHandler != nil {
		r.Get("/slots", cfg.SlotsHandler.HandleSlots)
	}

	if cfg.ChatHandler != nil {
		r.Route("/chat", func(chat chi.Router) {
			chat.Get("/widget.js", cfg.ChatHandler.HandleWidgetJS)
			chat.Get("/sessions/{sessionID}", cfg.ChatHandler.HandleSession)
			chat.Group(func(turns chi.Router) {
				if cfg.ChatLimiter != nil {
					turns.Use(httpmiddleware.RateLimit(cfg.ChatLimiter))
				}
				turns.Use(middleware.Timeout(60 * time.Second))
				turns.Post("/messages", cfg.ChatHandler.HandleMessage)
				turns.Post("/sessions/{sessionID}/reset", cfg.ChatHandler.HandleReset)
			})
			// Long-lived; no request timeout.
			chat.Get("/ws", cfg.ChatHandler.HandleWebSocket)
		})
	}

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		resp := map[string]any{"status": "ok"}
		status := http.StatusOK
		if len(names) > 0 {
			results := make(map[string]string, len(names))
			for _, name := range names {
				if err := checks[name](ctx); err != nil {
					results[name] = err.Error()
					status = http.StatusServiceUnavailable
					resp["status"] = "degraded"
					continue
				}
				results[name] = "ok"
			}
			resp["checks"] = results
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
