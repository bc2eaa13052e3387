package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/booking-assistant/cmd/mainconfig"
	appconfig "github.com/wolfman30/booking-assistant/internal/config"
	"github.com/wolfman30/booking-assistant/internal/session"
	"github.com/wolfman30/booking-assistant/pkg/logging"
)

func noAWS(t *testing.T) mainconfig.AWSLoader {
	return func(context.Context) (aws.Config, error) {
		t.Fatalf("AWS config should not be loaded")
		return aws.Config{}, nil
	}
}

func TestSetupMetricsExposesAssistantMetrics(t *testing.T) {
	m, handler := setupMetrics()
	require.NotNil(t, m)
	require.NotNil(t, handler)

	m.ObserveTurn("fallback", "engine_unavailable")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "booking_conversation_turns_total")
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestBuildSessionStore(t *testing.T) {
	ctx := context.Background()

	store, err := buildSessionStore(ctx, &appconfig.Config{SessionStore: "memory", SessionTTL: time.Hour}, nil, noAWS(t))
	require.NoError(t, err)
	assert.IsType(t, &session.MemoryStore{}, store)

	_, err = buildSessionStore(ctx, &appconfig.Config{SessionStore: "redis"}, nil, noAWS(t))
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store, err = buildSessionStore(ctx, &appconfig.Config{SessionStore: "redis", SessionTTL: time.Hour}, client, noAWS(t))
	require.NoError(t, err)
	assert.IsType(t, &session.RedisStore{}, store)

	_, err = buildSessionStore(ctx, &appconfig.Config{SessionStore: "etcd"}, nil, noAWS(t))
	assert.ErrorContains(t, err, "unknown SESSION_STORE")
}

func TestBuildServerServesChatTurns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := &appconfig.Config{
		Port:               "0",
		ExtractionProvider: "none",
		BookingsStore:      "memory",
		SessionStore:       "memory",
		SessionTTL:         time.Hour,
		EmailProvider:      "log",
		BusinessName:       "Test Studio",
		EngineTimeout:      time.Second,
		ChatRatePerMinute:  60,
		ChatRateBurst:      5,
	}
	srv, cleanup, err := buildServer(ctx, cfg, logging.New("error"))
	require.NoError(t, err)
	t.Cleanup(cleanup)

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	body := strings.NewReader(`{"session_id":"s-1","text":"Hi, I'd like to book"}`)
	req := httptest.NewRequest(http.MethodPost, "/chat/messages", body)
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		SessionID  string   `json:"session_id"`
		Replies    []string `json:"replies"`
		Provenance string   `json:"provenance"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "s-1", resp.SessionID)
	assert.Equal(t, "fallback", resp.Provenance)
	assert.NotEmpty(t, resp.Replies)

	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/slots?date=2030-01-07", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
