package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/booking-assistant/cmd/mainconfig"
	appconfig "github.com/wolfman30/booking-assistant/internal/config"
	"github.com/wolfman30/booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/booking-assistant/internal/session"
)

// setupMetrics builds a private registry with runtime collectors plus the
// assistant metrics.
func setupMetrics() (*metrics.AssistantMetrics, http.Handler) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return metrics.NewAssistantMetrics(reg), promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func newRedisClient(cfg *appconfig.Config) *redis.Client {
	opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(opts)
}

func buildSessionStore(ctx context.Context, cfg *appconfig.Config, redisClient *redis.Client, loadAWS mainconfig.AWSLoader) (session.Store, error) {
	switch cfg.SessionStore {
	case "memory":
		return session.NewMemoryStore(cfg.SessionTTL), nil
	case "redis":
		if redisClient == nil {
			return nil, errors.New("redis client required for the redis session store")
		}
		return session.NewRedisStore(redisClient, cfg.SessionTTL), nil
	case "dynamodb":
		awsCfg, err := loadAWS(ctx)
		if err != nil {
			return nil, err
		}
		return session.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.SessionsTable, cfg.SessionTTL), nil
	default:
		return nil, fmt.Errorf("unknown SESSION_STORE %q", cfg.SessionStore)
	}
}
