package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/staydesk-support/internal/config"
	"github.com/wolfman30/staydesk-support/internal/events"
	"github.com/wolfman30/staydesk-support/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgresPool connects the ticket store pool, or returns nil when no
// DATABASE_URL is configured or the database cannot be reached.
func BuildPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(databaseURL) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Warn("postgres unavailable, using in-memory tickets", "error", err)
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Warn("postgres ping failed, using in-memory tickets", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// BuildEscalationPublisher connects the NATS escalation publisher, or returns
// nil when NATS_URL is unset.
func BuildEscalationPublisher(cfg *appconfig.Config, logger *logging.Logger) (*events.NATSPublisher, error) {
	if cfg == nil || strings.TrimSpace(cfg.NATSURL) == "" {
		return nil, nil
	}
	pub, err := events.NewNATSPublisher(cfg.NATSURL, cfg.NATSToken, cfg.EscalationSubject, logger)
	if err != nil {
		return nil, err
	}
	return pub, nil
}
