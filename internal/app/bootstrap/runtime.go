// Package bootstrap builds the runtime dependencies shared by the binaries.
package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/dentalbook/internal/config"
	"github.com/wolfman30/dentalbook/internal/store"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// REDIS_URL takes precedence over REDIS_ADDR. When verify is true, a ping is
// issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var redisOptions *redis.Options
	switch {
	case strings.TrimSpace(cfg.RedisURL) != "":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Warn("invalid REDIS_URL, redis disabled", "error", err)
			return nil
		}
		redisOptions = opts
	case strings.TrimSpace(cfg.RedisAddr) != "":
		redisOptions = &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
	default:
		return nil
	}
	if cfg.RedisTLS && redisOptions.TLSConfig == nil {
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

// BuildPostgresPool opens and pings the database. It returns nil, nil when
// no DATABASE_URL is configured.
func BuildPostgresPool(ctx context.Context, cfg *appconfig.Config) (*pgxpool.Pool, error) {
	if cfg == nil || cfg.UseMemoryStore() {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	return pool, nil
}

// BuildStore picks the Postgres store when a pool is available and the
// in-memory store otherwise.
func BuildStore(pool *pgxpool.Pool, logger *logging.Logger) store.Store {
	if logger == nil {
		logger = logging.Default()
	}
	if pool == nil {
		logger.Warn("DATABASE_URL not set; using in-memory store, data is lost on restart")
		return store.NewMemoryStore()
	}
	return store.NewPostgresStore(pool)
}
