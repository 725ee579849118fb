package utils

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/newsboard/config"
)

// NewRedis returns a Redis client for the configured host, or nil when Redis is not configured.
// A failed ping is logged but still returns the client so callers can retry lazily.
func NewRedis(cfg config.AppConfig) *redis.Client {
	if cfg.RedisHost == "" {
		return nil
	}
	rc := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		Sugar.Warnf("redis ping failed addr=%s err=%v", rc.Options().Addr, err)
	}
	return rc
}

// NewStore picks the Redis store when a client is available, otherwise the in-memory store.
func NewStore(rc *redis.Client) Store {
	if rc != nil {
		return NewRedisStore(rc)
	}
	Sugar.Info("redis not configured; sessions and caches are kept in memory (single instance only)")
	return NewMemoryStore()
}
