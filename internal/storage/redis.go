// Package storage manages connections to the external stores the bridge coordinates through.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sumologic-mcp/internal/config"
)

// RedisConnectTimeout bounds the initial ping
const RedisConnectTimeout = 5 * time.Second

// RedisConn wraps the Redis client
type RedisConn struct {
	client *redis.Client
}

// NewRedisConn creates a new Redis connection and checks it is reachable
func NewRedisConn(cfg *config.RedisConfig) (*RedisConn, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 1,
		DialTimeout:  RedisConnectTimeout,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolTimeout:  2 * time.Second,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), RedisConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisConn{client: client}, nil
}

// Close closes the Redis connection
func (r *RedisConn) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Client returns the underlying Redis client
func (r *RedisConn) Client() *redis.Client {
	return r.client
}

// Ping checks if Redis is reachable
func (r *RedisConn) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
