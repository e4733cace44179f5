// Package ratelimit paces outbound requests to the search API.
//
// Two layers exist: a per-process token bucket and an optional request
// budget shared through Redis by every process using the same access id.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default budget configuration values.
const (
	DefaultRequestsPerWindow = 4               // Backend allows 4 requests per second per access key
	DefaultWindowSize        = time.Second     // 1 second fixed window
	DefaultKeyTTL            = 2 * time.Second // TTL for Redis keys (window + buffer)
)

// KeyPrefixBudget prefixes the per-window request counters.
const KeyPrefixBudget = "sumo:budget:"

var consumeScript = redis.NewScript(`
	local key = KEYS[1]
	local budget = tonumber(ARGV[1])
	local ttl = tonumber(ARGV[2])

	local used = tonumber(redis.call('GET', key) or '0')
	if used + 1 > budget then
		return {0, used}
	end

	redis.call('INCR', key)
	redis.call('EXPIRE', key, ttl)
	return {1, used + 1}
`)

// SharedBudget counts requests per access id in Redis so that concurrent
// processes stay under the backend's per-key request rate together.
type SharedBudget struct {
	redis      redis.Cmdable
	scope      string
	budget     int
	windowSize time.Duration
	keyTTL     time.Duration
}

// SharedBudgetConfig holds configuration for the shared budget.
type SharedBudgetConfig struct {
	// Redis is the client used for cross-process coordination. Required.
	Redis redis.Cmdable

	// Scope separates budgets of different access ids. Required.
	Scope string

	// RequestsPerWindow is the number of requests allowed per window. Default: 4.
	RequestsPerWindow int

	// WindowSize is the window duration. Default: 1s.
	WindowSize time.Duration

	// KeyTTL is the TTL for Redis keys. Default: 2s.
	// Should be at least WindowSize to ensure proper expiration.
	KeyTTL time.Duration
}

// BudgetUsage is a snapshot of the current window.
type BudgetUsage struct {
	Used        int
	Budget      int
	WindowStart time.Time
}

// Validate checks if the configuration is valid.
func (c *SharedBudgetConfig) Validate() error {
	if c.Redis == nil {
		return errors.New("redis client is required")
	}
	if c.Scope == "" {
		return errors.New("scope is required")
	}
	if c.RequestsPerWindow < 0 {
		return errors.New("requests per window cannot be negative")
	}
	if c.WindowSize < 0 {
		return errors.New("window size cannot be negative")
	}
	return nil
}

// NewSharedBudget creates a new shared budget with the given configuration.
func NewSharedBudget(cfg *SharedBudgetConfig) (*SharedBudget, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	budget := cfg.RequestsPerWindow
	if budget == 0 {
		budget = DefaultRequestsPerWindow
	}
	windowSize := cfg.WindowSize
	if windowSize == 0 {
		windowSize = DefaultWindowSize
	}
	keyTTL := cfg.KeyTTL
	if keyTTL == 0 {
		keyTTL = DefaultKeyTTL
	}

	return &SharedBudget{
		redis:      cfg.Redis,
		scope:      cfg.Scope,
		budget:     budget,
		windowSize: windowSize,
		keyTTL:     keyTTL,
	}, nil
}

// windowTimestamp returns the start of the current window in unix millis.
func (b *SharedBudget) windowTimestamp() int64 {
	return time.Now().Truncate(b.windowSize).UnixMilli()
}

func (b *SharedBudget) key(windowTS int64) string {
	return KeyPrefixBudget + b.scope + ":" + strconv.FormatInt(windowTS, 10)
}

// TryConsume attempts to take one request from the current window.
//
// Returns:
//   - allowed: true if the request may be sent now
//   - waitTime: suggested wait before retrying if not allowed
//   - err: a Redis failure; the caller decides whether to fail open
func (b *SharedBudget) TryConsume(ctx context.Context) (bool, time.Duration, error) {
	windowTS := b.windowTimestamp()

	ttlSeconds := int(b.keyTTL.Seconds())
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}

	result, err := consumeScript.Run(ctx, b.redis, []string{b.key(windowTS)}, b.budget, ttlSeconds).Int64Slice()
	if err != nil {
		return false, b.waitTime(windowTS), fmt.Errorf("consume shared budget: %w", err)
	}

	if result[0] != 1 {
		return false, b.waitTime(windowTS), nil
	}
	return true, 0, nil
}

// waitTime returns the time until the next window starts.
func (b *SharedBudget) waitTime(windowTS int64) time.Duration {
	windowEnd := time.UnixMilli(windowTS).Add(b.windowSize)
	wait := time.Until(windowEnd)
	if wait < 0 {
		wait = 0
	}
	return wait + time.Millisecond
}

// Usage returns the consumption of the current window.
func (b *SharedBudget) Usage(ctx context.Context) (*BudgetUsage, error) {
	windowTS := b.windowTimestamp()

	used, err := b.redis.Get(ctx, b.key(windowTS)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read shared budget: %w", err)
	}

	return &BudgetUsage{
		Used:        used,
		Budget:      b.budget,
		WindowStart: time.UnixMilli(windowTS),
	}, nil
}

// Budget returns the configured requests per window.
func (b *SharedBudget) Budget() int {
	return b.budget
}

// WindowSize returns the configured window size.
func (b *SharedBudget) WindowSize() time.Duration {
	return b.windowSize
}
