package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sumologic-mcp/internal/logging"
)

// Default controller configuration values.
const (
	DefaultBaseDelay = 50 * time.Millisecond
	DefaultMaxDelay  = 2 * time.Second
)

// BudgetController blocks callers until the shared budget admits them,
// backing off exponentially while the window is exhausted.
//
// A Redis failure fails open: the request is allowed and the local
// limiter still applies.
type BudgetController struct {
	budget           *SharedBudget
	baseDelay        time.Duration
	maxDelay         time.Duration
	currentDelay     time.Duration
	consecutiveFails int
	mu               sync.Mutex
}

// BudgetControllerConfig holds configuration for the controller.
type BudgetControllerConfig struct {
	// Budget is the shared budget to draw from. Required.
	Budget *SharedBudget

	// BaseDelay is the initial delay between attempts. Default: 50ms.
	BaseDelay time.Duration

	// MaxDelay caps the delay between attempts. Default: 2s.
	MaxDelay time.Duration
}

// Validate checks if the configuration is valid.
func (c *BudgetControllerConfig) Validate() error {
	if c.Budget == nil {
		return errors.New("budget is required")
	}
	if c.BaseDelay < 0 {
		return errors.New("base delay cannot be negative")
	}
	if c.MaxDelay < 0 {
		return errors.New("max delay cannot be negative")
	}
	if c.MaxDelay > 0 && c.BaseDelay > c.MaxDelay {
		return errors.New("base delay cannot exceed max delay")
	}
	return nil
}

// NewBudgetController creates a new controller with the given configuration.
func NewBudgetController(cfg *BudgetControllerConfig) (*BudgetController, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseDelay := cfg.BaseDelay
	if baseDelay == 0 {
		baseDelay = DefaultBaseDelay
	}
	maxDelay := cfg.MaxDelay
	if maxDelay == 0 {
		maxDelay = DefaultMaxDelay
	}

	return &BudgetController{
		budget:       cfg.Budget,
		baseDelay:    baseDelay,
		maxDelay:     maxDelay,
		currentDelay: baseDelay,
	}, nil
}

// Wait blocks until one request is admitted or ctx is done.
func (c *BudgetController) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		allowed, waitTime, err := c.budget.TryConsume(ctx)
		if err != nil {
			logging.FromContext(ctx).WithError(err).Warn("Shared request budget unavailable, continuing with local pacing only")
			return nil
		}
		if allowed {
			c.RecordSuccess()
			return nil
		}

		c.RecordFailure()

		c.mu.Lock()
		delay := c.currentDelay
		c.mu.Unlock()
		if waitTime > delay {
			delay = waitTime
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RecordSuccess resets backoff.
func (c *BudgetController) RecordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFails = 0
	c.currentDelay = c.baseDelay
}

// RecordFailure doubles the backoff up to the configured maximum.
func (c *BudgetController) RecordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFails++

	newDelay := c.baseDelay
	for i := 0; i < c.consecutiveFails; i++ {
		newDelay *= 2
		if newDelay > c.maxDelay {
			newDelay = c.maxDelay
			break
		}
	}
	c.currentDelay = newDelay
}

// CurrentDelay returns the current backoff delay.
func (c *BudgetController) CurrentDelay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentDelay
}

// ConsecutiveFailures returns the number of denied attempts since the last success.
func (c *BudgetController) ConsecutiveFailures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.consecutiveFails
}
