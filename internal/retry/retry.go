// Package retry schedules repeated checks of an asynchronous operation at a
// fixed interval, bounded by an overall timeout and a cancellation context.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/sumologic-mcp/internal/logging"
)

// ErrTimeout is returned by Every when the overall timeout elapses before
// the check function reports done.
var ErrTimeout = errors.New("retry: overall timeout elapsed")

// PollConfig configures a polling schedule
type PollConfig struct {
	Interval time.Duration // Delay between the end of one check and the start of the next
	Timeout  time.Duration // Overall bound; zero means no bound besides ctx
}

// PollResult contains information about a finished schedule
type PollResult struct {
	Attempts      int           `json:"attempts"`
	Done          bool          `json:"done"`
	TotalDuration time.Duration `json:"totalDuration"`
	LastError     error         `json:"lastError,omitempty"`
}

// CheckFunc performs one check. Returning done=true or a non-nil error ends the schedule.
type CheckFunc func(ctx context.Context, attempt int) (done bool, err error)

// Every runs fn immediately and then once per interval until fn reports done,
// fn returns an error, the timeout elapses (ErrTimeout) or ctx is done (ctx.Err()).
//
// The context passed to fn carries the timeout, so an in-flight check is
// abandoned when the schedule ends.
func Every(ctx context.Context, config PollConfig, fn CheckFunc) *PollResult {
	logger := logging.FromContext(ctx)
	startTime := time.Now()
	result := &PollResult{}

	checkCtx := ctx
	var overall <-chan time.Time
	if config.Timeout > 0 {
		timer := time.NewTimer(config.Timeout)
		defer timer.Stop()
		overall = timer.C

		var cancel context.CancelFunc
		checkCtx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	for attempt := 1; ; attempt++ {
		result.Attempts = attempt

		done, err := fn(checkCtx, attempt)
		if err != nil {
			// A check cut short by the overall deadline is a timeout, not a check failure.
			if ctx.Err() == nil && checkCtx.Err() != nil {
				err = ErrTimeout
			}
			result.LastError = err
			result.TotalDuration = time.Since(startTime)
			return result
		}
		if done {
			result.Done = true
			result.TotalDuration = time.Since(startTime)
			return result
		}

		logger.WithFields(map[string]interface{}{
			"attempt":  attempt,
			"interval": config.Interval,
		}).Debug("Check not done, waiting for next poll")

		wait := time.NewTimer(config.Interval)
		select {
		case <-wait.C:
		case <-overall:
			wait.Stop()
			result.LastError = ErrTimeout
			result.TotalDuration = time.Since(startTime)
			return result
		case <-ctx.Done():
			wait.Stop()
			logger.WithError(ctx.Err()).Debug("Polling cancelled")
			result.LastError = ctx.Err()
			result.TotalDuration = time.Since(startTime)
			return result
		}
	}
}

// Err returns the error that ended the schedule, or nil if it finished done
func (r *PollResult) Err() error {
	if r.Done {
		return nil
	}
	return r.LastError
}

// IsTimeout reports whether the schedule ended on the overall timeout
func (r *PollResult) IsTimeout() bool {
	return errors.Is(r.LastError, ErrTimeout)
}
