package sumologic

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/sumologic-mcp/internal/errors"
	"github.com/sumologic-mcp/internal/logging"
	"github.com/sumologic-mcp/internal/metrics"
	"github.com/sumologic-mcp/internal/retry"
	"github.com/sumologic-mcp/internal/timerange"
	"github.com/sumologic-mcp/internal/types"
)

// SearchRequest describes one search job.
// From and To accept relative expressions ("-15m", "-1h", "-7d", "now") or absolute timestamps.
type SearchRequest struct {
	Query    string
	From     string // Default "-1h"
	To       string // Default "now"
	TimeZone string // Default "UTC"
}

func (r SearchRequest) withDefaults() SearchRequest {
	if r.From == "" {
		r.From = "-1h"
	}
	if r.To == "" {
		r.To = timerange.Now
	}
	if r.TimeZone == "" {
		r.TimeZone = DefaultTimeZone
	}
	return r
}

type createJobRequest struct {
	Query    string `json:"query"`
	From     string `json:"from"`
	To       string `json:"to"`
	TimeZone string `json:"timeZone"`
}

type createJobResponse struct {
	ID string `json:"id"`
}

type jobStatusResponse struct {
	State           string   `json:"state"`
	MessageCount    *int64   `json:"messageCount"`
	RecordCount     *int64   `json:"recordCount"`
	PendingErrors   []string `json:"pendingErrors"`
	PendingWarnings []string `json:"pendingWarnings"`
}

// CreateSearchJob submits a search job. Both bounds are resolved against one
// instant before submission. The returned job is NOT STARTED whatever the
// backend body says; only a status check observes progress.
func (c *Client) CreateSearchJob(ctx context.Context, req SearchRequest) (*types.SearchJob, error) {
	const op = "create search job"

	if strings.TrimSpace(req.Query) == "" {
		return nil, apperrors.NewCallerMisuseError(op, "query must not be empty")
	}
	req = req.withDefaults()

	now := time.Now()
	payload := createJobRequest{
		Query:    req.Query,
		From:     timerange.Normalize(req.From, now),
		To:       timerange.Normalize(req.To, now),
		TimeZone: req.TimeZone,
	}

	var resp createJobResponse
	if err := c.doJSON(ctx, "create_job", http.MethodPost, "/api/v1/search/jobs", nil, payload, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, apperrors.NewDecodeError(op, errors.New("response carries no job id"))
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"jobId": resp.ID,
		"from":  payload.From,
		"to":    payload.To,
	}).Info("Search job created")

	return &types.SearchJob{
		ID:    resp.ID,
		State: types.StateNotStarted,
		Query: req.Query,
		From:  req.From,
		To:    req.To,
	}, nil
}

// GetSearchJobStatus fetches the current state and counts of a job.
// The status body carries no query or time range, so those fields are left empty.
func (c *Client) GetSearchJobStatus(ctx context.Context, jobID string) (*types.SearchJob, error) {
	if jobID == "" {
		return nil, apperrors.NewCallerMisuseError("get search job status", "job id must not be empty")
	}

	var resp jobStatusResponse
	if err := c.doJSON(ctx, "get_job_status", http.MethodGet, jobPath(jobID), nil, nil, &resp); err != nil {
		return nil, err
	}

	return &types.SearchJob{
		ID:              jobID,
		State:           types.ParseJobState(resp.State),
		MessageCount:    resp.MessageCount,
		RecordCount:     resp.RecordCount,
		PendingErrors:   resp.PendingErrors,
		PendingWarnings: resp.PendingWarnings,
	}, nil
}

// WaitForJobCompletion polls a job until it reaches a terminal state.
//
// The first check happens immediately, later checks after each poll interval.
// DONE GATHERING RESULTS, CANCELLED and FORCE PAUSED end the wait without error;
// callers inspect the returned state. FAILED returns a job failed error. When the
// query timeout elapses a job timeout error is returned and the job is left running
// at the backend. Cancelling ctx returns ctx's error and likewise abandons the job.
func (c *Client) WaitForJobCompletion(ctx context.Context, jobID string) (*types.SearchJob, error) {
	logger := logging.FromContext(ctx).WithField("jobId", jobID)
	start := time.Now()

	var last *types.SearchJob
	result := retry.Every(ctx, retry.PollConfig{Interval: c.pollInterval, Timeout: c.queryTimeout},
		func(ctx context.Context, attempt int) (bool, error) {
			c.metrics.RecordJobPoll()

			job, err := c.GetSearchJobStatus(ctx, jobID)
			if err != nil {
				return false, err
			}
			last = job

			logger.WithFields(map[string]interface{}{
				"attempt": attempt,
				"state":   job.State.String(),
			}).Debug("Polled search job")

			if job.State == types.StateFailed {
				return false, apperrors.NewJobFailedError(jobID)
			}
			return job.State.IsTerminal(), nil
		})

	waited := time.Since(start)
	err := result.Err()
	switch {
	case err == nil:
		c.metrics.RecordJobOutcome(outcomeFor(last.State), waited)
		logger.WithFields(map[string]interface{}{
			"state":    last.State.String(),
			"attempts": result.Attempts,
		}).Info("Search job reached terminal state")
		return last, nil
	case result.IsTimeout():
		c.metrics.RecordJobOutcome(metrics.JobOutcomeTimeout, waited)
		logger.WithField("timeout", c.queryTimeout.String()).Warn("Search job timed out; leaving it running at the backend")
		return nil, apperrors.NewJobTimeoutError(jobID, c.queryTimeout)
	case apperrors.IsKind(err, apperrors.KindJobFailed):
		c.metrics.RecordJobOutcome(metrics.JobOutcomeFailed, waited)
		logger.Warn("Search job failed")
		return nil, err
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		c.metrics.RecordJobOutcome(metrics.JobOutcomeAbandoned, waited)
		logger.WithError(err).Info("Stopped waiting for search job")
		return nil, err
	default:
		return nil, err
	}
}

// CancelSearchJob deletes a job at the backend
func (c *Client) CancelSearchJob(ctx context.Context, jobID string) error {
	if jobID == "" {
		return apperrors.NewCallerMisuseError("cancel search job", "job id must not be empty")
	}
	return c.doJSON(ctx, "cancel_job", http.MethodDelete, jobPath(jobID), nil, nil, nil)
}

func outcomeFor(state types.JobState) metrics.JobOutcome {
	switch state {
	case types.StateCancelled:
		return metrics.JobOutcomeCancelled
	case types.StateForcePaused:
		return metrics.JobOutcomeForcePaused
	default:
		return metrics.JobOutcomeDone
	}
}
