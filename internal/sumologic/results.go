package sumologic

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	apperrors "github.com/sumologic-mcp/internal/errors"
	"github.com/sumologic-mcp/internal/types"
)

// MaxPageSize is the largest page the backend serves per request
const MaxPageSize = 10000

type recordsResponse struct {
	Fields     []types.Field    `json:"fields"`
	Records    []map[string]any `json:"records"`
	TotalCount *int64           `json:"totalCount"`
}

type messagesResponse struct {
	Messages   []map[string]any `json:"messages"`
	TotalCount *int64           `json:"totalCount"`
}

// GetSearchJobRecords fetches one page of aggregated records for a job that is
// DONE GATHERING RESULTS. Any other state is refused before a request is sent.
func (c *Client) GetSearchJobRecords(ctx context.Context, job *types.SearchJob, offset, limit int) (*types.SearchResult, error) {
	const op = "get search job records"
	if err := checkFetchable(op, job, offset, limit); err != nil {
		return nil, err
	}

	var resp recordsResponse
	path := jobPath(job.ID) + "/records"
	if err := c.doJSON(ctx, "get_records", http.MethodGet, path, pageQuery(offset, limit), nil, &resp); err != nil {
		return nil, err
	}

	rows := unwrapRows(resp.Records)
	fields := resp.Fields
	if fields == nil {
		fields = []types.Field{}
	}
	return &types.SearchResult{
		Kind:       types.ResultRecords,
		Rows:       rows,
		Fields:     fields,
		TotalCount: totalCount(resp.TotalCount, job.RecordCount, len(rows)),
		JobID:      job.ID,
	}, nil
}

// GetSearchJobMessages fetches one page of raw messages for a job that is
// DONE GATHERING RESULTS. Messages carry no field descriptors.
func (c *Client) GetSearchJobMessages(ctx context.Context, job *types.SearchJob, offset, limit int) (*types.SearchResult, error) {
	const op = "get search job messages"
	if err := checkFetchable(op, job, offset, limit); err != nil {
		return nil, err
	}

	var resp messagesResponse
	path := jobPath(job.ID) + "/messages"
	if err := c.doJSON(ctx, "get_messages", http.MethodGet, path, pageQuery(offset, limit), nil, &resp); err != nil {
		return nil, err
	}

	rows := unwrapRows(resp.Messages)
	return &types.SearchResult{
		Kind:       types.ResultMessages,
		Rows:       rows,
		TotalCount: totalCount(resp.TotalCount, job.MessageCount, len(rows)),
		JobID:      job.ID,
	}, nil
}

// ExecuteQuery submits req, waits for completion and returns the first page of records
func (c *Client) ExecuteQuery(ctx context.Context, req SearchRequest, limit int) (*types.SearchResult, error) {
	job, err := c.runToCompletion(ctx, "execute query", req, limit)
	if err != nil {
		return nil, err
	}
	return c.GetSearchJobRecords(ctx, job, 0, limit)
}

// ExecuteMessageQuery submits req, waits for completion and returns the first page of messages
func (c *Client) ExecuteMessageQuery(ctx context.Context, req SearchRequest, limit int) (*types.SearchResult, error) {
	job, err := c.runToCompletion(ctx, "execute message query", req, limit)
	if err != nil {
		return nil, err
	}
	return c.GetSearchJobMessages(ctx, job, 0, limit)
}

// runToCompletion validates the page size up front so a bad limit never creates a job
func (c *Client) runToCompletion(ctx context.Context, op string, req SearchRequest, limit int) (*types.SearchJob, error) {
	if err := checkPage(op, 0, limit); err != nil {
		return nil, err
	}

	created, err := c.CreateSearchJob(ctx, req)
	if err != nil {
		return nil, err
	}

	job, err := c.WaitForJobCompletion(ctx, created.ID)
	if err != nil {
		return nil, err
	}
	if !job.State.IsSuccess() {
		return nil, apperrors.NewNotReadyError(op, job.ID, job.State.String())
	}

	job.Query, job.From, job.To = created.Query, created.From, created.To
	return job, nil
}

func checkFetchable(op string, job *types.SearchJob, offset, limit int) error {
	if job == nil || job.ID == "" {
		return apperrors.NewCallerMisuseError(op, "a search job is required")
	}
	if !job.State.IsSuccess() {
		return apperrors.NewNotReadyError(op, job.ID, job.State.String())
	}
	return checkPage(op, offset, limit)
}

func checkPage(op string, offset, limit int) error {
	if offset < 0 {
		return apperrors.NewCallerMisuseError(op, fmt.Sprintf("offset must not be negative, got %d", offset))
	}
	if limit < 1 || limit > MaxPageSize {
		return apperrors.NewCallerMisuseError(op, fmt.Sprintf("limit must be between 1 and %d, got %d", MaxPageSize, limit))
	}
	return nil
}

func pageQuery(offset, limit int) url.Values {
	return url.Values{
		"offset": []string{strconv.Itoa(offset)},
		"limit":  []string{strconv.Itoa(limit)},
	}
}

// unwrapRows strips the {"map": {...}} envelope the backend wraps around each row
func unwrapRows(raw []map[string]any) []map[string]any {
	rows := make([]map[string]any, 0, len(raw))
	for _, row := range raw {
		if inner, ok := row["map"].(map[string]any); ok && len(row) == 1 {
			rows = append(rows, inner)
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// totalCount prefers the count in the page body, then the count from the job
// status, and never reports fewer than the rows actually returned
func totalCount(reported, fromStatus *int64, rows int) int64 {
	var total int64
	switch {
	case reported != nil:
		total = *reported
	case fromStatus != nil:
		total = *fromStatus
	}
	if total < int64(rows) {
		total = int64(rows)
	}
	return total
}
