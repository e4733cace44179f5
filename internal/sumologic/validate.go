package sumologic

import (
	"context"
	"net/http"

	apperrors "github.com/sumologic-mcp/internal/errors"
	"github.com/sumologic-mcp/internal/logging"
	"github.com/sumologic-mcp/internal/types"
)

const (
	msgValidQuery   = "Query syntax is valid"
	msgInvalidQuery = "Invalid query syntax"
)

// ValidateQuery checks a query by submitting it over the last minute and
// cancelling the job straight away. The backend has no syntax check endpoint,
// so this only catches what job creation rejects with a 400: a query that
// parses but cannot run meaningfully is still reported valid.
//
// Other creation failures (auth, network, 5xx) are returned as errors. The
// cancel is best effort; its failure is logged and ignored.
func (c *Client) ValidateQuery(ctx context.Context, query string) (*types.ValidationResult, error) {
	job, err := c.CreateSearchJob(ctx, SearchRequest{Query: query, From: "-1m", To: "now"})
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindTransport) && apperrors.StatusCode(err) == http.StatusBadRequest {
			message := backendMessage(err)
			if message == "" {
				message = msgInvalidQuery
			}
			return &types.ValidationResult{Valid: false, Message: message}, nil
		}
		return nil, err
	}

	if err := c.CancelSearchJob(ctx, job.ID); err != nil {
		logging.FromContext(ctx).WithField("jobId", job.ID).WithError(err).Warn("Failed to cancel validation search job")
	}

	return &types.ValidationResult{Valid: true, Message: msgValidQuery}, nil
}
