package sumologic

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sumologic-mcp/internal/logging"
	"github.com/sumologic-mcp/internal/types"
)

type collectorsResponse struct {
	Collectors []types.Collector `json:"collectors"`
}

type sourcesResponse struct {
	Sources []types.Source `json:"sources"`
}

// ListCollectors returns every collector visible to the credentials
func (c *Client) ListCollectors(ctx context.Context) ([]types.Collector, error) {
	var resp collectorsResponse
	if err := c.doJSON(ctx, "list_collectors", http.MethodGet, "/api/v1/collectors", nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Collectors == nil {
		return []types.Collector{}, nil
	}
	return resp.Collectors, nil
}

// ListSources returns the sources of one collector
func (c *Client) ListSources(ctx context.Context, collectorID int64) ([]types.Source, error) {
	var resp sourcesResponse
	path := fmt.Sprintf("/api/v1/collectors/%d/sources", collectorID)
	if err := c.doJSON(ctx, "list_sources", http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Sources == nil {
		return []types.Source{}, nil
	}
	return resp.Sources, nil
}

// ListAllSources lists collectors and then the sources of each, in collector order.
// Each source is stamped with its collector's id and name. A collector whose sources
// cannot be fetched is skipped; only a failure to list collectors is returned.
func (c *Client) ListAllSources(ctx context.Context) ([]types.Source, error) {
	collectors, err := c.ListCollectors(ctx)
	if err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx)
	all := make([]types.Source, 0)
	for _, collector := range collectors {
		sources, err := c.ListSources(ctx, collector.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.WithFields(map[string]interface{}{
				"collectorId":   collector.ID,
				"collectorName": collector.Name,
			}).WithError(err).Debug("Skipping collector whose sources could not be listed")
			continue
		}
		for _, source := range sources {
			source.CollectorID = collector.ID
			source.CollectorName = collector.Name
			all = append(all, source)
		}
	}
	return all, nil
}
