// Package mcpserver exposes the search tools over the Model Context Protocol.
package mcpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	apperrors "github.com/sumologic-mcp/internal/errors"
	"github.com/sumologic-mcp/internal/logging"
	"github.com/sumologic-mcp/internal/metrics"
	"github.com/sumologic-mcp/internal/observability"
	"github.com/sumologic-mcp/internal/service"
)

const (
	// ServerName is reported to clients during initialization
	ServerName = "sumologic-mcp"
)

// SearchTools is the tool surface served to clients
type SearchTools interface {
	ExecuteQuery(ctx context.Context, args service.ExecuteQueryArgs) (string, error)
	ListSourceCategories(ctx context.Context, args service.ListSourceCategoriesArgs) (string, error)
	ListMetrics(ctx context.Context, args service.ListMetricsArgs) (string, error)
	ValidateQuerySyntax(ctx context.Context, args service.ValidateQueryArgs) (string, error)
	GetSampleData(ctx context.Context, args service.SampleDataArgs) (string, error)
	ExploreVMwareMetrics(ctx context.Context, args service.ExploreVMwareArgs) (string, error)
}

// Server wraps an MCP server with the search tools registered
type Server struct {
	server  *mcp.Server
	tools   SearchTools
	metrics *metrics.Metrics
	logger  *logging.Logger
}

// Option configures a Server
type Option func(*Server)

// WithMetrics records a counter per tool call
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the base logger for tool calls
func WithLogger(logger *logging.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates an MCP server and registers every tool
func New(tools SearchTools, version string, opts ...Option) *Server {
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    ServerName,
			Version: version,
		}, nil),
		tools: tools,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.GetGlobalLogger()
	}

	s.registerTools()
	return s
}

// MCP returns the underlying SDK server
func (s *Server) MCP() *mcp.Server {
	return s.server
}

// RunStdio serves a single client over stdin/stdout until ctx is done or the client disconnects
func (s *Server) RunStdio(ctx context.Context) error {
	s.logger.Info("Serving MCP over stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler returns a streamable HTTP handler backed by this server
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

func (s *Server) registerTools() {
	readOnly := &mcp.ToolAnnotations{ReadOnlyHint: true}

	addTextTool(s, &mcp.Tool{
		Name:        "execute_query",
		Description: "Execute a Sumo Logic search query and return results. Aggregating queries return records, other queries return raw messages.",
		Annotations: readOnly,
	}, s.tools.ExecuteQuery)

	addTextTool(s, &mcp.Tool{
		Name:        "list_source_categories",
		Description: "List all available source categories in Sumo Logic, optionally filtered by a pattern",
		Annotations: readOnly,
	}, s.tools.ListSourceCategories)

	addTextTool(s, &mcp.Tool{
		Name:        "list_metrics",
		Description: "List the distinct metric names seen in a source category over the last 24 hours",
		Annotations: readOnly,
	}, s.tools.ListMetrics)

	addTextTool(s, &mcp.Tool{
		Name:        "validate_query_syntax",
		Description: "Validate Sumo Logic query syntax without waiting for results",
		Annotations: readOnly,
	}, s.tools.ValidateQuerySyntax)

	addTextTool(s, &mcp.Tool{
		Name:        "get_sample_data",
		Description: "Get recent raw log messages from a source category to understand its data structure",
		Annotations: readOnly,
	}, s.tools.GetSampleData)

	addTextTool(s, &mcp.Tool{
		Name:        "explore_vmware_metrics",
		Description: "Explore VMware metrics and their vCenter resource attributes",
		Annotations: readOnly,
	}, s.tools.ExploreVMwareMetrics)
}

// addTextTool registers a tool whose result is plain text. Failures are
// reported to the client as tool errors, not protocol errors.
func addTextTool[In any](s *Server, tool *mcp.Tool, run func(context.Context, In) (string, error)) {
	name := tool.Name
	mcp.AddTool(s.server, tool, func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, any, error) {
		logger := s.logger.WithFields(map[string]interface{}{
			"tool":    name,
			"call_id": uuid.NewString(),
		})
		ctx = logging.WithLogger(ctx, logger)

		ctx, span := observability.StartSpan(ctx, "tool."+name)
		start := time.Now()
		text, err := run(ctx, in)
		observability.EndSpan(span, err)
		s.metrics.RecordToolCall(name, err)

		if err != nil {
			if apperrors.IsUserError(err) {
				logger.WithError(err).Warn("Tool call rejected")
			} else {
				logger.WithError(err).Error("Tool call failed")
			}
			return errorResult(err), nil, nil
		}
		logger.WithField("duration_ms", time.Since(start).Milliseconds()).Info("Tool call completed")
		return textResult(text), nil, nil
	})
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "Error: " + err.Error()}},
		IsError: true,
	}
}
