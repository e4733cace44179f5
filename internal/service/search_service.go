// Package service implements the search tools exposed to model clients.
// Each operation takes validated arguments and renders a human-readable report.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sumologic-mcp/internal/logging"
	"github.com/sumologic-mcp/internal/sumologic"
	"github.com/sumologic-mcp/internal/types"
)

// Tool defaults and limits
const (
	DefaultFromTime       = "-1h"
	DefaultToTime         = "now"
	DefaultQueryLimit     = 1000
	DefaultMetricsLimit   = 100
	DefaultSampleLimit    = 10
	DefaultVMwareCategory = "otel/vmware"
	vmwareMetricsLimit    = 50
	vmwareSampleLimit     = 5
	vmwareAttributePrefix = "vcenter."
	metricsWindow         = "-24h"
	sampleWindow          = "-1h"
	maxFieldsShown        = 10
	maxRowsShown          = 5
	separator             = "=================================================="
)

// SearchClient is the subset of the search API client the tools need
type SearchClient interface {
	ExecuteQuery(ctx context.Context, req sumologic.SearchRequest, limit int) (*types.SearchResult, error)
	ExecuteMessageQuery(ctx context.Context, req sumologic.SearchRequest, limit int) (*types.SearchResult, error)
	ListAllSources(ctx context.Context) ([]types.Source, error)
	ValidateQuery(ctx context.Context, query string) (*types.ValidationResult, error)
}

// SearchService runs the tool operations against a SearchClient
type SearchService struct {
	client    SearchClient
	validator *Validator
}

// NewSearchService creates a new search service
func NewSearchService(client SearchClient) *SearchService {
	return &SearchService{
		client:    client,
		validator: NewValidator(),
	}
}

// ExecuteQueryArgs are the arguments of execute_query
type ExecuteQueryArgs struct {
	Query    string `json:"query" jsonschema:"The Sumo Logic search query to execute" validate:"required"`
	FromTime string `json:"from_time,omitempty" jsonschema:"Start time for the search (e.g. '-1h', '-24h', '2023-01-01T00:00:00'). Default -1h"`
	ToTime   string `json:"to_time,omitempty" jsonschema:"End time for the search (e.g. 'now', '2023-01-01T23:59:59'). Default now"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum number of results to return, 1 to 10000. Default 1000" validate:"min=1,max=10000"`
}

// ListSourceCategoriesArgs are the arguments of list_source_categories
type ListSourceCategoriesArgs struct {
	Pattern string `json:"pattern,omitempty" jsonschema:"Optional case-insensitive substring to filter source categories (e.g. 'otel', 'vmware')"`
}

// ListMetricsArgs are the arguments of list_metrics
type ListMetricsArgs struct {
	SourceCategory string `json:"source_category" jsonschema:"Source category to analyze (e.g. 'otel/vmware')" validate:"required"`
	Limit          int    `json:"limit,omitempty" jsonschema:"Maximum number of metrics to return, 1 to 1000. Default 100" validate:"min=1,max=1000"`
}

// ValidateQueryArgs are the arguments of validate_query_syntax
type ValidateQueryArgs struct {
	Query string `json:"query" jsonschema:"The Sumo Logic query to validate" validate:"required"`
}

// SampleDataArgs are the arguments of get_sample_data
type SampleDataArgs struct {
	SourceCategory string `json:"source_category" jsonschema:"Source category to sample (e.g. 'otel/vmware')" validate:"required"`
	Limit          int    `json:"limit,omitempty" jsonschema:"Number of sample records to return, 1 to 100. Default 10" validate:"min=1,max=100"`
}

// ExploreVMwareArgs are the arguments of explore_vmware_metrics
type ExploreVMwareArgs struct {
	SourceCategory string `json:"source_category,omitempty" jsonschema:"VMware source category. Default otel/vmware"`
}

// ExecuteQuery runs a query and renders the first page of results.
// Aggregating queries are read as records, everything else as raw messages.
func (s *SearchService) ExecuteQuery(ctx context.Context, args ExecuteQueryArgs) (string, error) {
	if args.FromTime == "" {
		args.FromTime = DefaultFromTime
	}
	if args.ToTime == "" {
		args.ToTime = DefaultToTime
	}
	if args.Limit == 0 {
		args.Limit = DefaultQueryLimit
	}
	if err := s.validator.Validate("execute_query", args); err != nil {
		return "", err
	}

	result, err := s.run(ctx, sumologic.SearchRequest{Query: args.Query, From: args.FromTime, To: args.ToTime}, args.Limit)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n", args.Query)
	fmt.Fprintf(&b, "Time range: %s to %s\n", args.FromTime, args.ToTime)
	fmt.Fprintf(&b, "Result type: %s\n", result.Kind)
	fmt.Fprintf(&b, "Total results: %d\n", result.TotalCount)
	fmt.Fprintf(&b, "Returned: %d\n", len(result.Rows))
	b.WriteString(separator + "\n")

	if len(result.Fields) > 0 {
		b.WriteString("Fields:\n")
		for i, field := range result.Fields {
			if i == maxFieldsShown {
				fmt.Fprintf(&b, "  ... and %d more fields\n", len(result.Fields)-maxFieldsShown)
				break
			}
			fmt.Fprintf(&b, "  - %s: %s\n", field.Name, field.FieldType)
		}
		b.WriteString("\n")
	}

	if len(result.Rows) > 0 {
		label := rowLabel(result.Kind)
		fmt.Fprintf(&b, "Sample %ss:\n", label)
		for i, row := range result.Rows {
			if i == maxRowsShown {
				fmt.Fprintf(&b, "... and %d more %ss\n", len(result.Rows)-maxRowsShown, strings.ToLower(label))
				break
			}
			fmt.Fprintf(&b, "%s %d:\n%s\n\n", label, i+1, renderJSON(row))
		}
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

// ListSourceCategories lists the unique source categories across all collectors
func (s *SearchService) ListSourceCategories(ctx context.Context, args ListSourceCategoriesArgs) (string, error) {
	sources, err := s.client.ListAllSources(ctx)
	if err != nil {
		return "", err
	}

	pattern := strings.ToLower(args.Pattern)
	unique := make(map[string]struct{})
	for _, source := range sources {
		if source.Category == "" {
			continue
		}
		if pattern != "" && !strings.Contains(strings.ToLower(source.Category), pattern) {
			continue
		}
		unique[source.Category] = struct{}{}
	}

	categories := make([]string, 0, len(unique))
	for category := range unique {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d source categories\n", len(categories))
	if args.Pattern != "" {
		fmt.Fprintf(&b, "Filtered by pattern: '%s'\n", args.Pattern)
	}
	b.WriteString(separator + "\n")
	for _, category := range categories {
		fmt.Fprintf(&b, "  - %s\n", category)
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

// ListMetrics lists distinct metric names seen in a source category over the last day
func (s *SearchService) ListMetrics(ctx context.Context, args ListMetricsArgs) (string, error) {
	if args.Limit == 0 {
		args.Limit = DefaultMetricsLimit
	}
	if err := s.validator.Validate("list_metrics", args); err != nil {
		return "", err
	}

	query := fmt.Sprintf(`_sourceCategory="%s" | distinct metric | limit %d`, args.SourceCategory, args.Limit)
	result, err := s.client.ExecuteQuery(ctx, sumologic.SearchRequest{Query: query, From: metricsWindow, To: DefaultToTime}, args.Limit)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Metrics in source category: %s\n", args.SourceCategory)
	fmt.Fprintf(&b, "Found %d unique metrics\n", len(result.Rows))
	b.WriteString(separator + "\n")
	for _, row := range result.Rows {
		fmt.Fprintf(&b, "  - %s\n", metricName(row))
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

// ValidateQuerySyntax reports whether the backend accepts a query
func (s *SearchService) ValidateQuerySyntax(ctx context.Context, args ValidateQueryArgs) (string, error) {
	if err := s.validator.Validate("validate_query_syntax", args); err != nil {
		return "", err
	}

	result, err := s.client.ValidateQuery(ctx, args.Query)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n", args.Query)
	b.WriteString(separator + "\n")
	if result.Valid {
		b.WriteString("✅ Query syntax is valid")
	} else {
		b.WriteString("❌ Query syntax is invalid\n")
		fmt.Fprintf(&b, "Error: %s", result.Message)
	}
	return b.String(), nil
}

// GetSampleData returns recent raw messages from a source category
func (s *SearchService) GetSampleData(ctx context.Context, args SampleDataArgs) (string, error) {
	if args.Limit == 0 {
		args.Limit = DefaultSampleLimit
	}
	if err := s.validator.Validate("get_sample_data", args); err != nil {
		return "", err
	}

	query := fmt.Sprintf(`_sourceCategory="%s" | limit %d`, args.SourceCategory, args.Limit)
	result, err := s.client.ExecuteMessageQuery(ctx, sumologic.SearchRequest{Query: query, From: sampleWindow, To: DefaultToTime}, args.Limit)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Sample data from: %s\n", args.SourceCategory)
	fmt.Fprintf(&b, "Showing %d records\n", len(result.Rows))
	b.WriteString(separator + "\n")

	if len(result.Fields) > 0 {
		b.WriteString("Available Fields:\n")
		for _, field := range result.Fields {
			fmt.Fprintf(&b, "  - %s: %s\n", field.Name, field.FieldType)
		}
		b.WriteString("\n")
	}

	for i, row := range result.Rows {
		fmt.Fprintf(&b, "Record %d:\n%s\n\n", i+1, renderJSON(row))
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

// ExploreVMwareMetrics lists metrics of a VMware source category and shows the
// vCenter resource attributes of one sample of the first metric
func (s *SearchService) ExploreVMwareMetrics(ctx context.Context, args ExploreVMwareArgs) (string, error) {
	if args.SourceCategory == "" {
		args.SourceCategory = DefaultVMwareCategory
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Exploring VMware metrics in: %s\n", args.SourceCategory)
	b.WriteString(separator + "\n")

	metricsQuery := fmt.Sprintf(`_sourceCategory="%s" | distinct metric | limit %d`, args.SourceCategory, vmwareMetricsLimit)
	metrics, err := s.client.ExecuteQuery(ctx, sumologic.SearchRequest{Query: metricsQuery, From: metricsWindow, To: DefaultToTime}, vmwareMetricsLimit)
	if err != nil {
		return "", err
	}

	fmt.Fprintf(&b, "Available Metrics (%d):\n", len(metrics.Rows))
	for _, row := range metrics.Rows {
		fmt.Fprintf(&b, "  - %s\n", metricName(row))
	}
	b.WriteString("\n")

	if len(metrics.Rows) == 0 {
		return strings.TrimRight(b.String(), "\n"), nil
	}
	sampleMetric, _ := metrics.Rows[0]["metric"].(string)
	if sampleMetric == "" {
		return strings.TrimRight(b.String(), "\n"), nil
	}

	sampleQuery := fmt.Sprintf(`_sourceCategory="%s" metric="%s" | limit %d`, args.SourceCategory, sampleMetric, vmwareSampleLimit)
	sample, err := s.run(ctx, sumologic.SearchRequest{Query: sampleQuery, From: sampleWindow, To: DefaultToTime}, vmwareSampleLimit)
	if err != nil {
		return "", err
	}
	if len(sample.Rows) == 0 {
		return strings.TrimRight(b.String(), "\n"), nil
	}

	record := sample.Rows[0]
	b.WriteString("Sample Record with Attributes:\n")

	attrs := make([]string, 0)
	for key := range record {
		if strings.HasPrefix(key, vmwareAttributePrefix) {
			attrs = append(attrs, key)
		}
	}
	sort.Strings(attrs)
	if len(attrs) > 0 {
		b.WriteString("VMware Resource Attributes:\n")
		for _, key := range attrs {
			fmt.Fprintf(&b, "  - %s: %v\n", key, record[key])
		}
	}

	b.WriteString("\nFull Sample Record:\n")
	b.WriteString(renderJSON(record))
	return b.String(), nil
}

// run executes a query, reading records for aggregating queries and messages otherwise
func (s *SearchService) run(ctx context.Context, req sumologic.SearchRequest, limit int) (*types.SearchResult, error) {
	aggregate := IsAggregateQuery(req.Query)
	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"aggregate": aggregate,
		"limit":     limit,
	}).Debug("Routing query")

	if aggregate {
		return s.client.ExecuteQuery(ctx, req, limit)
	}
	return s.client.ExecuteMessageQuery(ctx, req, limit)
}

func rowLabel(kind types.ResultKind) string {
	if kind == types.ResultMessages {
		return "Message"
	}
	return "Record"
}

func metricName(row map[string]any) string {
	if metric, ok := row["metric"]; ok && metric != nil {
		return fmt.Sprint(metric)
	}
	return "unknown"
}

func renderJSON(v interface{}) string {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(out)
}
