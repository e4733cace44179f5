package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sumologic-mcp/internal/config"
	"github.com/sumologic-mcp/internal/logging"
	"github.com/sumologic-mcp/internal/mcpserver"
	"github.com/sumologic-mcp/internal/metrics"
	"github.com/sumologic-mcp/internal/service"
)

// Helper function to create test server
func createTestServer(mcpHandler http.Handler, rps int, opts ...Option) *Server {
	cfg := &config.ServerConfig{
		Host:           "localhost",
		Port:           "8080",
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		RequestsPerSec: rps,
	}
	if mcpHandler == nil {
		mcpHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		})
	}
	return NewServer(cfg, mcpHandler, opts...)
}

// TestHealthEndpoint tests the health check endpoint
func TestHealthEndpoint(t *testing.T) {
	server := createTestServer(nil, 100, WithVersion("1.2.3"))

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got '%s'", response["status"])
	}
	if response["version"] != "1.2.3" {
		t.Errorf("Expected version '1.2.3', got '%s'", response["version"])
	}
}

// TestRequestID tests that every response carries a request id
func TestRequestID(t *testing.T) {
	server := createTestServer(nil, 100)

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("Expected a generated request id")
	}

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("Expected caller request id to be kept, got '%s'", got)
	}
}

// TestMCPRoute tests that /mcp reaches the MCP handler with a request-scoped logger
func TestMCPRoute(t *testing.T) {
	var sawLogger bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawLogger = logging.FromContext(r.Context()) != logging.GetGlobalLogger()
		w.WriteHeader(http.StatusAccepted)
	})
	server := createTestServer(handler, 100)

	req := httptest.NewRequest("POST", MCPPath, strings.NewReader("{}"))
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Errorf("Expected status 202, got %d", w.Code)
	}
	if !sawLogger {
		t.Error("Expected a request-scoped logger in the context")
	}
}

// TestCORSHeaders tests that CORS headers are properly set
func TestCORSHeaders(t *testing.T) {
	server := createTestServer(nil, 100)

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("Expected CORS headers to be set")
	}
}

// TestCORSPreflight tests that preflight requests to /mcp are answered without reaching the handler
func TestCORSPreflight(t *testing.T) {
	called := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	server := createTestServer(handler, 100)

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest("OPTIONS", MCPPath, nil))

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	if called {
		t.Error("Expected preflight not to reach the MCP handler")
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Headers"), "Mcp-Session-Id") {
		t.Error("Expected Mcp-Session-Id to be an allowed header")
	}
}

// TestRateLimit tests that a client is throttled after its burst
func TestRateLimit(t *testing.T) {
	server := createTestServer(nil, 1)

	var limited int
	for i := 0; i < 15; i++ {
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		w := httptest.NewRecorder()
		server.Handler().ServeHTTP(w, req)
		if w.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited == 0 {
		t.Error("Expected some requests to be rate limited")
	}

	// A different client has its own budget
	req := httptest.NewRequest("GET", "/health", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for another client, got %d", w.Code)
	}
}

// TestRecovery tests that a panicking handler produces a JSON 500
func TestRecovery(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	server := createTestServer(handler, 100)

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest("POST", MCPPath, nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}

	var errorResp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&errorResp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if errorResp.Error.Code != ErrCodeInternalError {
		t.Errorf("Expected code %s, got %s", ErrCodeInternalError, errorResp.Error.Code)
	}
}

// TestNotFound tests the JSON body of unknown routes
func TestNotFound(t *testing.T) {
	server := createTestServer(nil, 100)

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/nope", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	var errorResp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&errorResp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if errorResp.Error.Code != ErrCodeNotFound {
		t.Errorf("Expected code %s, got %s", ErrCodeNotFound, errorResp.Error.Code)
	}
}

// TestMetricsEndpoint tests that /metrics serves the configured registry
func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	m.RecordToolCall("execute_query", nil)

	server := createTestServer(nil, 100, WithGatherer(reg))

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body, _ := io.ReadAll(w.Body)
	if !strings.Contains(string(body), metrics.MetricsPrefix+"tool_calls_total") {
		t.Error("Expected tool call counter in metrics output")
	}
}

type echoTools struct{}

func (echoTools) ExecuteQuery(ctx context.Context, args service.ExecuteQueryArgs) (string, error) {
	return "ran " + args.Query, nil
}

func (echoTools) ListSourceCategories(ctx context.Context, args service.ListSourceCategoriesArgs) (string, error) {
	return "", nil
}

func (echoTools) ListMetrics(ctx context.Context, args service.ListMetricsArgs) (string, error) {
	return "", nil
}

func (echoTools) ValidateQuerySyntax(ctx context.Context, args service.ValidateQueryArgs) (string, error) {
	return "", nil
}

func (echoTools) GetSampleData(ctx context.Context, args service.SampleDataArgs) (string, error) {
	return "", nil
}

func (echoTools) ExploreVMwareMetrics(ctx context.Context, args service.ExploreVMwareArgs) (string, error) {
	return "", nil
}

// TestStreamableTransport tests a full tool call over HTTP
func TestStreamableTransport(t *testing.T) {
	mcpSrv := mcpserver.New(echoTools{}, "test")
	server := createTestServer(mcpSrv.HTTPHandler(), 100)

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: ts.URL + MCPPath}, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "execute_query",
		Arguments: map[string]any{"query": "error"},
	})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if res.IsError || len(res.Content) != 1 {
		t.Fatalf("Unexpected result: %+v", res)
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok || text.Text != "ran error" {
		t.Errorf("Expected 'ran error', got %+v", res.Content[0])
	}
}
