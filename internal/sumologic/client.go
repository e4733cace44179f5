// Package sumologic is a client for the Sumo Logic search job and collector APIs.
//
// A search runs as an asynchronous job: it is submitted, polled until the
// backend reaches a terminal state, and then its results are fetched either
// as raw messages or as aggregated records. The Client holds no per-job
// state, so separate goroutines may drive separate jobs on one Client.
package sumologic

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/sumologic-mcp/internal/config"
	apperrors "github.com/sumologic-mcp/internal/errors"
	"github.com/sumologic-mcp/internal/logging"
	"github.com/sumologic-mcp/internal/metrics"
	"github.com/sumologic-mcp/internal/observability"
	"github.com/sumologic-mcp/internal/ratelimit"
)

// Defaults used when the configuration leaves a value unset
const (
	DefaultPollInterval  = 2 * time.Second
	DefaultQueryTimeout  = 300 * time.Second
	DefaultClientTimeout = 30 * time.Second
	DefaultTimeZone      = "UTC"
)

// detailBackendMessage is the Details key holding the "message" field of a backend error body
const detailBackendMessage = "backendMessage"

// maxErrorBody bounds how much of an error response is kept
const maxErrorBody = 4096

// Client talks to one backend deployment with one set of credentials
type Client struct {
	baseURL      string
	authHeader   string
	httpClient   *http.Client
	limiter      ratelimit.Limiter
	metrics      *metrics.Metrics
	pollInterval time.Duration
	queryTimeout time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLimiter gates every outbound request
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) {
		if l != nil {
			c.limiter = l
		}
	}
}

// WithMetrics records request and job metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithPollInterval sets the delay between status checks
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithQueryTimeout bounds the total wait for one job
func WithQueryTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.queryTimeout = d
		}
	}
}

// New creates a client from backend settings. Missing credentials are a config error.
func New(cfg config.SumoConfig, opts ...Option) (*Client, error) {
	if cfg.AccessID == "" || cfg.AccessKey == "" {
		return nil, apperrors.NewConfigError("access id and access key are required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = config.DefaultEndpoint
	}

	clientTimeout := cfg.ClientTimeout
	if clientTimeout <= 0 {
		clientTimeout = DefaultClientTimeout
	}

	credentials := base64.StdEncoding.EncodeToString([]byte(cfg.AccessID + ":" + cfg.AccessKey))

	c := &Client{
		baseURL:      NormalizeEndpoint(endpoint),
		authHeader:   "Basic " + credentials,
		httpClient:   &http.Client{Timeout: clientTimeout},
		limiter:      ratelimit.Unlimited{},
		pollInterval: DefaultPollInterval,
		queryTimeout: DefaultQueryTimeout,
	}
	if cfg.PollInterval > 0 {
		c.pollInterval = cfg.PollInterval
	}
	if cfg.QueryTimeout > 0 {
		c.queryTimeout = cfg.QueryTimeout
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NormalizeEndpoint trims trailing slashes and a trailing "/api" segment,
// so both "https://api.sumologic.com" and "https://api.sumologic.com/api/"
// address the same deployment.
func NormalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	endpoint = strings.TrimSuffix(endpoint, "/api")
	return strings.TrimRight(endpoint, "/")
}

// BaseURL returns the normalized endpoint
func (c *Client) BaseURL() string {
	return c.baseURL
}

// PollInterval returns the delay between status checks
func (c *Client) PollInterval() time.Duration {
	return c.pollInterval
}

// QueryTimeout returns the overall wait bound per job
func (c *Client) QueryTimeout() time.Duration {
	return c.queryTimeout
}

// doJSON sends one request and decodes a 2xx JSON body into out (if non-nil).
// Any non-2xx status is a transport error carrying the status and backend message.
func (c *Client) doJSON(ctx context.Context, operation, method, path string, query url.Values, body, out interface{}) (err error) {
	ctx, span := observability.StartSpan(ctx, "sumologic."+operation,
		attribute.String("http.method", method),
		attribute.String("sumologic.path", path),
	)
	defer func() { observability.EndSpan(span, err) }()

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperrors.NewCallerMisuseError(operation, "request body cannot be encoded: "+err.Error())
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return apperrors.NewNetworkError(operation, err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordBackendRequest(operation, 0, time.Since(start))
		// Cancellation by the caller is not a backend failure
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return apperrors.NewNetworkError(operation, err)
	}
	defer resp.Body.Close()
	c.metrics.RecordBackendRequest(operation, resp.StatusCode, time.Since(start))
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"operation": operation,
		"method":    method,
		"path":      path,
		"status":    resp.StatusCode,
		"duration":  time.Since(start).String(),
	}).Debug("Backend request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newBackendError(operation, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewDecodeError(operation, err)
	}
	return nil
}

// newBackendError builds a transport error from a non-2xx response.
// The backend reports errors as {"status":..., "code":..., "message":...}.
func newBackendError(operation string, resp *http.Response) *apperrors.Error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	message := strings.TrimSpace(string(raw))
	parsed := json.Unmarshal(raw, &payload) == nil && payload.Message != ""
	if parsed {
		message = payload.Message
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	e := apperrors.NewHTTPError(operation, resp.StatusCode, message)
	e.Details = map[string]interface{}{}
	if parsed {
		e.Details[detailBackendMessage] = payload.Message
	}
	if payload.Code != "" {
		e.Details["code"] = payload.Code
	}
	return e
}

// backendMessage returns the "message" field of the backend error body behind err, if any
func backendMessage(err error) string {
	var e *apperrors.Error
	if !stderrors.As(err, &e) || e.Details == nil {
		return ""
	}
	msg, _ := e.Details[detailBackendMessage].(string)
	return msg
}

func jobPath(jobID string) string {
	return fmt.Sprintf("/api/v1/search/jobs/%s", url.PathEscape(jobID))
}
