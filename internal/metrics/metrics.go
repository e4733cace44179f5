package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const MetricsPrefix = "sumologic_mcp_"

type JobOutcome string

const (
	JobOutcomeDone        JobOutcome = "done"
	JobOutcomeCancelled   JobOutcome = "cancelled"
	JobOutcomeForcePaused JobOutcome = "force_paused"
	JobOutcomeFailed      JobOutcome = "failed"
	JobOutcomeTimeout     JobOutcome = "timeout"
	JobOutcomeAbandoned   JobOutcome = "abandoned"
)

type Metrics struct {
	backendRequests        *prometheus.CounterVec
	backendRequestDuration *prometheus.HistogramVec
	jobOutcomes            *prometheus.CounterVec
	jobWaitDuration        prometheus.Histogram
	jobPolls               prometheus.Counter
	toolCalls              *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns metrics registered on the global Prometheus registry
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		backendRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: MetricsPrefix + "backend_requests_total",
			Help: "Number of requests sent to the search API grouped by operation and HTTP status",
		}, []string{"operation", "status"}),
		backendRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricsPrefix + "backend_request_duration_seconds",
			Help:    "Latency of requests to the search API grouped by operation",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		jobOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: MetricsPrefix + "search_jobs_total",
			Help: "Number of search jobs waited on grouped by how the wait ended",
		}, []string{"outcome"}),
		jobWaitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricsPrefix + "search_job_wait_seconds",
			Help:    "Time spent waiting for search jobs to reach a terminal state",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		}),
		jobPolls: factory.NewCounter(prometheus.CounterOpts{
			Name: MetricsPrefix + "search_job_polls_total",
			Help: "Number of search job status checks",
		}),
		toolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: MetricsPrefix + "tool_calls_total",
			Help: "Number of tool invocations grouped by tool and result",
		}, []string{"tool", "result"}),
	}
}

// RecordBackendRequest records one request; status 0 means no response was received.
func (m *Metrics) RecordBackendRequest(operation string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.backendRequests.With(map[string]string{"operation": operation, "status": statusLabel(status)}).Inc()
	m.backendRequestDuration.With(map[string]string{"operation": operation}).Observe(duration.Seconds())
}

func (m *Metrics) RecordJobPoll() {
	if m == nil {
		return
	}
	m.jobPolls.Inc()
}

func (m *Metrics) RecordJobOutcome(outcome JobOutcome, waited time.Duration) {
	if m == nil {
		return
	}
	m.jobOutcomes.With(map[string]string{"outcome": string(outcome)}).Inc()
	m.jobWaitDuration.Observe(waited.Seconds())
}

func (m *Metrics) RecordToolCall(tool string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.toolCalls.With(map[string]string{"tool": tool, "result": result}).Inc()
}

func statusLabel(status int) string {
	if status == 0 {
		return "network_error"
	}
	return strconv.Itoa(status)
}
