// Package types provides common type definitions for the search bridge.
package types

import (
	"strings"
)

// JobState represents the lifecycle state of a search job as reported by the backend
type JobState string

const (
	// StateNotStarted is assumed for a freshly created job until the first status check
	StateNotStarted JobState = "NOT STARTED"
	// StateGatheringResults means the backend is still computing
	StateGatheringResults JobState = "GATHERING RESULTS"
	// StateDoneGatheringResults is the only terminal state with fetchable results
	StateDoneGatheringResults JobState = "DONE GATHERING RESULTS"
	// StateCancelled is terminal; the job was cancelled
	StateCancelled JobState = "CANCELLED"
	// StateForcePaused is terminal but not an error
	StateForcePaused JobState = "FORCE PAUSED"
	// StateFailed is the terminal error state
	StateFailed JobState = "FAILED"
)

// ParseJobState normalizes a backend state string. Underscores are accepted
// as separators, so "DONE_GATHERING_RESULTS" and "DONE GATHERING RESULTS"
// parse to the same state. Unknown values are returned upper-cased as-is.
func ParseJobState(s string) JobState {
	normalized := strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(s, "_", " ")))
	return JobState(normalized)
}

// IsTerminal reports whether no further state transitions will occur
func (s JobState) IsTerminal() bool {
	switch s {
	case StateDoneGatheringResults, StateCancelled, StateForcePaused, StateFailed:
		return true
	default:
		return false
	}
}

// IsSuccess reports whether results can be fetched for a job in this state
func (s JobState) IsSuccess() bool {
	return s == StateDoneGatheringResults
}

// String returns the backend spelling of the state
func (s JobState) String() string {
	return string(s)
}

// SearchJob represents a backend search job.
// Query, From and To hold the expressions exactly as the caller submitted them.
type SearchJob struct {
	ID              string   `json:"id"`
	State           JobState `json:"state"`
	Query           string   `json:"query"`
	From            string   `json:"from"`
	To              string   `json:"to"`
	MessageCount    *int64   `json:"messageCount,omitempty"`
	RecordCount     *int64   `json:"recordCount,omitempty"`
	PendingErrors   []string `json:"pendingErrors,omitempty"`
	PendingWarnings []string `json:"pendingWarnings,omitempty"`
}

// ResultKind distinguishes aggregated records from raw messages
type ResultKind string

const (
	// ResultRecords are aggregated/computed rows
	ResultRecords ResultKind = "records"
	// ResultMessages are raw matched log lines
	ResultMessages ResultKind = "messages"
)

// Field describes one column of a records result
type Field struct {
	Name      string `json:"name"`
	FieldType string `json:"fieldType"`
	KeyField  bool   `json:"keyField,omitempty"`
}

// SearchResult is one page of results for a job
type SearchResult struct {
	Kind       ResultKind       `json:"kind"`
	Rows       []map[string]any `json:"rows"`
	Fields     []Field          `json:"fields,omitempty"` // Empty for messages
	TotalCount int64            `json:"totalCount"`       // Never smaller than len(Rows)
	JobID      string           `json:"jobId"`
}

// Collector represents a backend collector
type Collector struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	CollectorType string `json:"collectorType,omitempty"`
	Category      string `json:"category,omitempty"`
	Alive         bool   `json:"alive"`
}

// Source represents a data source attached to a collector
type Source struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Category      string `json:"category,omitempty"`
	SourceType    string `json:"sourceType,omitempty"`
	CollectorID   int64  `json:"collectorId,omitempty"`   // Set when gathered across collectors
	CollectorName string `json:"collectorName,omitempty"` // Set when gathered across collectors
}

// ValidationResult is the outcome of a best-effort syntax check
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}
