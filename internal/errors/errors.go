// Package errors defines the tagged error kinds surfaced by the search client
// and the tool layer. Callers match on Kind instead of string contents.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Kind represents the category of an error
type Kind string

const (
	// KindTransport is a non-2xx response or a network failure talking to the backend
	KindTransport Kind = "transport"
	// KindJobFailed means the job reached the FAILED state
	KindJobFailed Kind = "job_failed"
	// KindJobTimeout means the overall wait timeout elapsed; the job is left running
	KindJobTimeout Kind = "job_timeout"
	// KindCallerMisuse covers requests the client refuses to send (fetch before ready, bad paging)
	KindCallerMisuse Kind = "caller_misuse"
	// KindConfig covers missing credentials or invalid settings
	KindConfig Kind = "config"
	// KindValidation covers invalid tool arguments
	KindValidation Kind = "validation"
)

// Error is an error tagged with a Kind and enough context to diagnose it
type Error struct {
	Kind       Kind
	Operation  string
	StatusCode int    // Backend HTTP status, transport errors only
	Message    string // Backend message or description
	JobID      string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Operation != "" {
		msg = fmt.Sprintf("%s %s", e.Operation, msg)
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (caused by: %v)", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// Transport errors

// NewHTTPError creates a transport error for a non-2xx backend response
func NewHTTPError(operation string, statusCode int, message string) *Error {
	return &Error{
		Kind:       KindTransport,
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewNetworkError creates a transport error for a request that never got a response
func NewNetworkError(operation string, cause error) *Error {
	return &Error{
		Kind:      KindTransport,
		Operation: operation,
		Message:   "request to backend failed",
		Cause:     cause,
	}
}

// NewDecodeError creates a transport error for an unreadable backend body
func NewDecodeError(operation string, cause error) *Error {
	return &Error{
		Kind:      KindTransport,
		Operation: operation,
		Message:   "failed to decode backend response",
		Cause:     cause,
	}
}

// Job lifecycle errors

// NewJobFailedError creates a job failed error
func NewJobFailedError(jobID string) *Error {
	return &Error{
		Kind:      KindJobFailed,
		Operation: "wait for job",
		Message:   fmt.Sprintf("search job %s failed", jobID),
		JobID:     jobID,
	}
}

// NewJobTimeoutError creates a job timeout error
func NewJobTimeoutError(jobID string, timeout time.Duration) *Error {
	return &Error{
		Kind:      KindJobTimeout,
		Operation: "wait for job",
		Message:   fmt.Sprintf("search job %s timed out after %s", jobID, timeout),
		JobID:     jobID,
		Details: map[string]interface{}{
			"timeout": timeout.String(),
		},
	}
}

// NewNotReadyError is returned when results are requested for a job that has not
// reached DONE GATHERING RESULTS
func NewNotReadyError(operation, jobID, state string) *Error {
	return &Error{
		Kind:      KindCallerMisuse,
		Operation: operation,
		Message:   fmt.Sprintf("search job %s is in state %q; results are only available once it is done gathering results", jobID, state),
		JobID:     jobID,
		Details: map[string]interface{}{
			"state": state,
		},
	}
}

// NewCallerMisuseError creates a generic caller misuse error
func NewCallerMisuseError(operation, message string) *Error {
	return &Error{
		Kind:      KindCallerMisuse,
		Operation: operation,
		Message:   message,
	}
}

// Configuration and input errors

// NewConfigError creates a configuration error
func NewConfigError(message string) *Error {
	return &Error{
		Kind:    KindConfig,
		Message: message,
	}
}

// NewValidationError creates an invalid argument error
func NewValidationError(operation string, cause error) *Error {
	return &Error{
		Kind:      KindValidation,
		Operation: operation,
		Message:   "invalid arguments",
		Cause:     cause,
	}
}

// KindOf returns the kind of err, or "" if err is not tagged
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is tagged with kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// StatusCode returns the backend status carried by err, or 0
func StatusCode(err error) int {
	var e *Error
	if stderrors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// IsUserError determines if an error was caused by the caller
func IsUserError(err error) bool {
	kind := KindOf(err)
	return kind == KindValidation || kind == KindCallerMisuse
}
