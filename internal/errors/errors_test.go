package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	err := NewHTTPError("create search job", http.StatusBadRequest, "bad syntax")

	assert.Equal(t, "create search job transport: bad syntax (status 400)", err.Error())
}

func TestKindOf_Wrapped(t *testing.T) {
	inner := NewJobTimeoutError("job-1", 5*time.Second)
	wrapped := fmt.Errorf("execute query: %w", inner)

	assert.Equal(t, KindJobTimeout, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindJobTimeout))
	assert.False(t, IsKind(wrapped, KindJobFailed))
	assert.Contains(t, wrapped.Error(), "job-1")
	assert.Contains(t, wrapped.Error(), "5s")
}

func TestKindOf_Untagged(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(stderrors.New("plain")))
	assert.False(t, IsKind(nil, KindTransport))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, 500, StatusCode(fmt.Errorf("x: %w", NewHTTPError("op", 500, "boom"))))
	assert.Equal(t, 0, StatusCode(NewJobFailedError("j")))
}

func TestNetworkError_Unwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewNetworkError("get collectors", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindTransport, err.Kind)
}

func TestIsUserError(t *testing.T) {
	assert.True(t, IsUserError(NewCallerMisuseError("op", "bad offset")))
	assert.False(t, IsUserError(NewJobFailedError("j")))
}
