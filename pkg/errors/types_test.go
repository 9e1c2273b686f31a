package errors

import (
	stdliberrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeSessionFull, "session at capacity")

	assert.Equal(t, ErrCodeSessionFull, err.Code)
	assert.Equal(t, "session at capacity", err.Message)
	assert.False(t, err.Retryable)
	assert.Nil(t, err.Underlying)
}

func TestWrap(t *testing.T) {
	underlying := fmt.Errorf("dial tcp: connection refused")
	err := Wrap(underlying, ErrCodeTransportSend, "duplex send failed")

	require.NotNil(t, err)
	assert.Equal(t, ErrCodeTransportSend, err.Code)
	assert.True(t, stdliberrors.Is(err, underlying))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "should be nil"))
}

func TestErrorString(t *testing.T) {
	err := New(ErrCodeSessionNotFound, "no such session").
		WithContext("session_id", "rec-123")

	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg, "[SESSION_NOT_FOUND] no such session"))
	assert.Contains(t, msg, "session_id: rec-123")
}

func TestIsCode(t *testing.T) {
	err := New(ErrCodeGenUnsupported, "no renderer for combination")

	assert.True(t, IsCode(err, ErrCodeGenUnsupported))
	assert.False(t, IsCode(err, ErrCodeInternal))
	assert.False(t, IsCode(nil, ErrCodeInternal))
	assert.False(t, IsCode(fmt.Errorf("plain"), ErrCodeInternal))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrorCode(""), GetCode(nil))
	assert.Equal(t, ErrCodeInternal, GetCode(fmt.Errorf("plain")))
	assert.Equal(t, ErrCodeQueueOverflow, GetCode(New(ErrCodeQueueOverflow, "queue full")))
}

func TestRetryable(t *testing.T) {
	err := New(ErrCodeTransportSend, "send failed").WithRetryable(true)

	assert.True(t, IsRetryable(err))
	assert.False(t, IsRetryable(fmt.Errorf("plain")))
	assert.False(t, IsRetryable(New(ErrCodeSessionClosed, "terminal")))
}
