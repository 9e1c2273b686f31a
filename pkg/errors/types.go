package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents a structured error code
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigLoad    ErrorCode = "CONFIG_LOAD"
	ErrCodeConfigParse   ErrorCode = "CONFIG_PARSE"
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"

	// Session errors
	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeSessionClosed   ErrorCode = "SESSION_CLOSED"
	ErrCodeSessionFull     ErrorCode = "SESSION_FULL"
	ErrCodeSessionKey      ErrorCode = "SESSION_KEY_MISMATCH"

	// Transport errors
	ErrCodeTransportSend    ErrorCode = "TRANSPORT_SEND"
	ErrCodeTransportClosed  ErrorCode = "TRANSPORT_CLOSED"
	ErrCodeEnvelopeDecode   ErrorCode = "ENVELOPE_DECODE"
	ErrCodeCommandUnknown   ErrorCode = "COMMAND_UNKNOWN"
	ErrCodeWriterConflict   ErrorCode = "WRITER_CONFLICT"
	ErrCodeQueueOverflow    ErrorCode = "QUEUE_OVERFLOW"
	ErrCodeReconnectExhaust ErrorCode = "RECONNECT_EXHAUSTED"

	// Event errors
	ErrCodeEventInvalid ErrorCode = "EVENT_INVALID"
	ErrCodeEventKind    ErrorCode = "EVENT_KIND_UNKNOWN"

	// Code generation errors
	ErrCodeGenUnsupported ErrorCode = "CODEGEN_UNSUPPORTED"
	ErrCodeGenLanguage    ErrorCode = "CODEGEN_LANGUAGE_UNKNOWN"

	// Storage errors
	ErrCodeStorageRead  ErrorCode = "STORAGE_READ"
	ErrCodeStorageWrite ErrorCode = "STORAGE_WRITE"

	// Generic errors
	ErrCodeInternal     ErrorCode = "INTERNAL"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Error represents a structured steno error
type Error struct {
	Code       ErrorCode
	Message    string
	Underlying error
	Context    map[string]any
	Retryable  bool
}

// New creates a new structured error
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// Wrap wraps an existing error with steno error context
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Code:       code,
		Message:    message,
		Underlying: err,
		Context:    make(map[string]any),
	}
}

// WithContext adds context key-value pairs to the error
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithRetryable marks the error as retryable
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// Error implements the error interface
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if len(e.Context) > 0 {
		sb.WriteString(" {")
		first := true
		for k, v := range e.Context {
			if !first {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s: %v", k, v))
			first = false
		}
		sb.WriteString("}")
	}

	if e.Underlying != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Underlying))
	}

	return sb.String()
}

// Unwrap returns the underlying error for errors.Is/As
func (e *Error) Unwrap() error {
	return e.Underlying
}

// IsCode checks if an error has a specific error code
func IsCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	stenoErr, ok := err.(*Error)
	if !ok {
		return false
	}

	return stenoErr.Code == code
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	stenoErr, ok := err.(*Error)
	if !ok {
		return ErrCodeInternal
	}

	return stenoErr.Code
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	stenoErr, ok := err.(*Error)
	if !ok {
		return false
	}
	return stenoErr.Retryable
}
