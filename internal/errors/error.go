package errors

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

var (
	// session errors
	ErrSessionNotFound  = errors.New("session not found")
	ErrNoFolderSelected = errors.New("no folder selected")
	ErrNoConnection     = errors.New("no active connection for session")
)

// ValidationError reports a malformed credential. Never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// AuthenticationError reports server-rejected credentials. Not retried;
// triggers credential wipe and a rate-limit failure record.
type AuthenticationError struct {
	Message string
	Cause   error
}

func (e *AuthenticationError) Error() string {
	return e.Message
}

func (e *AuthenticationError) Unwrap() error {
	return e.Cause
}

// ConnectionError reports a transport failure, surfaced after the retry
// budget is exhausted.
type ConnectionError struct {
	Message string
	Cause   error
}

func (e *ConnectionError) Error() string {
	return e.Message
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// SessionError reports an operation that failed on an otherwise-connected
// session. Not auto-retried by this layer.
type SessionError struct {
	Message string
	Cause   error
}

func (e *SessionError) Error() string {
	return e.Message
}

func (e *SessionError) Unwrap() error {
	return e.Cause
}

func NewSessionError(cause error, format string, args ...interface{}) *SessionError {
	return &SessionError{Message: fmt.Sprintf(format, args...), Cause: cause}
}

// RateLimitError reports an active lockout. Fails fast, no I/O attempted.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter >= time.Minute {
		minutes := int(e.RetryAfter.Round(time.Minute) / time.Minute)
		return fmt.Sprintf("too many failed authentication attempts, locked out for %d minutes", minutes)
	}
	return fmt.Sprintf("too many failed authentication attempts, try again in %d seconds", int(e.RetryAfter.Seconds()))
}
