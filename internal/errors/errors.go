package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types for the movie server
var (
	ErrNotFound          = errors.New("not found")
	ErrUpstreamNotReady  = errors.New("upstream not configured")
	ErrInvalidAvatarData = errors.New("invalid avatar data")
)

// StatusError is a domain failure carrying the HTTP status and the message
// that may be shown to the caller. Err holds the underlying cause, if any,
// and is never surfaced.
type StatusError struct {
	Status  int
	Message string
	Err     error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

func newStatus(status int, message string, cause error) *StatusError {
	return &StatusError{Status: status, Message: message, Err: cause}
}

// Validation is bad input (400).
func Validation(message string) *StatusError {
	return newStatus(http.StatusBadRequest, message, nil)
}

// Unauthorized is a missing or rejected credential (401).
func Unauthorized(message string) *StatusError {
	return newStatus(http.StatusUnauthorized, message, nil)
}

// Forbidden is an authenticated caller that may not perform the action (403).
func Forbidden(message string) *StatusError {
	return newStatus(http.StatusForbidden, message, nil)
}

// Conflict is a uniqueness violation (409).
func Conflict(message string) *StatusError {
	return newStatus(http.StatusConflict, message, nil)
}

// NotFound is an unknown resource (404).
func NotFound(message string) *StatusError {
	return newStatus(http.StatusNotFound, message, nil)
}

// BadGateway is an upstream that failed to answer (502).
func BadGateway(message string, cause error) *StatusError {
	return newStatus(http.StatusBadGateway, message, cause)
}

// GatewayTimeout is an upstream that answered too late (504).
func GatewayTimeout(message string, cause error) *StatusError {
	return newStatus(http.StatusGatewayTimeout, message, cause)
}

// ServiceUnavailable is a backend that is not configured or unreachable (503).
func ServiceUnavailable(message string, cause error) *StatusError {
	return newStatus(http.StatusServiceUnavailable, message, cause)
}

// Internal is an unexpected failure (500).
func Internal(message string, cause error) *StatusError {
	return newStatus(http.StatusInternalServerError, message, cause)
}

// StatusOf returns the status and public message for err. Errors that are not
// a StatusError map to a generic 500.
func StatusOf(err error) (int, string) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status, se.Message
	}
	return http.StatusInternalServerError, "Internal server error"
}
