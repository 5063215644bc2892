package generator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Generation errors. Clients wrap these with %w so callers can match them
// with errors.Is.
var (
	// ErrUpstreamStatus is returned when the endpoint answers with a non-2xx status
	ErrUpstreamStatus = errors.New("generator: upstream returned non-success status")

	// ErrMalformedResponse is returned when the response body cannot be decoded
	ErrMalformedResponse = errors.New("generator: malformed response")

	// ErrEmptyResponse is returned when the response carries no candidate text
	ErrEmptyResponse = errors.New("generator: response has no candidates")

	// ErrCircuitOpen is returned when the circuit breaker rejects the call
	ErrCircuitOpen = errors.New("generator: circuit breaker open")

	// ErrTimeout is returned when the call exceeds its deadline
	ErrTimeout = errors.New("generator: request timeout")

	// ErrNotConfigured is returned when the client lacks credentials
	ErrNotConfigured = errors.New("generator: missing api key")
)

// StatusError carries the HTTP status of a failed call.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Body)
}

// Unwrap lets errors.Is match ErrUpstreamStatus.
func (e *StatusError) Unwrap() error {
	return ErrUpstreamStatus
}

// ClassifyError returns a string classification of the error for metrics labels.
func ClassifyError(err error) string {
	if err == nil {
		return "none"
	}

	var netErr net.Error
	switch {
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_breaker_open"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrUpstreamStatus):
		return "upstream_status"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrEmptyResponse):
		return "empty_response"
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return "timeout"
		}
		return "network"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection"), strings.Contains(msg, "dial"), strings.Contains(msg, "no such host"):
		return "network"
	case strings.Contains(msg, "unmarshal"), strings.Contains(msg, "decode"):
		return "malformed_response"
	default:
		return "other"
	}
}

// IsCircuitOpen reports whether err came from an open circuit breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// IsTimeout reports whether err is a deadline failure.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}
