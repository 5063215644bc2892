package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Record store errors.
var (
	// ErrUnavailable is returned when the backend cannot be reached
	ErrUnavailable = errors.New("store: backend unavailable")

	// ErrTimeout is returned when a store operation times out
	ErrTimeout = errors.New("store: operation timeout")

	// ErrCircuitOpen is returned when the circuit breaker rejects the call
	ErrCircuitOpen = errors.New("store: circuit breaker open")

	// ErrClosed is returned after Close
	ErrClosed = errors.New("store: closed")

	// ErrCacheMiss is returned by caches when no snapshot is stored
	ErrCacheMiss = errors.New("store: cache miss")
)

// ClassifyError returns a string classification of the error for metrics labels.
func ClassifyError(err error) string {
	if err == nil {
		return "none"
	}

	switch {
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_breaker_open"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrCacheMiss):
		return "cache_miss"
	case errors.Is(err, ErrClosed):
		return "closed"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection"), strings.Contains(msg, "connect"), strings.Contains(msg, "dial"):
		return "connection"
	case strings.Contains(msg, "permission"), strings.Contains(msg, "credentials"), strings.Contains(msg, "unauthenticated"):
		return "auth"
	case strings.Contains(msg, "scan"), strings.Contains(msg, "unmarshal"), strings.Contains(msg, "decode"):
		return "decode"
	default:
		return "other"
	}
}

// WrapError adds the backend and operation to err.
func WrapError(err error, backend, operation string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("store %s %s: %w", backend, operation, err)
}
