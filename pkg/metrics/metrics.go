package metrics

import (
	"time"
)

// MetricsCollector defines the interface for collecting agent metrics.
// Implementations can export metrics to various backends (Prometheus, in-memory, etc.).
type MetricsCollector interface {
	// Generation endpoint calls
	RecordGeneration(provider string, success bool, errorType string, duration time.Duration)

	// Record store refreshes
	RecordRefresh(source string, success bool, records int, duration time.Duration)
	RecordFallback(source string)

	// Circuit breaker
	RecordCircuitState(name string, state CircuitState)

	// Conversation writer
	RecordQueueDepth(sink string, depth int)
	RecordWriteDropped(sink string)
	RecordConversationWrite(sink string, success bool, duration time.Duration)
}

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed means the circuit breaker is allowing requests through.
	CircuitClosed CircuitState = iota
	// CircuitOpen means the circuit breaker is blocking requests.
	CircuitOpen
	// CircuitHalfOpen means the circuit breaker is testing if the service has recovered.
	CircuitHalfOpen
)

// String returns the string representation of the circuit state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// NoOpCollector is a no-op implementation of MetricsCollector.
type NoOpCollector struct{}

// RecordGeneration does nothing.
func (NoOpCollector) RecordGeneration(provider string, success bool, errorType string, duration time.Duration) {
}

// RecordRefresh does nothing.
func (NoOpCollector) RecordRefresh(source string, success bool, records int, duration time.Duration) {}

// RecordFallback does nothing.
func (NoOpCollector) RecordFallback(source string) {}

// RecordCircuitState does nothing.
func (NoOpCollector) RecordCircuitState(name string, state CircuitState) {}

// RecordQueueDepth does nothing.
func (NoOpCollector) RecordQueueDepth(sink string, depth int) {}

// RecordWriteDropped does nothing.
func (NoOpCollector) RecordWriteDropped(sink string) {}

// RecordConversationWrite does nothing.
func (NoOpCollector) RecordConversationWrite(sink string, success bool, duration time.Duration) {}
