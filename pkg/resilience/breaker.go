package resilience

import (
	"context"
	"errors"
	"net/http"

	"finance-agent/pkg/generator"
	"finance-agent/pkg/logging"
	"finance-agent/pkg/metrics"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// newBreaker converts config to gobreaker settings and reports state changes
// to the logger and metrics collector.
func newBreaker(name string, config CircuitBreakerConfig, collector metrics.MetricsCollector, logger *logging.Logger) *gobreaker.CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if config.ReadyToTrip != nil {
				return config.ReadyToTrip(Counts{
					Requests:             counts.Requests,
					TotalSuccesses:       counts.TotalSuccesses,
					TotalFailures:        counts.TotalFailures,
					ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
					ConsecutiveFailures:  counts.ConsecutiveFailures,
				})
			}
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			if config.IsSuccessful != nil {
				return config.IsSuccessful(err)
			}
			return callerGaveUp(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			collector.RecordCircuitState(name, circuitState(to))
		},
	}

	return gobreaker.NewCircuitBreaker(settings)
}

func circuitState(s gobreaker.State) metrics.CircuitState {
	switch s {
	case gobreaker.StateOpen:
		return metrics.CircuitOpen
	case gobreaker.StateHalfOpen:
		return metrics.CircuitHalfOpen
	default:
		return metrics.CircuitClosed
	}
}

// callerGaveUp treats a nil error and a canceled caller as healthy calls.
func callerGaveUp(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

// GeneratorHealthy reports whether err leaves the generation endpoint
// healthy: the caller canceled, or the endpoint rejected the request itself
// with a 4xx other than 408 or 429.
func GeneratorHealthy(err error) bool {
	if callerGaveUp(err) {
		return true
	}
	var status *generator.StatusError
	if errors.As(err, &status) {
		code := status.StatusCode
		return code >= 400 && code < 500 &&
			code != http.StatusRequestTimeout && code != http.StatusTooManyRequests
	}
	return false
}
