package resilience

import (
	"context"
	"errors"
	"time"

	"finance-agent/pkg/finance"
	"finance-agent/pkg/logging"
	"finance-agent/pkg/metrics"
	"finance-agent/pkg/store"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Source wraps a store.Source with a timeout and circuit breaker. While the
// breaker is open, fetches fail fast with store.ErrCircuitOpen and the
// refresh guard falls back to sample data without waiting on the backend.
type Source struct {
	next    store.Source
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	logger  *logging.Logger
}

var _ store.Source = (*Source)(nil)

// NewSource wraps next. A nil collector records nothing.
func NewSource(next store.Source, config ResilientConfig, collector metrics.MetricsCollector) *Source {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	logger := logging.L().Named("resilience").Named(next.Name())

	return &Source{
		next:    next,
		cb:      newBreaker("store:"+next.Name(), config.CircuitBreakerConfig, collector, logger),
		timeout: config.Timeout,
		logger:  logger,
	}
}

// Name returns the wrapped source's name.
func (s *Source) Name() string {
	return s.next.Name()
}

// FetchAll reads through the breaker.
func (s *Source) FetchAll(ctx context.Context) ([]finance.Record, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.cb.Execute(func() (interface{}, error) {
		return s.next.FetchAll(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			s.logger.Warn("circuit breaker open - fetch rejected")
			return nil, store.ErrCircuitOpen
		}
		if ctx.Err() == context.DeadlineExceeded {
			s.logger.Warn("fetch timeout", zap.Duration("timeout", s.timeout))
			return nil, store.ErrTimeout
		}
		return nil, err
	}

	return result.([]finance.Record), nil
}

// Invalidate forwards to the wrapped source when it caches.
func (s *Source) Invalidate(ctx context.Context) error {
	if inv, ok := s.next.(store.Invalidator); ok {
		return inv.Invalidate(ctx)
	}
	return nil
}

// Close closes the wrapped source.
func (s *Source) Close() error {
	return s.next.Close()
}
