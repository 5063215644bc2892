package resilience

import (
	"context"
	"errors"
	"time"

	"finance-agent/pkg/generator"
	"finance-agent/pkg/logging"
	"finance-agent/pkg/metrics"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Generator wraps a generator.Generator with a per-call timeout and a
// circuit breaker, and records every call.
type Generator struct {
	next    generator.Generator
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	metrics metrics.MetricsCollector
	logger  *logging.Logger
}

var _ generator.Generator = (*Generator)(nil)

// NewGenerator wraps next. A nil collector records nothing.
func NewGenerator(next generator.Generator, config ResilientConfig, collector metrics.MetricsCollector) *Generator {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	logger := logging.L().Named("resilience").Named(next.Name())

	logger.Info("resilient generator initialized",
		zap.String("provider", next.Name()),
		zap.Duration("timeout", config.Timeout),
		zap.Uint32("max_requests", config.CircuitBreakerConfig.MaxRequests),
		zap.Duration("circuit_timeout", config.CircuitBreakerConfig.Timeout),
	)

	return &Generator{
		next:    next,
		cb:      newBreaker("generator:"+next.Name(), config.CircuitBreakerConfig, collector, logger),
		timeout: config.Timeout,
		metrics: collector,
		logger:  logger,
	}
}

// Name returns the wrapped provider's name.
func (g *Generator) Name() string {
	return g.next.Name()
}

// Generate calls the wrapped generator through the breaker.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	result, err := g.cb.Execute(func() (interface{}, error) {
		return g.next.Generate(ctx, prompt)
	})
	duration := time.Since(start)

	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			err = generator.ErrCircuitOpen
			g.logger.Warn("circuit breaker open - request rejected")
		case ctx.Err() == context.DeadlineExceeded:
			g.logger.Warn("generation timeout",
				zap.Duration("timeout", g.timeout),
				zap.Duration("elapsed", duration),
			)
			err = generator.ErrTimeout
		default:
			g.logger.Error("generation failed",
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		}
		g.metrics.RecordGeneration(g.next.Name(), false, generator.ClassifyError(err), duration)
		return "", err
	}

	g.metrics.RecordGeneration(g.next.Name(), true, "", duration)
	return result.(string), nil
}

// State returns the breaker state.
func (g *Generator) State() metrics.CircuitState {
	return circuitState(g.cb.State())
}
