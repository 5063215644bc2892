package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"finance-agent/pkg/generator"
	"finance-agent/pkg/generator/mock"
	"finance-agent/pkg/metrics"
	"finance-agent/pkg/metrics/memory"
)

func TestGenerator_Success(t *testing.T) {
	collector := memory.NewMemoryCollector()
	g := NewGenerator(&mock.Generator{}, DefaultResilientConfig(), collector)

	reply, err := g.Generate(context.Background(), "p")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if reply != "mock reply" {
		t.Errorf("Unexpected reply %q", reply)
	}

	gm := collector.Snapshot().Generations["mock"]
	if gm.Calls != 1 || gm.Failures != 0 {
		t.Errorf("Unexpected metrics %+v", gm)
	}
}

func TestGenerator_CircuitOpensAfterConsecutiveFailures(t *testing.T) {
	upstream := &mock.Generator{
		GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
			return "", &generator.StatusError{StatusCode: 500}
		},
	}
	collector := memory.NewMemoryCollector()

	config := DefaultResilientConfig()
	config.CircuitBreakerConfig.ReadyToTrip = func(c Counts) bool { return c.ConsecutiveFailures >= 3 }
	g := NewGenerator(upstream, config, collector)

	for i := 0; i < 3; i++ {
		if _, err := g.Generate(context.Background(), "p"); !errors.Is(err, generator.ErrUpstreamStatus) {
			t.Fatalf("Call %d: expected upstream error, got %v", i, err)
		}
	}

	_, err := g.Generate(context.Background(), "p")
	if !errors.Is(err, generator.ErrCircuitOpen) {
		t.Fatalf("Expected ErrCircuitOpen, got %v", err)
	}
	if upstream.Calls() != 3 {
		t.Errorf("Expected upstream to be skipped while open, got %d calls", upstream.Calls())
	}
	if g.State() != metrics.CircuitOpen {
		t.Errorf("Expected open state, got %v", g.State())
	}
	if state, _ := collector.CircuitState("generator:mock"); state != metrics.CircuitOpen {
		t.Errorf("Expected open state recorded, got %v", state)
	}
	if got := collector.Snapshot().Generations["mock"].ErrorsByType["circuit_breaker_open"]; got != 1 {
		t.Errorf("Expected 1 circuit_breaker_open error, got %d", got)
	}
}

func TestGenerator_HalfOpenRecovers(t *testing.T) {
	fail := true
	upstream := &mock.Generator{
		GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
			if fail {
				return "", errors.New("connection refused")
			}
			return "ok", nil
		},
	}

	config := DefaultResilientConfig().WithCircuitBreakerTimeout(50 * time.Millisecond)
	config.CircuitBreakerConfig.ReadyToTrip = func(c Counts) bool { return c.ConsecutiveFailures >= 1 }
	g := NewGenerator(upstream, config, nil)

	g.Generate(context.Background(), "p")
	if g.State() != metrics.CircuitOpen {
		t.Fatalf("Expected open state, got %v", g.State())
	}

	fail = false
	time.Sleep(80 * time.Millisecond)

	if _, err := g.Generate(context.Background(), "p"); err != nil {
		t.Fatalf("Expected half-open trial call to succeed, got %v", err)
	}
	if g.State() != metrics.CircuitClosed {
		t.Errorf("Expected closed state, got %v", g.State())
	}
}

func TestGenerator_Timeout(t *testing.T) {
	upstream := &mock.Generator{
		GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}

	g := NewGenerator(upstream, DefaultResilientConfig().WithTimeout(20*time.Millisecond), nil)

	start := time.Now()
	_, err := g.Generate(context.Background(), "p")
	if !errors.Is(err, generator.ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Timeout not enforced, took %v", elapsed)
	}
}

func TestGenerator_CanceledCallersDoNotOpenCircuit(t *testing.T) {
	upstream := &mock.Generator{
		GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			return "💰 ok", nil
		},
	}
	g := NewGenerator(upstream, DefaultResilientConfig(), nil)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 6; i++ {
		if _, err := g.Generate(canceled, "p"); !errors.Is(err, context.Canceled) {
			t.Fatalf("Call %d: expected context.Canceled, got %v", i, err)
		}
	}

	reply, err := g.Generate(context.Background(), "p")
	if err != nil {
		t.Fatalf("Expected healthy call after cancellations, got %v", err)
	}
	if reply != "💰 ok" {
		t.Errorf("Unexpected reply %q", reply)
	}
	if g.State() != metrics.CircuitClosed {
		t.Errorf("Expected closed state, got %v", g.State())
	}
}

func TestGenerator_ClientErrorsDoNotOpenCircuit(t *testing.T) {
	upstream := &mock.Generator{
		GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
			return "", &generator.StatusError{StatusCode: 400, Body: "invalid argument"}
		},
	}
	g := NewGenerator(upstream, DefaultResilientConfig(), nil)

	for i := 0; i < 6; i++ {
		if _, err := g.Generate(context.Background(), "p"); !errors.Is(err, generator.ErrUpstreamStatus) {
			t.Fatalf("Call %d: expected upstream status error, got %v", i, err)
		}
	}
	if upstream.Calls() != 6 {
		t.Errorf("Expected every call to reach upstream, got %d", upstream.Calls())
	}
}
