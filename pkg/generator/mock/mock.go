package mock

import (
	"context"
	"sync"
	"sync/atomic"
)

// Generator is a test double for generator.Generator.
// It allows injecting custom behavior and records every prompt it receives.
type Generator struct {
	// GenerateFunc customizes Generate; the default echoes a fixed reply
	GenerateFunc func(ctx context.Context, prompt string) (string, error)
	// NameValue overrides Name
	NameValue string

	calls int64

	mu      sync.Mutex
	prompts []string
}

// Generate implements generator.Generator.
func (m *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	atomic.AddInt64(&m.calls, 1)

	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	return "mock reply", nil
}

// Name implements generator.Generator.
func (m *Generator) Name() string {
	if m.NameValue != "" {
		return m.NameValue
	}
	return "mock"
}

// Calls returns the number of Generate calls.
func (m *Generator) Calls() int64 {
	return atomic.LoadInt64(&m.calls)
}

// LastPrompt returns the most recent prompt, or "" if none.
func (m *Generator) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}
