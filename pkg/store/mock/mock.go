package mock

import (
	"context"
	"sync"
	"sync/atomic"

	"finance-agent/pkg/finance"
	"finance-agent/pkg/store"
)

// Source is a test double for store.Source.
// It allows injecting custom behavior and tracks call counts.
type Source struct {
	// FetchAllFunc customizes FetchAll; the default returns no records
	FetchAllFunc func(ctx context.Context) ([]finance.Record, error)
	// NameValue overrides Name
	NameValue string
	// CloseFunc customizes Close
	CloseFunc func() error

	fetchCalls int64
	closeCalls int64
}

var _ store.Source = (*Source)(nil)

// FetchAll implements store.Source.
func (m *Source) FetchAll(ctx context.Context) ([]finance.Record, error) {
	atomic.AddInt64(&m.fetchCalls, 1)
	if m.FetchAllFunc != nil {
		return m.FetchAllFunc(ctx)
	}
	return nil, nil
}

// Name implements store.Source.
func (m *Source) Name() string {
	if m.NameValue != "" {
		return m.NameValue
	}
	return "mock"
}

// Close implements store.Source.
func (m *Source) Close() error {
	atomic.AddInt64(&m.closeCalls, 1)
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// FetchCalls returns the number of FetchAll calls.
func (m *Source) FetchCalls() int64 {
	return atomic.LoadInt64(&m.fetchCalls)
}

// CloseCalls returns the number of Close calls.
func (m *Source) CloseCalls() int64 {
	return atomic.LoadInt64(&m.closeCalls)
}

// Sink is a test double for store.ConversationSink that keeps every record.
type Sink struct {
	// SaveFunc runs before the record is kept; a non-nil error drops it
	SaveFunc func(ctx context.Context, rec store.ConversationRecord) error

	mu      sync.Mutex
	records []store.ConversationRecord
}

var _ store.ConversationSink = (*Sink)(nil)

// SaveConversation implements store.ConversationSink.
func (m *Sink) SaveConversation(ctx context.Context, rec store.ConversationRecord) error {
	if m.SaveFunc != nil {
		if err := m.SaveFunc(ctx, rec); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.records = append(m.records, rec)
	m.mu.Unlock()
	return nil
}

// Name implements store.ConversationSink.
func (m *Sink) Name() string {
	return "mock"
}

// Records returns a copy of the saved records.
func (m *Sink) Records() []store.ConversationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.ConversationRecord(nil), m.records...)
}
