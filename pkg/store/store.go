// Package store defines the record store ports and the in-process source.
package store

import (
	"context"
	"sync"
	"time"

	"finance-agent/pkg/finance"
)

// Source reads every transaction record from a record store.
type Source interface {
	// FetchAll returns the full transaction collection with defaults applied.
	FetchAll(ctx context.Context) ([]finance.Record, error)

	// Name identifies the backend in logs and metrics.
	Name() string

	// Close releases backend resources.
	Close() error
}

// Invalidator is implemented by sources that cache what they read.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// ConversationRecord is one persisted conversation turn.
type ConversationRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// ConversationSink persists conversation turns.
type ConversationSink interface {
	SaveConversation(ctx context.Context, rec ConversationRecord) error
	Name() string
}

// Static serves a fixed record set. It is the source used when no backend
// is configured.
type Static struct {
	mu      sync.RWMutex
	records []finance.Record
	closed  bool
}

var _ Source = (*Static)(nil)

// NewStatic returns a source serving a copy of records.
func NewStatic(records []finance.Record) *Static {
	return &Static{records: append([]finance.Record(nil), records...)}
}

// FetchAll returns a copy of the configured records.
func (s *Static) FetchAll(ctx context.Context) ([]finance.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	return append([]finance.Record(nil), s.records...), nil
}

// Replace swaps the served records.
func (s *Static) Replace(records []finance.Record) {
	s.mu.Lock()
	s.records = append([]finance.Record(nil), records...)
	s.mu.Unlock()
}

// Name implements Source.
func (s *Static) Name() string {
	return "static"
}

// Close implements Source.
func (s *Static) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
