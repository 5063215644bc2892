package store

import (
	"context"
	"fmt"
	"sync"

	"finance-agent/pkg/finance"
)

// Opener connects to a backend.
type Opener func(ctx context.Context) (Source, error)

// Lazy defers connecting to a backend until it is first used and retries on
// every call until a connection succeeds. While the backend is down each
// call fails with the open error, so readers fall back to sample data.
type Lazy struct {
	name string
	open Opener

	mu     sync.Mutex
	source Source
	closed bool
}

var (
	_ Source           = (*Lazy)(nil)
	_ ConversationSink = (*Lazy)(nil)
)

// NewLazy returns a source named name that connects through open.
func NewLazy(name string, open Opener) *Lazy {
	return &Lazy{name: name, open: open}
}

func (l *Lazy) get(ctx context.Context) (Source, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrClosed
	}
	if l.source != nil {
		return l.source, nil
	}

	s, err := l.open(ctx)
	if err != nil {
		return nil, WrapError(err, l.name, "open")
	}
	l.source = s
	return s, nil
}

// FetchAll connects if needed and reads from the backend.
func (l *Lazy) FetchAll(ctx context.Context) ([]finance.Record, error) {
	s, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return s.FetchAll(ctx)
}

// SaveConversation connects if needed and writes to the backend.
func (l *Lazy) SaveConversation(ctx context.Context, rec ConversationRecord) error {
	s, err := l.get(ctx)
	if err != nil {
		return err
	}
	sink, ok := s.(ConversationSink)
	if !ok {
		return fmt.Errorf("store %s: backend does not store conversations", l.name)
	}
	return sink.SaveConversation(ctx, rec)
}

// Connected reports whether the backend has been opened.
func (l *Lazy) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.source != nil
}

// Name implements Source.
func (l *Lazy) Name() string {
	return l.name
}

// Close closes the backend if it was opened.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	if l.source == nil {
		return nil
	}
	return l.source.Close()
}
