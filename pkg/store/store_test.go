package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"finance-agent/pkg/finance"

	"github.com/shopspring/decimal"
)

func TestStatic_FetchAllReturnsCopy(t *testing.T) {
	s := NewStatic(finance.SampleRecords())

	got, err := s.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(got))
	}

	got[0].Category = "mutated"
	again, _ := s.FetchAll(context.Background())
	if again[0].Category != "Salary" {
		t.Errorf("FetchAll should return a copy, got %q", again[0].Category)
	}
}

func TestStatic_Replace(t *testing.T) {
	s := NewStatic(nil)
	s.Replace([]finance.Record{{Amount: decimal.NewFromInt(7), Category: "Gift", Type: "Income"}})

	got, _ := s.FetchAll(context.Background())
	if len(got) != 1 || got[0].Category != "Gift" {
		t.Errorf("Unexpected records after Replace: %+v", got)
	}
}

func TestStatic_Closed(t *testing.T) {
	s := NewStatic(nil)
	s.Close()

	if _, err := s.FetchAll(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestStatic_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewStatic(nil).FetchAll(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "none"},
		{WrapError(ErrCircuitOpen, "postgres", "fetch"), "circuit_breaker_open"},
		{ErrTimeout, "timeout"},
		{fmt.Errorf("query: %w", context.DeadlineExceeded), "timeout"},
		{ErrCacheMiss, "cache_miss"},
		{ErrClosed, "closed"},
		{ErrUnavailable, "unavailable"},
		{errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), "connection"},
		{errors.New("rpc error: code = PermissionDenied"), "auth"},
		{errors.New("sql: Scan error on column index 0"), "decode"},
		{errors.New("boom"), "other"},
	}

	for _, tt := range tests {
		if got := ClassifyError(tt.err); got != tt.want {
			t.Errorf("ClassifyError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestWrapError(t *testing.T) {
	if WrapError(nil, "x", "y") != nil {
		t.Error("Expected nil for nil error")
	}

	err := WrapError(ErrUnavailable, "firestore", "fetch")
	if !errors.Is(err, ErrUnavailable) {
		t.Error("Expected wrapped error to match")
	}
	if err.Error() != "store firestore fetch: store: backend unavailable" {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

type failingSink struct{ name string }

func (f failingSink) SaveConversation(ctx context.Context, rec ConversationRecord) error {
	return ErrUnavailable
}

func (f failingSink) Name() string { return f.name }

type countingSink struct{ saved int }

func (c *countingSink) SaveConversation(ctx context.Context, rec ConversationRecord) error {
	c.saved++
	return nil
}

func (c *countingSink) Name() string { return "count" }

func TestMultiSink(t *testing.T) {
	ok := &countingSink{}
	m := MultiSink{failingSink{name: "a"}, ok, failingSink{name: "b"}}

	err := m.SaveConversation(context.Background(), ConversationRecord{ID: "1"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Expected combined ErrUnavailable, got %v", err)
	}
	if ok.saved != 1 {
		t.Errorf("Expected healthy sink to be written, got %d", ok.saved)
	}
	if m.Name() != "a+count+b" {
		t.Errorf("Unexpected name %q", m.Name())
	}

	if err := (MultiSink{ok}).SaveConversation(context.Background(), ConversationRecord{}); err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
}
