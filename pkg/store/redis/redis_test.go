package redis

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"finance-agent/pkg/finance"
	"finance-agent/pkg/store"
	"finance-agent/pkg/store/mock"

	"github.com/google/uuid"
)

func TestKeySpace(t *testing.T) {
	keys := keySpace{prefix: "finance-agent:"}

	if got := keys.snapshot(); got != "finance-agent:transactions:snapshot" {
		t.Errorf("Unexpected snapshot key %q", got)
	}

	got, err := keys.conversations("u1")
	if err != nil {
		t.Fatalf("conversations failed: %v", err)
	}
	if got != "finance-agent:conversations:u1" {
		t.Errorf("Unexpected conversations key %q", got)
	}
}

func TestKeySpace_InvalidUser(t *testing.T) {
	keys := keySpace{prefix: "p:"}

	for _, userID := range []string{"", " u1", "u1\n", "a\x00b", strings.Repeat("x", maxKeyLength)} {
		if _, err := keys.conversations(userID); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Expected ErrInvalidKey for %q, got %v", userID, err)
		}
	}
}

func TestNewClient_NoAddress(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Error("Expected error without address")
	}
}

func setupTestRedis(t *testing.T) *Client {
	t.Helper()

	config := DefaultConfig()
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		config.Addr = addr
	}
	config.KeyPrefix = "test:" + uuid.NewString() + ":"
	config.DialTimeout = time.Second

	c, err := NewClient(config)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSnapshotCache_ReadThrough(t *testing.T) {
	c := setupTestRedis(t)
	ctx := context.Background()

	backend := &mock.Source{
		FetchAllFunc: func(ctx context.Context) ([]finance.Record, error) {
			return finance.SampleRecords(), nil
		},
	}
	cache := NewSnapshotCache(c, backend, time.Minute)
	defer cache.Invalidate(ctx)

	first, err := cache.FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	second, err := cache.FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}

	if backend.FetchCalls() != 1 {
		t.Errorf("Expected 1 backend read, got %d", backend.FetchCalls())
	}
	if len(second) != len(first) || !second[0].Amount.Equal(first[0].Amount) || second[2].Category != "Utilities" {
		t.Errorf("Cached snapshot differs: %+v", second)
	}

	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	cache.FetchAll(ctx)
	if backend.FetchCalls() != 2 {
		t.Errorf("Expected backend read after invalidate, got %d", backend.FetchCalls())
	}
}

func TestSnapshotCache_BackendError(t *testing.T) {
	c := setupTestRedis(t)

	backend := &mock.Source{
		FetchAllFunc: func(ctx context.Context) ([]finance.Record, error) {
			return nil, store.ErrUnavailable
		},
	}
	cache := NewSnapshotCache(c, backend, time.Minute)

	if _, err := cache.FetchAll(context.Background()); !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
}

func TestConversationLog(t *testing.T) {
	c := setupTestRedis(t)
	ctx := context.Background()
	log := NewConversationLog(c)

	for i, content := range []string{"one", "two", "three"} {
		err := log.SaveConversation(ctx, store.ConversationRecord{
			ID:        uuid.NewString(),
			UserID:    "u1",
			Role:      "user",
			Content:   content,
			CreatedAt: time.Unix(int64(i), 0).UTC(),
		})
		if err != nil {
			t.Fatalf("SaveConversation failed: %v", err)
		}
	}

	recent, err := log.Recent(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 2 || recent[0].Content != "two" || recent[1].Content != "three" {
		t.Errorf("Unexpected recent records: %+v", recent)
	}
}
