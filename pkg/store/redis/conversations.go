package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"finance-agent/pkg/store"
)

// ConversationLog appends conversation turns to a per-user Redis list.
type ConversationLog struct {
	client *Client
}

var _ store.ConversationSink = (*ConversationLog)(nil)

// NewConversationLog creates a log on client.
func NewConversationLog(client *Client) *ConversationLog {
	return &ConversationLog{client: client}
}

// Name implements store.ConversationSink.
func (l *ConversationLog) Name() string {
	return "redis"
}

// SaveConversation RPUSHes the JSON-encoded record.
func (l *ConversationLog) SaveConversation(ctx context.Context, rec store.ConversationRecord) error {
	key, err := l.client.keys.conversations(rec.UserID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis rpush: failed to marshal: %w", err)
	}

	rc := l.client.client
	if err := rc.Do(ctx, rc.B().Rpush().Key(key).Element(string(data)).Build()).Error(); err != nil {
		return fmt.Errorf("redis rpush: %w", err)
	}
	return nil
}

// Recent returns up to n of the newest records for userID, oldest first.
func (l *ConversationLog) Recent(ctx context.Context, userID string, n int) ([]store.ConversationRecord, error) {
	key, err := l.client.keys.conversations(userID)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return []store.ConversationRecord{}, nil
	}

	rc := l.client.client
	items, err := rc.Do(ctx, rc.B().Lrange().Key(key).Start(int64(-n)).Stop(-1).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}

	out := make([]store.ConversationRecord, 0, len(items))
	for _, item := range items {
		var rec store.ConversationRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("redis lrange: failed to unmarshal: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}
