package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"finance-agent/pkg/finance"
	"finance-agent/pkg/logging"
	"finance-agent/pkg/store"

	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// SnapshotCache is a read-through cache in front of another store.Source.
// Several replicas behind a load balancer then share one backend read per
// TTL. Redis failures are logged and bypassed.
type SnapshotCache struct {
	client *Client
	next   store.Source
	ttl    time.Duration
	logger *logging.Logger
}

var _ store.Source = (*SnapshotCache)(nil)

// NewSnapshotCache wraps next. ttl should match the refresh interval.
func NewSnapshotCache(client *Client, next store.Source, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		client: client,
		next:   next,
		ttl:    ttl,
		logger: logging.L().Named("redis").Named("snapshot"),
	}
}

// Name reports the wrapped source so metrics stay keyed by backend.
func (c *SnapshotCache) Name() string {
	return c.next.Name()
}

// FetchAll returns the cached snapshot, or reads the wrapped source and
// stores the result.
func (c *SnapshotCache) FetchAll(ctx context.Context) ([]finance.Record, error) {
	records, err := c.get(ctx)
	if err == nil {
		return records, nil
	}
	if !errors.Is(err, store.ErrCacheMiss) {
		c.logger.Warn("Snapshot cache read failed", zap.Error(err))
	}

	records, err = c.next.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.set(ctx, records); err != nil {
		c.logger.Warn("Snapshot cache write failed", zap.Error(err))
	}
	return records, nil
}

// Invalidate drops the cached snapshot.
func (c *SnapshotCache) Invalidate(ctx context.Context) error {
	rc := c.client.client
	if err := rc.Do(ctx, rc.B().Del().Key(c.client.keys.snapshot()).Build()).Error(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// Close closes the wrapped source. The shared client is closed by its owner.
func (c *SnapshotCache) Close() error {
	return c.next.Close()
}

func (c *SnapshotCache) get(ctx context.Context) ([]finance.Record, error) {
	rc := c.client.client
	resp := rc.Do(ctx, rc.B().Get().Key(c.client.keys.snapshot()).Build())
	if err := resp.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, store.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	data, err := resp.AsBytes()
	if err != nil {
		return nil, fmt.Errorf("redis get: failed to read response: %w", err)
	}

	var records []finance.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("redis get: failed to unmarshal: %w", err)
	}
	return records, nil
}

func (c *SnapshotCache) set(ctx context.Context, records []finance.Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("redis set: failed to marshal: %w", err)
	}

	rc := c.client.client
	key := c.client.keys.snapshot()
	cmd := rc.B().Set().Key(key).Value(string(data)).Build()
	if c.ttl > 0 {
		cmd = rc.B().Set().Key(key).Value(string(data)).Ex(c.ttl).Build()
	}
	if err := rc.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
