// Package snapshot holds the transaction buffer and its time-based refresh
// guard.
package snapshot

import (
	"context"
	"sync"
	"time"

	"finance-agent/pkg/finance"
	"finance-agent/pkg/logging"
	"finance-agent/pkg/metrics"
	"finance-agent/pkg/store"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const refreshKey = "refresh"

// DefaultInterval is the maximum age of a snapshot before it is refetched.
const DefaultInterval = 300 * time.Second

// Snapshot is the buffer contents at one refresh. Records must be treated as
// read-only.
type Snapshot struct {
	Records     []finance.Record
	RefreshedAt time.Time
	// Fallback is set when the source failed and sample records were substituted
	Fallback bool
}

// Config configures a Buffer.
type Config struct {
	// Interval is the maximum snapshot age (default: 300s)
	Interval time.Duration
	// Metrics defaults to a no-op collector
	Metrics metrics.MetricsCollector
	// Now defaults to time.Now
	Now func() time.Time
}

// Buffer caches the record store contents and refetches them at most once
// per interval. Concurrent stale callers share one fetch.
type Buffer struct {
	source   store.Source
	interval time.Duration
	metrics  metrics.MetricsCollector
	now      func() time.Time
	logger   *logging.Logger
	sf       singleflight.Group

	mu      sync.RWMutex
	current *Snapshot
	stale   bool
	// gen counts invalidations; storedGen is the gen the current snapshot
	// was fetched under.
	gen       uint64
	storedGen uint64
	watchers  []func(Snapshot)
}

// New creates a buffer over source. Nothing is fetched until the first Current.
func New(source store.Source, config Config) *Buffer {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.Metrics == nil {
		config.Metrics = metrics.NoOpCollector{}
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Buffer{
		source:   source,
		interval: config.Interval,
		metrics:  config.Metrics,
		now:      config.Now,
		logger:   logging.L().Named("snapshot").With(zap.String("source", source.Name())),
	}
}

// Current returns the buffered snapshot, refetching first when none exists,
// it was invalidated, or it is older than the interval. It never fails: a
// source error yields the fallback sample records.
func (b *Buffer) Current(ctx context.Context) Snapshot {
	b.mu.RLock()
	cur, stale := b.current, b.stale
	b.mu.RUnlock()

	if cur != nil && !stale && b.now().Sub(cur.RefreshedAt) <= b.interval {
		return *cur
	}

	// The shared fetch must not be canceled by whichever caller started it.
	fetchCtx := context.WithoutCancel(ctx)
	result, _, _ := b.sf.Do(refreshKey, func() (interface{}, error) {
		return b.refresh(fetchCtx), nil
	})
	return result.(Snapshot)
}

// Refresh invalidates the buffer and any cache behind the source, then
// refetches.
func (b *Buffer) Refresh(ctx context.Context) Snapshot {
	if inv, ok := b.source.(store.Invalidator); ok {
		if err := inv.Invalidate(ctx); err != nil {
			b.logger.Warn("Source cache invalidation failed", zap.Error(err))
		}
	}
	b.Invalidate()
	// A fetch already in flight started before the invalidation.
	b.sf.Forget(refreshKey)
	return b.Current(ctx)
}

// Invalidate forces the next Current to refetch. The previous snapshot stays
// visible through Last until then.
func (b *Buffer) Invalidate() {
	b.mu.Lock()
	b.stale = true
	b.gen++
	b.mu.Unlock()
}

// Last returns the most recent snapshot without fetching.
func (b *Buffer) Last() (Snapshot, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.current == nil {
		return Snapshot{}, false
	}
	return *b.current, true
}

// Watch registers fn to be called after every refresh.
func (b *Buffer) Watch(fn func(Snapshot)) {
	b.mu.Lock()
	b.watchers = append(b.watchers, fn)
	b.mu.Unlock()
}

func (b *Buffer) refresh(ctx context.Context) Snapshot {
	b.mu.RLock()
	startGen := b.gen
	b.mu.RUnlock()

	b.logger.Info("Refreshing transaction data")
	start := time.Now()

	records, err := b.source.FetchAll(ctx)
	duration := time.Since(start)

	snap := Snapshot{RefreshedAt: b.now()}
	if err != nil {
		b.metrics.RecordRefresh(b.source.Name(), false, 0, duration)
		b.metrics.RecordFallback(b.source.Name())
		b.logger.Warn("Record store unavailable, using sample data",
			zap.String("error_type", store.ClassifyError(err)),
			zap.Error(err),
		)
		snap.Records = finance.SampleRecords()
		snap.Fallback = true
	} else {
		if records == nil {
			records = []finance.Record{}
		}
		b.metrics.RecordRefresh(b.source.Name(), true, len(records), duration)
		b.logger.Info("Loaded transactions",
			zap.Int("count", len(records)),
			zap.Duration("duration", duration),
		)
		snap.Records = records
	}

	b.mu.Lock()
	if b.current != nil && startGen < b.storedGen {
		// A fetch started after an invalidation has already landed.
		newer := *b.current
		b.mu.Unlock()
		return newer
	}
	b.current = &snap
	b.storedGen = startGen
	b.stale = startGen != b.gen
	watchers := make([]func(Snapshot), len(b.watchers))
	copy(watchers, b.watchers)
	b.mu.Unlock()

	for _, fn := range watchers {
		fn(snap)
	}

	return snap
}

// Close closes the source.
func (b *Buffer) Close() error {
	return b.source.Close()
}
