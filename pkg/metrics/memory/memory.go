package memory

import (
	"sync"
	"time"

	"finance-agent/pkg/metrics"
)

// MemoryCollector implements MetricsCollector for in-memory testing and the
// JSON metrics endpoint.
type MemoryCollector struct {
	mu sync.RWMutex

	generations map[string]*GenerationMetrics
	sources     map[string]*SourceMetrics
	sinks       map[string]*SinkMetrics
	circuits    map[string]metrics.CircuitState
}

// GenerationMetrics holds metrics for one generation provider.
type GenerationMetrics struct {
	Calls        int64
	Failures     int64
	ErrorsByType map[string]int64
	Latencies    []time.Duration
}

// SourceMetrics holds metrics for one record source.
type SourceMetrics struct {
	Refreshes   int64
	Failures    int64
	Fallbacks   int64
	LastRecords int
}

// SinkMetrics holds metrics for one conversation sink.
type SinkMetrics struct {
	QueueDepth    int
	DroppedWrites int64
	Writes        int64
	WriteErrors   int64
}

// NewMemoryCollector creates a new in-memory metrics collector.
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{
		generations: make(map[string]*GenerationMetrics),
		sources:     make(map[string]*SourceMetrics),
		sinks:       make(map[string]*SinkMetrics),
		circuits:    make(map[string]metrics.CircuitState),
	}
}

// generation must be called with mu held.
func (mc *MemoryCollector) generation(provider string) *GenerationMetrics {
	gm, ok := mc.generations[provider]
	if !ok {
		gm = &GenerationMetrics{ErrorsByType: make(map[string]int64)}
		mc.generations[provider] = gm
	}
	return gm
}

// source must be called with mu held.
func (mc *MemoryCollector) source(name string) *SourceMetrics {
	sm, ok := mc.sources[name]
	if !ok {
		sm = &SourceMetrics{}
		mc.sources[name] = sm
	}
	return sm
}

// sink must be called with mu held.
func (mc *MemoryCollector) sink(name string) *SinkMetrics {
	sm, ok := mc.sinks[name]
	if !ok {
		sm = &SinkMetrics{}
		mc.sinks[name] = sm
	}
	return sm
}

// RecordGeneration records a generation endpoint call.
func (mc *MemoryCollector) RecordGeneration(provider string, success bool, errorType string, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	gm := mc.generation(provider)
	gm.Calls++
	if !success {
		gm.Failures++
		gm.ErrorsByType[errorType]++
	}
	gm.Latencies = append(gm.Latencies, duration)
}

// RecordRefresh records a transaction refresh.
func (mc *MemoryCollector) RecordRefresh(source string, success bool, records int, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	sm := mc.source(source)
	sm.Refreshes++
	if success {
		sm.LastRecords = records
	} else {
		sm.Failures++
	}
}

// RecordFallback records a substitution of sample data.
func (mc *MemoryCollector) RecordFallback(source string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.source(source).Fallbacks++
}

// RecordCircuitState records the current circuit breaker state.
func (mc *MemoryCollector) RecordCircuitState(name string, state metrics.CircuitState) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.circuits[name] = state
}

// RecordQueueDepth records the current conversation writer queue depth.
func (mc *MemoryCollector) RecordQueueDepth(sink string, depth int) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.sink(sink).QueueDepth = depth
}

// RecordWriteDropped records a dropped conversation write.
func (mc *MemoryCollector) RecordWriteDropped(sink string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.sink(sink).DroppedWrites++
}

// RecordConversationWrite records a conversation write.
func (mc *MemoryCollector) RecordConversationWrite(sink string, success bool, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	sm := mc.sink(sink)
	sm.Writes++
	if !success {
		sm.WriteErrors++
	}
}

// Snapshot is a point-in-time copy of the collected metrics.
type Snapshot struct {
	Generations map[string]GenerationMetrics `json:"generations"`
	Sources     map[string]SourceMetrics     `json:"sources"`
	Sinks       map[string]SinkMetrics       `json:"sinks"`
	Circuits    map[string]string            `json:"circuits"`
}

// Snapshot returns a copy of the current metrics state.
func (mc *MemoryCollector) Snapshot() Snapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	snapshot := Snapshot{
		Generations: make(map[string]GenerationMetrics, len(mc.generations)),
		Sources:     make(map[string]SourceMetrics, len(mc.sources)),
		Sinks:       make(map[string]SinkMetrics, len(mc.sinks)),
		Circuits:    make(map[string]string, len(mc.circuits)),
	}

	for name, gm := range mc.generations {
		c := *gm
		c.ErrorsByType = make(map[string]int64, len(gm.ErrorsByType))
		for k, v := range gm.ErrorsByType {
			c.ErrorsByType[k] = v
		}
		c.Latencies = append([]time.Duration(nil), gm.Latencies...)
		snapshot.Generations[name] = c
	}
	for name, sm := range mc.sources {
		snapshot.Sources[name] = *sm
	}
	for name, sm := range mc.sinks {
		snapshot.Sinks[name] = *sm
	}
	for name, state := range mc.circuits {
		snapshot.Circuits[name] = state.String()
	}

	return snapshot
}

// Reset clears all collected metrics.
func (mc *MemoryCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.generations = make(map[string]*GenerationMetrics)
	mc.sources = make(map[string]*SourceMetrics)
	mc.sinks = make(map[string]*SinkMetrics)
	mc.circuits = make(map[string]metrics.CircuitState)
}

// CircuitState returns the last recorded state of the named breaker.
func (mc *MemoryCollector) CircuitState(name string) (metrics.CircuitState, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	state, ok := mc.circuits[name]
	return state, ok
}
