package prometheus

import (
	"time"

	"finance-agent/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements MetricsCollector for Prometheus.
type PrometheusCollector struct {
	namespace string

	// Generation
	generations       *prometheus.CounterVec
	generationErrors  *prometheus.CounterVec
	generationLatency *prometheus.HistogramVec

	// Record store
	refreshes      *prometheus.CounterVec
	fallbacks      *prometheus.CounterVec
	refreshRecords *prometheus.GaugeVec
	refreshLatency *prometheus.HistogramVec

	// Circuit breaker
	circuitOpens *prometheus.CounterVec
	circuitState *prometheus.GaugeVec

	// Conversation writer
	queueDepth    *prometheus.GaugeVec
	droppedWrites *prometheus.CounterVec
	writes        *prometheus.CounterVec
	writeLatency  *prometheus.HistogramVec
}

// NewPrometheusCollector creates a new Prometheus metrics collector.
func NewPrometheusCollector(namespace string) *PrometheusCollector {
	return &PrometheusCollector{
		namespace: namespace,
		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generation_requests_total",
				Help:      "Total number of generation endpoint calls per provider and status",
			},
			[]string{"provider", "status"},
		),
		generationErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generation_errors_total",
				Help:      "Total number of failed generation calls per provider and error type",
			},
			[]string{"provider", "error_type"},
		),
		generationLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Generation endpoint call latency",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
			},
			[]string{"provider"},
		),
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_refreshes_total",
				Help:      "Total number of transaction refreshes per source and status",
			},
			[]string{"source", "status"},
		),
		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_fallbacks_total",
				Help:      "Total number of times sample data replaced an unreachable source",
			},
			[]string{"source"},
		),
		refreshRecords: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "transactions_buffered",
				Help:      "Number of transactions loaded by the last successful refresh",
			},
			[]string{"source"},
		),
		refreshLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_refresh_duration_seconds",
				Help:      "Transaction refresh latency",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
			},
			[]string{"source"},
		),
		circuitOpens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_opens_total",
				Help:      "Total number of circuit breaker opens",
			},
			[]string{"name"},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_state",
				Help:      "Current circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"name"},
		),
		queueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "conversation_queue_depth",
				Help:      "Current conversation writer queue depth",
			},
			[]string{"sink"},
		),
		droppedWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conversation_dropped_writes_total",
				Help:      "Total number of conversation writes dropped due to backpressure",
			},
			[]string{"sink"},
		),
		writes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conversation_writes_total",
				Help:      "Total number of conversation writes per sink and status",
			},
			[]string{"sink", "status"},
		),
		writeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "conversation_write_duration_seconds",
				Help:      "Conversation write latency",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 15),
			},
			[]string{"sink"},
		),
	}
}

func (pc *PrometheusCollector) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		pc.generations,
		pc.generationErrors,
		pc.generationLatency,
		pc.refreshes,
		pc.fallbacks,
		pc.refreshRecords,
		pc.refreshLatency,
		pc.circuitOpens,
		pc.circuitState,
		pc.queueDepth,
		pc.droppedWrites,
		pc.writes,
		pc.writeLatency,
	}
}

// Register registers all metrics with the given Prometheus registerer.
func (pc *PrometheusCollector) Register(registry prometheus.Registerer) error {
	for _, collector := range pc.collectors() {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// RecordGeneration records a generation endpoint call.
func (pc *PrometheusCollector) RecordGeneration(provider string, success bool, errorType string, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
		pc.generationErrors.WithLabelValues(provider, errorType).Inc()
	}
	pc.generations.WithLabelValues(provider, status).Inc()
	pc.generationLatency.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordRefresh records a transaction refresh.
func (pc *PrometheusCollector) RecordRefresh(source string, success bool, records int, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	} else {
		pc.refreshRecords.WithLabelValues(source).Set(float64(records))
	}
	pc.refreshes.WithLabelValues(source, status).Inc()
	pc.refreshLatency.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordFallback records a substitution of sample data.
func (pc *PrometheusCollector) RecordFallback(source string) {
	pc.fallbacks.WithLabelValues(source).Inc()
}

// RecordCircuitState records the current circuit breaker state.
func (pc *PrometheusCollector) RecordCircuitState(name string, state metrics.CircuitState) {
	pc.circuitState.WithLabelValues(name).Set(float64(state))
	if state == metrics.CircuitOpen {
		pc.circuitOpens.WithLabelValues(name).Inc()
	}
}

// RecordQueueDepth records the current conversation writer queue depth.
func (pc *PrometheusCollector) RecordQueueDepth(sink string, depth int) {
	pc.queueDepth.WithLabelValues(sink).Set(float64(depth))
}

// RecordWriteDropped records a dropped conversation write.
func (pc *PrometheusCollector) RecordWriteDropped(sink string) {
	pc.droppedWrites.WithLabelValues(sink).Inc()
}

// RecordConversationWrite records a conversation write.
func (pc *PrometheusCollector) RecordConversationWrite(sink string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	pc.writes.WithLabelValues(sink, status).Inc()
	pc.writeLatency.WithLabelValues(sink).Observe(duration.Seconds())
}
