// Package writer persists conversation turns off the request path.
package writer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"finance-agent/pkg/logging"
	"finance-agent/pkg/metrics"
	"finance-agent/pkg/store"

	"go.uber.org/zap"
)

// ConversationWriter provides non-blocking conversation writes using a worker
// pool and bounded queue. Writes beyond the queue are dropped after
// MaxWaitTime so a slow store never stalls a chat request.
type ConversationWriter struct {
	sink       store.ConversationSink
	queue      chan store.ConversationRecord
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	config     Config
	metrics    metrics.MetricsCollector
	logger     *logging.Logger
	closeOnce  sync.Once

	// Statistics (accessed atomically)
	droppedWrites int64
	totalWrites   int64
	failedWrites  int64

	metricsTicker *time.Ticker
	metricsStop   chan struct{}
}

// Config configures the writer.
type Config struct {
	// QueueSize is the bounded queue size (default: 1000)
	QueueSize int

	// Workers is the number of concurrent workers (default: 2)
	Workers int

	// MaxWaitTime is the max time to wait if queue is full (default: 10ms)
	MaxWaitTime time.Duration

	// WriteTimeout bounds a single sink write (default: 5s)
	WriteTimeout time.Duration

	// MetricsInterval is how often queue depth is reported (default: 5s)
	MetricsInterval time.Duration
}

// New creates a writer and starts its workers. It must be closed with Close.
// A nil collector records nothing.
func New(sink store.ConversationSink, config Config, collector metrics.MetricsCollector) *ConversationWriter {
	if config.QueueSize <= 0 {
		config.QueueSize = 1000
	}
	if config.Workers <= 0 {
		config.Workers = 2
	}
	if config.MaxWaitTime <= 0 {
		config.MaxWaitTime = 10 * time.Millisecond
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}
	if config.MetricsInterval <= 0 {
		config.MetricsInterval = 5 * time.Second
	}
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := &ConversationWriter{
		sink:          sink,
		queue:         make(chan store.ConversationRecord, config.QueueSize),
		ctx:           ctx,
		cancelFunc:    cancel,
		config:        config,
		metrics:       collector,
		logger:        logging.L().Named("writer").With(zap.String("sink", sink.Name())),
		metricsTicker: time.NewTicker(config.MetricsInterval),
		metricsStop:   make(chan struct{}),
	}

	for i := 0; i < config.Workers; i++ {
		w.wg.Add(1)
		go w.worker()
	}

	go w.reportMetrics()

	return w
}

// Write enqueues rec. It returns ErrQueueFull if the record was dropped due
// to backpressure and ErrWriterClosed after Close.
func (w *ConversationWriter) Write(ctx context.Context, rec store.ConversationRecord) error {
	select {
	case <-w.ctx.Done():
		return ErrWriterClosed
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	timer := time.NewTimer(w.config.MaxWaitTime)
	defer timer.Stop()

	select {
	case w.queue <- rec:
		atomic.AddInt64(&w.totalWrites, 1)
		return nil
	case <-timer.C:
		atomic.AddInt64(&w.droppedWrites, 1)
		w.metrics.RecordWriteDropped(w.sink.Name())
		w.logger.Warn("Conversation write dropped", zap.String("user_id", rec.UserID))
		return ErrQueueFull
	case <-ctx.Done():
		return ctx.Err()
	case <-w.ctx.Done():
		return ErrWriterClosed
	}
}

func (w *ConversationWriter) worker() {
	defer w.wg.Done()

	for {
		select {
		case rec := <-w.queue:
			w.save(rec)
		case <-w.ctx.Done():
			// Drain remaining items before exiting.
			for {
				select {
				case rec := <-w.queue:
					w.save(rec)
				default:
					return
				}
			}
		}
	}
}

func (w *ConversationWriter) save(rec store.ConversationRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), w.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	err := w.sink.SaveConversation(ctx, rec)
	duration := time.Since(start)

	w.metrics.RecordConversationWrite(w.sink.Name(), err == nil, duration)

	if err != nil {
		atomic.AddInt64(&w.failedWrites, 1)
		w.logger.Error("Conversation write failed",
			zap.String("id", rec.ID),
			zap.String("error_type", store.ClassifyError(err)),
			zap.Error(err),
		)
	}
}

// Flush waits until the queue is empty or timeout elapses.
func (w *ConversationWriter) Flush(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		if len(w.queue) == 0 {
			return nil
		}

		if time.Now().After(deadline) {
			return ErrFlushTimeout
		}

		time.Sleep(10 * time.Millisecond)
	}
}

// Close stops accepting writes, drains the queue and waits for the workers.
func (w *ConversationWriter) Close() error {
	w.closeOnce.Do(func() {
		close(w.metricsStop)
		w.metricsTicker.Stop()
		w.cancelFunc()
		w.wg.Wait()
	})
	return nil
}

func (w *ConversationWriter) reportMetrics() {
	for {
		select {
		case <-w.metricsTicker.C:
			w.metrics.RecordQueueDepth(w.sink.Name(), len(w.queue))
		case <-w.metricsStop:
			return
		}
	}
}

// Stats returns current statistics about the writer.
func (w *ConversationWriter) Stats() Stats {
	return Stats{
		QueueDepth:    len(w.queue),
		DroppedWrites: atomic.LoadInt64(&w.droppedWrites),
		TotalWrites:   atomic.LoadInt64(&w.totalWrites),
		FailedWrites:  atomic.LoadInt64(&w.failedWrites),
	}
}
