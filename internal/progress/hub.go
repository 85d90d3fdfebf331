package progress

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config controls buffering and batching for the Hub.
type Config struct {
	// BufferSize is the internal channel capacity (default 1024).
	BufferSize int
	// MaxBatchEvents flushes once this many events queue (default 256).
	MaxBatchEvents int
	// MaxBatchWait flushes after this duration even for small batches
	// (default 250ms).
	MaxBatchWait time.Duration
	// SinkTimeout bounds each sink call during a flush (default 5s).
	SinkTimeout time.Duration
	// Logger is used for drop warnings; nil means no logging.
	Logger *zap.Logger
}

const dropLogInterval = 5 * time.Second

// Hub aggregates events from crawl workers and fans them out to registered
// sinks. Emit never blocks the caller; under backpressure events are dropped
// and counted.
type Hub struct {
	cfg     Config
	sinks   []Sink
	events  chan Event
	stopCh  chan struct{}
	doneCh  chan struct{}
	logger  *zap.Logger
	dropped atomic.Int64
	lastLog atomic.Int64
	closed  atomic.Bool

	closeOnce sync.Once
}

// NewHub starts the background batching goroutine over the supplied sinks.
func NewHub(cfg Config, sinks ...Sink) *Hub {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.MaxBatchEvents <= 0 {
		cfg.MaxBatchEvents = 256
	}
	if cfg.MaxBatchWait <= 0 {
		cfg.MaxBatchWait = 250 * time.Millisecond
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	h := &Hub{
		cfg:    cfg,
		sinks:  append([]Sink(nil), sinks...),
		events: make(chan Event, cfg.BufferSize),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		logger: cfg.Logger,
	}
	go h.run()
	return h
}

// Emit enqueues an Event for batching. Invalid events are discarded; when
// the buffer is full the event is dropped with a rate-limited warning.
func (h *Hub) Emit(evt Event) {
	if h == nil || h.closed.Load() {
		return
	}
	if err := evt.Validate(); err != nil {
		h.logger.Debug("discarding invalid progress event", zap.Error(err))
		return
	}
	select {
	case h.events <- evt:
	default:
		h.dropped.Add(1)
		now := time.Now().UnixNano()
		last := h.lastLog.Load()
		if now-last >= int64(dropLogInterval) && h.lastLog.CompareAndSwap(last, now) {
			h.logger.Warn("progress events dropped due to backpressure",
				zap.Int64("dropped", h.dropped.Swap(0)))
		}
	}
}

// Close drains buffered events, flushes and closes sinks, and waits for the
// background goroutine to exit or the context to end.
func (h *Hub) Close(ctx context.Context) error {
	if h == nil {
		return nil
	}
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		close(h.stopCh)
	})
	select {
	case <-h.doneCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("progress hub close wait: %w", ctx.Err())
	}
}

func (h *Hub) run() {
	defer close(h.doneCh)
	batch := make([]Event, 0, h.cfg.MaxBatchEvents)
	ticker := time.NewTicker(h.cfg.MaxBatchWait)
	defer ticker.Stop()
	for {
		select {
		case evt := <-h.events:
			batch = append(batch, evt)
			if len(batch) >= h.cfg.MaxBatchEvents {
				h.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				h.flush(batch)
				batch = batch[:0]
			}
		case <-h.stopCh:
			h.drain(batch)
			return
		}
	}
}

// drain empties the channel after stop, flushes the remainder, and closes
// every sink.
func (h *Hub) drain(batch []Event) {
	for {
		select {
		case evt := <-h.events:
			batch = append(batch, evt)
			if len(batch) >= h.cfg.MaxBatchEvents {
				h.flush(batch)
				batch = batch[:0]
			}
		default:
			if len(batch) > 0 {
				h.flush(batch)
			}
			for _, sink := range h.sinks {
				ctx, cancel := context.WithTimeout(context.Background(), h.cfg.SinkTimeout)
				if err := sink.Close(ctx); err != nil {
					h.logger.Warn("progress sink close failed", zap.Error(err))
				}
				cancel()
			}
			return
		}
	}
}

func (h *Hub) flush(batch []Event) {
	for _, sink := range h.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.SinkTimeout)
		if err := sink.Consume(ctx, batch); err != nil {
			h.logger.Warn("progress sink consume failed", zap.Error(err))
		}
		cancel()
	}
}
