package progress

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config controls the Hub.
//   - SinkTimeout: per-sink timeout while delivering an event (default 5s).
//   - BaseContext: parent context passed to sink calls (defaults to
//     context.Background()).
//   - Logger: optional structured logger used for warnings.
type Config struct {
	SinkTimeout time.Duration
	BaseContext context.Context
	Logger      *zap.Logger
}

const defaultSinkTimeout = 5 * time.Second

// Hub fans progress events out to registered sinks. Delivery is synchronous:
// collection runs are single-threaded and low-volume, so there is nothing to
// buffer. A failing sink is logged and never fails the run.
type Hub struct {
	cfg    Config
	sinks  []Sink
	logger *zap.Logger

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

// NewHub initializes a Hub around the supplied sinks.
func NewHub(cfg Config, sinks ...Sink) *Hub {
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaultSinkTimeout
	}
	if cfg.BaseContext == nil {
		cfg.BaseContext = context.Background()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		cfg:    cfg,
		sinks:  append([]Sink(nil), sinks...),
		logger: logger,
	}
}

// Emit validates the event and delivers it to every sink. Invalid events are
// discarded with a debug log.
func (h *Hub) Emit(evt Event) {
	if h == nil {
		return
	}
	if err := evt.Validate(); err != nil {
		h.logger.Debug("discarding invalid progress event", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for _, sink := range h.sinks {
		if sink == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(h.cfg.BaseContext, h.cfg.SinkTimeout)
		if err := sink.Consume(ctx, evt); err != nil {
			h.logger.Warn("progress sink consume failed", zap.Error(err))
		}
		cancel()
	}
}

// Close shuts down the sinks. It is safe to call multiple times.
func (h *Hub) Close(ctx context.Context) error {
	if h == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		h.mu.Unlock()
		for _, sink := range h.sinks {
			if sink == nil {
				continue
			}
			if err := sink.Close(ctx); err != nil {
				h.logger.Warn("progress sink close failed", zap.Error(err))
			}
		}
	})
	return nil
}
