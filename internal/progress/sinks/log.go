// Package sinks provides progress.Sink implementations.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/jadrxma/productfinder/internal/progress"
)

// LogSink emits structured logs for run progress. It carries the user-facing
// messages: per-URL processing lines, batch completions, and run summaries.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs the event using structured fields.
func (s *LogSink) Consume(_ context.Context, evt progress.Event) error {
	fields := []zap.Field{
		zap.String("run_id", evt.RunID),
		zap.String("stage", string(evt.Stage)),
	}
	if evt.Batch > 0 {
		fields = append(fields, zap.Int("batch", evt.Batch))
	}
	if evt.URL != "" {
		fields = append(fields,
			zap.String("url", evt.URL),
			zap.Int("url_index", evt.URLIndex),
			zap.Int("url_total", evt.URLTotal),
			zap.Float64("fraction", evt.Fraction),
		)
	}
	if evt.Records > 0 {
		fields = append(fields, zap.Int("records", evt.Records))
	}
	if evt.Dur > 0 {
		fields = append(fields, zap.Duration("elapsed", evt.Dur))
	}
	if evt.Note != "" {
		fields = append(fields, zap.String("note", evt.Note))
	}
	s.logger.Info("run progress", fields...)
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
