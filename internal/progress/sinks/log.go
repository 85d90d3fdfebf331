// Package sinks provides Sink implementations for the progress hub.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/pagelens/crawler/internal/progress"
)

// LogSink emits structured logs for progress streams. It is the default way
// a caller observes parsed-page artifacts without attaching a store.
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

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.logger.Info("progress event",
			zap.String("job_id", evt.JobID),
			zap.String("stage", string(evt.Stage)),
			zap.String("url", evt.URL),
			zap.String("site", evt.Site),
			zap.String("status_class", string(evt.StatusClass)),
			zap.String("title", evt.Title),
			zap.Int("links", evt.Links),
			zap.Int64("bytes", evt.Bytes),
			zap.Duration("dur", evt.Dur),
			zap.String("result", evt.Result),
			zap.String("note", evt.Note),
		)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
