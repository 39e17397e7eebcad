// Package sinks provides progress.Sink implementations.
package sinks

import (
	"go.uber.org/zap"

	"github.com/fedistat/blockwatch/internal/progress"
)

// LogSink emits a structured log line per node completion. Skips are logged
// at Debug since they are the common case on an open population; successes
// carrying data are logged at Debug too to keep Info for run milestones.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs the event using structured fields.
func (s *LogSink) Consume(evt progress.Event) {
	s.logger.Debug("node probed",
		zap.String("run_id", evt.RunID),
		zap.String("node", evt.Node),
		zap.String("outcome", evt.Outcome()),
		zap.Int("rules", evt.Rules),
		zap.Duration("dur", evt.Dur),
	)
}
