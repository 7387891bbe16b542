// Package sinks holds the notification sinks: the structured log, a Redis
// channel and a Kafka topic.
package sinks

import (
	"context"
	"log/slog"

	"aurum/pkg/platform/audit"
)

// LogSink writes one line per entry. Incidents are logged at warn level so
// they surface in alerting on log severity.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(ctx context.Context, entries []audit.Entry) error {
	for _, e := range entries {
		level := slog.LevelInfo
		if e.IsOpen() {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, "audit notification",
			"event", string(e.Action),
			"category", string(e.Category),
			"seq", e.Seq,
			"status", string(e.Status),
			"performed_by", e.PerformedBy,
			"role", e.Role.String(),
			"details", e.Details,
		)
	}
	return nil
}
