package events

import (
	"context"
	"log/slog"
)

// LoggerPublisher is a stub publisher that writes events to the structured
// logger. Used when no broker is configured.
type LoggerPublisher struct {
	logger *slog.Logger
}

// NewLoggerPublisher constructs a logging publisher stub.
func NewLoggerPublisher(logger *slog.Logger) *LoggerPublisher {
	return &LoggerPublisher{logger: logger}
}

// Publish writes the event to the logger.
func (p *LoggerPublisher) Publish(_ context.Context, event MovementRecorded) error {
	if p == nil || p.logger == nil {
		return nil
	}
	p.logger.Info("movement recorded",
		"movement_id", event.MovementID,
		"account_id", event.AccountID,
		"kind", event.Kind,
		"amount", event.Amount.String(),
	)
	return nil
}
