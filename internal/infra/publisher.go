package infra

import (
	"log/slog"

	"github.com/nile-pay/nile_pay/internal/config"
	"github.com/nile-pay/nile_pay/internal/events"
)

// NewMovementPublisher selects the movement event transport: Kafka when
// brokers are configured, the logging fallback otherwise. The returned
// closer flushes the Kafka writer and is a no-op for the fallback.
func NewMovementPublisher(cfg config.Config, logger *slog.Logger) (events.Publisher, func() error) {
	if len(cfg.KafkaBrokers) > 0 {
		p := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		return p, p.Close
	}
	logger.Info("no kafka brokers configured, movement events go to the log")
	return events.NewLoggerPublisher(logger), func() error { return nil }
}
