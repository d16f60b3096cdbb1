package eventbus

import (
	"context"

	"go.uber.org/zap"

	"github.com/matthewbaird/contractwizard/internal/event"
)

// LogConsumer logs all domain events for observability.
type LogConsumer struct {
	log *zap.Logger
}

func NewLogConsumer(log *zap.Logger) *LogConsumer {
	return &LogConsumer{log: log.Named("event")}
}

func (c *LogConsumer) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	c.log.Info(evt.Summary,
		zap.String("event_type", evt.EventType),
		zap.String("event_id", evt.ID),
		zap.String("session_id", evt.SessionID),
		zap.String("weight", evt.Weight),
		zap.String("polarity", evt.Polarity),
		zap.Time("occurred_at", evt.OccurredAt),
	)
	return nil
}
