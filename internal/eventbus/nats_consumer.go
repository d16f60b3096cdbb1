package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/matthewbaird/contractwizard/internal/event"
)

// SubjectPrefix is prepended to the event type to form the NATS subject.
const SubjectPrefix = "rentals.wizard"

// Subject returns the NATS subject an event type is published on.
func Subject(eventType string) string {
	return SubjectPrefix + "." + eventType
}

// Connect dials the NATS server at url.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("contractwizard"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	return nc, nil
}

// NATSConsumer republishes domain events as JSON on NATS subjects.
type NATSConsumer struct {
	conn *nats.Conn
}

// NewNATSConsumer creates a consumer publishing on conn.
func NewNATSConsumer(conn *nats.Conn) *NATSConsumer {
	return &NATSConsumer{conn: conn}
}

func (c *NATSConsumer) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", evt.EventType, err)
	}
	if err := c.conn.Publish(Subject(evt.EventType), data); err != nil {
		return fmt.Errorf("publishing %s: %w", evt.EventType, err)
	}
	return nil
}
