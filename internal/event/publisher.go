// Package event defines the domain events emitted while a contract wizard
// runs. Events are handed to a Publisher, normally the in-process event bus.
package event

import "context"

// Publisher sends domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt DomainEvent)
}

// Discard is a Publisher that drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(context.Context, DomainEvent) {}
