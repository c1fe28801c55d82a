//go:generate go run go.uber.org/mock/mockgen -source=bus.go -destination=../mocks/mock_bus.go -package=mocks

// Package bus disseminates domain events: it buffers nothing itself,
// but serializes pulled aggregate events onto broker topics and fans
// consumed events out to registered listeners, at-least-once.
package bus

import (
	"context"

	"chat-relay/domain/event"
)

// Listener handles events delivered from the broker. A listener error
// is contained and logged; it never stops the consumption loop.
type Listener interface {
	Handle(ctx context.Context, evt event.Event) error
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ctx context.Context, evt event.Event) error

func (f ListenerFunc) Handle(ctx context.Context, evt event.Event) error {
	return f(ctx, evt)
}

type EventBus interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	// Publish sends events in order; event i completes before i+1 within
	// one call. Cross-call ordering is not guaranteed.
	Publish(ctx context.Context, events []event.Event) error
	// Register adds a listener for an event kind; multiple listeners per
	// kind all get invoked on a matching delivery.
	Register(kind string, listener Listener)
}
