// Package event defines the domain event envelope and the buffer
// aggregates use to record events until they are pulled for publication.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Event kinds, also used to derive broker topic names.
const (
	ConversationCreated   = "conversation.created"
	ConversationTruncated = "conversation.truncated"
	MessageCreated        = "message.created"
	MessageUpdated        = "message.updated"
)

// Event is an immutable record that something happened to an aggregate.
// Identity and OccurredOn are assigned at construction and never change;
// two events are equal iff their identities match.
type Event struct {
	ID          uuid.UUID
	Kind        string
	AggregateID string
	OccurredOn  time.Time
	Payload     map[string]string
}

func New(kind, aggregateID string, payload map[string]string) Event {
	return Event{
		ID:          uuid.New(),
		Kind:        kind,
		AggregateID: aggregateID,
		OccurredOn:  time.Now().UTC(),
		Payload:     payload,
	}
}

func (e Event) Equal(other Event) bool { return e.ID == other.ID }

// Recorder buffers events recorded by an aggregate. The zero value is
// ready to use; aggregates embed it.
type Recorder struct {
	pending []Event
}

func (r *Recorder) Record(e Event) { r.pending = append(r.pending, e) }

// PullEvents drains the buffer and returns its contents in recording
// order. Subsequent calls return nil until new events are recorded.
func (r *Recorder) PullEvents() []Event {
	events := r.pending
	r.pending = nil
	return events
}

func (r *Recorder) HasEvents() bool { return len(r.pending) > 0 }

// Source is anything whose pending events can be drained.
type Source interface {
	PullEvents() []Event
}
