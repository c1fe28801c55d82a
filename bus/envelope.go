package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"chat-relay/domain/event"
	chaterrors "chat-relay/errors"
)

// wireEnvelope is the serialized event form shared by producer and
// consumer. OccurredOn marshals as RFC 3339.
type wireEnvelope struct {
	EventKind   string            `json:"event_kind"`
	AggregateID *string           `json:"aggregate_id"`
	OccurredOn  time.Time         `json:"occurred_on"`
	Payload     map[string]string `json:"payload"`
}

func encodeEvent(evt event.Event) ([]byte, error) {
	envelope := wireEnvelope{
		EventKind:  evt.Kind,
		OccurredOn: evt.OccurredOn,
		Payload:    evt.Payload,
	}
	if evt.AggregateID != "" {
		aggregateID := evt.AggregateID
		envelope.AggregateID = &aggregateID
	}
	encoded, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("encoding %s event: %v: %w", evt.Kind, err, chaterrors.ErrSerializationFailure)
	}
	return encoded, nil
}

// decodeEvent reconstructs a domain event from the wire. The wire
// carries no event identity, so the reconstructed event gets a fresh one.
func decodeEvent(data []byte) (event.Event, error) {
	var envelope wireEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return event.Event{}, fmt.Errorf("decoding event: %v: %w", err, chaterrors.ErrSerializationFailure)
	}
	if envelope.EventKind == "" {
		return event.Event{}, fmt.Errorf("decoding event: missing event_kind: %w", chaterrors.ErrSerializationFailure)
	}
	var aggregateID string
	if envelope.AggregateID != nil {
		aggregateID = *envelope.AggregateID
	}
	evt := event.New(envelope.EventKind, aggregateID, envelope.Payload)
	evt.OccurredOn = envelope.OccurredOn
	return evt, nil
}
