package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-relay/domain/event"
)

func TestNewMessage_RecordsCreatedEvent(t *testing.T) {
	req := require.New(t)

	message := NewMessage("m1", "c1", "hello")

	req.Equal(MessageID("m1"), message.ID())
	req.Equal(ConversationID("c1"), message.ConversationID())
	req.Equal(Content("hello"), message.Content())
	req.False(message.Deleted())

	events := message.PullEvents()
	req.Len(events, 1)
	req.Equal(event.MessageCreated, events[0].Kind)
	req.Equal("m1", events[0].AggregateID)
	req.Equal("m1", events[0].Payload["message_id"])
	req.Equal("c1", events[0].Payload["conversation_id"])
	req.Equal("hello", events[0].Payload["content"])
}

func TestMessage_UpdateContent_RecordsUpdatedEvent(t *testing.T) {
	req := require.New(t)
	message := RehydrateMessage("m1", "c1", "hello", time.Now().UTC(), time.Now().UTC(), false)

	message.UpdateContent("goodbye")

	req.Equal(Content("goodbye"), message.Content())
	events := message.PullEvents()
	req.Len(events, 1)
	req.Equal(event.MessageUpdated, events[0].Kind)
	req.Equal("goodbye", events[0].Payload["new_content"])
}

func TestMessage_UpdateContent_SameContentIsNoOp(t *testing.T) {
	req := require.New(t)
	updatedAt := time.Now().UTC().Add(-time.Hour)
	message := RehydrateMessage("m1", "c1", "hello", updatedAt, updatedAt, false)

	message.UpdateContent("hello")

	req.False(message.HasEvents())
	req.Equal(updatedAt, message.UpdatedAt())
}

func TestMessage_SoftDelete_IsSilentAndIdempotent(t *testing.T) {
	req := require.New(t)
	message := RehydrateMessage("m1", "c1", "hello", time.Now().UTC(), time.Now().UTC(), false)

	message.SoftDelete()
	req.True(message.Deleted())
	req.False(message.HasEvents())

	firstDeletion := message.UpdatedAt()
	message.SoftDelete()
	req.Equal(firstDeletion, message.UpdatedAt())
}
