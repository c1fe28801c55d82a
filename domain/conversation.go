package domain

import (
	"time"

	"chat-relay/domain/event"
)

// Conversation is the aggregate owning the ordered message set. The
// owner is fixed at creation; last message id is a back-reference used
// for quick lookup only.
type Conversation struct {
	event.Recorder
	id            ConversationID
	owner         Owner
	createdAt     time.Time
	updatedAt     time.Time
	lastMessageID *MessageID
}

// NewConversation stamps the current time and records a
// conversation.created event.
func NewConversation(id ConversationID, owner Owner) *Conversation {
	now := time.Now().UTC()
	c := &Conversation{
		id:        id,
		owner:     owner,
		createdAt: now,
		updatedAt: now,
	}
	c.Record(event.NewConversationCreated(id.String(), owner.String()))
	return c
}

// RehydrateConversation rebuilds a persisted conversation without
// recording any event.
func RehydrateConversation(id ConversationID, owner Owner, createdAt, updatedAt time.Time, lastMessageID *MessageID) *Conversation {
	return &Conversation{
		id:            id,
		owner:         owner,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
		lastMessageID: lastMessageID,
	}
}

func (c *Conversation) ID() ConversationID   { return c.id }
func (c *Conversation) Owner() Owner         { return c.owner }
func (c *Conversation) CreatedAt() time.Time { return c.createdAt }
func (c *Conversation) UpdatedAt() time.Time { return c.updatedAt }

// LastMessageID is nil until at least one message has been upserted.
func (c *Conversation) LastMessageID() *MessageID {
	if c.lastMessageID == nil {
		return nil
	}
	id := *c.lastMessageID
	return &id
}

func (c *Conversation) UpdateLastMessage(id MessageID) {
	c.lastMessageID = &id
	c.updatedAt = time.Now().UTC()
}

// RecordTruncated notes that every message after fromMessageID was
// removed from the conversation.
func (c *Conversation) RecordTruncated(fromMessageID MessageID) {
	c.Record(event.NewConversationTruncated(c.id.String(), fromMessageID.String()))
}
