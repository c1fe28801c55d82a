package domain

import (
	"time"

	"chat-relay/domain/event"
)

// Message is an aggregate bound to one conversation for its whole
// lifetime; the id never changes which logical message it refers to.
type Message struct {
	event.Recorder
	id             MessageID
	conversationID ConversationID
	content        Content
	createdAt      time.Time
	updatedAt      time.Time
	deleted        bool
}

// NewMessage stamps the current time and records a message.created event.
func NewMessage(id MessageID, conversationID ConversationID, content Content) *Message {
	now := time.Now().UTC()
	m := &Message{
		id:             id,
		conversationID: conversationID,
		content:        content,
		createdAt:      now,
		updatedAt:      now,
	}
	m.Record(event.NewMessageCreated(id.String(), conversationID.String(), content.String()))
	return m
}

// RehydrateMessage rebuilds a persisted message without recording any event.
func RehydrateMessage(id MessageID, conversationID ConversationID, content Content, createdAt, updatedAt time.Time, deleted bool) *Message {
	return &Message{
		id:             id,
		conversationID: conversationID,
		content:        content,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
		deleted:        deleted,
	}
}

func (m *Message) ID() MessageID                 { return m.id }
func (m *Message) ConversationID() ConversationID { return m.conversationID }
func (m *Message) Content() Content              { return m.content }
func (m *Message) CreatedAt() time.Time          { return m.createdAt }
func (m *Message) UpdatedAt() time.Time          { return m.updatedAt }
func (m *Message) Deleted() bool                 { return m.deleted }

// UpdateContent replaces the content and records a message.updated
// event. Unchanged content is a no-op, which keeps repeated upserts of
// the same payload idempotent.
func (m *Message) UpdateContent(content Content) {
	if content == m.content {
		return
	}
	m.content = content
	m.updatedAt = time.Now().UTC()
	m.Record(event.NewMessageUpdated(m.id.String(), m.conversationID.String(), content.String()))
}

// SoftDelete marks the message deleted so reads exclude it. No event is
// recorded; consumers learn of removals via conversation.truncated.
func (m *Message) SoftDelete() {
	if m.deleted {
		return
	}
	m.deleted = true
	m.updatedAt = time.Now().UTC()
}
