// Package projection builds local read models from events delivered by
// the bus. It never emits events and never touches the repositories.
package projection

import (
	"context"
	"sort"
	"sync"
	"time"

	"chat-relay/domain/event"
)

type TimelineEntry struct {
	MessageID string
	Content   string
	At        time.Time
}

// Timeline keeps the live messages of each conversation as observed
// from the event stream, ordered by message id like the source of
// truth. Deliveries are at-least-once, so duplicates replace in place.
// Safe for concurrent use; Handle runs on the bus consumption path.
type Timeline struct {
	mu            sync.RWMutex
	conversations map[string][]TimelineEntry
}

func NewTimeline() *Timeline {
	return &Timeline{conversations: make(map[string][]TimelineEntry)}
}

// Handle implements bus.Listener.
func (t *Timeline) Handle(_ context.Context, evt event.Event) error {
	switch evt.Kind {
	case event.MessageCreated:
		t.upsert(evt.Payload["conversation_id"], evt.Payload["message_id"], evt.Payload["content"], evt.OccurredOn)
	case event.MessageUpdated:
		t.upsert(evt.Payload["conversation_id"], evt.Payload["message_id"], evt.Payload["new_content"], evt.OccurredOn)
	case event.ConversationTruncated:
		t.truncate(evt.Payload["conversation_id"], evt.Payload["from_message_id"])
	}
	return nil
}

// Messages returns a copy of the timeline for a conversation.
func (t *Timeline) Messages(conversationID string) []TimelineEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entries := t.conversations[conversationID]
	out := make([]TimelineEntry, len(entries))
	copy(out, entries)
	return out
}

func (t *Timeline) upsert(conversationID, messageID, content string, at time.Time) {
	if conversationID == "" || messageID == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	entries := t.conversations[conversationID]
	for i, entry := range entries {
		if entry.MessageID == messageID {
			entries[i].Content = content
			entries[i].At = at
			return
		}
	}
	entries = append(entries, TimelineEntry{MessageID: messageID, Content: content, At: at})
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].MessageID < entries[j].MessageID
	})
	t.conversations[conversationID] = entries
}

// truncate drops every entry after fromMessageID, mirroring the
// soft-deletion the source of truth performed.
func (t *Timeline) truncate(conversationID, fromMessageID string) {
	if conversationID == "" || fromMessageID == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	entries := t.conversations[conversationID]
	kept := entries[:0]
	for _, entry := range entries {
		if entry.MessageID <= fromMessageID {
			kept = append(kept, entry)
		}
	}
	t.conversations[conversationID] = kept
}
