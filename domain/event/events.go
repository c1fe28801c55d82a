package event

// NewConversationCreated marks the creation of a conversation for an owner.
func NewConversationCreated(conversationID, owner string) Event {
	return New(ConversationCreated, conversationID, map[string]string{
		"conversation_id": conversationID,
		"owner":           owner,
	})
}

// NewConversationTruncated marks the removal of every message
// chronologically after fromMessageID in a conversation.
func NewConversationTruncated(conversationID, fromMessageID string) Event {
	return New(ConversationTruncated, conversationID, map[string]string{
		"conversation_id": conversationID,
		"from_message_id": fromMessageID,
	})
}

func NewMessageCreated(messageID, conversationID, content string) Event {
	return New(MessageCreated, messageID, map[string]string{
		"message_id":      messageID,
		"conversation_id": conversationID,
		"content":         content,
	})
}

func NewMessageUpdated(messageID, conversationID, newContent string) Event {
	return New(MessageUpdated, messageID, map[string]string{
		"message_id":      messageID,
		"conversation_id": conversationID,
		"new_content":     newContent,
	})
}
