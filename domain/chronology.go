package domain

// TrailingMessageFinder is the slice of the message repository the
// chronology checker needs.
type TrailingMessageFinder interface {
	FindMessagesAfter(conversationID ConversationID, messageID MessageID) ([]MessageID, error)
}

// ChronologyChecker answers which live messages come after a given
// position in a conversation. Pure read, no side effects. The order it
// observes is the repository's total order over messages, the same one
// pagination uses.
type ChronologyChecker struct {
	messages TrailingMessageFinder
}

func NewChronologyChecker(messages TrailingMessageFinder) ChronologyChecker {
	return ChronologyChecker{messages: messages}
}

func (c ChronologyChecker) MessagesAfter(conversationID ConversationID, messageID MessageID) ([]MessageID, error) {
	return c.messages.FindMessagesAfter(conversationID, messageID)
}

// CanInsert reports whether a message can take this position without
// invalidating anything recorded after it.
func (c ChronologyChecker) CanInsert(conversationID ConversationID, messageID MessageID) (bool, error) {
	trailing, err := c.messages.FindMessagesAfter(conversationID, messageID)
	if err != nil {
		return false, err
	}
	return len(trailing) == 0, nil
}
