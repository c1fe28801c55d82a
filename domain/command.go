package domain

// Pagination limits enforced server-side regardless of what callers ask for.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type UpsertMessageCommand struct {
	ConversationID string
	MessageID      string
	Content        string
	Owner          string
}

type PaginateMessagesCommand struct {
	ConversationID string
	Cursor         *string
	Limit          int
}

// EffectiveLimit clamps the requested page size to [1, MaxPageLimit],
// defaulting when unspecified.
func (c PaginateMessagesCommand) EffectiveLimit() int {
	if c.Limit <= 0 {
		return DefaultPageLimit
	}
	return min(c.Limit, MaxPageLimit)
}

// MessagePage is one page of live messages in the conversation's total
// order. HasMore is a heuristic: true iff the page is full, so callers
// may see one trailing empty page.
type MessagePage struct {
	Messages   []*Message
	NextCursor *string
	HasMore    bool
}
