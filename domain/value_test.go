package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	chaterrors "chat-relay/errors"
)

func TestNewContent(t *testing.T) {
	tests := []struct {
		description string
		raw         string
		wantErr     bool
	}{
		{"Should accept plain content", "hello there", false},
		{"Should accept content of exactly 1000 characters", strings.Repeat("a", 1000), false},
		{"Should count multi-byte characters as single runes", strings.Repeat("é", 1000), false},
		{"Should reject content of 1001 characters", strings.Repeat("a", 1001), true},
		{"Should reject empty content", "", true},
		{"Should reject whitespace-only content", "   \t\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			req := require.New(t)
			_, err := NewContent(tt.raw)
			if tt.wantErr {
				req.ErrorIs(err, chaterrors.ErrInvalidValue)
				return
			}
			req.NoError(err)
		})
	}
}

func TestNewContent_TrimsSurroundingWhitespace(t *testing.T) {
	req := require.New(t)
	content, err := NewContent("  hello  ")
	req.NoError(err)
	req.Equal("hello", content.String())
}

func TestIdentifiers_RejectBlank(t *testing.T) {
	req := require.New(t)

	_, err := NewConversationID("  ")
	req.ErrorIs(err, chaterrors.ErrInvalidValue)

	_, err = NewMessageID("")
	req.ErrorIs(err, chaterrors.ErrInvalidValue)

	_, err = NewOwner("\t")
	req.ErrorIs(err, chaterrors.ErrInvalidValue)
}

func TestIdentifiers_TrimSurroundingWhitespace(t *testing.T) {
	req := require.New(t)

	conversationID, err := NewConversationID(" c1 ")
	req.NoError(err)
	req.Equal("c1", conversationID.String())

	messageID, err := NewMessageID(" m1 ")
	req.NoError(err)
	req.Equal("m1", messageID.String())

	owner, err := NewOwner(" alice ")
	req.NoError(err)
	req.Equal("alice", owner.String())
}
