package repositories

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-relay/domain"
)

func Test_Conversation_Save_And_FindByID_Roundtrip(t *testing.T) {
	req := require.New(t)
	repository := NewConversationRepository(openTestDB(t), slog.Default())

	conversation := domain.NewConversation("c1", "alice")
	req.NoError(repository.Save(conversation))

	fetched, err := repository.FindByID("c1")
	req.NoError(err)
	req.NotNil(fetched)
	req.Equal(domain.ConversationID("c1"), fetched.ID())
	req.Equal(domain.Owner("alice"), fetched.Owner())
	req.Nil(fetched.LastMessageID())
	// Rehydration never replays events.
	req.False(fetched.HasEvents())
}

func Test_Conversation_LastMessageID_Survives_Roundtrip(t *testing.T) {
	req := require.New(t)
	repository := NewConversationRepository(openTestDB(t), slog.Default())

	conversation := domain.NewConversation("c1", "alice")
	conversation.UpdateLastMessage("m7")
	req.NoError(repository.Save(conversation))

	fetched, err := repository.FindByID("c1")
	req.NoError(err)
	req.NotNil(fetched.LastMessageID())
	req.Equal(domain.MessageID("m7"), *fetched.LastMessageID())
}

func Test_Conversation_FindByID_Absent_Returns_Nil(t *testing.T) {
	req := require.New(t)
	repository := NewConversationRepository(openTestDB(t), slog.Default())

	fetched, err := repository.FindByID("nope")
	req.NoError(err)
	req.Nil(fetched)
}
