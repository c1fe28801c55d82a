//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"chat-relay/domain"
	"chat-relay/domain/event"
	chaterrors "chat-relay/errors"
	"chat-relay/repositories"
)

// Publisher hands drained aggregate events to the dissemination engine.
type Publisher interface {
	PublishEvents(ctx context.Context, events []event.Event) error
}

type IChatService interface {
	UpsertMessage(ctx context.Context, cmd domain.UpsertMessageCommand) error
	// GetConversation returns nil without error when absent.
	GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error)
	PaginateMessages(ctx context.Context, cmd domain.PaginateMessagesCommand) (domain.MessagePage, error)
}

type ChatService struct {
	log           *slog.Logger
	conversations repositories.IConversationRepository
	messages      repositories.IMessageRepository
	chronology    domain.ChronologyChecker
	publisher     Publisher
}

func NewChatService(
	log *slog.Logger,
	conversations repositories.IConversationRepository,
	messages repositories.IMessageRepository,
	chronology domain.ChronologyChecker,
	publisher Publisher,
) *ChatService {
	return &ChatService{
		log:           log,
		conversations: conversations,
		messages:      messages,
		chronology:    chronology,
		publisher:     publisher,
	}
}

// UpsertMessage creates or updates a message and keeps the owning
// conversation consistent with it. Updating a message soft-deletes
// every message after it, because editing invalidates whatever
// followed. Aggregates are persisted before events are published, so a
// publish failure surfaces after state is already durable and the
// caller retries the whole operation (at-least-once).
func (s *ChatService) UpsertMessage(ctx context.Context, cmd domain.UpsertMessageCommand) error {
	conversationID, err := domain.NewConversationID(cmd.ConversationID)
	if err != nil {
		return err
	}
	messageID, err := domain.NewMessageID(cmd.MessageID)
	if err != nil {
		return err
	}
	content, err := domain.NewContent(cmd.Content)
	if err != nil {
		return err
	}
	owner, err := domain.NewOwner(cmd.Owner)
	if err != nil {
		return err
	}

	// The owner of an existing conversation is never changed, even when
	// the command carries a different one.
	conversation, err := s.conversations.FindByID(conversationID)
	if err != nil {
		return fmt.Errorf("loading conversation %s: %w", conversationID, err)
	}
	if conversation == nil {
		conversation = domain.NewConversation(conversationID, owner)
		s.log.Debug("Conversation created", "conversation_id", conversationID)
	}

	message, err := s.messages.FindByID(messageID)
	if err != nil {
		return fmt.Errorf("loading message %s: %w", messageID, err)
	}

	if message == nil {
		message = domain.NewMessage(messageID, conversationID, content)
	} else {
		if message.ConversationID() != conversationID {
			return fmt.Errorf("message %s belongs to conversation %s, not %s: %w",
				messageID, message.ConversationID(), conversationID, chaterrors.ErrIdentityConflict)
		}
		message.UpdateContent(content)

		trailing, err := s.chronology.MessagesAfter(conversationID, messageID)
		if err != nil {
			return fmt.Errorf("finding messages after %s: %w", messageID, err)
		}
		if len(trailing) > 0 {
			if err := s.messages.SoftDeleteMessages(trailing); err != nil {
				return fmt.Errorf("truncating %d messages: %w", len(trailing), err)
			}
			conversation.RecordTruncated(messageID)
			s.log.Info("Conversation truncated",
				"conversation_id", conversationID, "from_message_id", messageID, "removed", len(trailing))
		}
	}

	conversation.UpdateLastMessage(messageID)

	if err := s.conversations.Save(conversation); err != nil {
		return fmt.Errorf("saving conversation %s: %w", conversationID, err)
	}
	if err := s.messages.Save(message); err != nil {
		return fmt.Errorf("saving message %s: %w", messageID, err)
	}

	// Conversation events go out before message events.
	if err := s.publishEvents(ctx, conversation); err != nil {
		return err
	}
	return s.publishEvents(ctx, message)
}

func (s *ChatService) publishEvents(ctx context.Context, source event.Source) error {
	events := source.PullEvents()
	if len(events) == 0 {
		return nil
	}
	return s.publisher.PublishEvents(ctx, events)
}

// GetConversation reads conversation metadata only; it never touches
// the message set.
func (s *ChatService) GetConversation(_ context.Context, rawID string) (*domain.Conversation, error) {
	conversationID, err := domain.NewConversationID(rawID)
	if err != nil {
		return nil, err
	}
	return s.conversations.FindByID(conversationID)
}

// PaginateMessages reads one page of live messages in the
// conversation's total order. The limit is clamped server-side.
func (s *ChatService) PaginateMessages(_ context.Context, cmd domain.PaginateMessagesCommand) (domain.MessagePage, error) {
	conversationID, err := domain.NewConversationID(cmd.ConversationID)
	if err != nil {
		return domain.MessagePage{}, err
	}

	limit := cmd.EffectiveLimit()
	messages, err := s.messages.PaginateMessages(conversationID, cmd.Cursor, limit)
	if err != nil {
		return domain.MessagePage{}, err
	}

	page := domain.MessagePage{
		Messages: messages,
		HasMore:  len(messages) == limit,
	}
	if len(messages) > 0 {
		page.NextCursor = lo.ToPtr(messages[len(messages)-1].ID().String())
	}
	return page, nil
}
