//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"chat-relay/domain"
)

type IConversationRepository interface {
	// FindByID returns nil without error when the conversation is absent.
	FindByID(id domain.ConversationID) (*domain.Conversation, error)
	Save(conversation *domain.Conversation) error
}

type ConversationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewConversationRepository(db *badger.DB, log *slog.Logger) ConversationRepository {
	return ConversationRepository{db: db, log: log}
}

// storedConversation is the JSON form persisted in BadgerDB.
type storedConversation struct {
	ID            string    `json:"id"`
	Owner         string    `json:"owner"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	LastMessageID *string   `json:"last_message_id,omitempty"`
}

func conversationKey(id domain.ConversationID) []byte {
	return []byte("conv:" + id.String())
}

func (r ConversationRepository) FindByID(id domain.ConversationID) (*domain.Conversation, error) {
	var stored storedConversation
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(conversationKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &stored)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading conversation %s: %w", id, err)
	}
	return toConversation(stored), nil
}

func (r ConversationRepository) Save(conversation *domain.Conversation) error {
	bytes, err := json.Marshal(fromConversation(conversation))
	if err != nil {
		return fmt.Errorf("encoding conversation %s: %w", conversation.ID(), err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(conversationKey(conversation.ID()), bytes)
	})
}

func fromConversation(conversation *domain.Conversation) storedConversation {
	stored := storedConversation{
		ID:        conversation.ID().String(),
		Owner:     conversation.Owner().String(),
		CreatedAt: conversation.CreatedAt(),
		UpdatedAt: conversation.UpdatedAt(),
	}
	if last := conversation.LastMessageID(); last != nil {
		value := last.String()
		stored.LastMessageID = &value
	}
	return stored
}

func toConversation(stored storedConversation) *domain.Conversation {
	var last *domain.MessageID
	if stored.LastMessageID != nil {
		id := domain.MessageID(*stored.LastMessageID)
		last = &id
	}
	return domain.RehydrateConversation(
		domain.ConversationID(stored.ID),
		domain.Owner(stored.Owner),
		stored.CreatedAt,
		stored.UpdatedAt,
		last,
	)
}
