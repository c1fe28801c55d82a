//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"chat-relay/domain"
)

type IMessageRepository interface {
	// FindByID returns nil without error when the message is absent.
	FindByID(id domain.MessageID) (*domain.Message, error)
	Save(message *domain.Message) error
	// FindMessagesAfter returns the ids of live messages strictly after
	// messageID in the conversation's total order.
	FindMessagesAfter(conversationID domain.ConversationID, messageID domain.MessageID) ([]domain.MessageID, error)
	SoftDeleteMessages(ids []domain.MessageID) error
	// PaginateMessages returns up to limit live messages starting
	// strictly after the cursor position, in the total order.
	PaginateMessages(conversationID domain.ConversationID, cursor *string, limit int) ([]*domain.Message, error)
}

// MessageRepository persists messages in BadgerDB under two keys:
//
//	msg:{message_id}                    primary record (JSON)
//	cm:{conversation_id}:{message_id}   per-conversation ordering index
//
// The index key sorts lexicographically by message id, which is the
// total order shared by the chronology checker and pagination. Soft
// deletion flips a flag on the primary record; the index entry stays so
// the record remains reachable for audit, and readers filter on it.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

// storedMessage is the JSON form persisted in BadgerDB.
type storedMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Deleted        bool      `json:"deleted"`
}

func messageKey(id domain.MessageID) []byte {
	return []byte("msg:" + id.String())
}

func indexPrefix(conversationID domain.ConversationID) []byte {
	return []byte("cm:" + conversationID.String() + ":")
}

func indexKey(conversationID domain.ConversationID, messageID domain.MessageID) []byte {
	return append(indexPrefix(conversationID), messageID.String()...)
}

func (r MessageRepository) FindByID(id domain.MessageID) (*domain.Message, error) {
	var stored storedMessage
	err := r.db.View(func(txn *badger.Txn) error {
		return getStoredMessage(txn, id, &stored)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading message %s: %w", id, err)
	}
	return toMessage(stored), nil
}

func (r MessageRepository) Save(message *domain.Message) error {
	encoded, err := json.Marshal(fromMessage(message))
	if err != nil {
		return fmt.Errorf("encoding message %s: %w", message.ID(), err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(messageKey(message.ID()), encoded); err != nil {
			return err
		}
		return txn.Set(indexKey(message.ConversationID(), message.ID()), []byte(message.ID().String()))
	})
}

func (r MessageRepository) FindMessagesAfter(conversationID domain.ConversationID, messageID domain.MessageID) ([]domain.MessageID, error) {
	var trailing []domain.MessageID
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := indexPrefix(conversationID)
		seekKey := indexKey(conversationID, messageID)

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		it.Seek(seekKey)
		if it.ValidForPrefix(prefix) && bytes.Equal(it.Item().Key(), seekKey) {
			it.Next()
		}
		for ; it.ValidForPrefix(prefix); it.Next() {
			id := domain.MessageID(it.Item().Key()[len(prefix):])
			var stored storedMessage
			if err := getStoredMessage(txn, id, &stored); err != nil {
				return err
			}
			if stored.Deleted {
				continue
			}
			trailing = append(trailing, id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning messages after %s in %s: %w", messageID, conversationID, err)
	}
	return trailing, nil
}

func (r MessageRepository) SoftDeleteMessages(ids []domain.MessageID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			var stored storedMessage
			err := getStoredMessage(txn, id, &stored)
			if errors.Is(err, badger.ErrKeyNotFound) {
				r.log.Debug("Skipping soft delete of unknown message", "message_id", id)
				continue
			}
			if err != nil {
				return err
			}
			message := toMessage(stored)
			message.SoftDelete()
			encoded, err := json.Marshal(fromMessage(message))
			if err != nil {
				return fmt.Errorf("encoding message %s: %w", id, err)
			}
			if err := txn.Set(messageKey(id), encoded); err != nil {
				return err
			}
		}
		return nil
	})
}

// PaginateMessages treats the cursor as a position in the order, not a
// row that must exist: the scan resumes at the first id greater than
// the cursor, so a cursor naming a truncated message stays usable.
func (r MessageRepository) PaginateMessages(conversationID domain.ConversationID, cursor *string, limit int) ([]*domain.Message, error) {
	var page []*domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := indexPrefix(conversationID)

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		switch cursor {
		case nil:
			it.Seek(prefix)
		default:
			seekKey := indexKey(conversationID, domain.MessageID(*cursor))
			it.Seek(seekKey)
			if it.ValidForPrefix(prefix) && bytes.Equal(it.Item().Key(), seekKey) {
				it.Next()
			}
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if len(page) == limit {
				break
			}
			id := domain.MessageID(it.Item().Key()[len(prefix):])
			var stored storedMessage
			if err := getStoredMessage(txn, id, &stored); err != nil {
				return err
			}
			if stored.Deleted {
				continue
			}
			page = append(page, toMessage(stored))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("paginating messages in %s: %w", conversationID, err)
	}
	return page, nil
}

func getStoredMessage(txn *badger.Txn, id domain.MessageID, stored *storedMessage) error {
	item, err := txn.Get(messageKey(id))
	if err != nil {
		return err
	}
	return item.Value(func(value []byte) error {
		return json.Unmarshal(value, stored)
	})
}

func fromMessage(message *domain.Message) storedMessage {
	return storedMessage{
		ID:             message.ID().String(),
		ConversationID: message.ConversationID().String(),
		Content:        message.Content().String(),
		CreatedAt:      message.CreatedAt(),
		UpdatedAt:      message.UpdatedAt(),
		Deleted:        message.Deleted(),
	}
}

func toMessage(stored storedMessage) *domain.Message {
	return domain.RehydrateMessage(
		domain.MessageID(stored.ID),
		domain.ConversationID(stored.ConversationID),
		domain.Content(stored.Content),
		stored.CreatedAt,
		stored.UpdatedAt,
		stored.Deleted,
	)
}
