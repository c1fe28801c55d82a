// Package domain contains core concepts of the conversation system.
// Identifiers and content are immutable value types validated at
// construction; aggregates record domain events as they mutate.
package domain

import (
	"fmt"
	"strings"

	chaterrors "chat-relay/errors"
)

// MaxContentLength is the upper bound on message content after trimming.
const MaxContentLength = 1000

type ConversationID string

func NewConversationID(raw string) (ConversationID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("conversation id must not be empty: %w", chaterrors.ErrInvalidValue)
	}
	return ConversationID(trimmed), nil
}

func (id ConversationID) String() string { return string(id) }

type MessageID string

func NewMessageID(raw string) (MessageID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("message id must not be empty: %w", chaterrors.ErrInvalidValue)
	}
	return MessageID(trimmed), nil
}

func (id MessageID) String() string { return string(id) }

type Owner string

func NewOwner(raw string) (Owner, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("owner must not be empty: %w", chaterrors.ErrInvalidValue)
	}
	return Owner(trimmed), nil
}

func (o Owner) String() string { return string(o) }

type Content string

func NewContent(raw string) (Content, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("content must not be empty: %w", chaterrors.ErrInvalidValue)
	}
	if len([]rune(trimmed)) > MaxContentLength {
		return "", fmt.Errorf("content exceeds %d characters: %w", MaxContentLength, chaterrors.ErrInvalidValue)
	}
	return Content(trimmed), nil
}

func (c Content) String() string { return string(c) }
