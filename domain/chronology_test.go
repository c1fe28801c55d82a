package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubTrailingFinder struct {
	trailing []MessageID
	err      error
}

func (s stubTrailingFinder) FindMessagesAfter(ConversationID, MessageID) ([]MessageID, error) {
	return s.trailing, s.err
}

func TestChronologyChecker_MessagesAfter(t *testing.T) {
	req := require.New(t)
	checker := NewChronologyChecker(stubTrailingFinder{trailing: []MessageID{"m2", "m3"}})

	trailing, err := checker.MessagesAfter("c1", "m1")
	req.NoError(err)
	req.Equal([]MessageID{"m2", "m3"}, trailing)
}

func TestChronologyChecker_CanInsert(t *testing.T) {
	req := require.New(t)

	checker := NewChronologyChecker(stubTrailingFinder{})
	ok, err := checker.CanInsert("c1", "m9")
	req.NoError(err)
	req.True(ok)

	checker = NewChronologyChecker(stubTrailingFinder{trailing: []MessageID{"m2"}})
	ok, err = checker.CanInsert("c1", "m1")
	req.NoError(err)
	req.False(ok)
}

func TestChronologyChecker_PropagatesErrors(t *testing.T) {
	req := require.New(t)
	boom := fmt.Errorf("badger is on fire")
	checker := NewChronologyChecker(stubTrailingFinder{err: boom})

	_, err := checker.MessagesAfter("c1", "m1")
	req.ErrorIs(err, boom)

	_, err = checker.CanInsert("c1", "m1")
	req.ErrorIs(err, boom)
}

func TestPaginateMessagesCommand_EffectiveLimit(t *testing.T) {
	tests := []struct {
		description string
		limit       int
		want        int
	}{
		{"Should default when unspecified", 0, DefaultPageLimit},
		{"Should default when negative", -5, DefaultPageLimit},
		{"Should keep a limit within bounds", 42, 42},
		{"Should clamp a limit above the maximum", 500, MaxPageLimit},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			cmd := PaginateMessagesCommand{ConversationID: "c1", Limit: tt.limit}
			require.Equal(t, tt.want, cmd.EffectiveLimit())
		})
	}
}
