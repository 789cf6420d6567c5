package database

import (
	"testing"

	"michat/internal/models"

	"github.com/stretchr/testify/require"
)

func TestGroupReactions_FoldsPerEmoji(t *testing.T) {
	req := require.New(t)

	// Rows arrive ordered by emoji then username, as the query guarantees
	rows := []reactionRow{
		{MessageID: "m1", Emoji: "🎉", Username: "carol"},
		{MessageID: "m1", Emoji: "👍", Username: "alice"},
		{MessageID: "m1", Emoji: "👍", Username: "bob"},
	}

	groups := groupReactions(rows)

	req.Equal([]models.ReactionGroup{
		{Emoji: "🎉", Count: 1, Users: []string{"carol"}},
		{Emoji: "👍", Count: 2, Users: []string{"alice", "bob"}},
	}, groups)
}

func TestGroupReactions_EmptyInputYieldsEmptyAggregate(t *testing.T) {
	req := require.New(t)

	groups := groupReactions(nil)

	// Never nil: the wire aggregate is always an array
	req.NotNil(groups)
	req.Empty(groups)
}
