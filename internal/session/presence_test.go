package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestPresence_Claim_FirstSession(t *testing.T) {
	req := require.New(t)
	presence := NewPresenceRegistry()
	userID := uuid.NewString()
	connID := uuid.NewString()

	evicted, ok := presence.Claim(userID, connID)

	req.False(ok)
	req.Empty(evicted)

	current, found := presence.ActiveConnection(userID)
	req.True(found)
	req.Equal(connID, current)
}

func TestPresence_Claim_EvictsPriorSession(t *testing.T) {
	req := require.New(t)
	presence := NewPresenceRegistry()
	userID := uuid.NewString()
	first := uuid.NewString()
	second := uuid.NewString()

	// Given an active session
	presence.Claim(userID, first)

	// When the same user claims from a second connection
	evicted, ok := presence.Claim(userID, second)

	// Then the prior connection is reported for eviction and the mapping
	// is overwritten; never two entries for one user
	req.True(ok)
	req.Equal(first, evicted)
	req.Equal(1, presence.Len())

	current, _ := presence.ActiveConnection(userID)
	req.Equal(second, current)
}

func TestPresence_Release_Guarded(t *testing.T) {
	req := require.New(t)
	presence := NewPresenceRegistry()
	userID := uuid.NewString()
	old := uuid.NewString()
	replacement := uuid.NewString()

	presence.Claim(userID, old)
	presence.Claim(userID, replacement)

	// The superseded connection's late cleanup must not evict the new session
	released := presence.Release(userID, old)
	req.False(released)

	current, found := presence.ActiveConnection(userID)
	req.True(found)
	req.Equal(replacement, current)

	// The current holder can release
	released = presence.Release(userID, replacement)
	req.True(released)
	_, found = presence.ActiveConnection(userID)
	req.False(found)
}

func TestPresence_Release_Idempotent(t *testing.T) {
	req := require.New(t)
	presence := NewPresenceRegistry()
	userID := uuid.NewString()
	connID := uuid.NewString()

	presence.Claim(userID, connID)
	req.True(presence.Release(userID, connID))
	req.False(presence.Release(userID, connID))
	req.Equal(0, presence.Len())
}
