package session

import "sync"

// PresenceRegistry enforces the single-active-session-per-user policy. It maps
// a user ID to the connection ID currently holding that user's session.
type PresenceRegistry struct {
	mu      sync.Mutex
	entries map[string]string
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{entries: make(map[string]string)}
}

// Claim installs connID as the active session for userID, unconditionally
// overwriting any prior mapping. It returns the evicted connection ID and
// true when a different connection previously held the session, so the
// caller can notify-then-terminate it.
func (p *PresenceRegistry) Claim(userID, connID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev, had := p.entries[userID]
	p.entries[userID] = connID
	if had && prev != connID {
		return prev, true
	}
	return "", false
}

// Release removes the mapping only if connID is still the current holder.
// This guard keeps a superseded connection's late disconnect cleanup from
// evicting the session that replaced it.
func (p *PresenceRegistry) Release(userID, connID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if current, ok := p.entries[userID]; ok && current == connID {
		delete(p.entries, userID)
		return true
	}
	return false
}

// ActiveConnection returns the connection ID holding userID's session.
func (p *PresenceRegistry) ActiveConnection(userID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	connID, ok := p.entries[userID]
	return connID, ok
}

func (p *PresenceRegistry) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
