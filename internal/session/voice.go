package session

import "sync"

// VoiceRoster tracks who is in each channel's voice room, keyed by connection
// ID. Rooms are created lazily on first join and kept around when empty;
// entries go away on explicit leave or disconnect.
type VoiceRoster struct {
	mu    sync.Mutex
	rooms map[string]map[string]string
}

func NewVoiceRoster() *VoiceRoster {
	return &VoiceRoster{rooms: make(map[string]map[string]string)}
}

// Join inserts the entrant and returns a snapshot of the roster as it was
// before the insert, so the caller can tell the joiner who was already there.
func (v *VoiceRoster) Join(channelID, connID, userID string) map[string]string {
	v.mu.Lock()
	defer v.mu.Unlock()

	room, ok := v.rooms[channelID]
	if !ok {
		room = make(map[string]string)
		v.rooms[channelID] = room
	}

	existing := make(map[string]string, len(room))
	for id, uid := range room {
		existing[id] = uid
	}

	room[connID] = userID
	return existing
}

// Leave removes the connection from the channel's roster. Leaving a room the
// connection is not in is a no-op; the return value says whether an entry
// was actually removed.
func (v *VoiceRoster) Leave(channelID, connID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	room, ok := v.rooms[channelID]
	if !ok {
		return false
	}
	if _, present := room[connID]; !present {
		return false
	}
	delete(room, connID)
	return true
}

// RemoveConnection sweeps the connection out of every roster it appears in
// and returns the affected channel IDs, so the caller can notify each room.
func (v *VoiceRoster) RemoveConnection(connID string) []string {
	v.mu.Lock()
	defer v.mu.Unlock()

	var affected []string
	for channelID, room := range v.rooms {
		if _, present := room[connID]; present {
			delete(room, connID)
			affected = append(affected, channelID)
		}
	}
	return affected
}

// Roster returns a copy of the channel's current voice roster.
func (v *VoiceRoster) Roster(channelID string) map[string]string {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make(map[string]string, len(v.rooms[channelID]))
	for id, uid := range v.rooms[channelID] {
		out[id] = uid
	}
	return out
}
