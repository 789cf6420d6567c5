package session

import "sync"

// RoomRegistry maps channel IDs to the live connections currently in that
// channel's broadcast group. This is deliberately distinct from persisted
// channel membership: a user can be a stored member without having joined
// the live room this session.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*Client
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{rooms: make(map[string]map[string]*Client)}
}

func (r *RoomRegistry) Join(channelID string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[channelID]
	if !ok {
		room = make(map[string]*Client)
		r.rooms[channelID] = room
	}
	room[c.ID] = c
}

func (r *RoomRegistry) Leave(channelID string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.rooms[channelID]; ok {
		delete(room, c.ID)
		if len(room) == 0 {
			delete(r.rooms, channelID)
		}
	}
}

// RemoveClient takes the connection out of every room it is in. Called on
// disconnect so no room keeps a handle to a dead connection.
func (r *RoomRegistry) RemoveClient(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for channelID, room := range r.rooms {
		delete(room, connID)
		if len(room) == 0 {
			delete(r.rooms, channelID)
		}
	}
}

// Broadcast delivers the event to every connection in the room, the sender
// included. Delivery is fire-and-forget: slow or closed connections drop.
func (r *RoomRegistry) Broadcast(channelID, event string, data any) {
	for _, c := range r.snapshot(channelID) {
		c.Emit(event, data)
	}
}

// BroadcastExcept delivers the event to everyone in the room but the named
// connection. Used for typing indicators and voice arrival/departure.
func (r *RoomRegistry) BroadcastExcept(channelID, exceptConnID, event string, data any) {
	for _, c := range r.snapshot(channelID) {
		if c.ID == exceptConnID {
			continue
		}
		c.Emit(event, data)
	}
}

func (r *RoomRegistry) snapshot(channelID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[channelID]
	out := make([]*Client, 0, len(room))
	for _, c := range room {
		out = append(out, c)
	}
	return out
}

func (r *RoomRegistry) Contains(channelID, connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[channelID][connID]
	return ok
}
