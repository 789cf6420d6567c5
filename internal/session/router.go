package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"michat/internal/database"
	"michat/internal/models"
	"michat/pkg/logger"
)

// Router owns the connection lifecycle and dispatches every chat event. It
// is the only component that touches the shared registries and the store
// together: registry mutations are single-step and never span a store call,
// so concurrent connections interleave only at store I/O.
type Router struct {
	store    database.Store
	presence *PresenceRegistry
	rooms    *RoomRegistry
	voice    *VoiceRoster

	mu      sync.RWMutex
	clients map[string]*Client

	historyPageSize int
}

func NewRouter(store database.Store, historyPageSize int) *Router {
	return &Router{
		store:           store,
		presence:        NewPresenceRegistry(),
		rooms:           NewRoomRegistry(),
		voice:           NewVoiceRoster(),
		clients:         make(map[string]*Client),
		historyPageSize: historyPageSize,
	}
}

// Connect admits an authenticated connection. If the user already holds a
// live session elsewhere, that session is told it has been superseded and
// then closed; its eventual cleanup cannot evict the new presence entry
// because Release is guarded by connection ID.
func (r *Router) Connect(c *Client) {
	r.mu.Lock()
	r.clients[c.ID] = c
	r.mu.Unlock()

	evictedID, evicted := r.presence.Claim(c.UserID, c.ID)
	if !evicted {
		logger.Info("User %s connected (%s)", c.Username, c.ID)
		return
	}

	if old := r.lookup(evictedID); old != nil {
		// Notify before terminating: a closed connection cannot receive
		// the supersession signal.
		old.Emit(models.EventForceDisconnect, models.ErrorPayload{
			Message: "You connected from another location.",
		})
		old.Close()
	}
	logger.Info("User %s reconnected (%s), evicted session %s", c.Username, c.ID, evictedID)
}

// Disconnect runs full cleanup for a closing connection. It is idempotent
// and best-effort: a store failure for one channel is logged and the rest
// of the cleanup still runs.
func (r *Router) Disconnect(c *Client) {
	r.mu.Lock()
	delete(r.clients, c.ID)
	r.mu.Unlock()

	// Out of every live room first so the broadcasts below skip it.
	r.rooms.RemoveClient(c.ID)

	// Guarded: a no-op if a newer session already took over.
	r.presence.Release(c.UserID, c.ID)

	ctx := context.Background()
	for _, channelID := range c.JoinedChannels() {
		if err := r.store.RemoveMember(ctx, channelID, c.UserID); err != nil {
			logger.Error("Cleanup: removing %s from channel %s: %v", c.UserID, channelID, err)
			continue
		}
		members, err := r.store.GetChannelMembers(ctx, channelID)
		if err != nil {
			logger.Error("Cleanup: fetching members of channel %s: %v", channelID, err)
			continue
		}
		if members == nil {
			members = []*models.Member{}
		}
		r.rooms.Broadcast(channelID, models.EventUpdateUserList, models.UserListPayload{
			ChannelID: channelID,
			Members:   members,
		})
	}

	for _, channelID := range r.voice.RemoveConnection(c.ID) {
		r.rooms.Broadcast(channelID, models.EventUserLeftVoice, models.UserLeftVoice{SocketID: c.ID})
	}

	c.Close()
	logger.Info("User %s disconnected (%s)", c.Username, c.ID)
}

// HandleEvent dispatches one inbound event. Events for a single connection
// arrive here sequentially from its read pump.
func (r *Router) HandleEvent(c *Client, env *models.Envelope) {
	var err error
	switch env.Event {
	case models.EventGetChannels:
		err = r.handleGetChannels(c)
	case models.EventCreateChannel:
		err = r.handleCreateChannel(c, env.Data)
	case models.EventJoinChannel:
		err = r.handleJoinChannel(c, env.Data)
	case models.EventSendMessage:
		err = r.handleSendMessage(c, env.Data)
	case models.EventGetOlderMessages:
		err = r.handleOlderMessages(c, env.Data)
	case models.EventReactToMessage:
		err = r.handleReaction(c, env.Data)
	case models.EventStartTyping:
		r.handleTyping(c, env.Data, models.EventUserTyping)
	case models.EventStopTyping:
		r.handleTyping(c, env.Data, models.EventUserStoppedTyping)
	case models.EventJoinVoiceChannel:
		r.handleJoinVoice(c, env.Data)
	case models.EventLeaveVoiceChannel:
		r.handleLeaveVoice(c, env.Data)
	case models.EventVoiceOffer, models.EventVoiceAnswer, models.EventIceCandidate:
		r.relaySignal(c, env.Event, env.Data)
	default:
		logger.Debug("Unknown event %q from %s", env.Event, c.ID)
	}

	if err != nil {
		c.Emit(models.EventError, models.ErrorPayload{Message: err.Error()})
	}
}

func (r *Router) handleGetChannels(c *Client) error {
	channels, err := r.store.ListChannels(context.Background())
	if err != nil {
		logger.Error("Listing channels: %v", err)
		return errStore("Could not fetch the channel list.")
	}
	if channels == nil {
		channels = []*models.Channel{}
	}
	c.Emit(models.EventChannelList, channels)
	return nil
}

func (r *Router) handleCreateChannel(c *Client, data json.RawMessage) error {
	var payload models.CreateChannelPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Name == "" {
		return ErrNameRequired
	}

	channel, err := r.store.CreateChannel(context.Background(), payload.Name, c.UserID)
	if err != nil {
		logger.Error("Creating channel %q: %v", payload.Name, err)
		return errStore("Could not create the channel.")
	}

	// Creator enters the live room but discovery by others stays pull-based:
	// the channel shows up for them via getChannels, not a broadcast.
	r.rooms.Join(channel.ID, c)
	c.Emit(models.EventChannelCreated, channel)
	logger.Info("Channel %q created by %s", channel.Name, c.Username)
	return nil
}

func (r *Router) handleJoinChannel(c *Client, data json.RawMessage) error {
	var payload models.JoinChannelPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ChannelID == "" {
		return ErrChannelIDRequired
	}
	channelID := payload.ChannelID
	ctx := context.Background()

	// Idempotent: rejoining an existing member neither errors nor duplicates.
	if err := r.store.AddMember(ctx, channelID, c.UserID); err != nil {
		logger.Error("Joining channel %s: %v", channelID, err)
		return errStore("Could not join the channel.")
	}

	c.trackJoined(channelID)
	r.rooms.Join(channelID, c)

	members, err := r.store.GetChannelMembers(ctx, channelID)
	if err != nil {
		logger.Error("Fetching members of channel %s: %v", channelID, err)
		return errStore("Could not join the channel.")
	}
	if members == nil {
		members = []*models.Member{}
	}
	r.rooms.Broadcast(channelID, models.EventUpdateUserList, models.UserListPayload{
		ChannelID: channelID,
		Members:   members,
	})

	history, err := r.store.RecentMessages(ctx, channelID, r.historyPageSize)
	if err != nil {
		logger.Error("Fetching history of channel %s: %v", channelID, err)
		return errStore("Could not load message history.")
	}
	if history == nil {
		history = []*models.Message{}
	}
	c.Emit(models.EventMessageHistory, history)

	logger.Info("User %s joined channel %s", c.Username, channelID)
	return nil
}

func (r *Router) handleSendMessage(c *Client, data json.RawMessage) error {
	var payload models.SendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ChannelID == "" || payload.Content == "" {
		return ErrMessageFields
	}

	msg, err := r.store.AppendMessage(context.Background(), payload.ChannelID, c.UserID, payload.Content)
	if err != nil {
		logger.Error("Saving message in channel %s: %v", payload.ChannelID, err)
		return errStore("Could not send the message.")
	}
	msg.Author = models.Author{Username: c.Username}

	// The sender hears its own message through the broadcast, not a local echo.
	r.rooms.Broadcast(payload.ChannelID, models.EventNewMessage, msg)
	return nil
}

func (r *Router) handleOlderMessages(c *Client, data json.RawMessage) error {
	var payload models.OlderMessagesPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ChannelID == "" {
		return ErrChannelIDRequired
	}
	if payload.Cursor == "" {
		// No cursor means nothing to page from.
		return nil
	}

	messages, err := r.store.MessagesBefore(context.Background(), payload.ChannelID, payload.Cursor, r.historyPageSize)
	if err != nil {
		logger.Error("Paging channel %s before %s: %v", payload.ChannelID, payload.Cursor, err)
		return errStore("Could not load older messages.")
	}
	if messages == nil {
		messages = []*models.Message{}
	}

	// An empty page tells the client the history is exhausted.
	c.Emit(models.EventOlderMessagesLoaded, models.OlderMessagesLoaded{
		ChannelID: payload.ChannelID,
		Messages:  messages,
	})
	return nil
}

func (r *Router) handleReaction(c *Client, data json.RawMessage) error {
	var payload models.ReactPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.MessageID == "" || payload.Emoji == "" {
		return ErrReactionFields
	}
	ctx := context.Background()

	if err := r.store.ToggleReaction(ctx, payload.MessageID, c.UserID, payload.Emoji); err != nil {
		logger.Error("Toggling reaction on %s: %v", payload.MessageID, err)
		return errStore("Could not update the reaction.")
	}

	msg, err := r.store.GetMessage(ctx, payload.MessageID)
	if err != nil {
		logger.Error("Refetching message %s: %v", payload.MessageID, err)
		return errStore("Could not update the reaction.")
	}

	r.rooms.Broadcast(msg.ChannelID, models.EventMessageUpdated, msg)
	return nil
}

func (r *Router) handleTyping(c *Client, data json.RawMessage, event string) {
	var payload models.TypingPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ChannelID == "" {
		return
	}

	// Pure forwarded signal: no persistence, no debounce, sender excluded.
	r.rooms.BroadcastExcept(payload.ChannelID, c.ID, event, models.TypingEvent{
		Username:  c.Username,
		ChannelID: payload.ChannelID,
	})
}

func (r *Router) handleJoinVoice(c *Client, data json.RawMessage) {
	var channelID string
	if err := json.Unmarshal(data, &channelID); err != nil || channelID == "" {
		return
	}

	existing := r.voice.Join(channelID, c.ID, c.UserID)
	c.Emit(models.EventExistingVoiceUsers, existing)

	r.rooms.BroadcastExcept(channelID, c.ID, models.EventUserJoinedVoice, models.UserJoinedVoice{
		UserID:   c.UserID,
		SocketID: c.ID,
	})
}

func (r *Router) handleLeaveVoice(c *Client, data json.RawMessage) {
	var channelID string
	if err := json.Unmarshal(data, &channelID); err != nil || channelID == "" {
		return
	}

	if r.voice.Leave(channelID, c.ID) {
		r.rooms.BroadcastExcept(channelID, c.ID, models.EventUserLeftVoice, models.UserLeftVoice{SocketID: c.ID})
	}
}

// relaySignal forwards an offer/answer/ICE payload verbatim to the target
// connection, stamping the sender's connection ID. A vanished target is a
// silent drop, never an error back to the sender.
func (r *Router) relaySignal(c *Client, kind string, data json.RawMessage) {
	var signal models.VoiceSignal
	if err := json.Unmarshal(data, &signal); err != nil || signal.TargetSocketID == "" {
		return
	}

	target := r.lookup(signal.TargetSocketID)
	if target == nil {
		return
	}

	signal.TargetSocketID = ""
	signal.FromSocketID = c.ID
	target.Emit(kind, signal)
}

func (r *Router) lookup(connID string) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clients[connID]
}

// errStore wraps a store failure into the generic message shown to the
// client; the detailed cause stays in the server log.
func errStore(msg string) error { return errors.New(msg) }
