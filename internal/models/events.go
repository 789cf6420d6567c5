package models

import "encoding/json"

// Inbound event names. These are the wire names the clients emit.
const (
	EventGetChannels       = "getChannels"
	EventCreateChannel     = "createChannel"
	EventJoinChannel       = "joinChannel"
	EventSendMessage       = "sendMessage"
	EventGetOlderMessages  = "get-older-messages"
	EventReactToMessage    = "react-to-message"
	EventStartTyping       = "startTyping"
	EventStopTyping        = "stopTyping"
	EventJoinVoiceChannel  = "join-voice-channel"
	EventLeaveVoiceChannel = "leave-voice-channel"
	EventVoiceOffer        = "voice-offer"
	EventVoiceAnswer       = "voice-answer"
	EventIceCandidate      = "ice-candidate"
)

// Outbound event names.
const (
	EventChannelList         = "channelList"
	EventChannelCreated      = "channelCreated"
	EventMessageHistory      = "messageHistory"
	EventOlderMessagesLoaded = "older-messages-loaded"
	EventNewMessage          = "newMessage"
	EventMessageUpdated      = "message-updated"
	EventUpdateUserList      = "updateUserList"
	EventUserTyping          = "userTyping"
	EventUserStoppedTyping   = "userStoppedTyping"
	EventError               = "error"
	EventForceDisconnect     = "force-disconnect"
	EventExistingVoiceUsers  = "existing-voice-users"
	EventUserJoinedVoice     = "user-joined-voice"
	EventUserLeftVoice       = "user-left-voice"
)

// Envelope frames every message exchanged over the websocket.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type CreateChannelPayload struct {
	Name string `json:"name"`
}

type JoinChannelPayload struct {
	ChannelID string `json:"channelId"`
}

type SendMessagePayload struct {
	ChannelID string `json:"channelId"`
	Content   string `json:"content"`
}

type OlderMessagesPayload struct {
	ChannelID string `json:"channelId"`
	Cursor    string `json:"cursor"`
}

type ReactPayload struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
}

type TypingPayload struct {
	ChannelID string `json:"channelId"`
}

type TypingEvent struct {
	Username  string `json:"username"`
	ChannelID string `json:"channelId"`
}

type UserListPayload struct {
	ChannelID string    `json:"channelId"`
	Members   []*Member `json:"members"`
}

type OlderMessagesLoaded struct {
	ChannelID string     `json:"channelId"`
	Messages  []*Message `json:"messages"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Signaling payloads are forwarded verbatim between two connections; the server
// strips targetSocketId and attaches fromSocketId on the way through.
type VoiceSignal struct {
	Offer          json.RawMessage `json:"offer,omitempty"`
	Answer         json.RawMessage `json:"answer,omitempty"`
	Candidate      json.RawMessage `json:"candidate,omitempty"`
	TargetSocketID string          `json:"targetSocketId,omitempty"`
	FromSocketID   string          `json:"fromSocketId,omitempty"`
}

type UserJoinedVoice struct {
	UserID   string `json:"userId"`
	SocketID string `json:"socketId"`
}

type UserLeftVoice struct {
	SocketID string `json:"socketId"`
}
