package models

import "time"

type Channel struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Member is the public projection of a channel member.
type Member struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type Author struct {
	Username string `json:"username"`
}

type Message struct {
	ID        string          `json:"id"`
	ChannelID string          `json:"channelId"`
	Content   string          `json:"content"`
	Author    Author          `json:"author"`
	Reactions []ReactionGroup `json:"reactions"`
	CreatedAt time.Time       `json:"createdAt"`
}

type Reaction struct {
	ID        string `json:"id"`
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
	Emoji     string `json:"emoji"`
}

// ReactionGroup aggregates identical emoji reactions on a message.
// UNIQUE(message_id, user_id, emoji) in the store makes toggling an involution.
type ReactionGroup struct {
	Emoji string   `json:"emoji"`
	Count int      `json:"count"`
	Users []string `json:"users"`
}
