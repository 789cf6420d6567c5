package database

import (
	"context"
	"errors"

	"michat/internal/models"
)

// ErrNotFound is returned when a channel, message or user id does not exist.
var ErrNotFound = errors.New("not found")

type UserRepository interface {
	CreateUser(ctx context.Context, email, username, passwordHash string) (*models.User, error)
	// GetUserByIdentifier looks a user up by email or username.
	GetUserByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type ChannelRepository interface {
	CreateChannel(ctx context.Context, name, creatorID string) (*models.Channel, error)
	ListChannels(ctx context.Context) ([]*models.Channel, error)
	// AddMember is idempotent: adding an existing member is not an error.
	AddMember(ctx context.Context, channelID, userID string) error
	RemoveMember(ctx context.Context, channelID, userID string) error
	GetChannelMembers(ctx context.Context, channelID string) ([]*models.Member, error)
}

type MessageRepository interface {
	AppendMessage(ctx context.Context, channelID, authorID, content string) (*models.Message, error)
	// RecentMessages returns the newest limit messages in chronological order,
	// each carrying its author username and reaction aggregate.
	RecentMessages(ctx context.Context, channelID string, limit int) ([]*models.Message, error)
	// MessagesBefore returns up to limit messages strictly older than the
	// cursor message, in chronological order. An empty slice means the
	// history is exhausted.
	MessagesBefore(ctx context.Context, channelID, cursorID string, limit int) ([]*models.Message, error)
	GetMessage(ctx context.Context, messageID string) (*models.Message, error)
	// ToggleReaction adds the (message, user, emoji) reaction, or removes it
	// if the same user already placed that exact emoji on that message.
	ToggleReaction(ctx context.Context, messageID, userID, emoji string) error
}

type Store interface {
	UserRepository
	ChannelRepository
	MessageRepository
	Close() error
}
