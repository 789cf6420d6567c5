package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"michat/internal/database"
	"michat/internal/models"
)

// memStore is an in-memory database.Store used to drive the router without
// Postgres. Semantics mirror the real store: idempotent membership, toggling
// reactions, newest-first pages reversed to chronological.
type memStore struct {
	mu        sync.Mutex
	seq       int
	users     map[string]*models.User
	channels  map[string]*models.Channel
	members   map[string]map[string]string // channelID -> userID -> username
	messages  []*memMessage
	reactions map[string][]memReaction // messageID -> rows

	removeMemberErr map[string]error    // channelID -> injected failure
	removedMembers  map[string][]string // channelID -> userIDs removed
}

type memMessage struct {
	id        string
	channelID string
	authorID  string
	content   string
	at        time.Time
}

type memReaction struct {
	userID string
	emoji  string
}

func newMemStore() *memStore {
	return &memStore{
		users:           make(map[string]*models.User),
		channels:        make(map[string]*models.Channel),
		members:         make(map[string]map[string]string),
		reactions:       make(map[string][]memReaction),
		removeMemberErr: make(map[string]error),
		removedMembers:  make(map[string][]string),
	}
}

func (s *memStore) addUser(id, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = &models.User{ID: id, Username: username, Email: username + "@example.com"}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%03d", prefix, s.seq)
}

func (s *memStore) Close() error { return nil }

func (s *memStore) CreateUser(_ context.Context, email, username, passwordHash string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email || u.Username == username {
			return nil, fmt.Errorf("duplicate user")
		}
	}
	user := &models.User{ID: s.nextID("user"), Email: email, Username: username, PasswordHash: passwordHash, CreatedAt: time.Now()}
	s.users[user.ID] = user
	return user, nil
}

func (s *memStore) GetUserByIdentifier(_ context.Context, identifier string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == identifier || u.Username == identifier {
			return u, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *memStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, database.ErrNotFound
}

func (s *memStore) CreateChannel(_ context.Context, name, creatorID string) (*models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	channel := &models.Channel{ID: s.nextID("chan"), Name: name, MemberCount: 1, CreatedAt: time.Now()}
	s.channels[channel.ID] = channel
	s.members[channel.ID] = map[string]string{creatorID: s.username(creatorID)}
	return channel, nil
}

func (s *memStore) ListChannels(_ context.Context) ([]*models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Nil when empty, like the pgx scan loop
	var out []*models.Channel
	for _, c := range s.channels {
		c.MemberCount = len(s.members[c.ID])
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) AddMember(_ context.Context, channelID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels[channelID]; !ok {
		return database.ErrNotFound
	}
	s.members[channelID][userID] = s.username(userID)
	return nil
}

func (s *memStore) RemoveMember(_ context.Context, channelID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.removeMemberErr[channelID]; err != nil {
		return err
	}
	delete(s.members[channelID], userID)
	s.removedMembers[channelID] = append(s.removedMembers[channelID], userID)
	return nil
}

func (s *memStore) GetChannelMembers(_ context.Context, channelID string) ([]*models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Member
	for userID, username := range s.members[channelID] {
		out = append(out, &models.Member{ID: userID, Username: username})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *memStore) AppendMessage(_ context.Context, channelID, authorID, content string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels[channelID]; !ok {
		return nil, database.ErrNotFound
	}
	msg := &memMessage{
		id:        s.nextID("msg"),
		channelID: channelID,
		authorID:  authorID,
		content:   content,
		at:        time.Unix(int64(s.seq), 0),
	}
	s.messages = append(s.messages, msg)
	return s.toModel(msg), nil
}

func (s *memStore) RecentMessages(_ context.Context, channelID string, limit int) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.channelMessages(channelID)
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return s.toModels(all), nil
}

func (s *memStore) MessagesBefore(_ context.Context, channelID, cursorID string, limit int) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.channelMessages(channelID)
	cut := -1
	for i, m := range all {
		if m.id == cursorID {
			cut = i
			break
		}
	}
	if cut <= 0 {
		return []*models.Message{}, nil
	}
	start := cut - limit
	if start < 0 {
		start = 0
	}
	return s.toModels(all[start:cut]), nil
}

func (s *memStore) GetMessage(_ context.Context, messageID string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.id == messageID {
			return s.toModel(m), nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *memStore) ToggleReaction(_ context.Context, messageID, userID, emoji string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for _, m := range s.messages {
		if m.id == messageID {
			found = true
			break
		}
	}
	if !found {
		return database.ErrNotFound
	}

	rows := s.reactions[messageID]
	for i, row := range rows {
		if row.userID == userID && row.emoji == emoji {
			s.reactions[messageID] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	s.reactions[messageID] = append(rows, memReaction{userID: userID, emoji: emoji})
	return nil
}

func (s *memStore) username(userID string) string {
	if u, ok := s.users[userID]; ok {
		return u.Username
	}
	return userID
}

func (s *memStore) channelMessages(channelID string) []*memMessage {
	var out []*memMessage
	for _, m := range s.messages {
		if m.channelID == channelID {
			out = append(out, m)
		}
	}
	return out
}

func (s *memStore) toModels(msgs []*memMessage) []*models.Message {
	out := make([]*models.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, s.toModel(m))
	}
	return out
}

func (s *memStore) toModel(m *memMessage) *models.Message {
	return &models.Message{
		ID:        m.id,
		ChannelID: m.channelID,
		Content:   m.content,
		Author:    models.Author{Username: s.username(m.authorID)},
		Reactions: s.reactionGroups(m.id),
		CreatedAt: m.at,
	}
}

func (s *memStore) reactionGroups(messageID string) []models.ReactionGroup {
	byEmoji := make(map[string][]string)
	for _, row := range s.reactions[messageID] {
		byEmoji[row.emoji] = append(byEmoji[row.emoji], s.username(row.userID))
	}
	emojis := make([]string, 0, len(byEmoji))
	for emoji := range byEmoji {
		emojis = append(emojis, emoji)
	}
	sort.Strings(emojis)

	groups := []models.ReactionGroup{}
	for _, emoji := range emojis {
		users := byEmoji[emoji]
		sort.Strings(users)
		groups = append(groups, models.ReactionGroup{Emoji: emoji, Count: len(users), Users: users})
	}
	return groups
}
