package database

import (
	"context"
	"errors"
	"fmt"

	"michat/internal/models"
	"michat/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"
)

type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(databaseURL string) (*PostgresDB, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to database successfully")
	return &PostgresDB{pool: pool}, nil
}

func (db *PostgresDB) Close() error {
	db.pool.Close()
	return nil
}

// IsUniqueViolation reports whether err is a Postgres unique constraint error.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// User Repository Implementation
func (db *PostgresDB) CreateUser(ctx context.Context, email, username, passwordHash string) (*models.User, error) {
	query := `
		INSERT INTO users (email, username, password_hash, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, username, email, created_at`

	user := &models.User{PasswordHash: passwordHash}
	err := db.pool.QueryRow(ctx, query, email, username, passwordHash).Scan(
		&user.ID, &user.Username, &user.Email, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (db *PostgresDB) GetUserByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE email = $1 OR username = $1`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, identifier).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user, nil
}

func (db *PostgresDB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, username, email, created_at FROM users WHERE id = $1`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user, nil
}

// Channel Repository Implementation
func (db *PostgresDB) CreateChannel(ctx context.Context, name, creatorID string) (*models.Channel, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	channel := &models.Channel{MemberCount: 1}
	err = tx.QueryRow(ctx,
		`INSERT INTO channels (name, created_at) VALUES ($1, NOW()) RETURNING id, name, created_at`,
		name,
	).Scan(&channel.ID, &channel.Name, &channel.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO channel_members (channel_id, user_id) VALUES ($1, $2)`,
		channel.ID, creatorID,
	); err != nil {
		return nil, fmt.Errorf("failed to add creator membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return channel, nil
}

func (db *PostgresDB) ListChannels(ctx context.Context) ([]*models.Channel, error) {
	query := `
		SELECT c.id, c.name, COUNT(m.user_id), c.created_at
		FROM channels c
		LEFT JOIN channel_members m ON c.id = m.channel_id
		GROUP BY c.id
		ORDER BY c.name`

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []*models.Channel
	for rows.Next() {
		channel := &models.Channel{}
		if err := rows.Scan(&channel.ID, &channel.Name, &channel.MemberCount, &channel.CreatedAt); err != nil {
			return nil, err
		}
		channels = append(channels, channel)
	}

	return channels, rows.Err()
}

func (db *PostgresDB) AddMember(ctx context.Context, channelID, userID string) error {
	query := `
		INSERT INTO channel_members (channel_id, user_id) VALUES ($1, $2)
		ON CONFLICT (channel_id, user_id) DO NOTHING`

	_, err := db.pool.Exec(ctx, query, channelID, userID)
	return err
}

func (db *PostgresDB) RemoveMember(ctx context.Context, channelID, userID string) error {
	query := `DELETE FROM channel_members WHERE channel_id = $1 AND user_id = $2`
	_, err := db.pool.Exec(ctx, query, channelID, userID)
	return err
}

func (db *PostgresDB) GetChannelMembers(ctx context.Context, channelID string) ([]*models.Member, error) {
	query := `
		SELECT u.id, u.username
		FROM channel_members m
		JOIN users u ON m.user_id = u.id
		WHERE m.channel_id = $1
		ORDER BY u.username`

	rows, err := db.pool.Query(ctx, query, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		member := &models.Member{}
		if err := rows.Scan(&member.ID, &member.Username); err != nil {
			return nil, err
		}
		members = append(members, member)
	}

	return members, rows.Err()
}

// Message Repository Implementation
func (db *PostgresDB) AppendMessage(ctx context.Context, channelID, authorID, content string) (*models.Message, error) {
	query := `
		INSERT INTO messages (channel_id, author_id, content, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at`

	msg := &models.Message{
		ChannelID: channelID,
		Content:   content,
		Reactions: []models.ReactionGroup{},
	}
	err := db.pool.QueryRow(ctx, query, channelID, authorID, content).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	return msg, nil
}

func (db *PostgresDB) RecentMessages(ctx context.Context, channelID string, limit int) ([]*models.Message, error) {
	query := `
		SELECT m.id, m.channel_id, m.content, u.username, m.created_at
		FROM messages m
		JOIN users u ON m.author_id = u.id
		WHERE m.channel_id = $1
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $2`

	return db.queryMessagePage(ctx, query, channelID, limit)
}

func (db *PostgresDB) MessagesBefore(ctx context.Context, channelID, cursorID string, limit int) ([]*models.Message, error) {
	query := `
		SELECT m.id, m.channel_id, m.content, u.username, m.created_at
		FROM messages m
		JOIN users u ON m.author_id = u.id
		WHERE m.channel_id = $1
		  AND (m.created_at, m.id) < (SELECT created_at, id FROM messages WHERE id = $3)
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $2`

	return db.queryMessagePage(ctx, query, channelID, limit, cursorID)
}

func (db *PostgresDB) queryMessagePage(ctx context.Context, query, channelID string, limit int, extra ...any) ([]*models.Message, error) {
	args := append([]any{channelID, limit}, extra...)
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg := &models.Message{}
		if err := rows.Scan(&msg.ID, &msg.ChannelID, &msg.Content, &msg.Author.Username, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := db.attachReactions(ctx, messages); err != nil {
		return nil, err
	}

	// Fetched newest-first, reverse to chronological for delivery
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (db *PostgresDB) GetMessage(ctx context.Context, messageID string) (*models.Message, error) {
	query := `
		SELECT m.id, m.channel_id, m.content, u.username, m.created_at
		FROM messages m
		JOIN users u ON m.author_id = u.id
		WHERE m.id = $1`

	msg := &models.Message{}
	err := db.pool.QueryRow(ctx, query, messageID).Scan(
		&msg.ID, &msg.ChannelID, &msg.Content, &msg.Author.Username, &msg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := db.attachReactions(ctx, []*models.Message{msg}); err != nil {
		return nil, err
	}
	return msg, nil
}

func (db *PostgresDB) ToggleReaction(ctx context.Context, messageID, userID, emoji string) error {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM reactions WHERE message_id = $1 AND user_id = $2 AND emoji = $3`,
		messageID, userID, emoji,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Nothing to remove, so this toggle adds. ON CONFLICT covers a concurrent
	// identical toggle racing between the delete and the insert.
	_, err = db.pool.Exec(ctx,
		`INSERT INTO reactions (message_id, user_id, emoji, created_at) VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (message_id, user_id, emoji) DO NOTHING`,
		messageID, userID, emoji,
	)
	if err != nil && IsForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

// IsForeignKeyViolation reports whether err is a Postgres foreign key error.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

type reactionRow struct {
	MessageID string
	Emoji     string
	Username  string
}

func (db *PostgresDB) attachReactions(ctx context.Context, messages []*models.Message) error {
	if len(messages) == 0 {
		return nil
	}

	ids := lo.Map(messages, func(m *models.Message, _ int) string { return m.ID })

	query := `
		SELECT r.message_id, r.emoji, u.username
		FROM reactions r
		JOIN users u ON r.user_id = u.id
		WHERE r.message_id = ANY($1)
		ORDER BY r.emoji, u.username`

	rows, err := db.pool.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	var all []reactionRow
	for rows.Next() {
		var row reactionRow
		if err := rows.Scan(&row.MessageID, &row.Emoji, &row.Username); err != nil {
			return err
		}
		all = append(all, row)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	byMessage := lo.GroupBy(all, func(r reactionRow) string { return r.MessageID })
	for _, msg := range messages {
		msg.Reactions = groupReactions(byMessage[msg.ID])
	}
	return nil
}

// groupReactions folds per-user reaction rows into one group per emoji,
// preserving the query's emoji ordering.
func groupReactions(rows []reactionRow) []models.ReactionGroup {
	groups := []models.ReactionGroup{}
	for _, row := range rows {
		if n := len(groups); n > 0 && groups[n-1].Emoji == row.Emoji {
			groups[n-1].Count++
			groups[n-1].Users = append(groups[n-1].Users, row.Username)
			continue
		}
		groups = append(groups, models.ReactionGroup{
			Emoji: row.Emoji,
			Count: 1,
			Users: []string{row.Username},
		})
	}
	return groups
}
