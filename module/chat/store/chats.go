package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"ChatProject/module/chat/model"
)

var ErrNotFound = errors.New("chat not found")

// Chats is the relational side: the chat rows and who participates.
type Chats struct {
	pool *pgxpool.Pool
}

func NewChats(pool *pgxpool.Pool) *Chats { return &Chats{pool: pool} }

const schema = `
CREATE TABLE IF NOT EXISTS chats (
	id         BIGSERIAL PRIMARY KEY,
	started_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS chat_participants (
	chat_id BIGINT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
	user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	PRIMARY KEY (chat_id, user_id)
);`

func (s *Chats) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return errors.Wrap(err, "ensure chat schema")
}

// GetOrCreate returns the unique chat between the two users, creating it
// on first use. Created reports whether a new row was made.
func (s *Chats) GetOrCreate(ctx context.Context, user1, user2 int64) (chat model.Chat, created bool, err error) {
	err = s.pool.QueryRow(ctx,
		`SELECT c.id, c.started_at
		   FROM chats c
		   JOIN chat_participants p1 ON p1.chat_id = c.id AND p1.user_id = $1
		   JOIN chat_participants p2 ON p2.chat_id = c.id AND p2.user_id = $2
		  LIMIT 1`,
		user1, user2,
	).Scan(&chat.ID, &chat.StartedAt)
	if err == nil {
		chat.Participants, err = s.participants(ctx, chat.ID)
		return chat, false, err
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Chat{}, false, errors.Wrap(err, "find chat")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Chat{}, false, errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err = tx.QueryRow(ctx,
		`INSERT INTO chats DEFAULT VALUES RETURNING id, started_at`,
	).Scan(&chat.ID, &chat.StartedAt); err != nil {
		return model.Chat{}, false, errors.Wrap(err, "insert chat")
	}
	if _, err = tx.Exec(ctx,
		`INSERT INTO chat_participants (chat_id, user_id) VALUES ($1, $2), ($1, $3)`,
		chat.ID, user1, user2,
	); err != nil {
		return model.Chat{}, false, errors.Wrap(err, "insert participants")
	}
	if err = tx.Commit(ctx); err != nil {
		return model.Chat{}, false, errors.Wrap(err, "commit")
	}

	chat.Participants, err = s.participants(ctx, chat.ID)
	return chat, true, err
}

func (s *Chats) ByID(ctx context.Context, chatID int64) (model.Chat, error) {
	var chat model.Chat
	err := s.pool.QueryRow(ctx,
		`SELECT id, started_at FROM chats WHERE id = $1`, chatID,
	).Scan(&chat.ID, &chat.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Chat{}, ErrNotFound
	}
	if err != nil {
		return model.Chat{}, errors.Wrap(err, "get chat")
	}
	chat.Participants, err = s.participants(ctx, chat.ID)
	return chat, err
}

func (s *Chats) ListForUser(ctx context.Context, userID int64) ([]model.Chat, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.id, c.started_at
		   FROM chats c
		   JOIN chat_participants p ON p.chat_id = c.id
		  WHERE p.user_id = $1
		  ORDER BY c.id`,
		userID)
	if err != nil {
		return nil, errors.Wrap(err, "list chats")
	}
	defer rows.Close()

	var out []model.Chat
	for rows.Next() {
		var chat model.Chat
		if err := rows.Scan(&chat.ID, &chat.StartedAt); err != nil {
			return nil, errors.Wrap(err, "scan chat")
		}
		out = append(out, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate chats")
	}
	for i := range out {
		if out[i].Participants, err = s.participants(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Chats) IsParticipant(ctx context.Context, chatID, userID int64) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM chat_participants WHERE chat_id = $1 AND user_id = $2)`,
		chatID, userID,
	).Scan(&ok)
	return ok, errors.Wrap(err, "is participant")
}

func (s *Chats) Delete(ctx context.Context, chatID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chats WHERE id = $1`, chatID)
	if err != nil {
		return errors.Wrap(err, "delete chat")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Chats) participants(ctx context.Context, chatID int64) ([]model.Participant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT u.id, u.username
		   FROM chat_participants p
		   JOIN users u ON u.id = p.user_id
		  WHERE p.chat_id = $1
		  ORDER BY u.id`,
		chatID)
	if err != nil {
		return nil, errors.Wrap(err, "list participants")
	}
	defer rows.Close()

	var out []model.Participant
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.ID, &p.Username); err != nil {
			return nil, errors.Wrap(err, "scan participant")
		}
		out = append(out, p)
	}
	return out, errors.Wrap(rows.Err(), "iterate participants")
}
