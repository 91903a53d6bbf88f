package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"ChatProject/module/user/model"
)

var ErrNotFound = errors.New("user not found")

// Store is the relational side of the user domain: users + profiles.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS profiles (
	user_id BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	bio     TEXT,
	online  BOOLEAN NOT NULL DEFAULT false
);`

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return errors.Wrap(err, "ensure user schema")
}

func (s *Store) Create(ctx context.Context, username, email, passwordHash string) (model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3)
		 RETURNING id, username, email, password_hash, created_at`,
		username, email, passwordHash,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return model.User{}, errors.Wrap(err, "insert user")
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO profiles (user_id) VALUES ($1) ON CONFLICT DO NOTHING`, u.ID,
	); err != nil {
		return model.User{}, errors.Wrap(err, "insert profile")
	}
	return u, nil
}

func (s *Store) ByUsername(ctx context.Context, username string) (model.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE username = $1`,
		username))
}

func (s *Store) ByID(ctx context.Context, id int64) (model.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE id = $1`, id))
}

func (s *Store) scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, errors.Wrap(err, "scan user")
	}
	return u, nil
}

func (s *Store) List(ctx context.Context) ([]model.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (s *Store) ListByIDs(ctx context.Context, ids []int64) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE id = ANY($1) ORDER BY id`,
		ids)
	if err != nil {
		return nil, errors.Wrap(err, "list users by ids")
	}
	defer rows.Close()
	return collectUsers(rows)
}

func collectUsers(rows pgx.Rows) ([]model.User, error) {
	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan user row")
		}
		out = append(out, u)
	}
	return out, errors.Wrap(rows.Err(), "iterate users")
}

func (s *Store) Profile(ctx context.Context, userID int64) (model.Profile, error) {
	var p model.Profile
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, bio, online FROM profiles WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &p.Bio, &p.Online)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Profile{}, ErrNotFound
	}
	if err != nil {
		return model.Profile{}, errors.Wrap(err, "scan profile")
	}
	return p, nil
}

func (s *Store) UpdateBio(ctx context.Context, userID int64, bio string) (model.Profile, error) {
	var p model.Profile
	err := s.pool.QueryRow(ctx,
		`UPDATE profiles SET bio = $2 WHERE user_id = $1 RETURNING user_id, bio, online`,
		userID, bio,
	).Scan(&p.UserID, &p.Bio, &p.Online)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Profile{}, ErrNotFound
	}
	if err != nil {
		return model.Profile{}, errors.Wrap(err, "update bio")
	}
	return p, nil
}

func (s *Store) SetOnline(ctx context.Context, userID int64, online bool) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE profiles SET online = $2 WHERE user_id = $1`, userID, online)
	return errors.Wrap(err, "set online")
}
