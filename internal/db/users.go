package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

func (q *Queries) GetUser(ctx context.Context, id pgtype.UUID) (*User, error) {
	var u User
	err := q.db.QueryRow(ctx,
		`SELECT id, username, created_at FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Username, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// EnsureUser upserts the minimal identity row. Identity management proper is
// an external concern; the pipeline only needs the FK target to exist.
func (q *Queries) EnsureUser(ctx context.Context, id pgtype.UUID, username string) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO users (id, username) VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`, id, username)
	if IsUniqueViolationErr(err) {
		// Username taken by another id; the row for this id may still exist.
		return nil
	}
	return err
}
