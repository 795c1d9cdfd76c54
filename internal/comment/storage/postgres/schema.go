package postgres

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS comments (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	post_id     TEXT NOT NULL,
	parent_id   TEXT REFERENCES comments(id) ON DELETE CASCADE,
	author_id   TEXT NOT NULL,
	author_name TEXT NOT NULL,
	content     TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS comments_post_created_idx ON comments (post_id, created_at);
CREATE INDEX IF NOT EXISTS comments_parent_idx ON comments (parent_id);
CREATE INDEX IF NOT EXISTS comments_author_idx ON comments (author_id);

CREATE TABLE IF NOT EXISTS comment_likes (
	comment_id TEXT NOT NULL REFERENCES comments(id) ON DELETE CASCADE,
	user_id    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (comment_id, user_id)
);

CREATE TABLE IF NOT EXISTS comment_reports (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	comment_id  TEXT NOT NULL,
	post_id     TEXT NOT NULL,
	reporter_id TEXT NOT NULL,
	reason      TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Open connects through the pgx stdlib driver and checks the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "postgres: open")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "postgres: ping")
	}
	return db, nil
}

// Migrate creates the tables if they do not exist yet.
func (r *Repo) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "postgres: migrate")
	}
	return nil
}
