package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`
CREATE TABLE IF NOT EXISTS users (
	id           BIGSERIAL PRIMARY KEY,
	telegram_id  BIGINT NOT NULL UNIQUE,
	name         TEXT NOT NULL DEFAULT '',
	username     TEXT NOT NULL DEFAULT '',
	photo_url    TEXT NOT NULL DEFAULT '',
	role         TEXT NOT NULL DEFAULT 'user',
	preferences  JSONB NOT NULL DEFAULT '{}',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`
CREATE TABLE IF NOT EXISTS posts (
	id            TEXT PRIMARY KEY,
	description   TEXT NOT NULL,
	latitude      DOUBLE PRECISION NOT NULL,
	longitude     DOUBLE PRECISION NOT NULL,
	address       TEXT NOT NULL DEFAULT '',
	category      TEXT NOT NULL,
	severity      TEXT NOT NULL,
	status        TEXT NOT NULL,
	user_id       BIGINT NOT NULL,
	user_name     TEXT NOT NULL DEFAULT '',
	photo_key     TEXT NOT NULL DEFAULT '',
	likes         INT NOT NULL DEFAULT 0,
	created_at_ms BIGINT NOT NULL,
	expires_at_ms BIGINT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_status_expires ON posts (status, expires_at_ms)`,
	`
CREATE TABLE IF NOT EXISTS comments (
	id             TEXT PRIMARY KEY,
	post_id        TEXT NOT NULL,
	user_id        BIGINT NOT NULL,
	user_name      TEXT NOT NULL DEFAULT '',
	user_photo_url TEXT NOT NULL DEFAULT '',
	content        TEXT NOT NULL,
	created_at_ms  BIGINT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_post ON comments (post_id, created_at_ms)`,
	`
CREATE TABLE IF NOT EXISTS moderation_decisions (
	id                BIGSERIAL PRIMARY KEY,
	post_id           TEXT NOT NULL,
	action            TEXT NOT NULL,
	confidence        DOUBLE PRECISION NOT NULL,
	toxicity          DOUBLE PRECISION NOT NULL,
	relevance         DOUBLE PRECISION NOT NULL,
	quality           DOUBLE PRECISION NOT NULL,
	context           DOUBLE PRECISION NOT NULL,
	image             DOUBLE PRECISION NOT NULL,
	total_score       DOUBLE PRECISION NOT NULL,
	approve_threshold DOUBLE PRECISION NOT NULL,
	reject_threshold  DOUBLE PRECISION NOT NULL,
	created_at_ms     BIGINT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_decisions_post ON moderation_decisions (post_id, created_at_ms DESC)`,
}

// EnsureSchema creates the tables on startup. Statements are idempotent so
// repeated boots are safe.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
