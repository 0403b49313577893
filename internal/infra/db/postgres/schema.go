package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Schema bootstrap: tables are created on startup when missing, mirroring a
// fresh deployment. Existing rows are never touched.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS queue (
		id TEXT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		post_id TEXT NOT NULL,
		post_url TEXT NOT NULL,
		post_owner TEXT NOT NULL DEFAULT 'undefined',
		link_type TEXT NOT NULL,
		message_id BIGINT NOT NULL,
		chat_id BIGINT NOT NULL,
		scheduled_time TIMESTAMPTZ NOT NULL,
		download_status TEXT NOT NULL DEFAULT 'not_started',
		upload_status TEXT NOT NULL DEFAULT 'not_started',
		state TEXT NOT NULL DEFAULT 'waiting',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (post_id, user_id)
	);`,
	`CREATE INDEX IF NOT EXISTS queue_due_idx ON queue (scheduled_time) WHERE state IN ('waiting', 'processing', 'error');`,
	`CREATE INDEX IF NOT EXISTS queue_user_idx ON queue (user_id, scheduled_time);`,
	`CREATE TABLE IF NOT EXISTS processed (
		id TEXT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		post_id TEXT NOT NULL,
		post_url TEXT NOT NULL,
		post_owner TEXT NOT NULL,
		link_type TEXT NOT NULL,
		message_id BIGINT NOT NULL,
		chat_id BIGINT NOT NULL,
		download_status TEXT NOT NULL,
		upload_status TEXT NOT NULL,
		state TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (post_id, user_id)
	);`,
	`CREATE INDEX IF NOT EXISTS processed_user_idx ON processed (user_id, timestamp DESC);`,
	`CREATE TABLE IF NOT EXISTS status_records (
		message_id BIGINT NOT NULL,
		chat_id BIGINT NOT NULL,
		message_type TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		producer TEXT NOT NULL DEFAULT 'bot',
		synchronization_state TEXT NOT NULL DEFAULT 'added',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (chat_id, message_type)
	);`,
	`CREATE TABLE IF NOT EXISTS users (
		user_id BIGINT PRIMARY KEY,
		chat_id BIGINT NOT NULL,
		status TEXT NOT NULL DEFAULT 'allowed',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
}

// EnsureSchema creates the persistence tables if they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
