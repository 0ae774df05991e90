package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		uid           TEXT NOT NULL UNIQUE,
		username      TEXT NOT NULL,
		pin_hash      TEXT NOT NULL,
		balance_cents BIGINT NOT NULL DEFAULT 0 CHECK (balance_cents >= 0),
		blocked       BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_username_lower_idx ON users (LOWER(username))`,

	`CREATE TABLE IF NOT EXISTS admins (
		username      TEXT PRIMARY KEY,
		password_hash TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS stalls (
		id       BIGSERIAL PRIMARY KEY,
		stall_id TEXT NOT NULL UNIQUE,
		name     TEXT NOT NULL,
		pin_hash TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS menu_items (
		id          BIGSERIAL PRIMARY KEY,
		stall_id    TEXT NOT NULL REFERENCES stalls(stall_id),
		name        TEXT NOT NULL,
		price_cents BIGINT NOT NULL CHECK (price_cents > 0)
	)`,

	`CREATE TABLE IF NOT EXISTS tokens (
		id          BIGSERIAL PRIMARY KEY,
		token_no    INTEGER NOT NULL,
		stall_id    TEXT NOT NULL,
		stall_name  TEXT NOT NULL,
		username    TEXT NOT NULL,
		total_cents BIGINT NOT NULL CHECK (total_cents > 0),
		status      TEXT NOT NULL DEFAULT 'Pending' CHECK (status IN ('Pending','Served')),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (stall_id, token_no)
	)`,
	`CREATE INDEX IF NOT EXISTS tokens_username_idx ON tokens (username, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS token_items (
		id          BIGSERIAL PRIMARY KEY,
		token_id    BIGINT NOT NULL REFERENCES tokens(id),
		line_no     INTEGER NOT NULL,
		name        TEXT NOT NULL,
		qty         INTEGER NOT NULL CHECK (qty > 0),
		price_cents BIGINT NOT NULL CHECK (price_cents > 0),
		UNIQUE (token_id, line_no)
	)`,
}

// Migrate applies the idempotent DDL above. Statements run one by one so
// a failure names the statement that broke.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
