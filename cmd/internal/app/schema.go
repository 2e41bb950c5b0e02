package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Idempotent DDL applied at startup. There is no migration history to
// replay; the schema is small enough to declare in full.
var schemaDDL = []string{
	`CREATE SCHEMA IF NOT EXISTS upvote`,
	`CREATE TABLE IF NOT EXISTS upvote.app_user (
		id            BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		username      TEXT NOT NULL,
		password_hash TEXT NOT NULL DEFAULT '',
		role          TEXT NOT NULL DEFAULT 'USER',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT uq_app_user_username UNIQUE (username)
	)`,
	`CREATE TABLE IF NOT EXISTS upvote.post (
		id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		title      TEXT NOT NULL,
		vote_count INTEGER NOT NULL DEFAULT 0 CHECK (vote_count >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// EnsureSchema applies the schema DDL. Safe to run on every boot.
func EnsureSchema(parent context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(parent, 10*time.Second)
	defer cancel()

	for _, stmt := range schemaDDL {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
