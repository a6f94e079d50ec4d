// Package sqlite provides an embedded note store for single-node deployments and tests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/glebarez/go-sqlite" // driver "sqlite"
	"go.uber.org/zap"

	"moodnote/pkg/logger"
)

var schema = []string{
	`PRAGMA busy_timeout = 5000`,
	`CREATE TABLE IF NOT EXISTS public_notes (
		id           TEXT PRIMARY KEY,
		user_id      TEXT    NOT NULL,
		mood         TEXT    NOT NULL,
		message      TEXT    NOT NULL,
		date         TEXT    NOT NULL,
		created_at   INTEGER NOT NULL,
		like_count   INTEGER NOT NULL DEFAULT 0 CHECK (like_count >= 0),
		liked_by     TEXT    NOT NULL DEFAULT '[]',
		published_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_public_notes_created_at ON public_notes (created_at)`,
	`CREATE TABLE IF NOT EXISTS private_notes (
		id             TEXT PRIMARY KEY,
		user_id        TEXT    NOT NULL,
		mood           TEXT    NOT NULL,
		message        TEXT    NOT NULL,
		date           TEXT    NOT NULL,
		created_at     INTEGER NOT NULL,
		is_public      INTEGER NOT NULL DEFAULT 0,
		public_note_id TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_private_notes_user_created ON private_notes (user_id, created_at)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_private_notes_public_per_day
		ON private_notes (user_id, date) WHERE is_public = 1`,
}

// Open открывает базу по пути path (":memory:" для временной) и создает схему.
// SQLite допускает одного писателя, поэтому пул ограничен одним соединением.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	log := logger.Log(ctx).With(zap.String("method", "sqlite.Open"))

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxIdleTime(0)
	conn.SetConnMaxLifetime(0)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, q := range schema {
		if _, err := conn.ExecContext(ctx, q); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	log.Info(ctx, "sqlite database ready", zap.String("path", path))
	return conn, nil
}
