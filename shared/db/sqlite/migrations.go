package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dfryer1193/commotion/shared/db"
)

type migration struct {
	version int
	name    string
	up      string
}

// migrations are applied in order; versions must be strictly increasing
var migrations = []migration{
	{
		version: 1,
		name:    "create_posts_table",
		up: `
			CREATE TABLE IF NOT EXISTS posts (
				slug TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				content TEXT NOT NULL,
				format TEXT NOT NULL,
				author_name TEXT NOT NULL,
				media_path TEXT NOT NULL,
				created_at TIMESTAMP,
				modified_at TIMESTAMP NOT NULL,
				published_at TIMESTAMP
			);

			CREATE INDEX IF NOT EXISTS idx_posts_created_at
			ON posts(created_at)
			WHERE published_at IS NOT NULL;
		`,
	},
	{
		version: 2,
		name:    "create_options_table",
		up: `
			CREATE TABLE IF NOT EXISTS options (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL
			);
		`,
	},
}

const (
	createMigrationsTableQuery = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`

	currentVersionQuery = `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`

	recordMigrationQuery = `INSERT INTO schema_migrations (version, name) VALUES (?, ?)`
)

// runMigrations applies every migration newer than the recorded schema version,
// each in its own transaction, and returns how many were applied
func runMigrations(ctx context.Context, conn *sql.DB) (int, error) {
	if _, err := conn.ExecContext(ctx, createMigrationsTableQuery); err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var current int
	if err := conn.QueryRowContext(ctx, currentVersionQuery).Scan(&current); err != nil {
		return 0, fmt.Errorf("failed to get current schema version: %w", err)
	}

	applied := 0
	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		err := db.RunInTransaction(ctx, conn, func(txCtx context.Context) error {
			executor := db.ExecutorFor(txCtx, conn)
			if _, err := executor.ExecContext(txCtx, m.up); err != nil {
				return fmt.Errorf("failed to execute migration %d (%s): %w", m.version, m.name, err)
			}
			if _, err := executor.ExecContext(txCtx, recordMigrationQuery, m.version, m.name); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", m.version, err)
			}
			return nil
		})
		if err != nil {
			return applied, err
		}
		applied++
	}

	return applied, nil
}
