package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/dfryer1193/commotion/shared/db"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const (
	pathEnv     = "SQLITE_DB_PATH"
	defaultPath = "./commotion.db"
)

// pragmas applied to every new connection pool
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
	"PRAGMA busy_timeout=5000",
}

var errAlreadyConnected = errors.New("database already connected")

type SQLiteConfig struct {
	Path string
}

// NewSQLiteConfig reads the database path from SQLITE_DB_PATH, defaulting to ./commotion.db
func NewSQLiteConfig() *SQLiteConfig {
	path := os.Getenv(pathEnv)
	if path == "" {
		path = defaultPath
	}
	return &SQLiteConfig{Path: path}
}

var _ db.Database = (*SQLiteDB)(nil)

// SQLiteDB is a post mirror database backed by a single SQLite file
type SQLiteDB struct {
	path string
	conn *sql.DB
}

func NewSQLiteDB(cfg *SQLiteConfig) *SQLiteDB {
	return &SQLiteDB{path: cfg.Path}
}

// Connect opens the database file, creating it if needed, and migrates it
// to the latest schema
func (s *SQLiteDB) Connect(ctx context.Context) error {
	if s.conn != nil {
		return errAlreadyConnected
	}

	conn, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err := configure(ctx, conn); err != nil {
		conn.Close()
		return err
	}

	applied, err := runMigrations(ctx, conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if applied > 0 {
		log.Info().Str("path", s.path).Int("applied", applied).Msg("Migrated database schema")
	}

	s.conn = conn
	return nil
}

func configure(ctx context.Context, conn *sql.DB) error {
	if err := conn.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}
	return nil
}

// Close is a no-op on a database that is not connected
func (s *SQLiteDB) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *SQLiteDB) DB() *sql.DB {
	return s.conn
}

func (s *SQLiteDB) Path() string {
	return s.path
}
