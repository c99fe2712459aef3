package db

import (
	"context"
	"database/sql"
)

// Executor runs statements on a connection pool or an open transaction
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ Executor = (*sql.DB)(nil)
	_ Executor = (*sql.Tx)(nil)
)

// Database is a connection pool whose schema is brought up to date on Connect
type Database interface {
	Connect(ctx context.Context) error
	Close() error
	DB() *sql.DB
	Path() string
}
