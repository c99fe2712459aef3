package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"
)

var errAbort = errors.New("abort")

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// every connection to :memory: is a separate database
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	if _, err := conn.Exec(`CREATE TABLE slugs (slug TEXT PRIMARY KEY)`); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	return conn
}

func insertSlug(ctx context.Context, conn *sql.DB, slug string) error {
	_, err := ExecutorFor(ctx, conn).ExecContext(ctx, "INSERT INTO slugs (slug) VALUES (?)", slug)
	return err
}

func countSlugs(t *testing.T, conn *sql.DB) int {
	t.Helper()

	var n int
	if err := conn.QueryRow("SELECT COUNT(*) FROM slugs").Scan(&n); err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return n
}

func TestRunInTransaction(t *testing.T) {
	tests := []struct {
		name      string
		fn        func(ctx context.Context, conn *sql.DB) error
		wantErr   error
		wantCount int
	}{
		{
			name: "commit",
			fn: func(ctx context.Context, conn *sql.DB) error {
				return insertSlug(ctx, conn, "hello")
			},
			wantCount: 1,
		},
		{
			name: "rollback on error",
			fn: func(ctx context.Context, conn *sql.DB) error {
				if err := insertSlug(ctx, conn, "hello"); err != nil {
					return err
				}
				return errAbort
			},
			wantErr:   errAbort,
			wantCount: 0,
		},
		{
			name: "nested calls share the transaction",
			fn: func(ctx context.Context, conn *sql.DB) error {
				if err := insertSlug(ctx, conn, "outer"); err != nil {
					return err
				}
				return RunInTransaction(ctx, conn, func(inner context.Context) error {
					outerTx, _ := txFromContext(ctx)
					innerTx, _ := txFromContext(inner)
					if outerTx != innerTx {
						return errors.New("nested call opened a new transaction")
					}
					return insertSlug(inner, conn, "inner")
				})
			},
			wantCount: 2,
		},
		{
			name: "nested error rolls back everything",
			fn: func(ctx context.Context, conn *sql.DB) error {
				if err := insertSlug(ctx, conn, "outer"); err != nil {
					return err
				}
				return RunInTransaction(ctx, conn, func(inner context.Context) error {
					if err := insertSlug(inner, conn, "inner"); err != nil {
						return err
					}
					return errAbort
				})
			},
			wantErr:   errAbort,
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := setupTestDB(t)

			err := RunInTransaction(context.Background(), conn, func(ctx context.Context) error {
				if !InTransaction(ctx) {
					t.Error("expected a transaction in context")
				}
				return tt.fn(ctx, conn)
			})

			if tt.wantErr == nil && err != nil {
				t.Fatalf("RunInTransaction() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("RunInTransaction() error = %v, want %v", err, tt.wantErr)
			}
			if got := countSlugs(t, conn); got != tt.wantCount {
				t.Errorf("rows = %d, want %d", got, tt.wantCount)
			}
		})
	}
}

func TestRunInTransaction_PanicRollsBack(t *testing.T) {
	conn := setupTestDB(t)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		_ = RunInTransaction(context.Background(), conn, func(ctx context.Context) error {
			if err := insertSlug(ctx, conn, "hello"); err != nil {
				t.Fatalf("insert failed: %v", err)
			}
			panic("boom")
		})
	}()

	if got := countSlugs(t, conn); got != 0 {
		t.Errorf("rows = %d, want 0 after panic", got)
	}
}

func TestExecutorFor(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()

	if ExecutorFor(ctx, conn) != Executor(conn) {
		t.Error("expected the connection pool outside a transaction")
	}
	if InTransaction(ctx) {
		t.Error("background context should not carry a transaction")
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	if ExecutorFor(contextWithTx(ctx, tx), conn) != Executor(tx) {
		t.Error("expected the transaction from context")
	}
}
