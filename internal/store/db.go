package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/zap"
)

const memoryPath = ":memory:"

// NewDB opens the DuckDB ledger at path. ":memory:" and "" open an in-memory database.
func NewDB(path string) (*sql.DB, error) {
	if path == memoryPath {
		path = ""
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %q: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open ledger %q: %w", path, err)
	}
	// an in-memory database lives as long as its single connection
	if path == "" {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// QueryInterceptor is the subset of *sql.DB the stores use.
type QueryInterceptor interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type loggingInterceptor struct {
	db *sql.DB
}

// NewQueryInterceptor wraps db with debug logging of every statement.
func NewQueryInterceptor(db *sql.DB) QueryInterceptor {
	return &loggingInterceptor{db: db}
}

func (l *loggingInterceptor) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	defer l.log(time.Now(), query, args)
	return l.db.QueryRowContext(ctx, query, args...)
}

func (l *loggingInterceptor) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	defer l.log(time.Now(), query, args)
	return l.db.QueryContext(ctx, query, args...)
}

func (l *loggingInterceptor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	defer l.log(time.Now(), query, args)
	return l.db.ExecContext(ctx, query, args...)
}

func (l *loggingInterceptor) log(start time.Time, query string, args []any) {
	zap.S().Named("store").Debugw("query", "sql", query, "args", args, "elapsed", time.Since(start))
}
