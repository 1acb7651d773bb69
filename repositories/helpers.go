package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLExecutor lets a repository method run inside a caller-owned
// transaction or straight on the pool.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError
	}
	return nil
}

func timeDurationMS(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
