// Package duckdb runs validated queries against an embedded DuckDB
// database, intended for local and demo deployments.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/querydesk/querydesk/internal/executor"
)

func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return db, nil
}

type Runner struct {
	db       *sql.DB
	rowLimit int
}

func NewRunner(db *sql.DB, rowLimit int) *Runner {
	return &Runner{db: db, rowLimit: rowLimit}
}

func (r *Runner) Run(ctx context.Context, sqlText string) (executor.Result, error) {
	rows, err := r.db.QueryContext(ctx, sqlText)
	if err != nil {
		return executor.Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return executor.Result{}, fmt.Errorf("query columns: %w", err)
	}

	result := executor.Result{Columns: columns, Rows: make([][]any, 0)}
	for rows.Next() {
		if r.rowLimit > 0 && len(result.Rows) >= r.rowLimit {
			result.Truncated = true
			break
		}
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return executor.Result{}, fmt.Errorf("scan row: %w", err)
		}
		result.Rows = append(result.Rows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return executor.Result{}, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}
