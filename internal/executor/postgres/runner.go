// Package postgres runs validated queries against Postgres inside
// read-only transactions.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/querydesk/querydesk/internal/executor"
)

type Runner struct {
	db       *sql.DB
	rowLimit int
}

func NewRunner(db *sql.DB, rowLimit int) *Runner {
	return &Runner{db: db, rowLimit: rowLimit}
}

func (r *Runner) Run(ctx context.Context, sqlText string) (executor.Result, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return executor.Result{}, fmt.Errorf("begin read-only tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, sqlText)
	if err != nil {
		return executor.Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result, err := collectRows(rows, r.rowLimit)
	if err != nil {
		return executor.Result{}, err
	}
	if err := tx.Commit(); err != nil {
		return executor.Result{}, fmt.Errorf("commit read-only tx: %w", err)
	}
	return result, nil
}

func collectRows(rows *sql.Rows, rowLimit int) (executor.Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return executor.Result{}, fmt.Errorf("query columns: %w", err)
	}

	result := executor.Result{Columns: columns, Rows: make([][]any, 0)}
	for rows.Next() {
		if rowLimit > 0 && len(result.Rows) >= rowLimit {
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
