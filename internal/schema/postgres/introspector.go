// Package postgres introspects a live Postgres database into schema
// snapshots via information_schema.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/querydesk/querydesk/internal/schema"
)

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

func Open(ctx context.Context, cfg DBConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

type Introspector struct {
	db *sql.DB
}

func NewIntrospector(db *sql.DB) *Introspector {
	return &Introspector{db: db}
}

func (i *Introspector) HealthCheck(ctx context.Context) error {
	if err := i.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Snapshot reads every public table's columns in declaration order.
func (i *Introspector) Snapshot(ctx context.Context) (schema.Snapshot, error) {
	query := `
SELECT table_name, column_name, data_type
FROM information_schema.columns
WHERE table_schema = 'public'
ORDER BY table_name, ordinal_position`
	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return schema.Snapshot{}, fmt.Errorf("introspect columns: %w", err)
	}
	defer rows.Close()

	var tables []schema.Table
	var current *schema.Table
	for rows.Next() {
		var tableName, columnName, dataType string
		if err := rows.Scan(&tableName, &columnName, &dataType); err != nil {
			return schema.Snapshot{}, fmt.Errorf("scan column row: %w", err)
		}
		if current == nil || current.Name != tableName {
			tables = append(tables, schema.Table{Name: tableName})
			current = &tables[len(tables)-1]
		}
		current.Columns = append(current.Columns, schema.Column{Name: columnName, Type: dataType})
	}
	if err := rows.Err(); err != nil {
		return schema.Snapshot{}, fmt.Errorf("iterate column rows: %w", err)
	}

	return schema.NewSnapshot(tables), nil
}
