// Package publish copies finished tables into Postgres.
package publish

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/table"
)

var _ core.Publisher = (*Postgres)(nil)

// Postgres writes tables with the COPY protocol, one transaction per table.
type Postgres struct {
	pool *pgxpool.Pool
}

// Connect opens a pool to url and verifies it with a ping.
func Connect(ctx context.Context, url string, maxConns int32) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Publish creates name if it does not exist and copies every row of t into
// it. Nothing is written if any step fails.
func (p *Postgres) Publish(ctx context.Context, name string, t *table.Table) (int64, error) {
	ident, err := ParseIdentifier(name)
	if err != nil {
		return 0, err
	}
	cols, err := ColumnNames(t)
	if err != nil {
		return 0, err
	}
	if len(cols) == 0 {
		return 0, fmt.Errorf("table has no columns")
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // No-op once committed

	if _, err := tx.Exec(ctx, CreateTableSQL(ident, t)); err != nil {
		return 0, fmt.Errorf("create table: %w", err)
	}

	n, err := tx.CopyFrom(ctx, ident, cols, pgx.CopyFromRows(Rows(t)))
	if err != nil {
		return 0, fmt.Errorf("copy rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return n, nil
}

// ParseIdentifier splits "table" or "schema.table".
func ParseIdentifier(name string) (pgx.Identifier, error) {
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("invalid table name %q", name)
	}
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("invalid table name %q", name)
		}
	}
	return pgx.Identifier(parts), nil
}

// ColumnName converts a header to a database column name.
// "Transaction ID" -> "transaction_id"
func ColumnName(header string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(header), " ", "_"))
}

// ColumnNames maps every header of t, failing when two collapse to the
// same database name.
func ColumnNames(t *table.Table) ([]string, error) {
	out := make([]string, t.Width())
	seen := make(map[string]string, t.Width())
	for i, c := range t.Columns() {
		name := ColumnName(c.Name)
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("columns %q and %q both map to %q", prev, c.Name, name)
		}
		seen[name] = c.Name
		out[i] = name
	}
	return out, nil
}

// CreateTableSQL returns the CREATE TABLE IF NOT EXISTS statement for t.
func CreateTableSQL(ident pgx.Identifier, t *table.Table) string {
	defs := make([]string, t.Width())
	for i, c := range t.Columns() {
		typ := "text"
		if c.Kind == table.KindNumeric {
			typ = "double precision"
		}
		defs[i] = pgx.Identifier{ColumnName(c.Name)}.Sanitize() + " " + typ
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", ident.Sanitize(), strings.Join(defs, ", "))
}

// Rows converts t to COPY input: float64 for numbers, string for text and
// nil for missing values.
func Rows(t *table.Table) [][]any {
	out := make([][]any, t.Rows())
	for i := range out {
		row := t.Row(i)
		vals := make([]any, len(row))
		for j, v := range row {
			vals[j] = v.Interface()
		}
		out[i] = vals
	}
	return out
}
