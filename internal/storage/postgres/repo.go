// Package postgres implements storage.Repository on PostgreSQL via pgxpool.
//
// Columns are created as TEXT and scalar cells are formatted to strings on
// insert; the column union is open-ended and per-column SQL types cannot be
// known up front. NULL remains the absence marker.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"modstab/internal/record"
	"modstab/internal/storage"
)

// Repo implements storage.Repository for Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

// New connects a pgx pool to cfg.DSN.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() { r.pool.Close() }

func (r *Repo) EnsureTable(ctx context.Context, table string, columns []string) error {
	if err := storage.CheckColumns(columns); err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(sqlIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqlIdent(c))
		b.WriteString(" TEXT")
	}
	b.WriteString(")")

	if _, err := r.pool.Exec(ctx, b.String()); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

func (r *Repo) AddColumns(ctx context.Context, table string, columns []string) error {
	if err := storage.CheckColumns(columns); err != nil {
		return err
	}

	for _, c := range columns {
		q := "ALTER TABLE " + sqlIdent(table) + " ADD COLUMN IF NOT EXISTS " + sqlIdent(c) + " TEXT"
		if _, err := r.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("add column %s.%s: %w", table, c, err)
		}
	}
	return nil
}

// Postgres caps a statement at 65535 bind parameters.
const maxBindParams = 65000

func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 || len(columns) == 0 {
		return nil
	}

	chunk := maxBindParams / len(columns)
	if chunk < 1 {
		chunk = 1
	}
	for start := 0; start < len(rows); start += chunk {
		end := start + chunk
		if end > len(rows) {
			end = len(rows)
		}
		if err := r.insertChunk(ctx, table, columns, rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) insertChunk(ctx context.Context, table string, columns []string, rows [][]any) error {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(sqlIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqlIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	n := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j, cell := range row {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", n)
			n++
			args = append(args, textCell(cell))
		}
		b.WriteString(")")
	}

	if _, err := r.pool.Exec(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

// textCell formats an exported cell for a TEXT column; nil stays NULL.
func textCell(cell any) any {
	if cell == nil {
		return nil
	}
	return record.FormatScalar(cell)
}

func sqlIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
