// Package sqlite implements storage.Repository on SQLite.
//
// SQLite is the default sink: it is the exact shape the original tooling
// staged into, and its dynamic typing means exported cells (string, int64,
// float64) can be stored natively without a declared column type.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"modstab/internal/storage"
)

// Repo implements storage.Repository for SQLite.
type Repo struct {
	db *sql.DB

	// columns tracks known columns per table so AddColumns can skip ALTERs
	// for columns we created ourselves.
	columns map[string]map[string]struct{}
}

func init() {
	storage.Register("sqlite", New)
}

// New opens (or creates) the SQLite database at cfg.DSN.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db, columns: map[string]map[string]struct{}{}}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

// EnsureTable creates the table if needed. Columns are declared without a
// type; SQLite's affinity rules keep native values intact.
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
	}
	b.WriteString(")")

	if _, err := r.db.ExecContext(ctx, b.String()); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	r.remember(table, columns)
	return nil
}

// AddColumns widens the table. SQLite has no ADD COLUMN IF NOT EXISTS, so
// we track what we created and skip known columns.
func (r *Repo) AddColumns(ctx context.Context, table string, columns []string) error {
	if err := storage.CheckColumns(columns); err != nil {
		return err
	}

	known := r.columns[table]
	for _, c := range columns {
		if _, ok := known[c]; ok {
			continue
		}
		q := "ALTER TABLE " + sqlIdent(table) + " ADD COLUMN " + sqlIdent(c)
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("add column %s.%s: %w", table, c, err)
		}
		r.remember(table, []string{c})
	}
	return nil
}

// SQLite bounds bind variables per statement (SQLITE_MAX_VARIABLE_NUMBER,
// 32766 by default). Wide tables force small row chunks.
const maxBindParams = 32000

// InsertRows appends rows in order, chunking multi-value INSERTs to stay
// under the bind-variable limit.
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
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		b.WriteString(strings.TrimRight(strings.Repeat("?,", len(columns)), ","))
		b.WriteString(")")
		args = append(args, row...)
	}

	if _, err := r.db.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

func (r *Repo) remember(table string, columns []string) {
	known := r.columns[table]
	if known == nil {
		known = map[string]struct{}{}
		r.columns[table] = known
	}
	for _, c := range columns {
		known[c] = struct{}{}
	}
}

// sqlIdent double-quotes an identifier per the SQL standard.
func sqlIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
