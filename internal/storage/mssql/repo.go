// Package mssql implements storage.Repository on SQL Server.
//
// Same approach as the Postgres backend: NVARCHAR(MAX) columns, scalars
// formatted to strings, NULL as the absence marker. Identifier quoting uses
// brackets, and ADD COLUMN existence is checked via sys.columns because
// T-SQL has no ADD COLUMN IF NOT EXISTS.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"modstab/internal/record"
	"modstab/internal/storage"
)

// Repo implements storage.Repository for SQL Server.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

// New opens a SQL Server connection for cfg.DSN (sqlserver:// URL form).
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

func (r *Repo) EnsureTable(ctx context.Context, table string, columns []string) error {
	if err := storage.CheckColumns(columns); err != nil {
		return err
	}

	var cols strings.Builder
	for i, c := range columns {
		if i > 0 {
			cols.WriteString(", ")
		}
		cols.WriteString(sqlIdent(c))
		cols.WriteString(" NVARCHAR(MAX)")
	}

	q := fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s)",
		strings.ReplaceAll(table, "'", "''"), sqlIdent(table), cols.String(),
	)
	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

func (r *Repo) AddColumns(ctx context.Context, table string, columns []string) error {
	if err := storage.CheckColumns(columns); err != nil {
		return err
	}

	for _, c := range columns {
		q := fmt.Sprintf(
			"IF COL_LENGTH(N'%s', N'%s') IS NULL ALTER TABLE %s ADD %s NVARCHAR(MAX)",
			strings.ReplaceAll(table, "'", "''"),
			strings.ReplaceAll(c, "'", "''"),
			sqlIdent(table), sqlIdent(c),
		)
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("add column %s.%s: %w", table, c, err)
		}
	}
	return nil
}

// SQL Server caps a statement at 2100 parameters.
const maxBindParams = 2000

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
			fmt.Fprintf(&b, "@p%d", n)
			n++
			if cell == nil {
				args = append(args, nil)
			} else {
				args = append(args, record.FormatScalar(cell))
			}
		}
		b.WriteString(")")
	}

	if _, err := r.db.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

// sqlIdent brackets a T-SQL identifier.
func sqlIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}
