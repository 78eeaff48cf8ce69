package storage

import (
	"context"

	"modstab/internal/record"
)

// WriteTable persists a finalized table: ensure the table exists with the
// full column union, then insert rows in batches, preserving record order.
//
// Edge cases:
//   - An empty table (no records at all) creates nothing and returns nil;
//     there is no meaningful schema to create.
func WriteTable(ctx context.Context, repo Repository, table string, t *record.Table, batchSize int) error {
	if len(t.Columns) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 256
	}

	if err := repo.EnsureTable(ctx, table, t.Columns); err != nil {
		return err
	}
	// The table may predate this run with a narrower schema.
	if err := repo.AddColumns(ctx, table, t.Columns); err != nil {
		return err
	}

	for start := 0; start < len(t.Rows); start += batchSize {
		end := start + batchSize
		if end > len(t.Rows) {
			end = len(t.Rows)
		}
		if err := repo.InsertRows(ctx, table, t.Columns, t.Rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}
