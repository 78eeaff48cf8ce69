package record

import (
	"fmt"
	"sync"
)

// Skip records one document that could not be flattened.
type Skip struct {
	Source string
	Err    error
}

func (s Skip) String() string { return fmt.Sprintf("%s: %v", s.Source, s.Err) }

// Set collects finalized records from many documents into one table shape.
//
// The set tracks the union of all column paths ever observed, preserving
// first-seen order, so the exported table's structure is a deterministic
// function of the input ordering. Add serializes concurrent callers; the
// records themselves are never shared between goroutines after Add.
type Set struct {
	mu      sync.Mutex
	records []*Record
	columns []string
	seen    map[string]struct{}
	skipped []Skip
}

// NewSet returns an empty record set.
func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// Add finalizes the record and appends it, extending the column union with
// any paths not previously seen.
func (s *Set) Add(r *Record) {
	r.Finalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, r)
	for _, c := range r.Columns() {
		if _, ok := s.seen[c]; ok {
			continue
		}
		s.seen[c] = struct{}{}
		s.columns = append(s.columns, c)
	}
}

// AddSkip records that a document failed and was left out of the table.
// The run continues; skips are reported alongside the finished dataset.
func (s *Set) AddSkip(source string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skipped = append(s.skipped, Skip{Source: source, Err: err})
}

// Len returns the number of collected records.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Skipped returns the documents that failed, in the order they were reported.
func (s *Set) Skipped() []Skip {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Skip, len(s.skipped))
	copy(out, s.skipped)
	return out
}

// Table is the finalized tabular dataset handed to a writer. Cells use nil
// as the absence marker, distinct from "" and from 0.
type Table struct {
	Columns []string
	Rows    [][]any
}

// Finalize reconciles every record against the column union: each row
// reports a cell for every column, nil where the record never set it.
// Column order is first-seen order across the whole run. No reduction
// happens across records.
func (s *Set) Finalize() *Table {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &Table{Columns: make([]string, len(s.columns))}
	copy(t.Columns, s.columns)

	t.Rows = make([][]any, 0, len(s.records))
	for _, r := range s.records {
		row := make([]any, len(t.Columns))
		for i, c := range t.Columns {
			row[i] = r.Value(c).Export()
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
