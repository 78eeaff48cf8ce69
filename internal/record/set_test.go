package record

import (
	"errors"
	"sync"
	"testing"
)

func TestSet_ColumnUnionGrows(t *testing.T) {
	t.Parallel()

	// {a,b} then {b,c} must yield columns {a,b,c} in first-seen order, with
	// nil cells where a record never set the column.
	s := NewSet()

	r1 := New()
	r1.SetString("a", "1")
	r1.SetString("b", "2")
	s.Add(r1)

	r2 := New()
	r2.SetString("b", "3")
	r2.SetString("c", "4")
	s.Add(r2)

	table := s.Finalize()
	wantCols := []string{"a", "b", "c"}
	if len(table.Columns) != len(wantCols) {
		t.Fatalf("columns: got %v, want %v", table.Columns, wantCols)
	}
	for i := range wantCols {
		if table.Columns[i] != wantCols[i] {
			t.Fatalf("columns: got %v, want %v", table.Columns, wantCols)
		}
	}

	if got := table.Rows[0][2]; got != nil {
		t.Fatalf("row 0 col c: got %v, want nil", got)
	}
	if got := table.Rows[1][0]; got != nil {
		t.Fatalf("row 1 col a: got %v, want nil", got)
	}
	if got, want := table.Rows[1][1], "3"; got != want {
		t.Fatalf("row 1 col b: got %v, want %v", got, want)
	}
}

func TestSet_AbsentDistinctFromEmptyAndZero(t *testing.T) {
	t.Parallel()

	s := NewSet()

	r1 := New()
	r1.SetString("s", "")
	r1.SetInt("n", 0)
	s.Add(r1)

	r2 := New()
	r2.SetString("other", "x")
	s.Add(r2)

	table := s.Finalize()
	if got := table.Rows[0][0]; got != "" {
		t.Fatalf("empty string cell: got %v (%T), want \"\"", got, got)
	}
	if got := table.Rows[0][1]; got != int64(0) {
		t.Fatalf("zero int cell: got %v (%T), want int64(0)", got, got)
	}
	if table.Rows[1][0] != nil || table.Rows[1][1] != nil {
		t.Fatalf("absent cells must be nil, got %v / %v", table.Rows[1][0], table.Rows[1][1])
	}
}

func TestSet_SkipsDoNotProduceRows(t *testing.T) {
	t.Parallel()

	s := NewSet()
	r := New()
	r.SetString("a", "1")
	s.Add(r)
	s.AddSkip("broken.xml", errors.New("parse xml: unexpected EOF"))

	if got, want := s.Len(), 1; got != want {
		t.Fatalf("Len: got %d, want %d", got, want)
	}
	skipped := s.Skipped()
	if len(skipped) != 1 || skipped[0].Source != "broken.xml" {
		t.Fatalf("Skipped: got %v", skipped)
	}
	if got, want := len(s.Finalize().Rows), 1; got != want {
		t.Fatalf("rows: got %d, want %d", got, want)
	}
}

func TestSet_ConcurrentAdd(t *testing.T) {
	t.Parallel()

	s := NewSet()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := New()
			r.SetString("col", "v")
			s.Add(r)
		}()
	}
	wg.Wait()

	if got, want := s.Len(), 32; got != want {
		t.Fatalf("Len: got %d, want %d", got, want)
	}
	table := s.Finalize()
	if len(table.Columns) != 1 || len(table.Rows) != 32 {
		t.Fatalf("table shape: %d columns, %d rows", len(table.Columns), len(table.Rows))
	}
}
