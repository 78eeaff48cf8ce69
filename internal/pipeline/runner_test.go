package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"modstab/internal/record"
)

// jitterProcess builds one record per file, sleeping a random few
// milliseconds so worker completion order differs from input order.
func jitterProcess(ctx context.Context, path string) (*Output, error) {
	time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)

	if strings.Contains(path, "broken") {
		return nil, errors.New("parse xml: unexpected EOF")
	}

	out := &Output{Record: record.New()}
	out.Record.SetString("source", path)
	out.Warnings = append(out.Warnings, "note for "+path)
	return out, nil
}

func TestRunner_CommitsInInputOrder(t *testing.T) {
	t.Parallel()

	files := make([]string, 40)
	for i := range files {
		files[i] = fmt.Sprintf("doc-%02d.xml", i)
	}

	docs := record.NewSet()
	var buf bytes.Buffer
	warns := NewWarnings(&buf)

	r := &Runner{Workers: 8, Process: jitterProcess}
	if err := r.Run(context.Background(), files, docs, nil, warns); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := warns.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	table := docs.Finalize()
	if got, want := len(table.Rows), len(files); got != want {
		t.Fatalf("rows: got %d, want %d", got, want)
	}
	for i, row := range table.Rows {
		if row[0] != files[i] {
			t.Fatalf("row %d: got %v, want %v (commit order must match input order)", i, row[0], files[i])
		}
	}

	// Warning rows also follow input order, not worker completion order.
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if got, want := len(lines), len(files)+1; got != want {
		t.Fatalf("warning lines: got %d, want %d", got, want)
	}
	for i, f := range files {
		if !strings.HasPrefix(lines[i+1], f+",") {
			t.Fatalf("warning %d: got %q, want prefix %q", i, lines[i+1], f)
		}
	}
}

func TestRunner_FailedDocumentBecomesSkip(t *testing.T) {
	t.Parallel()

	files := []string{"ok-1.xml", "broken.xml", "ok-2.xml"}
	docs := record.NewSet()

	r := &Runner{Workers: 2, Process: jitterProcess}
	if err := r.Run(context.Background(), files, docs, nil, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got, want := docs.Len(), 2; got != want {
		t.Fatalf("records: got %d, want %d", got, want)
	}
	skipped := docs.Skipped()
	if len(skipped) != 1 || skipped[0].Source != "broken.xml" {
		t.Fatalf("skipped: got %v", skipped)
	}

	// The failed file contributes no row, and the others stay ordered.
	table := docs.Finalize()
	if table.Rows[0][0] != "ok-1.xml" || table.Rows[1][0] != "ok-2.xml" {
		t.Fatalf("rows: got %v", table.Rows)
	}
}

func TestRunner_PagesGoToPageSet(t *testing.T) {
	t.Parallel()

	process := func(ctx context.Context, path string) (*Output, error) {
		out := &Output{Record: record.New()}
		out.Record.SetString("source", path)
		for i := 0; i < 2; i++ {
			p := record.New()
			p.SetString("page_of", path)
			out.Pages = append(out.Pages, p)
		}
		return out, nil
	}

	docs := record.NewSet()
	pages := record.NewSet()
	r := &Runner{Workers: 3, Process: process}
	if err := r.Run(context.Background(), []string{"a", "b"}, docs, pages, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got, want := docs.Len(), 2; got != want {
		t.Fatalf("docs: got %d, want %d", got, want)
	}
	if got, want := pages.Len(), 4; got != want {
		t.Fatalf("pages: got %d, want %d", got, want)
	}
}

func TestRunner_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	docs := record.NewSet()
	r := &Runner{Workers: 2, Process: jitterProcess}
	err := r.Run(ctx, []string{"a", "b", "c"}, docs, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run: got %v, want context.Canceled", err)
	}
}

func TestRunner_NoFiles(t *testing.T) {
	t.Parallel()

	r := &Runner{Process: jitterProcess}
	if err := r.Run(context.Background(), nil, record.NewSet(), nil, nil); err != nil {
		t.Fatalf("Run with no files: %v", err)
	}
}
