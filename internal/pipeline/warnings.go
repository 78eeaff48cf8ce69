package pipeline

import (
	"encoding/csv"
	"io"
	"sync"
)

// Warnings writes per-file diagnostics as CSV rows of (file, message). The
// runner buffers warnings per document and appends them at commit time, so
// the file order is deterministic; the mutex keeps direct use safe anyway.
type Warnings struct {
	mu  sync.Mutex
	w   *csv.Writer
	n   int
	err error
}

// NewWarnings wraps w and writes the header row.
func NewWarnings(w io.Writer) *Warnings {
	ws := &Warnings{w: csv.NewWriter(w)}
	ws.err = ws.w.Write([]string{"file", "message"})
	return ws
}

// Add appends one warning row. Write errors are sticky and reported by Flush.
func (ws *Warnings) Add(file, message string) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	ws.n++
	if ws.err != nil {
		return
	}
	ws.err = ws.w.Write([]string{file, message})
}

// Len reports how many warnings were added.
func (ws *Warnings) Len() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.n
}

// Flush drains the CSV writer and returns the first error seen.
func (ws *Warnings) Flush() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	ws.w.Flush()
	if ws.err != nil {
		return ws.err
	}
	return ws.w.Error()
}
