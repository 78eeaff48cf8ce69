// Package metrics defines the minimal metrics seam used by the pipeline.
//
// The core only ever talks to the Backend interface; concrete backends
// (Datadog, or the nop default) live in subpackages so no vendor SDK leaks
// into pipeline code.
package metrics

import "sync"

// Labels attach dimensions to a metric sample.
type Labels map[string]string

// Backend receives metric samples. Implementations must be safe for
// concurrent use; the pipeline's workers report from multiple goroutines.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)

	// Flush submits buffered samples. Close stops any background flushing
	// and performs one final Flush.
	Flush() error
	Close() error
}

// Metric names emitted by the pipeline.
const (
	MetricDocumentsTotal   = "modstab_documents_total"      // labels: status=ok|failed
	MetricPagesTotal       = "modstab_pages_total"          // no labels
	MetricRunDurationSecs  = "modstab_run_duration_seconds" // one sample per run
	MetricRowsWrittenTotal = "modstab_rows_written_total"   // labels: table
)

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs the process-wide backend. Call once at startup.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		backend = nopBackend{}
		return
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter increments a counter on the installed backend.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records a distribution sample on the installed backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush submits buffered samples on the installed backend.
func Flush() error { return current().Flush() }

// Close shuts down the installed backend.
func Close() error { return current().Close() }

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }
func (nopBackend) Close() error                             { return nil }
