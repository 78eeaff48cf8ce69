// Package pipeline turns a set of input files into finalized record sets:
// scan inputs, parse and flatten each document on a worker pool, and commit
// the results in input order so output is deterministic whatever the worker
// count.
package pipeline

import (
	"context"
	"log"
	"runtime"
	"sync"

	"modstab/internal/metrics"
	"modstab/internal/record"
)

// Logger is the minimal logging interface used by the runner.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// Runner fans input files out to a worker pool. Each worker parses and
// flattens independently; the commit loop then walks results in input order,
// so column order, skip lists and warning rows do not depend on scheduling.
//
// A file that fails to parse or flatten becomes a skip entry on the document
// set; it never aborts the run.
type Runner struct {
	Workers int    // <= 0 means GOMAXPROCS
	Logger  Logger // nil means discard
	Process ProcessFn
}

// Run processes files and commits records into docs (one per file) and pages
// (zero or more per file, when the ProcessFn extracts them). pages and warns
// may be nil.
//
// Errors:
//   - Per-file failures are recorded via docs.AddSkip and counted in metrics;
//     Run only returns an error when ctx is canceled.
func (r *Runner) Run(ctx context.Context, files []string, docs, pages *record.Set, warns *Warnings) error {
	if len(files) == 0 {
		return ctx.Err()
	}

	logf := r.logger()
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(files) {
		workers = len(files)
	}

	type result struct {
		out *Output
		err error
	}
	results := make([]result, len(files))

	idxCh := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range idxCh {
				out, err := r.Process(ctx, files[i])
				results[i] = result{out: out, err: err}
			}
		}()
	}

	for i := range files {
		select {
		case idxCh <- i:
		case <-ctx.Done():
			// Unprocessed files keep a nil result and are skipped below.
			results[i] = result{err: ctx.Err()}
		}
	}
	close(idxCh)
	wg.Wait()

	for i, res := range results {
		if res.err != nil {
			docs.AddSkip(files[i], res.err)
			metrics.IncCounter(metrics.MetricDocumentsTotal, 1, metrics.Labels{"status": "failed"})
			logf("file=%s status=failed err=%v", files[i], res.err)
			continue
		}

		if warns != nil {
			for _, msg := range res.out.Warnings {
				warns.Add(files[i], msg)
			}
		}
		docs.Add(res.out.Record)
		metrics.IncCounter(metrics.MetricDocumentsTotal, 1, metrics.Labels{"status": "ok"})

		if pages != nil && len(res.out.Pages) > 0 {
			for _, p := range res.out.Pages {
				pages.Add(p)
			}
			metrics.IncCounter(metrics.MetricPagesTotal, float64(len(res.out.Pages)), nil)
		}
	}

	logf("stage=flatten files=%d ok=%d skipped=%d workers=%d",
		len(files), docs.Len(), len(docs.Skipped()), workers)
	return ctx.Err()
}

func (r *Runner) logger() func(format string, v ...any) {
	if r.Logger == nil {
		l := log.New(discardWriter{}, "", 0)
		return l.Printf
	}
	return r.Logger.Printf
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (n int, err error) { return len(p), nil }
