package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"modstab/internal/metrics"
	"modstab/internal/metrics/datadog"
	"modstab/internal/pipeline"
	"modstab/internal/record"
	"modstab/internal/storage"

	// register all backends with the storage factory.
	_ "modstab/internal/storage/all"
)

// main is the entry point for the modstab binary. It scans the METS/MODS
// inputs, flattens each document into one row, optionally extracts per-page
// rows, and writes the result tables to the selected storage backend.
func main() {
	var (
		storageKind       string
		dsn               string
		table             string
		pageInfo          bool
		pageTable         string
		warningsPath      string
		workers           int
		metricsBackendFlg string
	)

	flag.StringVar(&storageKind, "storage", "sqlite", "storage backend (sqlite, postgres, mssql)")
	flag.StringVar(&dsn, "output", "modstab.sqlite3", "output DSN (file path for sqlite)")
	flag.StringVar(&table, "table", "mods_info", "document table name")
	flag.BoolVar(&pageInfo, "page-info", false, "extract per-page structural rows as well")
	flag.StringVar(&pageTable, "page-info-table", "page_info", "page table name (with -page-info)")
	flag.StringVar(&warningsPath, "warnings", "", "warnings CSV path (default <output>.warnings.csv)")
	flag.IntVar(&workers, "workers", 0, "parallel flatten workers (0 = all CPUs)")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "none", "metrics backend to use (datadog, none)")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	if flag.NArg() == 0 {
		fatalf("usage: %s [flags] <mets-file-or-dir>...", os.Args[0])
	}
	if warningsPath == "" {
		warningsPath = dsn + ".warnings.csv"
	}

	setupMetrics(metricsBackendFlg, "modstab", *verbose)
	defer func() {
		if err := metrics.Close(); err != nil {
			log.Printf("metrics: close/flush error: %v", err)
		}
	}()

	ctx := context.Background()
	start := time.Now()

	files, err := pipeline.ScanInputs(flag.Args())
	if err != nil {
		log.Fatalf("%v", err)
	}
	if len(files) == 0 {
		log.Fatalf("no XML files found under %v", flag.Args())
	}
	if *verbose {
		log.Printf("stage=scan files=%d storage=%s table=%s page_info=%v",
			len(files), storageKind, table, pageInfo)
	}

	wf, err := os.Create(warningsPath)
	if err != nil {
		log.Fatalf("create warnings file: %v", err)
	}
	defer wf.Close()
	warns := pipeline.NewWarnings(wf)

	docs := record.NewSet()
	pages := record.NewSet()
	runner := &pipeline.Runner{
		Workers: workers,
		Logger:  runLogger(*verbose),
		Process: pipeline.NewMETSProcess(pageInfo),
	}
	if err := runner.Run(ctx, files, docs, pages, warns); err != nil {
		log.Fatalf("%v", err)
	}

	repo, err := storage.New(ctx, storage.Config{Kind: storageKind, DSN: os.ExpandEnv(dsn)})
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	defer repo.Close()

	docTable := docs.Finalize()
	if err := storage.WriteTable(ctx, repo, table, docTable, 0); err != nil {
		log.Fatalf("write %s: %v", table, err)
	}
	metrics.IncCounter(metrics.MetricRowsWrittenTotal, float64(len(docTable.Rows)), metrics.Labels{"table": table})

	if pageInfo {
		pageTab := pages.Finalize()
		if err := storage.WriteTable(ctx, repo, pageTable, pageTab, 0); err != nil {
			log.Fatalf("write %s: %v", pageTable, err)
		}
		metrics.IncCounter(metrics.MetricRowsWrittenTotal, float64(len(pageTab.Rows)), metrics.Labels{"table": pageTable})
	}

	if err := warns.Flush(); err != nil {
		log.Printf("warnings: %v", err)
	}
	for _, s := range docs.Skipped() {
		log.Printf("skipped: %v", s)
	}

	metrics.ObserveHistogram(metrics.MetricRunDurationSecs, time.Since(start).Seconds(), nil)
	log.Printf("done: documents=%d pages=%d skipped=%d warnings=%d duration=%s",
		docs.Len(), pages.Len(), len(docs.Skipped()), warns.Len(),
		time.Since(start).Truncate(time.Millisecond))
}

// setupMetrics installs the selected metrics backend; the nop backend stays
// in place on "none" or on init failure.
func setupMetrics(backendName, jobName string, verbose bool) {
	switch backendName {
	case "datadog":
		extraTags := datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS"))
		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName: jobName,
			Tags:    extraTags,
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=%v job_name=%v tags=%v", backendName, jobName, extraTags)
		metrics.SetBackend(b)

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
}

func runLogger(verbose bool) pipeline.Logger {
	if verbose {
		return log.Default()
	}
	return nil
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
