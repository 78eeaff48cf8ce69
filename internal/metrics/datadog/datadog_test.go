package datadog

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"modstab/internal/metrics"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

// fakeSubmitter records submitted payloads instead of talking to Datadog.
type fakeSubmitter struct {
	mu       sync.Mutex
	payloads []datadogV2.MetricPayload
}

func (f *fakeSubmitter) SubmitMetrics(_ context.Context, body datadogV2.MetricPayload, _ ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, body)
	return datadogV2.IntakePayloadAccepted{}, nil, nil
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func newTestBackend(t *testing.T) (*Backend, *fakeSubmitter) {
	t.Helper()

	fake := &fakeSubmitter{}
	b, err := NewBackend(context.Background(), Options{
		JobName: "modstab-test",
		Tags:    []string{"suite:unit"},
		// A long interval keeps the ticker quiet; tests flush explicitly.
		FlushEvery: time.Hour,
		now:        func() time.Time { return time.Unix(1700000000, 0) },
		submitter:  fake,
	})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	return b, fake
}

func TestBackend_FlushSubmitsBufferedSeries(t *testing.T) {
	b, fake := newTestBackend(t)
	defer func() { _ = b.Close() }()

	b.IncCounter("modstab_documents_total", 1, metrics.Labels{"status": "ok"})
	b.IncCounter("modstab_documents_total", 2, metrics.Labels{"status": "ok"})
	b.IncCounter("modstab_documents_total", 1, metrics.Labels{"status": "failed"})
	b.ObserveHistogram("modstab_run_duration_seconds", 2.0, nil)
	b.ObserveHistogram("modstab_run_duration_seconds", 4.0, nil)

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := fake.count(); got != 1 {
		t.Fatalf("payloads: got %d, want 1", got)
	}

	series := fake.payloads[0].Series
	if got, want := len(series), 3; got != want {
		t.Fatalf("series: got %d, want %d", got, want)
	}

	// Deterministic order: sorted by metric name, then tags. The failed
	// counter sorts before ok.
	if series[0].Metric != "modstab_documents_total" || series[0].Tags[len(series[0].Tags)-1] != "status:failed" {
		t.Fatalf("series 0: %v %v", series[0].Metric, series[0].Tags)
	}
	if got := *series[0].Points[0].Value; got != 1 {
		t.Fatalf("failed count: got %v, want 1", got)
	}
	if got := *series[1].Points[0].Value; got != 3 {
		t.Fatalf("ok count: got %v, want 3", got)
	}
	if series[2].Metric != "modstab_run_duration_seconds" {
		t.Fatalf("series 2: %v", series[2].Metric)
	}
	if got := *series[2].Points[0].Value; got != 3.0 {
		t.Fatalf("duration gauge (mean): got %v, want 3", got)
	}
	if got := *series[2].Points[0].Timestamp; got != 1700000000 {
		t.Fatalf("timestamp: got %v", got)
	}
}

func TestBackend_BaseTagsOnEverySeries(t *testing.T) {
	b, fake := newTestBackend(t)
	defer func() { _ = b.Close() }()

	b.IncCounter("modstab_pages_total", 5, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	tags := fake.payloads[0].Series[0].Tags
	var haveJob, haveEnv, haveSuite bool
	for _, tag := range tags {
		switch {
		case tag == "job:modstab-test":
			haveJob = true
		case tag == "suite:unit":
			haveSuite = true
		case len(tag) > 4 && tag[:4] == "env:":
			haveEnv = true
		}
	}
	if !haveJob || !haveEnv || !haveSuite {
		t.Fatalf("base tags missing: %v", tags)
	}
}

func TestBackend_EmptyFlushDoesNotSubmit(t *testing.T) {
	b, fake := newTestBackend(t)
	defer func() { _ = b.Close() }()

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := fake.count(); got != 0 {
		t.Fatalf("payloads: got %d, want 0", got)
	}
}

func TestBackend_FlushResetsBuffers(t *testing.T) {
	b, fake := newTestBackend(t)
	defer func() { _ = b.Close() }()

	b.IncCounter("modstab_pages_total", 1, nil)
	_ = b.Flush()
	_ = b.Flush()

	if got := fake.count(); got != 1 {
		t.Fatalf("payloads after double flush: got %d, want 1", got)
	}
}

func TestBackend_CloseFlushesOnce(t *testing.T) {
	b, fake := newTestBackend(t)

	b.IncCounter("modstab_pages_total", 7, nil)
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := fake.count(); got != 1 {
		t.Fatalf("payloads after close: got %d, want 1", got)
	}
}

func TestBackend_IgnoresNonPositiveDeltas(t *testing.T) {
	b, fake := newTestBackend(t)
	defer func() { _ = b.Close() }()

	b.IncCounter("modstab_pages_total", 0, nil)
	b.IncCounter("modstab_pages_total", -3, nil)
	b.ObserveHistogram("modstab_run_duration_seconds", -1, nil)

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := fake.count(); got != 0 {
		t.Fatalf("payloads: got %d, want 0", got)
	}
}

func TestParseTagsCSV(t *testing.T) {
	t.Parallel()

	got := ParseTagsCSV(" env:prod , service:modstab ,, ")
	want := []string{"env:prod", "service:modstab"}
	if len(got) != len(want) {
		t.Fatalf("ParseTagsCSV: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ParseTagsCSV: got %v, want %v", got, want)
		}
	}
	if ParseTagsCSV("") != nil {
		t.Fatalf("empty input should yield nil")
	}
}
