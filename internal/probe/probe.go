// Package probe samples an XML corpus and reports what a flattening run
// would produce: which schemas the files carry, which columns they would
// contribute, and which diagnostics they would raise.
//
// The probe is meant for sizing up an unfamiliar corpus before committing
// to a full run. Inspection is best-effort and never fails the probe: a
// file that cannot be parsed or classified is recorded as failed and the
// remaining files are still inspected.
//
// This package is intentionally dependency-light and side-effect free.
package probe

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"modstab/internal/flatten"
	"modstab/internal/pipeline"
	"modstab/internal/xmltree"
)

// Options control how much of the corpus the probe inspects.
type Options struct {
	// MaxFiles caps the number of files inspected. Zero or negative
	// means no cap.
	MaxFiles int
}

// Info describes one inspected file.
type Info struct {
	Path      string   `json:"path"`
	Schema    string   `json:"schema"`
	Namespace string   `json:"namespace,omitempty"`
	Columns   []string `json:"columns,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// File inspects a single XML file. Parse and classification failures are
// recorded on the returned Info, not returned as errors.
func File(path string) Info {
	info := Info{Path: path, Schema: xmltree.SchemaUnknown.String()}

	f, err := os.Open(path)
	if err != nil {
		info.Error = err.Error()
		return info
	}
	defer f.Close()

	root, err := xmltree.Parse(f)
	if err != nil {
		info.Error = err.Error()
		return info
	}

	info.Schema = xmltree.DetectSchema(root).String()
	info.Namespace = root.Name.Space

	rec, err := flatten.Document(root, func(format string, args ...any) {
		info.Warnings = append(info.Warnings, fmt.Sprintf(format, args...))
	})
	if err != nil {
		info.Error = err.Error()
		return info
	}
	rec.Finalize()
	info.Columns = rec.Columns()
	return info
}

// ColumnStat counts in how many inspected files a column appeared.
type ColumnStat struct {
	Name  string `json:"name"`
	Files int    `json:"files"`
}

// Report aggregates probe results over a corpus sample.
type Report struct {
	// Found is the number of XML files discovered under the inputs;
	// Inspected is how many of them the probe actually opened (bounded
	// by Options.MaxFiles).
	Found     int `json:"found"`
	Inspected int `json:"inspected"`
	Failed    int `json:"failed"`

	// BySchema counts inspected files per detected schema.
	BySchema map[string]int `json:"by_schema"`

	// Columns holds per-column file counts, most common first.
	Columns []ColumnStat `json:"columns,omitempty"`

	// Files holds the per-file details in input order.
	Files []Info `json:"files"`
}

// Corpus discovers XML files under the given inputs (files or directories)
// and inspects up to Options.MaxFiles of them.
//
// The only fatal errors are input discovery failures and context
// cancellation; per-file problems are recorded in the report.
func Corpus(ctx context.Context, inputs []string, opt Options) (*Report, error) {
	files, err := pipeline.ScanInputs(inputs)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		Found:    len(files),
		BySchema: make(map[string]int),
	}
	if opt.MaxFiles > 0 && len(files) > opt.MaxFiles {
		files = files[:opt.MaxFiles]
	}

	colFiles := make(map[string]int)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info := File(path)
		rep.Inspected++
		rep.BySchema[info.Schema]++
		if info.Error != "" {
			rep.Failed++
		}
		for _, col := range info.Columns {
			colFiles[col]++
		}
		rep.Files = append(rep.Files, info)
	}

	rep.Columns = make([]ColumnStat, 0, len(colFiles))
	for name, n := range colFiles {
		rep.Columns = append(rep.Columns, ColumnStat{Name: name, Files: n})
	}
	sort.SliceStable(rep.Columns, func(i, j int) bool {
		if rep.Columns[i].Files == rep.Columns[j].Files {
			return rep.Columns[i].Name < rep.Columns[j].Name
		}
		return rep.Columns[i].Files > rep.Columns[j].Files
	})

	return rep, nil
}

// Text renders the report as a human-readable summary. Output is
// deterministic for a given corpus.
func (r *Report) Text() string {
	var b strings.Builder

	fmt.Fprintf(&b, "corpus report:\tfound=%d inspected=%d failed=%d\n", r.Found, r.Inspected, r.Failed)

	schemas := make([]string, 0, len(r.BySchema))
	for s := range r.BySchema {
		schemas = append(schemas, s)
	}
	sort.Strings(schemas)
	for _, s := range schemas {
		fmt.Fprintf(&b, "schema\t%s\t%d\n", s, r.BySchema[s])
	}

	if len(r.Columns) > 0 {
		fmt.Fprintf(&b, "%-40s\tfiles\n", "column")
		for _, c := range r.Columns {
			fmt.Fprintf(&b, "%-40s\t%d\n", c.Name, c.Files)
		}
	}

	for _, f := range r.Files {
		if f.Error != "" {
			fmt.Fprintf(&b, "failed\t%s\t%s\n", f.Path, f.Error)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
