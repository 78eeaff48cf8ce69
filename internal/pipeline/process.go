package pipeline

import (
	"context"
	"fmt"
	"os"

	"modstab/internal/flatten"
	"modstab/internal/pageinfo"
	"modstab/internal/record"
	"modstab/internal/xmltree"
)

// Output is what processing one input file yields. Warnings are buffered
// here instead of being written directly so the runner can emit them in
// input order regardless of worker scheduling.
type Output struct {
	Record   *record.Record
	Pages    []*record.Record
	Warnings []string
}

// ProcessFn parses and flattens a single input file.
//
// When to use:
//   - Production: NewMETSProcess / NewALTOProcess.
//   - Tests: inject a deterministic function without file I/O.
type ProcessFn func(ctx context.Context, path string) (*Output, error)

// NewMETSProcess returns a ProcessFn that flattens a METS/MODS document into
// one record. When pageInfo is set, it additionally extracts one record per
// physical page.
func NewMETSProcess(pageInfo bool) ProcessFn {
	return func(ctx context.Context, path string) (*Output, error) {
		out := &Output{}
		root, err := parseFile(ctx, path, out)
		if err != nil {
			return nil, err
		}

		rec, err := flatten.MetsDocument(root, out.warnf)
		if err != nil {
			return nil, err
		}
		rec.SetString("mets_file", path)
		out.Record = rec

		if pageInfo {
			pages, err := pageinfo.ExtractPages(root, out.warnf)
			if err != nil {
				return nil, err
			}
			out.Pages = pages
			for _, p := range out.Pages {
				p.SetString("mets_file", path)
			}
		}
		return out, nil
	}
}

// NewALTOProcess returns a ProcessFn that flattens one ALTO document into
// one record.
func NewALTOProcess() ProcessFn {
	return func(ctx context.Context, path string) (*Output, error) {
		out := &Output{}
		root, err := parseFile(ctx, path, out)
		if err != nil {
			return nil, err
		}

		rec, err := flatten.AltoDocument(root, out.warnf)
		if err != nil {
			return nil, err
		}
		rec.SetString("alto_file", path)
		out.Record = rec
		return out, nil
	}
}

func (o *Output) warnf(format string, args ...any) {
	o.Warnings = append(o.Warnings, fmt.Sprintf(format, args...))
}

func parseFile(ctx context.Context, path string, out *Output) (*xmltree.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	root, err := xmltree.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return root, nil
}
