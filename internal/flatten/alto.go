package flatten

import (
	"fmt"
	"strconv"

	"modstab/internal/record"
	"modstab/internal/xmltree"
)

// AltoDocument flattens one ALTO page-layout document into a record.
//
// Layout geometry and text content are reduced to per-document descriptive
// statistics (element counts, confidence mean) rather than one column per
// occurrence: documents vary wildly in length, and per-occurrence columns
// would not be tabular-stable across a corpus.
func AltoDocument(root *xmltree.Element, warnf Warnf) (*record.Record, error) {
	if warnf == nil {
		warnf = nopWarnf
	}

	rec := record.New()
	rec.SetString("alto_xmlns", root.Name.Space)

	f := &altoFlattener{rec: rec, warnf: warnf}
	f.flatten(root, "")
	return rec, nil
}

type altoFlattener struct {
	rec   *record.Record
	warnf Warnf
}

// altoScalars are leaf elements captured as plain scalar columns.
var altoScalars = map[string]struct{}{
	"MeasurementUnit":           {},
	"processingDateTime":        {},
	"processingAgency":          {},
	"processingStepDescription": {},
	"processingStepSettings":    {},
	"softwareCreator":           {},
	"softwareName":              {},
	"softwareVersion":           {},
	"fileName":                  {},
	"fileIdentifier":            {},
}

func (f *altoFlattener) flatten(e *xmltree.Element, path string) {
	for _, g := range groupByTag(e.Children) {
		switch {
		case g.local == "Description" || g.local == "OCRProcessing" ||
			g.local == "processingSoftware" || g.local == "sourceImageInformation" ||
			g.local == "Layout":
			f.flatten(forceSingleton(g, f.warnf), Path(path, g.local))

		case g.local == "Processing" || g.local == "ocrProcessingStep" ||
			g.local == "preProcessingStep" || g.local == "postProcessingStep":
			// Processing steps are ordered; each gets its own enumerated
			// column subtree (step0, step1, ...).
			for n, el := range g.elems {
				f.flatten(el, Path(path, fmt.Sprintf("%s%d", g.local, n)))
			}

		case g.local == "Page":
			f.page(forceSingleton(g, f.warnf), Path(path, "Page"))

		case g.local == "Tags":
			for _, el := range g.elems {
				f.subtreeCounts(el, Path(path, "Tags"))
			}

		case g.local == "Styles":
			f.styles(g, Path(path, "Styles"))

		case isAltoScalar(g.local):
			el := forceSingleton(g, f.warnf)
			f.rec.Merge(Path(path, g.local), el.Text, record.Overwrite)

		default:
			strat, known := strategyFor(e.Name.Local, g.local)
			if !known {
				f.warnf("unknown element <%s> under <%s>", g.local, e.Name.Local)
			}
			for _, el := range g.elems {
				if len(el.Children) > 0 {
					genericFlatten(f.rec, el, path)
					continue
				}
				f.rec.Merge(Path(path, g.local), el.Text, strat)
			}
		}
	}
}

func isAltoScalar(local string) bool {
	_, ok := altoScalars[local]
	return ok
}

// page captures the page attributes and reduces the page's entire subtree to
// counts and confidence statistics.
func (f *altoFlattener) page(page *xmltree.Element, base string) {
	for _, a := range page.Attr {
		col := Path(base, a.Name.Local)
		switch a.Name.Local {
		case "WIDTH", "HEIGHT":
			n, err := strconv.ParseInt(a.Value, 10, 64)
			if err != nil {
				f.warnf("Page %s=%q is not an integer, dropped", a.Name.Local, a.Value)
				continue
			}
			f.rec.SetInt(col, n)
		default:
			f.rec.SetString(col, a.Value)
		}
	}

	f.subtreeCounts(page, base)

	wcStrategy, _ := strategyFor("String", "@WC")
	for _, s := range page.Descendants("", "String") {
		if _, tagged := s.Attribute("TAGREFS"); tagged {
			f.rec.Merge(CountPath(base, "String-TAGREFS"), "", record.CountInc)
		}

		wc, ok := s.Attribute("WC")
		if !ok {
			// Absent confidence is not an error and does not enter the mean.
			continue
		}
		v, err := strconv.ParseFloat(wc, 64)
		if err != nil {
			f.warnf("String WC=%q is not a number, skipped", wc)
			continue
		}
		f.rec.MergeNumber(StatPath(base, "String", "WC", "mean"), v, wcStrategy)
		f.rec.Merge(StatPath(base, "String", "WC", "count"), "", record.CountInc)
	}
}

// styles counts style definitions and aggregates text style font sizes.
func (f *altoFlattener) styles(g tagGroup, base string) {
	fsStrategy, _ := strategyFor("TextStyle", "@FONTSIZE")
	for _, el := range g.elems {
		f.subtreeCounts(el, base)
		for _, ts := range el.ChildrenNamed("", "TextStyle") {
			fs, ok := ts.Attribute("FONTSIZE")
			if !ok {
				continue
			}
			v, err := strconv.ParseFloat(fs, 64)
			if err != nil {
				f.warnf("TextStyle FONTSIZE=%q is not a number, skipped", fs)
				continue
			}
			f.rec.MergeNumber(StatPath(base, "TextStyle", "FONTSIZE", "mean"), v, fsStrategy)
		}
	}
}

// subtreeCounts emits one occurrence-count column per distinct tag below e.
func (f *altoFlattener) subtreeCounts(e *xmltree.Element, base string) {
	e.Walk(func(d *xmltree.Element) {
		if d == e {
			return
		}
		f.rec.Merge(CountPath(base, d.Name.Local), "", record.CountInc)
	})
}
