// Package flatten walks parsed MODS/METS and ALTO element trees and produces
// one flat record per document.
//
// For each encountered element the dispatcher decides, from the element's
// local name and its immediate ancestor context, which reduction strategy
// applies (see strategy.go) and whether to recurse. Unknown elements are not
// dropped: they are captured generically under a column named after their
// position, so schema extensions still surface in the output.
//
// Absence of optional elements is represented, not raised; unknown elements
// and malformed values degrade locally with a diagnostic; only a missing
// required root structure fails the document.
package flatten

import (
	"fmt"

	"modstab/internal/record"
	"modstab/internal/xmltree"
)

// Warnf receives per-document diagnostics (schema surprises, malformed
// values, forced singletons). It must never be nil inside this package;
// use Document/ModsRecord/AltoDocument which default it.
type Warnf func(format string, args ...any)

func nopWarnf(string, ...any) {}

// Document flattens one parsed document into a record, dispatching on the
// root element's schema.
//
// Errors:
//   - unknown root namespace/local name
//   - METS documents without embedded MODS metadata
func Document(root *xmltree.Element, warnf Warnf) (*record.Record, error) {
	switch xmltree.DetectSchema(root) {
	case xmltree.SchemaMets:
		return MetsDocument(root, warnf)
	case xmltree.SchemaMods:
		rec := record.New()
		if err := ModsRecord(rec, root, "", warnf); err != nil {
			return nil, err
		}
		return rec, nil
	case xmltree.SchemaAlto:
		return AltoDocument(root, warnf)
	default:
		return nil, fmt.Errorf("unknown document schema (namespace %q, root <%s>)", root.Name.Space, root.Name.Local)
	}
}

// tagGroup bundles sibling elements sharing a local name, preserving both
// the first-occurrence order of tags and document order within each group.
type tagGroup struct {
	local string
	elems []*xmltree.Element
}

// groupByTag groups children by local name. Grouping (rather than handling
// children one by one) keeps singleton checks and per-group discrimination
// (authority, type attributes) straightforward.
func groupByTag(children []*xmltree.Element) []tagGroup {
	var groups []tagGroup
	index := map[string]int{}
	for _, c := range children {
		i, ok := index[c.Name.Local]
		if !ok {
			i = len(groups)
			index[c.Name.Local] = i
			groups = append(groups, tagGroup{local: c.Name.Local})
		}
		groups[i].elems = append(groups[i].elems, c)
	}
	return groups
}

// forceSingleton returns the first element of the group, warning when the
// group unexpectedly holds more.
func forceSingleton(g tagGroup, warnf Warnf) *xmltree.Element {
	if len(g.elems) > 1 {
		warnf("forced single instance of <%s> (%d present)", g.local, len(g.elems))
	}
	return g.elems[0]
}

// genericFlatten captures an element the dispatcher has no explicit rule
// for: leaves become scalar columns keyed by their ancestor chain, containers
// recurse with an extended path. This is the documented forward-compatible
// degradation for schema surprises.
func genericFlatten(rec *record.Record, e *xmltree.Element, path string) {
	col := Path(path, e.Name.Local)
	if len(e.Children) == 0 {
		rec.Merge(col, e.Text, DefaultStrategy)
		return
	}
	for _, c := range e.Children {
		genericFlatten(rec, c, col)
	}
}

// groupText concatenates the text of all elements in the group, newline
// separated, skipping empties.
func groupText(elems []*xmltree.Element) string {
	t := ""
	for _, e := range elems {
		if e.Text == "" {
			continue
		}
		if t != "" {
			t += "\n"
		}
		t += e.Text
	}
	return t
}
