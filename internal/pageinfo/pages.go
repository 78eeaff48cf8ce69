// Package pageinfo extracts one flat record per physical page from a METS
// structural map.
//
// This is a different traversal granularity than the document-level
// flattening: the physical structMap provides page order, the fileSec
// provides the page's file locations, and the logical structMap (reached
// through structLink references) provides the logical structures the page
// belongs to. A page whose logical links cannot be resolved still yields a
// record, with the logical columns absent.
package pageinfo

import (
	"fmt"
	"strconv"
	"strings"

	"modstab/internal/flatten"
	"modstab/internal/record"
	"modstab/internal/xmltree"
)

// multivolumeTypes are logical division types that legitimately have no
// physical structMap: the physical pages live in the per-volume files.
var multivolumeTypes = []string{
	"multivolume_work",
	"MultivolumeWork",
	"multivolume_manuscript",
	"periodical",
}

// ExtractPages walks the METS structural map and returns one record per
// physical page division, in document order.
//
// Edge cases:
//   - A multivolume work or periodical has no physical structMap by design;
//     it yields zero pages and no error.
//   - A page with unresolved file or logical references keeps its record;
//     only the affected columns stay absent.
//
// Errors:
//   - No physical structMap on a document that is not a multivolume work.
//   - No logical structMap or no fileSec.
func ExtractPages(mets *xmltree.Element, warnf flatten.Warnf) ([]*record.Record, error) {
	if warnf == nil {
		warnf = func(string, ...any) {}
	}

	physical := structMapOfType(mets, "PHYSICAL")
	logical := structMapOfType(mets, "LOGICAL")

	if physical == nil {
		if logical != nil && isMultivolume(logical) {
			return nil, nil
		}
		return nil, fmt.Errorf("pageinfo: no structMap[TYPE=PHYSICAL] (and not a multivolume work)")
	}
	if logical == nil {
		return nil, fmt.Errorf("pageinfo: no structMap[TYPE=LOGICAL]")
	}
	fileSec := mets.FirstChild(xmltree.NSMets, "fileSec")
	if fileSec == nil {
		return nil, fmt.Errorf("pageinfo: no fileSec")
	}

	x := &extractor{
		warnf:    warnf,
		ppn:      recordIdentifier(mets, "gbv-ppn"),
		fileByID: indexFiles(fileSec),
		divByID:  indexDivs(logical),
		linksTo:  indexLinks(mets),
	}

	seq := physical.FirstChild(xmltree.NSMets, "div")
	if seq == nil {
		return nil, fmt.Errorf("pageinfo: physical structMap has no division")
	}
	if t, _ := seq.Attribute("TYPE"); t != "physSequence" {
		warnf("physical top division has TYPE=%q, expected physSequence", t)
	}

	var pages []*record.Record
	for i, div := range seq.ChildrenNamed(xmltree.NSMets, "div") {
		pages = append(pages, x.page(div, i))
	}
	return pages, nil
}

type extractor struct {
	warnf    flatten.Warnf
	ppn      string
	fileByID map[string]*xmltree.Element
	divByID  map[string]*xmltree.Element
	linksTo  map[string][]string // physical div ID -> logical div IDs
}

// page builds the record for one physical page division. idx is the page's
// position in document order, used when the ORDER attribute is missing.
func (x *extractor) page(div *xmltree.Element, idx int) *record.Record {
	rec := record.New()

	if x.ppn != "" {
		rec.SetString("ppn", x.ppn)
	}

	id, _ := div.Attribute("ID")
	if id != "" {
		rec.SetString("ID", id)
	}

	if t, ok := div.Attribute("TYPE"); ok {
		if t != "page" {
			x.warnf("physical division %s has TYPE=%q, expected page", id, t)
		}
		rec.SetString("type", t)
	}

	if o, ok := div.Attribute("ORDER"); ok {
		if n, err := strconv.ParseInt(o, 10, 64); err == nil {
			rec.SetInt("order", n)
		} else {
			x.warnf("division %s has non-numeric ORDER=%q", id, o)
		}
	} else {
		rec.SetInt("order", int64(idx+1))
	}
	if l, ok := div.Attribute("ORDERLABEL"); ok {
		rec.SetString("orderlabel", l)
	} else if l, ok := div.Attribute("LABEL"); ok {
		rec.SetString("orderlabel", l)
	}

	x.fileColumns(rec, div, id)
	x.logicalColumns(rec, id)

	return rec
}

// fileColumns resolves the page's file pointers through the fileSec index
// and emits one href column per file group USE.
func (x *extractor) fileColumns(rec *record.Record, div *xmltree.Element, id string) {
	for _, fptr := range div.ChildrenNamed(xmltree.NSMets, "fptr") {
		fileID, ok := fptr.Attribute("FILEID")
		if !ok {
			x.warnf("page %s: fptr without FILEID", id)
			continue
		}
		file := x.fileByID[fileID]
		if file == nil {
			x.warnf("page %s: unresolved FILEID %q", id, fileID)
			continue
		}

		use := ""
		if file.Parent != nil {
			use, _ = file.Parent.Attribute("USE")
		}

		href := ""
		if loc := file.FirstChild(xmltree.NSMets, "FLocat"); loc != nil {
			href, _ = loc.AttributeNS(xmltree.NSXlink, "href")
		}
		if href == "" {
			continue
		}
		rec.SetString(fmt.Sprintf("fileGrp_%s_file_FLocat_href", use), href)
	}
}

// logicalColumns follows structLink references from the page into the
// logical structMap and marks every reachable structure type, including the
// ancestors of directly linked divisions. Unresolved links leave the
// columns absent; the page is never dropped.
func (x *extractor) logicalColumns(rec *record.Record, id string) {
	seen := map[*xmltree.Element]struct{}{}

	var mark func(div *xmltree.Element)
	mark = func(div *xmltree.Element) {
		if _, done := seen[div]; done {
			return
		}
		seen[div] = struct{}{}

		if t, ok := div.Attribute("TYPE"); ok && t != "" {
			rec.SetInt("structMap-LOGICAL_TYPE_"+strings.ToLower(t), 1)
		}
		// Documents usually link parents explicitly, but not always.
		if p := div.Parent; p != nil && p.Name.Local == "div" {
			mark(p)
		}
	}

	for _, from := range x.linksTo[id] {
		div := x.divByID[from]
		if div == nil {
			x.warnf("page %s: unresolved structLink reference %q", id, from)
			continue
		}
		mark(div)
	}
}

// recordIdentifier pulls the document identifier (PPN) out of the embedded
// MODS record, matching the given source attribute.
func recordIdentifier(mets *xmltree.Element, source string) string {
	for _, dmd := range mets.ChildrenNamed(xmltree.NSMets, "dmdSec") {
		mods := dmd.FirstDescendant(xmltree.NSMods, "mods")
		if mods == nil {
			continue
		}
		for _, ri := range mods.Descendants(xmltree.NSMods, "recordIdentifier") {
			if s, _ := ri.Attribute("source"); s == source {
				return ri.Text
			}
		}
	}
	return ""
}

func structMapOfType(mets *xmltree.Element, typ string) *xmltree.Element {
	for _, sm := range mets.ChildrenNamed(xmltree.NSMets, "structMap") {
		if t, _ := sm.Attribute("TYPE"); t == typ {
			return sm
		}
	}
	return nil
}

func isMultivolume(logical *xmltree.Element) bool {
	for _, div := range logical.ChildrenNamed(xmltree.NSMets, "div") {
		t, _ := div.Attribute("TYPE")
		for _, mt := range multivolumeTypes {
			if t == mt {
				return true
			}
		}
	}
	return false
}

// indexFiles maps mets:file IDs to their elements; resolving file pointers
// per page would otherwise rescan the fileSec for every page.
func indexFiles(fileSec *xmltree.Element) map[string]*xmltree.Element {
	out := map[string]*xmltree.Element{}
	for _, grp := range fileSec.ChildrenNamed(xmltree.NSMets, "fileGrp") {
		for _, f := range grp.ChildrenNamed(xmltree.NSMets, "file") {
			if id, ok := f.Attribute("ID"); ok {
				out[id] = f
			}
		}
	}
	return out
}

// indexDivs maps logical division IDs to their elements.
func indexDivs(logical *xmltree.Element) map[string]*xmltree.Element {
	out := map[string]*xmltree.Element{}
	logical.Walk(func(e *xmltree.Element) {
		if e.Name.Local != "div" {
			return
		}
		if id, ok := e.Attribute("ID"); ok {
			out[id] = e
		}
	})
	return out
}

// indexLinks maps physical division IDs to the logical division IDs linking
// to them via structLink smLink elements.
func indexLinks(mets *xmltree.Element) map[string][]string {
	out := map[string][]string{}
	link := mets.FirstChild(xmltree.NSMets, "structLink")
	if link == nil {
		return out
	}
	for _, sm := range link.ChildrenNamed(xmltree.NSMets, "smLink") {
		to, okTo := sm.AttributeNS(xmltree.NSXlink, "to")
		from, okFrom := sm.AttributeNS(xmltree.NSXlink, "from")
		if !okTo || !okFrom {
			continue
		}
		out[to] = append(out[to], from)
	}
	return out
}
