package flatten

import (
	"fmt"

	"modstab/internal/record"
	"modstab/internal/xmltree"
)

// MetsDocument flattens one METS container into a document-level record:
// the embedded MODS metadata at the root of the column namespace, plus
// METS-level columns under the "mets" prefix.
//
// Errors:
//   - the container holds no dmdSec with embedded MODS metadata.
func MetsDocument(root *xmltree.Element, warnf Warnf) (*record.Record, error) {
	if warnf == nil {
		warnf = nopWarnf
	}

	mods := findMods(root)
	if mods == nil {
		return nil, fmt.Errorf("mets: no MODS metadata in any dmdSec")
	}

	rec := record.New()
	if err := ModsRecord(rec, mods, "", warnf); err != nil {
		return nil, err
	}
	metsFlatten(rec, root, "mets", warnf)
	return rec, nil
}

// findMods locates the primary MODS record: the first mods element inside
// the first dmdSec that has one.
func findMods(root *xmltree.Element) *xmltree.Element {
	for _, dmd := range root.ChildrenNamed(xmltree.NSMets, "dmdSec") {
		if mods := dmd.FirstDescendant(xmltree.NSMods, "mods"); mods != nil {
			return mods
		}
	}
	return nil
}

// metsFlatten produces the METS-level document columns. Structural sections
// (structMap, structLink, dmdSec, amdSec, metsHdr) are ignored deliberately
// at document granularity; the page-info extractor covers them per page.
func metsFlatten(rec *record.Record, e *xmltree.Element, path string, warnf Warnf) {
	for _, g := range groupByTag(e.Children) {
		switch g.local {
		case "amdSec", "dmdSec", "metsHdr", "structLink", "structMap":
			// Handled elsewhere or intentionally untabled.

		case "fileSec":
			metsFlatten(rec, forceSingleton(g, warnf), Path(path, "fileSec"), warnf)

		case "fileGrp":
			for _, el := range g.elems {
				use, ok := el.Attribute("USE")
				if !ok {
					warnf("fileGrp without USE attribute")
					continue
				}
				rec.SetInt(CountPath(path, Keyed("fileGrp", use)), int64(len(el.Children)))
			}

		default:
			warnf("unknown element <%s> under <%s>", g.local, e.Name.Local)
			for _, el := range g.elems {
				genericFlatten(rec, el, path)
			}
		}
	}
}
