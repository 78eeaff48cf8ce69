package flatten

import (
	"fmt"
	"regexp"
	"strings"

	"modstab/internal/record"
	"modstab/internal/xmltree"
)

// ModsRecord flattens a mods element (and everything below it) into rec,
// with column paths rooted at path ("" for top-level documents).
//
// The element handling is explicit per tag: elements we ignore are ignored
// deliberately, and elements we have never seen degrade to generic capture
// with a diagnostic.
func ModsRecord(rec *record.Record, mods *xmltree.Element, path string, warnf Warnf) error {
	if warnf == nil {
		warnf = nopWarnf
	}
	if mods == nil {
		return fmt.Errorf("mods: no element")
	}
	f := &modsFlattener{rec: rec, warnf: warnf}
	f.flatten(mods, path)
	return nil
}

type modsFlattener struct {
	rec   *record.Record
	warnf Warnf
}

func (f *modsFlattener) flatten(e *xmltree.Element, path string) {
	context := e.Name.Local

	for _, g := range groupByTag(e.Children) {
		switch g.local {
		case "titleInfo":
			// Only the standard (untyped) title is kept; translated or
			// abbreviated titleInfo variants are out of scope here.
			standard := filterElems(g.elems, func(el *xmltree.Element) bool {
				_, typed := el.Attribute("type")
				return !typed
			})
			if len(standard) == 0 {
				continue
			}
			ti := forceSingleton(tagGroup{local: g.local, elems: standard}, f.warnf)
			f.flatten(ti, Path(path, "titleInfo"))

		case "originInfo":
			f.originInfo(g, path)

		case "place":
			f.flatten(forceSingleton(g, f.warnf), Path(path, "place"))

		case "location":
			// Former locations are filtered; only the current one is tabled.
			for _, el := range g.elems {
				if t, _ := el.Attribute("type"); t == "former" {
					f.warnf("filtered <location type=%q>", t)
					continue
				}
				f.flatten(el, Path(path, "location"))
			}

		case "physicalLocation", "shelfLocator":
			// A displayLabel variant sometimes accompanies the plain element;
			// it duplicates the value and is dropped.
			plain := filterElems(g.elems, func(el *xmltree.Element) bool {
				_, labeled := el.Attribute("displayLabel")
				return !labeled
			})
			if len(plain) == 0 {
				continue
			}
			el := forceSingleton(tagGroup{local: g.local, elems: plain}, f.warnf)
			strat, _ := strategyFor(context, g.local)
			f.rec.Merge(Path(path, g.local), el.Text, strat)

		case "dateIssued", "dateCreated", "dateCaptured", "dateOther":
			if text, ok := f.fixDates(g); ok {
				f.rec.Merge(Path(path, g.local), text, record.Overwrite)
			}

		case "classification", "genre":
			// One set column per authority.
			for _, el := range g.elems {
				auth, _ := el.Attribute("authority")
				f.rec.Merge(Path(path, Keyed(g.local, auth)), el.Text, record.SetUnion)
			}

		case "subject":
			for _, el := range g.elems {
				auth, _ := el.Attribute("authority")
				f.flatten(el, Path(path, Keyed("subject", auth)))
			}

		case "language":
			// Multiple language elements are legal; their terms merge into
			// one set per term kind.
			for _, el := range g.elems {
				f.flatten(el, Path(path, "language"))
			}

		case "name":
			f.names(g, path)

		case "recordInfo":
			f.flatten(forceSingleton(g, f.warnf), Path(path, "recordInfo"))

		case "recordIdentifier":
			for _, el := range g.elems {
				source, _ := el.Attribute("source")
				col := "recordIdentifier"
				if source != "" && source != "gbv-ppn" {
					col = Keyed(col, source)
				}
				f.rec.Merge(Path(path, col), el.Text, record.Overwrite)
			}

		case "identifier", "accessCondition":
			for _, el := range g.elems {
				typ, ok := el.Attribute("type")
				if !ok {
					f.warnf("<%s> without type attribute", g.local)
				}
				f.rec.Merge(Path(path, Keyed(g.local, typ)), el.Text, record.Overwrite)
			}

		case "relatedItem":
			for _, el := range g.elems {
				typ, _ := el.Attribute("type")
				switch typ {
				case "original", "host":
					f.flatten(el, Path(path, Keyed("relatedItem", typ)))
				default:
					// Series and other related items are not tabled.
				}
			}

		case "physicalDescription":
			for _, el := range g.elems {
				f.flatten(el, Path(path, "physicalDescription"))
			}

		case "note", "part", "cartographics", "extension", "nameIdentifier", "mods":
			// Deliberately ignored. Nested mods:mods appears inside subjects;
			// notes and parts carry no tabular-stable information.

		default:
			f.leafOrUnknown(g, context, path)
		}
	}
}

// leafOrUnknown merges leaf groups via the rule table and captures anything
// the table has never heard of generically, with a diagnostic.
func (f *modsFlattener) leafOrUnknown(g tagGroup, context, path string) {
	strat, known := strategyFor(context, g.local)
	if !known {
		f.warnf("unknown element <%s> under <%s>", g.local, context)
	}
	for _, el := range g.elems {
		if len(el.Children) > 0 {
			genericFlatten(f.rec, el, path)
			continue
		}
		f.rec.Merge(Path(path, g.local), el.Text, strat)
	}
}

// originInfo splits the group by event type and descends one column subtree
// per event. Missing event types are inferred from the dates present, per
// MODS-AP practice; events that stay untyped are dropped with a warning.
func (f *modsFlattener) originInfo(g tagGroup, path string) {
	for _, el := range g.elems {
		eventType, _ := el.Attribute("eventType")
		if eventType == "" {
			switch {
			case el.FirstChild(xmltree.NSMods, "dateIssued") != nil:
				eventType = "publication"
				f.warnf("inferred eventType=publication for an issued originInfo")
			case el.FirstChild(xmltree.NSMods, "dateCreated") != nil:
				eventType = "production"
				f.warnf("inferred eventType=production for a created originInfo")
			default:
				f.warnf("originInfo has no eventType, dropped")
				continue
			}
		}
		f.flatten(el, Path(path, Keyed("originInfo", eventType)))
	}
}

// names appends one entry per name element, in document order, and merges
// all role terms into one set. Order is bibliographically meaningful, so
// names are the one sequence-valued field of the MODS mapping.
func (f *modsFlattener) names(g tagGroup, path string) {
	for _, el := range g.elems {
		display := displayName(el)
		if display == "" {
			f.warnf("name element without displayForm or namePart")
		} else {
			f.rec.Merge(Path(path, "name"), display, record.SeqAppend)
		}
		for _, rt := range el.Descendants(xmltree.NSMods, "roleTerm") {
			if rt.Text == "" {
				continue
			}
			strat, _ := strategyFor("role", "roleTerm")
			f.rec.Merge(Path(path, "name_roleTerm"), rt.Text, strat)
		}
	}
}

// displayName picks the display form of a name, falling back to its name
// parts joined in document order.
func displayName(name *xmltree.Element) string {
	if df := name.FirstChild(xmltree.NSMods, "displayForm"); df != nil && df.Text != "" {
		return df.Text
	}
	var parts []string
	for _, np := range name.ChildrenNamed(xmltree.NSMods, "namePart") {
		if np.Text != "" {
			parts = append(parts, np.Text)
		}
	}
	return strings.Join(parts, " ")
}

// Date shapes accepted by fixDates. The ISO form includes non-specific
// century dates like "18XX".
var (
	reISO8601Date = regexp.MustCompile(`^\d{2}(\d{2}|XX)(-\d{2}-\d{2})?$`)
	reGermanDate  = regexp.MustCompile(`^(\d{2})\.(\d{2})\.(\d{4})$`)
)

// fixDates normalizes a group of date elements to ISO 8601 where possible
// and picks one: the first element marked keyDate="yes", otherwise the first
// usable one. Returns ok=false when the group holds no usable date.
func (f *modsFlattener) fixDates(g tagGroup) (string, bool) {
	chosen := ""
	chosenIsKey := false

	for _, el := range g.elems {
		if el.Text == "" {
			f.warnf("empty <%s>", g.local)
			continue
		}

		text := el.Text
		switch {
		case reISO8601Date.MatchString(text):
			// Already fine.
		case reGermanDate.MatchString(text):
			m := reGermanDate.FindStringSubmatch(text)
			text = m[3] + "-" + m[2] + "-" + m[1]
			f.warnf("converted date %q to iso8601", el.Text)
		default:
			f.warnf("not an iso8601 date: %q", text)
		}

		k, _ := el.Attribute("keyDate")
		isKey := k == "yes"

		if chosen == "" || (isKey && !chosenIsKey) {
			chosen = text
			chosenIsKey = isKey
		}
	}

	return chosen, chosen != ""
}

func filterElems(in []*xmltree.Element, keep func(*xmltree.Element) bool) []*xmltree.Element {
	var out []*xmltree.Element
	for _, el := range in {
		if keep(el) {
			out = append(out, el)
		}
	}
	return out
}
