package flatten

import "modstab/internal/record"

// Rule keys the reduction-strategy table. Context is the local name of the
// immediate ancestor ("" matches any context); Tag is the element's local
// name, or "tag@ATTR" for an attribute carrying a numeric aggregate.
//
// The table exists so the domain knowledge (which fields are sets, which are
// ordered, which aggregate) is inspectable and testable in isolation from
// the traversal code. Elements not present here get DefaultStrategy.
type Rule struct {
	Context string
	Tag     string
}

// DefaultStrategy is the documented fallback for unknown elements: generic
// scalar capture keyed by tag name, last write wins. Unknown elements are
// surfaced as columns rather than dropped, so schema extensions degrade
// gracefully.
const DefaultStrategy = record.Overwrite

var rules = map[Rule]record.Strategy{
	// MODS: at-most-once descriptive fields. Repetition in malformed input
	// resolves deterministically via last-write-wins.
	{"titleInfo", "title"}:    record.Overwrite,
	{"titleInfo", "subTitle"}: record.Overwrite,
	{"titleInfo", "partName"}: record.Overwrite,
	{"", "typeOfResource"}:    record.Overwrite,
	{"", "abstract"}:          record.Overwrite,

	{"location", "physicalLocation"}: record.Overwrite,
	{"location", "shelfLocator"}:     record.Overwrite,

	{"originInfo", "publisher"}:    record.Overwrite,
	{"originInfo", "edition"}:      record.Overwrite,
	{"originInfo", "dateIssued"}:   record.Overwrite,
	{"originInfo", "dateCreated"}:  record.Overwrite,
	{"originInfo", "dateCaptured"}: record.Overwrite,
	{"originInfo", "dateOther"}:    record.Overwrite,
	{"place", "placeTerm"}:         record.Overwrite,
	{"name", "displayForm"}:        record.Overwrite,

	{"physicalDescription", "extent"}:              record.Overwrite,
	{"physicalDescription", "digitalOrigin"}:       record.Overwrite,
	{"physicalDescription", "reformattingQuality"}: record.Overwrite,

	// MODS: unordered, dedup-happy vocabularies.
	{"subject", "topic"}:            record.SetUnion,
	{"subject", "geographic"}:       record.SetUnion,
	{"subject", "temporal"}:         record.SetUnion,
	{"", "genre"}:                   record.SetUnion,
	{"", "classification"}:          record.SetUnion,
	{"language", "languageTerm"}:    record.SetUnion,
	{"language", "scriptTerm"}:      record.SetUnion,
	{"role", "roleTerm"}:            record.SetUnion,
	{"physicalDescription", "form"}: record.SetUnion,

	// MODS: bibliographically ordered.
	{"mods", "name"}: record.SeqAppend,

	// ALTO: per-document descriptive statistics instead of one column per
	// occurrence, which would not be tabular-stable across page lengths.
	{"String", "@WC"}:          record.RunningMean,
	{"TextStyle", "@FONTSIZE"}: record.RunningMean,
}

// strategyFor looks up the reduction strategy for a tag in a context. The
// second return value reports whether an explicit rule matched; callers use
// DefaultStrategy (and may log the surprise) when it did not.
func strategyFor(context, tag string) (record.Strategy, bool) {
	if s, ok := rules[Rule{context, tag}]; ok {
		return s, true
	}
	if s, ok := rules[Rule{"", tag}]; ok {
		return s, true
	}
	return DefaultStrategy, false
}
