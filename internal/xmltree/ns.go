package xmltree

import "strings"

// Canonical namespace URIs for the supported schemas.
const (
	NSMets  = "http://www.loc.gov/METS/"
	NSMods  = "http://www.loc.gov/mods/v3"
	NSXlink = "http://www.w3.org/1999/xlink"
	NSAlto  = "http://www.loc.gov/standards/alto/ns-v2"
)

// altoNamespaces lists every ALTO namespace variant observed in the wild,
// including vendor namespaces and versioned/fragment forms.
var altoNamespaces = []string{
	"http://schema.ccs-gmbh.com/ALTO",
	"http://www.loc.gov/standards/alto/",
	"http://www.loc.gov/standards/alto/ns-v2",
	"http://www.loc.gov/standards/alto/ns-v2#",
	"http://www.loc.gov/standards/alto/ns-v3#",
	"http://www.loc.gov/standards/alto/ns-v4#",
}

// SameNS reports whether two namespace URIs identify the same namespace.
// Trailing "/" and "#" are ignored: the corpus contains both
// "http://www.loc.gov/METS/" and "http://www.loc.gov/METS".
func SameNS(a, b string) bool {
	return trimNS(a) == trimNS(b)
}

// MatchNS reports whether an element's namespace `have` is acceptable when
// looking for namespace `want`.
//
// The rules are deliberately permissive:
//   - an exact (trailing-slash tolerant) match is accepted;
//   - an empty `have` is accepted, so documents without namespace
//     declarations still resolve by local name;
//   - an empty `want` accepts anything;
//   - anything else is rejected, so a mods:title never answers a lookup for
//     a mets or alto element.
func MatchNS(have, want string) bool {
	if want == "" || have == "" {
		return true
	}
	return SameNS(have, want)
}

// IsAltoNS reports whether the given namespace URI is one of the known ALTO
// namespaces. An unprefixed versioned form ("...alto/ns-v3") also matches.
// The empty namespace is not accepted here; callers decide how to treat
// undeclared documents (see DetectSchema).
func IsAltoNS(space string) bool {
	for _, ns := range altoNamespaces {
		if SameNS(space, ns) {
			return true
		}
	}
	return false
}

// Schema identifies which of the supported schemas a document root belongs to.
type Schema int

const (
	SchemaUnknown Schema = iota
	SchemaMets
	SchemaMods
	SchemaAlto
)

func (s Schema) String() string {
	switch s {
	case SchemaMets:
		return "mets"
	case SchemaMods:
		return "mods"
	case SchemaAlto:
		return "alto"
	default:
		return "unknown"
	}
}

// DetectSchema classifies a document by its root element.
//
// Documents with no namespace declaration are classified by the root's local
// name, which is unambiguous across the three schemas (mets / mods / alto).
func DetectSchema(root *Element) Schema {
	switch {
	case SameNS(root.Name.Space, NSMets):
		return SchemaMets
	case SameNS(root.Name.Space, NSMods):
		return SchemaMods
	case IsAltoNS(root.Name.Space):
		return SchemaAlto
	}

	if root.Name.Space == "" {
		switch strings.ToLower(root.Name.Local) {
		case "mets":
			return SchemaMets
		case "mods":
			return SchemaMods
		case "alto":
			return SchemaAlto
		}
	}
	return SchemaUnknown
}

func trimNS(s string) string {
	return strings.TrimRight(s, "/#")
}
