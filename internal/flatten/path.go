package flatten

// Column-path naming. A column path is a pure function of the element's
// ancestor chain plus, for discriminated elements, a type-like attribute.
// Keeping this in one place guarantees naming stability: re-running on the
// same input always yields the same column names, and two distinct fields
// can never collide (segments join with "_", discriminators with "-", and
// neither appears in schema tag names).

// Path joins a parent column path and a key segment.
func Path(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "_" + key
}

// Keyed appends a discriminator to a tag segment, e.g.
// Keyed("identifier", "isbn") == "identifier-isbn". With an empty
// discriminator the tag is returned unchanged (undiscriminated column).
func Keyed(tag, discriminator string) string {
	if discriminator == "" {
		return tag
	}
	return tag + "-" + discriminator
}

// CountPath names the occurrence-count column for a tag below parent,
// e.g. CountPath("Layout_Page", "TextLine") == "Layout_Page_TextLine-count".
func CountPath(parent, tag string) string {
	return Path(parent, tag) + "-count"
}

// StatPath names a descriptive-statistic column for an attribute of a tag,
// e.g. StatPath("Layout_Page", "String", "WC", "mean").
func StatPath(parent, tag, attr, stat string) string {
	return Path(parent, tag+"_"+attr) + "-" + stat
}
