// Package xmltree parses an XML document into an immutable element tree and
// provides namespace-aware accessors over it.
//
// The tree is deliberately generic: METS, MODS and ALTO documents are all
// represented the same way, and the flattening packages decide what the
// elements mean. Accessors never fail on absence; a missing child or
// attribute is simply not there.
//
// Namespace handling is tolerant by design. Real-world METS/ALTO corpora
// contain documents with renamed, versioned, or entirely missing namespace
// declarations, so lookups match on the local name and only reject an element
// when it carries a *different* known namespace (see MatchNS).
package xmltree

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
)

// Element is one node of a parsed XML document.
//
// Elements are built once by Parse and never mutated afterwards; the
// flattening code borrows them for the duration of one pass.
type Element struct {
	// Name holds the namespace URI (Space) and local name.
	Name xml.Name

	// Attr holds the element's attributes in document order.
	Attr []xml.Attr

	// Children holds child elements in document order.
	Children []*Element

	// Parent is the enclosing element, nil for the root.
	Parent *Element

	// Text is the element's own character data, trimmed.
	Text string
}

// Parse reads one XML document from r and returns its root element.
//
// Non-UTF-8 documents are decoded via the IANA charset index, so common
// library encodings (ISO-8859-1 in particular) work without preprocessing.
//
// Errors:
//   - Returns an error for XML that is not well-formed or uses an unknown
//     charset. Schema-level problems are not detected here.
func Parse(r io.Reader) (*Element, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	var root *Element
	var cur *Element

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{
				Name:   t.Name,
				Attr:   copyAttrs(t.Attr),
				Parent: cur,
			}
			if cur == nil {
				if root != nil {
					return nil, fmt.Errorf("parse xml: multiple root elements")
				}
				root = el
			} else {
				cur.Children = append(cur.Children, el)
			}
			cur = el

		case xml.EndElement:
			if cur != nil {
				cur.Text = strings.TrimSpace(cur.Text)
				cur = cur.Parent
			}

		case xml.CharData:
			if cur != nil {
				cur.Text += string(t)
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("parse xml: no root element")
	}
	return root, nil
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unknown charset %q", charset)
	}
	return enc.NewDecoder().Reader(input), nil
}

func copyAttrs(in []xml.Attr) []xml.Attr {
	if len(in) == 0 {
		return nil
	}
	// The decoder may reuse its attribute buffer between tokens.
	out := make([]xml.Attr, len(in))
	copy(out, in)
	return out
}

// Local returns the element's local name.
func (e *Element) Local() string { return e.Name.Local }

// Attribute returns the value of the named attribute, matched by local name
// regardless of namespace prefix (METS uses xlink:href, ALTO uses bare names).
// The second return value reports whether the attribute was present.
func (e *Element) Attribute(local string) (string, bool) {
	for _, a := range e.Attr {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// AttributeNS returns the value of an attribute with an exact namespace
// match. Use this when the same local name can appear in several namespaces
// on one element (e.g. xlink:from vs a bare from).
func (e *Element) AttributeNS(space, local string) (string, bool) {
	for _, a := range e.Attr {
		if a.Name.Local == local && SameNS(a.Name.Space, space) {
			return a.Value, true
		}
	}
	return "", false
}

// ChildrenNamed returns all direct children matching the given namespace and
// local name, in document order. The slice is empty (never nil-dereferencing)
// when no child matches.
func (e *Element) ChildrenNamed(space, local string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.Name.Local == local && MatchNS(c.Name.Space, space) {
			out = append(out, c)
		}
	}
	return out
}

// FirstChild returns the first direct child matching the given namespace and
// local name, or nil.
func (e *Element) FirstChild(space, local string) *Element {
	for _, c := range e.Children {
		if c.Name.Local == local && MatchNS(c.Name.Space, space) {
			return c
		}
	}
	return nil
}

// Descendants returns all elements below e (not including e itself) matching
// the given namespace and local name, in document order.
func (e *Element) Descendants(space, local string) []*Element {
	var out []*Element
	e.Walk(func(d *Element) {
		if d != e && d.Name.Local == local && MatchNS(d.Name.Space, space) {
			out = append(out, d)
		}
	})
	return out
}

// FirstDescendant returns the first element below e matching the given
// namespace and local name, or nil.
func (e *Element) FirstDescendant(space, local string) *Element {
	for _, c := range e.Children {
		if c.Name.Local == local && MatchNS(c.Name.Space, space) {
			return c
		}
		if d := c.FirstDescendant(space, local); d != nil {
			return d
		}
	}
	return nil
}

// Walk visits e and every element below it in document order.
func (e *Element) Walk(visit func(*Element)) {
	visit(e)
	for _, c := range e.Children {
		c.Walk(visit)
	}
}
