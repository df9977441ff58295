package tei

import (
	"log/slog"

	"github.com/beevik/etree"
)

// SelectOptions controls how field names are resolved against a reference
type SelectOptions struct {
	// Namespaced matches only elements in the TEI namespace. Otherwise
	// only elements without a namespace match.
	Namespaced bool
	// PointerRefs resolves "ref" fields against ptr elements.
	PointerRefs bool
}

// Selection holds the values found for one field
type Selection struct {
	Field  Name
	Values []Value
}

// SelectFields returns the values of the requested fields found in ref.
// Fields with no value are omitted; the order of fields is preserved.
func SelectFields(ref *etree.Element, fields []Name, opts SelectOptions) []Selection {
	var out []Selection
	for _, f := range fields {
		var values []Value
		for _, el := range resolve(ref, f, opts) {
			values = append(values, extract(el, f)...)
		}
		if len(values) > 0 {
			out = append(out, Selection{Field: f, Values: values})
		}
	}
	return out
}

// SelectGold looks fields up in a gold-standard reference, trying the
// namespaced form first and falling back to unprefixed elements. It
// reports whether the namespaced lookup produced the result.
func SelectGold(ref *etree.Element, fields []Name) ([]Selection, bool) {
	if sel := SelectFields(ref, fields, SelectOptions{Namespaced: true}); len(sel) > 0 {
		return sel, true
	}
	slog.Debug("falling back to unprefixed lookup", "ref", ID(ref))
	return SelectFields(ref, fields, SelectOptions{}), false
}

type step struct {
	tag       string
	attrKey   string
	attrValue string
}

func pathFor(f Name, opts SelectOptions) []step {
	kind := f.Kind
	if kind == KindRef && opts.PointerRefs {
		kind = KindPtr
	}
	last := step{tag: kind, attrKey: f.DiscKey, attrValue: f.DiscValue}
	if f.Section != "" {
		return []step{{tag: string(f.Section)}, last}
	}
	return []step{last}
}

// resolve walks the path of f: the first step matches any descendant of
// ref, later steps match direct children.
func resolve(ref *etree.Element, f Name, opts SelectOptions) []*etree.Element {
	path := pathFor(f, opts)
	var current []*etree.Element
	walkDescendants(ref, func(el *etree.Element) {
		if path[0].matches(el, opts) {
			current = append(current, el)
		}
	})
	for _, s := range path[1:] {
		var next []*etree.Element
		for _, el := range current {
			for _, child := range el.ChildElements() {
				if s.matches(child, opts) {
					next = append(next, child)
				}
			}
		}
		current = next
	}
	return current
}

func walkDescendants(el *etree.Element, fn func(*etree.Element)) {
	for _, child := range el.ChildElements() {
		fn(child)
		walkDescendants(child, fn)
	}
}

func (s step) matches(el *etree.Element, opts SelectOptions) bool {
	if el.Tag != s.tag || !inNamespace(el, opts.Namespaced) {
		return false
	}
	if s.attrKey == "" {
		return true
	}
	return el.SelectAttrValue(s.attrKey, "") == s.attrValue
}

func inNamespace(el *etree.Element, namespaced bool) bool {
	if namespaced {
		return el.NamespaceURI() == Namespace
	}
	return el.NamespaceURI() == ""
}

// extract turns a matched element into values. Dates and page ranges
// yield a range; other elements yield their text, or the target of a
// pointer that has no text.
func extract(el *etree.Element, f Name) []Value {
	if f.Ranged() {
		return []Value{rangeValue(el)}
	}
	if text := el.Text(); text != "" {
		return []Value{Scalar(text)}
	}
	if el.Tag == KindPtr || el.Tag == KindRef {
		if target := el.SelectAttrValue("target", ""); target != "" {
			return []Value{Scalar(target)}
		}
	}
	return nil
}

// rangeValue prefers a normalized date as [when, text]. A date without
// when, or a range without text, yields its [from, to] bounds.
func rangeValue(el *etree.Element) Value {
	text := el.Text()
	if el.Tag == KindDate {
		if when := el.SelectAttrValue("when", ""); when != "" {
			return Range(when, text)
		}
	}
	if text == "" || el.Tag == KindDate {
		return Range(el.SelectAttrValue("from", ""), el.SelectAttrValue("to", ""))
	}
	return Range(text)
}
