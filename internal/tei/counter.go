package tei

import "github.com/beevik/etree"

// Entry is one counted metadata item of a reference
type Entry struct {
	Name  Name
	Value Value
}

// MetadataCount is the result of counting the metadata of one reference
type MetadataCount struct {
	Entries []Entry
	// Fields is the number of metadata fields counted for the reference,
	// after the author-part cap has been applied.
	Fields int
	// AuthorParts is the number of personal-name sub-parts enumerated
	// before any restriction was applied.
	AuthorParts int
}

// NameParts returns the number of personal-name parts across all entries
func (m MetadataCount) NameParts() int {
	n := 0
	for _, e := range m.Entries {
		if e.Value.Kind == NameValue {
			n += len(e.Value.Parts)
		}
	}
	return n
}

// CountOptions tunes CountMetadata for output references
type CountOptions struct {
	// Restrict limits counting to the listed names. Nil counts everything.
	Restrict NameSet
	// MaxAuthorParts caps the enumerated personal-name parts when
	// CapAuthorParts is set; the excess is subtracted from Fields.
	MaxAuthorParts int
	CapAuthorParts bool
	// PointerRefs names ptr elements as "ref" fields.
	PointerRefs bool
}

// CountMetadata enumerates the metadata held under the given macro-sections
// of ref. Both namespaced and plain documents are handled.
func CountMetadata(sections []Section, ref *etree.Element, opts CountOptions) MetadataCount {
	var mc MetadataCount
	for _, section := range sections {
		for _, sec := range ref.ChildElements() {
			if sec.Tag != string(section) {
				continue
			}
			countSection(&mc, section, sec, opts)
		}
	}

	if opts.CapAuthorParts && mc.AuthorParts > opts.MaxAuthorParts {
		mc.Fields -= mc.AuthorParts - opts.MaxAuthorParts
	}
	if mc.Fields < 0 {
		mc.Fields = 0
	}
	return mc
}

func countSection(mc *MetadataCount, section Section, sec *etree.Element, opts CountOptions) {
	for _, child := range sec.ChildElements() {
		switch child.Tag {
		case KindTitle:
			name := Name{Section: titleSection(child, section), Kind: KindTitle}
			mc.add(opts, name, Scalar(child.Text()))
		case KindAuthor, KindEditor:
			countPerson(mc, child, opts)
		case KindImprint:
			for _, item := range child.ChildElements() {
				name := elementName(item, opts)
				mc.add(opts, name, elementValue(item, name))
			}
		default:
			name := elementName(child, opts)
			mc.add(opts, name, elementValue(child, name))
		}
	}
}

func (mc *MetadataCount) add(opts CountOptions, name Name, v Value) {
	if !opts.Restrict.Allows(name) {
		return
	}
	mc.Entries = append(mc.Entries, Entry{Name: name, Value: v})
	mc.Fields++
}

func countPerson(mc *MetadataCount, person *etree.Element, opts CountOptions) {
	parts := personParts(person)
	mc.AuthorParts += len(parts)

	var composite []NamePart
	for _, p := range parts {
		kind := p.Tag
		if kind == KindPersName {
			kind = ""
		}
		if !opts.Restrict.Allows(Name{Kind: p.Tag}) {
			continue
		}
		composite = append(composite, NamePart{Kind: kind, Text: p.Text()})
		mc.Fields++
	}
	if len(composite) > 0 {
		mc.Entries = append(mc.Entries, Entry{Name: Name{Kind: KindPersName}, Value: Composite(composite...)})
	}
}

// personParts enumerates the name parts of an author or editor. When the
// name is decomposed, the parts of its persName (or the person element
// itself) are used minus the excluded ones; otherwise the direct children
// are used as-is.
func personParts(person *etree.Element) []*etree.Element {
	if !hasDecomposedName(person) {
		return person.ChildElements()
	}
	container := person
	if pn := person.FindElement(".//" + KindPersName); pn != nil {
		container = pn
	}
	var parts []*etree.Element
	for _, el := range container.ChildElements() {
		if !ExcludedNamePart(el) {
			parts = append(parts, el)
		}
	}
	return parts
}

func hasDecomposedName(person *etree.Element) bool {
	found := false
	walkDescendants(person, func(el *etree.Element) {
		if el.Tag == KindForename || el.Tag == KindSurname {
			found = true
		}
	})
	return found
}

func titleSection(title *etree.Element, container Section) Section {
	if s, ok := levelSections[title.SelectAttrValue("level", "")]; ok {
		return s
	}
	return container
}

func elementName(el *etree.Element, opts CountOptions) Name {
	switch el.Tag {
	case KindBiblScope:
		if unit := el.SelectAttrValue("unit", ""); unit != "" {
			return Name{Kind: KindBiblScope, DiscKey: "unit", DiscValue: unit}
		}
	case KindIdno:
		if t := el.SelectAttrValue("type", ""); t != "" {
			return Name{Kind: KindIdno, DiscKey: "type", DiscValue: t}
		}
	case KindPtr:
		if opts.PointerRefs {
			return Name{Kind: KindRef}
		}
	}
	return Name{Kind: el.Tag}
}

func elementValue(el *etree.Element, name Name) Value {
	if name.Ranged() {
		return rangeValue(el)
	}
	if text := el.Text(); text != "" {
		return Scalar(text)
	}
	if target := el.SelectAttrValue("target", ""); target != "" {
		return Scalar(target)
	}
	return Scalar("")
}
