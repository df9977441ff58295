package tei

import (
	"fmt"
	"strings"
)

// Section is a macro-section of a reference (analytic, monogr, series)
type Section string

const (
	SectionAnalytic Section = "analytic"
	SectionMonogr   Section = "monogr"
	SectionSeries   Section = "series"
)

// Sections lists the macro-sections in counting order
var Sections = []Section{SectionAnalytic, SectionMonogr, SectionSeries}

// Element kinds the evaluator knows about
const (
	KindTitle     = "title"
	KindDate      = "date"
	KindBiblScope = "biblScope"
	KindIdno      = "idno"
	KindNote      = "note"
	KindRef       = "ref"
	KindPtr       = "ptr"
	KindImprint   = "imprint"
	KindAuthor    = "author"
	KindEditor    = "editor"
	KindPersName  = "persName"
	KindForename  = "forename"
	KindSurname   = "surname"
	KindGenName   = "genName"
)

// title@level values and the section they refer to
var levelSections = map[string]Section{
	"a": SectionAnalytic,
	"m": SectionMonogr,
	"j": SectionMonogr,
	"s": SectionSeries,
}

// Name is a qualified metadata field name such as "monogr-title",
// "biblScope_unit_page" or "date".
type Name struct {
	Section   Section
	Kind      string
	DiscKey   string
	DiscValue string
}

// ParseName parses the textual form of a qualified field name
func ParseName(s string) (Name, error) {
	var n Name
	rest := s
	if section, kind, ok := strings.Cut(s, "-"); ok {
		if !isSection(section) {
			return Name{}, fmt.Errorf("field %q: unknown section %q", s, section)
		}
		n.Section = Section(section)
		rest = kind
	}

	if strings.Contains(rest, "_") {
		parts := strings.SplitN(rest, "_", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return Name{}, fmt.Errorf("field %q: discriminator must be kind_attr_value", s)
		}
		n.Kind, n.DiscKey, n.DiscValue = parts[0], parts[1], parts[2]
	} else {
		n.Kind = rest
	}

	if n.Kind == "" {
		return Name{}, fmt.Errorf("field %q: empty element kind", s)
	}
	return n, nil
}

// MustParseName is ParseName for static tables
func MustParseName(s string) Name {
	n, err := ParseName(s)
	if err != nil {
		panic(err)
	}
	return n
}

// ParseNames parses a list of field names, failing on the first bad one
func ParseNames(fields []string) ([]Name, error) {
	names := make([]Name, 0, len(fields))
	for _, f := range fields {
		n, err := ParseName(f)
		if err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, nil
}

func (n Name) String() string {
	var b strings.Builder
	if n.Section != "" {
		b.WriteString(string(n.Section))
		b.WriteByte('-')
	}
	b.WriteString(n.Kind)
	if n.DiscKey != "" {
		b.WriteByte('_')
		b.WriteString(n.DiscKey)
		b.WriteByte('_')
		b.WriteString(n.DiscValue)
	}
	return b.String()
}

// Family collapses personal-name parts onto persName so that a decomposed
// name in one document can be credited against a literal one in another.
func (n Name) Family() Name {
	if n.Section == "" && n.DiscKey == "" && isPersonalPart(n.Kind) {
		return Name{Kind: KindPersName}
	}
	return n
}

// Ranged reports whether values of this field are extracted as ranges
func (n Name) Ranged() bool {
	if n.Section != "" {
		return false
	}
	if n.Kind == KindDate && n.DiscKey == "" {
		return true
	}
	return n.Kind == KindBiblScope && n.DiscKey == "unit" && n.DiscValue == "page"
}

func isSection(s string) bool {
	for _, sec := range Sections {
		if string(sec) == s {
			return true
		}
	}
	return false
}

func isPersonalPart(kind string) bool {
	switch kind {
	case KindPersName, KindForename, KindSurname, "":
		return true
	}
	return false
}

// NameSet is a set of qualified names. A nil set means "no restriction"
// wherever it is used as a filter.
type NameSet map[Name]struct{}

func NewNameSet(names ...Name) NameSet {
	s := make(NameSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s NameSet) Add(n Name) {
	s[n] = struct{}{}
}

func (s NameSet) Has(n Name) bool {
	_, ok := s[n]
	return ok
}

// Allows reports whether n passes the filter. Personal-name parts are
// allowed when any member of the persName family is present.
func (s NameSet) Allows(n Name) bool {
	if s == nil {
		return true
	}
	if s.Has(n) {
		return true
	}
	fam := n.Family()
	if fam != (Name{Kind: KindPersName}) {
		return false
	}
	for m := range s {
		if m.Family() == fam {
			return true
		}
	}
	return false
}
