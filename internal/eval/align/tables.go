package align

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/lehigh-university-libraries/refeval/internal/tei"
)

var ErrUnknownType = errors.New("unknown reference type")

// TypeRule binds a group of reference types to the fields required to
// consider two references of that type a match
type TypeRule struct {
	Types  []string `mapstructure:"types" yaml:"types" json:"types"`
	Fields []string `mapstructure:"fields" yaml:"fields" json:"fields"`
}

// DefaultTypeRules returns the built-in reference type table
func DefaultTypeRules() []TypeRule {
	return []TypeRule{
		{
			Types:  []string{"article", "newspaper", "article-journal"},
			Fields: []string{"date", "monogr-title", "analytic-title", "biblScope_unit_volume", "biblScope_unit_page"},
		},
		{
			Types:  []string{"chapter", "ebook-chapter", "technical-report-chapter", "proceeding", "conference", "paper-conference"},
			Fields: []string{"date", "analytic-title", "monogr-title"},
		},
		{
			Types: []string{"book", "thesis", "ebook", "manual", "data-sheet", "database", "online-database",
				"preprint", "technical-report", "report", "software", "standard"},
			Fields: []string{"date", "monogr-title"},
		},
		{
			Types:  []string{"forthcoming-article", "unpublished", "grey-literature"},
			Fields: []string{"date", "monogr-title", "note"},
		},
		{
			Types:  []string{"patent"},
			Fields: []string{"date", "monogr-title", "idno_type_docNumber"},
		},
		{
			Types:  []string{"series"},
			Fields: []string{"date", "series-title", "monogr-title"},
		},
		{
			Types:  []string{"webpage"},
			Fields: []string{"date", "ref"},
		},
	}
}

// DefaultExceptions lists, per parser, the fields the parser never
// produces and which are therefore not required for a match
func DefaultExceptions() map[string][]string {
	return map[string][]string{
		"Cermine":      {"note", "idno_type_docNumber", "ref"},
		"Pdfssa4met":   {"analytic-title", "note", "idno_type_docNumber", "ref"},
		"ScienceParse": {"note", "idno_type_docNumber", "ref"},
	}
}

// TypeTable maps reference types to required fields. It is immutable once built.
type TypeTable struct {
	fields map[string][]tei.Name
}

// NewTypeTable validates and indexes rules. When a type appears in more
// than one rule the first rule wins.
func NewTypeTable(rules []TypeRule) (*TypeTable, error) {
	t := &TypeTable{fields: make(map[string][]tei.Name)}
	for i, rule := range rules {
		if len(rule.Types) == 0 {
			return nil, fmt.Errorf("type rule %d: no types", i)
		}
		if len(rule.Fields) == 0 {
			return nil, fmt.Errorf("type rule %d (%s): no required fields", i, strings.Join(rule.Types, ","))
		}
		names, err := tei.ParseNames(rule.Fields)
		if err != nil {
			return nil, fmt.Errorf("type rule %d: %w", i, err)
		}
		for _, typ := range rule.Types {
			if _, exists := t.fields[typ]; !exists {
				t.fields[typ] = names
			}
		}
	}
	return t, nil
}

// Required returns a copy of the fields required for typ
func (t *TypeTable) Required(typ string) ([]tei.Name, error) {
	names, ok := t.fields[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	return slices.Clone(names), nil
}

// Types returns the known reference types, sorted
func (t *TypeTable) Types() []string {
	out := make([]string, 0, len(t.fields))
	for typ := range t.fields {
		out = append(out, typ)
	}
	slices.Sort(out)
	return out
}

// ExceptionTable holds the per-parser field exceptions. Parser names are
// matched case-insensitively.
type ExceptionTable struct {
	fields map[string]tei.NameSet
}

func NewExceptionTable(exceptions map[string][]string) (*ExceptionTable, error) {
	e := &ExceptionTable{fields: make(map[string]tei.NameSet)}
	for parser, fields := range exceptions {
		names, err := tei.ParseNames(fields)
		if err != nil {
			return nil, fmt.Errorf("exceptions for %s: %w", parser, err)
		}
		e.fields[strings.ToLower(parser)] = tei.NewNameSet(names...)
	}
	return e, nil
}

// Filter drops the fields the parser is exempt from
func (e *ExceptionTable) Filter(parser string, fields []tei.Name) []tei.Name {
	skip, ok := e.fields[strings.ToLower(parser)]
	if !ok {
		return fields
	}
	out := make([]tei.Name, 0, len(fields))
	for _, f := range fields {
		if !skip.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Profile describes the output conventions of a parser
type Profile struct {
	// Namespaced outputs carry TEI-namespaced elements
	Namespaced bool `mapstructure:"namespaced" yaml:"namespaced" json:"namespaced"`
	// PointerRefs outputs encode references to online resources as ptr
	PointerRefs bool `mapstructure:"pointer_refs" yaml:"pointer_refs" json:"pointer_refs"`
}

// DefaultProfiles returns the built-in parser profiles. Parsers without a
// profile produce plain, un-namespaced TEI.
func DefaultProfiles() map[string]Profile {
	return map[string]Profile{
		"Grobid": {Namespaced: true, PointerRefs: true},
	}
}

// Profiles is a case-insensitive lookup of parser profiles
type Profiles map[string]Profile

func NewProfiles(profiles map[string]Profile) Profiles {
	p := make(Profiles, len(profiles))
	for name, prof := range profiles {
		p[strings.ToLower(name)] = prof
	}
	return p
}

func (p Profiles) For(parser string) Profile {
	return p[strings.ToLower(parser)]
}
