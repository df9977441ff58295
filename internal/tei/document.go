package tei

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/beevik/etree"
)

// Namespace is the TEI XML namespace
const Namespace = "http://www.tei-c.org/ns/1.0"

var ErrNoReferenceList = errors.New("no listBibl element")

// Document is a parsed TEI file
type Document struct {
	Path string
	doc  *etree.Document
	list *etree.Element
}

// ReadFile parses a TEI document from disk
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	d, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	d.Path = path
	return d, nil
}

// Read parses a TEI document from r
func Read(r io.Reader) (*Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		return nil, errors.New("document has no root element")
	}
	return &Document{
		doc:  doc,
		list: doc.FindElement(".//listBibl"),
	}, nil
}

// ReadString parses a TEI document held in memory
func ReadString(s string) (*Document, error) {
	return Read(strings.NewReader(s))
}

// References returns the biblStruct children of the first listBibl
func (d *Document) References() ([]*etree.Element, error) {
	if d.list == nil {
		return nil, d.errorf(ErrNoReferenceList)
	}
	var refs []*etree.Element
	for _, el := range d.list.ChildElements() {
		if el.Tag == "biblStruct" {
			refs = append(refs, el)
		}
	}
	return refs, nil
}

// Count returns the number of references the document claims to hold:
// the ordinal of the last reference identifier plus one. Documents whose
// last reference has no numeric identifier fall back to the element count.
func (d *Document) Count() (int, error) {
	refs, err := d.References()
	if err != nil {
		return 0, err
	}
	if len(refs) == 0 {
		return 0, nil
	}
	if n, ok := Ordinal(refs[len(refs)-1]); ok {
		return n + 1, nil
	}
	return len(refs), nil
}

func (d *Document) errorf(err error) error {
	if d.Path == "" {
		return err
	}
	return fmt.Errorf("%s: %w", d.Path, err)
}

// ID returns the xml:id of a reference
func ID(ref *etree.Element) string {
	if id := ref.SelectAttrValue("xml:id", ""); id != "" {
		return id
	}
	return ref.SelectAttrValue("id", "")
}

// Type returns the type attribute of a reference
func Type(ref *etree.Element) string {
	return ref.SelectAttrValue("type", "")
}

// Ordinal parses the numeric suffix of a reference identifier ("b12" -> 12)
func Ordinal(ref *etree.Element) (int, bool) {
	id := strings.TrimLeftFunc(ID(ref), func(r rune) bool { return !unicode.IsDigit(r) })
	if id == "" {
		return 0, false
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		return 0, false
	}
	return n, true
}

// PresentSections lists the macro-sections that occur as direct children
// of ref, in document order and without repeats.
func PresentSections(ref *etree.Element) []Section {
	var out []Section
	seen := make(map[Section]bool)
	for _, child := range ref.ChildElements() {
		s := Section(child.Tag)
		if !isSection(child.Tag) || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
