package tei

import "github.com/beevik/etree"

// ExcludedNamePart reports whether a personal-name sub-part is left out of
// counting: forenames typed as anything but "first" (middle names, initials
// of secondary forenames) and generational suffixes.
func ExcludedNamePart(el *etree.Element) bool {
	switch el.Tag {
	case KindForename:
		t := el.SelectAttr("type")
		return t != nil && t.Value != "first"
	case KindGenName:
		return true
	}
	return false
}
