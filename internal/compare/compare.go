package compare

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/samber/lo"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/lehigh-university-libraries/refeval/internal/tei"
)

// DefaultThreshold is the similarity ratio above which two normalized
// strings are considered equal
const DefaultThreshold = 0.9

var (
	yearPattern   = regexp.MustCompile(`\d{4}`)
	numberPattern = regexp.MustCompile(`\d+`)
	punctPattern  = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
)

// Comparator decides whether a gold value and an output value are equal
type Comparator struct {
	threshold float64
}

type Option func(*Comparator)

// WithThreshold sets the similarity ratio used for fuzzy matches. A
// threshold of 1 or more disables fuzzy matching.
func WithThreshold(t float64) Option {
	return func(c *Comparator) {
		c.threshold = t
	}
}

func New(opts ...Option) *Comparator {
	c := &Comparator{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Equal compares two values of the given field kind. The kind is the
// textual field name ("date", "monogr-title", "forename", ...).
func (c *Comparator) Equal(gold, out tei.Value, kind, parser string) bool {
	gs, outs := gold.Strings(), out.Strings()
	if len(gs) == 0 || len(outs) == 0 {
		return false
	}

	switch kind {
	case tei.KindDate:
		return c.equalDates(gs, outs)
	case "biblScope_unit_page":
		return c.equalPages(gs, outs)
	case tei.KindForename:
		return lo.SomeBy(gs, func(g string) bool {
			return lo.SomeBy(outs, func(o string) bool { return c.equalForenames(g, o) })
		})
	}

	return lo.SomeBy(gs, func(g string) bool {
		return lo.SomeBy(outs, func(o string) bool { return c.equalText(g, o) })
	})
}

func (c *Comparator) equalText(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return na != ""
	}
	if c.threshold >= 1 {
		return false
	}
	return Similarity(na, nb) >= c.threshold
}

// equalDates compares the years found on both sides, falling back to text
// when neither side has one.
func (c *Comparator) equalDates(gs, os []string) bool {
	gy := years(gs)
	oy := years(os)
	if len(gy) == 0 && len(oy) == 0 {
		return c.equalText(strings.Join(gs, " "), strings.Join(os, " "))
	}
	return len(lo.Intersect(gy, oy)) > 0
}

func years(texts []string) []string {
	var out []string
	for _, t := range texts {
		out = append(out, yearPattern.FindAllString(t, -1)...)
	}
	return lo.Uniq(out)
}

// equalPages compares the numeric bounds of two page ranges. The first
// page must agree; the last page is compared when both sides have one.
func (c *Comparator) equalPages(gs, os []string) bool {
	gn := numbers(gs)
	on := numbers(os)
	if len(gn) == 0 || len(on) == 0 {
		return c.equalText(strings.Join(gs, "-"), strings.Join(os, "-"))
	}
	if gn[0] != on[0] {
		return false
	}
	if len(gn) > 1 && len(on) > 1 {
		return gn[1] == on[1]
	}
	return true
}

func numbers(texts []string) []string {
	var out []string
	for _, t := range texts {
		for _, n := range numberPattern.FindAllString(t, -1) {
			out = append(out, strings.TrimLeft(n, "0"))
		}
	}
	return out
}

// equalForenames accepts an initial against the full forename
func (c *Comparator) equalForenames(a, b string) bool {
	if c.equalText(a, b) {
		return true
	}
	ta, tb := strings.Fields(Normalize(a)), strings.Fields(Normalize(b))
	if len(ta) == 0 || len(tb) == 0 || len(ta) != len(tb) {
		return false
	}
	if !isInitials(ta) && !isInitials(tb) {
		return false
	}
	for i := range ta {
		if []rune(ta[i])[0] != []rune(tb[i])[0] {
			return false
		}
	}
	return true
}

func isInitials(tokens []string) bool {
	return lo.EveryBy(tokens, func(t string) bool { return len([]rune(t)) == 1 })
}

// Normalize lowercases text, strips diacritics and punctuation and
// collapses whitespace
func Normalize(text string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if s, _, err := transform.String(stripMarks, text); err == nil {
		text = s
	}
	text = strings.ToLower(text)
	text = punctPattern.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

// Similarity calculates a similarity ratio (0.0 to 1.0) using Levenshtein distance
func Similarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}
	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) == 0 || len(r2) == 0 {
		return 0.0
	}
	maxLen := max(len(r1), len(r2))
	return 1.0 - float64(levenshteinDistance(r1, r2))/float64(maxLen)
}

// levenshteinDistance calculates the Levenshtein distance between two rune slices
func levenshteinDistance(s1, s2 []rune) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}
