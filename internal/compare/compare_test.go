package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lehigh-university-libraries/refeval/internal/tei"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello, World!", "hello world"},
		{"  Multiple   spaces  ", "multiple spaces"},
		{"Citroën & Müller", "citroen muller"},
		{"J.-P. Sartre", "j p sartre"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		s1, s2 string
		want   float64
	}{
		{"kitten", "kitten", 1.0},
		{"kitten", "sitten", 1.0 - 1.0/6.0},
		{"", "abc", 0.0},
		{"abc", "xyz", 0.0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, Similarity(tt.s1, tt.s2), 0.0001, "%q vs %q", tt.s1, tt.s2)
	}
}

func TestLevenshteinDistanceRunes(t *testing.T) {
	assert.Equal(t, 1, levenshteinDistance([]rune("muller"), []rune("müller")))
	assert.Equal(t, 3, levenshteinDistance([]rune("kitten"), []rune("sitting")))
	assert.Equal(t, 4, levenshteinDistance(nil, []rune("test")))
}

func TestEqual(t *testing.T) {
	c := New()

	tests := []struct {
		name string
		gold tei.Value
		out  tei.Value
		kind string
		want bool
	}{
		{"identical titles", tei.Scalar("Deep Learning"), tei.Scalar("Deep Learning"), "monogr-title", true},
		{"case and punctuation", tei.Scalar("Deep Learning."), tei.Scalar("deep learning"), "monogr-title", true},
		{"small typo", tei.Scalar("Journal of Citation Analysis"), tei.Scalar("Journal of Citaton Analysis"), "monogr-title", true},
		{"different titles", tei.Scalar("Deep Learning"), tei.Scalar("Shallow Parsing"), "monogr-title", false},
		{"empty output", tei.Scalar("Deep Learning"), tei.Scalar(""), "monogr-title", false},
		{"year against full date", tei.Range("2019-05-01", "May 2019"), tei.Range("2019"), "date", true},
		{"different years", tei.Range("2019", "2019"), tei.Range("2018"), "date", false},
		{"dates without years", tei.Range("", ""), tei.Range("n.d."), "date", false},
		{"page range forms", tei.Range("101", "120"), tei.Range("101-120"), "biblScope_unit_page", true},
		{"page start only", tei.Range("101", ""), tei.Range("pp. 101-120"), "biblScope_unit_page", true},
		{"different end page", tei.Range("101", "120"), tei.Range("101-121"), "biblScope_unit_page", false},
		{"initial forename", tei.Scalar("Mario"), tei.Scalar("M."), tei.KindForename, true},
		{"wrong initial", tei.Scalar("Mario"), tei.Scalar("L."), tei.KindForename, false},
		{"accented surname", tei.Scalar("Müller"), tei.Scalar("Muller"), tei.KindSurname, true},
		{"any of several values", tei.Scalar("10"), tei.Range("9", "10"), "biblScope_unit_volume", true},
		{"composite names", tei.Composite(tei.NamePart{Text: "Mario Rossi"}), tei.Composite(tei.NamePart{Text: "mario rossi"}), tei.KindPersName, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Equal(tt.gold, tt.out, tt.kind, "Grobid"))
		})
	}
}

func TestWithThresholdDisablesFuzzy(t *testing.T) {
	strict := New(WithThreshold(1))
	assert.False(t, strict.Equal(tei.Scalar("Journal of Citation Analysis"), tei.Scalar("Journal of Citaton Analysis"), "monogr-title", ""))
	assert.True(t, strict.Equal(tei.Scalar("Journal, of Citation Analysis"), tei.Scalar("journal of citation analysis"), "monogr-title", ""))
}
