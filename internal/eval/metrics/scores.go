package metrics

import "math"

// Counts holds the raw totals of the three evaluation tiers: reference
// matching, metadata (field presence) and textual content
type Counts struct {
	RefGS      int `json:"ref_gs" yaml:"ref_gs" parquet:"ref_gs"`
	RefOut     int `json:"ref_out" yaml:"ref_out" parquet:"ref_out"`
	RefCorrect int `json:"ref_correct" yaml:"ref_correct" parquet:"ref_correct"`

	MetaGS      int `json:"meta_gs" yaml:"meta_gs" parquet:"meta_gs"`
	MetaOut     int `json:"meta_out" yaml:"meta_out" parquet:"meta_out"`
	MetaCorrect int `json:"meta_correct" yaml:"meta_correct" parquet:"meta_correct"`

	TextGS      int `json:"text_gs" yaml:"text_gs" parquet:"text_gs"`
	TextOut     int `json:"text_out" yaml:"text_out" parquet:"text_out"`
	TextCorrect int `json:"text_correct" yaml:"text_correct" parquet:"text_correct"`
}

// Add accumulates o into c
func (c *Counts) Add(o Counts) {
	c.RefGS += o.RefGS
	c.RefOut += o.RefOut
	c.RefCorrect += o.RefCorrect
	c.MetaGS += o.MetaGS
	c.MetaOut += o.MetaOut
	c.MetaCorrect += o.MetaCorrect
	c.TextGS += o.TextGS
	c.TextOut += o.TextOut
	c.TextCorrect += o.TextCorrect
}

// Scores is a precision/recall/F-score triple rounded to two decimals
type Scores struct {
	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall" yaml:"recall"`
	FScore    float64 `json:"f-score" yaml:"f-score"`
}

// Metrics holds the scores of the three tiers
type Metrics struct {
	References Scores `json:"references" yaml:"references"`
	Metadata   Scores `json:"metadata" yaml:"metadata"`
	Content    Scores `json:"content" yaml:"content"`
}

// Compute derives the per-tier scores from raw counts
func Compute(c Counts) Metrics {
	return Metrics{
		References: PRF(c.RefCorrect, c.RefOut, c.RefGS),
		Metadata:   PRF(c.MetaCorrect, c.MetaOut, c.MetaGS),
		Content:    PRF(c.TextCorrect, c.TextOut, c.TextGS),
	}
}

// PRF computes precision and recall rounded to two decimals; the F-score
// is the harmonic mean of the rounded values, rounded again. Any ratio
// with a zero denominator is 0.
func PRF(correct, out, gs int) Scores {
	p := ratio(correct, out)
	r := ratio(correct, gs)
	var f float64
	if p+r > 0 {
		f = round2(2 * p * r / (p + r))
	}
	return Scores{Precision: p, Recall: r, FScore: f}
}

func ratio(num, den int) float64 {
	if den <= 0 || num <= 0 {
		return 0
	}
	return round2(math.Min(1, float64(num)/float64(den)))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
