package dataset

import "errors"

var ErrCountMismatch = errors.New("number of parser output files and gold standard files do not match")

// Pair is a gold-standard file and the parser output with the same name
type Pair struct {
	Name       string `json:"name"`
	GoldPath   string `json:"gold_path"`
	OutputPath string `json:"output_path,omitempty"`
}

// Missing reports whether the parser produced no file for this pair
func (p Pair) Missing() bool {
	return p.OutputPath == ""
}
