package models

import (
	"time"

	"github.com/lehigh-university-libraries/refeval/internal/eval/metrics"
)

// RunSummary represents a recorded evaluation run
type RunSummary struct {
	ID        int64           `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	GoldDir   string          `json:"gold_dir"`
	OutputDir string          `json:"output_dir"`
	Parsers   []ParserSummary `json:"parsers"`
}

// ParserSummary represents the headline scores of one parser in a run
type ParserSummary struct {
	Parser  string          `json:"parser"`
	Metrics metrics.Metrics `json:"metrics"`
	Files   int             `json:"files"`
	Missing int             `json:"missing"`
}
