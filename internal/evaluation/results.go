package evaluation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lehigh-university-libraries/refeval/internal/eval/metrics"
)

// Results represents one evaluation run over a set of parsers
type Results struct {
	ID        int64                   `json:"id,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
	GoldDir   string                  `json:"gold_dir"`
	OutputDir string                  `json:"output_dir"`
	Parsers   []*metrics.ParserResult `json:"parsers"`
}

// Parser returns the result of the named parser, or nil
func (r *Results) Parser(name string) *metrics.ParserResult {
	for _, p := range r.Parsers {
		if p.Parser == name {
			return p
		}
	}
	return nil
}

// Summary maps each parser to its scores
func (r *Results) Summary() map[string]metrics.Metrics {
	out := make(map[string]metrics.Metrics, len(r.Parsers))
	for _, p := range r.Parsers {
		out[p.Parser] = p.Metrics
	}
	return out
}

// Diagnostics maps each parser to its per-file diagnostics
func (r *Results) Diagnostics() map[string][]metrics.FileDiagnostic {
	out := make(map[string][]metrics.FileDiagnostic, len(r.Parsers))
	for _, p := range r.Parsers {
		out[p.Parser] = p.Diagnostics()
	}
	return out
}

// SaveResults saves evaluation results to disk
func SaveResults(results *Results, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	return writeJSON(filepath.Join(outputDir, "results.json"), results)
}

// SaveStats writes the per-parser scores to a timestamped
// evaluation-stats-<timestamp>.json file and returns its path. With
// diagnostic set, the per-file results are written instead.
func SaveStats(results *Results, outputDir string, diagnostic bool) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	name := fmt.Sprintf("evaluation-stats-%s.json", results.Timestamp.Format("2006-01-02_15-04-05"))
	path := filepath.Join(outputDir, name)

	var payload any = results.Summary()
	if diagnostic {
		payload = results.Diagnostics()
	}
	if err := writeJSON(path, payload); err != nil {
		return "", err
	}
	return path, nil
}

func writeJSON(path string, v any) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	return nil
}

// LoadResults loads evaluation results from disk
func LoadResults(resultsDir string) (*Results, error) {
	resultsPath := filepath.Join(resultsDir, "results.json")
	file, err := os.Open(resultsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open results file: %w", err)
	}
	defer file.Close()

	var results Results
	if err := json.NewDecoder(file).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}

	return &results, nil
}
