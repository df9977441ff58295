package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

// FileResult represents the results for a single evaluated file
type FileResult struct {
	File           string        `json:"file"`
	Counts         Counts        `json:"counts"`
	Metrics        Metrics       `json:"metrics"`
	Skipped        bool          `json:"skipped,omitempty"`
	Missing        bool          `json:"missing,omitempty"`
	ProcessingTime time.Duration `json:"processing_time"`
}

// FileDiagnostic is the timing-free view of a FileResult. It depends only
// on the input files, so repeated runs produce identical diagnostics.
type FileDiagnostic struct {
	File    string  `json:"file"`
	Counts  Counts  `json:"counts"`
	Metrics Metrics `json:"metrics"`
	Skipped bool    `json:"skipped,omitempty"`
	Missing bool    `json:"missing,omitempty"`
}

func (f FileResult) Diagnostic() FileDiagnostic {
	return FileDiagnostic{
		File:    f.File,
		Counts:  f.Counts,
		Metrics: f.Metrics,
		Skipped: f.Skipped,
		Missing: f.Missing,
	}
}

// Diagnostics returns the per-file diagnostics of a parser, in file order
func (a *ParserResult) Diagnostics() []FileDiagnostic {
	out := make([]FileDiagnostic, len(a.Files))
	for i, f := range a.Files {
		out[i] = f.Diagnostic()
	}
	return out
}

// ParserResult represents aggregated evaluation metrics for one parser
type ParserResult struct {
	Parser  string  `json:"parser"`
	Counts  Counts  `json:"counts"`
	Metrics Metrics `json:"metrics"`

	// Files with a gold standard but no output
	Missing []string `json:"missing,omitempty"`
	// Files whose output held no references
	Skipped []string `json:"skipped,omitempty"`

	TotalFiles          int           `json:"total_files"`
	TotalProcessingTime time.Duration `json:"total_processing_time"`
	EvaluationDate      time.Time     `json:"evaluation_date"`

	// Detailed results
	Files []FileResult `json:"files,omitempty"`
}

// AggregateFileResults sums per-file counts into a parser result. Files
// are ordered by name so the outcome does not depend on processing order.
func AggregateFileResults(parser string, files []FileResult) *ParserResult {
	sorted := make([]FileResult, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].File < sorted[j].File })

	agg := &ParserResult{
		Parser:         parser,
		TotalFiles:     len(sorted),
		EvaluationDate: time.Now(),
		Files:          sorted,
	}

	for _, f := range sorted {
		agg.Counts.Add(f.Counts)
		agg.TotalProcessingTime += f.ProcessingTime
		if f.Missing {
			agg.Missing = append(agg.Missing, f.File)
		}
		if f.Skipped {
			agg.Skipped = append(agg.Skipped, f.File)
		}
	}
	agg.Metrics = Compute(agg.Counts)

	return agg
}

// PrintSummary prints a human-readable summary of the evaluation
func (a *ParserResult) PrintSummary(w io.Writer) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 70))
	fmt.Fprintf(w, "REFERENCE EXTRACTION SUMMARY: %s\n", a.Parser)
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "Evaluation Date: %s\n", a.EvaluationDate.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Files: %d (missing %d, skipped %d)\n", a.TotalFiles, len(a.Missing), len(a.Skipped))
	fmt.Fprintf(w, "Total Processing Time: %s\n", a.TotalProcessingTime)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "SCORES")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	fmt.Fprintf(w, "%-12s %10s %10s %10s %8s %8s %8s\n", "Tier", "Precision", "Recall", "F-score", "Gold", "Output", "Correct")
	printTier(w, "References", a.Metrics.References, a.Counts.RefGS, a.Counts.RefOut, a.Counts.RefCorrect)
	printTier(w, "Metadata", a.Metrics.Metadata, a.Counts.MetaGS, a.Counts.MetaOut, a.Counts.MetaCorrect)
	printTier(w, "Content", a.Metrics.Content, a.Counts.TextGS, a.Counts.TextOut, a.Counts.TextCorrect)

	if len(a.Missing) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Missing outputs: %s\n", strings.Join(a.Missing, ", "))
	}
	fmt.Fprintln(w, strings.Repeat("=", 70))
}

// printTier prints one row of the score table
func printTier(w io.Writer, name string, s Scores, gs, out, correct int) {
	fmt.Fprintf(w, "%-12s %10.2f %10.2f %10.2f %8d %8d %8d\n", name, s.Precision, s.Recall, s.FScore, gs, out, correct)
}

// SaveToJSON saves the aggregate results to a JSON file
func (a *ParserResult) SaveToJSON(filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(a); err != nil {
		return fmt.Errorf("failed to encode results to JSON: %w", err)
	}

	return nil
}

// WriteDetailedReport writes a detailed report with individual file results
func (a *ParserResult) WriteDetailedReport(w io.Writer) {
	separator := strings.Repeat("=", 80)
	dash := strings.Repeat("-", 80)

	fmt.Fprintf(w, "REFERENCE EXTRACTION DETAILED REPORT\n")
	fmt.Fprintf(w, "Parser: %s\n", a.Parser)
	fmt.Fprintf(w, "Generated: %s\n", a.EvaluationDate.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "%s\n\n", separator)

	for i, f := range a.Files {
		fmt.Fprintf(w, "FILE %d: %s\n", i+1, f.File)
		fmt.Fprintf(w, "%s\n", dash)
		switch {
		case f.Missing:
			fmt.Fprintf(w, "MISSING: no output for this file (%d gold references)\n", f.Counts.RefGS)
		case f.Skipped:
			fmt.Fprintf(w, "SKIPPED: output holds no references (%d gold references)\n", f.Counts.RefGS)
		default:
			fmt.Fprintf(w, "References: %d gold, %d output, %d matched\n", f.Counts.RefGS, f.Counts.RefOut, f.Counts.RefCorrect)
			printFileTier(w, "References", f.Metrics.References)
			printFileTier(w, "Metadata", f.Metrics.Metadata)
			printFileTier(w, "Content", f.Metrics.Content)
		}
		fmt.Fprintf(w, "\n%s\n\n", separator)
	}
}

func printFileTier(w io.Writer, name string, s Scores) {
	fmt.Fprintf(w, "  %-11s P=%.2f R=%.2f F=%.2f\n", name+":", s.Precision, s.Recall, s.FScore)
}

// SaveDetailedReport saves the detailed report to a file
func (a *ParserResult) SaveDetailedReport(filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	a.WriteDetailedReport(file)
	return nil
}
