package evalcmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/refeval/internal/eval/metrics"
	"github.com/lehigh-university-libraries/refeval/internal/eval/results"
	"github.com/lehigh-university-libraries/refeval/internal/evaluation"
)

func executeReport(resultsDir, format, output string, w io.Writer) error {
	run, err := evaluation.LoadResults(resultsDir)
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}

	if output != "" {
		file, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer file.Close()
		w = file
	}

	return writeReport(run, format, w)
}

func writeReport(run *evaluation.Results, format string, w io.Writer) error {
	switch format {
	case "text":
		return printTextReport(run, w)
	case "json":
		return printJSONReport(run, w)
	case "csv":
		return printCSVReport(run, w)
	case "yaml":
		return printYAMLReport(run, w)
	case "parquet":
		return results.WriteParquet(w, run)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printTextReport(run *evaluation.Results, w io.Writer) error {
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Reference Extraction Evaluation Report\n")
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Gold:    %s\n", run.GoldDir)
	fmt.Fprintf(w, "Output:  %s\n", run.OutputDir)
	fmt.Fprintf(w, "Run at:  %s\n", run.Timestamp.Format("2006-01-02 15:04:05"))

	for _, p := range run.Parsers {
		p.PrintSummary(w)
	}

	fmt.Fprintln(w, "\nDetailed Results:")
	for _, p := range run.Parsers {
		fmt.Fprintln(w)
		p.WriteDetailedReport(w)
	}
	return nil
}

func printJSONReport(run *evaluation.Results, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(run)
}

func printYAMLReport(run *evaluation.Results, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	return encoder.Encode(results.NewEvalSpec(run))
}

var csvHeader = []string{
	"Parser", "File", "Status",
	"Ref_GS", "Ref_Out", "Ref_Correct", "Ref_P", "Ref_R", "Ref_F",
	"Meta_GS", "Meta_Out", "Meta_Correct", "Meta_P", "Meta_R", "Meta_F",
	"Text_GS", "Text_Out", "Text_Correct", "Text_P", "Text_R", "Text_F",
}

// printCSVReport writes one row per parser total followed by its files
func printCSVReport(run *evaluation.Results, w io.Writer) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, p := range run.Parsers {
		if err := writer.Write(csvRow(p.Parser, "TOTAL", "", p.Counts, p.Metrics)); err != nil {
			return err
		}
		for _, f := range p.Files {
			status := ""
			switch {
			case f.Missing:
				status = "missing"
			case f.Skipped:
				status = "skipped"
			}
			if err := writer.Write(csvRow(p.Parser, f.File, status, f.Counts, f.Metrics)); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

func csvRow(parser, file, status string, c metrics.Counts, m metrics.Metrics) []string {
	row := []string{parser, file, status}
	row = append(row, tierColumns(c.RefGS, c.RefOut, c.RefCorrect, m.References)...)
	row = append(row, tierColumns(c.MetaGS, c.MetaOut, c.MetaCorrect, m.Metadata)...)
	row = append(row, tierColumns(c.TextGS, c.TextOut, c.TextCorrect, m.Content)...)
	return row
}

func tierColumns(gs, out, correct int, s metrics.Scores) []string {
	return []string{
		strconv.Itoa(gs),
		strconv.Itoa(out),
		strconv.Itoa(correct),
		fmt.Sprintf("%.2f", s.Precision),
		fmt.Sprintf("%.2f", s.Recall),
		fmt.Sprintf("%.2f", s.FScore),
	}
}
