package metrics

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func sampleFiles() []FileResult {
	return []FileResult{
		{
			File:           "paper2.xml",
			Counts:         Counts{RefGS: 10, RefOut: 8, RefCorrect: 6, MetaGS: 40, MetaOut: 30, MetaCorrect: 25, TextGS: 40, TextOut: 30, TextCorrect: 20},
			ProcessingTime: 2 * time.Second,
		},
		{
			File:           "paper1.xml",
			Counts:         Counts{RefGS: 5, RefOut: 5, RefCorrect: 5, MetaGS: 20, MetaOut: 20, MetaCorrect: 20, TextGS: 20, TextOut: 20, TextCorrect: 18},
			ProcessingTime: 1 * time.Second,
		},
		{
			File:    "paper3.xml",
			Counts:  Counts{RefGS: 7},
			Missing: true,
		},
		{
			File:    "paper4.xml",
			Counts:  Counts{RefGS: 3},
			Skipped: true,
		},
	}
}

func TestAggregateFileResults(t *testing.T) {
	agg := AggregateFileResults("Grobid", sampleFiles())

	if agg.TotalFiles != 4 {
		t.Errorf("Expected TotalFiles=4, got %d", agg.TotalFiles)
	}

	want := Counts{RefGS: 25, RefOut: 13, RefCorrect: 11, MetaGS: 60, MetaOut: 50, MetaCorrect: 45, TextGS: 60, TextOut: 50, TextCorrect: 38}
	if agg.Counts != want {
		t.Errorf("Expected counts %+v, got %+v", want, agg.Counts)
	}

	if agg.Files[0].File != "paper1.xml" {
		t.Errorf("Expected files sorted by name, first is %s", agg.Files[0].File)
	}

	if len(agg.Missing) != 1 || agg.Missing[0] != "paper3.xml" {
		t.Errorf("Expected missing [paper3.xml], got %v", agg.Missing)
	}

	if len(agg.Skipped) != 1 || agg.Skipped[0] != "paper4.xml" {
		t.Errorf("Expected skipped [paper4.xml], got %v", agg.Skipped)
	}

	// 11/13 = 0.846 -> 0.85, 11/25 = 0.44
	if agg.Metrics.References.Precision != 0.85 {
		t.Errorf("Expected reference precision 0.85, got %v", agg.Metrics.References.Precision)
	}
	if agg.Metrics.References.Recall != 0.44 {
		t.Errorf("Expected reference recall 0.44, got %v", agg.Metrics.References.Recall)
	}

	if agg.TotalProcessingTime != 3*time.Second {
		t.Errorf("Expected TotalProcessingTime=3s, got %s", agg.TotalProcessingTime)
	}
}

func TestAggregateIsOrderIndependent(t *testing.T) {
	files := sampleFiles()
	reversed := make([]FileResult, len(files))
	for i, f := range files {
		reversed[len(files)-1-i] = f
	}

	a := AggregateFileResults("Grobid", files)
	b := AggregateFileResults("Grobid", reversed)

	if a.Counts != b.Counts || a.Metrics != b.Metrics {
		t.Errorf("Aggregation depends on file order: %+v vs %+v", a.Metrics, b.Metrics)
	}
}

func TestPRF(t *testing.T) {
	tests := []struct {
		name            string
		correct, out, g int
		want            Scores
	}{
		{"perfect", 10, 10, 10, Scores{1, 1, 1}},
		{"no output", 0, 0, 10, Scores{0, 0, 0}},
		{"empty gold", 0, 5, 0, Scores{0, 0, 0}},
		{"two thirds", 2, 3, 3, Scores{0.67, 0.67, 0.67}},
		{"f from rounded values", 1, 3, 2, Scores{0.33, 0.5, 0.4}},
		{"precision above one is clamped", 6, 5, 10, Scores{1, 0.6, 0.75}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PRF(tt.correct, tt.out, tt.g)
			if got != tt.want {
				t.Errorf("PRF(%d, %d, %d) = %+v, want %+v", tt.correct, tt.out, tt.g, got, tt.want)
			}
		})
	}
}

func TestComputeScoresInRange(t *testing.T) {
	for _, f := range sampleFiles() {
		m := Compute(f.Counts)
		for _, s := range []Scores{m.References, m.Metadata, m.Content} {
			for _, v := range []float64{s.Precision, s.Recall, s.FScore} {
				if v < 0 || v > 1 {
					t.Errorf("%s: score %v out of range", f.File, v)
				}
			}
		}
	}
}

func TestPrintSummary(t *testing.T) {
	agg := AggregateFileResults("Cermine", sampleFiles())

	var buf bytes.Buffer
	agg.PrintSummary(&buf)
	out := buf.String()

	for _, want := range []string{"REFERENCE EXTRACTION SUMMARY: Cermine", "References", "Metadata", "Content", "Missing outputs: paper3.xml"} {
		if !strings.Contains(out, want) {
			t.Errorf("Summary missing %q:\n%s", want, out)
		}
	}
}

func TestSaveToJSON(t *testing.T) {
	tmpDir := t.TempDir()
	jsonPath := filepath.Join(tmpDir, "test_results.json")

	agg := AggregateFileResults("Grobid", sampleFiles())

	if err := agg.SaveToJSON(jsonPath); err != nil {
		t.Fatalf("SaveToJSON failed: %v", err)
	}

	content, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("Failed to read JSON file: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}

	m, ok := decoded["metrics"].(map[string]any)
	if !ok {
		t.Fatalf("JSON missing metrics object")
	}
	refs, ok := m["references"].(map[string]any)
	if !ok {
		t.Fatalf("JSON missing references scores")
	}
	if _, ok := refs["f-score"]; !ok {
		t.Error("References scores missing f-score key")
	}
}

func TestSaveDetailedReport(t *testing.T) {
	tmpDir := t.TempDir()
	reportPath := filepath.Join(tmpDir, "test_report.txt")

	agg := AggregateFileResults("Grobid", sampleFiles())

	if err := agg.SaveDetailedReport(reportPath); err != nil {
		t.Fatalf("SaveDetailedReport failed: %v", err)
	}

	content, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("Failed to read report file: %v", err)
	}

	contentStr := string(content)

	if !strings.Contains(contentStr, "REFERENCE EXTRACTION DETAILED REPORT") {
		t.Error("Report missing header")
	}

	if !strings.Contains(contentStr, "FILE 1: paper1.xml") {
		t.Error("Report missing first file")
	}

	if !strings.Contains(contentStr, "MISSING: no output for this file (7 gold references)") {
		t.Error("Report missing the missing-output note")
	}

	if !strings.Contains(contentStr, "SKIPPED: output holds no references") {
		t.Error("Report missing the skipped note")
	}
}
