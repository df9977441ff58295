package results

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/refeval/internal/eval/metrics"
	"github.com/lehigh-university-libraries/refeval/internal/evaluation"
)

// EvalConfig represents the configuration section of the eval YAML
type EvalConfig struct {
	GoldDir   string   `yaml:"golddir"`
	OutputDir string   `yaml:"outputdir"`
	Parsers   []string `yaml:"parsers"`
	Timestamp string   `yaml:"timestamp"`
}

// ParserSpec represents the results of one parser
type ParserSpec struct {
	Parser  string          `yaml:"parser"`
	Counts  metrics.Counts  `yaml:"counts"`
	Metrics metrics.Metrics `yaml:"metrics"`
	Missing []string        `yaml:"missing,omitempty"`
	Skipped []string        `yaml:"skipped,omitempty"`
	Files   []FileSpec      `yaml:"files"`
}

// FileSpec represents a single file result
type FileSpec struct {
	File    string          `yaml:"file"`
	Counts  metrics.Counts  `yaml:"counts"`
	Metrics metrics.Metrics `yaml:"metrics"`
	Status  string          `yaml:"status,omitempty"`
}

// EvalSpec represents the complete evaluation specification
type EvalSpec struct {
	Config  EvalConfig   `yaml:"config"`
	Results []ParserSpec `yaml:"results"`
}

// NewEvalSpec converts a run into its YAML representation
func NewEvalSpec(run *evaluation.Results) EvalSpec {
	spec := EvalSpec{
		Config: EvalConfig{
			GoldDir:   run.GoldDir,
			OutputDir: run.OutputDir,
			Timestamp: run.Timestamp.Format("2006-01-02_15-04-05"),
		},
		Results: make([]ParserSpec, 0, len(run.Parsers)),
	}

	for _, p := range run.Parsers {
		spec.Config.Parsers = append(spec.Config.Parsers, p.Parser)

		ps := ParserSpec{
			Parser:  p.Parser,
			Counts:  p.Counts,
			Metrics: p.Metrics,
			Missing: p.Missing,
			Skipped: p.Skipped,
			Files:   make([]FileSpec, 0, len(p.Files)),
		}
		for _, f := range p.Files {
			ps.Files = append(ps.Files, FileSpec{
				File:    f.File,
				Counts:  f.Counts,
				Metrics: f.Metrics,
				Status:  fileStatus(f),
			})
		}
		spec.Results = append(spec.Results, ps)
	}

	return spec
}

func fileStatus(f metrics.FileResult) string {
	switch {
	case f.Missing:
		return "missing"
	case f.Skipped:
		return "skipped"
	}
	return ""
}

// SaveToYAML saves evaluation results to a timestamped YAML file in dir
// and returns its path
func SaveToYAML(run *evaluation.Results, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create evals directory: %w", err)
	}

	spec := NewEvalSpec(run)
	filename := filepath.Join(dir, fmt.Sprintf("evaluation-%s.yaml", spec.Config.Timestamp))

	data, err := yaml.Marshal(&spec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}

	return filename, nil
}
