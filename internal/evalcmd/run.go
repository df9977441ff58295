package evalcmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/lehigh-university-libraries/refeval/internal/compare"
	"github.com/lehigh-university-libraries/refeval/internal/config"
	"github.com/lehigh-university-libraries/refeval/internal/eval/align"
	"github.com/lehigh-university-libraries/refeval/internal/eval/dataset"
	"github.com/lehigh-university-libraries/refeval/internal/eval/results"
	"github.com/lehigh-university-libraries/refeval/internal/evaluation"
	"github.com/lehigh-university-libraries/refeval/internal/storage"
)

type runOptions struct {
	GoldDir     string
	OutputDir   string
	Parsers     []string
	ResultsDir  string
	Concurrency int
	Diagnostic  bool
	PerFile     bool
	YAML        bool
	Parquet     bool
	DBPath      string
}

// newAligner builds the aligner and its tables from cfg
func newAligner(cfg *config.Config, logger *slog.Logger) (*align.Aligner, error) {
	tables, err := cfg.Tables()
	if err != nil {
		return nil, err
	}
	comparator := compare.New(compare.WithThreshold(cfg.Compare.SimilarityThreshold))
	return align.New(tables.Types, tables.Exceptions, comparator,
		align.WithConfig(cfg.Alignment),
		align.WithProfiles(tables.Profiles),
		align.WithLogger(logger),
	), nil
}

func executeRun(ctx context.Context, cfg *config.Config, opts runOptions, w io.Writer) (*evaluation.Results, error) {
	slog.Info("Starting evaluation run", "gold", opts.GoldDir, "output", opts.OutputDir)

	aligner, err := newAligner(cfg, slog.Default())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.Evaluation.Concurrency
	if opts.Concurrency > 0 {
		concurrency = opts.Concurrency
	}

	loader := dataset.NewLoader(opts.GoldDir, opts.OutputDir)
	parsers := opts.Parsers
	if len(parsers) == 0 {
		parsers, err = loader.Parsers()
		if err != nil {
			return nil, fmt.Errorf("failed to list parsers: %w", err)
		}
		if len(parsers) == 0 {
			return nil, fmt.Errorf("no parser directories found in %s", opts.OutputDir)
		}
	}

	slog.Info("Evaluating parsers", "parsers", parsers, "concurrency", concurrency)
	evaluator := evaluation.NewEvaluator(aligner, loader, evaluation.WithConcurrency(concurrency))
	var run *evaluation.Results
	if opts.PerFile {
		run, err = evaluator.RunFileDiagnostics(ctx, parsers)
	} else {
		run, err = evaluator.Run(ctx, parsers)
	}
	if err != nil {
		return nil, err
	}

	for _, p := range run.Parsers {
		p.PrintSummary(w)
	}

	if err := evaluation.SaveResults(run, opts.ResultsDir); err != nil {
		return nil, fmt.Errorf("failed to save results: %w", err)
	}
	statsPath, err := evaluation.SaveStats(run, opts.ResultsDir, opts.Diagnostic || opts.PerFile)
	if err != nil {
		return nil, fmt.Errorf("failed to save stats: %w", err)
	}
	fmt.Fprintf(w, "\nResults saved to: %s\n", opts.ResultsDir)
	fmt.Fprintf(w, "Stats saved to:   %s\n", statsPath)

	if opts.YAML {
		path, err := results.SaveToYAML(run, filepath.Join(opts.ResultsDir, "evals"))
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(w, "YAML saved to:    %s\n", path)
	}

	if opts.Parquet {
		path := filepath.Join(opts.ResultsDir, fmt.Sprintf("diagnostics-%s.parquet", run.Timestamp.Format("2006-01-02_15-04-05")))
		if err := results.SaveToParquet(run, path); err != nil {
			return nil, err
		}
		fmt.Fprintf(w, "Parquet saved to: %s\n", path)
	}

	if opts.DBPath != "" {
		id, err := recordRun(ctx, opts.DBPath, run)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(w, "Recorded run %d in %s\n", id, opts.DBPath)
	}

	fmt.Fprintf(w, "\nGenerate detailed report with:\n")
	fmt.Fprintf(w, "  refeval eval report --results %s\n", opts.ResultsDir)

	return run, nil
}

func recordRun(ctx context.Context, dbPath string, run *evaluation.Results) (int64, error) {
	store, err := storage.Open(dbPath)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	id, err := store.SaveRun(ctx, run)
	if err != nil {
		return 0, fmt.Errorf("failed to record run: %w", err)
	}
	return id, nil
}
