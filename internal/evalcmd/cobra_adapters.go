package evalcmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/refeval/internal/config"
)

// loadConfig reads the config named by the inherited --config flag
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	return config.Load(cfgFile)
}

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate parser output against the gold standard",
		Long: `Evaluate the references extracted by one or more parsers against a
gold-standard TEI corpus.

The output directory holds one subdirectory per parser with one TEI file per
source document, named like its gold file. References are aligned greedily
and scored at three tiers: references, metadata and content.`,
		Example: `  # Evaluate every parser found under ./outputs
  refeval eval run --gold ./gold --output ./outputs

  # Evaluate two parsers and write per-file diagnostics
  refeval eval run --gold ./gold --output ./outputs --parsers Grobid,Cermine --diagnostic

  # Score every gold file even when a parser directory holds extra or fewer files
  refeval eval run --gold ./gold --output ./outputs --per-file-diagnostics

  # Record the run in the history database and export parquet
  refeval eval run --gold ./gold --output ./outputs --db runs.db --parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if opts.DBPath == "" {
				opts.DBPath = cfg.History.DB
			}
			for _, dir := range []string{opts.GoldDir, opts.OutputDir} {
				if _, err := os.Stat(dir); err != nil {
					return fmt.Errorf("directory not found: %s", dir)
				}
			}

			_, err = executeRun(cmd.Context(), cfg, opts, cmd.OutOrStdout())
			return err
		},
	}

	cmd.Flags().StringVar(&opts.GoldDir, "gold", "", "Directory of gold-standard TEI files (required)")
	cmd.Flags().StringVar(&opts.OutputDir, "output", "", "Directory with one subdirectory of TEI output per parser (required)")
	cmd.Flags().StringSliceVar(&opts.Parsers, "parsers", nil, "Parsers to evaluate (default: every subdirectory of --output)")
	cmd.Flags().StringVar(&opts.ResultsDir, "results", "eval_results", "Directory to save results")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "Number of files evaluated concurrently (default from config)")
	cmd.Flags().BoolVar(&opts.Diagnostic, "diagnostic", false, "Write per-file results to the stats file")
	cmd.Flags().BoolVar(&opts.PerFile, "per-file-diagnostics", false, "Score every gold file without requiring matching file counts; implies --diagnostic")
	cmd.Flags().BoolVar(&opts.YAML, "yaml", false, "Also save results as YAML under <results>/evals")
	cmd.Flags().BoolVar(&opts.Parquet, "parquet", false, "Also save per-file diagnostics as parquet")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "SQLite database to record the run in (default from config)")

	_ = cmd.MarkFlagRequired("gold")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// NewReportCmd creates the report command
func NewReportCmd() *cobra.Command {
	var resultsDir string
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a report from saved evaluation results",
		Example: `  # Text report
  refeval eval report --results ./eval_results

  # CSV of per-file scores
  refeval eval report --results ./eval_results --format csv > scores.csv

  # Parquet diagnostics
  refeval eval report --results ./eval_results --format parquet --out diagnostics.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeReport(resultsDir, format, output, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&resultsDir, "results", "eval_results", "Directory containing results.json")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json, csv, yaml or parquet")
	cmd.Flags().StringVar(&output, "out", "", "Write the report to a file instead of stdout")

	return cmd
}

// NewInspectCmd creates the inspect command
func NewInspectCmd() *cobra.Command {
	var parser string
	var limit int

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Show the fields extracted from each reference of a TEI file",
		Long: `Print the references of one TEI file together with the fields the
aligner requires for each reference type, the values found for them and the
metadata counted for scoring.

Without --parser the file is read as a gold standard.`,
		Example: `  # Inspect a gold-standard file
  refeval eval inspect ./gold/paper1.xml

  # Inspect Grobid output the way the aligner reads it
  refeval eval inspect ./outputs/Grobid/paper1.xml --parser Grobid --limit 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return executeInspect(args[0], parser, limit, cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&parser, "parser", "", "Read the file as output of this parser")
	cmd.Flags().IntVar(&limit, "limit", 0, "Number of references to show (0 for all)")

	return cmd
}

// NewHistoryCmd creates the history command
func NewHistoryCmd() *cobra.Command {
	var dbPath string
	var runID int64

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List evaluation runs recorded in the history database",
		Example: `  # List all runs
  refeval eval history --db runs.db

  # Show the scores of one run
  refeval eval history --db runs.db --run 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				dbPath = cfg.History.DB
			}
			if dbPath == "" {
				return fmt.Errorf("--db is required when history.db is not configured")
			}
			if _, err := os.Stat(dbPath); err != nil {
				return fmt.Errorf("history database not found: %s", filepath.Clean(dbPath))
			}
			return executeHistory(cmd.Context(), dbPath, runID, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite history database (default from config)")
	cmd.Flags().Int64Var(&runID, "run", 0, "Show the scores of a single run")

	return cmd
}
