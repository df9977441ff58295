package evalcmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/lehigh-university-libraries/refeval/internal/storage"
)

func executeHistory(ctx context.Context, dbPath string, runID int64, w io.Writer) error {
	store, err := storage.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if runID > 0 {
		run, err := store.GetRun(ctx, runID)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Run %d  %s\n", run.ID, run.Timestamp.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "Gold: %s  Output: %s\n", run.GoldDir, run.OutputDir)
		for _, p := range run.Parsers {
			p.PrintSummary(w)
		}
		return nil
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintf(w, "No runs recorded in %s\n", dbPath)
		return nil
	}

	fmt.Fprintf(w, "%-6s %-20s %-16s %8s %8s %8s %6s\n", "Run", "Date", "Parser", "Ref F", "Meta F", "Text F", "Files")
	fmt.Fprintln(w, strings.Repeat("-", 78))
	for _, r := range runs {
		date := r.CreatedAt.Local().Format("2006-01-02 15:04:05")
		if len(r.Parsers) == 0 {
			fmt.Fprintf(w, "%-6d %-20s %-16s\n", r.ID, date, "-")
			continue
		}
		for _, p := range r.Parsers {
			m := p.Metrics
			fmt.Fprintf(w, "%-6d %-20s %-16s %8.2f %8.2f %8.2f %6d\n",
				r.ID, date, p.Parser, m.References.FScore, m.Metadata.FScore, m.Content.FScore, p.Files)
		}
	}
	return nil
}
