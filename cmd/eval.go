package cmd

import (
	"github.com/lehigh-university-libraries/refeval/internal/evalcmd"
	"github.com/spf13/cobra"
)

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Reference extraction evaluation tools",
		Long: `Evaluation tools for measuring how accurately reference parsers extract
bibliographies from scholarly documents.

Supports running evaluations against a TEI gold standard, rendering saved
results in several formats, inspecting how a single TEI file is read, and
listing recorded runs.`,
	}

	// Add eval subcommands
	cmd.AddCommand(evalcmd.NewRunCmd())
	cmd.AddCommand(evalcmd.NewReportCmd())
	cmd.AddCommand(evalcmd.NewInspectCmd())
	cmd.AddCommand(evalcmd.NewHistoryCmd())

	return cmd
}
