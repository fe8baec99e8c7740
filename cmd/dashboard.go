package cmd

import (
	"fmt"
	"io"

	"github.com/jobcraft/jobcraft/internal/dashboard"

	"github.com/spf13/cobra"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show an overview of your resumes and recent analyses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		d, err := newDeps(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer d.Close()

		ctx, cancel := signalContext()
		defer cancel()

		summary, err := dashboard.Load(ctx, d.client, d.logger)
		if err != nil {
			return err
		}

		return d.render(summary, func(w io.Writer) {
			fmt.Fprintf(w, "Resumes:       %d\n", summary.TotalResumes)
			fmt.Fprintf(w, "Analyses:      %d\n", summary.TotalAnalyses)
			fmt.Fprintf(w, "Average score: %d%%\n\n", summary.AverageScore)
			printAnalyses(w, summary.RecentAnalyses)
		})
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
