package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/jobcraft/jobcraft/internal/api"
	"github.com/jobcraft/jobcraft/internal/logger"

	"github.com/spf13/cobra"
)

const jobDescriptionPreview = 48

var analysesCmd = &cobra.Command{
	Use:   "analyses",
	Short: "Browse your analysis history",
}

var analysesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your latest analyses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		d, err := newDeps(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer d.Close()

		ctx, cancel := signalContext()
		defer cancel()

		limit, _ := cmd.Flags().GetInt("limit")
		analyses := d.client.GetUserAnalyses(ctx, limit)
		return d.render(analyses, func(w io.Writer) { printAnalyses(w, analyses) })
	},
}

var analysesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a stored analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer d.Close()

		ctx, cancel := signalContext()
		defer cancel()

		a, err := d.client.GetAnalysisDetails(ctx, args[0])
		if err != nil {
			return err
		}

		return d.render(a, func(w io.Writer) {
			fmt.Fprintf(w, "Resume:      %s\n", firstNonEmpty(a.ResumeName, a.ResumeID))
			fmt.Fprintf(w, "Created:     %s\n", formatTime(a.CreatedAt))
			printAnalysis(w, &api.AnalysisResponse{
				ResumeID:   a.ResumeID,
				AnalysisID: a.ID,
				Result:     a.AnalysisResult,
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(analysesCmd)
	analysesCmd.AddCommand(analysesListCmd, analysesShowCmd)

	analysesListCmd.Flags().IntP("limit", "l", 10, "how many analyses to list")
}

func printAnalyses(w io.Writer, analyses []api.Analysis) {
	if len(analyses) == 0 {
		fmt.Fprintln(w, "No analyses yet.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSCORE\tCREATED\tRESUME\tJOB DESCRIPTION")
	for _, a := range analyses {
		fmt.Fprintf(tw, "%s\t%d%%\t%s\t%s\t%s\n",
			a.ID,
			a.MatchScore,
			formatTime(a.CreatedAt),
			firstNonEmpty(a.ResumeName, a.ResumeID),
			logger.TruncateForLog(strings.Join(strings.Fields(a.JobDescription), " "), jobDescriptionPreview),
		)
	}
	tw.Flush()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return "-"
}
