package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/jobcraft/jobcraft/internal/api"
	"github.com/jobcraft/jobcraft/internal/document"
	"github.com/jobcraft/jobcraft/internal/notify"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var resumesCmd = &cobra.Command{
	Use:   "resumes",
	Short: "Manage the resumes stored in your account",
}

var resumesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your resumes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		d, err := newDeps(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer d.Close()

		ctx, cancel := signalContext()
		defer cancel()

		resumes := d.client.GetUserResumes(ctx)
		return d.render(resumes, func(w io.Writer) { printResumes(w, resumes) })
	},
}

var resumesUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a resume to your account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer d.Close()

		ctx, cancel := signalContext()
		defer cancel()

		file, err := document.Load(args[0], d.logger)
		if err != nil {
			return err
		}

		resume, err := d.client.UploadResume(ctx, file)
		if err != nil {
			return err
		}
		d.bus.Publish(notify.Success, "Resume uploaded", 0)

		return d.render(resume, func(w io.Writer) { printResumes(w, []api.Resume{*resume}) })
	},
}

var resumesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a resume from your account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer d.Close()

		ctx, cancel := signalContext()
		defer cancel()

		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			confirm := promptui.Select{
				Label: fmt.Sprintf("Delete resume %s?", args[0]),
				Items: []string{PromptNo, PromptYes},
			}
			_, answer, err := confirm.Run()
			if err != nil {
				return err
			}
			if answer != PromptYes {
				d.logger.Info("exiting", zap.String("reason", "got no from prompt"))
				return nil
			}
		}

		if err := d.client.DeleteResume(ctx, args[0]); err != nil {
			return err
		}
		d.bus.Publish(notify.Success, "Resume deleted", 0)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resumesCmd)
	resumesCmd.AddCommand(resumesListCmd, resumesUploadCmd, resumesDeleteCmd)

	resumesDeleteCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
}

func printResumes(w io.Writer, resumes []api.Resume) {
	if len(resumes) == 0 {
		fmt.Fprintln(w, "No resumes yet.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tUPLOADED\tSTATUS")
	for _, r := range resumes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.FileName, formatTime(r.CreatedAt), r.Status)
	}
	tw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
