package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the analysis service is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		d, err := newDeps(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer d.Close()

		ctx, cancel := signalContext()
		defer cancel()

		h, err := d.client.CheckHealth(ctx)
		if err != nil {
			return err
		}

		return d.render(h, func(w io.Writer) {
			fmt.Fprintf(w, "%s is %s\n", d.client.BaseURL(), h.Status)
		})
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
