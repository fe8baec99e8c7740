package cmd

import (
	"fmt"
	"io"

	"github.com/jobcraft/jobcraft/internal/apierror"

	"github.com/spf13/cobra"
)

type authStatus struct {
	Session       string `json:"session"`
	Authenticated bool   `json:"authenticated"`
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Inspect the configured session",
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether requests are sent signed in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		d, err := newDeps(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer d.Close()

		ctx, cancel := signalContext()
		defer cancel()

		token, err := d.sessions.Token(ctx)
		if err != nil {
			return apierror.Normalize(err)
		}

		status := authStatus{Session: sessionKind(d.sessions), Authenticated: token != ""}
		return d.render(status, func(w io.Writer) {
			if !status.Authenticated {
				fmt.Fprintf(w, "Not signed in (%s). Analyses will not be saved.\n", status.Session)
				return
			}
			fmt.Fprintf(w, "Signed in with %s.\n", status.Session)
		})
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authStatusCmd)
}
