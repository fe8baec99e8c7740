package cmd

import (
	"context"
	"time"

	"github.com/jobcraft/jobcraft/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local companion server with the health proxy and client metrics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		d, err := newDeps(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer d.Close()

		ctx, cancel := signalContext()
		defer cancel()

		srv := server.New(d.config.Serve.Addr, d.client, d.registry, d.logger)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			d.logger.Info("stopping companion server")

			shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stop()
			return srv.Stop(shutdownCtx)
		})

		if err := g.Wait(); err != nil {
			d.logger.Error("companion server failed", zap.Error(err))
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default is serve.addr from the config)")
	viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr"))
}
