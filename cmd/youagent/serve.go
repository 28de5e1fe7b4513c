package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/EmberRavager/youagent/internal/server"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web front end and the task scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := resolveOptions(v)
			logger := newLogger(opts, "server")

			if err := persistOptions(opts); err != nil {
				logger.Warn("could not save settings", "error", err)
			}

			app, err := server.NewApp(opts.Workspace, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return app.Serve(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8787", "listen address")
	return cmd
}
