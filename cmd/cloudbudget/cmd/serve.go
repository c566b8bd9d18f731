package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cloudbudget/advice"
	"cloudbudget/api"
	"cloudbudget/internal/logging"
	"cloudbudget/store"
)

// serveCmd runs the HTTP server until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the game API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logging.Sync()

		st, err := store.Open(cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer st.Close()

		server := api.NewServer(cfg, st, advice.NewClient(cfg.Advice))

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return server.Run(ctx)
	},
}
