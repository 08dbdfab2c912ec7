package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tutu-network/pointledger/internal/daemon"
)

// ─── serve ──────────────────────────────────────────────────────────────────

func newServeCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the expiry sweeper",
		Long: `Start the pointledger daemon. It serves the JSON API and the live event
feed, and purges expired points on the configured interval. SIGINT or
SIGTERM shuts it down gracefully.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			home := homeDir(cmd)
			cfg, err := daemon.LoadConfig(home)
			if err != nil {
				return err
			}
			if port, _ := cmd.Flags().GetInt("port"); port != 0 {
				cfg.API.Port = port
			}
			if cmd.Flags().Changed("metrics") {
				cfg.API.Metrics, _ = cmd.Flags().GetBool("metrics")
			}

			logger, err := daemon.NewLogger(cfg.Log)
			if err != nil {
				return err
			}
			defer logger.Sync()

			d, err := daemon.New(home, cfg, logger)
			if err != nil {
				return err
			}
			defer d.Close()
			d.SetVersion(version)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := d.Run(ctx); err != nil {
				logger.Error("daemon stopped", zap.Error(err))
				return err
			}
			return nil
		},
	}
	cmd.Flags().Int("port", 0, "Override [api] port")
	cmd.Flags().Bool("metrics", false, "Expose Prometheus metrics on /metrics")
	return cmd
}
