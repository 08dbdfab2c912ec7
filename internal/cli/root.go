// Package cli implements the pointd command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tutu-network/pointledger/internal/daemon"
)

// NewRootCmd builds the pointd command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "pointd",
		Short: "Point ledger with expiry, alerts and login streaks",
		Long: `pointd keeps a per-account point ledger. Earned points expire, spending
consumes the points that expire soonest first, and expiry alerts warn before
points are lost. Daily logins build a streak bonus; surveys and daily missions
pay extra points.

Run 'pointd serve' for the HTTP API. Every other command works directly on
the local database.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("home", "", "Data directory (default $POINTLEDGER_HOME or ~/.pointledger)")

	root.AddCommand(
		newServeCmd(version),
		newBalanceCmd(),
		newEarnCmd(),
		newSpendCmd(),
		newAlertsCmd(),
		newHistoryCmd(),
		newPurgeCmd(),
		newLoginCmd(),
		newSurveysCmd(),
	)
	return root
}

// Execute runs the CLI and exits non-zero on error.
func Execute(version string) {
	if err := NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// homeDir resolves the --home flag.
func homeDir(cmd *cobra.Command) string {
	if h, _ := cmd.Flags().GetString("home"); h != "" {
		return h
	}
	return daemon.Home()
}

// withDaemon loads the configuration, opens the store and runs fn. The
// store is closed when fn returns.
func withDaemon(cmd *cobra.Command, fn func(ctx context.Context, d *daemon.Daemon) error) error {
	home := homeDir(cmd)
	cfg, err := daemon.LoadConfig(home)
	if err != nil {
		return err
	}
	d, err := daemon.New(home, cfg, zap.NewNop())
	if err != nil {
		return err
	}
	defer d.Close()
	return fn(cmd.Context(), d)
}
