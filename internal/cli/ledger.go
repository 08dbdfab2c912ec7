package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tutu-network/pointledger/internal/app/points"
	"github.com/tutu-network/pointledger/internal/daemon"
	"github.com/tutu-network/pointledger/internal/domain"
	"github.com/tutu-network/pointledger/internal/timeutil"
)

// timeLayout renders instants in CLI tables.
const timeLayout = "2006-01-02 15:04"

// ─── balance ────────────────────────────────────────────────────────────────

func newBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance ACCOUNT",
		Short: "Show an account's point balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDaemon(cmd, func(ctx context.Context, d *daemon.Daemon) error {
				bal, err := d.Points.Balance(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Account:    %s\n", bal.Account)
				fmt.Fprintf(out, "Available:  %s (%s)\n", bal.Available, bal.Available.FormatCurrency())
				fmt.Fprintf(out, "Total:      %s\n", bal.Total)
				if !bal.ExpiringSoon.IsZero() {
					fmt.Fprintf(out, "⚠️  %s expire within %s\n", bal.ExpiringSoon, bal.Window)
				}
				return nil
			})
		},
	}
}

// ─── earn ───────────────────────────────────────────────────────────────────

func newEarnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "earn ACCOUNT AMOUNT",
		Short: "Credit points to an account",
		Long: `Credit points to an account. The points expire after --expires
(default [points] default_expiry).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			reason, _ := cmd.Flags().GetString("reason")
			ref, _ := cmd.Flags().GetString("ref")
			expires, _ := cmd.Flags().GetString("expires")
			ttl, err := timeutil.ParseDuration(expires)
			if err != nil {
				return fmt.Errorf("--expires: %w", err)
			}

			return withDaemon(cmd, func(ctx context.Context, d *daemon.Daemon) error {
				tx, err := d.Points.Earn(ctx, args[0], points.EarnRequest{
					Amount:    amount,
					Reason:    domain.TransactionReason(reason),
					Ref:       ref,
					ExpiresIn: ttl,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✅ Earned %s for %s (%s), expires %s\n",
					tx.Amount, tx.Account, tx.Reason, tx.ExpiresAt.Local().Format(timeLayout))
				return nil
			})
		},
	}
	cmd.Flags().String("reason", string(domain.ReasonCampaignBonus), "Earn reason")
	cmd.Flags().String("ref", "", "External reference")
	cmd.Flags().String("expires", "", `Lifetime of the points ("90d", "720h")`)
	return cmd
}

// ─── spend ──────────────────────────────────────────────────────────────────

func newSpendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spend ACCOUNT AMOUNT",
		Short: "Spend points, soonest-expiring first",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			ref, _ := cmd.Flags().GetString("ref")

			return withDaemon(cmd, func(ctx context.Context, d *daemon.Daemon) error {
				tx, err := d.Points.Spend(ctx, args[0], points.SpendRequest{
					Amount: amount,
					Ref:    ref,
				})
				if err != nil {
					return err
				}
				bal, err := d.Points.Balance(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✅ Spent %s from %s, %s left\n", tx.Amount, tx.Account, bal.Available)
				return nil
			})
		},
	}
	cmd.Flags().String("ref", "", "External reference")
	return cmd
}

// ─── alerts ─────────────────────────────────────────────────────────────────

func newAlertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts ACCOUNT",
		Short: "List points that expire soon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			within, _ := cmd.Flags().GetString("within")
			window, err := timeutil.ParseDuration(within)
			if err != nil {
				return fmt.Errorf("--within: %w", err)
			}

			return withDaemon(cmd, func(ctx context.Context, d *daemon.Daemon) error {
				alerts, err := d.Points.Alerts(ctx, args[0], window)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(alerts) == 0 {
					fmt.Fprintln(out, "No points expiring soon.")
					return nil
				}
				now := d.Points.Now()
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "URGENCY\tAMOUNT\tEXPIRES\tLEFT")
				for _, a := range alerts {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Urgency, a.Amount,
						a.ExpiresAt.Local().Format(timeLayout), a.RemainingText(now))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().String("within", "", "Look-ahead window (default [points] alert_window)")
	return cmd
}

// ─── history ────────────────────────────────────────────────────────────────

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history ACCOUNT",
		Short: "Show an account's transactions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			return withDaemon(cmd, func(ctx context.Context, d *daemon.Daemon) error {
				txs, err := d.Points.Transactions(ctx, args[0], limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(txs) == 0 {
					fmt.Fprintln(out, "No transactions.")
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "WHEN\tTYPE\tAMOUNT\tREASON\tREF")
				for _, tx := range txs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
						tx.CreatedAt.Local().Format(timeLayout), tx.Type, tx.Amount, tx.Reason, tx.Ref)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum transactions to show (0 = all)")
	return cmd
}

// ─── purge ──────────────────────────────────────────────────────────────────

func newPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge [ACCOUNT]",
		Short: "Remove expired points now",
		Long:  `Remove expired entries for one account, or for every account when none is given.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDaemon(cmd, func(ctx context.Context, d *daemon.Daemon) error {
				var (
					forfeited domain.Amount
					err       error
				)
				if len(args) == 1 {
					forfeited, err = d.Points.Purge(ctx, args[0])
				} else {
					forfeited, err = d.Points.PurgeAll(ctx)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Forfeited %s of expired points.\n", forfeited)
				return nil
			})
		},
	}
}

// parseAmount parses a point count argument.
func parseAmount(s string) (domain.Amount, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return domain.Amount{}, fmt.Errorf("invalid amount %q", s)
	}
	return domain.NewAmount(n)
}

// formatDay renders the calendar day of t, or "never".
func formatDay(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format("2006-01-02")
}
