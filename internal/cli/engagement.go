package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tutu-network/pointledger/internal/daemon"
)

// ─── login ──────────────────────────────────────────────────────────────────

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login ACCOUNT",
		Short: "Record a daily login and collect the streak bonus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDaemon(cmd, func(ctx context.Context, d *daemon.Daemon) error {
				prev, err := d.Engagement.Streak(ctx, args[0])
				if err != nil {
					return err
				}
				res, err := d.Engagement.Login(ctx, args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if !res.NewDay {
					fmt.Fprintf(out, "Already logged in today (streak: %d days).\n", res.Streak.CurrentDays)
					return nil
				}
				fmt.Fprintf(out, "🔥 Streak: %d days (best %d, last login %s)\n",
					res.Streak.CurrentDays, res.Streak.MaxDays, formatDay(prev.LastLogin))
				fmt.Fprintf(out, "✅ Awarded %s\n", res.Awarded)
				for _, m := range res.Missions {
					fmt.Fprintf(out, "   Mission complete: %s (+%s)\n", m.Title, m.Reward)
				}
				return nil
			})
		},
	}
}

// ─── surveys ────────────────────────────────────────────────────────────────

func newSurveysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "surveys",
		Short: "List available surveys, best reward per minute first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			category, _ := cmd.Flags().GetString("category")

			return withDaemon(cmd, func(ctx context.Context, d *daemon.Daemon) error {
				surveys, err := d.Engagement.Surveys(ctx, category)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(surveys) == 0 {
					fmt.Fprintln(out, "No surveys available.")
					return nil
				}
				now := d.Points.Now()
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tREWARD\tPT/MIN\tLEFT")
				for _, s := range surveys {
					left, _ := s.RemainingTime(now)
					mark := ""
					if s.IsHighEfficiency() {
						mark = " ★"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.1f%s\t%dh\n",
						s.ID, s.Title, s.Category, s.Reward, s.RewardEfficiency(), mark, int(left/time.Hour))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().String("category", "", "Only list one category (lifestyle, product, service, general)")
	return cmd
}
