package cli

import (
	"fmt"

	"github.com/dukerupert/taskhouse/internal/database"
	"github.com/dukerupert/taskhouse/internal/isoweek"
	"github.com/dukerupert/taskhouse/internal/store"
	"github.com/spf13/cobra"
)

var (
	statsUser   string
	statsWeeks  int
	statsMember int64
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Inspect and maintain completion statistics",
}

var statsWeeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Show completed tasks per ISO week",
	RunE:  runStatsWeekly,
}

var statsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create missing statistics rows for every user",
	RunE:  runStatsInit,
}

var statsReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute member counters from assignments and history",
	RunE:  runStatsReconcile,
}

func init() {
	statsWeeklyCmd.Flags().StringVar(&statsUser, "user", "", "username to report on")
	statsWeeklyCmd.Flags().IntVar(&statsWeeks, "weeks", 0, "number of weeks (default from config)")
	statsWeeklyCmd.MarkFlagRequired("user")

	statsReconcileCmd.Flags().Int64Var(&statsMember, "member", 0, "reconcile a single member (default: all)")

	statsCmd.AddCommand(statsWeeklyCmd)
	statsCmd.AddCommand(statsInitCmd)
	statsCmd.AddCommand(statsReconcileCmd)
}

// newStatsStore opens the database and returns a statistics store over it
// along with a release func for the handle.
func newStatsStore(cmd *cobra.Command) (*store.StatsStore, *database.DB, func(), error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, nil, err
	}
	gw, db, err := openDB(cmd.Context())
	if err != nil {
		return nil, nil, nil, err
	}
	release := func() {
		if err := gw.Release(); err != nil {
			logger.Error("release database", "error", err)
		}
	}
	return store.NewStatsStore(db, loc), db, release, nil
}

func runStatsWeekly(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	weeks := statsWeeks
	if weeks == 0 {
		weeks = cfg.Stats.Weeks
	}
	if weeks < 1 || weeks > isoweek.MaxWindow {
		return fmt.Errorf("--weeks must be between 1 and %d, got %d", isoweek.MaxWindow, weeks)
	}

	ss, db, release, err := newStatsStore(cmd)
	if err != nil {
		return err
	}
	defer release()

	u, err := store.NewUserStore(db).GetByUsername(ctx, statsUser)
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("user %q not found", statsUser)
	}

	counts, err := ss.WeeklyCompletions(ctx, u.ID, weeks)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), RenderWeekly(u.Username, ss.Location(), counts))
	return nil
}

func runStatsInit(cmd *cobra.Command, args []string) error {
	ss, _, release, err := newStatsStore(cmd)
	if err != nil {
		return err
	}
	defer release()

	n, err := ss.InitializeUsers(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "initialized statistics for %d users\n", n)
	return nil
}

func runStatsReconcile(cmd *cobra.Command, args []string) error {
	ss, _, release, err := newStatsStore(cmd)
	if err != nil {
		return err
	}
	defer release()

	if statsMember != 0 {
		st, err := ss.ReconcileMemberStats(cmd.Context(), statsMember)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "member %d: ongoing %d, completed %d, total %d\n",
			st.MemberID, st.Ongoing, st.Completed, st.Total)
		return nil
	}

	n, err := ss.ReconcileAll(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "reconciled %d members\n", n)
	return nil
}
