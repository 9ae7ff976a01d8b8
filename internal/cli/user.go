package cli

import (
	"errors"
	"fmt"

	"github.com/dukerupert/taskhouse/internal/store"
	"github.com/spf13/cobra"
)

var (
	username string
	password string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account",
	RunE:  runUserCreate,
}

func init() {
	userCreateCmd.Flags().StringVar(&username, "username", "", "login name")
	userCreateCmd.Flags().StringVar(&password, "password", "", "password")
	userCreateCmd.MarkFlagRequired("username")
	userCreateCmd.MarkFlagRequired("password")
	userCmd.AddCommand(userCreateCmd)
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	gw, db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer gw.Release()

	u, err := store.NewUserStore(db).Create(ctx, username, password)
	if errors.Is(err, store.ErrDuplicateUser) {
		return fmt.Errorf("user %q already exists", username)
	}
	if err != nil {
		return err
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	if _, err := store.NewStatsStore(db, loc).InitializeUsers(ctx); err != nil {
		return fmt.Errorf("initialize statistics: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", u.Username, u.ID)
	return nil
}
