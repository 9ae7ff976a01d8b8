package cli

import (
	"fmt"

	"github.com/dukerupert/taskhouse/internal/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

func init() {
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  migrateRunner("up", (*database.DB).Up),
	})
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE:  migrateRunner("down", (*database.DB).Down),
	})
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the state of every migration",
		RunE:  migrateRunner("status", (*database.DB).Status),
	})
}

func migrateRunner(name string, fn func(*database.DB) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		db, err := database.Connect(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := fn(db); err != nil {
			return fmt.Errorf("migrate %s: %w", name, err)
		}
		logger.Info("migrate finished", "direction", name, "driver", string(db.Dialect))
		return nil
	}
}
