package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukerupert/taskhouse/internal/config"
	"github.com/dukerupert/taskhouse/internal/database"
	"github.com/dukerupert/taskhouse/internal/logging"
	"github.com/spf13/cobra"
)

var (
	configFile string
	cfg        *config.Config
	logger     *slog.Logger
)

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "taskhouse",
		Short: "Taskhouse - household task tracking",
		Long: `Taskhouse tracks household tasks, the members they are assigned to,
and how many get completed each week.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger = logging.Setup(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: taskhouse.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(statsCmd)

	return rootCmd
}

// openDB opens the configured database with its schema brought up to date.
// The caller releases the returned gateway.
func openDB(ctx context.Context) (*database.Gateway, *database.DB, error) {
	gw := database.NewGateway(cfg.Database.Driver, cfg.Database.DSN, logger)
	db, err := gw.Acquire(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return gw, db, nil
}
