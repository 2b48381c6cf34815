package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/outletops/maintenance-tickets/internal/persistence"
)

var migrationsDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations to the database",
	Long:  `Apply every migration in the migrations directory that has not been recorded yet, in file name order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := cfg.Postgres.MigrationsDir
		if migrationsDir != "" {
			dir = migrationsDir
		}
		if err := persistence.RunMigrations(cmd.Context(), pg.PoolHandle(), dir, logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied.")
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrationsDir, "migrations-dir", "", "path to migrations directory (defaults to POSTGRES_MIGRATIONS_DIR)")
}
