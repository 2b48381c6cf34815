package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/outletops/maintenance-tickets/internal/config"
	"github.com/outletops/maintenance-tickets/internal/observability"
	"github.com/outletops/maintenance-tickets/internal/persistence"
)

var (
	cfg     *config.Config
	logger  *zap.Logger
	pg      *persistence.Postgres
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:           "ticketctl",
	Short:         "Operator tool for the maintenance ticket service",
	Long:          `ticketctl applies database migrations and provisions sign-in accounts for outlets and the administrator.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger, err = observability.NewLogger(cfg.Logger)
		if err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}
		pg, err = persistence.NewPostgres(cmd.Context(), cfg.Postgres, logger)
		if err != nil {
			return fmt.Errorf("failed to connect postgres: %w", err)
		}
		if pg.PoolHandle() == nil {
			return errors.New("POSTGRES_DSN is required")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		pg.Close()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ticketctl %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(versionCmd)
}

func SetVersion(v string) {
	version = v
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func Root() *cobra.Command {
	return rootCmd
}
