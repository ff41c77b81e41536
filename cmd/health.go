package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kenilGamer/restodrive-dbsetup/database"
	"github.com/kenilGamer/restodrive-dbsetup/loader"
	"github.com/kenilGamer/restodrive-dbsetup/utils"
)

var healthTimeout time.Duration

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check connectivity to the server in config.json",
	Long: `Check that the PostgreSQL server in config.json accepts the admin connection.

Examples:
  dbsetup health                    # Check the configured server
  dbsetup health --timeout 10s      # Set custom timeout
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loader.LoadConfig(configPath())
		if err != nil {
			return reportLoadError(cmd.ErrOrStderr(), configPath(), err)
		}
		utils.LoadEnv(logger)

		ctx, cancel := context.WithTimeout(cmd.Context(), healthTimeout)
		defer cancel()

		pool, err := database.Open(ctx, cfg.Database, database.MaintenanceDatabase)
		if err != nil {
			return fmt.Errorf("database health check failed: %w", err)
		}
		defer pool.Close()

		var version string
		if err := pool.QueryRow(ctx, "SHOW server_version").Scan(&version); err != nil {
			return fmt.Errorf("reading server version: %w", err)
		}

		success(cmd.OutOrStdout(), "Server %s:%d is healthy (PostgreSQL %s)", cfg.Database.Host, cfg.Database.Port, version)
		return nil
	},
}

func init() {
	healthCmd.Flags().DurationVarP(&healthTimeout, "timeout", "t", 5*time.Second, "Timeout for health check")
}
