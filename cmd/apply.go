package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kenilGamer/restodrive-dbsetup/database"
	"github.com/kenilGamer/restodrive-dbsetup/loader"
	"github.com/kenilGamer/restodrive-dbsetup/pipeline"
	"github.com/kenilGamer/restodrive-dbsetup/runner"
	"github.com/kenilGamer/restodrive-dbsetup/schema"
	"github.com/kenilGamer/restodrive-dbsetup/utils"
)

var applyTimeout time.Duration

func init() {
	applyCmd.Flags().DurationVarP(&applyTimeout, "timeout", "t", 5*time.Minute, "Timeout for the whole run")
}

var applyCmd = &cobra.Command{
	Use:   "apply [scriptPath]",
	Short: "Run a generated script against the server in config.json",
	Long: `Run a generated script against the PostgreSQL server described in config.json.

Statements before the first \c directive run on the 'postgres' maintenance
database as the configured admin user; the rest run on the target database.
The password is read from DBSETUP_ADMIN_PASSWORD, or the whole connection from
DATABASE_URL (a .env file is loaded when present).

CREATE DATABASE is not guarded, so applying the same script twice fails on the
first statement.

Examples:
  dbsetup apply                       # Run generated_setup.sql
  dbsetup apply setup.sql             # Run setup.sql
  DBSETUP_ADMIN_PASSWORD=... dbsetup apply
`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scriptPath := filepath.Join(workDir, pipeline.DefaultOutputFile)
		if len(args) == 1 {
			scriptPath = args[0]
		}

		cfg, err := loader.LoadConfig(configPath())
		if err != nil {
			return reportLoadError(cmd.ErrOrStderr(), configPath(), err)
		}

		script, err := os.ReadFile(scriptPath)
		if err != nil {
			return fmt.Errorf("reading script: %w", err)
		}

		utils.LoadEnv(logger)

		ctx, cancel := context.WithTimeout(cmd.Context(), applyTimeout)
		defer cancel()

		report, err := runner.Apply(ctx, string(script), database.MaintenanceDatabase, poolOpener(cfg.Database), logger)
		if err != nil {
			if report != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "   %d statement(s) ran before the failure\n", report.Statements)
			}
			return fmt.Errorf("apply failed: %w", err)
		}

		success(cmd.OutOrStdout(), "Applied %d statement(s) in %d batch(es) (%v)",
			report.Statements, report.Batches, report.Elapsed.Round(time.Millisecond))
		return nil
	},
}

func poolOpener(db schema.Database) runner.Opener {
	return func(ctx context.Context, dbName string) (runner.Conn, error) {
		pool, err := database.Open(ctx, db, dbName)
		if err != nil {
			return nil, err
		}
		return pool, nil
	}
}
