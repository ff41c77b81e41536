package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/kenilGamer/restodrive-dbsetup/database"
	"github.com/kenilGamer/restodrive-dbsetup/introspect"
	"github.com/kenilGamer/restodrive-dbsetup/loader"
	"github.com/kenilGamer/restodrive-dbsetup/utils"
)

var statusTimeout time.Duration

func init() {
	statusCmd.Flags().DurationVarP(&statusTimeout, "timeout", "t", 10*time.Second, "Timeout for the status check")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which configured objects already exist on the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loader.LoadConfig(configPath())
		if err != nil {
			return reportLoadError(cmd.ErrOrStderr(), configPath(), err)
		}
		utils.LoadEnv(logger)

		ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
		defer cancel()

		admin, err := database.Open(ctx, cfg.Database, database.MaintenanceDatabase)
		if err != nil {
			return err
		}
		defer admin.Close()

		snap, err := introspect.ServerState(ctx, admin, cfg.Database.Name, introspect.RoleNames(cfg))
		if err != nil {
			return err
		}

		if snap.DatabaseExists {
			target, err := database.Open(ctx, cfg.Database, cfg.Database.Name)
			if err != nil {
				return err
			}
			defer target.Close()

			if err := introspect.DatabaseState(ctx, target, snap); err != nil {
				return err
			}
		}

		report := introspect.Compare(cfg, snap)
		logger.Debugw("status collected", "pending", report.Pending())
		printStatus(cmd.OutOrStdout(), report)
		return nil
	},
}

func printStatus(w io.Writer, report *introspect.Report) {
	line := func(kind string, p introspect.Presence) {
		if p.Exists {
			fmt.Fprintf(w, "   ✅ %s %s\n", kind, p.Name)
		} else {
			fmt.Fprintf(w, "   🕒 %s %s (pending)\n", kind, p.Name)
		}
	}

	fmt.Fprintln(w, "📋 Provisioning status")
	line("database", report.Database)
	for _, p := range report.Users {
		line("user", p)
	}
	for _, p := range report.Tables {
		line("table", p)
	}
	for _, p := range report.Extensions {
		line("extension", p)
	}

	if pending := report.Pending(); pending == 0 {
		success(w, "Everything in config.json already exists")
	} else {
		warn(w, "%d object(s) pending", pending)
	}
}
