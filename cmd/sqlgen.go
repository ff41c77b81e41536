package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kenilGamer/restodrive-dbsetup/pipeline"
)

var (
	sqlgenConfig      string
	sqlgenOutput      string
	sqlgenInteractive bool
	sqlgenDryRun      bool
)

func init() {
	sqlgenCmd.Flags().StringVarP(&sqlgenConfig, "config", "c", "", "Config file to read (.json, .yaml or .yml)")
	sqlgenCmd.Flags().StringVarP(&sqlgenOutput, "output", "o", pipeline.DefaultOutputFile, "SQL file to write")
	sqlgenCmd.Flags().BoolVarP(&sqlgenInteractive, "interactive", "i", false, "Show how to create a config file by hand")
	sqlgenCmd.Flags().BoolVar(&sqlgenDryRun, "dry-run", false, "Print the SQL instead of writing the output file")
	sqlgenCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

var sqlgenCmd = &cobra.Command{
	Use:   "sqlgen",
	Short: "Generate a PostgreSQL provisioning script from a config file",
	Long: `sqlgen renders a database config (database, users, tables, tasks) into an
idempotent PostgreSQL provisioning script.

Examples:
  sqlgen --config config.json
  sqlgen --config config.json --output setup.sql
  sqlgen --config db.yaml --dry-run
  sqlgen --interactive
`,
	Args:              cobra.NoArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogger,
	RunE: func(cmd *cobra.Command, args []string) error {
		if sqlgenInteractive {
			printInteractiveHelp(cmd.OutOrStdout())
			return nil
		}
		if sqlgenConfig == "" {
			return errors.New("--config is required (or use --interactive for setup instructions)")
		}
		return runGenerate(cmd, sqlgenConfig, sqlgenOutput, sqlgenDryRun)
	},
}

// ExecuteSQLGen runs the flag-based CLI.
func ExecuteSQLGen() {
	os.Exit(run(sqlgenCmd))
}

func printInteractiveHelp(w io.Writer) {
	fmt.Fprintln(w, "🧭 Interactive setup is not available yet. Create a config by hand:")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  1. Run 'dbsetup init' to write config.json from the example template")
	fmt.Fprintln(w, "  2. Edit the database name, users, tables and tasks")
	fmt.Fprintln(w, "  3. Run 'dbsetup validate' to check it")
	fmt.Fprintln(w, "  4. Run 'sqlgen --config config.json --output setup.sql'")
}
