package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kenilGamer/restodrive-dbsetup/pipeline"
	"github.com/kenilGamer/restodrive-dbsetup/utils"
)

var (
	workDir string
	verbose bool

	logger = zap.NewNop().Sugar()
)

// errReported marks failures whose details were already printed.
var errReported = errors.New("reported")

var rootCmd = &cobra.Command{
	Use:   "dbsetup",
	Short: "Generate database provisioning SQL from config.json",
	Long: `dbsetup turns config.json (database, users, tables, tasks) into an
idempotent PostgreSQL provisioning script.

Examples:

  dbsetup init
  dbsetup validate
  dbsetup generate
  dbsetup generate setup.sql
`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogger,
}

func setupLogger(cmd *cobra.Command, args []string) error {
	logger = utils.NewLogger(verbose)
	return nil
}

// Execute runs the subcommand CLI.
func Execute() {
	os.Exit(run(rootCmd))
}

func run(root *cobra.Command) int {
	defer func() { _ = logger.Sync() }()

	c, err := root.ExecuteC()
	if err == nil {
		return 0
	}
	if !errors.Is(err, errReported) {
		fail(c.ErrOrStderr(), "%v", err)
	}
	if strings.HasPrefix(err.Error(), "unknown command") {
		fmt.Fprintln(c.OutOrStdout())
		fmt.Fprint(c.OutOrStdout(), root.UsageString())
	}
	return 1
}

func configPath() string {
	return filepath.Join(workDir, pipeline.DefaultConfigFile)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "C", ".", "Directory holding config.json")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(healthCmd)

	color.NoColor = color.NoColor || os.Getenv("NO_COLOR") != ""
}
