package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kenilGamer/restodrive-dbsetup/pipeline"
)

var dryRunGenerate bool

func init() {
	generateCmd.Flags().BoolVar(&dryRunGenerate, "dry-run", false, "Print the SQL instead of writing the output file")
}

var generateCmd = &cobra.Command{
	Use:   "generate [outputPath]",
	Short: "Generate the SQL script from config.json",
	Long: `Read config.json, validate it and write the provisioning script.

The output defaults to generated_setup.sql next to config.json.

Examples:
  dbsetup generate                # Write generated_setup.sql
  dbsetup generate setup.sql      # Write setup.sql
  dbsetup generate --dry-run      # Print the script without writing it
`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output := filepath.Join(workDir, pipeline.DefaultOutputFile)
		if len(args) == 1 {
			output = args[0]
		}
		return runGenerate(cmd, configPath(), output, dryRunGenerate)
	},
}

// runGenerate is shared by `dbsetup generate` and `sqlgen --config`.
func runGenerate(cmd *cobra.Command, configFile, output string, dryRun bool) error {
	summary, err := pipeline.Generate(pipeline.Options{
		ConfigPath: configFile,
		OutputPath: output,
		DryRun:     dryRun,
		Logger:     logger,
	})
	if err != nil {
		return reportLoadError(cmd.ErrOrStderr(), configFile, err)
	}

	if dryRun {
		printDryRun(cmd.OutOrStdout(), summary)
		return nil
	}
	printGenerateSummary(cmd.OutOrStdout(), summary)
	return nil
}
