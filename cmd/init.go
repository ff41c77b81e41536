package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kenilGamer/restodrive-dbsetup/pipeline"
)

var forceInit bool

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing config.json")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config.json from the example template",
	Long: `Create config.json from the built-in example template.

An existing config.json is never overwritten unless --force is given.

Examples:
  dbsetup init                # Create config.json in the current directory
  dbsetup init --force        # Replace an existing config.json
  dbsetup init -C deploy/db   # Create deploy/db/config.json
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath()
		out := cmd.OutOrStdout()

		created, err := pipeline.InitConfig(path, forceInit)
		if err != nil {
			return err
		}
		if !created {
			warn(out, "%s already exists! Use --force to overwrite it.", path)
			return nil
		}

		success(out, "Created %s from template.", path)
		fmt.Fprintln(out, "📝 Edit it to describe your database, users, tables and tasks")
		fmt.Fprintln(out, "🚀 Run 'dbsetup generate' to create the SQL script")
		return nil
	},
}
