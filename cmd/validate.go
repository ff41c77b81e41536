package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kenilGamer/restodrive-dbsetup/loader"
	"github.com/kenilGamer/restodrive-dbsetup/pipeline"
	"github.com/kenilGamer/restodrive-dbsetup/schema"
	"github.com/kenilGamer/restodrive-dbsetup/validator"
)

var (
	validateFormat string
	validateStrict bool
)

func init() {
	validateCmd.Flags().StringVarP(&validateFormat, "format", "f", "text", "Output format (text, json)")
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "Fail when there are warnings")
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate config.json without generating SQL",
	Long: `Validate config.json and report every problem found.

Shape errors (missing or mistyped fields, empty index columns, unknown task
types) make validation fail. Warnings and info point out things that are
valid but likely surprising: reserved or quoted identifiers, indexes on
undeclared columns, tasks that will render as error comments.

Examples:
  dbsetup validate                  # Validate ./config.json
  dbsetup validate --format json    # Machine-readable result
  dbsetup validate --strict         # Treat warnings as failures
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch validateFormat {
		case "text", "json":
		default:
			return fmt.Errorf("unknown format %q (want text or json)", validateFormat)
		}

		path := configPath()
		summary, err := pipeline.Validate(path, logger)

		if validateFormat == "json" {
			return outputValidationJSON(cmd.OutOrStdout(), summary, err)
		}
		if err != nil {
			return reportLoadError(cmd.ErrOrStderr(), path, err)
		}
		return outputValidationText(cmd.OutOrStdout(), summary)
	},
}

type validationReport struct {
	Valid    bool                `json:"valid"`
	Issues   []schema.Issue      `json:"issues"`
	Database string              `json:"database,omitempty"`
	Tables   int                 `json:"tables"`
	Users    int                 `json:"users"`
	Tasks    int                 `json:"tasks"`
	Warnings []validator.Finding `json:"warnings"`
	Info     []validator.Finding `json:"info"`
}

func outputValidationJSON(w io.Writer, summary *pipeline.Summary, loadErr error) error {
	report := validationReport{
		Issues:   []schema.Issue{},
		Warnings: []validator.Finding{},
		Info:     []validator.Finding{},
	}

	var verr *schema.ValidationError
	switch {
	case loadErr == nil:
		report.Valid = true
		report.Database = summary.Database
		report.Tables = summary.Tables
		report.Users = summary.Users
		report.Tasks = summary.Tasks
		report.Warnings = summary.Lint.Warnings
		report.Info = summary.Lint.Info
	case errors.As(loadErr, &verr):
		report.Issues = verr.Issues
	case errors.Is(loadErr, loader.ErrConfigNotFound):
		return loadErr
	default:
		report.Issues = []schema.Issue{{Message: loadErr.Error()}}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return err
	}

	if !report.Valid {
		return errReported
	}
	if validateStrict && len(report.Warnings) > 0 {
		return errReported
	}
	return nil
}

func outputValidationText(w io.Writer, summary *pipeline.Summary) error {
	success(w, "Configuration is valid")
	fmt.Fprintf(w, "   Database: %s\n", summary.Database)
	fmt.Fprintf(w, "   Tables: %d\n", summary.Tables)
	fmt.Fprintf(w, "   Users: %d\n", summary.Users)
	fmt.Fprintf(w, "   Tasks: %d\n", summary.Tasks)

	printFindings(w, summary.Lint, true)

	if validateStrict && !summary.Lint.Clean() {
		return fmt.Errorf("%d warning(s) with --strict", len(summary.Lint.Warnings))
	}
	return nil
}
