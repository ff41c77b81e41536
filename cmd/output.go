package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/kenilGamer/restodrive-dbsetup/loader"
	"github.com/kenilGamer/restodrive-dbsetup/pipeline"
	"github.com/kenilGamer/restodrive-dbsetup/schema"
	"github.com/kenilGamer/restodrive-dbsetup/validator"
)

var (
	green  = color.New(color.FgGreen, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow)
)

func success(w io.Writer, format string, args ...any) {
	green.Fprintf(w, "✅ "+format+"\n", args...)
}

func warn(w io.Writer, format string, args ...any) {
	yellow.Fprintf(w, "⚠️  "+format+"\n", args...)
}

func fail(w io.Writer, format string, args ...any) {
	red.Fprintf(w, "❌ "+format+"\n", args...)
}

// reportLoadError prints a config loading failure in full and returns
// errReported so the caller exits non-zero without printing it again.
func reportLoadError(w io.Writer, path string, err error) error {
	var verr *schema.ValidationError
	switch {
	case errors.Is(err, loader.ErrConfigNotFound):
		fail(w, "%s not found. Run 'dbsetup init' to create one.", path)
	case errors.As(err, &verr):
		fail(w, "Configuration is invalid (%d error(s)):", len(verr.Issues))
		printIssues(w, verr.Issues)
	default:
		fail(w, "Could not read %s: %v", path, err)
	}
	return errReported
}

func printIssues(w io.Writer, issues []schema.Issue) {
	for i, issue := range issues {
		path := issue.Path
		if path == "" {
			path = "(root)"
		}
		fmt.Fprintf(w, "  %d. %s: %s\n", i+1, path, issue.Message)
	}
}

func printFindings(w io.Writer, result *validator.Result, withInfo bool) {
	if len(result.Warnings) > 0 {
		fmt.Fprintf(w, "\n🟡 Warnings (%d):\n", len(result.Warnings))
		for i, f := range result.Warnings {
			fmt.Fprintf(w, "  %d. %s: %s\n", i+1, f.Path, f.Message)
		}
	}
	if withInfo && len(result.Info) > 0 {
		fmt.Fprintf(w, "\n🔵 Info (%d):\n", len(result.Info))
		for i, f := range result.Info {
			fmt.Fprintf(w, "  %d. %s: %s\n", i+1, f.Path, f.Message)
		}
	}
}

func printGenerateSummary(w io.Writer, summary *pipeline.Summary) {
	success(w, "SQL script generated: %s", summary.OutputPath)
	fmt.Fprintf(w, "   Database: %s\n", summary.Database)
	fmt.Fprintf(w, "   Tables: %d\n", summary.Tables)
	fmt.Fprintf(w, "   Users: %d\n", summary.Users)
	fmt.Fprintf(w, "   Tasks: %d\n", summary.Tasks)
	printFindings(w, summary.Lint, false)
}

func printDryRun(w io.Writer, summary *pipeline.Summary) {
	fmt.Fprintln(w, "================ DRY RUN: Script Preview ================")
	fmt.Fprint(w, summary.Script)
	fmt.Fprintln(w, "=========================================================")
	fmt.Fprintf(w, "(Dry run only. %s was not written.)\n", summary.OutputPath)
}
