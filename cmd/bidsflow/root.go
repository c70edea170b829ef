// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/bidsflow/bidsflow/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the bidsflow command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bidsflow",
		Short: "Group BIDS dataset files into per-subject processing records",
		Long: TitleStyle.Render("bidsflow") + SubtitleStyle.Render(" - group BIDS files into processing records") + `

bidsflow reads a grouping configuration (YAML, JSON or CUE) and a list of
dataset files, groups the files by the loop-over entities, and emits one
record per group key. Task-independent files (an anatomical scan, a fieldmap)
are shared with every task record of the same subject and session.

` + SubtitleStyle.Render("Examples:") + `
  bidsflow group --config sets.yaml --scan /data/ds001
  bidsflow group --config sets.yaml --files files.json --format sqlite --output runs.db
  bidsflow config validate sets.yaml
  bidsflow config explain sets.yaml
  bidsflow scan /data/ds001 > files.yaml`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&app.flags.settingsPath, "settings", "", "settings file (default is <user config dir>/bidsflow/bidsflow.cue)")
	pf.StringVar(&app.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&app.flags.logFormat, "log-format", "", "log format: text, json, logfmt")
	pf.BoolVarP(&app.flags.verbose, "verbose", "v", false, "log every diagnostic (same as --log-level debug)")

	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.AddCommand(
		newGroupCommand(app),
		newConfigCommand(app),
		newScanCommand(app),
		newEntitiesCommand(app),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	rootCmd := NewRootCommand(app)

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		renderIssue(app.stderr, err)
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(ExitFailure)
	}
}

// renderIssue prints the catalog entry linked to err, if any.
func renderIssue(w io.Writer, err error) {
	entry := issue.IssueOf(err)
	if entry == nil {
		return
	}
	rendered, renderErr := entry.Render("dark")
	if renderErr != nil {
		slog.Warn("failed to render issue catalog entry", "issueID", entry.Id(), "error", renderErr)
		return
	}
	fmt.Fprint(w, rendered)
}

// formatErrorForDisplay formats an error for user display, using the
// ActionableError layout when available.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}
