// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bidsflow/bidsflow/internal/config"
	"github.com/bidsflow/bidsflow/internal/diag"
	"github.com/bidsflow/bidsflow/internal/engine"
	"github.com/bidsflow/bidsflow/internal/entity"
	"github.com/bidsflow/bidsflow/internal/filelist"
	"github.com/bidsflow/bidsflow/internal/handler"
	"github.com/bidsflow/bidsflow/internal/issue"
	"github.com/bidsflow/bidsflow/internal/setconfig"
	"github.com/bidsflow/bidsflow/internal/sink"
	"github.com/bidsflow/bidsflow/internal/watch"
)

// groupRequest captures the group command inputs.
type groupRequest struct {
	configPath      string
	filesPath       string
	scanDir         string
	root            string
	output          string
	format          string
	workers         int
	broadcastEntity string
	watch           bool
	debounce        time.Duration
}

func newGroupCommand(app *App) *cobra.Command {
	var req groupRequest

	cmd := &cobra.Command{
		Use:   "group",
		Short: "Group dataset files into records",
		Long: `Group dataset files into records.

Files come from a file list document (--files) or a dataset scan (--scan).
Records are written to stdout, or to --output, as JSON lines, YAML documents
or a SQLite index.

With --watch the command keeps running and groups again whenever the
configuration, the file list or a scanned dataset file changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, logger, err := app.load(cmd.Context())
			if err != nil {
				return err
			}
			applyGroupFlags(cmd, &req, s)
			if req.watch {
				return watchGroup(cmd.Context(), app, req, s, logger)
			}
			return runGroup(cmd.Context(), app, req, s, logger)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&req.configPath, "config", "c", "", "grouping configuration (YAML, JSON or CUE)")
	f.StringVar(&req.filesPath, "files", "", "file list document (JSON, YAML or TOML)")
	f.StringVar(&req.scanDir, "scan", "", "scan a BIDS dataset directory instead of reading a file list")
	f.StringVar(&req.root, "root", "", "dataset root that record paths are relative to (default: settings dataset_root, or the --scan directory)")
	f.StringVarP(&req.output, "output", "o", "", "output path (default: stdout)")
	f.StringVar(&req.format, "format", "", "output format: jsonl, yaml, sqlite")
	f.IntVar(&req.workers, "workers", 0, "concurrent suffix handlers (0 uses every CPU)")
	f.StringVar(&req.broadcastEntity, "broadcast-entity", "", "entity whose absence marks a record task-independent")
	f.BoolVarP(&req.watch, "watch", "w", false, "group again whenever an input changes")
	f.DurationVar(&req.debounce, "debounce", watch.DefaultDebounce, "quiet period before a watched change triggers a run")
	_ = cmd.MarkFlagRequired("config")
	cmd.MarkFlagsMutuallyExclusive("files", "scan")
	cmd.MarkFlagsOneRequired("files", "scan")

	return cmd
}

// applyGroupFlags lets explicitly set flags override settings.
func applyGroupFlags(cmd *cobra.Command, req *groupRequest, s *config.Settings) {
	f := cmd.Flags()
	if f.Changed("root") {
		s.DatasetRoot = req.root
	} else if s.DatasetRoot == "" && req.scanDir != "" {
		s.DatasetRoot = req.scanDir
	}
	if f.Changed("output") {
		s.Output.Path = req.output
	}
	if f.Changed("format") {
		s.Output.Format = config.OutputFormat(req.format)
	}
	if f.Changed("workers") {
		s.Workers = req.workers
	}
	if f.Changed("broadcast-entity") {
		s.BroadcastEntity = req.broadcastEntity
	}
}

func runGroup(ctx context.Context, app *App, req groupRequest, s *config.Settings, logger *slog.Logger) error {
	if valid, errs := s.IsValid(); !valid {
		return &ExitError{Code: ExitUsage, Err: errs[0]}
	}

	doc, err := setconfig.Load(req.configPath)
	if err != nil {
		return &ExitError{Code: ExitConfig, Err: issue.NewErrorContext().
			WithOperation("load grouping configuration").
			WithResource(req.configPath).
			WithSuggestion("Run 'bidsflow config validate " + req.configPath + "' for details").
			WithIssue(issue.SetConfigInvalidId).
			Wrap(err).
			Build()}
	}

	files, err := readFiles(ctx, req)
	if err != nil {
		return err
	}

	eng, err := engine.New(doc, engine.Options{
		Workers:         s.Workers,
		BroadcastEntity: s.BroadcastEntity,
		Layout:          handler.NewLayout(s.DatasetRoot),
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	res, err := eng.Run(ctx, files)
	if errors.Is(err, engine.ErrNoRecords) {
		return &ExitError{Code: ExitNoRecords, Err: issue.NewErrorContext().
			WithOperation("group files").
			WithResource(req.configPath).
			WithIssue(issue.NoRecordsId).
			Wrap(err).
			Build()}
	}
	if err != nil {
		return err
	}

	if err := writeRecords(ctx, app.stdout, s.Output, res); err != nil {
		return issue.NewErrorContext().
			WithOperation("write records").
			WithResource(s.Output.Path).
			WithIssue(issue.OutputWriteFailedId).
			Wrap(err).
			BuildError()
	}

	summary := fmt.Sprintf("%s %d record(s) from %d file(s)", SuccessStyle.Render("✓"), len(res.Records), len(files))
	if n := diag.Count(res.Diagnostics, diag.SeverityWarning); n > 0 {
		summary += WarningStyle.Render(fmt.Sprintf(" (%d warning(s))", n))
	}
	if s.Output.Path != "" {
		summary += " → " + CmdStyle.Render(s.Output.Path)
	}
	fmt.Fprintln(app.stderr, summary)
	renderDiagnosticIssues(app.stderr, res.Diagnostics)
	return nil
}

// diagnosticIssues links run warnings to the catalog entry explaining them.
var diagnosticIssues = map[diag.Code]issue.Id{
	diag.CodePathOutsideRoot:      issue.DatasetRootInvalidId,
	diag.CodeBroadcastUnavailable: issue.BroadcastUnavailableId,
}

// renderDiagnosticIssues prints each linked catalog entry once, in the order
// its first diagnostic appeared.
func renderDiagnosticIssues(w io.Writer, diags []diag.Diagnostic) {
	seen := make(map[issue.Id]bool)
	for _, d := range diags {
		id, ok := diagnosticIssues[d.Code]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		rendered, err := issue.Get(id).Render("notty")
		if err != nil {
			continue
		}
		fmt.Fprint(w, rendered)
	}
}

// watchGroup runs once, then again on every debounced input change until ctx
// is canceled. Failed runs are reported and watching continues.
func watchGroup(ctx context.Context, app *App, req groupRequest, s *config.Settings, logger *slog.Logger) error {
	if valid, errs := s.IsValid(); !valid {
		return &ExitError{Code: ExitUsage, Err: errs[0]}
	}

	rerun := func(ctx context.Context) {
		if err := runGroup(ctx, app, req, s, logger); err != nil {
			fmt.Fprintf(app.stderr, "%s Grouping failed: %s\n", WarningStyle.Render("!"), formatErrorForDisplay(err, app.flags.verbose))
		}
	}

	cfg := watch.Config{
		Files:    []string{req.configPath},
		Debounce: req.debounce,
		Logger:   logger,
		OnChange: func(ctx context.Context, changed []string) error {
			logger.Debug("inputs changed", "paths", changed)
			fmt.Fprintf(app.stderr, "%s Detected %d change(s), grouping again\n", CmdStyle.Render("→"), len(changed))
			rerun(ctx)
			return nil
		},
	}
	if req.scanDir != "" {
		cfg.Dirs = []string{req.scanDir}
	} else {
		cfg.Files = append(cfg.Files, req.filesPath)
	}

	w, err := watch.New(cfg)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("watch inputs").
			WithResource(req.configPath).
			Wrap(err).
			BuildError()
	}

	rerun(ctx)
	fmt.Fprintf(app.stderr, "%s Watching for changes (Ctrl+C to stop)\n", CmdStyle.Render("→"))
	return w.Run(ctx)
}

func readFiles(ctx context.Context, req groupRequest) ([]*entity.File, error) {
	if req.scanDir != "" {
		files, err := filelist.Scan(ctx, req.scanDir)
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("scan dataset").
				WithResource(req.scanDir).
				WithIssue(issue.FileNotFoundId).
				Wrap(err).
				BuildError()
		}
		return files, nil
	}

	files, err := filelist.Load(req.filesPath)
	if err != nil {
		id := issue.FileListInvalidId
		if errors.Is(err, os.ErrNotExist) {
			id = issue.FileNotFoundId
		}
		return nil, issue.NewErrorContext().
			WithOperation("read file list").
			WithResource(req.filesPath).
			WithIssue(id).
			Wrap(err).
			BuildError()
	}
	return files, nil
}

// writeRecords drains the records into the configured sink.
func writeRecords(ctx context.Context, stdout io.Writer, out config.OutputSettings, res *engine.Result) (err error) {
	if out.Format == config.OutputSQLite {
		db, err := sink.OpenSQLite(ctx, out.Path, res.RunID)
		if err != nil {
			return err
		}
		if err := sink.Drain(ctx, res.Records, db); err != nil {
			return errors.Join(err, db.Abort())
		}
		return nil
	}

	w := stdout
	if out.Path != "" {
		f, createErr := os.Create(out.Path)
		if createErr != nil {
			return createErr
		}
		defer func() { err = errors.Join(err, f.Close()) }()
		w = f
	}

	var s sink.Sink
	if out.Format == config.OutputYAML {
		s = sink.NewYAML(w)
	} else {
		s = sink.NewJSONLines(w)
	}
	return sink.Drain(ctx, res.Records, s)
}
