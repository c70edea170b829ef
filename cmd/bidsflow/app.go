// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/bidsflow/bidsflow/internal/config"
	"github.com/bidsflow/bidsflow/internal/issue"
	"github.com/bidsflow/bidsflow/internal/logging"
)

type (
	// SettingsProvider loads application settings using explicit options.
	SettingsProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Settings, error)
	}

	// App wires CLI services and shared dependencies. Every command handler
	// receives an App and writes through its streams.
	App struct {
		Settings SettingsProvider
		stdout   io.Writer
		stderr   io.Writer
		flags    globalFlags
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Settings SettingsProvider
		Stdout   io.Writer
		Stderr   io.Writer
	}

	// globalFlags holds the persistent flag values shared by every command.
	globalFlags struct {
		settingsPath string
		logLevel     string
		logFormat    string
		verbose      bool
	}
)

// NewApp creates an App, filling unset dependencies with production defaults.
func NewApp(deps Dependencies) *App {
	if deps.Settings == nil {
		deps.Settings = config.NewProvider()
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	return &App{Settings: deps.Settings, stdout: deps.Stdout, stderr: deps.Stderr}
}

// load returns the effective settings with log flags applied, and a logger
// writing to stderr.
func (a *App) load(ctx context.Context) (*config.Settings, *slog.Logger, error) {
	s, err := a.Settings.Load(ctx, config.LoadOptions{SettingsPath: a.flags.settingsPath})
	if err != nil {
		var ae *issue.ActionableError
		if errors.As(err, &ae) && ae.Issue == 0 {
			ae.Issue = issue.SettingsLoadFailedId
		}
		return nil, nil, &ExitError{Code: ExitSettings, Err: err}
	}

	if a.flags.verbose {
		s.Log.Level = config.LogLevelDebug
	}
	if a.flags.logLevel != "" {
		s.Log.Level = config.LogLevel(a.flags.logLevel)
	}
	if a.flags.logFormat != "" {
		s.Log.Format = config.LogFormat(a.flags.logFormat)
	}

	logger, err := logging.New(a.stderr, logging.Options{
		Level:  string(s.Log.Level),
		Format: string(s.Log.Format),
	})
	if err != nil {
		return nil, nil, &ExitError{Code: ExitUsage, Err: err}
	}
	return s, logger, nil
}
