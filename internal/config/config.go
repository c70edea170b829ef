// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bidsflow/bidsflow/internal/cueutil"
	"github.com/bidsflow/bidsflow/internal/issue"

	"github.com/spf13/viper"
	"mvdan.cc/sh/v3/shell"
)

const (
	// AppName is the application name.
	AppName = "bidsflow"
	// SettingsFileName is the name of the settings file.
	SettingsFileName = "bidsflow.cue"
	// EnvPrefix prefixes environment overrides (BIDSFLOW_WORKERS).
	EnvPrefix = "BIDSFLOW"
)

//go:embed settings_schema.cue
var settingsSchema []byte

// Schema returns the embedded CUE schema for settings files.
func Schema() []byte {
	return settingsSchema
}

// ConfigDir returns the bidsflow directory under the user config directory.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(dir, AppName), nil
}

// loadWithOptions performs option-driven settings loading and reports the
// file it read ("" when only defaults and environment applied).
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Settings, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load settings canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultSettings()
	v.SetDefault("dataset_root", defaults.DatasetRoot)
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("broadcast_entity", defaults.BroadcastEntity)
	v.SetDefault("output.format", string(defaults.Output.Format))
	v.SetDefault("output.path", defaults.Output.Path)
	v.SetDefault("log.level", string(defaults.Log.Level))
	v.SetDefault("log.format", string(defaults.Log.Format))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath, err := locate(opts)
	if err != nil {
		return nil, "", err
	}
	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load settings").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the values match the settings schema ('bidsflow config schema')").
				Wrap(err).
				BuildError()
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, "", fmt.Errorf("failed to parse settings: %w", err)
	}

	lookup := opts.Getenv
	if lookup == nil {
		lookup = os.Getenv
	}
	if s.DatasetRoot, err = ExpandPath(s.DatasetRoot, lookup); err != nil {
		return nil, "", fmt.Errorf("dataset_root: %w", err)
	}
	if s.Output.Path, err = ExpandPath(s.Output.Path, lookup); err != nil {
		return nil, "", fmt.Errorf("output.path: %w", err)
	}

	if valid, errs := s.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate settings").
			WithResource(resolvedPath).
			WithSuggestion("Run 'bidsflow config show' to see the effective settings").
			WithSuggestion("Check BIDSFLOW_* environment variables for stale overrides").
			Wrap(errs[0]).
			BuildError()
	}

	return &s, resolvedPath, nil
}

// locate picks the settings file: an explicit path must exist, otherwise the
// config directory and then the working directory are tried.
func locate(opts LoadOptions) (string, error) {
	if opts.SettingsPath != "" {
		if !fileExists(opts.SettingsPath) {
			return "", issue.NewErrorContext().
				WithOperation("load settings").
				WithResource(opts.SettingsPath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Omit --settings to use the defaults").
				Wrap(fmt.Errorf("settings file not found: %s", opts.SettingsPath)).
				BuildError()
		}
		return opts.SettingsPath, nil
	}

	dir := opts.ConfigDirPath
	if dir == "" {
		var err error
		if dir, err = ConfigDir(); err != nil {
			// No home directory is not fatal; fall through to the working directory.
			dir = ""
		}
	}
	if dir != "" {
		if p := filepath.Join(dir, SettingsFileName); fileExists(p) {
			return p, nil
		}
	}
	if !opts.SkipWorkingDir && fileExists(SettingsFileName) {
		return SettingsFileName, nil
	}
	return "", nil
}

// loadCUEIntoViper validates a CUE settings file against #Settings and merges
// its contents into Viper. Concrete(false) is used because every field is
// optional; Viper supplies the defaults.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read settings file: %w", err)
	}

	res, err := cueutil.Parse(settingsSchema, data, "#Settings",
		cueutil.WithFilename(path),
		cueutil.WithFormat(cueutil.FormatCUE),
		cueutil.WithConcrete(false),
	)
	if err != nil {
		return err
	}

	m, err := cueutil.DecodeMap(res.Unified)
	if err != nil {
		return cueutil.FormatError(err, path)
	}

	if err := v.MergeConfigMap(m); err != nil {
		return fmt.Errorf("failed to merge settings: %w", err)
	}
	return nil
}

// ExpandPath performs shell parameter expansion ($HOME, ${VAR:-x}) on p.
// A leading "~/" is replaced by $HOME.
func ExpandPath(p string, env func(string) string) (string, error) {
	if p == "" {
		return "", nil
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		p = "$HOME" + p[1:]
	}
	out, err := shell.Expand(p, env)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", p, err)
	}
	return out, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// GenerateCUE renders settings as a CUE document accepted by the schema.
func GenerateCUE(s *Settings) string {
	var sb strings.Builder

	sb.WriteString("// bidsflow settings\n\n")
	if s.DatasetRoot != "" {
		fmt.Fprintf(&sb, "dataset_root: %q\n", s.DatasetRoot)
	}
	fmt.Fprintf(&sb, "workers: %d\n", s.Workers)
	fmt.Fprintf(&sb, "broadcast_entity: %q\n", s.BroadcastEntity)

	sb.WriteString("\noutput: {\n")
	fmt.Fprintf(&sb, "\tformat: %q\n", s.Output.Format)
	if s.Output.Path != "" {
		fmt.Fprintf(&sb, "\tpath: %q\n", s.Output.Path)
	}
	sb.WriteString("}\n")

	sb.WriteString("\nlog: {\n")
	fmt.Fprintf(&sb, "\tlevel: %q\n", s.Log.Level)
	fmt.Fprintf(&sb, "\tformat: %q\n", s.Log.Format)
	sb.WriteString("}\n")

	return sb.String()
}
