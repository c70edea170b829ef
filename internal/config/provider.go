// SPDX-License-Identifier: MPL-2.0

package config

import "context"

// LoadOptions defines explicit settings loading inputs.
type LoadOptions struct {
	// SettingsPath forces loading from a specific settings file when set.
	SettingsPath string
	// ConfigDirPath overrides the config directory lookup when set.
	ConfigDirPath string
	// SkipWorkingDir disables the ./bidsflow.cue fallback.
	SkipWorkingDir bool
	// Getenv resolves variables during path expansion (defaults to os.Getenv).
	Getenv func(string) string
}

// Provider loads settings from explicit options.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Settings, error)
}

type fileProvider struct{}

// NewProvider creates a settings provider.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads settings from the requested source.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Settings, error) {
	s, _, err := loadWithOptions(ctx, opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// LoadWithSource is Load that also reports the settings file used.
func LoadWithSource(ctx context.Context, opts LoadOptions) (*Settings, string, error) {
	return loadWithOptions(ctx, opts)
}
