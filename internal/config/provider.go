// SPDX-License-Identifier: MPL-2.0

package config

import "context"

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	ConfigFilePath string
	// ConfigDirPath overrides the config directory lookup when set.
	ConfigDirPath string
}

// Provider loads configuration from explicit options and reports which
// file, if any, it was read from (empty means built-in defaults). The
// package-level Load and Get accessors route through a Provider, so tests
// can substitute an in-memory source.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Config, string, error)
}

// fileProvider is the production Provider: viper defaults overlaid with
// the CUE config file resolved from opts, the config directory, or the
// working directory.
type fileProvider struct{}

// NewProvider creates the file-backed configuration provider.
func NewProvider() Provider {
	return fileProvider{}
}

// Load reads configuration from the requested source.
func (fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	return loadWithOptions(ctx, opts)
}
