// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"sync"
)

// Package-level cache state. Commands resolve configuration once per
// process; tests reset it between cases via Reset.
var (
	mu sync.RWMutex

	// configDirOverride allows tests and flags to override the config directory.
	// This is necessary because os.UserHomeDir() doesn't reliably respect
	// the HOME environment variable on all platforms (e.g., macOS in CI).
	configDirOverride string

	// configFilePathOverride forces loading from a specific file (--config flag).
	configFilePathOverride string

	cached      *Config
	cachedPath  string
	lastLoadErr error

	// provider is the configuration source behind Load and Get.
	// Package-level so tests can substitute an in-memory implementation.
	provider Provider = NewProvider()
)

// Load reads the configuration fresh, honoring any overrides, and caches
// the result for Get.
func Load(ctx context.Context) (*Config, error) {
	mu.Lock()
	defer mu.Unlock()

	cfg, path, err := provider.Load(ctx, LoadOptions{
		ConfigFilePath: configFilePathOverride,
	})
	if err != nil {
		lastLoadErr = err
		return nil, err
	}

	cached = cfg
	cachedPath = path
	lastLoadErr = nil
	return cfg, nil
}

// Get returns the cached configuration, loading it on first use. When
// loading fails the defaults are returned and the error is retrievable
// via LastLoadError.
func Get() *Config {
	mu.RLock()
	if cached != nil {
		cfg := cached
		mu.RUnlock()
		return cfg
	}
	mu.RUnlock()

	cfg, err := Load(context.Background())
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// LoadedPath returns the path of the config file backing the cached
// configuration, or "" when defaults are in effect.
func LoadedPath() string {
	mu.RLock()
	defer mu.RUnlock()
	return cachedPath
}

// LastLoadError returns the error from the most recent load attempt, or
// nil when it succeeded.
func LastLoadError() error {
	mu.RLock()
	defer mu.RUnlock()
	return lastLoadErr
}

// Reset clears overrides and cached state. Call from test cleanup to
// restore defaults.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	configDirOverride = ""
	configFilePathOverride = ""
	cached = nil
	cachedPath = ""
	lastLoadErr = nil
}

// SetConfigDirOverride sets a custom config directory path.
// This is primarily intended for testing to bypass os.UserHomeDir() which
// doesn't reliably respect the HOME env var on all platforms (e.g., macOS in CI).
func SetConfigDirOverride(dir string) {
	mu.Lock()
	defer mu.Unlock()
	configDirOverride = dir
	cached = nil
	cachedPath = ""
}

// SetConfigFilePathOverride forces loading from a specific config file and
// invalidates the cache.
func SetConfigFilePathOverride(path string) {
	mu.Lock()
	defer mu.Unlock()
	configFilePathOverride = path
	cached = nil
	cachedPath = ""
}
