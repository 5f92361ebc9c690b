// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/SolidRhino/t2-kernel/internal/cueutil"
	"github.com/SolidRhino/t2-kernel/internal/issue"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "t2kernel"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the t2kernel configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	// Allow tests to override the config directory
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// FeedCacheDir returns the default directory for cached release feed
// responses, under the user cache directory.
func FeedCacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to get cache directory: %w", err)
	}
	return filepath.Join(cacheDir, AppName, "feed"), nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level cache state. Callers that want caching can wrap this function.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	// Set defaults
	defaults := DefaultConfig()
	v.SetDefault("flake", defaults.Flake)
	v.SetDefault("schedule", defaults.Schedule)
	v.SetDefault("feed.ttl", defaults.Feed.TTL)
	v.SetDefault("cache.name", defaults.Cache.Name)
	v.SetDefault("cache.exclude", defaults.Cache.Exclude)
	v.SetDefault("ui.color_scheme", defaults.UI.ColorScheme)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	resolvedPath := ""

	// If a custom config file path is set via --config flag, use it exclusively.
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file exists and is readable").
				WithSuggestion("Use 't2kernel config show' to see default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		if err := loadCUEIntoViper(v, opts.ConfigFilePath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("See 't2kernel config --help' for configuration options").
				Wrap(err).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		// Get config directory
		cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
		if err != nil {
			return nil, "", err
		}

		// Try to load CUE config file
		cuePath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
		if fileExists(cuePath) {
			if err := loadCUEIntoViper(v, cuePath); err != nil {
				return nil, "", issue.NewErrorContext().
					WithOperation("load configuration").
					WithResource(cuePath).
					WithSuggestion("Check that the file contains valid CUE syntax").
					WithSuggestion("Verify the configuration values match the expected schema").
					WithSuggestion("See 't2kernel config --help' for configuration options").
					Wrap(err).
					BuildError()
			}
			resolvedPath = cuePath
		} else {
			// Also check current directory
			localCuePath := ConfigFileName + "." + ConfigFileExt
			if fileExists(localCuePath) {
				if err := loadCUEIntoViper(v, localCuePath); err != nil {
					return nil, "", issue.NewErrorContext().
						WithOperation("load configuration").
						WithResource(localCuePath).
						WithSuggestion("Check that the file contains valid CUE syntax").
						WithSuggestion("Verify the configuration values match the expected schema").
						WithSuggestion("See 't2kernel config --help' for configuration options").
						Wrap(err).
						BuildError()
				}
				resolvedPath = localCuePath
			}
			// If no config file found, use defaults (no error)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	// Validate variant constraints that CUE cannot express:
	// unique names plus the per-kind field requirements.
	if err := validateVariants(cfg.Variants); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithSuggestion("Ensure each variant name is unique").
			WithSuggestion("Input variants need owner and repo; kernel variants must not carry them").
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// The decode target is map[string]any rather than Config: Viper merges the
// map on top of its defaults and env overrides, and the typed unmarshal
// happens once at the end of the load.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Concrete(false): config fields are optional, the defaults fill the gaps.
	res, err := cueutil.ParseAndDecodeString[map[string]any](configSchema, data, "#Config",
		cueutil.WithConcrete(false),
		cueutil.WithFilename(path),
	)
	if err != nil {
		return err
	}

	// Merge into Viper (preserves defaults, allows env overrides)
	if err := v.MergeConfigMap(*res.Value); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// validateVariants checks variant entries for constraints that CUE cannot
// express: all names must be unique, and the per-kind field requirements
// must hold (input variants need GitHub coordinates, kernel variants must
// not carry them).
func validateVariants(variants []VariantConfig) error {
	seen := make(map[string]int) // name -> index of first occurrence

	for i, v := range variants {
		if firstIdx, exists := seen[v.Name]; exists {
			return fmt.Errorf("variants[%d]: duplicate name %q (same as variants[%d])", i, v.Name, firstIdx)
		}
		seen[v.Name] = i

		if valid, errs := v.IsValid(); !valid {
			return fmt.Errorf("variants[%d]: %w", i, errs[0])
		}
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(cfgDir, 0o755)
}

// CreateDefaultConfig creates a default config file if it doesn't exist
func CreateDefaultConfig() error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		return nil // File exists
	}

	defaults := DefaultConfig()
	cueContent := GenerateCUE(defaults)

	if err := os.WriteFile(cfgPath, []byte(cueContent), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Save writes the current configuration to file
func Save(cfg *Config) error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)

	cueContent := GenerateCUE(cfg)

	if err := os.WriteFile(cfgPath, []byte(cueContent), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// t2kernel Configuration File\n")
	sb.WriteString("// See https://github.com/SolidRhino/t2-kernel for documentation.\n\n")

	sb.WriteString(fmt.Sprintf("flake: %q\n", cfg.Flake))
	if cfg.Lock != "" {
		sb.WriteString(fmt.Sprintf("lock: %q\n", cfg.Lock))
	}
	if cfg.NixBinary != "" {
		sb.WriteString(fmt.Sprintf("nix_binary: %q\n", cfg.NixBinary))
	}
	if cfg.CachixBinary != "" {
		sb.WriteString(fmt.Sprintf("cachix_binary: %q\n", cfg.CachixBinary))
	}
	if cfg.Schedule != "" {
		sb.WriteString(fmt.Sprintf("schedule: %q\n", cfg.Schedule))
	}

	// Feed
	sb.WriteString("\nfeed: {\n")
	if cfg.Feed.URL != "" {
		sb.WriteString(fmt.Sprintf("\turl: %q\n", cfg.Feed.URL))
	}
	if cfg.Feed.CacheDir != "" {
		sb.WriteString(fmt.Sprintf("\tcache_dir: %q\n", cfg.Feed.CacheDir))
	}
	if cfg.Feed.TTL != "" {
		sb.WriteString(fmt.Sprintf("\tttl: %q\n", cfg.Feed.TTL))
	}
	sb.WriteString("}\n")

	// Cache
	sb.WriteString("\ncache: {\n")
	sb.WriteString(fmt.Sprintf("\tname: %q\n", cfg.Cache.Name))
	if len(cfg.Cache.Exclude) > 0 {
		sb.WriteString("\texclude: [\n")
		for _, pattern := range cfg.Cache.Exclude {
			sb.WriteString(fmt.Sprintf("\t\t%q,\n", pattern))
		}
		sb.WriteString("\t]\n")
	}
	sb.WriteString("}\n")

	// Variants
	if len(cfg.Variants) > 0 {
		sb.WriteString("\nvariants: [\n")
		for _, v := range cfg.Variants {
			sb.WriteString(fmt.Sprintf("\t{name: %q, kind: %q", v.Name, v.Kind))
			if v.Series != "" {
				sb.WriteString(fmt.Sprintf(", series: %q", v.Series))
			}
			if v.Attr != "" {
				sb.WriteString(fmt.Sprintf(", attr: %q", v.Attr))
			}
			if v.URLTemplate != "" {
				sb.WriteString(fmt.Sprintf(", url_template: %q", v.URLTemplate))
			}
			if v.Owner != "" {
				sb.WriteString(fmt.Sprintf(", owner: %q", v.Owner))
			}
			if v.Repo != "" {
				sb.WriteString(fmt.Sprintf(", repo: %q", v.Repo))
			}
			if v.Branch != "" {
				sb.WriteString(fmt.Sprintf(", branch: %q", v.Branch))
			}
			sb.WriteString("},\n")
		}
		sb.WriteString("]\n")
	}

	// Hooks
	if cfg.Hooks.PostUpdate != "" {
		sb.WriteString("\nhooks: {\n")
		sb.WriteString(fmt.Sprintf("\tpost_update: %q\n", cfg.Hooks.PostUpdate))
		sb.WriteString("}\n")
	}

	// UI config
	sb.WriteString("\nui: {\n")
	sb.WriteString(fmt.Sprintf("\tcolor_scheme: %q\n", cfg.UI.ColorScheme))
	sb.WriteString(fmt.Sprintf("\tverbose: %v\n", cfg.UI.Verbose))
	sb.WriteString("}\n")

	return sb.String()
}
