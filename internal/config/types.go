// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// VariantKindKernel tracks a kernel release feed (kernel.org releases.json).
	VariantKindKernel VariantKind = "kernel"
	// VariantKindInput tracks a flake input against a GitHub branch head.
	VariantKindInput VariantKind = "input"

	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"
)

var (
	// ErrInvalidVariantKind is returned when a VariantKind value is not recognized.
	ErrInvalidVariantKind = errors.New("invalid variant kind")
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidVariantConfig is the sentinel error wrapped by InvalidVariantConfigError.
	ErrInvalidVariantConfig = errors.New("invalid variant config")
	// ErrInvalidCacheConfig is the sentinel error wrapped by InvalidCacheConfigError.
	ErrInvalidCacheConfig = errors.New("invalid cache config")
	// ErrInvalidUIConfig is the sentinel error wrapped by InvalidUIConfigError.
	ErrInvalidUIConfig = errors.New("invalid UI config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// VariantKind selects the update source for a tracked variant.
	// Defined locally to avoid coupling config to internal/checker;
	// the pipeline casts to checker.Kind at the boundary.
	VariantKind string

	// InvalidVariantKindError is returned when a VariantKind value is not recognized.
	// It wraps ErrInvalidVariantKind for errors.Is() compatibility.
	InvalidVariantKindError struct {
		Value VariantKind
	}

	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidVariantConfigError aggregates field errors for one variant entry.
	InvalidVariantConfigError struct {
		Name        string
		FieldErrors []error
	}

	// InvalidCacheConfigError aggregates field errors for the cache section.
	InvalidCacheConfigError struct {
		FieldErrors []error
	}

	// InvalidUIConfigError aggregates field errors for the UI section.
	InvalidUIConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError aggregates all section errors for a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// VariantConfig describes one tracked pin in the flake.
	VariantConfig struct {
		// Name is the attribute name of the variant block in flake.nix
		// (for kind "kernel") or the flake input name (for kind "input").
		Name string `json:"name" mapstructure:"name"`
		// Kind selects the update source: "kernel" or "input".
		Kind VariantKind `json:"kind" mapstructure:"kind"`
		// Series restricts kernel updates to a version prefix (e.g., "6.6").
		// Empty means track the latest stable release.
		Series string `json:"series,omitempty" mapstructure:"series"`
		// Attr overrides the nix installable attribute built for this variant.
		// Defaults to ".#<name>" when empty.
		Attr string `json:"attr,omitempty" mapstructure:"attr"`
		// URLTemplate overrides the source URL written into the flake.
		// {version} and {major} are substituted. When empty, the URL from
		// the release feed is used.
		URLTemplate string `json:"url_template,omitempty" mapstructure:"url_template"`
		// Owner is the GitHub owner for kind "input".
		Owner string `json:"owner,omitempty" mapstructure:"owner"`
		// Repo is the GitHub repository for kind "input".
		Repo string `json:"repo,omitempty" mapstructure:"repo"`
		// Branch is the tracked branch for kind "input" (default "master").
		Branch string `json:"branch,omitempty" mapstructure:"branch"`
	}

	// CacheConfig configures the binary cache artifacts are pushed to.
	CacheConfig struct {
		// Name is the cachix cache name.
		Name string `json:"name" mapstructure:"name"`
		// Exclude lists glob patterns for store paths that must not be pushed.
		Exclude []string `json:"exclude,omitempty" mapstructure:"exclude"`
	}

	// FeedConfig configures the kernel.org release feed.
	FeedConfig struct {
		// URL overrides the release feed endpoint.
		URL string `json:"url,omitempty" mapstructure:"url"`
		// CacheDir stores cached feed responses. Empty disables caching.
		CacheDir string `json:"cache_dir,omitempty" mapstructure:"cache_dir"`
		// TTL is how long a cached feed response stays fresh (e.g., "15m").
		TTL string `json:"ttl,omitempty" mapstructure:"ttl"`
	}

	// HooksConfig holds user shell snippets run at pipeline milestones.
	HooksConfig struct {
		// PostUpdate runs after a variant pin has been rewritten.
		PostUpdate string `json:"post_update,omitempty" mapstructure:"post_update"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables verbose output
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}

	// Config holds the application configuration.
	Config struct {
		// Flake is the path to the flake.nix holding the version pins.
		Flake string `json:"flake" mapstructure:"flake"`
		// Lock is the path to flake.lock. Defaults to the sibling of Flake.
		Lock string `json:"lock,omitempty" mapstructure:"lock"`
		// NixBinary overrides the nix executable used for builds.
		NixBinary string `json:"nix_binary,omitempty" mapstructure:"nix_binary"`
		// CachixBinary overrides the cachix executable used for pushes.
		CachixBinary string `json:"cachix_binary,omitempty" mapstructure:"cachix_binary"`
		// Schedule is the cron expression used by the watch command.
		Schedule string `json:"schedule,omitempty" mapstructure:"schedule"`
		// Feed configures the kernel.org release feed.
		Feed FeedConfig `json:"feed" mapstructure:"feed"`
		// Cache configures the binary cache.
		Cache CacheConfig `json:"cache" mapstructure:"cache"`
		// Variants lists the tracked pins.
		Variants []VariantConfig `json:"variants" mapstructure:"variants"`
		// Hooks holds user shell snippets.
		Hooks HooksConfig `json:"hooks" mapstructure:"hooks"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}
)

// Error implements the error interface for InvalidVariantKindError.
func (e *InvalidVariantKindError) Error() string {
	return fmt.Sprintf("invalid variant kind %q (valid: kernel, input)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidVariantKindError) Unwrap() error {
	return ErrInvalidVariantKind
}

// String returns the string representation of the VariantKind.
func (k VariantKind) String() string { return string(k) }

// IsValid returns whether the VariantKind is one of the defined kinds,
// and a list of validation errors if it is not.
func (k VariantKind) IsValid() (bool, []error) {
	switch k {
	case VariantKindKernel, VariantKindInput:
		return true, nil
	default:
		return false, []error{&InvalidVariantKindError{Value: k}}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error {
	return ErrInvalidColorScheme
}

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// IsValid returns whether the VariantConfig has valid fields. It validates the
// kind and the cross-field requirements CUE cannot express: kind "input" needs
// owner and repo, kind "kernel" must not carry GitHub coordinates.
func (v VariantConfig) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(v.Name) == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if valid, fieldErrs := v.Kind.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	switch v.Kind {
	case VariantKindInput:
		if v.Owner == "" || v.Repo == "" {
			errs = append(errs, fmt.Errorf("variant kind %q requires owner and repo", v.Kind))
		}
	case VariantKindKernel:
		if v.Owner != "" || v.Repo != "" || v.Branch != "" {
			errs = append(errs, fmt.Errorf("variant kind %q does not use owner/repo/branch", v.Kind))
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidVariantConfigError{Name: v.Name, FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidVariantConfigError.
func (e *InvalidVariantConfigError) Error() string {
	return fmt.Sprintf("invalid variant %q: %d field error(s)", e.Name, len(e.FieldErrors))
}

// Unwrap returns ErrInvalidVariantConfig for errors.Is() compatibility.
func (e *InvalidVariantConfigError) Unwrap() error { return ErrInvalidVariantConfig }

// IsValid returns whether the CacheConfig has valid fields.
// An empty cache name is valid and disables pushing.
func (c CacheConfig) IsValid() (bool, []error) {
	var errs []error
	if c.Name != strings.TrimSpace(c.Name) {
		errs = append(errs, errors.New("cache name must not carry surrounding whitespace"))
	}
	for _, pattern := range c.Exclude {
		if strings.TrimSpace(pattern) == "" {
			errs = append(errs, errors.New("exclude patterns must not be empty"))
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidCacheConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidCacheConfigError.
func (e *InvalidCacheConfigError) Error() string {
	return fmt.Sprintf("invalid cache config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidCacheConfig for errors.Is() compatibility.
func (e *InvalidCacheConfigError) Unwrap() error { return ErrInvalidCacheConfig }

// IsValid returns whether the UIConfig has valid fields.
// It delegates to ColorScheme.IsValid(); bool fields need no validation.
func (c UIConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidUIConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidUIConfigError.
func (e *InvalidUIConfigError) Error() string {
	return fmt.Sprintf("invalid UI config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidUIConfig for errors.Is() compatibility.
func (e *InvalidUIConfigError) Unwrap() error { return ErrInvalidUIConfig }

// IsValid returns whether the Config has valid fields across all sections.
func (c *Config) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(c.Flake) == "" {
		errs = append(errs, errors.New("flake path must not be empty"))
	}
	for _, v := range c.Variants {
		if valid, fieldErrs := v.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	if valid, fieldErrs := c.Cache.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// LockPath resolves the flake.lock path, defaulting to the sibling of Flake.
func (c *Config) LockPath() string {
	if c.Lock != "" {
		return c.Lock
	}
	return strings.TrimSuffix(c.Flake, ".nix") + ".lock"
}

// Variant looks up a variant entry by name.
func (c *Config) Variant(name string) (VariantConfig, bool) {
	for _, v := range c.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return VariantConfig{}, false
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Flake: "./flake.nix",
		Feed: FeedConfig{
			URL: "", // Will use the kernel.org feed if empty
			TTL: "15m",
		},
		Cache: CacheConfig{
			Name:    "t2-kernel",
			Exclude: []string{},
		},
		Variants: []VariantConfig{
			{Name: "lts", Kind: VariantKindKernel, Series: "6.6"},
			{Name: "latest", Kind: VariantKindKernel},
			{Name: "nixos-hardware", Kind: VariantKindInput, Owner: "NixOS", Repo: "nixos-hardware", Branch: "master"},
		},
		Schedule: "0 6 * * *",
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
		},
	}
}
