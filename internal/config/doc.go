// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/t2kernel/config.cue (or XDG equivalent on Linux,
// ~/Library/Application Support/t2kernel/config.cue on macOS). The package provides
// type-safe configuration access covering the flake location, the tracked variants,
// the release feed, the binary cache, hooks, and UI settings.
//
// Configuration validation is performed against a CUE schema (config_schema.cue) to ensure
// type safety and provide clear error messages for invalid configurations.
package config
