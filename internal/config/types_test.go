// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"testing"
)

func TestVariantKind_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind    VariantKind
		want    bool
		wantErr bool
	}{
		{VariantKindKernel, true, false},
		{VariantKindInput, true, false},
		{"", false, true},
		{"tarball", false, true},
		{"KERNEL", false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			t.Parallel()
			isValid, errs := tt.kind.IsValid()
			if isValid != tt.want {
				t.Errorf("VariantKind(%q).IsValid() = %v, want %v", tt.kind, isValid, tt.want)
			}
			if tt.wantErr {
				if len(errs) == 0 {
					t.Fatalf("VariantKind(%q).IsValid() returned no errors, want error", tt.kind)
				}
				if !errors.Is(errs[0], ErrInvalidVariantKind) {
					t.Errorf("error should wrap ErrInvalidVariantKind, got: %v", errs[0])
				}
			} else if len(errs) > 0 {
				t.Errorf("VariantKind(%q).IsValid() returned unexpected errors: %v", tt.kind, errs)
			}
		})
	}
}

func TestColorScheme_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		scheme  ColorScheme
		want    bool
		wantErr bool
	}{
		{ColorSchemeAuto, true, false},
		{ColorSchemeDark, true, false},
		{ColorSchemeLight, true, false},
		{"", false, true},
		{"solarized", false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.scheme), func(t *testing.T) {
			t.Parallel()
			isValid, errs := tt.scheme.IsValid()
			if isValid != tt.want {
				t.Errorf("ColorScheme(%q).IsValid() = %v, want %v", tt.scheme, isValid, tt.want)
			}
			if tt.wantErr {
				if len(errs) == 0 {
					t.Fatalf("ColorScheme(%q).IsValid() returned no errors, want error", tt.scheme)
				}
				if !errors.Is(errs[0], ErrInvalidColorScheme) {
					t.Errorf("error should wrap ErrInvalidColorScheme, got: %v", errs[0])
				}
			} else if len(errs) > 0 {
				t.Errorf("ColorScheme(%q).IsValid() returned unexpected errors: %v", tt.scheme, errs)
			}
		})
	}
}

func TestVariantConfig_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		variant VariantConfig
		want    bool
	}{
		{
			name:    "kernel with series",
			variant: VariantConfig{Name: "lts", Kind: VariantKindKernel, Series: "6.6"},
			want:    true,
		},
		{
			name:    "kernel tracking latest",
			variant: VariantConfig{Name: "latest", Kind: VariantKindKernel},
			want:    true,
		},
		{
			name:    "input with coordinates",
			variant: VariantConfig{Name: "nixos-hardware", Kind: VariantKindInput, Owner: "NixOS", Repo: "nixos-hardware", Branch: "master"},
			want:    true,
		},
		{
			name:    "empty name",
			variant: VariantConfig{Kind: VariantKindKernel},
			want:    false,
		},
		{
			name:    "input missing repo",
			variant: VariantConfig{Name: "hw", Kind: VariantKindInput, Owner: "NixOS"},
			want:    false,
		},
		{
			name:    "kernel with branch",
			variant: VariantConfig{Name: "lts", Kind: VariantKindKernel, Branch: "master"},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			isValid, errs := tt.variant.IsValid()
			if isValid != tt.want {
				t.Errorf("IsValid() = %v, want %v (errs: %v)", isValid, tt.want, errs)
			}
			if !tt.want {
				if len(errs) == 0 {
					t.Fatal("invalid variant should return errors")
				}
				if !errors.Is(errs[0], ErrInvalidVariantConfig) {
					t.Errorf("error should wrap ErrInvalidVariantConfig, got: %v", errs[0])
				}
			}
		})
	}
}

func TestConfig_IsValid_AggregatesSections(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Flake: "./flake.nix",
		Cache: CacheConfig{Name: "t2-kernel", Exclude: []string{" "}},
		UI:    UIConfig{ColorScheme: "neon"},
		Variants: []VariantConfig{
			{Name: "", Kind: VariantKindKernel},
		},
	}

	isValid, errs := cfg.IsValid()
	if isValid {
		t.Fatal("config with three bad sections should be invalid")
	}
	if len(errs) != 1 {
		t.Fatalf("expected one aggregate error, got %d", len(errs))
	}
	if !errors.Is(errs[0], ErrInvalidConfig) {
		t.Errorf("error should wrap ErrInvalidConfig, got: %v", errs[0])
	}

	var aggregate *InvalidConfigError
	if !errors.As(errs[0], &aggregate) {
		t.Fatalf("expected *InvalidConfigError, got %T", errs[0])
	}
	if len(aggregate.FieldErrors) != 3 {
		t.Errorf("expected 3 section errors, got %d: %v", len(aggregate.FieldErrors), aggregate.FieldErrors)
	}
}
