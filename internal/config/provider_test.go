// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestProvider_Load_ExplicitFile(t *testing.T) {
	defer Reset()

	path := filepath.Join(t.TempDir(), "config.cue")
	if err := os.WriteFile(path, []byte(`cache: {name: "provider-cache"}`), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, loadedFrom, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Cache.Name != "provider-cache" {
		t.Errorf("Cache.Name = %q", cfg.Cache.Name)
	}
	if loadedFrom != path {
		t.Errorf("loaded from %q, want %q", loadedFrom, path)
	}
}

func TestProvider_Load_ExplicitDir(t *testing.T) {
	defer Reset()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.cue"), []byte(`flake: "./other/flake.nix"`), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, _, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Flake != "./other/flake.nix" {
		t.Errorf("Flake = %q", cfg.Flake)
	}
}

func TestProvider_Load_CanceledContext(t *testing.T) {
	defer Reset()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := NewProvider().Load(ctx, LoadOptions{ConfigDirPath: t.TempDir()}); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

// staticProvider serves a fixed configuration, the way command tests
// inject settings without touching the filesystem.
type staticProvider struct {
	cfg *Config
}

func (p staticProvider) Load(context.Context, LoadOptions) (*Config, string, error) {
	return p.cfg, "", nil
}

func TestLoad_RoutesThroughProvider(t *testing.T) {
	defer Reset()

	orig := provider
	t.Cleanup(func() {
		provider = orig
		Reset()
	})

	injected := DefaultConfig()
	injected.Cache.Name = "injected-cache"
	provider = staticProvider{cfg: injected}

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Cache.Name != "injected-cache" {
		t.Errorf("Cache.Name = %q, want the injected provider's value", cfg.Cache.Name)
	}
	if got := Get(); got.Cache.Name != "injected-cache" {
		t.Errorf("Get() should serve the cached injected config, got %q", got.Cache.Name)
	}
}
