// SPDX-License-Identifier: MPL-2.0

package hooks

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRun_ExposesHookEnv(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	r := NewRunner(WithStdIO(&out, &out), WithEnviron([]string{"PATH=/usr/bin:/bin"}))

	env := Env{Variant: "lts", OldVersion: "6.6.62", NewVersion: "6.6.63", FlakePath: "flake.nix"}
	err := r.Run(context.Background(), "post-update",
		`echo "$T2_VARIANT $T2_OLD_VERSION -> $T2_NEW_VERSION ($T2_FLAKE)"`, env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "lts 6.6.62 -> 6.6.63 (flake.nix)" {
		t.Errorf("got %q", got)
	}
}

func TestRun_EmptyScriptIsNoOp(t *testing.T) {
	t.Parallel()

	r := NewRunner()
	if err := r.Run(context.Background(), "post-update", "  \n", Env{}); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestRun_NonZeroExitReturnsHookError(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	r := NewRunner(WithStdIO(&out, &out))

	err := r.Run(context.Background(), "post-update", "exit 3", Env{})
	var hookErr *HookError
	if !errors.As(err, &hookErr) {
		t.Fatalf("expected HookError, got %v", err)
	}
	if hookErr.Code != 3 || hookErr.Name != "post-update" {
		t.Errorf("got %+v", hookErr)
	}
}

func TestRun_ParseErrorIsReported(t *testing.T) {
	t.Parallel()

	r := NewRunner()
	err := r.Run(context.Background(), "post-update", "if true; then", Env{})
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "post-update") {
		t.Errorf("error should name the hook: %v", err)
	}
}

func TestRun_RespectsWorkingDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var out bytes.Buffer
	r := NewRunner(WithDir(dir), WithStdIO(&out, &out))

	if err := r.Run(context.Background(), "post-update", "echo ok > marker", Env{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "marker")); err != nil {
		t.Errorf("marker not written in hook dir: %v", err)
	}
}
