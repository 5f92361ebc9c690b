// SPDX-License-Identifier: MPL-2.0

package nix

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
)

// writeFakeNix creates a shell script standing in for the nix binary. It
// records its arguments and prints the given lines on stdout.
func writeFakeNix(t *testing.T, stdoutLines []string, exitCode int) (bin, argsFile string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake nix script requires a POSIX shell")
	}

	dir := t.TempDir()
	argsFile = filepath.Join(dir, "args")
	bin = filepath.Join(dir, "nix")

	var sb strings.Builder
	sb.WriteString("#!/bin/sh\n")
	sb.WriteString("printf '%s\\n' \"$@\" > " + argsFile + "\n")
	for _, line := range stdoutLines {
		sb.WriteString("echo '" + line + "'\n")
	}
	sb.WriteString("exit " + strconv.Itoa(exitCode) + "\n")

	if err := os.WriteFile(bin, []byte(sb.String()), 0o755); err != nil {
		t.Fatalf("writing fake nix: %v", err)
	}
	return bin, argsFile
}

func readArgs(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading recorded args: %v", err)
	}
	return string(data)
}

func TestBuild_ParsesOutPaths(t *testing.T) {
	t.Parallel()

	bin, argsFile := writeFakeNix(t, []string{
		"/nix/store/aaa-linux-t2-6.6.63",
		"/nix/store/bbb-linux-t2-6.6.63-dev",
	}, 0)

	c := NewCLI(WithBinary(bin), WithStderr(io.Discard))
	set, err := c.Build(context.Background(), ".#linux-t2-lts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(set.Paths) != 2 {
		t.Fatalf("got %d paths, want 2: %v", len(set.Paths), set.Paths)
	}
	if set.Paths[0] != "/nix/store/aaa-linux-t2-6.6.63" {
		t.Errorf("got first path %q", set.Paths[0])
	}

	args := readArgs(t, argsFile)
	for _, want := range []string{"build", ".#linux-t2-lts", "--print-out-paths", "--no-link"} {
		if !strings.Contains(args, want) {
			t.Errorf("recorded args %q missing %q", args, want)
		}
	}
}

func TestBuild_NoOutput(t *testing.T) {
	t.Parallel()

	bin, _ := writeFakeNix(t, nil, 0)

	c := NewCLI(WithBinary(bin), WithStderr(io.Discard))
	if _, err := c.Build(context.Background(), ".#linux-t2-lts"); err == nil {
		t.Fatal("expected error when nix reports no output paths")
	}
}

func TestBuild_NonZeroExit(t *testing.T) {
	t.Parallel()

	bin, _ := writeFakeNix(t, nil, 1)

	c := NewCLI(WithBinary(bin), WithStderr(io.Discard))
	if _, err := c.Build(context.Background(), ".#linux-t2-lts"); err == nil {
		t.Fatal("expected build failure to be relayed")
	}
}

func TestUpdateInput_Args(t *testing.T) {
	t.Parallel()

	bin, argsFile := writeFakeNix(t, nil, 0)

	c := NewCLI(WithBinary(bin), WithStderr(io.Discard))
	if err := c.UpdateInput(context.Background(), t.TempDir(), "nixos-hardware"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	args := readArgs(t, argsFile)
	for _, want := range []string{"flake", "update", "nixos-hardware"} {
		if !strings.Contains(args, want) {
			t.Errorf("recorded args %q missing %q", args, want)
		}
	}
}

func TestFlakeCheck_Args(t *testing.T) {
	t.Parallel()

	bin, argsFile := writeFakeNix(t, nil, 0)

	c := NewCLI(WithBinary(bin), WithStderr(io.Discard))
	if err := c.FlakeCheck(context.Background(), t.TempDir()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	args := readArgs(t, argsFile)
	for _, want := range []string{"flake", "check", "--no-build"} {
		if !strings.Contains(args, want) {
			t.Errorf("recorded args %q missing %q", args, want)
		}
	}
}

func TestWithExtraArgs(t *testing.T) {
	t.Parallel()

	bin, argsFile := writeFakeNix(t, []string{"/nix/store/xxx-out"}, 0)

	c := NewCLI(WithBinary(bin), WithStderr(io.Discard), WithExtraArgs("--accept-flake-config"))
	if _, err := c.Build(context.Background(), ".#x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(readArgs(t, argsFile), "--accept-flake-config") {
		t.Error("extra args not forwarded")
	}
}

func TestParseOutPaths_IgnoresNoise(t *testing.T) {
	t.Parallel()

	out := "warning: something\n/nix/store/aaa-out\n\n  /nix/store/bbb-out  \nnot-a-path\n"
	got := parseOutPaths([]byte(out))
	if len(got) != 2 || got[0] != "/nix/store/aaa-out" || got[1] != "/nix/store/bbb-out" {
		t.Fatalf("got %v", got)
	}
}
