// SPDX-License-Identifier: MPL-2.0

// Package nix wraps the nix CLI behind a narrow Builder capability, so the
// compare/patch core never depends on the concrete command-line shape of
// the build engine. Build errors are relayed, not interpreted: evaluation
// and build failures belong to nix itself.
package nix

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

type (
	// ArtifactSet is the list of store paths a build produced.
	ArtifactSet struct {
		Paths []string
	}

	// Builder is the capability interface the pipeline consumes.
	Builder interface {
		// Build realizes one installable (e.g. ".#linux-t2-lts") and
		// returns the resulting store paths.
		Build(ctx context.Context, installable string) (ArtifactSet, error)
		// FlakeCheck asks the build engine to validate the flake in dir.
		FlakeCheck(ctx context.Context, dir string) error
		// UpdateInput advances the named flake input's lock entry.
		UpdateInput(ctx context.Context, dir, input string) error
	}

	// CLI implements Builder by invoking the nix binary.
	CLI struct {
		bin       string
		stderr    io.Writer
		extraArgs []string
	}

	// Option configures a CLI during construction.
	Option func(*CLI)
)

// WithBinary overrides the nix binary path, primarily for tests.
func WithBinary(bin string) Option {
	return func(c *CLI) {
		if bin != "" {
			c.bin = bin
		}
	}
}

// WithStderr directs nix's diagnostic output, which otherwise goes to the
// process stderr.
func WithStderr(w io.Writer) Option {
	return func(c *CLI) {
		if w != nil {
			c.stderr = w
		}
	}
}

// WithExtraArgs appends additional arguments to every nix invocation
// (e.g. "--accept-flake-config").
func WithExtraArgs(args ...string) Option {
	return func(c *CLI) {
		c.extraArgs = append(c.extraArgs, args...)
	}
}

// NewCLI creates a Builder backed by the nix binary on PATH.
func NewCLI(opts ...Option) *CLI {
	c := &CLI{
		bin:    "nix",
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Build runs `nix build <installable> --print-out-paths --no-link` and
// parses the produced store paths from stdout.
func (c *CLI) Build(ctx context.Context, installable string) (ArtifactSet, error) {
	args := append([]string{"build", installable, "--print-out-paths", "--no-link"}, c.extraArgs...)

	out, err := c.run(ctx, "", args)
	if err != nil {
		return ArtifactSet{}, fmt.Errorf("building %s: %w", installable, err)
	}

	set := ArtifactSet{Paths: parseOutPaths(out)}
	if len(set.Paths) == 0 {
		return ArtifactSet{}, fmt.Errorf("building %s: nix reported no output paths", installable)
	}
	return set, nil
}

// FlakeCheck runs `nix flake check` in dir. It is the delegated validation
// step after a patch: the patcher itself never parses Nix.
func (c *CLI) FlakeCheck(ctx context.Context, dir string) error {
	args := append([]string{"flake", "check", "--no-build"}, c.extraArgs...)
	if _, err := c.run(ctx, dir, args); err != nil {
		return fmt.Errorf("flake check: %w", err)
	}
	return nil
}

// UpdateInput runs `nix flake update <input>` in dir.
func (c *CLI) UpdateInput(ctx context.Context, dir, input string) error {
	args := append([]string{"flake", "update", input}, c.extraArgs...)
	if _, err := c.run(ctx, dir, args); err != nil {
		return fmt.Errorf("updating flake input %s: %w", input, err)
	}
	return nil
}

// run resolves the binary, executes it, and returns captured stdout.
func (c *CLI) run(ctx context.Context, dir string, args []string) ([]byte, error) {
	bin, err := exec.LookPath(c.bin)
	if err != nil {
		return nil, fmt.Errorf("finding %s on path: %w", c.bin, err)
	}

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = c.stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("nix %s: %w", strings.Join(args, " "), err)
	}
	return stdout.Bytes(), nil
}

// parseOutPaths extracts store paths from `--print-out-paths` output, one
// per line.
func parseOutPaths(out []byte) []string {
	var paths []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "/nix/store/") {
			paths = append(paths, line)
		}
	}
	return paths
}
