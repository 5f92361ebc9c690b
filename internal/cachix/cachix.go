// SPDX-License-Identifier: MPL-2.0

// Package cachix wraps the cachix CLI behind a narrow Cache capability.
// Auth is owned by cachix itself via CACHIX_AUTH_TOKEN; this package only
// refuses early when the credential is plainly absent. Excluded path
// patterns (source tarballs and derivation files) are filtered out before
// anything is handed to the CLI.
package cachix

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/SolidRhino/t2-kernel/internal/nix"
)

// AuthTokenEnv is the environment variable the cachix CLI reads its write
// credential from.
const AuthTokenEnv = "CACHIX_AUTH_TOKEN"

var (
	// ErrNoAuthToken is returned when the cache credential is not present
	// in the environment.
	ErrNoAuthToken = errors.New("cachix auth token not set")

	// ErrNoCacheName is returned when no cache name was configured.
	ErrNoCacheName = errors.New("cachix cache name not set")
)

type (
	// Cache is the capability interface the pipeline consumes.
	Cache interface {
		// Push uploads the artifact set, minus excluded paths.
		Push(ctx context.Context, set nix.ArtifactSet) error
	}

	// CLI implements Cache by invoking the cachix binary.
	CLI struct {
		bin       string
		cacheName string
		exclude   []string
		stderr    io.Writer
		lookupEnv func(string) (string, bool) // test seam
	}

	// Option configures a CLI during construction.
	Option func(*CLI)
)

// WithBinary overrides the cachix binary path, primarily for tests.
func WithBinary(bin string) Option {
	return func(c *CLI) {
		if bin != "" {
			c.bin = bin
		}
	}
}

// WithExclude sets shell-style patterns for store paths that must never be
// uploaded (matched against the path base name).
func WithExclude(patterns ...string) Option {
	return func(c *CLI) {
		c.exclude = append(c.exclude, patterns...)
	}
}

// WithStderr directs cachix's diagnostic output.
func WithStderr(w io.Writer) Option {
	return func(c *CLI) {
		if w != nil {
			c.stderr = w
		}
	}
}

// WithEnvLookup overrides environment lookup, for tests.
func WithEnvLookup(fn func(string) (string, bool)) Option {
	return func(c *CLI) {
		if fn != nil {
			c.lookupEnv = fn
		}
	}
}

// NewCLI creates a Cache that pushes to the named cachix cache.
func NewCLI(cacheName string, opts ...Option) *CLI {
	c := &CLI{
		bin:       "cachix",
		cacheName: cacheName,
		stderr:    os.Stderr,
		lookupEnv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Push uploads the artifact set via `cachix push <cache>`, store paths on
// stdin. Excluded paths are filtered out first; when nothing survives the
// filter the push is a no-op.
func (c *CLI) Push(ctx context.Context, set nix.ArtifactSet) error {
	if c.cacheName == "" {
		return ErrNoCacheName
	}
	if token, ok := c.lookupEnv(AuthTokenEnv); !ok || token == "" {
		return fmt.Errorf("%w: export %s", ErrNoAuthToken, AuthTokenEnv)
	}

	paths := FilterPaths(set.Paths, c.exclude)
	if len(paths) == 0 {
		return nil
	}

	bin, err := exec.LookPath(c.bin)
	if err != nil {
		return fmt.Errorf("finding %s on path: %w", c.bin, err)
	}

	cmd := exec.CommandContext(ctx, bin, "push", c.cacheName)
	cmd.Stdin = strings.NewReader(strings.Join(paths, "\n") + "\n")
	cmd.Stderr = c.stderr
	cmd.Stdout = c.stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("cachix push %s: %w", c.cacheName, err)
	}
	return nil
}

// FilterPaths drops store paths whose base name matches any of the
// exclusion patterns. Patterns use filepath.Match syntax; a malformed
// pattern falls back to substring matching.
func FilterPaths(paths, patterns []string) []string {
	if len(patterns) == 0 {
		return paths
	}

	var out []string
	for _, p := range paths {
		if !excluded(filepath.Base(p), patterns) {
			out = append(out, p)
		}
	}
	return out
}

func excluded(base string, patterns []string) bool {
	for _, pat := range patterns {
		ok, err := filepath.Match(pat, base)
		if err != nil {
			if strings.Contains(base, pat) {
				return true
			}
			continue
		}
		if ok {
			return true
		}
	}
	return false
}
