// SPDX-License-Identifier: MPL-2.0

// Package hooks runs user-supplied shell snippets at pipeline
// milestones. Scripts execute in an embedded POSIX interpreter, so a
// hook behaves identically on any host regardless of the login shell.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Env carries the variables exposed to a hook script.
type Env struct {
	Variant    string
	OldVersion string
	NewVersion string
	FlakePath  string
}

// HookError reports a hook that exited non-zero.
type HookError struct {
	Name string
	Code int
}

func (e *HookError) Error() string {
	return fmt.Sprintf("hook %q exited with status %d", e.Name, e.Code)
}

// Runner executes hook scripts.
type Runner struct {
	dir     string
	stdout  io.Writer
	stderr  io.Writer
	environ []string
}

// Option configures a Runner.
type Option func(*Runner)

// WithDir sets the working directory for hook execution.
func WithDir(dir string) Option {
	return func(r *Runner) {
		r.dir = dir
	}
}

// WithStdIO redirects hook output. Used in tests.
func WithStdIO(stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// WithEnviron replaces the inherited process environment.
func WithEnviron(environ []string) Option {
	return func(r *Runner) {
		r.environ = environ
	}
}

// NewRunner builds a hook Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		environ: os.Environ(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run parses and executes a hook script with the hook environment
// appended to the process environment. The name is only used in error
// reporting.
func (r *Runner) Run(ctx context.Context, name, script string, env Env) error {
	if strings.TrimSpace(script) == "" {
		return nil
	}

	prog, err := syntax.NewParser().Parse(strings.NewReader(script), name)
	if err != nil {
		return fmt.Errorf("parsing hook %q: %w", name, err)
	}

	opts := []interp.RunnerOption{
		interp.StdIO(nil, r.stdout, r.stderr),
		interp.Env(expand.ListEnviron(append(r.environ, env.list()...)...)),
	}
	if r.dir != "" {
		opts = append(opts, interp.Dir(r.dir))
	}

	runner, err := interp.New(opts...)
	if err != nil {
		return fmt.Errorf("creating hook interpreter: %w", err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			return &HookError{Name: name, Code: int(exitStatus)}
		}
		return fmt.Errorf("running hook %q: %w", name, err)
	}
	return nil
}

func (e Env) list() []string {
	return []string{
		"T2_VARIANT=" + e.Variant,
		"T2_OLD_VERSION=" + e.OldVersion,
		"T2_NEW_VERSION=" + e.NewVersion,
		"T2_FLAKE=" + e.FlakePath,
	}
}
