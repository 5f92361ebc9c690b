// SPDX-License-Identifier: MPL-2.0

// Package checker decides whether a tracked variant has a newer upstream
// version. The compare step is modelled explicitly: every check produces a
// Result in one of two states, StateNoChange or StateUpdated. Upstream
// fetch failures are fail-safe: they are logged, recorded on the Result,
// and reported as no change, so a transient network error can never lead
// to the flake being rewritten.
package checker

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/SolidRhino/t2-kernel/internal/upstream"
)

const (
	// KindKernel tracks a kernel release series in the upstream feed.
	KindKernel Kind = "kernel"
	// KindInput tracks the head commit of a flake input branch.
	KindInput Kind = "input"

	// StateNoChange means the recorded value already matches upstream (or
	// the check failed safe).
	StateNoChange State = "no-change"
	// StateUpdated means upstream has a newer value than the recorded one.
	StateUpdated State = "updated"
)

type (
	// Kind discriminates the two upstream source kinds a variant can track.
	Kind string

	// State is the outcome of one compare step.
	State string

	// Variant describes one tracked build target.
	Variant struct {
		Name   string
		Kind   Kind
		Series string // kernel: release series prefix such as "6.6"; empty tracks latest stable
		Owner  string // input: GitHub repository owner
		Repo   string // input: GitHub repository name
		Branch string // input: branch whose head is tracked
	}

	// Result is the typed outcome of a check: the pair of compared values
	// and the state transition they produced.
	Result struct {
		Variant string
		Current string
		Latest  string
		State   State

		// Release carries the matched feed entry for kernel variants, so
		// the patcher can reuse the feed's source URL.
		Release upstream.Release

		// Err records a fetch or parse failure that forced StateNoChange.
		// It is advisory: the surrounding automation logs it and carries
		// on, it never aborts a run.
		Err error
	}

	// ReleaseSource yields the newest release of a series. Implemented by
	// upstream.FeedClient.
	ReleaseSource interface {
		LatestInSeries(ctx context.Context, series string) (upstream.Release, error)
	}

	// CommitSource resolves a branch to its head commit. Implemented by
	// upstream.GitHubClient.
	CommitSource interface {
		BranchHead(ctx context.Context, owner, repo, branch string) (upstream.Commit, error)
	}

	// Checker runs the compare step for any variant kind.
	Checker struct {
		releases ReleaseSource
		commits  CommitSource
		logger   *log.Logger
	}

	// Option configures a Checker during construction.
	Option func(*Checker)
)

// Updated reports whether the result calls for a patch.
func (r Result) Updated() bool { return r.State == StateUpdated }

// WithLogger overrides the default logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Checker) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Checker over the given upstream sources.
func New(releases ReleaseSource, commits CommitSource, opts ...Option) *Checker {
	c := &Checker{
		releases: releases,
		commits:  commits,
		logger:   log.NewWithOptions(os.Stderr, log.Options{Prefix: "check"}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check compares the recorded current value of a variant against upstream.
// current is the version string (kernel kind) or pinned commit hash (input
// kind) as read from the flake.
func (c *Checker) Check(ctx context.Context, v Variant, current string) Result {
	switch v.Kind {
	case KindKernel:
		return c.checkKernel(ctx, v, current)
	case KindInput:
		return c.checkInput(ctx, v, current)
	default:
		return c.failSafe(v, current, fmt.Errorf("unknown variant kind %q", v.Kind))
	}
}

func (c *Checker) checkKernel(ctx context.Context, v Variant, current string) Result {
	if current == "" {
		return c.failSafe(v, current, fmt.Errorf("variant %q has no recorded version", v.Name))
	}

	rel, err := c.releases.LatestInSeries(ctx, v.Series)
	if err != nil {
		return c.failSafe(v, current, err)
	}

	res := Result{
		Variant: v.Name,
		Current: current,
		Latest:  rel.Version,
		Release: rel,
		State:   StateNoChange,
	}
	if upstream.IsNewer(rel.Version, current) {
		res.State = StateUpdated
	}
	return res
}

func (c *Checker) checkInput(ctx context.Context, v Variant, current string) Result {
	if current == "" {
		return c.failSafe(v, current, fmt.Errorf("input %q has no locked revision", v.Name))
	}

	head, err := c.commits.BranchHead(ctx, v.Owner, v.Repo, v.Branch)
	if err != nil {
		return c.failSafe(v, current, err)
	}

	res := Result{
		Variant: v.Name,
		Current: current,
		Latest:  head.SHA,
		State:   StateNoChange,
	}
	if !strings.EqualFold(head.SHA, current) {
		res.State = StateUpdated
	}
	return res
}

// failSafe reports a check failure as "no update". The error is logged and
// recorded but never propagated as fatal.
func (c *Checker) failSafe(v Variant, current string, err error) Result {
	c.logger.Warn("check failed, treating as no update", "variant", v.Name, "err", err)
	return Result{
		Variant: v.Name,
		Current: current,
		State:   StateNoChange,
		Err:     err,
	}
}
