// SPDX-License-Identifier: MPL-2.0

// Package pipeline wires the check, patch, build and push stages into the
// operations the CLI exposes. Each stage is injected as a capability so
// tests can run the full flow against fakes.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/SolidRhino/t2-kernel/internal/cachix"
	"github.com/SolidRhino/t2-kernel/internal/checker"
	"github.com/SolidRhino/t2-kernel/internal/config"
	"github.com/SolidRhino/t2-kernel/internal/feedcache"
	"github.com/SolidRhino/t2-kernel/internal/flakefile"
	"github.com/SolidRhino/t2-kernel/internal/hooks"
	"github.com/SolidRhino/t2-kernel/internal/nix"
	"github.com/SolidRhino/t2-kernel/internal/prefetch"
	"github.com/SolidRhino/t2-kernel/internal/upstream"
)

// DefaultURLTemplate is the kernel.org CDN location of release tarballs,
// used when neither the variant config nor the release feed provides a
// source URL.
const DefaultURLTemplate = "https://cdn.kernel.org/pub/linux/kernel/v{major}.x/linux-{version}.tar.xz"

type (
	// Prefetcher computes the SRI hash of a source archive. Implemented
	// by prefetch.Prefetcher.
	Prefetcher interface {
		Hash(ctx context.Context, url string) (string, error)
	}

	// HookRunner executes user hook scripts. Implemented by hooks.Runner.
	HookRunner interface {
		Run(ctx context.Context, name, script string, env hooks.Env) error
	}

	// Pipeline composes the stages behind the CLI operations.
	Pipeline struct {
		cfg     *config.Config
		checker *checker.Checker
		fetch   Prefetcher
		builder nix.Builder
		cache   cachix.Cache
		hooks   HookRunner
		logger  *log.Logger
	}

	// Option configures a Pipeline during construction.
	Option func(*Pipeline)

	// UpdateOptions selects and shapes an update run.
	UpdateOptions struct {
		// DryRun reports what would change without writing the flake or
		// touching the lock file.
		DryRun bool
		// Variants restricts the run to the named variants. Empty runs all.
		Variants []string
	}

	// Outcome is the per-variant result of an update run.
	Outcome struct {
		Result checker.Result
		Kind   config.VariantKind
		// URL and Hash are the values a kernel patch wrote (or would write).
		URL  string
		Hash string
		// Applied reports whether the variant's pin was actually advanced.
		Applied bool
	}

	// UpdateReport is the result of one update run.
	UpdateReport struct {
		Outcomes []Outcome
		// Diff is the unified diff of the flake rewrite. Only populated
		// on dry runs.
		Diff string
	}

	// SyncOptions shapes a full check-update-build-push cycle.
	SyncOptions struct {
		DryRun bool
		NoPush bool
	}

	// SyncReport is the result of one sync cycle.
	SyncReport struct {
		Update    UpdateReport
		Artifacts nix.ArtifactSet
		Pushed    bool
	}
)

// WithChecker overrides the compare stage.
func WithChecker(c *checker.Checker) Option {
	return func(p *Pipeline) {
		p.checker = c
	}
}

// WithPrefetcher overrides the hash stage.
func WithPrefetcher(f Prefetcher) Option {
	return func(p *Pipeline) {
		p.fetch = f
	}
}

// WithBuilder overrides the build stage.
func WithBuilder(b nix.Builder) Option {
	return func(p *Pipeline) {
		p.builder = b
	}
}

// WithCache overrides the push stage.
func WithCache(c cachix.Cache) Option {
	return func(p *Pipeline) {
		p.cache = c
	}
}

// WithHooks overrides the hook runner.
func WithHooks(h HookRunner) Option {
	return func(p *Pipeline) {
		p.hooks = h
	}
}

// WithLogger overrides the pipeline logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// New builds a Pipeline for cfg. Stages not overridden by options are
// wired to their real implementations: the kernel.org feed (with the
// on-disk feed cache when configured), the GitHub API, the nix and cachix
// CLIs, and the embedded hook interpreter.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:    cfg,
		logger: log.NewWithOptions(os.Stderr, log.Options{Prefix: "pipeline"}),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.checker == nil {
		p.checker = checker.New(newFeedClient(cfg), newGitHubClient())
	}
	if p.fetch == nil {
		p.fetch = prefetch.New()
	}
	if p.builder == nil {
		var nixOpts []nix.Option
		if cfg.NixBinary != "" {
			nixOpts = append(nixOpts, nix.WithBinary(cfg.NixBinary))
		}
		p.builder = nix.NewCLI(nixOpts...)
	}
	if p.cache == nil {
		cachixOpts := []cachix.Option{cachix.WithExclude(cfg.Cache.Exclude...)}
		if cfg.CachixBinary != "" {
			cachixOpts = append(cachixOpts, cachix.WithBinary(cfg.CachixBinary))
		}
		p.cache = cachix.NewCLI(cfg.Cache.Name, cachixOpts...)
	}
	if p.hooks == nil {
		p.hooks = hooks.NewRunner(hooks.WithDir(filepath.Dir(cfg.Flake)))
	}

	return p
}

func newFeedClient(cfg *config.Config) *upstream.FeedClient {
	var opts []upstream.FeedOption
	if cfg.Feed.URL != "" {
		opts = append(opts, upstream.WithFeedURL(cfg.Feed.URL))
	}
	cacheDir := cfg.Feed.CacheDir
	if cacheDir == "" {
		if dir, err := config.FeedCacheDir(); err == nil {
			cacheDir = dir
		}
	}
	if cacheDir != "" {
		ttl := 15 * time.Minute
		if parsed, err := time.ParseDuration(cfg.Feed.TTL); err == nil && parsed > 0 {
			ttl = parsed
		}
		opts = append(opts, upstream.WithFeedCache(feedcache.New(cacheDir, ttl)))
	}
	return upstream.NewFeedClient(opts...)
}

func newGitHubClient() *upstream.GitHubClient {
	var opts []upstream.GitHubOption
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		opts = append(opts, upstream.WithGitHubToken(token))
	}
	return upstream.NewGitHubClient(opts...)
}

// Check compares every configured variant against its upstream source.
// Upstream failures degrade to a no-change result per variant; only a
// broken local flake or lock file is a hard error.
func (p *Pipeline) Check(ctx context.Context) ([]checker.Result, error) {
	f, err := flakefile.Load(p.cfg.Flake)
	if err != nil {
		return nil, fmt.Errorf("loading flake: %w", err)
	}

	results := make([]checker.Result, 0, len(p.cfg.Variants))
	for _, vc := range p.cfg.Variants {
		current, err := p.currentValue(f, vc)
		if err != nil {
			return nil, err
		}
		results = append(results, p.checker.Check(ctx, toCheckerVariant(vc), current))
	}
	return results, nil
}

// Update advances the pins of all variants (or the selected subset) that
// have a newer upstream value. Kernel variants are patched in the flake
// file after their new source archive has been hashed; input variants are
// advanced through the lock file. A prefetch failure leaves the flake
// untouched for that variant and is reported on its outcome.
func (p *Pipeline) Update(ctx context.Context, opts UpdateOptions) (UpdateReport, error) {
	f, err := flakefile.Load(p.cfg.Flake)
	if err != nil {
		return UpdateReport{}, fmt.Errorf("loading flake: %w", err)
	}
	before := string(f.Bytes())

	selected, err := p.selectVariants(opts.Variants)
	if err != nil {
		return UpdateReport{}, err
	}

	report := UpdateReport{}
	for _, vc := range selected {
		current, err := p.currentValue(f, vc)
		if err != nil {
			return UpdateReport{}, err
		}

		res := p.checker.Check(ctx, toCheckerVariant(vc), current)
		outcome := Outcome{Result: res, Kind: vc.Kind}

		if res.Updated() {
			switch vc.Kind {
			case config.VariantKindKernel:
				p.updateKernel(ctx, f, vc, &outcome, opts.DryRun)
			case config.VariantKindInput:
				p.updateInput(ctx, vc, &outcome, opts.DryRun)
			}
		}

		report.Outcomes = append(report.Outcomes, outcome)
	}

	if opts.DryRun {
		report.Diff = unifiedDiff(p.cfg.Flake, before, string(f.Bytes()))
		return report, nil
	}

	if f.Modified() {
		if err := f.Save(); err != nil {
			return UpdateReport{}, fmt.Errorf("writing flake: %w", err)
		}
		// The patch rewrote pin fields; let nix itself vouch for the result.
		if err := p.builder.FlakeCheck(ctx, filepath.Dir(p.cfg.Flake)); err != nil {
			return report, fmt.Errorf("flake validation after patch: %w", err)
		}
	}

	p.runPostUpdateHooks(ctx, report.Outcomes)

	return report, nil
}

func (p *Pipeline) updateKernel(ctx context.Context, f *flakefile.File, vc config.VariantConfig, outcome *Outcome, dryRun bool) {
	url := resolveURL(vc, outcome.Result.Latest, outcome.Result.Release.Source)
	outcome.URL = url

	hash, err := p.fetch.Hash(ctx, url)
	if err != nil {
		p.logger.Warn("prefetch failed, leaving pin untouched",
			"variant", vc.Name, "url", url, "err", err)
		outcome.Result.Err = err
		outcome.Result.State = checker.StateNoChange
		return
	}
	outcome.Hash = hash

	if err := f.Patch(vc.Name, flakefile.Update{
		Version: outcome.Result.Latest,
		URL:     url,
		Hash:    hash,
	}); err != nil {
		p.logger.Warn("patch failed, leaving pin untouched", "variant", vc.Name, "err", err)
		outcome.Result.Err = err
		outcome.Result.State = checker.StateNoChange
		return
	}
	outcome.Applied = !dryRun
	if dryRun {
		p.logger.Info("would update", "variant", vc.Name,
			"from", outcome.Result.Current, "to", outcome.Result.Latest)
	} else {
		p.logger.Info("updated", "variant", vc.Name,
			"from", outcome.Result.Current, "to", outcome.Result.Latest)
	}
}

func (p *Pipeline) updateInput(ctx context.Context, vc config.VariantConfig, outcome *Outcome, dryRun bool) {
	if dryRun {
		p.logger.Info("would update input", "input", vc.Name,
			"from", shortRev(outcome.Result.Current), "to", shortRev(outcome.Result.Latest))
		return
	}
	if err := p.builder.UpdateInput(ctx, filepath.Dir(p.cfg.Flake), vc.Name); err != nil {
		p.logger.Warn("lock update failed", "input", vc.Name, "err", err)
		outcome.Result.Err = err
		outcome.Result.State = checker.StateNoChange
		return
	}
	outcome.Applied = true
	p.logger.Info("updated input", "input", vc.Name,
		"from", shortRev(outcome.Result.Current), "to", shortRev(outcome.Result.Latest))
}

func (p *Pipeline) runPostUpdateHooks(ctx context.Context, outcomes []Outcome) {
	script := p.cfg.Hooks.PostUpdate
	if script == "" {
		return
	}
	for _, o := range outcomes {
		if !o.Applied {
			continue
		}
		env := hooks.Env{
			Variant:    o.Result.Variant,
			OldVersion: o.Result.Current,
			NewVersion: o.Result.Latest,
			FlakePath:  p.cfg.Flake,
		}
		if err := p.hooks.Run(ctx, "post-update", script, env); err != nil {
			p.logger.Warn("post-update hook failed", "variant", o.Result.Variant, "err", err)
		}
	}
}

// Build realizes the kernel variants (or the named subset) and returns
// the union of their store paths.
func (p *Pipeline) Build(ctx context.Context, names []string) (nix.ArtifactSet, error) {
	selected, err := p.selectVariants(names)
	if err != nil {
		return nix.ArtifactSet{}, err
	}

	var set nix.ArtifactSet
	for _, vc := range selected {
		if vc.Kind != config.VariantKindKernel {
			continue
		}
		installable := vc.Attr
		if installable == "" {
			installable = ".#" + vc.Name
		}
		p.logger.Info("building", "variant", vc.Name, "installable", installable)
		built, err := p.builder.Build(ctx, installable)
		if err != nil {
			return nix.ArtifactSet{}, fmt.Errorf("building %s: %w", vc.Name, err)
		}
		set.Paths = append(set.Paths, built.Paths...)
	}
	return set, nil
}

// Push uploads the artifact set to the configured binary cache. An empty
// cache name disables pushing.
func (p *Pipeline) Push(ctx context.Context, set nix.ArtifactSet) error {
	if p.cfg.Cache.Name == "" {
		p.logger.Info("no cache configured, skipping push")
		return nil
	}
	return p.cache.Push(ctx, set)
}

// Sync runs the full cycle: update all pins, build the variants that
// advanced, and push the artifacts.
func (p *Pipeline) Sync(ctx context.Context, opts SyncOptions) (SyncReport, error) {
	report := SyncReport{}

	update, err := p.Update(ctx, UpdateOptions{DryRun: opts.DryRun})
	if err != nil {
		return report, err
	}
	report.Update = update

	if opts.DryRun {
		return report, nil
	}

	var changed []string
	for _, o := range update.Outcomes {
		if o.Applied && o.Kind == config.VariantKindKernel {
			changed = append(changed, o.Result.Variant)
		}
	}
	anyApplied := false
	for _, o := range update.Outcomes {
		if o.Applied {
			anyApplied = true
			break
		}
	}
	if !anyApplied {
		p.logger.Info("everything up to date")
		return report, nil
	}

	// Input-only updates still rebuild every kernel variant against the
	// advanced lock.
	set, err := p.Build(ctx, changed)
	if err != nil {
		return report, err
	}
	report.Artifacts = set

	if opts.NoPush || p.cfg.Cache.Name == "" || len(set.Paths) == 0 {
		return report, nil
	}
	if err := p.Push(ctx, set); err != nil {
		return report, err
	}
	report.Pushed = true
	return report, nil
}

// currentValue reads the pinned value the variant currently has: the
// version field for kernel variants, the locked rev for input variants.
func (p *Pipeline) currentValue(f *flakefile.File, vc config.VariantConfig) (string, error) {
	switch vc.Kind {
	case config.VariantKindKernel:
		rec, err := f.Record(vc.Name)
		if err != nil {
			return "", err
		}
		return rec.Version, nil
	case config.VariantKindInput:
		return flakefile.LockedRev(p.cfg.LockPath(), vc.Name)
	default:
		return "", fmt.Errorf("variant %s: unknown kind %q", vc.Name, vc.Kind)
	}
}

// selectVariants resolves a name filter against the configured variants.
// Empty selects all. Unknown names are an error rather than a silent
// no-op.
func (p *Pipeline) selectVariants(names []string) ([]config.VariantConfig, error) {
	if len(names) == 0 {
		return p.cfg.Variants, nil
	}

	var selected []config.VariantConfig
	for _, name := range names {
		vc, ok := p.cfg.Variant(name)
		if !ok {
			return nil, fmt.Errorf("unknown variant %q", name)
		}
		selected = append(selected, vc)
	}
	return selected, nil
}

func toCheckerVariant(vc config.VariantConfig) checker.Variant {
	branch := vc.Branch
	if vc.Kind == config.VariantKindInput && branch == "" {
		branch = "master"
	}
	return checker.Variant{
		Name:   vc.Name,
		Kind:   checker.Kind(vc.Kind),
		Series: vc.Series,
		Owner:  vc.Owner,
		Repo:   vc.Repo,
		Branch: branch,
	}
}

// resolveURL picks the source URL for a kernel release: an explicit
// template wins, then the feed's own source link, then the kernel.org CDN
// layout.
func resolveURL(vc config.VariantConfig, version, feedSource string) string {
	if vc.URLTemplate != "" {
		return expandTemplate(vc.URLTemplate, version)
	}
	if feedSource != "" {
		return feedSource
	}
	return expandTemplate(DefaultURLTemplate, version)
}

func expandTemplate(tpl, version string) string {
	out := strings.ReplaceAll(tpl, "{version}", version)
	return strings.ReplaceAll(out, "{major}", upstream.Major(version))
}

func shortRev(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
