// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	FeedFetchFailedId Id = iota + 1
	FlakeParseErrorId
	VariantNotFoundId
	HashPrefetchFailedId
	NixNotFoundId
	NixBuildFailedId
	CachixNotFoundId
	CachixAuthMissingId
	ConfigLoadFailedId
	GitHubRateLimitedId
	HookFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // must never be empty, because we need to have docs about all issue types
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	feedFetchFailedIssue = &Issue{
		id: FeedFetchFailedId,
		mdMsg: `
# Could not reach the kernel.org release feed!

The release check failed because the feed could not be fetched. The
pinned versions were left untouched.

## Common causes:
- No network connectivity
- kernel.org temporarily unavailable
- A proxy or firewall blocking HTTPS

## Things you can try:
- Check connectivity:
~~~
$ curl -sI https://www.kernel.org/releases.json
~~~

- Retry later; a cached feed (if fresh) is used automatically
- Point at a mirror in your config:
~~~cue
feed: url: "https://mirror.example.org/releases.json"
~~~`,
		extLinks: []HttpLink{"https://www.kernel.org/releases.json"},
	}

	flakeParseErrorIssue = &Issue{
		id: FlakeParseErrorId,
		mdMsg: `
# Could not locate the version pins in flake.nix!

The expected variant blocks were not found, so nothing was rewritten.

## What we look for:
A named attribute set per variant holding quoted version, url and hash
fields:
~~~nix
lts = {
  version = "6.6.63";
  url = "https://cdn.kernel.org/pub/linux/kernel/v6.x/linux-6.6.63.tar.xz";
  hash = "sha256-...";
};
~~~

## Things you can try:
- Check the variant names in your config match the blocks in flake.nix
- Keep version, url and hash as plain quoted strings
- Run with verbose mode to see which field lookup failed:
~~~
$ t2kernel --verbose check
~~~`,
	}

	variantNotFoundIssue = &Issue{
		id: VariantNotFoundId,
		mdMsg: `
# Unknown variant!

The variant you named is not defined in the configuration.

## Things you can try:
- List the configured variants:
~~~
$ t2kernel config show
~~~

- Check for typos in the variant name
- Add the variant to your config:
~~~cue
variants: [
  {name: "lts", kind: "kernel", series: "6.6"},
]
~~~`,
	}

	hashPrefetchFailedIssue = &Issue{
		id: HashPrefetchFailedId,
		mdMsg: `
# Could not prefetch the source archive!

Downloading the release tarball to compute its hash failed. The flake
was NOT modified.

## Common causes:
- The release is very fresh and the CDN has not caught up
- Network interruption mid-download
- The URL template in your config produces a bad URL

## Things you can try:
- Verify the URL resolves:
~~~
$ curl -sI "https://cdn.kernel.org/pub/linux/kernel/v6.x/linux-<version>.tar.xz"
~~~

- Retry the update; partial downloads are never written anywhere
- Check the url_template setting in your config`,
	}

	nixNotFoundIssue = &Issue{
		id: NixNotFoundId,
		mdMsg: `
# nix not found!

The build step needs the nix CLI on PATH.

## Things you can try:
- Install Nix:
~~~
$ curl -L https://nixos.org/nix/install | sh
~~~

- Or point at a specific binary in your config:
~~~cue
nix_binary: "/nix/var/nix/profiles/default/bin/nix"
~~~`,
		extLinks: []HttpLink{"https://nixos.org/download"},
	}

	nixBuildFailedIssue = &Issue{
		id: NixBuildFailedId,
		mdMsg: `
# Kernel build failed!

nix build exited non-zero for one of the variants.

## Things you can try:
- Re-run the failing build directly to see the full log:
~~~
$ nix build .#packages.x86_64-linux.<variant> -L
~~~

- Check whether the new release needs a patch rebase
- Build the other variant to narrow the failure down:
~~~
$ t2kernel build --variant lts
~~~`,
	}

	cachixNotFoundIssue = &Issue{
		id: CachixNotFoundId,
		mdMsg: `
# cachix not found!

Pushing build artifacts needs the cachix CLI on PATH.

## Things you can try:
- Install cachix:
~~~
$ nix profile install nixpkgs#cachix
~~~

- Or skip the push step:
~~~
$ t2kernel sync --no-push
~~~`,
		extLinks: []HttpLink{"https://docs.cachix.org"},
	}

	cachixAuthMissingIssue = &Issue{
		id: CachixAuthMissingId,
		mdMsg: `
# Missing cachix auth token!

CACHIX_AUTH_TOKEN is not set, so nothing can be pushed to the binary
cache.

## Things you can try:
- Export the token before pushing:
~~~
$ export CACHIX_AUTH_TOKEN=...
~~~

- In GitHub Actions, pass it from repository secrets:
~~~yaml
env:
  CACHIX_AUTH_TOKEN: ${{ secrets.CACHIX_AUTH_TOKEN }}
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the t2kernel configuration file.

## Configuration file locations:
- Linux: ~/.config/t2kernel/config.cue
- macOS: ~/Library/Application Support/t2kernel/config.cue

## Things you can try:
- Create a default configuration:
~~~
$ t2kernel config init
~~~

- Check the configuration syntax
- Remove the config file to use defaults

## Example configuration:
~~~cue
flake: "./flake.nix"

cache: {
  name: "t2-kernel"
}

variants: [
  {name: "lts", kind: "kernel", series: "6.6"},
  {name: "latest", kind: "kernel"},
]
~~~`,
	}

	githubRateLimitedIssue = &Issue{
		id: GitHubRateLimitedId,
		mdMsg: `
# GitHub API rate limit hit!

Checking a branch head against the GitHub API was rejected. Unauthenticated
requests get 60 per hour.

## Things you can try:
- Provide a token to raise the limit:
~~~
$ export GITHUB_TOKEN=...
~~~

- Wait for the limit window to reset (the error names the reset time)
- Lower the watch frequency in your config`,
	}

	hookFailedIssue = &Issue{
		id: HookFailedId,
		mdMsg: `
# A hook script failed!

A post-update hook exited non-zero. The flake changes were already
written; only the hook side effects are in question.

## Things you can try:
- Run the hook body manually with the same variables:
~~~
$ T2_VARIANT=lts T2_NEW_VERSION=6.6.63 sh -c '<your hook>'
~~~

- Check the hook output above for the failing command
- Remove the hook from your config while debugging`,
	}

	issues = map[Id]*Issue{
		feedFetchFailedIssue.Id():    feedFetchFailedIssue,
		flakeParseErrorIssue.Id():    flakeParseErrorIssue,
		variantNotFoundIssue.Id():    variantNotFoundIssue,
		hashPrefetchFailedIssue.Id(): hashPrefetchFailedIssue,
		nixNotFoundIssue.Id():        nixNotFoundIssue,
		nixBuildFailedIssue.Id():     nixBuildFailedIssue,
		cachixNotFoundIssue.Id():     cachixNotFoundIssue,
		cachixAuthMissingIssue.Id():  cachixAuthMissingIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		githubRateLimitedIssue.Id():  githubRateLimitedIssue,
		hookFailedIssue.Id():         hookFailedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
