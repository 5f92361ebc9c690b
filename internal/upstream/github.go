// SPDX-License-Identifier: MPL-2.0

package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// maxJSONResponseBytes is the upper bound on JSON API response size (10 MB).
	maxJSONResponseBytes = 10 << 20
)

// ErrRefNotFound is returned when the requested branch or ref does not exist
// in the upstream repository.
var ErrRefNotFound = errors.New("ref not found")

type (
	// RateLimitError is returned when the GitHub API rate limit is exceeded.
	RateLimitError struct {
		Limit     int
		Remaining int
		ResetAt   time.Time
	}

	// Commit identifies the head of an upstream branch at check time.
	Commit struct {
		SHA     string // 40-character hex commit hash
		Message string // first line of the commit message, for log output
	}

	// githubCommit is the JSON wire format of the GitHub commits API.
	githubCommit struct {
		SHA    string `json:"sha"`
		Commit struct {
			Message string `json:"message"`
		} `json:"commit"`
	}

	// GitHubClient resolves branch refs of flake inputs (e.g. nixos-hardware)
	// to their current head commit via the GitHub API.
	GitHubClient struct {
		httpClient *http.Client
		baseURL    string // API base URL (default: "https://api.github.com", overridable for tests)
		token      string // Optional GITHUB_TOKEN for authenticated requests
		userAgent  string // User-Agent header value
	}

	// GitHubOption configures a GitHubClient during construction.
	GitHubOption func(*GitHubClient)
)

// Error formats the rate limit details as a human-readable message.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("GitHub API rate limit exceeded (%d remaining, resets at %s)",
		e.Remaining, e.ResetAt.UTC().Format("15:04 UTC"))
}

// WithGitHubHTTPClient sets a custom HTTP client, useful for tests.
func WithGitHubHTTPClient(h *http.Client) GitHubOption {
	return func(g *GitHubClient) {
		if h != nil {
			g.httpClient = h
		}
	}
}

// WithGitHubBaseURL overrides the GitHub API base URL, primarily for test
// servers.
func WithGitHubBaseURL(base string) GitHubOption {
	return func(g *GitHubClient) {
		g.baseURL = strings.TrimRight(base, "/")
	}
}

// WithGitHubToken sets a personal access token for authenticated requests.
// Authenticated requests have a higher rate limit (5000/hour vs 60/hour).
func WithGitHubToken(token string) GitHubOption {
	return func(g *GitHubClient) {
		g.token = token
	}
}

// WithGitHubUserAgent sets the User-Agent header sent with every request.
func WithGitHubUserAgent(ua string) GitHubOption {
	return func(g *GitHubClient) {
		g.userAgent = ua
	}
}

// NewGitHubClient creates a GitHubClient with sensible defaults.
func NewGitHubClient(opts ...GitHubOption) *GitHubClient {
	c := &GitHubClient{
		httpClient: http.DefaultClient,
		baseURL:    "https://api.github.com",
		userAgent:  "t2kernel/dev",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BranchHead resolves the head commit of a branch in owner/repo. Returns
// ErrRefNotFound when the branch does not exist.
func (c *GitHubClient) BranchHead(ctx context.Context, owner, repo, branch string) (Commit, error) {
	reqURL := fmt.Sprintf("%s/repos/%s/%s/commits/%s",
		c.baseURL, url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(branch))

	resp, err := c.doRequest(ctx, reqURL)
	if err != nil {
		return Commit{}, fmt.Errorf("resolving %s/%s@%s: %w", owner, repo, branch, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if err := checkRateLimit(resp); err != nil {
		return Commit{}, err
	}

	if resp.StatusCode == http.StatusNotFound {
		return Commit{}, fmt.Errorf("resolving %s/%s@%s: %w", owner, repo, branch, ErrRefNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return Commit{}, fmt.Errorf("resolving %s/%s@%s: unexpected status %d", owner, repo, branch, resp.StatusCode)
	}

	var gc githubCommit
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&gc); err != nil {
		return Commit{}, fmt.Errorf("resolving %s/%s@%s: decoding response: %w", owner, repo, branch, err)
	}
	if gc.SHA == "" {
		return Commit{}, fmt.Errorf("resolving %s/%s@%s: response has no commit sha", owner, repo, branch)
	}

	return Commit{
		SHA:     gc.SHA,
		Message: firstLine(gc.Commit.Message),
	}, nil
}

// doRequest creates and executes an HTTP request with common GitHub API
// headers.
func (c *GitHubClient) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", c.userAgent)

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	return resp, nil
}

// checkRateLimit inspects the X-RateLimit-* response headers and returns a
// RateLimitError when the remaining quota is zero. Only the header values
// are examined, not the HTTP status code.
func checkRateLimit(resp *http.Response) error {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return nil
	}

	rem, err := strconv.Atoi(remaining)
	if err != nil {
		return nil //nolint:nilerr // Non-numeric header is non-fatal.
	}
	if rem > 0 {
		return nil
	}

	// Companion headers only feed the diagnostic message; malformed values
	// default to zero.
	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))                 //nolint:errcheck // Best-effort header parsing.
	resetUnix, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64) //nolint:errcheck // Best-effort header parsing.

	return &RateLimitError{
		Limit:     limit,
		Remaining: 0,
		ResetAt:   time.Unix(resetUnix, 0),
	}
}

// firstLine returns the text up to the first newline.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}
