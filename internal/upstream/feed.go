// SPDX-License-Identifier: MPL-2.0

package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const (
	// DefaultFeedURL is the kernel.org release feed queried when the
	// configuration does not name another source.
	DefaultFeedURL = "https://www.kernel.org/releases.json"

	// maxFeedResponseBytes is the upper bound on feed response size (10 MB).
	// Prevents unbounded memory consumption from malicious or malformed
	// responses.
	maxFeedResponseBytes = 10 << 20
)

var (
	// ErrNoRelease is returned when the feed contains no release matching
	// the requested series.
	ErrNoRelease = errors.New("no matching release in feed")

	// ErrEmptyFeed is returned when the feed decodes successfully but lists
	// no releases at all.
	ErrEmptyFeed = errors.New("release feed is empty")
)

type (
	// Release is one entry of the upstream release feed. It is transient:
	// fetched at check time, compared, and discarded.
	Release struct {
		Moniker string `json:"moniker"` // e.g. "stable", "longterm", "mainline"
		Version string `json:"version"` // e.g. "6.6.63"
		Source  string `json:"source"`  // source tarball URL, may be empty
	}

	// feedDocument is the JSON wire format of the kernel.org releases feed.
	feedDocument struct {
		LatestStable struct {
			Version string `json:"version"`
		} `json:"latest_stable"`
		Releases []Release `json:"releases"`
	}

	// ReleaseCache is a byte-level cache consulted before hitting the feed
	// over the network. Implemented by internal/feedcache.
	ReleaseCache interface {
		Get(key string) ([]byte, bool)
		Put(key string, body []byte) error
	}

	// FeedClient fetches and filters the upstream kernel release feed.
	FeedClient struct {
		httpClient *http.Client
		baseURL    string
		userAgent  string
		cache      ReleaseCache
	}

	// FeedOption configures a FeedClient during construction.
	FeedOption func(*FeedClient)
)

// WithFeedURL overrides the feed URL, primarily for test servers.
func WithFeedURL(u string) FeedOption {
	return func(c *FeedClient) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithFeedHTTPClient sets a custom HTTP client, useful for tests or proxy
// configurations.
func WithFeedHTTPClient(h *http.Client) FeedOption {
	return func(c *FeedClient) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithFeedUserAgent sets the User-Agent header sent with every request.
func WithFeedUserAgent(ua string) FeedOption {
	return func(c *FeedClient) {
		c.userAgent = ua
	}
}

// WithFeedCache attaches a response cache so repeated checks within the
// cache TTL do not re-hit the feed.
func WithFeedCache(rc ReleaseCache) FeedOption {
	return func(c *FeedClient) {
		c.cache = rc
	}
}

// NewFeedClient creates a FeedClient for the kernel.org releases feed.
func NewFeedClient(opts ...FeedOption) *FeedClient {
	c := &FeedClient{
		httpClient: http.DefaultClient,
		baseURL:    DefaultFeedURL,
		userAgent:  "t2kernel/dev",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Releases fetches the feed and returns every listed release. The raw feed
// body is cached when a cache is attached.
func (c *FeedClient) Releases(ctx context.Context) ([]Release, error) {
	doc, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if len(doc.Releases) == 0 {
		return nil, ErrEmptyFeed
	}
	return doc.Releases, nil
}

// LatestStable returns the release the feed marks as the latest stable
// version.
func (c *FeedClient) LatestStable(ctx context.Context) (Release, error) {
	doc, err := c.fetch(ctx)
	if err != nil {
		return Release{}, err
	}

	want := doc.LatestStable.Version
	if want == "" {
		return Release{}, fmt.Errorf("%w: feed has no latest_stable entry", ErrNoRelease)
	}

	for _, r := range doc.Releases {
		if r.Version == want {
			return r, nil
		}
	}

	// The feed named a latest stable version without a matching release
	// entry; synthesize one so callers still get the version string.
	return Release{Moniker: "stable", Version: want}, nil
}

// LatestInSeries returns the highest release whose version belongs to the
// given series prefix (version-sort ordering, so 6.6.9 < 6.6.10). An empty
// series selects the latest stable release.
func (c *FeedClient) LatestInSeries(ctx context.Context, series string) (Release, error) {
	if series == "" {
		return c.LatestStable(ctx)
	}

	releases, err := c.Releases(ctx)
	if err != nil {
		return Release{}, err
	}

	best := Release{}
	found := false
	for _, r := range releases {
		if _, err := Normalize(r.Version); err != nil {
			continue
		}
		if !InSeries(r.Version, series) {
			continue
		}
		if !found || Compare(r.Version, best.Version) > 0 {
			best = r
			found = true
		}
	}

	if !found {
		return Release{}, fmt.Errorf("%w: series %q", ErrNoRelease, series)
	}
	return best, nil
}

// fetch retrieves and decodes the feed document, consulting the attached
// cache first.
func (c *FeedClient) fetch(ctx context.Context) (*feedDocument, error) {
	if c.cache != nil {
		if body, ok := c.cache.Get(c.baseURL); ok {
			doc, err := decodeFeed(body)
			if err == nil {
				return doc, nil
			}
			// A corrupt cache entry is not fatal; fall through to the
			// network fetch.
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("building feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching release feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching release feed: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading release feed: %w", err)
	}

	doc, err := decodeFeed(body)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		// Cache write failures only cost us a re-fetch next time.
		_ = c.cache.Put(c.baseURL, body)
	}

	return doc, nil
}

// decodeFeed parses the feed JSON document.
func decodeFeed(body []byte) (*feedDocument, error) {
	var doc feedDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decoding release feed: %w", err)
	}
	return &doc, nil
}
