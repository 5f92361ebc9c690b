// SPDX-License-Identifier: MPL-2.0

package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

const feedFixture = `{
	"latest_stable": {"version": "6.12.5"},
	"releases": [
		{"moniker": "mainline", "version": "6.13-rc2", "source": ""},
		{"moniker": "stable", "version": "6.12.5", "source": "https://cdn.kernel.org/pub/linux/kernel/v6.x/linux-6.12.5.tar.xz"},
		{"moniker": "longterm", "version": "6.6.63", "source": "https://cdn.kernel.org/pub/linux/kernel/v6.x/linux-6.6.63.tar.xz"},
		{"moniker": "longterm", "version": "6.6.9", "source": ""},
		{"moniker": "longterm", "version": "5.15.170", "source": ""}
	]
}`

func newFeedServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLatestInSeries_PicksVersionSortMax(t *testing.T) {
	t.Parallel()

	srv := newFeedServer(t, feedFixture, http.StatusOK)
	c := NewFeedClient(WithFeedURL(srv.URL))

	got, err := c.LatestInSeries(context.Background(), "6.6")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 6.6.63 beats 6.6.9 under version sort even though it loses lexically.
	if got.Version != "6.6.63" {
		t.Fatalf("got version %q, want 6.6.63", got.Version)
	}
	if got.Source == "" {
		t.Fatal("expected source URL to be carried through")
	}
}

func TestLatestInSeries_EmptySeriesMeansLatestStable(t *testing.T) {
	t.Parallel()

	srv := newFeedServer(t, feedFixture, http.StatusOK)
	c := NewFeedClient(WithFeedURL(srv.URL))

	got, err := c.LatestInSeries(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Version != "6.12.5" {
		t.Fatalf("got version %q, want 6.12.5", got.Version)
	}
}

func TestLatestInSeries_NoMatch(t *testing.T) {
	t.Parallel()

	srv := newFeedServer(t, feedFixture, http.StatusOK)
	c := NewFeedClient(WithFeedURL(srv.URL))

	_, err := c.LatestInSeries(context.Background(), "4.19")
	if !errors.Is(err, ErrNoRelease) {
		t.Fatalf("expected ErrNoRelease, got %v", err)
	}
}

func TestReleases_MalformedFeed(t *testing.T) {
	t.Parallel()

	srv := newFeedServer(t, "not json at all", http.StatusOK)
	c := NewFeedClient(WithFeedURL(srv.URL))

	if _, err := c.Releases(context.Background()); err == nil {
		t.Fatal("expected decode error for malformed feed")
	}
}

func TestReleases_EmptyFeed(t *testing.T) {
	t.Parallel()

	srv := newFeedServer(t, `{"releases": []}`, http.StatusOK)
	c := NewFeedClient(WithFeedURL(srv.URL))

	if _, err := c.Releases(context.Background()); !errors.Is(err, ErrEmptyFeed) {
		t.Fatalf("expected ErrEmptyFeed, got %v", err)
	}
}

func TestReleases_ServerError(t *testing.T) {
	t.Parallel()

	srv := newFeedServer(t, "", http.StatusBadGateway)
	c := NewFeedClient(WithFeedURL(srv.URL))

	if _, err := c.Releases(context.Background()); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

type memCache struct {
	entries map[string][]byte
	puts    atomic.Int32
}

func (m *memCache) Get(key string) ([]byte, bool) {
	b, ok := m.entries[key]
	return b, ok
}

func (m *memCache) Put(key string, body []byte) error {
	if m.entries == nil {
		m.entries = map[string][]byte{}
	}
	m.entries[key] = body
	m.puts.Add(1)
	return nil
}

func TestReleases_UsesCache(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(feedFixture))
	}))
	t.Cleanup(srv.Close)

	mc := &memCache{}
	c := NewFeedClient(WithFeedURL(srv.URL), WithFeedCache(mc))

	if _, err := c.Releases(context.Background()); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if _, err := c.Releases(context.Background()); err != nil {
		t.Fatalf("second fetch: %v", err)
	}

	if hits.Load() != 1 {
		t.Fatalf("expected exactly one upstream hit, got %d", hits.Load())
	}
	if mc.puts.Load() != 1 {
		t.Fatalf("expected exactly one cache write, got %d", mc.puts.Load())
	}
}
