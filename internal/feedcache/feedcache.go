// SPDX-License-Identifier: MPL-2.0

// Package feedcache is a small on-disk TTL cache for upstream release feed
// responses, so scheduled checks running close together do not re-hit the
// feed. Entries are stored one file per feed URL under the user cache
// directory.
package feedcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type (
	// entry is the on-disk format of a cached feed response.
	entry struct {
		Key       string    `toml:"key"`
		FetchedAt time.Time `toml:"fetched_at"`
		ExpiresAt time.Time `toml:"expires_at"`
		Body      string    `toml:"body"`
	}

	// Store caches feed bodies under dir with a fixed TTL.
	Store struct {
		dir string
		ttl time.Duration
		now func() time.Time // test seam
	}

	// Option configures a Store during construction.
	Option func(*Store)
)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Store rooted at dir. A zero or negative ttl disables
// expiry checks being useful, so callers should pass a positive duration.
func New(dir string, ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		dir: dir,
		ttl: ttl,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the cached body for key when present and not expired.
func (s *Store) Get(key string) ([]byte, bool) {
	data, err := os.ReadFile(s.entryPath(key))
	if err != nil {
		return nil, false
	}

	var e entry
	if err := toml.Unmarshal(data, &e); err != nil {
		// A corrupt entry behaves like a miss; the next Put overwrites it.
		return nil, false
	}

	if e.Key != key || s.now().After(e.ExpiresAt) {
		return nil, false
	}
	return []byte(e.Body), true
}

// Put stores body under key with the store's TTL.
func (s *Store) Put(key string, body []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	now := s.now()
	e := entry{
		Key:       key,
		FetchedAt: now,
		ExpiresAt: now.Add(s.ttl),
		Body:      string(body),
	}

	data, err := toml.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	if err := os.WriteFile(s.entryPath(key), data, 0o644); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// entryPath derives a filesystem-safe file name from the cache key.
func (s *Store) entryPath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:8])+".toml")
}
