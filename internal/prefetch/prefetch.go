// SPDX-License-Identifier: MPL-2.0

// Package prefetch computes the content hash the build engine asserts for
// a source archive: the tarball is streamed through SHA-256 and the digest
// is rendered in SRI form ("sha256-<base64>"), the format Nix expects in
// fetchurl hash fields.
package prefetch

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxArchiveBytes is the upper bound on downloaded archive size (2 GB).
// Kernel tarballs are ~150 MB; anything near this limit is not a kernel
// source archive.
const maxArchiveBytes = 2 << 30

// ErrArchiveTooLarge is returned when the source archive exceeds
// maxArchiveBytes.
var ErrArchiveTooLarge = errors.New("source archive exceeds size limit")

type (
	// Prefetcher downloads source archives and produces their SRI hash.
	Prefetcher struct {
		httpClient *http.Client
		userAgent  string
	}

	// Option configures a Prefetcher during construction.
	Option func(*Prefetcher)
)

// WithHTTPClient sets a custom HTTP client, useful for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(p *Prefetcher) {
		if h != nil {
			p.httpClient = h
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(p *Prefetcher) {
		p.userAgent = ua
	}
}

// New creates a Prefetcher.
func New(opts ...Option) *Prefetcher {
	p := &Prefetcher{
		httpClient: http.DefaultClient,
		userAgent:  "t2kernel/dev",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Hash downloads the archive at url and returns its SRI hash. The body is
// streamed through the hash function, never held in memory or written to
// disk.
func (p *Prefetcher) Hash(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("building prefetch request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading %s: unexpected status %d", url, resp.StatusCode)
	}

	h := sha256.New()
	n, err := io.Copy(h, io.LimitReader(resp.Body, maxArchiveBytes+1))
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", url, err)
	}
	if n > maxArchiveBytes {
		return "", fmt.Errorf("%w: %s", ErrArchiveTooLarge, url)
	}

	return SRI(h.Sum(nil)), nil
}

// SRI renders a raw SHA-256 digest in subresource-integrity form.
func SRI(digest []byte) string {
	return "sha256-" + base64.StdEncoding.EncodeToString(digest)
}
