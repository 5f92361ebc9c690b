// SPDX-License-Identifier: MPL-2.0

package prefetch

import (
	"context"
	"crypto/sha256"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHash_SRIFormat(t *testing.T) {
	t.Parallel()

	payload := []byte("pretend this is linux-6.6.63.tar.xz")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	t.Cleanup(srv.Close)

	p := New()
	got, err := p.Hash(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sum := sha256.Sum256(payload)
	want := SRI(sum[:])
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if !strings.HasPrefix(got, "sha256-") {
		t.Fatalf("hash %q is not in SRI form", got)
	}
}

func TestHash_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	p := New()
	if _, err := p.Hash(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestHash_UserAgent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "t2kernel/test" {
			t.Errorf("got User-Agent %q", got)
		}
		_, _ = w.Write([]byte("x"))
	}))
	t.Cleanup(srv.Close)

	p := New(WithUserAgent("t2kernel/test"))
	if _, err := p.Hash(context.Background(), srv.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHash_ContextCancel(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New()
	if _, err := p.Hash(ctx, srv.URL); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
