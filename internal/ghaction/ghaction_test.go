// SPDX-License-Identifier: MPL-2.0

package ghaction

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func TestSet_SingleLine(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "output")
	w := NewWriter(WithPath(path))

	if err := w.Set("updated", "true"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.Set("version", "6.6.63"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output file: %v", err)
	}
	want := "updated=true\nversion=6.6.63\n"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSet_MultilineUsesHeredoc(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "output")
	w := NewWriter(WithPath(path))

	if err := w.Set("summary", "lts: updated\nlatest: no change"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output file: %v", err)
	}

	re := regexp.MustCompile(`(?s)^summary<<(ghadelim_[0-9a-f]+)\nlts: updated\nlatest: no change\n(ghadelim_[0-9a-f]+)\n$`)
	m := re.FindStringSubmatch(string(got))
	if m == nil {
		t.Fatalf("output does not use heredoc syntax: %q", got)
	}
	if m[1] != m[2] {
		t.Errorf("mismatched delimiters: %q vs %q", m[1], m[2])
	}
	if strings.Contains("lts: updated\nlatest: no change", m[1]) {
		t.Errorf("delimiter %q occurs in value", m[1])
	}
}

func TestSet_NoOutputFileIsNoOp(t *testing.T) {
	t.Parallel()

	w := NewWriter(WithEnvLookup(func(string) (string, bool) { return "", false }))
	if w.Enabled() {
		t.Fatal("writer should be disabled without GITHUB_OUTPUT")
	}
	if err := w.Set("updated", "true"); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestSet_WriteFailureIsReported(t *testing.T) {
	t.Parallel()

	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}

	w := NewWriter(WithPath("/dev/full"))
	err := w.Set("updated", "true")
	if err == nil {
		t.Fatal("expected a write error")
	}
	if !strings.Contains(err.Error(), "writing step output") {
		t.Errorf("error should come from the write, got: %v", err)
	}
}

func TestNewWriter_ReadsEnv(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "output")
	w := NewWriter(WithEnvLookup(func(key string) (string, bool) {
		if key == OutputEnv {
			return path, true
		}
		return "", false
	}))

	if !w.Enabled() {
		t.Fatal("writer should be enabled")
	}
	if err := w.Set("state", "no-change"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output file: %v", err)
	}
	if string(got) != "state=no-change\n" {
		t.Errorf("got %q", got)
	}
}
