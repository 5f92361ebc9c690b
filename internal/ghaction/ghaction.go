// SPDX-License-Identifier: MPL-2.0

// Package ghaction writes workflow step outputs in the format GitHub
// Actions expects. Outside of Actions (no GITHUB_OUTPUT in the
// environment) every write is a silent no-op, so the same binary runs
// unchanged on a workstation.
package ghaction

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// OutputEnv is the environment variable GitHub Actions sets to the path
// of the step output file.
const OutputEnv = "GITHUB_OUTPUT"

// Writer appends key=value pairs to a step output file.
type Writer struct {
	path      string
	lookupEnv func(string) (string, bool)
}

// Option configures a Writer.
type Option func(*Writer)

// WithPath pins the output file path, bypassing GITHUB_OUTPUT.
func WithPath(path string) Option {
	return func(w *Writer) {
		w.path = path
	}
}

// WithEnvLookup overrides environment lookup. Used in tests.
func WithEnvLookup(fn func(string) (string, bool)) Option {
	return func(w *Writer) {
		w.lookupEnv = fn
	}
}

// NewWriter builds a Writer resolving the output file from the
// environment unless WithPath overrides it.
func NewWriter(opts ...Option) *Writer {
	w := &Writer{
		lookupEnv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Enabled reports whether step outputs will actually be written.
func (w *Writer) Enabled() bool {
	return w.file() != ""
}

// Set appends a single-line output. Multiline values are delegated to
// SetMultiline.
func (w *Writer) Set(key, value string) error {
	if strings.ContainsAny(value, "\r\n") {
		return w.SetMultiline(key, value)
	}
	return w.append(fmt.Sprintf("%s=%s\n", key, value))
}

// SetMultiline appends an output using the heredoc delimiter syntax
// GitHub documents for values spanning multiple lines.
func (w *Writer) SetMultiline(key, value string) error {
	delim, err := delimiter(value)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(value, "\n") {
		value += "\n"
	}
	return w.append(fmt.Sprintf("%s<<%s\n%s%s\n", key, delim, value, delim))
}

func (w *Writer) file() string {
	if w.path != "" {
		return w.path
	}
	if path, ok := w.lookupEnv(OutputEnv); ok {
		return path
	}
	return ""
}

func (w *Writer) append(line string) error {
	path := w.file()
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening step output file: %w", err)
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("writing step output: %w", err)
	}
	return f.Close()
}

// delimiter picks a heredoc marker that does not occur in the value.
func delimiter(value string) (string, error) {
	for range 8 {
		var buf [8]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return "", fmt.Errorf("generating output delimiter: %w", err)
		}
		delim := "ghadelim_" + hex.EncodeToString(buf[:])
		if !strings.Contains(value, delim) {
			return delim, nil
		}
	}
	return "", fmt.Errorf("could not pick an output delimiter")
}
