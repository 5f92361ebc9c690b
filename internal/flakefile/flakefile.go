// SPDX-License-Identifier: MPL-2.0

package flakefile

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	// ErrVariantNotFound is returned when the named variant block does not
	// exist in the flake file.
	ErrVariantNotFound = errors.New("variant not found in flake")

	// ErrFieldNotFound is returned when a variant block lacks the field a
	// patch wants to rewrite.
	ErrFieldNotFound = errors.New("field not found in variant block")
)

var (
	// blockOpenRe matches the opening line of a named attribute set, e.g.
	// `lts = {`.
	blockOpenRe = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_'-]*)\s*=\s*\{`)

	// fieldRe matches a string-valued attribute, e.g. `version = "6.6.63";`.
	// Capture groups: indent+name+assign prefix, value, suffix.
	fieldRe = regexp.MustCompile(`^(\s*([A-Za-z_][A-Za-z0-9_]*)\s*=\s*")([^"]*)("\s*;.*)$`)
)

type (
	// Record is one pinned kernel variant as read from the flake file.
	Record struct {
		Name    string
		Version string
		URL     string
		Hash    string
	}

	// Update holds the replacement values for a patch. Empty fields are
	// left untouched.
	Update struct {
		Version string
		URL     string
		Hash    string
	}

	// VariantError carries the variant (and optionally field) a failed
	// lookup was about. It wraps ErrVariantNotFound or ErrFieldNotFound so
	// callers can classify with errors.Is.
	VariantError struct {
		Variant string
		Field   string
		Cause   error
	}

	// File is a parsed flake file. Parsing is line-structured: every byte
	// that a patch does not explicitly rewrite survives serialization
	// unchanged, so an untouched file round-trips byte-for-byte.
	File struct {
		path     string
		lines    []string
		modified bool
	}
)

// Error formats the lookup failure.
func (e *VariantError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("variant %q: field %q: %v", e.Variant, e.Field, e.Cause)
	}
	return fmt.Sprintf("variant %q: %v", e.Variant, e.Cause)
}

// Unwrap returns the wrapped sentinel for errors.Is classification.
func (e *VariantError) Unwrap() error { return e.Cause }

// Load reads and parses the flake file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading flake file: %w", err)
	}
	f := Parse(data)
	f.path = path
	return f, nil
}

// Parse parses flake source held in memory. Used by tests and dry runs.
func Parse(src []byte) *File {
	return &File{
		// Splitting on "\n" and re-joining reproduces the input exactly,
		// including a trailing newline (empty final element).
		lines: strings.Split(string(src), "\n"),
	}
}

// Path returns the file path this File was loaded from, if any.
func (f *File) Path() string { return f.path }

// Modified reports whether any patch changed the file content.
func (f *File) Modified() bool { return f.modified }

// Bytes serializes the file. Untouched lines are emitted exactly as read.
func (f *File) Bytes() []byte {
	return []byte(strings.Join(f.lines, "\n"))
}

// Save writes the (possibly patched) content back to the path the file was
// loaded from, preserving an 0644 mode.
func (f *File) Save() error {
	if f.path == "" {
		return errors.New("flake file has no backing path")
	}
	if err := os.WriteFile(f.path, f.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing flake file: %w", err)
	}
	return nil
}

// Record returns the version record of the named variant. The variant is
// located by its attribute name, never by line proximity.
func (f *File) Record(name string) (Record, error) {
	start, end, err := f.findBlock(name)
	if err != nil {
		return Record{}, err
	}

	rec := Record{Name: name}
	for _, idx := range f.fieldLines(start, end) {
		m := fieldRe.FindStringSubmatch(f.lines[idx])
		switch m[2] {
		case "version":
			rec.Version = m[3]
		case "url":
			rec.URL = m[3]
		case "hash", "sha256":
			rec.Hash = m[3]
		}
	}
	return rec, nil
}

// Records returns every variant block that carries a version field, in file
// order.
func (f *File) Records() []Record {
	var recs []Record
	for i := 0; i < len(f.lines); i++ {
		m := blockOpenRe.FindStringSubmatch(f.lines[i])
		if m == nil {
			continue
		}
		if _, _, ok := f.blockSpan(i); !ok {
			continue
		}
		rec, err := f.Record(m[1])
		if err == nil && rec.Version != "" {
			recs = append(recs, rec)
		}
	}
	return recs
}

// Patch rewrites the named variant's fields with the non-empty values of
// up. The hash line is matched by field name inside the variant's own
// block, so a renamed or reordered variant can never cause another
// variant's fields to be rewritten; it surfaces as ErrVariantNotFound or
// ErrFieldNotFound instead.
func (f *File) Patch(variant string, up Update) error {
	start, end, err := f.findBlock(variant)
	if err != nil {
		return err
	}

	type edit struct {
		field string
		value string
	}
	var edits []edit
	if up.Version != "" {
		edits = append(edits, edit{"version", up.Version})
	}
	if up.URL != "" {
		edits = append(edits, edit{"url", up.URL})
	}
	if up.Hash != "" {
		edits = append(edits, edit{"hash", up.Hash})
	}

	for _, e := range edits {
		idx, ok := f.findField(start, end, e.field)
		if !ok {
			return &VariantError{Variant: variant, Field: e.field, Cause: ErrFieldNotFound}
		}
		m := fieldRe.FindStringSubmatch(f.lines[idx])
		if m[3] == e.value {
			continue
		}
		f.lines[idx] = m[1] + e.value + m[4]
		f.modified = true
	}

	return nil
}

// findBlock locates the span of the named variant block. start is the index
// of the opening line, end the index of the line holding the closing brace.
func (f *File) findBlock(name string) (start, end int, err error) {
	for i := 0; i < len(f.lines); i++ {
		m := blockOpenRe.FindStringSubmatch(f.lines[i])
		if m == nil || m[1] != name {
			continue
		}
		s, e, ok := f.blockSpan(i)
		if !ok {
			break
		}
		return s, e, nil
	}
	return 0, 0, &VariantError{Variant: name, Cause: ErrVariantNotFound}
}

// blockSpan walks from the opening line at idx to the matching closing
// brace, tracking nesting depth.
func (f *File) blockSpan(idx int) (start, end int, ok bool) {
	depth := 0
	for i := idx; i < len(f.lines); i++ {
		depth += braceDelta(f.lines[i])
		if depth <= 0 && i > idx {
			return idx, i, true
		}
		if i == idx && depth == 0 {
			// Opening and closing brace on one line.
			return idx, idx, true
		}
	}
	return 0, 0, false
}

// fieldLines returns the indexes of direct field lines of the block spanning
// [start, end], skipping lines that belong to nested blocks.
func (f *File) fieldLines(start, end int) []int {
	var out []int
	depth := 0
	for i := start; i <= end && i < len(f.lines); i++ {
		if i > start && depth == 1 && fieldRe.MatchString(f.lines[i]) {
			out = append(out, i)
		}
		depth += braceDelta(f.lines[i])
	}
	return out
}

// findField returns the line index of the named direct field of the block.
func (f *File) findField(start, end int, field string) (int, bool) {
	for _, idx := range f.fieldLines(start, end) {
		m := fieldRe.FindStringSubmatch(f.lines[idx])
		name := m[2]
		if name == field {
			return idx, true
		}
		// Nix pins written before the SRI migration use `sha256 = "..."`;
		// treat it as the hash field.
		if field == "hash" && name == "sha256" {
			return idx, true
		}
	}
	return 0, false
}

// braceDelta counts opening minus closing braces outside double-quoted
// strings. Nix string interpolation inside pins is not expected here; the
// kernel pin blocks carry only literal strings.
func braceDelta(line string) int {
	delta := 0
	inString := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			if i == 0 || line[i-1] != '\\' {
				inString = !inString
			}
		case '{':
			if !inString {
				delta++
			}
		case '}':
			if !inString {
				delta--
			}
		}
	}
	return delta
}
