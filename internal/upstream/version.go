// SPDX-License-Identifier: MPL-2.0

package upstream

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrInvalidVersion indicates a version string that cannot be interpreted as
// a dotted release version (e.g. "6.6.63" or "6.13-rc2").
var ErrInvalidVersion = errors.New("invalid version string")

// Normalize converts a kernel-style release version ("6.6.63", "v6.12",
// "6.13-rc2") into canonical semver form with a "v" prefix, suitable for
// comparison with the semver package. Returns ErrInvalidVersion when the
// input does not parse.
func Normalize(v string) (string, error) {
	trimmed := strings.TrimSpace(v)
	trimmed = strings.TrimPrefix(trimmed, "v")
	trimmed = strings.TrimPrefix(trimmed, "V")
	if trimmed == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersion, v)
	}

	norm := "v" + trimmed
	if !semver.IsValid(norm) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersion, v)
	}
	return norm, nil
}

// Compare orders two release versions under version-sort semantics, so that
// "6.6.9" < "6.6.10". Returns -1, 0, or +1. Versions that fail to normalize
// sort before every valid version; two invalid versions compare equal.
func Compare(a, b string) int {
	na, errA := Normalize(a)
	nb, errB := Normalize(b)

	switch {
	case errA != nil && errB != nil:
		return 0
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	}

	return semver.Compare(na, nb)
}

// IsNewer reports whether candidate is strictly newer than current under
// version-sort ordering. An unparseable candidate is never newer.
func IsNewer(candidate, current string) bool {
	if _, err := Normalize(candidate); err != nil {
		return false
	}
	return Compare(candidate, current) > 0
}

// InSeries reports whether version belongs to the given release series
// prefix, compared component-wise: "6.6.63" is in series "6.6", but
// "6.61.2" is not. An empty series matches every version.
func InSeries(version, series string) bool {
	if series == "" {
		return true
	}

	vparts := splitComponents(version)
	sparts := splitComponents(series)
	if len(sparts) > len(vparts) {
		return false
	}

	for i, s := range sparts {
		if vparts[i] != s {
			return false
		}
	}
	return true
}

// MaxInSeries returns the highest version (under version-sort ordering)
// among versions that belong to the given series. The second return value
// is false when no candidate matches.
func MaxInSeries(versions []string, series string) (string, bool) {
	best := ""
	found := false

	for _, v := range versions {
		if _, err := Normalize(v); err != nil {
			continue
		}
		if !InSeries(v, series) {
			continue
		}
		if !found || Compare(v, best) > 0 {
			best = v
			found = true
		}
	}

	return best, found
}

// Major returns the leading numeric component of a version ("6.6.63" -> "6").
// Used to derive kernel.org directory names like "v6.x".
func Major(version string) string {
	parts := splitComponents(version)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// splitComponents splits a version into dot-separated components after
// stripping any "v" prefix and pre-release suffix.
func splitComponents(v string) []string {
	trimmed := strings.TrimSpace(v)
	trimmed = strings.TrimPrefix(trimmed, "v")
	if i := strings.IndexAny(trimmed, "-+"); i >= 0 {
		trimmed = trimmed[:i]
	}
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, ".")
}
