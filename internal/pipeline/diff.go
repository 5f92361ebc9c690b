// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"github.com/pmezard/go-difflib/difflib"
)

// unifiedDiff renders the dry-run preview of a flake rewrite. An empty
// string means nothing would change.
func unifiedDiff(path, before, after string) string {
	if before == after {
		return ""
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: path,
		ToFile:   path,
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return diff
}
