// SPDX-License-Identifier: MPL-2.0

package flakefile

import (
	"encoding/json"
	"fmt"
	"os"
)

// lockDocument is the subset of the flake.lock JSON format the checker
// needs: input name to locked revision.
type lockDocument struct {
	Nodes map[string]struct {
		Locked struct {
			Rev string `json:"rev"`
		} `json:"locked"`
	} `json:"nodes"`
}

// LockedRev reads the pinned commit hash of the named flake input from a
// flake.lock file. Returns ErrVariantNotFound (wrapped) when the input has
// no node or no locked revision.
func LockedRev(lockPath, input string) (string, error) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return "", fmt.Errorf("reading flake lock: %w", err)
	}

	var doc lockDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("decoding flake lock: %w", err)
	}

	node, ok := doc.Nodes[input]
	if !ok || node.Locked.Rev == "" {
		return "", &VariantError{Variant: input, Cause: ErrVariantNotFound}
	}
	return node.Locked.Rev, nil
}
