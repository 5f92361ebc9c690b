// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check all variants for newer upstream releases",
	Long: `Check all configured variants against their upstream sources.

Kernel variants are compared against the kernel.org release feed,
flake input variants against the head of their tracked GitHub branch.
Nothing is modified; the exit code is 0 whether or not updates exist.

When run inside a GitHub Actions workflow, the results are also
published as step outputs ('updated' and 'versions').`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd.Context(), cmd.OutOrStdout())
	},
}

func runCheck(ctx context.Context, out io.Writer) error {
	p, _, err := loadPipeline(ctx)
	if err != nil {
		return err
	}

	results, err := p.Check(ctx)
	if err != nil {
		return err
	}

	for _, res := range results {
		fmt.Fprintln(out, formatCheckResult(res))
	}

	return writeCheckOutputs(results)
}
