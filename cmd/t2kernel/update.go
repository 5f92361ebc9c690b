// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/SolidRhino/t2-kernel/internal/pipeline"
)

var (
	updateDryRun   bool
	updateVariants []string

	updateCmd = &cobra.Command{
		Use:   "update",
		Short: "Patch the flake pins of variants with newer upstreams",
		Long: `Update the version pins of all variants (or the selected subset)
that have a newer upstream release.

Kernel variants get their version, url and hash fields rewritten in
flake.nix after the new source tarball has been downloaded and hashed.
Flake input variants are advanced through 'nix flake update <input>'.

With --dry-run the rewritten flake is diffed against the current one
and nothing is written.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd.Context(), cmd.OutOrStdout(), pipeline.UpdateOptions{
				DryRun:   updateDryRun,
				Variants: updateVariants,
			})
		},
	}
)

func init() {
	updateCmd.Flags().BoolVarP(&updateDryRun, "dry-run", "n", false, "show what would change without writing anything")
	updateCmd.Flags().StringSliceVar(&updateVariants, "variant", nil, "restrict the update to the named variant (repeatable)")
}

func runUpdate(ctx context.Context, out io.Writer, opts pipeline.UpdateOptions) error {
	p, _, err := loadPipeline(ctx)
	if err != nil {
		return err
	}

	report, err := p.Update(ctx, opts)
	if err != nil {
		return err
	}

	printOutcomes(out, report, opts.DryRun)

	if opts.DryRun && report.Diff != "" {
		fmt.Fprintln(out)
		fmt.Fprint(out, report.Diff)
	}

	if opts.DryRun {
		return nil
	}
	return writeUpdateOutputs(report)
}
