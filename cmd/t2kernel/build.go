// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var (
	buildVariants []string

	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Build the kernel variants",
		Long: `Build the configured kernel variants (or the selected subset)
through 'nix build' and print the resulting store paths.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), cmd.OutOrStdout(), buildVariants)
		},
	}
)

func init() {
	buildCmd.Flags().StringSliceVar(&buildVariants, "variant", nil, "restrict the build to the named variant (repeatable)")
}

func runBuild(ctx context.Context, out io.Writer, variants []string) error {
	p, _, err := loadPipeline(ctx)
	if err != nil {
		return err
	}

	set, err := p.Build(ctx, variants)
	if err != nil {
		return err
	}

	for _, path := range set.Paths {
		fmt.Fprintln(out, path)
	}
	return nil
}
