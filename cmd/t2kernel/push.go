// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var (
	pushVariants []string

	pushCmd = &cobra.Command{
		Use:   "push",
		Short: "Push built kernel artifacts to the binary cache",
		Long: `Build the configured kernel variants (a no-op when their store
paths already exist) and push the artifacts to the configured cachix
cache. Paths matching the configured exclude patterns are skipped.

Requires CACHIX_AUTH_TOKEN in the environment.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPush(cmd.Context(), cmd.OutOrStdout(), pushVariants)
		},
	}
)

func init() {
	pushCmd.Flags().StringSliceVar(&pushVariants, "variant", nil, "restrict the push to the named variant (repeatable)")
}

func runPush(ctx context.Context, out io.Writer, variants []string) error {
	p, cfg, err := loadPipeline(ctx)
	if err != nil {
		return err
	}

	set, err := p.Build(ctx, variants)
	if err != nil {
		return err
	}
	if len(set.Paths) == 0 {
		fmt.Fprintln(out, SubtitleStyle.Render("nothing to push"))
		return nil
	}

	if err := p.Push(ctx, set); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s pushed %d path(s) to %s\n",
		SuccessStyle.Render("✓"), len(set.Paths), VersionStyle.Render(cfg.Cache.Name))
	return nil
}
