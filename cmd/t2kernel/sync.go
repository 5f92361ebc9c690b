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
	syncDryRun bool
	syncNoPush bool

	syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Update, build and push in one run",
		Long: `Run the full cycle: update every variant whose upstream moved,
build the affected kernel variants, and push the artifacts to the
binary cache.

With --dry-run the run stops after previewing the flake rewrite.
With --no-push the artifacts are built but not uploaded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), cmd.OutOrStdout(), pipeline.SyncOptions{
				DryRun: syncDryRun,
				NoPush: syncNoPush,
			})
		},
	}
)

func init() {
	syncCmd.Flags().BoolVarP(&syncDryRun, "dry-run", "n", false, "preview the flake rewrite without applying it")
	syncCmd.Flags().BoolVar(&syncNoPush, "no-push", false, "build but do not push to the binary cache")
}

func runSync(ctx context.Context, out io.Writer, opts pipeline.SyncOptions) error {
	p, cfg, err := loadPipeline(ctx)
	if err != nil {
		return err
	}

	report, err := p.Sync(ctx, opts)
	if err != nil {
		return err
	}

	printOutcomes(out, report.Update, opts.DryRun)

	if opts.DryRun {
		if report.Update.Diff != "" {
			fmt.Fprintln(out)
			fmt.Fprint(out, report.Update.Diff)
		}
		return nil
	}

	if len(report.Artifacts.Paths) > 0 {
		fmt.Fprintf(out, "%s built %d path(s)\n",
			SuccessStyle.Render("✓"), len(report.Artifacts.Paths))
	}
	if report.Pushed {
		fmt.Fprintf(out, "%s pushed to %s\n",
			SuccessStyle.Render("✓"), VersionStyle.Render(cfg.Cache.Name))
	}

	return writeUpdateOutputs(report.Update)
}
