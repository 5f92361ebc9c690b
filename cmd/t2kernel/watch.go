// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/SolidRhino/t2-kernel/internal/pipeline"
)

var (
	watchNoPush bool

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Run sync on the configured schedule",
		Long: `Run the full sync cycle on the cron schedule from the
configuration (default "0 6 * * *", daily at 06:00) and keep running
until interrupted. One cycle is also run immediately at startup.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd.OutOrStdout(), watchNoPush)
		},
	}
)

func init() {
	watchCmd.Flags().BoolVar(&watchNoPush, "no-push", false, "build but do not push to the binary cache")
}

func runWatch(ctx context.Context, out io.Writer, noPush bool) error {
	p, cfg, err := loadPipeline(ctx)
	if err != nil {
		return err
	}

	schedule := cfg.Schedule
	if schedule == "" {
		schedule = "0 6 * * *"
	}

	opts := pipeline.SyncOptions{NoPush: noPush}
	cycle := func() {
		report, err := p.Sync(ctx, opts)
		if err != nil {
			fmt.Fprintf(out, "%s sync failed: %v\n", WarningStyle.Render("!"), err)
			return
		}
		printOutcomes(out, report.Update, false)
	}

	// Run once immediately so a freshly started watcher does not sit idle
	// until the next scheduled slot.
	fmt.Fprintf(out, "%s initial sync\n", VersionStyle.Render("→"))
	cycle()

	c := cron.New()
	if _, err := c.AddFunc(schedule, cycle); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	fmt.Fprintf(out, "\n%s watching on schedule %q (Ctrl+C to stop)...\n",
		VersionStyle.Render("→"), schedule)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
