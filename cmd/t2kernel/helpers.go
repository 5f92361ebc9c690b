// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/SolidRhino/t2-kernel/internal/checker"
	"github.com/SolidRhino/t2-kernel/internal/config"
	"github.com/SolidRhino/t2-kernel/internal/ghaction"
	"github.com/SolidRhino/t2-kernel/internal/pipeline"
)

// loadPipeline loads the effective configuration and builds the pipeline on
// top of it. Commands fail hard on a broken configuration rather than
// running against defaults.
func loadPipeline(ctx context.Context) (*pipeline.Pipeline, *config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	return pipeline.New(cfg), cfg, nil
}

// formatCheckResult renders one check result as a status line.
func formatCheckResult(res checker.Result) string {
	switch {
	case res.Err != nil:
		return fmt.Sprintf("%s %s: check failed: %v",
			WarningStyle.Render("!"), res.Variant, res.Err)
	case res.Updated():
		return fmt.Sprintf("%s %s: %s -> %s",
			SuccessStyle.Render("↑"), res.Variant,
			VerboseStyle.Render(shortValue(res.Current)),
			VersionStyle.Render(shortValue(res.Latest)))
	default:
		return fmt.Sprintf("%s %s: %s (up to date)",
			SubtitleStyle.Render("="), res.Variant,
			VerboseStyle.Render(shortValue(res.Current)))
	}
}

// shortValue truncates commit hashes for display; versions pass through.
func shortValue(v string) string {
	if len(v) == 40 && !strings.Contains(v, ".") {
		return v[:12]
	}
	return v
}

// writeCheckOutputs publishes check results as CI step outputs when the
// process runs inside a workflow. A no-op otherwise.
func writeCheckOutputs(results []checker.Result) error {
	w := ghaction.NewWriter()
	if !w.Enabled() {
		return nil
	}

	updated := false
	var lines []string
	for _, res := range results {
		if res.Updated() {
			updated = true
			lines = append(lines, fmt.Sprintf("%s=%s", res.Variant, res.Latest))
		}
	}

	if err := w.Set("updated", strconv.FormatBool(updated)); err != nil {
		return err
	}
	if len(lines) > 0 {
		return w.SetMultiline("versions", strings.Join(lines, "\n"))
	}
	return nil
}

// writeUpdateOutputs publishes applied updates as CI step outputs.
func writeUpdateOutputs(report pipeline.UpdateReport) error {
	w := ghaction.NewWriter()
	if !w.Enabled() {
		return nil
	}

	applied := false
	var lines []string
	for _, o := range report.Outcomes {
		if o.Applied {
			applied = true
			lines = append(lines, fmt.Sprintf("%s=%s", o.Result.Variant, o.Result.Latest))
		}
	}

	if err := w.Set("updated", strconv.FormatBool(applied)); err != nil {
		return err
	}
	if len(lines) > 0 {
		return w.SetMultiline("versions", strings.Join(lines, "\n"))
	}
	return nil
}

// printOutcomes writes the per-variant update summary.
func printOutcomes(out io.Writer, report pipeline.UpdateReport, dryRun bool) {
	for _, o := range report.Outcomes {
		switch {
		case o.Result.Err != nil:
			fmt.Fprintf(out, "%s %s: %v\n", WarningStyle.Render("!"), o.Result.Variant, o.Result.Err)
		case o.Applied:
			fmt.Fprintf(out, "%s %s: %s -> %s\n",
				SuccessStyle.Render("↑"), o.Result.Variant,
				VerboseStyle.Render(shortValue(o.Result.Current)),
				VersionStyle.Render(shortValue(o.Result.Latest)))
		case dryRun && o.Result.Updated():
			fmt.Fprintf(out, "%s %s: would update %s -> %s\n",
				VersionStyle.Render("→"), o.Result.Variant,
				VerboseStyle.Render(shortValue(o.Result.Current)),
				VersionStyle.Render(shortValue(o.Result.Latest)))
		default:
			fmt.Fprintf(out, "%s %s: %s (up to date)\n",
				SubtitleStyle.Render("="), o.Result.Variant,
				VerboseStyle.Render(shortValue(o.Result.Current)))
		}
	}
}
