// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/SolidRhino/t2-kernel/internal/issue"
)

// explainTopics maps CLI topic names to the failure explainers they render.
var explainTopics = map[string]issue.Id{
	"feed":         issue.FeedFetchFailedId,
	"flake":        issue.FlakeParseErrorId,
	"variant":      issue.VariantNotFoundId,
	"prefetch":     issue.HashPrefetchFailedId,
	"nix":          issue.NixNotFoundId,
	"build":        issue.NixBuildFailedId,
	"cachix":       issue.CachixNotFoundId,
	"cachix-auth":  issue.CachixAuthMissingId,
	"config":       issue.ConfigLoadFailedId,
	"github-limit": issue.GitHubRateLimitedId,
	"hook":         issue.HookFailedId,
}

var explainCmd = &cobra.Command{
	Use:   "explain [topic]",
	Short: "Explain a failure and how to fix it",
	Long: `Render the troubleshooting guide for a known failure.

Without an argument, lists the available topics.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			listExplainTopics(cmd.OutOrStdout())
			return nil
		}
		return runExplain(cmd.OutOrStdout(), args[0])
	},
}

func listExplainTopics(out io.Writer) {
	topics := make([]string, 0, len(explainTopics))
	for name := range explainTopics {
		topics = append(topics, name)
	}
	sort.Strings(topics)

	fmt.Fprintln(out, TitleStyle.Render("Topics"))
	for _, name := range topics {
		fmt.Fprintf(out, "  %s\n", VersionStyle.Render(name))
	}
}

func runExplain(out io.Writer, topic string) error {
	id, ok := explainTopics[topic]
	if !ok {
		return fmt.Errorf("unknown topic %q, run 't2kernel explain' for the list", topic)
	}

	rendered, err := issue.Get(id).Render("dark")
	if err != nil {
		return err
	}
	fmt.Fprint(out, rendered)
	return nil
}
