// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	_ "embed"
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

//go:embed usage.md
var usageDoc string

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Show the usage guide",
	Long:  "Render the full usage guide in the terminal.",
	RunE: func(cmd *cobra.Command, args []string) error {
		rendered, err := glamour.Render(usageDoc, "dark")
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), rendered)
		return nil
	},
}
