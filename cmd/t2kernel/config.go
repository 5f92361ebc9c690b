// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SolidRhino/t2-kernel/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage t2kernel configuration",
	Long: `Manage t2kernel configuration.

Configuration is stored in:
  - Linux: ~/.config/t2kernel/config.cue
  - macOS: ~/Library/Application Support/t2kernel/config.cue
  - Windows: %APPDATA%\t2kernel\config.cue`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), cmd.OutOrStdout())
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd.OutOrStdout())
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath(cmd.Context(), cmd.OutOrStdout())
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output raw configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), config.GenerateCUE(cfg))
			return nil
		},
	})
}

func showConfig(ctx context.Context, out io.Writer) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, TitleStyle.Render("Configuration"))
	if path := config.LoadedPath(); path != "" {
		fmt.Fprintf(out, "  %s %s\n", SubtitleStyle.Render("source:"), path)
	} else {
		fmt.Fprintf(out, "  %s %s\n", SubtitleStyle.Render("source:"), "built-in defaults")
	}
	fmt.Fprintf(out, "  %s %s\n", SubtitleStyle.Render("flake:"), cfg.Flake)
	fmt.Fprintf(out, "  %s %s\n", SubtitleStyle.Render("lock:"), cfg.LockPath())
	fmt.Fprintf(out, "  %s %s\n", SubtitleStyle.Render("cache:"), cfg.Cache.Name)
	if len(cfg.Cache.Exclude) > 0 {
		fmt.Fprintf(out, "  %s %s\n", SubtitleStyle.Render("exclude:"), strings.Join(cfg.Cache.Exclude, ", "))
	}
	if cfg.Schedule != "" {
		fmt.Fprintf(out, "  %s %s\n", SubtitleStyle.Render("schedule:"), cfg.Schedule)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, TitleStyle.Render("Variants"))
	for _, vc := range cfg.Variants {
		switch vc.Kind {
		case config.VariantKindKernel:
			series := vc.Series
			if series == "" {
				series = "latest stable"
			}
			fmt.Fprintf(out, "  %s %s (%s)\n",
				VersionStyle.Render(vc.Name), SubtitleStyle.Render("kernel"), series)
		case config.VariantKindInput:
			branch := vc.Branch
			if branch == "" {
				branch = "master"
			}
			fmt.Fprintf(out, "  %s %s (%s/%s@%s)\n",
				VersionStyle.Render(vc.Name), SubtitleStyle.Render("input"),
				vc.Owner, vc.Repo, branch)
		}
	}
	return nil
}

func initConfig(out io.Writer) error {
	if err := config.CreateDefaultConfig(); err != nil {
		return err
	}

	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s created %s\n",
		SuccessStyle.Render("✓"), filepath.Join(dir, "config.cue"))
	return nil
}

func showConfigPath(ctx context.Context, out io.Writer) error {
	// A load (even a failed one) records which file was picked up.
	if _, err := config.Load(ctx); err != nil {
		return err
	}
	if path := config.LoadedPath(); path != "" {
		fmt.Fprintln(out, path)
		return nil
	}

	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, SubtitleStyle.Render("no config file found, would use: ")+filepath.Join(dir, "config.cue"))
	return nil
}
