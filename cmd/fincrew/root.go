// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jllopis/fincrew/internal/app"
	"github.com/jllopis/fincrew/pkg/config"
)

type globalFlags struct {
	ConfigPath string
	Profile    string
	Overrides  []string
	JSON       bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "fincrew",
		Short: "Multi-agent financial document analyzer",
		Long: `fincrew runs a fixed three-stage pipeline over a financial document:
a financial analyst reads the document, an investment advisor builds on that analysis,
and a risk assessor reviews the document again for risks.

Results are stored per user and can be listed with 'fincrew history'.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&flags.Profile, "profile", "", "config profile overlay (dev, prod, ...)")
	root.PersistentFlags().StringArrayVar(&flags.Overrides, "set", nil, "override a config key (key=value), repeatable")
	root.PersistentFlags().BoolVar(&flags.JSON, "json", false, "print machine-readable JSON")

	root.AddCommand(newAnalyzeCmd(flags))
	root.AddCommand(newHistoryCmd(flags))
	root.AddCommand(newPipelineCmd(flags))
	root.AddCommand(newVersionCmd())
	return root
}

func (g *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithOptions(config.Options{
		Path:      g.ConfigPath,
		Profile:   g.Profile,
		Overrides: g.Overrides,
	})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// withApp builds the application, runs fn and always closes it.
func (g *globalFlags) withApp(ctx context.Context, fn func(*app.App) error) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(shutdownCtx); err != nil {
			a.Logger().Warn("shutdown", "error", err)
		}
	}()
	return fn(a)
}

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	mutedColor   = color.New(color.FgHiBlack)
	okColor      = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
)

func printHeading(cmd *cobra.Command, title string) {
	fmt.Fprintln(cmd.OutOrStdout(), headingColor.Sprint(title))
}
