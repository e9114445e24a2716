// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jllopis/fincrew/internal/app"
	"github.com/jllopis/fincrew/pkg/crew"
)

func newPipelineCmd(flags *globalFlags) *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Show the configured pipeline stages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withApp(cmd.Context(), func(a *app.App) error {
				p := a.Pipeline()
				switch {
				case flags.JSON:
					return writeJSON(cmd.OutOrStdout(), p)
				case asYAML:
					data, err := crew.MarshalYAML(p)
					if err != nil {
						return err
					}
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}

				out := cmd.OutOrStdout()
				printHeading(cmd, p.Name)
				for i, s := range p.Stages {
					fmt.Fprintf(out, "%s %s %s\n",
						okColor.Sprintf("%d.", i+1),
						s.Agent,
						mutedColor.Sprintf("[%s]", strings.Join(s.Tools, ", ")),
					)
					fmt.Fprintf(out, "   %s\n", s.Description)
					if s.ExpectedOutput != "" {
						fmt.Fprintf(out, "   %s %s\n", mutedColor.Sprint("expects:"), s.ExpectedOutput)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the pipeline as YAML")
	return cmd
}
