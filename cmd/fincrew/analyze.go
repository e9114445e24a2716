// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jllopis/fincrew/internal/app"
	"github.com/jllopis/fincrew/pkg/agent"
	"github.com/jllopis/fincrew/pkg/store"
)

func newAnalyzeCmd(flags *globalFlags) *cobra.Command {
	var (
		file  string
		query string
		user  string
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a financial document",
		Long: `Copy the document into the data directory, run the analyst, advisor and
risk assessor stages over it and store the result for the user.`,
		Example: `  fincrew analyze --file q3-report.pdf --user alice
  fincrew analyze --file q3-report.pdf --user alice --query "Is the dividend safe?"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withApp(cmd.Context(), func(a *app.App) error {
				rec, err := a.Analyze(cmd.Context(), app.AnalyzeRequest{
					Username:   user,
					Query:      query,
					SourcePath: file,
				})
				if err != nil {
					return err
				}
				if flags.JSON {
					return writeJSON(cmd.OutOrStdout(), rec)
				}
				printRecord(cmd, rec)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "document to analyze (PDF, .txt or .md)")
	cmd.Flags().StringVarP(&query, "query", "q", app.DefaultQuery, "question to guide the analysis")
	cmd.Flags().StringVarP(&user, "user", "u", "", "user the result is stored for")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func printRecord(cmd *cobra.Command, rec store.Record) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", mutedColor.Sprint("id:"), rec.ID)
	fmt.Fprintf(out, "%s %s\n", mutedColor.Sprint("query:"), rec.Query)
	fmt.Fprintf(out, "%s %s\n", mutedColor.Sprint("file:"), rec.FilePath)
	fmt.Fprintf(out, "%s %s\n\n", mutedColor.Sprint("created:"), rec.CreatedAt.Local().Format("2006-01-02 15:04:05"))

	sections := []struct {
		title string
		body  string
	}{
		{"Financial analysis", rec.Analysis.FinancialAnalysis},
		{"Investment advising", rec.Analysis.InvestmentAdvising},
		{"Risk assessment", rec.Analysis.RiskAssessment},
	}
	for _, s := range sections {
		printHeading(cmd, s.title)
		if s.body == agent.UnreadableDocument || s.body == agent.NoPreviousAnalysis {
			fmt.Fprintln(out, warnColor.Sprint(s.body))
		} else {
			fmt.Fprintln(out, s.body)
		}
		fmt.Fprintln(out)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
