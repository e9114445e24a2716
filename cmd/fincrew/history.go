// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jllopis/fincrew/internal/app"
	"github.com/jllopis/fincrew/pkg/telemetry"
)

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var (
		user string
		id   string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored analyses for a user, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withApp(cmd.Context(), func(a *app.App) error {
				if id != "" {
					rec, err := a.Result(cmd.Context(), user, id)
					if err != nil {
						return err
					}
					if flags.JSON {
						return writeJSON(cmd.OutOrStdout(), rec)
					}
					printRecord(cmd, rec)
					return nil
				}

				records, err := a.History(cmd.Context(), user)
				if err != nil {
					return err
				}
				if flags.JSON {
					return writeJSON(cmd.OutOrStdout(), records)
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), mutedColor.Sprintf("No analyses stored for %s.", user))
					return nil
				}

				printHeading(cmd, fmt.Sprintf("Analyses for %s", user))
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tCREATED\tQUERY\tFILE")
				for _, rec := range records {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
						rec.ID,
						rec.CreatedAt.Local().Format("2006-01-02 15:04"),
						telemetry.Truncate(rec.Query, 48),
						rec.FilePath,
					)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "user whose analyses to list")
	cmd.Flags().StringVar(&id, "id", "", "show a single analysis in full")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
