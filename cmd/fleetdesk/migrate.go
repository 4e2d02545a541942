/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tomoncle/fleetdesk/database"
)

func newMigrateCmd(a *app) *cobra.Command {
	var (
		status   bool
		rollback string
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			mgr, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = mgr.Disconnect() }()
			mm := a.migrations(mgr)

			switch {
			case rollback != "":
				if err := mm.Rollback(ctx, rollback); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rolled back %s\n", rollback)
				return nil
			case !status:
				if err := mm.RunMigrations(ctx); err != nil {
					return err
				}
			}
			statuses, err := mm.Status(ctx)
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), statuses)
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "only print migration status")
	cmd.Flags().StringVar(&rollback, "rollback", "", "roll back the given migration version")
	return cmd
}

func printStatus(out io.Writer, statuses []database.MigrationStatus) {
	applied := color.New(color.FgGreen).SprintFunc()
	pending := color.New(color.FgYellow).SprintFunc()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tSTATE\tAPPLIED AT")
	for _, s := range statuses {
		state, at := pending("pending"), "-"
		if s.Applied {
			state, at = applied("applied"), s.AppliedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Version, s.Name, state, at)
	}
	_ = w.Flush()
}
