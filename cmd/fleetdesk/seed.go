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
	"os"

	"github.com/spf13/cobra"
	"github.com/tomoncle/fleetdesk/database"
	"github.com/tomoncle/fleetdesk/utils"
)

func newSeedCmd(a *app) *cobra.Command {
	var env, dir string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Run the SQL seed files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			seed := a.cfg.Database.Seed
			if env != "" {
				seed.Environment = env
			}
			if dir != "" {
				seed.Path = dir
			}
			ctx := cmd.Context()
			mgr, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = mgr.Disconnect() }()

			seeder := database.NewSeeder(os.DirFS(seed.Path), seed.Environment, utils.NewLogger("SEED"))
			results, err := seeder.Run(ctx, mgr.GetDB())
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d statements, %d rows, %s\n", r.File, r.Statements, r.RowsAffected, r.Duration)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&env, "env", "", "seed environment (defaults to database.seed.environment)")
	cmd.Flags().StringVar(&dir, "path", "", "seed root directory (defaults to database.seed.path)")
	return cmd
}
