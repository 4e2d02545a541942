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
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tomoncle/fleetdesk/database"
	"github.com/tomoncle/fleetdesk/internal/config"
	_ "github.com/tomoncle/fleetdesk/internal/entity"
	"github.com/tomoncle/fleetdesk/utils"
)

// app carries the state shared by the subcommands of one invocation.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "fleetdesk",
		Short:        "Fleet and team management backend",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default ./fleetdesk.yaml or ./configs/fleetdesk.yaml)")
	root.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newSeedCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) load() error {
	cfg, err := config.Load(config.New(a.cfgFile))
	if err != nil {
		return err
	}
	utils.ConfigureLogging(cfg.Log)
	a.cfg = cfg
	a.logger = utils.NewLogger("FLEETDESK")
	return nil
}

// connect opens the configured database. The caller disconnects.
func (a *app) connect(ctx context.Context) (database.Manager, error) {
	mgr := database.NewManager(&a.cfg.Database.Connection)
	if err := mgr.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect %s database: %w", a.cfg.Database.Connection.Type, err)
	}
	return mgr, nil
}

func (a *app) migrations(mgr database.Manager) *database.MigrationManager {
	return database.NewMigrationManager(mgr.GetDB(), database.DefaultRegistry(), &a.cfg.Database, utils.NewLogger("MIGRATION"))
}
