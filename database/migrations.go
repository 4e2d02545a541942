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

package database

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// Migration is an applied migration record.
type Migration struct {
	bun.BaseModel `bun:"table:schema_migrations"`

	Version     string    `bun:"version,pk"`
	Name        string    `bun:"name,notnull"`
	AppliedAt   time.Time `bun:"applied_at,notnull"`
	Description string    `bun:"description"`
}

// MigrationFunc is a migration step executed within a transaction.
type MigrationFunc func(ctx context.Context, db bun.IDB) error

// MigrationItem describes a single migration version with up/down steps.
type MigrationItem struct {
	Version     string
	Name        string
	Description string
	Up          MigrationFunc
	Down        MigrationFunc
}

// MigrationStatus reports whether a known migration has been applied.
type MigrationStatus struct {
	Version     string
	Name        string
	Description string
	Applied     bool
	AppliedAt   time.Time
}

// MigrationManager creates the registered tables and records applied
// versions in schema_migrations.
type MigrationManager struct {
	db       *bun.DB
	registry ModelRegistry
	config   *Config
	logger   logrus.FieldLogger
}

// NewMigrationManager returns a manager over db. A nil registry uses the
// default one and a nil config uses DefaultConfig.
func NewMigrationManager(db *bun.DB, registry ModelRegistry, config *Config, logger logrus.FieldLogger) *MigrationManager {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MigrationManager{db: db, registry: registry, config: config, logger: logger}
}

// RunMigrations applies every pending migration in version order.
func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	if mm.db == nil {
		return fmt.Errorf("database not initialized")
	}
	if _, ok := os.LookupEnv("BUNDEBUG_MIGRATION"); !ok {
		SetSilent(true)
		defer SetSilent(false)
	}
	if err := mm.createMigrationTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	for _, migration := range mm.Migrations() {
		if err := mm.runMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", migration.Version, err)
		}
	}
	mm.logger.Info("database migrations completed")
	return nil
}

func (mm *MigrationManager) createMigrationTable(ctx context.Context) error {
	_, err := mm.db.NewCreateTable().
		Model((*Migration)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// Migrations lists the known migrations sorted by version.
func (mm *MigrationManager) Migrations() []MigrationItem {
	migrations := []MigrationItem{
		{
			Version:     "001",
			Name:        "create_base_tables",
			Description: "Create registered tables",
			Up:          mm.createBaseTables,
			Down:        mm.dropBaseTables,
		},
		{
			Version:     "002",
			Name:        "create_tenant_indexes",
			Description: "Index tenant_id on every tenant scoped table",
			Up:          mm.createTenantIndexes,
			Down:        mm.dropTenantIndexes,
		},
	}
	if mm.config.Seed.OnMigration {
		migrations = append(migrations, MigrationItem{
			Version:     "003",
			Name:        "seed_initial_data",
			Description: "Run SQL seed files",
			Up:          mm.seedInitialData,
		})
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations
}

func (mm *MigrationManager) runMigration(ctx context.Context, migration MigrationItem) error {
	exists, err := mm.db.NewSelect().
		Model((*Migration)(nil)).
		Where("version = ?", migration.Version).
		Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := migration.Up(ctx, tx); err != nil {
			return err
		}
		_, err := tx.NewInsert().
			Model(&Migration{
				Version:     migration.Version,
				Name:        migration.Name,
				AppliedAt:   time.Now(),
				Description: migration.Description,
			}).
			Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}
	mm.logger.WithFields(logrus.Fields{"version": migration.Version, "name": migration.Name}).Info("migration applied")
	return nil
}

// Rollback reverts an applied migration and removes its record.
func (mm *MigrationManager) Rollback(ctx context.Context, version string) error {
	var item *MigrationItem
	for _, m := range mm.Migrations() {
		if m.Version == version {
			m := m
			item = &m
			break
		}
	}
	if item == nil {
		return fmt.Errorf("unknown migration %s", version)
	}
	if item.Down == nil {
		return fmt.Errorf("migration %s cannot be rolled back", version)
	}
	return mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := item.Down(ctx, tx); err != nil {
			return err
		}
		_, err := tx.NewDelete().
			Model((*Migration)(nil)).
			Where("version = ?", version).
			Exec(ctx)
		return err
	})
}

// GetAppliedMigrations returns migration records ordered by version.
func (mm *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]Migration, error) {
	var migrations []Migration
	err := mm.db.NewSelect().
		Model(&migrations).
		Order("version ASC").
		Scan(ctx)
	return migrations, err
}

// Status joins the known migrations with the applied records.
func (mm *MigrationManager) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := mm.createMigrationTable(ctx); err != nil {
		return nil, err
	}
	applied, err := mm.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	byVersion := make(map[string]Migration, len(applied))
	for _, m := range applied {
		byVersion[m.Version] = m
	}
	known := mm.Migrations()
	statuses := make([]MigrationStatus, 0, len(known))
	for _, m := range known {
		status := MigrationStatus{Version: m.Version, Name: m.Name, Description: m.Description}
		if rec, ok := byVersion[m.Version]; ok {
			status.Applied = true
			status.AppliedAt = rec.AppliedAt
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func (mm *MigrationManager) createBaseTables(ctx context.Context, db bun.IDB) error {
	for _, model := range mm.registry.Instances() {
		q := db.NewCreateTable().Model(model).IfNotExists()
		if mm.config.Migrate.ForeignKeys {
			q = q.WithForeignKeys()
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table %s: %w", modelName(model), err)
		}
	}
	return nil
}

func (mm *MigrationManager) dropBaseTables(ctx context.Context, db bun.IDB) error {
	instances := mm.registry.Instances()
	for i := len(instances) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(instances[i]).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", modelName(instances[i]), err)
		}
	}
	return nil
}

func (mm *MigrationManager) tenantTables() []tenantTable {
	var tables []tenantTable
	for _, model := range mm.registry.Instances() {
		table := mm.db.Dialect().Tables().Get(structType(model))
		if _, ok := table.FieldMap["tenant_id"]; ok {
			tables = append(tables, tenantTable{model: model, index: "idx_" + table.Name + "_tenant"})
		}
	}
	return tables
}

type tenantTable struct {
	model interface{}
	index string
}

func (mm *MigrationManager) createTenantIndexes(ctx context.Context, db bun.IDB) error {
	mysql := db.Dialect().Name() == dialect.MySQL
	for _, t := range mm.tenantTables() {
		q := db.NewCreateIndex().Model(t.model).Index(t.index).Column("tenant_id")
		if !mysql {
			q = q.IfNotExists()
		}
		if _, err := q.Exec(ctx); err != nil {
			if ok, kind := IsSQLError(err); ok && kind == ExistIndexErr {
				continue
			}
			return fmt.Errorf("failed to create index %s: %w", t.index, err)
		}
	}
	return nil
}

func (mm *MigrationManager) dropTenantIndexes(ctx context.Context, db bun.IDB) error {
	for _, t := range mm.tenantTables() {
		if _, err := db.NewDropIndex().Model(t.model).Index(t.index).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop index %s: %w", t.index, err)
		}
	}
	return nil
}

func (mm *MigrationManager) seedInitialData(ctx context.Context, db bun.IDB) error {
	seeder := NewSeeder(os.DirFS(mm.config.Seed.Path), mm.config.Seed.Environment, mm.logger)
	_, err := seeder.Run(ctx, db)
	return err
}

func structType(model interface{}) reflect.Type {
	t := reflect.TypeOf(model)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func modelName(model interface{}) string {
	return structType(model).Name()
}
