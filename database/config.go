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
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
)

// Manager owns a single Bun connection and its lifecycle.
type Manager interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Reconnect(ctx context.Context) error
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) *HealthStatus
	GetDB() *bun.DB
	GetSQLDB() *sql.DB
	GetStats() *DBStats
	SetLogger(logger logrus.FieldLogger)
}

// HealthStatus holds the result of a health check against the database.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int           `json:"active_conns"`
	IdleConns     int           `json:"idle_conns"`
	MaxOpenConns  int           `json:"max_open_conns"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats mirrors database/sql stats returned by the manager.
type DBStats struct {
	MaxOpenConns      int           `json:"max_open_conns"`
	OpenConns         int           `json:"open_conns"`
	InUse             int           `json:"in_use"`
	Idle              int           `json:"idle"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	MaxIdleClosed     int64         `json:"max_idle_closed"`
	MaxIdleTimeClosed int64         `json:"max_idle_time_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed"`
}

// ConnectionConfig describes how to connect to a database and tune its pool.
type ConnectionConfig struct {
	Type                string        `mapstructure:"type"` // postgres, mysql, sqlite
	DSN                 string        `mapstructure:"dsn"`  // overrides the fields below when set
	Host                string        `mapstructure:"host"`
	Port                int           `mapstructure:"port"`
	Username            string        `mapstructure:"username"`
	Password            string        `mapstructure:"password"`
	DBName              string        `mapstructure:"dbname"`
	SSLMode             string        `mapstructure:"sslmode"`
	MaxIdleConns        int           `mapstructure:"max_idle_conns"`
	MaxOpenConns        int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime     time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime     time.Duration `mapstructure:"conn_max_idle_time"`
	ConnectTimeout      time.Duration `mapstructure:"connect_timeout"`
	ReadTimeout         time.Duration `mapstructure:"read_timeout"`
	WriteTimeout        time.Duration `mapstructure:"write_timeout"`
	EnableReconnect     bool          `mapstructure:"enable_reconnect"`
	ReconnectInterval   time.Duration `mapstructure:"reconnect_interval"`
	MaxReconnectTries   int           `mapstructure:"max_reconnect_tries"`
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval"`
	EnableQueryLog      bool          `mapstructure:"enable_query_log"`
	SlowQueryTime       time.Duration `mapstructure:"slow_query_time"`
}

// MigrateConfig controls schema migration.
type MigrateConfig struct {
	OnStartup   bool `mapstructure:"on_startup"`
	ForeignKeys bool `mapstructure:"foreign_keys"`
}

// SeedConfig selects the SQL seed files to run.
type SeedConfig struct {
	OnMigration bool   `mapstructure:"on_migration"`
	Path        string `mapstructure:"path"`
	Environment string `mapstructure:"environment"`
}

// Config aggregates connection, migration and seed settings.
type Config struct {
	Connection ConnectionConfig `mapstructure:"connection"`
	Migrate    MigrateConfig    `mapstructure:"migrate"`
	Seed       SeedConfig       `mapstructure:"seed"`
}

// DefaultConnectionConfig returns a connection config with sensible defaults.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		Type:                "sqlite",
		DBName:              "fleetdesk",
		MaxIdleConns:        10,
		MaxOpenConns:        100,
		ConnMaxLifetime:     time.Hour,
		ConnMaxIdleTime:     time.Minute * 30,
		ConnectTimeout:      time.Second * 10,
		ReadTimeout:         time.Second * 30,
		WriteTimeout:        time.Second * 30,
		EnableReconnect:     true,
		ReconnectInterval:   time.Second * 5,
		MaxReconnectTries:   3,
		HealthCheckInterval: time.Minute * 5,
		SlowQueryTime:       time.Second * 2,
	}
}

// DefaultConfig returns the full database configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		Connection: *DefaultConnectionConfig(),
		Migrate:    MigrateConfig{OnStartup: true, ForeignKeys: true},
		Seed:       SeedConfig{Path: "configs/sql", Environment: "development"},
	}
}
