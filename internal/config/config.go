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

// Package config loads fleetdesk settings from defaults, an optional YAML
// file and FLEETDESK_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/tomoncle/fleetdesk/database"
	"github.com/tomoncle/fleetdesk/internal/notify"
	"github.com/tomoncle/fleetdesk/utils"
)

// EnvPrefix prefixes every environment override, e.g. FLEETDESK_SERVER_PORT.
const EnvPrefix = "FLEETDESK"

type Config struct {
	Server   ServerConfig     `mapstructure:"server"`
	Database database.Config  `mapstructure:"database"`
	Log      utils.LogOptions `mapstructure:"log"`
	Notify   notify.Config    `mapstructure:"notify"`
}

type ServerConfig struct {
	Host            string          `mapstructure:"host"`
	Port            int             `mapstructure:"port"`
	Mode            string          `mapstructure:"mode"` // gin mode: debug, release, test
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig      `mapstructure:"cors"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

type CORSConfig struct {
	AllowOrigins []string      `mapstructure:"allow_origins"`
	MaxAge       time.Duration `mapstructure:"max_age"`
}

// RateLimitConfig bounds requests per client IP.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors.allow_origins", []string{"*"})
	v.SetDefault("server.cors.max_age", 12*time.Hour)
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.rps", 20.0)
	v.SetDefault("server.rate_limit.burst", 40)

	db := database.DefaultConfig()
	c := db.Connection
	v.SetDefault("database.connection.type", c.Type)
	v.SetDefault("database.connection.dsn", c.DSN)
	v.SetDefault("database.connection.host", "localhost")
	v.SetDefault("database.connection.port", 0)
	v.SetDefault("database.connection.username", "")
	v.SetDefault("database.connection.password", "")
	v.SetDefault("database.connection.dbname", c.DBName)
	v.SetDefault("database.connection.sslmode", "disable")
	v.SetDefault("database.connection.max_idle_conns", c.MaxIdleConns)
	v.SetDefault("database.connection.max_open_conns", c.MaxOpenConns)
	v.SetDefault("database.connection.conn_max_lifetime", c.ConnMaxLifetime)
	v.SetDefault("database.connection.conn_max_idle_time", c.ConnMaxIdleTime)
	v.SetDefault("database.connection.connect_timeout", c.ConnectTimeout)
	v.SetDefault("database.connection.read_timeout", c.ReadTimeout)
	v.SetDefault("database.connection.write_timeout", c.WriteTimeout)
	v.SetDefault("database.connection.enable_reconnect", c.EnableReconnect)
	v.SetDefault("database.connection.reconnect_interval", c.ReconnectInterval)
	v.SetDefault("database.connection.max_reconnect_tries", c.MaxReconnectTries)
	v.SetDefault("database.connection.health_check_interval", c.HealthCheckInterval)
	v.SetDefault("database.connection.enable_query_log", c.EnableQueryLog)
	v.SetDefault("database.connection.slow_query_time", c.SlowQueryTime)
	v.SetDefault("database.migrate.on_startup", db.Migrate.OnStartup)
	v.SetDefault("database.migrate.foreign_keys", db.Migrate.ForeignKeys)
	v.SetDefault("database.seed.on_migration", db.Seed.OnMigration)
	v.SetDefault("database.seed.path", db.Seed.Path)
	v.SetDefault("database.seed.environment", db.Seed.Environment)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.console_format", "text")
	v.SetDefault("log.file_enabled", false)
	v.SetDefault("log.file_dir", "logs")
	v.SetDefault("log.file_format", "json")
	v.SetDefault("log.file_max_age_days", 7)

	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.url", "nats://127.0.0.1:4222")
	v.SetDefault("notify.subject_prefix", "fleetdesk")
	v.SetDefault("notify.name", "fleetdesk")
	v.SetDefault("notify.timeout", 2*time.Second)
}

// New returns a viper instance with defaults and environment binding. When
// file is empty fleetdesk.yaml is looked up in . and ./configs.
func New(file string) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("fleetdesk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration. A missing default file is not an error; a
// missing explicit file is.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || v.ConfigFileUsed() != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}
