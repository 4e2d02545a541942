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
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/fleetdesk/utils"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

type defaultManager struct {
	config         *ConnectionConfig
	db             *bun.DB
	sqlDB          *sql.DB
	logger         logrus.FieldLogger
	mu             sync.RWMutex
	connected      bool
	lastError      error
	healthStatus   *HealthStatus
	reconnectTries int
	stopHealth     context.CancelFunc
}

// NewManager returns a Manager backed by Bun. A nil config uses
// DefaultConnectionConfig.
func NewManager(config *ConnectionConfig) Manager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	return &defaultManager{
		config:       config,
		logger:       utils.NewLogger("DATABASE"),
		healthStatus: &HealthStatus{},
	}
}

func (dm *defaultManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if err := dm.connectLocked(ctx); err != nil {
		return err
	}
	if dm.config.HealthCheckInterval > 0 && dm.stopHealth == nil {
		loopCtx, cancel := context.WithCancel(context.Background())
		dm.stopHealth = cancel
		go dm.healthLoop(loopCtx)
	}
	return nil
}

func (dm *defaultManager) connectLocked(ctx context.Context) error {
	if dm.connected && dm.db != nil {
		return nil
	}
	if dm.config.ConnectTimeout <= 0 {
		dm.config.ConnectTimeout = 30 * time.Second
	}

	sqlDB, db, err := openConnection(dm.config)
	if err != nil {
		dm.lastError = err
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	dm.sqlDB, dm.db = sqlDB, db
	dm.configurePool()
	dm.addHooks()

	pingCtx, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		dm.lastError = err
		_ = db.Close()
		dm.db, dm.sqlDB = nil, nil
		return fmt.Errorf("database connection test failed: %w", err)
	}

	dm.connected = true
	dm.lastError = nil
	dm.reconnectTries = 0
	dm.logger.WithFields(logrus.Fields{"type": dm.config.Type, "host": dm.config.Host}).Info("database connected")
	return nil
}

// openConnection opens the driver for cfg.Type and wraps it in Bun.
func openConnection(cfg *ConnectionConfig) (*sql.DB, *bun.DB, error) {
	switch strings.ToLower(cfg.Type) {
	case "mysql":
		sqlDB, err := sql.Open("mysql", mysqlDSN(cfg))
		if err != nil {
			return nil, nil, err
		}
		return sqlDB, bun.NewDB(sqlDB, mysqldialect.New()), nil
	case "postgres", "postgresql":
		sqlDB, err := sql.Open("postgres", postgresDSN(cfg))
		if err != nil {
			return nil, nil, err
		}
		return sqlDB, bun.NewDB(sqlDB, pgdialect.New()), nil
	case "sqlite", "sqlite3":
		sqlDB, err := sql.Open(sqliteshim.ShimName, sqliteDSN(cfg))
		if err != nil {
			return nil, nil, err
		}
		return sqlDB, bun.NewDB(sqlDB, sqlitedialect.New()), nil
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

func mysqlDSN(cfg *ConnectionConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%s&readTimeout=%s&writeTimeout=%s",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
		cfg.ConnectTimeout, cfg.ReadTimeout, cfg.WriteTimeout,
	)
}

func postgresDSN(cfg *ConnectionConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&connect_timeout=%d",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
		sslMode, int(cfg.ConnectTimeout.Seconds()),
	)
}

func sqliteDSN(cfg *ConnectionConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	return fmt.Sprintf("file:%s.db?cache=shared", cfg.DBName)
}

func (dm *defaultManager) configurePool() {
	dm.sqlDB.SetMaxIdleConns(dm.config.MaxIdleConns)
	if dm.config.MaxOpenConns > 0 {
		dm.sqlDB.SetMaxOpenConns(dm.config.MaxOpenConns)
	}
	dm.sqlDB.SetConnMaxLifetime(dm.config.ConnMaxLifetime)
	dm.sqlDB.SetConnMaxIdleTime(dm.config.ConnMaxIdleTime)
}

func (dm *defaultManager) addHooks() {
	if dm.config.EnableQueryLog {
		dm.db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}
	dm.db.AddQueryHook(NewQueryLogHook(dm.logger, dm.config.SlowQueryTime))
}

func (dm *defaultManager) Disconnect() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.stopHealth != nil {
		dm.stopHealth()
		dm.stopHealth = nil
	}
	return dm.closeLocked()
}

func (dm *defaultManager) closeLocked() error {
	if dm.db == nil {
		return nil
	}
	err := dm.db.Close()
	dm.db, dm.sqlDB = nil, nil
	dm.connected = false
	if err != nil {
		dm.logger.WithError(err).Error("failed to close database connection")
	} else {
		dm.logger.Info("database connection closed")
	}
	return err
}

// Reconnect closes the current connection and opens a new one, keeping the
// health check loop running.
func (dm *defaultManager) Reconnect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.logger.Info("attempting to reconnect to the database")
	if err := dm.closeLocked(); err != nil {
		dm.logger.WithError(err).Warn("error disconnecting existing connection")
	}
	return dm.connectLocked(ctx)
}

func (dm *defaultManager) Ping(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return fmt.Errorf("database not connected")
	}
	return db.PingContext(ctx)
}

func (dm *defaultManager) GetDB() *bun.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.db
}

func (dm *defaultManager) GetSQLDB() *sql.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.sqlDB
}

func (dm *defaultManager) HealthCheck(ctx context.Context) *HealthStatus {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	start := time.Now()
	status := &HealthStatus{LastCheckTime: start, Connected: dm.connected}
	if dm.db == nil {
		status.LastError = "database not initialized"
		dm.healthStatus = status
		return status
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := dm.db.PingContext(pingCtx)
	status.ResponseTime = time.Since(start)
	if err != nil {
		status.Connected = false
		status.LastError = err.Error()
		dm.lastError = err
	} else {
		status.Healthy = true
		status.Connected = true
		dm.lastError = nil
	}

	stats := dm.sqlDB.Stats()
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConnections
	dm.healthStatus = status
	return status
}

func (dm *defaultManager) healthLoop(ctx context.Context) {
	ticker := time.NewTicker(dm.config.HealthCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			status := dm.HealthCheck(checkCtx)
			cancel()
			if !status.Healthy && dm.config.EnableReconnect {
				dm.handleReconnect(ctx)
			}
		}
	}
}

func (dm *defaultManager) handleReconnect(ctx context.Context) {
	dm.mu.Lock()
	if dm.reconnectTries >= dm.config.MaxReconnectTries {
		tries := dm.reconnectTries
		dm.mu.Unlock()
		dm.logger.WithField("tries", tries).Error("max reconnect attempts reached")
		return
	}
	dm.reconnectTries++
	try := dm.reconnectTries
	dm.mu.Unlock()

	dm.logger.WithField("try", try).Info("starting database reconnect")
	select {
	case <-ctx.Done():
		return
	case <-time.After(dm.config.ReconnectInterval):
	}

	connectCtx, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
	defer cancel()
	if err := dm.Reconnect(connectCtx); err != nil {
		dm.logger.WithError(err).WithField("try", try).Error("reconnect failed")
		return
	}
	dm.logger.Info("reconnect succeeded")
}

func (dm *defaultManager) GetStats() *DBStats {
	sqlDB := dm.GetSQLDB()
	if sqlDB == nil {
		return &DBStats{}
	}
	stats := sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxIdleTimeClosed: stats.MaxIdleTimeClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

func (dm *defaultManager) SetLogger(logger logrus.FieldLogger) {
	if logger == nil {
		return
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.logger = logger
}
