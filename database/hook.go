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
	"errors"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
)

var silent atomic.Bool

// SetSilent suppresses query logging, used while migrations run.
func SetSilent(b bool) { silent.Store(b) }

// QueryLogHook logs failed queries at debug level and queries slower than
// the threshold at warn level. A zero threshold disables slow query logs.
type QueryLogHook struct {
	logger   logrus.FieldLogger
	slowTime time.Duration
}

var _ bun.QueryHook = (*QueryLogHook)(nil)

// NewQueryLogHook returns a hook writing to logger.
func NewQueryLogHook(logger logrus.FieldLogger, slowTime time.Duration) *QueryLogHook {
	return &QueryLogHook{logger: logger, slowTime: slowTime}
}

func (h *QueryLogHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryLogHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if silent.Load() {
		return
	}
	duration := time.Since(event.StartTime)
	fields := logrus.Fields{
		"operation": event.Operation(),
		"duration":  duration.Round(time.Microsecond),
		"query":     event.Query,
	}
	switch {
	case event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) && !errors.Is(event.Err, sql.ErrTxDone):
		h.logger.WithFields(fields).WithError(event.Err).Debug("query failed")
	case h.slowTime > 0 && duration > h.slowTime:
		fields["slow_threshold"] = h.slowTime
		h.logger.WithFields(fields).Warn("slow query detected")
	}
}
