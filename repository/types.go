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

package repository

import (
	"context"

	"github.com/tomoncle/fleetdesk/types"

	"github.com/uptrace/bun"
)

// QueryFunc composes filter predicates onto a select query. It must return
// the query it was given (or one derived from it).
type QueryFunc func(q *bun.SelectQuery) *bun.SelectQuery

// PersistMode selects whether a write is flushed right away or left staged
// in the session until Commit.
type PersistMode int

const (
	// Immediate stages the write and commits the session, flushing anything
	// staged before it in the same transaction. A failed commit keeps every
	// staged change, so later Immediate writes on the same session replay the
	// failing change and fail the same way until the session is discarded.
	Immediate PersistMode = iota
	// Deferred only stages the write.
	Deferred
)

func (m PersistMode) String() string {
	if m == Deferred {
		return "deferred"
	}
	return "immediate"
}

// ReadRepository defines lookups against the durable store.
type ReadRepository[T any] interface {
	GetList(ctx context.Context, query QueryFunc, sortField string, direction types.SortDirection, page, pageSize int, includes ...string) (*types.PagedResult[T], error)

	Find(ctx context.Context, id any) (*T, error)

	Count(ctx context.Context, query QueryFunc) (int, error)

	Exists(ctx context.Context, query QueryFunc) (bool, error)
}

// WriteRepository defines writes routed through the session.
type WriteRepository[T any] interface {
	Create(ctx context.Context, mode PersistMode, entity ...*T) error

	Update(ctx context.Context, mode PersistMode, entity ...*T) error

	Delete(ctx context.Context, mode PersistMode, entity ...*T) error

	DeleteByID(ctx context.Context, mode PersistMode, id ...any) error

	Detach(entity ...*T)
}

// Repository combines reads, session writes and access to the underlying
// Bun builders for entity-specific queries.
type Repository[T any] interface {
	ReadRepository[T]
	WriteRepository[T]
	Session() *Session
	Fields() *FieldRegistry
	NewSelect() *bun.SelectQuery
}

// All matches every row.
func All(q *bun.SelectQuery) *bun.SelectQuery { return q }

// Where returns a QueryFunc applying a single WHERE clause.
func Where(schema string, args ...interface{}) QueryFunc {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where(schema, args...)
	}
}

// And chains several QueryFuncs; nil entries are skipped.
func And(funcs ...QueryFunc) QueryFunc {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		for _, fn := range funcs {
			if fn != nil {
				q = fn(q)
			}
		}
		return q
	}
}
