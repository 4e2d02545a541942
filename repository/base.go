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
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/tomoncle/fleetdesk/types"

	"github.com/uptrace/bun"
)

type baseRepositoryImpl[T any] struct {
	session *Session
	fields  *FieldRegistry
}

// NewRepository returns a generic repository whose writes are staged in
// session and whose reads go to the session's durable store.
func NewRepository[T any](session *Session) Repository[T] {
	return &baseRepositoryImpl[T]{
		session: session,
		fields:  registryFor[T](session.DB()),
	}
}

func (r *baseRepositoryImpl[T]) Session() *Session { return r.session }

func (r *baseRepositoryImpl[T]) Fields() *FieldRegistry { return r.fields }

func (r *baseRepositoryImpl[T]) NewSelect() *bun.SelectQuery {
	return r.session.DB().NewSelect().Model((*T)(nil))
}

func (r *baseRepositoryImpl[T]) GetList(ctx context.Context, query QueryFunc, sortField string, direction types.SortDirection, page, pageSize int, includes ...string) (*types.PagedResult[T], error) {
	if query == nil {
		return nil, fmt.Errorf("%w: query cannot be null", ErrInvalidArgument)
	}
	if page < 1 {
		return nil, fmt.Errorf("%w: page must be at least 1, got %d", ErrOutOfRange, page)
	}
	if pageSize < 1 {
		return nil, fmt.Errorf("%w: page size must be at least 1, got %d", ErrOutOfRange, pageSize)
	}
	orders, err := r.orderColumns(sortField)
	if err != nil {
		return nil, err
	}
	relations, err := r.resolveIncludes(includes)
	if err != nil {
		return nil, err
	}

	var entities []*T
	q := query(r.session.DB().NewSelect().Model(&entities))
	total, err := q.Count(ctx)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return types.NewPagedResult[T](1, pageSize), nil
	}

	servedPage := types.ClampPage(page, pageSize, total)
	for i, col := range orders {
		dir := direction
		if i > 0 {
			dir = types.Ascending
		}
		q = q.OrderExpr("?TableAlias.? "+dir.SQL(), bun.Ident(col))
	}
	for _, rel := range relations {
		q = q.Relation(rel)
	}
	err = q.
		Offset((servedPage - 1) * pageSize).
		Limit(pageSize).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := types.NewPagedResult[T](servedPage, pageSize)
	result.Total = total
	if entities != nil {
		result.Items = entities
	}
	return result, nil
}

// orderColumns returns the requested sort column followed by the primary
// keys as a tiebreaker, or only the primary keys when no field is given.
func (r *baseRepositoryImpl[T]) orderColumns(sortField string) ([]string, error) {
	pks := r.fields.PrimaryKeys()
	if strings.TrimSpace(sortField) == "" {
		return pks, nil
	}
	col, err := r.fields.SortColumn(sortField)
	if err != nil {
		return nil, err
	}
	return lo.Uniq(append([]string{col}, pks...)), nil
}

func (r *baseRepositoryImpl[T]) resolveIncludes(includes []string) ([]string, error) {
	relations := make([]string, 0, len(includes))
	for _, path := range includes {
		resolved, err := r.fields.ResolveInclude(path)
		if err != nil {
			return nil, err
		}
		relations = append(relations, resolved)
	}
	return lo.Uniq(relations), nil
}

func (r *baseRepositoryImpl[T]) Find(ctx context.Context, id any) (*T, error) {
	pk, err := r.singlePK()
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, fmt.Errorf("%w: id cannot be null", ErrInvalidArgument)
	}
	entity := new(T)
	err = r.session.DB().NewSelect().
		Model(entity).
		Where("?TableAlias.? = ?", bun.Ident(pk), id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T]) singlePK() (string, error) {
	pks := r.fields.PrimaryKeys()
	if len(pks) != 1 {
		return "", fmt.Errorf("%w: %s must have exactly one primary key", ErrInvalidArgument, r.fields.Table().TypeName)
	}
	return pks[0], nil
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context, query QueryFunc) (int, error) {
	if query == nil {
		return 0, fmt.Errorf("%w: query cannot be null", ErrInvalidArgument)
	}
	return query(r.NewSelect()).Count(ctx)
}

func (r *baseRepositoryImpl[T]) Exists(ctx context.Context, query QueryFunc) (bool, error) {
	if query == nil {
		return false, fmt.Errorf("%w: query cannot be null", ErrInvalidArgument)
	}
	return query(r.NewSelect()).Exists(ctx)
}

func (r *baseRepositoryImpl[T]) Create(ctx context.Context, mode PersistMode, entity ...*T) error {
	return r.write(ctx, mode, ChangeInsert, entity)
}

func (r *baseRepositoryImpl[T]) Update(ctx context.Context, mode PersistMode, entity ...*T) error {
	return r.write(ctx, mode, ChangeUpdate, entity)
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, mode PersistMode, entity ...*T) error {
	return r.write(ctx, mode, ChangeDelete, entity)
}

func (r *baseRepositoryImpl[T]) DeleteByID(ctx context.Context, mode PersistMode, id ...any) error {
	found := make([]*T, 0, len(id))
	for _, key := range id {
		entity, err := r.Find(ctx, key)
		if err != nil {
			return err
		}
		if entity != nil {
			found = append(found, entity)
		}
	}
	return r.write(ctx, mode, ChangeDelete, found)
}

func (r *baseRepositoryImpl[T]) Detach(entity ...*T) {
	for _, e := range entity {
		if e != nil {
			r.session.detach(e)
		}
	}
}

func (r *baseRepositoryImpl[T]) write(ctx context.Context, mode PersistMode, kind ChangeKind, entities []*T) error {
	if lo.Contains(entities, nil) {
		return fmt.Errorf("%w: entity cannot be null", ErrInvalidArgument)
	}
	if len(entities) > 0 {
		staged := make([]*T, len(entities))
		copy(staged, entities)
		r.session.stage(&entityChange[T]{kind: kind, entities: staged})
	}
	if mode == Deferred {
		return nil
	}
	return r.session.Commit(ctx)
}
