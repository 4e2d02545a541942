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

// Package service turns repository calls into localized operation results
// and emits change events for committed writes.
package service

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/tomoncle/fleetdesk/database"
	"github.com/tomoncle/fleetdesk/internal/entity"
	"github.com/tomoncle/fleetdesk/internal/i18n"
	"github.com/tomoncle/fleetdesk/internal/notify"
	"github.com/tomoncle/fleetdesk/internal/store"
	"github.com/tomoncle/fleetdesk/repository"
	"github.com/tomoncle/fleetdesk/types"
	"github.com/tomoncle/fleetdesk/utils"
)

// Deps are the collaborators shared by every service.
type Deps struct {
	Messages  *i18n.Bundle
	Publisher notify.Publisher
	Logger    logrus.FieldLogger
}

func (d Deps) withDefaults() Deps {
	if d.Messages == nil {
		d.Messages = i18n.MustLoad()
	}
	if d.Publisher == nil {
		d.Publisher = notify.Noop{}
	}
	if d.Logger == nil {
		d.Logger = utils.NewLogger("SERVICE")
	}
	return d
}

func (d Deps) t(ctx context.Context, key string, args ...interface{}) string {
	return d.Messages.T(i18n.Locale(ctx), key, args...)
}

// Repository is the store surface a service works against.
type Repository[T any, F store.Filter] interface {
	repository.Repository[T]
	List(ctx context.Context, f F, includes ...string) (*types.PagedResult[T], error)
}

// ValidateFunc returns localized messages for every violated rule.
type ValidateFunc[T any] func(ctx context.Context, e *T) []string

// ConflictFunc returns a localized message when e collides with a row other
// than excludeID.
type ConflictFunc[T any] func(ctx context.Context, e *T, excludeID int64) (string, error)

// Base implements the CRUD operations shared by every entity service.
type Base[T any, F store.Filter] struct {
	kind       string
	repo       Repository[T, F]
	deps       Deps
	updateMode repository.PersistMode
	validate   ValidateFunc[T]
	conflict   ConflictFunc[T]
}

func newBase[T any, F store.Filter](kind string, repo Repository[T, F], deps Deps) *Base[T, F] {
	return &Base[T, F]{kind: kind, repo: repo, deps: deps, updateMode: repository.Immediate}
}

func (s *Base[T, F]) name(ctx context.Context) string {
	return s.deps.Messages.Entity(i18n.Locale(ctx), s.kind)
}

func (s *Base[T, F]) result(ctx context.Context, status types.OperationStatus, key string, data interface{}) types.OperationResult {
	return types.NewResult(status, s.deps.t(ctx, key, s.name(ctx)), data)
}

func (s *Base[T, F]) notFound(ctx context.Context) types.OperationResult {
	return types.NewErrorResult(types.StatusNotFound, s.deps.t(ctx, "error.not_found", s.name(ctx)))
}

func (s *Base[T, F]) invalid(ctx context.Context, errs ...string) types.OperationResult {
	return types.NewErrorResult(types.StatusInvalidData, s.deps.t(ctx, "error.invalid", s.name(ctx)), errs...)
}

func (s *Base[T, F]) conflicting(ctx context.Context, errs ...string) types.OperationResult {
	return types.NewErrorResult(types.StatusConflict, s.deps.t(ctx, "error.conflict", s.name(ctx)), errs...)
}

// failure drops anything left staged and maps err to a result.
func (s *Base[T, F]) failure(ctx context.Context, err error) types.OperationResult {
	s.repo.Session().Discard()
	if repository.IsArgumentError(err) {
		return s.invalid(ctx, err.Error())
	}
	if ok, kind := database.IsSQLError(err); ok {
		switch kind {
		case database.DuplicateKeyErr, database.ForeignKeyViolationErr:
			return s.conflicting(ctx, err.Error())
		case database.NotNullViolationErr, database.CheckConstraintViolationErr,
			database.DataTruncatedErr, database.InvalidTypeCastErr:
			return s.invalid(ctx, err.Error())
		}
	}
	s.deps.Logger.WithError(err).WithField("entity", s.kind).Error("operation failed")
	return types.NewErrorResult(types.StatusError, s.deps.t(ctx, "error.internal", s.name(ctx)), err.Error())
}

// check runs validation then the uniqueness hook. A zero result means the
// entity may be written.
func (s *Base[T, F]) check(ctx context.Context, e *T, excludeID int64) (types.OperationResult, bool) {
	if s.validate != nil {
		if errs := s.validate(ctx, e); len(errs) > 0 {
			return s.invalid(ctx, errs...), false
		}
	}
	if s.conflict != nil {
		msg, err := s.conflict(ctx, e, excludeID)
		if err != nil {
			return s.failure(ctx, err), false
		}
		if msg != "" {
			return s.conflicting(ctx, msg), false
		}
	}
	return types.OperationResult{}, true
}

func model[T any](e *T) entity.Model {
	return any(e).(entity.Model)
}

// find loads id and hides rows owned by another tenant.
func (s *Base[T, F]) find(ctx context.Context, id int64) (*T, error) {
	e, err := s.repo.Find(ctx, id)
	if err != nil || e == nil {
		return nil, err
	}
	if tenant := Tenant(ctx); tenant > 0 && model(e).GetBase().TenantID != tenant {
		return nil, nil
	}
	return e, nil
}

func (s *Base[T, F]) publish(ctx context.Context, action notify.Action, e *T) {
	b := model(e).GetBase()
	event := notify.NewEvent(s.kind, action, b.ID, b.TenantID, e)
	if err := s.deps.Publisher.Publish(ctx, event); err != nil {
		s.deps.Logger.WithError(err).WithFields(logrus.Fields{
			"entity": s.kind,
			"action": action,
			"id":     b.ID,
		}).Warn("publish change event failed")
	}
}

// Get returns the entity stored under id.
func (s *Base[T, F]) Get(ctx context.Context, id int64) types.OperationResult {
	e, err := s.find(ctx, id)
	if err != nil {
		return s.failure(ctx, err)
	}
	if e == nil {
		return s.notFound(ctx)
	}
	return s.result(ctx, types.StatusSuccess, "success.get", e)
}

// List returns the page selected by f, restricted to the caller's tenant.
func (s *Base[T, F]) List(ctx context.Context, f F, includes ...string) types.OperationResult {
	var zero F
	if any(f) == any(zero) {
		return s.invalid(ctx, s.deps.t(ctx, "validation.missing"))
	}
	if tenant := Tenant(ctx); tenant > 0 {
		f.SetTenant(tenant)
	}
	page, err := s.repo.List(ctx, f, includes...)
	if err != nil {
		return s.failure(ctx, err)
	}
	return s.result(ctx, types.StatusSuccess, "success.list", page)
}

// Create validates and inserts e.
func (s *Base[T, F]) Create(ctx context.Context, e *T) types.OperationResult {
	if e == nil {
		return s.invalid(ctx, s.deps.t(ctx, "validation.missing"))
	}
	b := model(e).GetBase()
	*b = entity.Base{TenantID: Tenant(ctx)}
	if res, ok := s.check(ctx, e, 0); !ok {
		return res
	}
	if err := s.repo.Create(ctx, repository.Immediate, e); err != nil {
		return s.failure(ctx, err)
	}
	s.publish(ctx, notify.Created, e)
	return s.result(ctx, types.StatusCreated, "success.created", e)
}

// Update replaces the row under id with e. Identity, tenant and creation
// time are kept from the stored row.
func (s *Base[T, F]) Update(ctx context.Context, id int64, e *T) types.OperationResult {
	if e == nil {
		return s.invalid(ctx, s.deps.t(ctx, "validation.missing"))
	}
	existing, err := s.find(ctx, id)
	if err != nil {
		return s.failure(ctx, err)
	}
	if existing == nil {
		return s.notFound(ctx)
	}
	stored := model(existing).GetBase()
	*model(e).GetBase() = entity.Base{ID: stored.ID, TenantID: stored.TenantID, CreatedAt: stored.CreatedAt}
	if res, ok := s.check(ctx, e, id); !ok {
		return res
	}
	if err := s.write(ctx, s.updateMode, e); err != nil {
		return s.failure(ctx, err)
	}
	s.publish(ctx, notify.Updated, e)
	return s.result(ctx, types.StatusSuccess, "success.updated", e)
}

func (s *Base[T, F]) write(ctx context.Context, mode repository.PersistMode, e *T) error {
	if err := s.repo.Update(ctx, mode, e); err != nil {
		return err
	}
	if mode == repository.Deferred {
		return s.repo.Session().Commit(ctx)
	}
	return nil
}

// Delete removes the row under id.
func (s *Base[T, F]) Delete(ctx context.Context, id int64) types.OperationResult {
	existing, err := s.find(ctx, id)
	if err != nil {
		return s.failure(ctx, err)
	}
	if existing == nil {
		return s.notFound(ctx)
	}
	if err := s.repo.Delete(ctx, repository.Immediate, existing); err != nil {
		return s.failure(ctx, err)
	}
	s.publish(ctx, notify.Deleted, existing)
	return s.result(ctx, types.StatusSuccess, "success.deleted", nil)
}
