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

// Package store holds the entity repositories and their list filters.
package store

import (
	"context"
	"strings"

	"github.com/tomoncle/fleetdesk/repository"
	"github.com/tomoncle/fleetdesk/types"
	"github.com/uptrace/bun"
)

// Filter is implemented by every entity filter.
type Filter interface {
	Query() repository.QueryFunc
	Paging() types.Filter
	SetTenant(tenantID int64)
}

// Scope restricts a filter to one tenant. Zero matches every tenant.
type Scope struct {
	TenantID int64 `form:"-" json:"-"`
}

// SetTenant sets the tenant the filter is restricted to.
func (s *Scope) SetTenant(tenantID int64) { s.TenantID = tenantID }

func (s Scope) query() repository.QueryFunc {
	return idEquals("tenant_id", s.TenantID)
}

func contains(column, value string) repository.QueryFunc {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	pattern := "%" + strings.ToLower(value) + "%"
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("LOWER(?TableAlias.?) LIKE ?", bun.Ident(column), pattern)
	}
}

func equals(column, value string) repository.QueryFunc {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.? = ?", bun.Ident(column), value)
	}
}

func idEquals(column string, id int64) repository.QueryFunc {
	if id <= 0 {
		return nil
	}
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.? = ?", bun.Ident(column), id)
	}
}

func atLeast(column string, min int) repository.QueryFunc {
	if min <= 0 {
		return nil
	}
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.? >= ?", bun.Ident(column), min)
	}
}

func excluding(id int64) repository.QueryFunc {
	if id <= 0 {
		return nil
	}
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.id <> ?", id)
	}
}

// Repo adds filtered listing and uniqueness lookups to a repository.
type Repo[T any, F Filter] struct {
	repository.Repository[T]
}

func newRepo[T any, F Filter](session *repository.Session) Repo[T, F] {
	return Repo[T, F]{Repository: repository.NewRepository[T](session)}
}

// List returns the page selected by f.
func (r Repo[T, F]) List(ctx context.Context, f F, includes ...string) (*types.PagedResult[T], error) {
	p := f.Paging()
	return r.GetList(ctx, f.Query(), p.Sort, p.Direction(), p.Page, p.PageSize, includes...)
}

// existsBy reports whether another row than excludeID has column = value.
func (r Repo[T, F]) existsBy(ctx context.Context, column string, value interface{}, excludeID int64) (bool, error) {
	return r.Exists(ctx, repository.And(
		func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.? = ?", bun.Ident(column), value)
		},
		excluding(excludeID),
	))
}

// Stores bundles the repositories bound to one session.
type Stores struct {
	Session      *repository.Session
	Applications *ApplicationRepository
	Vehicles     *VehicleRepository
	Suppliers    *SupplierRepository
	PartNumbers  *PartNumberRepository
	Incidents    *IncidentRepository
	Feedbacks    *FeedbackRepository
	Improvements *ImprovementRepository
	Squads       *SquadRepository
	Members      *MemberRepository
	Knowledge    *KnowledgeRepository
}

// New returns every repository over one session.
func New(session *repository.Session) *Stores {
	return &Stores{
		Session:      session,
		Applications: NewApplicationRepository(session),
		Vehicles:     NewVehicleRepository(session),
		Suppliers:    NewSupplierRepository(session),
		PartNumbers:  NewPartNumberRepository(session),
		Incidents:    NewIncidentRepository(session),
		Feedbacks:    NewFeedbackRepository(session),
		Improvements: NewImprovementRepository(session),
		Squads:       NewSquadRepository(session),
		Members:      NewMemberRepository(session),
		Knowledge:    NewKnowledgeRepository(session),
	}
}
