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

package store

import (
	"context"

	"github.com/tomoncle/fleetdesk/internal/entity"
	"github.com/tomoncle/fleetdesk/repository"
	"github.com/tomoncle/fleetdesk/types"
	"github.com/uptrace/bun"
)

// SquadFilter selects squads.
type SquadFilter struct {
	types.Filter
	Scope
	Name string `form:"name"`
}

func (f SquadFilter) Query() repository.QueryFunc {
	return repository.And(f.Scope.query(), contains("name", f.Name))
}

type SquadRepository struct {
	Repo[entity.Squad, *SquadFilter]
}

func NewSquadRepository(session *repository.Session) *SquadRepository {
	return &SquadRepository{newRepo[entity.Squad, *SquadFilter](session)}
}

// ExistsByName reports whether a squad other than excludeID is called name.
func (r *SquadRepository) ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error) {
	return r.existsBy(ctx, "name", name, excludeID)
}

// MemberFilter selects members.
type MemberFilter struct {
	types.Filter
	Scope
	Name    string `form:"name"`
	SquadID int64  `form:"squad_id"`
	Email   string `form:"email"`
}

func (f MemberFilter) Query() repository.QueryFunc {
	return repository.And(
		f.Scope.query(),
		contains("name", f.Name),
		idEquals("squad_id", f.SquadID),
		equals("email", f.Email),
	)
}

type MemberRepository struct {
	Repo[entity.Member, *MemberFilter]
}

func NewMemberRepository(session *repository.Session) *MemberRepository {
	return &MemberRepository{newRepo[entity.Member, *MemberFilter](session)}
}

// ExistsByEmail reports whether a member other than excludeID uses email.
func (r *MemberRepository) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	return r.existsBy(ctx, "email", email, excludeID)
}

// KnowledgeFilter selects knowledge records.
type KnowledgeFilter struct {
	types.Filter
	Scope
	MemberID      int64 `form:"member_id"`
	ApplicationID int64 `form:"application_id"`
	MinLevel      int   `form:"min_level"`
}

func (f KnowledgeFilter) Query() repository.QueryFunc {
	return repository.And(
		f.Scope.query(),
		idEquals("member_id", f.MemberID),
		idEquals("application_id", f.ApplicationID),
		atLeast("level", f.MinLevel),
	)
}

type KnowledgeRepository struct {
	Repo[entity.Knowledge, *KnowledgeFilter]
}

func NewKnowledgeRepository(session *repository.Session) *KnowledgeRepository {
	return &KnowledgeRepository{newRepo[entity.Knowledge, *KnowledgeFilter](session)}
}

// ExistsAssociation reports whether a record other than excludeID links
// memberID to applicationID.
func (r *KnowledgeRepository) ExistsAssociation(ctx context.Context, memberID, applicationID, excludeID int64) (bool, error) {
	return r.Exists(ctx, repository.And(
		func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.member_id = ?", memberID).
				Where("?TableAlias.application_id = ?", applicationID)
		},
		excluding(excludeID),
	))
}
