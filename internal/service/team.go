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

package service

import (
	"context"
	"strings"

	"github.com/samber/lo"
	"github.com/tomoncle/fleetdesk/internal/entity"
	"github.com/tomoncle/fleetdesk/internal/notify"
	"github.com/tomoncle/fleetdesk/internal/store"
	"github.com/tomoncle/fleetdesk/repository"
	"github.com/tomoncle/fleetdesk/types"
	"github.com/uptrace/bun"
)

type SquadService struct {
	*Base[entity.Squad, *store.SquadFilter]
	members *MemberService
}

func NewSquadService(repo *store.SquadRepository, members *MemberService, deps Deps) *SquadService {
	s := newBase[entity.Squad, *store.SquadFilter]("squad", repo, deps)
	s.validate = func(ctx context.Context, e *entity.Squad) []string {
		return newChecks(ctx, deps).required("name", e.Name).result()
	}
	s.conflict = func(ctx context.Context, e *entity.Squad, excludeID int64) (string, error) {
		taken, err := repo.ExistsByName(ctx, e.Name, excludeID)
		return unique(taken, err, func() string { return deps.t(ctx, "conflict.name", e.Name) })
	}
	return &SquadService{Base: s, members: members}
}

// CreateWithMembers inserts squad and its members in one transaction. The
// members receive the squad id assigned by the insert.
func (s *SquadService) CreateWithMembers(ctx context.Context, squad *entity.Squad, members []*entity.Member) types.OperationResult {
	if squad == nil {
		return s.invalid(ctx, s.deps.t(ctx, "validation.missing"))
	}
	members = lo.Filter(members, func(m *entity.Member, _ int) bool { return m != nil })
	tenant := Tenant(ctx)
	squad.Base = entity.Base{TenantID: tenant}
	if res, ok := s.check(ctx, squad, 0); !ok {
		return res
	}

	var errs []string
	for _, m := range members {
		m.Base = entity.Base{TenantID: tenant}
		errs = append(errs, s.members.fieldChecks(ctx, m).result()...)
	}
	if len(errs) > 0 {
		return s.members.invalid(ctx, errs...)
	}
	seen := map[string]bool{}
	for _, m := range members {
		email := strings.ToLower(m.Email)
		msg, err := s.members.conflict(ctx, m, 0)
		if err != nil {
			return s.failure(ctx, err)
		}
		if msg == "" && seen[email] {
			msg = s.deps.t(ctx, "conflict.email", m.Email)
		}
		if msg != "" {
			return s.members.conflicting(ctx, msg)
		}
		seen[email] = true
	}

	session := s.repo.Session()
	if err := s.repo.Create(ctx, repository.Deferred, squad); err != nil {
		return s.failure(ctx, err)
	}
	session.Stage(func(_ context.Context, _ bun.IDB) error {
		for _, m := range members {
			m.SquadID = squad.ID
		}
		return nil
	})
	if len(members) > 0 {
		if err := s.members.repo.Create(ctx, repository.Deferred, members...); err != nil {
			return s.failure(ctx, err)
		}
	}
	if err := session.Commit(ctx); err != nil {
		return s.failure(ctx, err)
	}
	squad.Members = members
	s.publish(ctx, notify.Created, squad)
	for _, m := range members {
		s.members.publish(ctx, notify.Created, m)
	}
	return s.result(ctx, types.StatusCreated, "success.created", squad)
}

type MemberService struct {
	*Base[entity.Member, *store.MemberFilter]
}

func NewMemberService(repo *store.MemberRepository, deps Deps) *MemberService {
	s := &MemberService{newBase[entity.Member, *store.MemberFilter]("member", repo, deps)}
	s.validate = func(ctx context.Context, e *entity.Member) []string {
		return s.fieldChecks(ctx, e).reference("squad_id", e.SquadID).result()
	}
	s.conflict = func(ctx context.Context, e *entity.Member, excludeID int64) (string, error) {
		taken, err := repo.ExistsByEmail(ctx, e.Email, excludeID)
		return unique(taken, err, func() string { return deps.t(ctx, "conflict.email", e.Email) })
	}
	return s
}

// fieldChecks validates a member without its squad reference.
func (s *MemberService) fieldChecks(ctx context.Context, e *entity.Member) *checks {
	return newChecks(ctx, s.deps).required("name", e.Name).required("email", e.Email)
}

type KnowledgeService struct {
	*Base[entity.Knowledge, *store.KnowledgeFilter]
}

func NewKnowledgeService(repo *store.KnowledgeRepository, deps Deps) *KnowledgeService {
	s := newBase[entity.Knowledge, *store.KnowledgeFilter]("knowledge", repo, deps)
	s.validate = func(ctx context.Context, e *entity.Knowledge) []string {
		return newChecks(ctx, deps).
			reference("member_id", e.MemberID).
			reference("application_id", e.ApplicationID).
			between("level", e.Level, 1, 5).
			result()
	}
	s.conflict = func(ctx context.Context, e *entity.Knowledge, excludeID int64) (string, error) {
		taken, err := repo.ExistsAssociation(ctx, e.MemberID, e.ApplicationID, excludeID)
		return unique(taken, err, func() string { return deps.t(ctx, "conflict.association") })
	}
	return &KnowledgeService{s}
}
