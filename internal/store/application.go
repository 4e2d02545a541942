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
)

// ApplicationFilter selects applications.
type ApplicationFilter struct {
	types.Filter
	Scope
	Name   string `form:"name"`
	Code   string `form:"code"`
	Status string `form:"status"`
}

func (f ApplicationFilter) Query() repository.QueryFunc {
	return repository.And(
		f.Scope.query(),
		contains("name", f.Name),
		equals("code", f.Code),
		equals("status", f.Status),
	)
}

type ApplicationRepository struct {
	Repo[entity.Application, *ApplicationFilter]
}

func NewApplicationRepository(session *repository.Session) *ApplicationRepository {
	return &ApplicationRepository{newRepo[entity.Application, *ApplicationFilter](session)}
}

// ExistsByCode reports whether an application other than excludeID uses code.
func (r *ApplicationRepository) ExistsByCode(ctx context.Context, code string, excludeID int64) (bool, error) {
	return r.existsBy(ctx, "code", code, excludeID)
}

// IncidentFilter selects incidents.
type IncidentFilter struct {
	types.Filter
	Scope
	Title         string `form:"title"`
	ApplicationID int64  `form:"application_id"`
	Severity      string `form:"severity"`
	Status        string `form:"status"`
}

func (f IncidentFilter) Query() repository.QueryFunc {
	return repository.And(
		f.Scope.query(),
		contains("title", f.Title),
		idEquals("application_id", f.ApplicationID),
		equals("severity", f.Severity),
		equals("status", f.Status),
	)
}

type IncidentRepository struct {
	Repo[entity.Incident, *IncidentFilter]
}

func NewIncidentRepository(session *repository.Session) *IncidentRepository {
	return &IncidentRepository{newRepo[entity.Incident, *IncidentFilter](session)}
}

// FeedbackFilter selects feedback, optionally with a minimum rating.
type FeedbackFilter struct {
	types.Filter
	Scope
	ApplicationID int64 `form:"application_id"`
	MinRating     int   `form:"min_rating"`
}

func (f FeedbackFilter) Query() repository.QueryFunc {
	return repository.And(
		f.Scope.query(),
		idEquals("application_id", f.ApplicationID),
		atLeast("rating", f.MinRating),
	)
}

type FeedbackRepository struct {
	Repo[entity.Feedback, *FeedbackFilter]
}

func NewFeedbackRepository(session *repository.Session) *FeedbackRepository {
	return &FeedbackRepository{newRepo[entity.Feedback, *FeedbackFilter](session)}
}

// ImprovementFilter selects improvements.
type ImprovementFilter struct {
	types.Filter
	Scope
	Title         string `form:"title"`
	Status        string `form:"status"`
	ApplicationID int64  `form:"application_id"`
}

func (f ImprovementFilter) Query() repository.QueryFunc {
	return repository.And(
		f.Scope.query(),
		contains("title", f.Title),
		equals("status", f.Status),
		idEquals("application_id", f.ApplicationID),
	)
}

type ImprovementRepository struct {
	Repo[entity.Improvement, *ImprovementFilter]
}

func NewImprovementRepository(session *repository.Session) *ImprovementRepository {
	return &ImprovementRepository{newRepo[entity.Improvement, *ImprovementFilter](session)}
}
