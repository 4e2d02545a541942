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

	"github.com/tomoncle/fleetdesk/internal/entity"
	"github.com/tomoncle/fleetdesk/internal/store"
)

type ApplicationService struct {
	*Base[entity.Application, *store.ApplicationFilter]
}

func NewApplicationService(repo *store.ApplicationRepository, deps Deps) *ApplicationService {
	s := newBase[entity.Application, *store.ApplicationFilter]("application", repo, deps)
	s.validate = func(ctx context.Context, e *entity.Application) []string {
		return newChecks(ctx, deps).required("name", e.Name).required("code", e.Code).result()
	}
	s.conflict = func(ctx context.Context, e *entity.Application, excludeID int64) (string, error) {
		taken, err := repo.ExistsByCode(ctx, e.Code, excludeID)
		return unique(taken, err, func() string { return deps.t(ctx, "conflict.code", e.Code) })
	}
	return &ApplicationService{s}
}

type IncidentService struct {
	*Base[entity.Incident, *store.IncidentFilter]
}

func NewIncidentService(repo *store.IncidentRepository, deps Deps) *IncidentService {
	s := newBase[entity.Incident, *store.IncidentFilter]("incident", repo, deps)
	s.validate = func(ctx context.Context, e *entity.Incident) []string {
		return newChecks(ctx, deps).required("title", e.Title).reference("application_id", e.ApplicationID).result()
	}
	return &IncidentService{s}
}

type FeedbackService struct {
	*Base[entity.Feedback, *store.FeedbackFilter]
}

func NewFeedbackService(repo *store.FeedbackRepository, deps Deps) *FeedbackService {
	s := newBase[entity.Feedback, *store.FeedbackFilter]("feedback", repo, deps)
	s.validate = func(ctx context.Context, e *entity.Feedback) []string {
		return newChecks(ctx, deps).reference("application_id", e.ApplicationID).between("rating", e.Rating, 1, 5).result()
	}
	return &FeedbackService{s}
}

type ImprovementService struct {
	*Base[entity.Improvement, *store.ImprovementFilter]
}

func NewImprovementService(repo *store.ImprovementRepository, deps Deps) *ImprovementService {
	s := newBase[entity.Improvement, *store.ImprovementFilter]("improvement", repo, deps)
	s.validate = func(ctx context.Context, e *entity.Improvement) []string {
		return newChecks(ctx, deps).required("title", e.Title).reference("application_id", e.ApplicationID).result()
	}
	return &ImprovementService{s}
}
