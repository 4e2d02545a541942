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
	"github.com/tomoncle/fleetdesk/repository"
)

// VehicleService stages updates and commits them in a second step.
type VehicleService struct {
	*Base[entity.Vehicle, *store.VehicleFilter]
}

func NewVehicleService(repo *store.VehicleRepository, deps Deps) *VehicleService {
	s := newBase[entity.Vehicle, *store.VehicleFilter]("vehicle", repo, deps)
	s.updateMode = repository.Deferred
	s.validate = func(ctx context.Context, e *entity.Vehicle) []string {
		return newChecks(ctx, deps).
			required("chassis", e.Chassis).
			required("model", e.Model).
			reference("application_id", e.ApplicationID).
			result()
	}
	s.conflict = func(ctx context.Context, e *entity.Vehicle, excludeID int64) (string, error) {
		taken, err := repo.ExistsByChassis(ctx, e.Chassis, excludeID)
		return unique(taken, err, func() string { return deps.t(ctx, "conflict.chassis", e.Chassis) })
	}
	return &VehicleService{s}
}

// SupplierService flushes updates immediately.
type SupplierService struct {
	*Base[entity.Supplier, *store.SupplierFilter]
}

func NewSupplierService(repo *store.SupplierRepository, deps Deps) *SupplierService {
	s := newBase[entity.Supplier, *store.SupplierFilter]("supplier", repo, deps)
	s.updateMode = repository.Immediate
	s.validate = func(ctx context.Context, e *entity.Supplier) []string {
		return newChecks(ctx, deps).required("name", e.Name).required("code", e.Code).result()
	}
	s.conflict = func(ctx context.Context, e *entity.Supplier, excludeID int64) (string, error) {
		taken, err := repo.ExistsByCode(ctx, e.Code, excludeID)
		return unique(taken, err, func() string { return deps.t(ctx, "conflict.code", e.Code) })
	}
	return &SupplierService{s}
}

type PartNumberService struct {
	*Base[entity.PartNumber, *store.PartNumberFilter]
}

func NewPartNumberService(repo *store.PartNumberRepository, deps Deps) *PartNumberService {
	s := newBase[entity.PartNumber, *store.PartNumberFilter]("part_number", repo, deps)
	s.validate = func(ctx context.Context, e *entity.PartNumber) []string {
		return newChecks(ctx, deps).
			required("number", e.Number).
			reference("supplier_id", e.SupplierID).
			reference("vehicle_id", e.VehicleID).
			result()
	}
	s.conflict = func(ctx context.Context, e *entity.PartNumber, excludeID int64) (string, error) {
		taken, err := repo.ExistsByNumber(ctx, e.Number, excludeID)
		return unique(taken, err, func() string { return deps.t(ctx, "conflict.number", e.Number) })
	}
	return &PartNumberService{s}
}
