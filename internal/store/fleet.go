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

// VehicleFilter selects vehicles.
type VehicleFilter struct {
	types.Filter
	Scope
	Chassis       string `form:"chassis"`
	Model         string `form:"model"`
	ApplicationID int64  `form:"application_id"`
}

func (f VehicleFilter) Query() repository.QueryFunc {
	return repository.And(
		f.Scope.query(),
		equals("chassis", f.Chassis),
		contains("model", f.Model),
		idEquals("application_id", f.ApplicationID),
	)
}

type VehicleRepository struct {
	Repo[entity.Vehicle, *VehicleFilter]
}

func NewVehicleRepository(session *repository.Session) *VehicleRepository {
	return &VehicleRepository{newRepo[entity.Vehicle, *VehicleFilter](session)}
}

// ExistsByChassis reports whether a vehicle other than excludeID has chassis.
func (r *VehicleRepository) ExistsByChassis(ctx context.Context, chassis string, excludeID int64) (bool, error) {
	return r.existsBy(ctx, "chassis", chassis, excludeID)
}

// SupplierFilter selects suppliers.
type SupplierFilter struct {
	types.Filter
	Scope
	Name string `form:"name"`
	Code string `form:"code"`
}

func (f SupplierFilter) Query() repository.QueryFunc {
	return repository.And(
		f.Scope.query(),
		contains("name", f.Name),
		equals("code", f.Code),
	)
}

type SupplierRepository struct {
	Repo[entity.Supplier, *SupplierFilter]
}

func NewSupplierRepository(session *repository.Session) *SupplierRepository {
	return &SupplierRepository{newRepo[entity.Supplier, *SupplierFilter](session)}
}

// ExistsByCode reports whether a supplier other than excludeID uses code.
func (r *SupplierRepository) ExistsByCode(ctx context.Context, code string, excludeID int64) (bool, error) {
	return r.existsBy(ctx, "code", code, excludeID)
}

// PartNumberFilter selects part numbers.
type PartNumberFilter struct {
	types.Filter
	Scope
	Number     string `form:"number"`
	SupplierID int64  `form:"supplier_id"`
	VehicleID  int64  `form:"vehicle_id"`
}

func (f PartNumberFilter) Query() repository.QueryFunc {
	return repository.And(
		f.Scope.query(),
		contains("number", f.Number),
		idEquals("supplier_id", f.SupplierID),
		idEquals("vehicle_id", f.VehicleID),
	)
}

type PartNumberRepository struct {
	Repo[entity.PartNumber, *PartNumberFilter]
}

func NewPartNumberRepository(session *repository.Session) *PartNumberRepository {
	return &PartNumberRepository{newRepo[entity.PartNumber, *PartNumberFilter](session)}
}

// ExistsByNumber reports whether a part other than excludeID uses number.
func (r *PartNumberRepository) ExistsByNumber(ctx context.Context, number string, excludeID int64) (bool, error) {
	return r.existsBy(ctx, "number", number, excludeID)
}
