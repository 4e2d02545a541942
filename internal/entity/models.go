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

package entity

import (
	"time"

	"github.com/tomoncle/fleetdesk/types"
	"github.com/uptrace/bun"
)

// Application is an internal product tracked by the fleet teams.
type Application struct {
	bun.BaseModel `bun:"table:applications,alias:app"`
	Base

	Name         string         `bun:"name,notnull" json:"name"`
	Code         string         `bun:"code,notnull,unique" json:"code"`
	Status       string         `bun:"status,notnull,default:'active'" json:"status"`
	Description  string         `bun:"description" json:"description,omitempty"`
	Settings     types.JSONMap  `bun:"settings,type:json" json:"settings,omitempty"`
	Vehicles     []*Vehicle     `bun:"rel:has-many,join:id=application_id" json:"vehicles,omitempty"`
	Incidents    []*Incident    `bun:"rel:has-many,join:id=application_id" json:"incidents,omitempty"`
	Feedbacks    []*Feedback    `bun:"rel:has-many,join:id=application_id" json:"feedbacks,omitempty"`
	Improvements []*Improvement `bun:"rel:has-many,join:id=application_id" json:"improvements,omitempty"`
}

// Vehicle is a vehicle running an application.
type Vehicle struct {
	bun.BaseModel `bun:"table:vehicles,alias:veh"`
	Base

	Chassis       string        `bun:"chassis,notnull,unique" json:"chassis"`
	Model         string        `bun:"model,notnull" json:"model"`
	Year          int           `bun:"year" json:"year,omitempty"`
	ApplicationID int64         `bun:"application_id,notnull" json:"application_id"`
	Application   *Application  `bun:"rel:belongs-to,join:application_id=id" json:"application,omitempty"`
	PartNumbers   []*PartNumber `bun:"rel:has-many,join:id=vehicle_id" json:"part_numbers,omitempty"`
}

// Supplier provides part numbers.
type Supplier struct {
	bun.BaseModel `bun:"table:suppliers,alias:sup"`
	Base

	Name         string        `bun:"name,notnull" json:"name"`
	Code         string        `bun:"code,notnull,unique" json:"code"`
	ContactEmail string        `bun:"contact_email" json:"contact_email,omitempty"`
	PartNumbers  []*PartNumber `bun:"rel:has-many,join:id=supplier_id" json:"part_numbers,omitempty"`
}

// PartNumber is a supplier part fitted to a vehicle.
type PartNumber struct {
	bun.BaseModel `bun:"table:part_numbers,alias:pn"`
	Base

	Number      string    `bun:"number,notnull,unique" json:"number"`
	Description string    `bun:"description" json:"description,omitempty"`
	SupplierID  int64     `bun:"supplier_id,notnull" json:"supplier_id"`
	VehicleID   int64     `bun:"vehicle_id,notnull" json:"vehicle_id"`
	Supplier    *Supplier `bun:"rel:belongs-to,join:supplier_id=id" json:"supplier,omitempty"`
	Vehicle     *Vehicle  `bun:"rel:belongs-to,join:vehicle_id=id" json:"vehicle,omitempty"`
}

// Incident is a production problem reported against an application.
type Incident struct {
	bun.BaseModel `bun:"table:incidents,alias:inc"`
	Base

	Title         string        `bun:"title,notnull" json:"title"`
	Description   string        `bun:"description" json:"description,omitempty"`
	Severity      string        `bun:"severity,notnull,default:'low'" json:"severity"`
	Status        string        `bun:"status,notnull,default:'open'" json:"status"`
	ReportedAt    time.Time     `bun:"reported_at,nullzero" json:"reported_at,omitempty"`
	Metadata      types.JSONMap `bun:"metadata,type:json" json:"metadata,omitempty"`
	ApplicationID int64         `bun:"application_id,notnull" json:"application_id"`
	Application   *Application  `bun:"rel:belongs-to,join:application_id=id" json:"application,omitempty"`
}

// Feedback is a user rating of an application.
type Feedback struct {
	bun.BaseModel `bun:"table:feedbacks,alias:fb"`
	Base

	Author        string       `bun:"author" json:"author,omitempty"`
	Rating        int          `bun:"rating,notnull" json:"rating"`
	Comment       string       `bun:"comment" json:"comment,omitempty"`
	ApplicationID int64        `bun:"application_id,notnull" json:"application_id"`
	Application   *Application `bun:"rel:belongs-to,join:application_id=id" json:"application,omitempty"`
}

// Improvement is a proposed change to an application.
type Improvement struct {
	bun.BaseModel `bun:"table:improvements,alias:imp"`
	Base

	Title         string       `bun:"title,notnull" json:"title"`
	Description   string       `bun:"description" json:"description,omitempty"`
	Status        string       `bun:"status,notnull,default:'proposed'" json:"status"`
	ApplicationID int64        `bun:"application_id,notnull" json:"application_id"`
	Application   *Application `bun:"rel:belongs-to,join:application_id=id" json:"application,omitempty"`
}

// Squad is a team of members.
type Squad struct {
	bun.BaseModel `bun:"table:squads,alias:sq"`
	Base

	Name        string    `bun:"name,notnull,unique" json:"name"`
	Description string    `bun:"description" json:"description,omitempty"`
	Members     []*Member `bun:"rel:has-many,join:id=squad_id" json:"members,omitempty"`
}

// Member belongs to a squad.
type Member struct {
	bun.BaseModel `bun:"table:members,alias:mem"`
	Base

	Name      string       `bun:"name,notnull" json:"name"`
	Email     string       `bun:"email,notnull,unique" json:"email"`
	Role      string       `bun:"role" json:"role,omitempty"`
	SquadID   int64        `bun:"squad_id,notnull" json:"squad_id"`
	Squad     *Squad       `bun:"rel:belongs-to,join:squad_id=id" json:"squad,omitempty"`
	Knowledge []*Knowledge `bun:"rel:has-many,join:id=member_id" json:"knowledge,omitempty"`
}

// Knowledge records how well a member knows an application. A member has at
// most one record per application.
type Knowledge struct {
	bun.BaseModel `bun:"table:knowledge,alias:kn"`
	Base

	MemberID      int64        `bun:"member_id,notnull,unique:member_application" json:"member_id"`
	ApplicationID int64        `bun:"application_id,notnull,unique:member_application" json:"application_id"`
	Level         int          `bun:"level,notnull,default:1" json:"level"`
	Member        *Member      `bun:"rel:belongs-to,join:member_id=id" json:"member,omitempty"`
	Application   *Application `bun:"rel:belongs-to,join:application_id=id" json:"application,omitempty"`
}
