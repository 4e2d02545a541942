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

import "github.com/tomoncle/fleetdesk/internal/store"

// Services bundles every entity service over one set of stores.
type Services struct {
	Applications *ApplicationService
	Vehicles     *VehicleService
	Suppliers    *SupplierService
	PartNumbers  *PartNumberService
	Incidents    *IncidentService
	Feedbacks    *FeedbackService
	Improvements *ImprovementService
	Squads       *SquadService
	Members      *MemberService
	Knowledge    *KnowledgeService
}

// New wires the services to stores. Zero Deps fields get defaults.
func New(stores *store.Stores, deps Deps) *Services {
	deps = deps.withDefaults()
	members := NewMemberService(stores.Members, deps)
	return &Services{
		Applications: NewApplicationService(stores.Applications, deps),
		Vehicles:     NewVehicleService(stores.Vehicles, deps),
		Suppliers:    NewSupplierService(stores.Suppliers, deps),
		PartNumbers:  NewPartNumberService(stores.PartNumbers, deps),
		Incidents:    NewIncidentService(stores.Incidents, deps),
		Feedbacks:    NewFeedbackService(stores.Feedbacks, deps),
		Improvements: NewImprovementService(stores.Improvements, deps),
		Squads:       NewSquadService(stores.Squads, members, deps),
		Members:      members,
		Knowledge:    NewKnowledgeService(stores.Knowledge, deps),
	}
}
