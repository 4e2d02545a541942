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

// Package entity holds the persisted fleetdesk models and registers them
// for migration.
package entity

import (
	"context"
	"time"

	"github.com/tomoncle/fleetdesk/database"
	"github.com/uptrace/bun"
)

// Base carries the identity, tenant and audit columns shared by every model.
type Base struct {
	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	TenantID  int64     `bun:"tenant_id,notnull,default:0" json:"tenant_id"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

var _ bun.BeforeAppendModelHook = (*Base)(nil)

// BeforeAppendModel stamps CreatedAt on insert and UpdatedAt on every write.
func (b *Base) BeforeAppendModel(_ context.Context, query bun.Query) error {
	now := time.Now().UTC().Truncate(time.Microsecond)
	switch query.(type) {
	case *bun.InsertQuery:
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		b.UpdatedAt = now
	case *bun.UpdateQuery:
		b.UpdatedAt = now
	}
	return nil
}

// GetID returns the primary key.
func (b *Base) GetID() int64 { return b.ID }

// SetTenant assigns the owning tenant.
func (b *Base) SetTenant(tenantID int64) { b.TenantID = tenantID }

// GetBase exposes the shared columns for in-place updates.
func (b *Base) GetBase() *Base { return b }

// Model is implemented by every entity through Base.
type Model interface {
	GetID() int64
	SetTenant(tenantID int64)
	GetBase() *Base
}

// Tables referenced by foreign keys are created first.
const (
	priorityRoot = iota * 10
	priorityOwned
	priorityLeaf
)

// All returns a pointer to a zero value of every model.
func All() []interface{} {
	return []interface{}{
		(*Application)(nil),
		(*Supplier)(nil),
		(*Squad)(nil),
		(*Vehicle)(nil),
		(*Incident)(nil),
		(*Feedback)(nil),
		(*Improvement)(nil),
		(*Member)(nil),
		(*PartNumber)(nil),
		(*Knowledge)(nil),
	}
}

// Register adds every model to registry in dependency order.
func Register(registry database.ModelRegistry) {
	registry.Register(
		database.NewModelAdapter((*Application)(nil), priorityRoot),
		database.NewModelAdapter((*Supplier)(nil), priorityRoot),
		database.NewModelAdapter((*Squad)(nil), priorityRoot),
		database.NewModelAdapter((*Vehicle)(nil), priorityOwned),
		database.NewModelAdapter((*Incident)(nil), priorityOwned),
		database.NewModelAdapter((*Feedback)(nil), priorityOwned),
		database.NewModelAdapter((*Improvement)(nil), priorityOwned),
		database.NewModelAdapter((*Member)(nil), priorityOwned),
		database.NewModelAdapter((*PartNumber)(nil), priorityLeaf),
		database.NewModelAdapter((*Knowledge)(nil), priorityLeaf),
	)
}

func init() {
	Register(database.DefaultRegistry())
}
