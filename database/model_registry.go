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

package database

import (
	"sort"
	"sync"
)

var defaultRegistry = NewModelRegistry()

// SQLModel is a Bun model taking part in migrations. Lower priorities are
// created first, so referenced tables must carry a lower priority than the
// tables pointing at them.
type SQLModel interface {
	Instance() interface{}
	Priority() int
}

// ModelRegistry stores SQL models and exposes them in priority order.
type ModelRegistry interface {
	Register(model ...SQLModel)
	Models() []SQLModel
	Instances() []interface{}
}

type modelRegistry struct {
	models []SQLModel
	mutex  sync.RWMutex
}

// NewModelRegistry returns an empty registry.
func NewModelRegistry() ModelRegistry {
	return &modelRegistry{}
}

func (r *modelRegistry) Register(model ...SQLModel) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.models = append(r.models, model...)
}

// Models returns the registered models sorted by priority; models sharing a
// priority keep their registration order.
func (r *modelRegistry) Models() []SQLModel {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	result := make([]SQLModel, len(r.models))
	copy(result, r.models)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Priority() < result[j].Priority()
	})
	return result
}

func (r *modelRegistry) Instances() []interface{} {
	models := r.Models()
	instances := make([]interface{}, len(models))
	for i, model := range models {
		instances[i] = model.Instance()
	}
	return instances
}

type modelAdapter struct {
	instance interface{}
	priority int
}

// NewModelAdapter wraps a model pointer and priority into an SQLModel.
func NewModelAdapter(instance interface{}, priority int) SQLModel {
	return &modelAdapter{instance: instance, priority: priority}
}

func (a *modelAdapter) Instance() interface{} { return a.instance }

func (a *modelAdapter) Priority() int { return a.priority }

// RegisterModel adds a model to the default registry.
func RegisterModel(instance interface{}, priority int) {
	defaultRegistry.Register(NewModelAdapter(instance, priority))
}

// DefaultRegistry returns the process wide registry filled by RegisterModel.
func DefaultRegistry() ModelRegistry {
	return defaultRegistry
}
