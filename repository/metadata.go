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

package repository

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/schema"
)

var (
	registryCache sync.Map // registryKey -> *FieldRegistry
	timeType      = reflect.TypeOf(time.Time{})
)

type registryKey struct {
	dialect dialect.Name
	typ     reflect.Type
}

// FieldRegistry maps public field names of an entity type to the columns
// they sort on, and resolves include paths to Bun relation names. One
// registry is built per entity type and shared by every repository.
type FieldRegistry struct {
	table    *schema.Table
	sortable map[string]*schema.Field
}

func registryFor[T any](db bun.IDB) *FieldRegistry {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	key := registryKey{dialect: db.Dialect().Name(), typ: typ}
	if cached, ok := registryCache.Load(key); ok {
		return cached.(*FieldRegistry)
	}
	table := db.Dialect().Tables().Get(typ)
	registry, _ := registryCache.LoadOrStore(key, newFieldRegistry(table))
	return registry.(*FieldRegistry)
}

func newFieldRegistry(table *schema.Table) *FieldRegistry {
	r := &FieldRegistry{
		table:    table,
		sortable: make(map[string]*schema.Field),
	}
	for _, field := range table.Fields {
		if !isSortable(field.IndirectType) {
			continue
		}
		r.sortable[strings.ToLower(field.GoName)] = field
		r.sortable[strings.ToLower(field.Name)] = field
	}
	return r
}

func isSortable(t reflect.Type) bool {
	if t == timeType {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// Table returns the Bun table metadata backing the registry.
func (r *FieldRegistry) Table() *schema.Table { return r.table }

// SortColumn resolves a field name (Go name or column name, any case) to
// its column. Unknown or non-scalar fields yield ErrInvalidArgument.
func (r *FieldRegistry) SortColumn(name string) (string, error) {
	field, ok := r.sortable[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: sort field %q does not exist on %s", ErrInvalidArgument, name, r.table.TypeName)
	}
	return field.Name, nil
}

// SortableFields lists the Go names accepted by SortColumn.
func (r *FieldRegistry) SortableFields() []string {
	seen := make(map[string]struct{}, len(r.sortable))
	names := make([]string, 0, len(r.sortable)/2)
	for _, field := range r.sortable {
		if _, dup := seen[field.GoName]; dup {
			continue
		}
		seen[field.GoName] = struct{}{}
		names = append(names, field.GoName)
	}
	sort.Strings(names)
	return names
}

// PrimaryKeys returns the primary key columns in declaration order.
func (r *FieldRegistry) PrimaryKeys() []string {
	cols := make([]string, len(r.table.PKs))
	for i, pk := range r.table.PKs {
		cols[i] = pk.Name
	}
	return cols
}

// ResolveInclude validates a dotted include path such as "squad.members"
// segment by segment and returns it spelled the way Bun expects.
func (r *FieldRegistry) ResolveInclude(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%w: include path cannot be empty", ErrInvalidArgument)
	}
	table := r.table
	segments := strings.Split(path, ".")
	resolved := make([]string, 0, len(segments))
	for _, segment := range segments {
		rel := lookupRelation(table, segment)
		if rel == nil {
			return "", fmt.Errorf("%w: include path %q does not exist on %s", ErrInvalidArgument, path, r.table.TypeName)
		}
		resolved = append(resolved, rel.Field.GoName)
		table = rel.JoinTable
	}
	return strings.Join(resolved, "."), nil
}

func lookupRelation(table *schema.Table, name string) *schema.Relation {
	if rel, ok := table.Relations[name]; ok {
		return rel
	}
	for goName, rel := range table.Relations {
		if strings.EqualFold(goName, name) {
			return rel
		}
	}
	return nil
}
