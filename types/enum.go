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

package types

import "strings"

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// SortDirection controls the ordering applied by list queries.
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

var _ BaseEnum = Ascending

// ParseSortDirection maps "asc"/"desc" (any case, with or without the
// "ending" suffix) to a SortDirection. Anything else yields Ascending.
func ParseSortDirection(s string) SortDirection {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "desc", "descending":
		return Descending
	default:
		return Ascending
	}
}

func (d SortDirection) IsValid() bool { return d == Ascending || d == Descending }

func (d SortDirection) Number() int {
	if !d.IsValid() {
		return IllegalValue
	}
	return int(d)
}

func (d SortDirection) String() string { return d.Name() }

func (d SortDirection) Name() string {
	switch d {
	case Ascending:
		return "asc"
	case Descending:
		return "desc"
	default:
		return IllegalName
	}
}

func (d SortDirection) Desc() string {
	switch d {
	case Ascending:
		return "ascending"
	case Descending:
		return "descending"
	default:
		return IllegalDesc
	}
}

// SQL returns the keyword used in ORDER BY clauses. Invalid values fall back
// to ASC.
func (d SortDirection) SQL() string {
	if d == Descending {
		return "DESC"
	}
	return "ASC"
}

// OperationStatus is the outcome category of a service call.
type OperationStatus int

const (
	StatusSuccess OperationStatus = iota
	StatusCreated
	StatusNotFound
	StatusConflict
	StatusInvalidData
	StatusError
)

var operationStatusNames = map[OperationStatus][2]string{
	StatusSuccess:     {"success", "operation completed"},
	StatusCreated:     {"created", "resource created"},
	StatusNotFound:    {"not_found", "resource does not exist"},
	StatusConflict:    {"conflict", "resource conflicts with an existing one"},
	StatusInvalidData: {"invalid_data", "request data failed validation"},
	StatusError:       {"error", "unexpected failure"},
}

func (s OperationStatus) IsValid() bool {
	_, ok := operationStatusNames[s]
	return ok
}

func (s OperationStatus) Number() int {
	if !s.IsValid() {
		return IllegalValue
	}
	return int(s)
}

func (s OperationStatus) String() string { return s.Name() }

func (s OperationStatus) Name() string {
	if v, ok := operationStatusNames[s]; ok {
		return v[0]
	}
	return IllegalName
}

func (s OperationStatus) Desc() string {
	if v, ok := operationStatusNames[s]; ok {
		return v[1]
	}
	return IllegalDesc
}

// MarshalText renders the status by name in JSON payloads.
func (s OperationStatus) MarshalText() ([]byte, error) {
	return []byte(s.Name()), nil
}
