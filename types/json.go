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

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap stores free-form attributes in a single JSON column.
type JSONMap map[string]interface{}

// Value implements driver.Valuer. A nil map is stored as NULL.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner. Drivers hand JSON back either as bytes or as
// text depending on the dialect, so both are accepted.
func (m *JSONMap) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*m = make(JSONMap)
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", value)
	}
	if len(raw) == 0 {
		*m = make(JSONMap)
		return nil
	}
	return json.Unmarshal(raw, m)
}

// GetString returns the value stored under key, or "" when absent or not a string.
func (m JSONMap) GetString(key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}
