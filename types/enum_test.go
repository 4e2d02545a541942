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

import "testing"

func TestParseSortDirection(t *testing.T) {
	cases := map[string]SortDirection{
		"":           Ascending,
		"asc":        Ascending,
		"ASC":        Ascending,
		"desc":       Descending,
		" Desc ":     Descending,
		"descending": Descending,
		"sideways":   Ascending,
	}
	for in, want := range cases {
		if got := ParseSortDirection(in); got != want {
			t.Errorf("ParseSortDirection(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestSortDirectionEnum(t *testing.T) {
	if Descending.SQL() != "DESC" || Ascending.SQL() != "ASC" || SortDirection(9).SQL() != "ASC" {
		t.Fatal("unexpected SQL keywords")
	}
	if SortDirection(9).IsValid() || SortDirection(9).Number() != IllegalValue || SortDirection(9).Name() != IllegalName {
		t.Fatal("invalid direction not reported")
	}
	if Descending.Desc() != "descending" {
		t.Fatalf("desc = %s", Descending.Desc())
	}
}

func TestOperationStatus(t *testing.T) {
	var s BaseEnum = StatusConflict
	if !s.IsValid() || s.Name() != "conflict" || s.Number() != 3 {
		t.Fatalf("conflict status = %s/%d", s.Name(), s.Number())
	}
	text, err := StatusInvalidData.MarshalText()
	if err != nil || string(text) != "invalid_data" {
		t.Fatalf("marshal = %s, %v", text, err)
	}
	if OperationStatus(42).IsValid() {
		t.Fatal("unknown status reported valid")
	}
}
