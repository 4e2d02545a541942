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
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

func TestIsSQLError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		ok   bool
		want SQLError
	}{
		{"nil", nil, false, UnknownErr},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, true, DuplicateKeyErr},
		{"mysql wrapped fk", fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1452}), true, ForeignKeyViolationErr},
		{"mysql other", &mysql.MySQLError{Number: 1205}, true, UnknownErr},
		{"pq unique", &pq.Error{Code: "23505"}, true, DuplicateKeyErr},
		{"pq missing table", fmt.Errorf("select: %w", &pq.Error{Code: "42P01"}), true, NoTableErr},
		{"sqlite unique", errors.New("constraint failed: UNIQUE constraint failed: squads.name (2067)"), true, DuplicateKeyErr},
		{"sqlite not null", errors.New("NOT NULL constraint failed: members.name"), true, NotNullViolationErr},
		{"sqlite fk", errors.New("FOREIGN KEY constraint failed"), true, ForeignKeyViolationErr},
		{"sqlite missing table", errors.New("no such table: widgets"), true, NoTableErr},
		{"index exists", errors.New("index idx_a already exists"), true, ExistIndexErr},
		{"plain", errors.New("connection reset by peer"), false, UnknownErr},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, kind := IsSQLError(tc.err)
			if ok != tc.ok || kind != tc.want {
				t.Fatalf("IsSQLError = %v/%s, want %v/%s", ok, kind, tc.ok, tc.want)
			}
		})
	}
}

func TestIsDuplicateKey(t *testing.T) {
	if !IsDuplicateKey(&pq.Error{Code: "23505"}) {
		t.Fatal("pq unique violation not detected")
	}
	if IsDuplicateKey(errors.New("timeout")) {
		t.Fatal("timeout reported as duplicate")
	}
	if DuplicateKeyErr.String() != "duplicate_key" || SQLError(99).String() != "unknown" {
		t.Fatal("unexpected names")
	}
}
