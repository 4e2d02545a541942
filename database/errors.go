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
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// SQLError classifies driver errors independently of the dialect.
type SQLError int

const (
	UnknownErr SQLError = iota
	NoRowsErr
	NoIndexErr
	NoColumnErr
	ExistIndexErr
	ExistColumnErr
	NoTableErr
	ExistTableErr
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
	CheckConstraintViolationErr
	DataTruncatedErr
	InvalidTypeCastErr
)

var sqlErrorNames = [...]string{
	"unknown", "no_rows", "no_index", "no_column", "exist_index", "exist_column",
	"no_table", "exist_table", "duplicate_key", "not_null_violation",
	"foreign_key_violation", "check_violation", "data_truncated", "invalid_type_cast",
}

func (e SQLError) String() string {
	if e < 0 || int(e) >= len(sqlErrorNames) {
		return sqlErrorNames[0]
	}
	return sqlErrorNames[e]
}

var mysqlCodes = map[uint16]SQLError{
	1091: NoIndexErr,
	1054: NoColumnErr,
	1061: ExistIndexErr,
	1060: ExistColumnErr,
	1146: NoTableErr,
	1050: ExistTableErr,
	1062: DuplicateKeyErr,
	1048: NotNullViolationErr,
	1216: ForeignKeyViolationErr,
	1217: ForeignKeyViolationErr,
	1451: ForeignKeyViolationErr,
	1452: ForeignKeyViolationErr,
	3819: CheckConstraintViolationErr,
	1265: DataTruncatedErr,
	1406: DataTruncatedErr,
}

var postgresCodes = map[pq.ErrorCode]SQLError{
	"42703": NoColumnErr,
	"42704": NoIndexErr,
	"42P01": NoTableErr,
	"42P07": ExistTableErr,
	"42701": ExistColumnErr,
	"23505": DuplicateKeyErr,
	"23502": NotNullViolationErr,
	"23503": ForeignKeyViolationErr,
	"23514": CheckConstraintViolationErr,
	"22001": DataTruncatedErr,
	"42804": InvalidTypeCastErr,
}

// IsSQLError reports whether err is a recognized database error and which
// category it falls in. Typed driver errors are checked first, then the
// message is matched against the sqlite and postgres wordings.
func IsSQLError(err error) (bool, SQLError) {
	if err == nil {
		return false, UnknownErr
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		if kind, ok := mysqlCodes[mysqlErr.Number]; ok {
			return true, kind
		}
		return true, UnknownErr
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if kind, ok := postgresCodes[pqErr.Code]; ok {
			return true, kind
		}
		return true, UnknownErr
	}
	return classifyMessage(strings.ToLower(err.Error()))
}

// IsDuplicateKey reports whether err is a unique constraint violation.
func IsDuplicateKey(err error) bool {
	ok, kind := IsSQLError(err)
	return ok && kind == DuplicateKeyErr
}

func classifyMessage(s string) (bool, SQLError) {
	containsAny := func(subs ...string) bool {
		for _, sub := range subs {
			if strings.Contains(s, sub) {
				return true
			}
		}
		return false
	}
	switch {
	case containsAny("sqlstate 42703", "undefined column", "no such column"):
		return true, NoColumnErr
	case containsAny("sqlstate 42704", "no such index"),
		strings.Contains(s, "does not exist") && strings.Contains(s, "index"):
		return true, NoIndexErr
	case containsAny("sqlstate 42p01", "undefined table", "no such table"):
		return true, NoTableErr
	case strings.Contains(s, "already exists") && strings.Contains(s, "index"):
		return true, ExistIndexErr
	case strings.Contains(s, "already exists") && containsAny("table", "relation"):
		return true, ExistTableErr
	case containsAny("duplicate key value", "unique constraint failed", "sqlstate 23505"):
		return true, DuplicateKeyErr
	case containsAny("not-null constraint", "sqlstate 23502", "not null constraint failed"):
		return true, NotNullViolationErr
	case containsAny("foreign key violation", "foreign key constraint failed", "sqlstate 23503"):
		return true, ForeignKeyViolationErr
	case containsAny("check constraint", "sqlstate 23514"):
		return true, CheckConstraintViolationErr
	case containsAny("string data right truncation", "sqlstate 22001", "data truncated"):
		return true, DataTruncatedErr
	case containsAny("datatype mismatch", "sqlstate 42804"):
		return true, InvalidTypeCastErr
	}
	return false, UnknownErr
}
