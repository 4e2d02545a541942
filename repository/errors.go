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

import "errors"

var (
	// ErrInvalidArgument reports a nil query, an unknown sort field or an
	// unknown include path.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOutOfRange reports a page or page size below 1.
	ErrOutOfRange = errors.New("out of range")
)

// IsArgumentError reports whether err was raised by argument validation
// rather than by the store.
func IsArgumentError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrOutOfRange)
}
