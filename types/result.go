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

// OperationResult is the uniform envelope returned by application services.
// Data holds the entity or page on success and is nil otherwise.
type OperationResult struct {
	Status  OperationStatus `json:"status"`
	Message string          `json:"message"`
	Errors  []string        `json:"errors,omitempty"`
	Data    interface{}     `json:"data,omitempty"`
}

// Succeeded reports whether the status is Success or Created.
func (r OperationResult) Succeeded() bool {
	return r.Status == StatusSuccess || r.Status == StatusCreated
}

// NewResult builds a result with the given status, message and optional data.
func NewResult(status OperationStatus, message string, data interface{}) OperationResult {
	return OperationResult{Status: status, Message: message, Data: data}
}

// NewErrorResult builds a failed result carrying detail messages.
func NewErrorResult(status OperationStatus, message string, errs ...string) OperationResult {
	return OperationResult{Status: status, Message: message, Errors: errs}
}
