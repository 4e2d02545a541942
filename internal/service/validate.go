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

package service

import (
	"context"
	"strings"
)

// checks collects localized validation messages.
type checks struct {
	ctx  context.Context
	deps Deps
	errs []string
}

func newChecks(ctx context.Context, deps Deps) *checks {
	return &checks{ctx: ctx, deps: deps}
}

func (c *checks) required(field, value string) *checks {
	if strings.TrimSpace(value) == "" {
		c.errs = append(c.errs, c.deps.t(c.ctx, "validation.required", field))
	}
	return c
}

func (c *checks) reference(field string, id int64) *checks {
	if id <= 0 {
		c.errs = append(c.errs, c.deps.t(c.ctx, "validation.required", field))
	}
	return c
}

func (c *checks) between(field string, v, min, max int) *checks {
	if v < min || v > max {
		c.errs = append(c.errs, c.deps.t(c.ctx, "validation.range", field, min, max))
	}
	return c
}

func (c *checks) result() []string { return c.errs }

// unique turns an exists lookup into a conflict message.
func unique(taken bool, err error, msg func() string) (string, error) {
	if err != nil || !taken {
		return "", err
	}
	return msg(), nil
}
