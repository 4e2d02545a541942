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

package api

import (
	"context"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tomoncle/fleetdesk/internal/entity"
	"github.com/tomoncle/fleetdesk/internal/i18n"
	"github.com/tomoncle/fleetdesk/internal/service"
	"github.com/tomoncle/fleetdesk/internal/store"
	"github.com/tomoncle/fleetdesk/types"
)

// crudService is the service surface exposed as a REST resource.
type crudService[T any, F store.Filter] interface {
	Get(ctx context.Context, id int64) types.OperationResult
	List(ctx context.Context, f F, includes ...string) types.OperationResult
	Create(ctx context.Context, e *T) types.OperationResult
	Update(ctx context.Context, id int64, e *T) types.OperationResult
	Delete(ctx context.Context, id int64) types.OperationResult
}

type resource[T any, F store.Filter] struct {
	messages *i18n.Bundle
	pick     func(*service.Services) crudService[T, F]
}

func mount[T any, F store.Filter](g *gin.RouterGroup, path string, messages *i18n.Bundle, pick func(*service.Services) crudService[T, F]) {
	r := &resource[T, F]{messages: messages, pick: pick}
	rg := g.Group(path)
	rg.GET("", r.list)
	rg.GET("/:id", r.get)
	rg.POST("", r.create)
	rg.PUT("/:id", r.update)
	rg.DELETE("/:id", r.delete)
}

func (r *resource[T, F]) svc(c *gin.Context) crudService[T, F] {
	return r.pick(servicesFrom(c))
}

// newFilter allocates the filter F points to.
func newFilter[F any]() F {
	var zero F
	return reflect.New(reflect.TypeOf(zero).Elem()).Interface().(F)
}

// includes accepts both repeated and comma separated include parameters.
func includes(c *gin.Context) []string {
	var out []string
	for _, v := range c.QueryArray("include") {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func (r *resource[T, F]) id(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, r.messages, "invalid id "+strconv.Quote(c.Param("id")))
		return 0, false
	}
	return id, true
}

func (r *resource[T, F]) list(c *gin.Context) {
	f := newFilter[F]()
	if err := c.ShouldBindQuery(f); err != nil {
		badRequest(c, r.messages, err.Error())
		return
	}
	respond(c, r.svc(c).List(c.Request.Context(), f, includes(c)...))
}

func (r *resource[T, F]) get(c *gin.Context) {
	id, ok := r.id(c)
	if !ok {
		return
	}
	respond(c, r.svc(c).Get(c.Request.Context(), id))
}

func (r *resource[T, F]) create(c *gin.Context) {
	e := new(T)
	if err := c.ShouldBindJSON(e); err != nil {
		badRequest(c, r.messages, err.Error())
		return
	}
	respond(c, r.svc(c).Create(c.Request.Context(), e))
}

func (r *resource[T, F]) update(c *gin.Context) {
	id, ok := r.id(c)
	if !ok {
		return
	}
	e := new(T)
	if err := c.ShouldBindJSON(e); err != nil {
		badRequest(c, r.messages, err.Error())
		return
	}
	respond(c, r.svc(c).Update(c.Request.Context(), id, e))
}

func (r *resource[T, F]) delete(c *gin.Context) {
	id, ok := r.id(c)
	if !ok {
		return
	}
	res := r.svc(c).Delete(c.Request.Context(), id)
	if res.Status == types.StatusSuccess {
		c.Status(http.StatusNoContent)
		return
	}
	respond(c, res)
}

// createSquadWithMembers accepts a squad whose members array is created
// along with it.
func createSquadWithMembers(messages *i18n.Bundle) gin.HandlerFunc {
	return func(c *gin.Context) {
		var squad entity.Squad
		if err := c.ShouldBindJSON(&squad); err != nil {
			badRequest(c, messages, err.Error())
			return
		}
		members := squad.Members
		squad.Members = nil
		respond(c, servicesFrom(c).Squads.CreateWithMembers(c.Request.Context(), &squad, members))
	}
}

// StatusCode maps a result to its HTTP status.
func StatusCode(res types.OperationResult) int {
	switch res.Status {
	case types.StatusSuccess:
		return http.StatusOK
	case types.StatusCreated:
		return http.StatusCreated
	case types.StatusNotFound:
		return http.StatusNotFound
	case types.StatusConflict:
		return http.StatusConflict
	case types.StatusInvalidData:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respond(c *gin.Context, res types.OperationResult) {
	c.JSON(StatusCode(res), res)
}
