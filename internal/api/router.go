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

// Package api exposes the fleetdesk services over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/fleetdesk/database"
	"github.com/tomoncle/fleetdesk/internal/config"
	"github.com/tomoncle/fleetdesk/internal/entity"
	"github.com/tomoncle/fleetdesk/internal/i18n"
	"github.com/tomoncle/fleetdesk/internal/service"
	"github.com/tomoncle/fleetdesk/internal/store"
	"github.com/tomoncle/fleetdesk/utils"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HealthFunc reports the state of the database.
type HealthFunc func(ctx context.Context) *database.HealthStatus

type Options struct {
	DB     *bun.DB
	Deps   service.Deps
	Server config.ServerConfig
	Health HealthFunc
	Logger logrus.FieldLogger
}

// NewRouter builds the gin engine serving /api/v1 and /health.
func NewRouter(opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = utils.NewLogger("HTTP")
	}
	if opts.Deps.Messages == nil {
		opts.Deps.Messages = i18n.MustLoad()
	}
	messages := opts.Deps.Messages

	r := gin.New()
	r.Use(
		RequestID(),
		Locale(messages),
		AccessLog(opts.Logger),
		Recovery(opts.Logger, messages),
		CORS(opts.Server.CORS),
		RateLimit(opts.Server.RateLimit, messages),
	)
	r.NoRoute(func(c *gin.Context) {
		msg := messages.T(i18n.Locale(c.Request.Context()), "error.not_found", c.Request.URL.Path)
		c.JSON(http.StatusNotFound, gin.H{"status": "not_found", "message": msg})
	})
	r.GET("/health", health(opts.Health))

	v1 := r.Group("/api/v1", Tenant(messages), Session(opts.DB, opts.Deps))
	mount(v1, "/applications", messages, func(s *service.Services) crudService[entity.Application, *store.ApplicationFilter] {
		return s.Applications
	})
	mount(v1, "/vehicles", messages, func(s *service.Services) crudService[entity.Vehicle, *store.VehicleFilter] {
		return s.Vehicles
	})
	mount(v1, "/suppliers", messages, func(s *service.Services) crudService[entity.Supplier, *store.SupplierFilter] {
		return s.Suppliers
	})
	mount(v1, "/part-numbers", messages, func(s *service.Services) crudService[entity.PartNumber, *store.PartNumberFilter] {
		return s.PartNumbers
	})
	mount(v1, "/incidents", messages, func(s *service.Services) crudService[entity.Incident, *store.IncidentFilter] {
		return s.Incidents
	})
	mount(v1, "/feedbacks", messages, func(s *service.Services) crudService[entity.Feedback, *store.FeedbackFilter] {
		return s.Feedbacks
	})
	mount(v1, "/improvements", messages, func(s *service.Services) crudService[entity.Improvement, *store.ImprovementFilter] {
		return s.Improvements
	})
	v1.POST("/squads/with-members", createSquadWithMembers(messages))
	mount(v1, "/squads", messages, func(s *service.Services) crudService[entity.Squad, *store.SquadFilter] {
		return s.Squads
	})
	mount(v1, "/members", messages, func(s *service.Services) crudService[entity.Member, *store.MemberFilter] {
		return s.Members
	})
	mount(v1, "/knowledge", messages, func(s *service.Services) crudService[entity.Knowledge, *store.KnowledgeFilter] {
		return s.Knowledge
	})
	return r
}

// NewHandler wraps the router with otel instrumentation.
func NewHandler(opts Options) http.Handler {
	return otelhttp.NewHandler(NewRouter(opts), "fleetdesk")
}

func health(check HealthFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		status := check(c.Request.Context())
		if status == nil || !status.Healthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": status})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": status})
	}
}
