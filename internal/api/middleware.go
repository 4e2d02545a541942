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
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/fleetdesk/internal/config"
	"github.com/tomoncle/fleetdesk/internal/i18n"
	"github.com/tomoncle/fleetdesk/internal/service"
	"github.com/tomoncle/fleetdesk/internal/store"
	"github.com/tomoncle/fleetdesk/repository"
	"github.com/tomoncle/fleetdesk/types"
	"github.com/uptrace/bun"
	"golang.org/x/time/rate"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTenant    = "X-Tenant-ID"

	requestIDKey = "request_id"
	servicesKey  = "services"
)

// RequestID reuses the caller's X-Request-ID or assigns a new uuid.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(HeaderRequestID, rid)
		c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// AccessLog logs one line per request, at warn for 4xx and error for 5xx.
func AccessLog(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"request_id": GetRequestID(c),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency":    time.Since(start).String(),
			"ip":         c.ClientIP(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request")
		case status >= http.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}

// Recovery turns panics into a 500 result.
func Recovery(logger logrus.FieldLogger, messages *i18n.Bundle) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		logger.WithFields(logrus.Fields{
			"request_id": GetRequestID(c),
			"panic":      fmt.Sprint(recovered),
		}).Error("panic recovered")
		tag := i18n.Locale(c.Request.Context())
		msg := messages.T(tag, "error.internal", c.Request.URL.Path)
		c.AbortWithStatusJSON(http.StatusInternalServerError, types.NewErrorResult(types.StatusError, msg))
	})
}

// CORS applies the configured origin policy. A "*" entry allows any origin.
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Accept-Language", HeaderTenant, HeaderRequestID},
		ExposeHeaders: []string{HeaderRequestID},
		MaxAge:        cfg.MaxAge,
	}
	if len(cfg.AllowOrigins) == 0 || lo.Contains(cfg.AllowOrigins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowOrigins
	}
	return cors.New(c)
}

// limiterIdle is how long a client IP may stay silent before its limiter is
// evicted.
const limiterIdle = 3 * time.Minute

type visitor struct {
	limiter *rate.Limiter
	seen    time.Time
}

// visitors holds one limiter per client IP. Idle entries are swept at most
// once per idle period, on access.
type visitors struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idle      time.Duration
	now       func() time.Time
	entries   map[string]*visitor
	lastSweep time.Time
}

func newVisitors(limit rate.Limit, burst int, idle time.Duration) *visitors {
	return &visitors{
		limit:   limit,
		burst:   burst,
		idle:    idle,
		now:     time.Now,
		entries: make(map[string]*visitor),
	}
}

func (v *visitors) get(ip string) *rate.Limiter {
	v.mu.Lock()
	defer v.mu.Unlock()
	now := v.now()
	if now.Sub(v.lastSweep) >= v.idle {
		for key, e := range v.entries {
			if now.Sub(e.seen) >= v.idle {
				delete(v.entries, key)
			}
		}
		v.lastSweep = now
	}
	e, ok := v.entries[ip]
	if !ok {
		e = &visitor{limiter: rate.NewLimiter(v.limit, v.burst)}
		v.entries[ip] = e
	}
	e.seen = now
	return e.limiter
}

func (v *visitors) len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.entries)
}

// RateLimit allows cfg.RPS requests per second per client IP.
func RateLimit(cfg config.RateLimitConfig, messages *i18n.Bundle) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return rateLimit(newVisitors(rate.Limit(cfg.RPS), burst, limiterIdle), messages)
}

func rateLimit(clients *visitors, messages *i18n.Bundle) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !clients.get(c.ClientIP()).Allow() {
			msg := messages.T(i18n.Locale(c.Request.Context()), "error.rate_limited")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, types.NewErrorResult(types.StatusError, msg))
			return
		}
		c.Next()
	}
}

// Locale stores the best catalog match for Accept-Language in the request
// context.
func Locale(messages *i18n.Bundle) gin.HandlerFunc {
	return func(c *gin.Context) {
		tag := messages.Match(c.GetHeader("Accept-Language"))
		c.Request = c.Request.WithContext(i18n.WithLocale(c.Request.Context(), tag))
		c.Header("Content-Language", tag.String())
		c.Next()
	}
}

// Tenant scopes the request to X-Tenant-ID. Requests without the header are
// unscoped.
func Tenant(messages *i18n.Bundle) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderTenant))
		if raw == "" {
			c.Next()
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			badRequest(c, messages, fmt.Sprintf("invalid %s header %q", HeaderTenant, raw))
			return
		}
		c.Request = c.Request.WithContext(service.WithTenant(c.Request.Context(), id))
		c.Next()
	}
}

// Session gives each request its own unit of work and services. Anything
// left staged when the handler returns is discarded.
func Session(db *bun.DB, deps service.Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := repository.NewSession(db)
		defer session.Discard()
		c.Set(servicesKey, service.New(store.New(session), deps))
		c.Next()
	}
}

func servicesFrom(c *gin.Context) *service.Services {
	return c.MustGet(servicesKey).(*service.Services)
}

func badRequest(c *gin.Context, messages *i18n.Bundle, detail string) {
	msg := messages.T(i18n.Locale(c.Request.Context()), "error.bad_request")
	c.AbortWithStatusJSON(http.StatusBadRequest, types.NewErrorResult(types.StatusInvalidData, msg, detail))
}
