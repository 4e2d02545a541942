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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/tomoncle/fleetdesk/database"
	"github.com/tomoncle/fleetdesk/internal/config"
	"github.com/tomoncle/fleetdesk/internal/dbtest"
	"github.com/tomoncle/fleetdesk/internal/i18n"
	"github.com/tomoncle/fleetdesk/internal/service"
	"github.com/tomoncle/fleetdesk/types"
	"golang.org/x/time/rate"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Errors  []string        `json:"errors"`
	Data    json.RawMessage `json:"data"`
}

type client struct {
	t       *testing.T
	handler http.Handler
	headers map[string]string
}

func newClient(t *testing.T, mutate ...func(*Options)) *client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger, _ := test.NewNullLogger()
	opts := Options{
		DB:     dbtest.New(t),
		Deps:   service.Deps{Messages: i18n.MustLoad(), Logger: logger},
		Logger: logger,
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	return &client{t: t, handler: NewRouter(opts), headers: map[string]string{}}
}

func (c *client) do(method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	c.t.Helper()
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	var env envelope
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

func (c *client) expect(method, path string, body interface{}, code int) envelope {
	c.t.Helper()
	rec, env := c.do(method, path, body)
	if rec.Code != code {
		c.t.Fatalf("%s %s = %d, want %d: %s", method, path, rec.Code, code, rec.Body.String())
	}
	return env
}

func decodeID(t *testing.T, env envelope) int64 {
	t.Helper()
	var v struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &v); err != nil || v.ID == 0 {
		t.Fatalf("data = %s (%v)", env.Data, err)
	}
	return v.ID
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func TestApplicationCRUD(t *testing.T) {
	c := newClient(t)
	env := c.expect(http.MethodPost, "/api/v1/applications", map[string]string{"name": "Telemetry", "code": "TEL"}, http.StatusCreated)
	if env.Status != "created" {
		t.Fatalf("status = %s", env.Status)
	}
	id := decodeID(t, env)
	path := "/api/v1/applications/" + itoa(id)

	c.expect(http.MethodGet, path, nil, http.StatusOK)
	c.expect(http.MethodPut, path, map[string]string{"name": "Telemetry Hub", "code": "TEL"}, http.StatusOK)
	c.expect(http.MethodPost, "/api/v1/applications", map[string]string{"name": "Dup", "code": "TEL"}, http.StatusConflict)
	c.expect(http.MethodPost, "/api/v1/applications", map[string]string{"name": "NoCode"}, http.StatusUnprocessableEntity)

	rec, _ := c.do(http.MethodDelete, path, nil)
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Fatalf("delete = %d %q", rec.Code, rec.Body.String())
	}
	c.expect(http.MethodGet, path, nil, http.StatusNotFound)
	c.expect(http.MethodDelete, path, nil, http.StatusNotFound)
	c.expect(http.MethodPut, path, map[string]string{"name": "x", "code": "y"}, http.StatusNotFound)
}

func TestListPagingAndErrors(t *testing.T) {
	c := newClient(t)
	for _, code := range []string{"A", "B", "C", "D", "E"} {
		c.expect(http.MethodPost, "/api/v1/applications", map[string]string{"name": "App " + code, "code": code}, http.StatusCreated)
	}

	env := c.expect(http.MethodGet, "/api/v1/applications?page=9&page_size=2&sort=code&direction=desc", nil, http.StatusOK)
	var page struct {
		Items []struct {
			Code string `json:"code"`
		} `json:"items"`
		Page  int `json:"page"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &page); err != nil {
		t.Fatal(err)
	}
	if page.Page != 3 || page.Total != 5 || len(page.Items) != 1 || page.Items[0].Code != "A" {
		t.Fatalf("page = %+v", page)
	}

	env = c.expect(http.MethodGet, "/api/v1/applications?name=app+c", nil, http.StatusOK)
	if err := json.Unmarshal(env.Data, &page); err != nil || page.Total != 1 {
		t.Fatalf("filtered = %+v (%v)", page, err)
	}

	c.expect(http.MethodGet, "/api/v1/applications?page=0", nil, http.StatusUnprocessableEntity)
	c.expect(http.MethodGet, "/api/v1/applications?sort=nope", nil, http.StatusUnprocessableEntity)
	c.expect(http.MethodGet, "/api/v1/applications?include=Owner", nil, http.StatusUnprocessableEntity)
	c.expect(http.MethodGet, "/api/v1/applications?page=abc", nil, http.StatusBadRequest)
}

func TestBadRequests(t *testing.T) {
	c := newClient(t)
	c.expect(http.MethodGet, "/api/v1/vehicles/abc", nil, http.StatusBadRequest)
	c.expect(http.MethodPost, "/api/v1/vehicles", "{not json", http.StatusBadRequest)
	c.headers[HeaderTenant] = "tenant-a"
	c.expect(http.MethodGet, "/api/v1/vehicles", nil, http.StatusBadRequest)
	c.expect(http.MethodGet, "/api/v1/unknown", nil, http.StatusNotFound)
}

func TestTenantScoping(t *testing.T) {
	c := newClient(t)
	c.headers[HeaderTenant] = "1"
	id := decodeID(t, c.expect(http.MethodPost, "/api/v1/suppliers", map[string]string{"name": "Bosch", "code": "BOS"}, http.StatusCreated))

	c.headers[HeaderTenant] = "2"
	c.expect(http.MethodGet, "/api/v1/suppliers/"+itoa(id), nil, http.StatusNotFound)
	c.headers[HeaderTenant] = "1"
	c.expect(http.MethodGet, "/api/v1/suppliers/"+itoa(id), nil, http.StatusOK)
}

func TestLocalizedResponse(t *testing.T) {
	c := newClient(t)
	c.headers["Accept-Language"] = "fr-CA, en;q=0.5"
	rec, env := c.do(http.MethodGet, "/api/v1/squads/42", nil)
	if rec.Code != http.StatusNotFound || env.Message != "Équipe introuvable" {
		t.Fatalf("response = %d %+v", rec.Code, env)
	}
	if rec.Header().Get("Content-Language") != "fr" {
		t.Fatalf("content-language = %q", rec.Header().Get("Content-Language"))
	}
}

func TestSquadWithMembers(t *testing.T) {
	c := newClient(t)
	body := map[string]interface{}{
		"name": "Core",
		"members": []map[string]string{
			{"name": "Ada", "email": "ada@example.com"},
			{"name": "Linus", "email": "linus@example.com"},
		},
	}
	c.expect(http.MethodPost, "/api/v1/squads/with-members", body, http.StatusCreated)
	c.expect(http.MethodPost, "/api/v1/squads/with-members", body, http.StatusConflict)

	env := c.expect(http.MethodGet, "/api/v1/squads?include=Members", nil, http.StatusOK)
	var page struct {
		Items []struct {
			Members []struct {
				Email string `json:"email"`
			} `json:"members"`
		} `json:"items"`
	}
	if err := json.Unmarshal(env.Data, &page); err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 || len(page.Items[0].Members) != 2 {
		t.Fatalf("squads = %s", env.Data)
	}
}

func TestRequestIDAndCORS(t *testing.T) {
	c := newClient(t)
	rec, _ := c.do(http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || rec.Header().Get(HeaderRequestID) == "" {
		t.Fatalf("health = %d, request id %q", rec.Code, rec.Header().Get(HeaderRequestID))
	}
	c.headers[HeaderRequestID] = "abc-123"
	if rec, _ := c.do(http.MethodGet, "/health", nil); rec.Header().Get(HeaderRequestID) != "abc-123" {
		t.Fatal("request id not propagated")
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/applications", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	pre := httptest.NewRecorder()
	c.handler.ServeHTTP(pre, req)
	if pre.Code != http.StatusNoContent || pre.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("preflight = %d %v", pre.Code, pre.Header())
	}
}

func TestRateLimit(t *testing.T) {
	c := newClient(t, func(o *Options) {
		o.Server.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1}
	})
	c.expect(http.MethodGet, "/health", nil, http.StatusOK)
	c.expect(http.MethodGet, "/health", nil, http.StatusTooManyRequests)
}

func TestRateLimitEvictsIdleClients(t *testing.T) {
	now := time.Unix(1700000000, 0)
	clients := newVisitors(rate.Limit(1), 1, time.Minute)
	clients.now = func() time.Time { return now }

	clients.get("10.0.0.1")
	clients.get("10.0.0.2")
	if clients.len() != 2 {
		t.Fatalf("entries = %d", clients.len())
	}

	now = now.Add(30 * time.Second)
	clients.get("10.0.0.2")
	now = now.Add(45 * time.Second)
	clients.get("10.0.0.3")
	if clients.len() != 2 {
		t.Fatalf("idle client kept, entries = %d", clients.len())
	}
	if _, ok := clients.entries["10.0.0.1"]; ok {
		t.Fatal("10.0.0.1 should be evicted")
	}

	l := clients.get("10.0.0.3")
	if l != clients.get("10.0.0.3") {
		t.Fatal("active client should keep its limiter")
	}
}

func TestHealthReportsDatabase(t *testing.T) {
	healthy := true
	c := newClient(t, func(o *Options) {
		o.Health = func(context.Context) *database.HealthStatus {
			return &database.HealthStatus{Healthy: healthy, Connected: healthy}
		}
	})
	c.expect(http.MethodGet, "/health", nil, http.StatusOK)
	healthy = false
	c.expect(http.MethodGet, "/health", nil, http.StatusServiceUnavailable)
}

func TestRecoveryAndOtelHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, hook := test.NewNullLogger()
	r := gin.New()
	r.Use(RequestID(), Locale(i18n.MustLoad()), Recovery(logger, i18n.MustLoad()))
	r.GET("/boom", func(*gin.Context) { panic("boom") })
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError || hook.LastEntry() == nil {
		t.Fatalf("recovery = %d", rec.Code)
	}

	h := NewHandler(Options{DB: dbtest.New(t), Logger: logger})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("instrumented health = %d", rec.Code)
	}
}

func TestStatusCode(t *testing.T) {
	cases := map[types.OperationStatus]int{
		types.StatusSuccess:     http.StatusOK,
		types.StatusCreated:     http.StatusCreated,
		types.StatusNotFound:    http.StatusNotFound,
		types.StatusConflict:    http.StatusConflict,
		types.StatusInvalidData: http.StatusUnprocessableEntity,
		types.StatusError:       http.StatusInternalServerError,
	}
	for status, want := range cases {
		if got := StatusCode(types.OperationResult{Status: status}); got != want {
			t.Errorf("%s -> %d, want %d", status, got, want)
		}
	}
}
