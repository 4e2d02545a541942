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
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/tomoncle/fleetdesk/internal/dbtest"
	"github.com/tomoncle/fleetdesk/internal/entity"
	"github.com/tomoncle/fleetdesk/internal/i18n"
	"github.com/tomoncle/fleetdesk/internal/notify"
	"github.com/tomoncle/fleetdesk/internal/store"
	"github.com/tomoncle/fleetdesk/repository"
	"github.com/tomoncle/fleetdesk/types"
	"golang.org/x/text/language"
)

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (r *recorder) Publish(_ context.Context, e notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recorder) Close() error { return nil }

func (r *recorder) subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Subject(""))
	}
	return out
}

type fixture struct {
	services *Services
	stores   *store.Stores
	events   *recorder
	logs     *test.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	stores := store.New(repository.NewSession(dbtest.New(t)))
	logger, hook := test.NewNullLogger()
	events := &recorder{}
	return &fixture{
		services: New(stores, Deps{Messages: i18n.MustLoad(), Publisher: events, Logger: logger}),
		stores:   stores,
		events:   events,
		logs:     hook,
	}
}

func (f *fixture) application(t *testing.T, ctx context.Context, code string) *entity.Application {
	t.Helper()
	app := &entity.Application{Name: "App " + code, Code: code}
	if res := f.services.Applications.Create(ctx, app); res.Status != types.StatusCreated {
		t.Fatalf("create application: %+v", res)
	}
	return app
}

func TestCreateAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.application(t, ctx, "TEL")
	if app.ID == 0 || app.CreatedAt.IsZero() {
		t.Fatalf("app = %+v", app)
	}

	res := f.services.Applications.Get(ctx, app.ID)
	if res.Status != types.StatusSuccess || res.Message != "Application retrieved" {
		t.Fatalf("get = %+v", res)
	}
	if got := res.Data.(*entity.Application); got.Code != "TEL" {
		t.Fatalf("data = %+v", got)
	}
	if res := f.services.Applications.Get(ctx, 999); res.Status != types.StatusNotFound {
		t.Fatalf("missing = %+v", res)
	}
	if got := f.events.subjects(); len(got) != 1 || got[0] != "application.created" {
		t.Fatalf("events = %v", got)
	}
}

func TestLocalizedMessages(t *testing.T) {
	f := newFixture(t)
	bundle := i18n.MustLoad()
	ctx := i18n.WithLocale(context.Background(), language.French)

	res := f.services.Vehicles.Create(ctx, &entity.Vehicle{})
	if res.Status != types.StatusInvalidData {
		t.Fatalf("status = %s", res.Status)
	}
	want := bundle.T(language.French, "error.invalid", bundle.Entity(language.French, "vehicle"))
	if res.Message != want {
		t.Fatalf("message = %q, want %q", res.Message, want)
	}
	if len(res.Errors) != 3 || res.Errors[0] != bundle.T(language.French, "validation.required", "chassis") {
		t.Fatalf("errors = %v", res.Errors)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if res := f.services.Applications.Create(ctx, nil); res.Status != types.StatusInvalidData || res.Errors[0] != "No data provided" {
		t.Fatalf("nil = %+v", res)
	}
	res := f.services.Feedbacks.Create(ctx, &entity.Feedback{ApplicationID: 1, Rating: 9})
	if res.Status != types.StatusInvalidData || res.Errors[0] != "rating must be between 1 and 5" {
		t.Fatalf("range = %+v", res)
	}
	if len(f.events.subjects()) != 0 {
		t.Fatal("rejected writes must not publish")
	}
}

func TestCreateConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.application(t, ctx, "TEL")

	res := f.services.Applications.Create(ctx, &entity.Application{Name: "Other", Code: "TEL"})
	if res.Status != types.StatusConflict || res.Errors[0] != `Code "TEL" is already used` {
		t.Fatalf("conflict = %+v", res)
	}
}

func TestStoreDuplicateKeyIsConflict(t *testing.T) {
	f := newFixture(t)
	res := f.services.Applications.failure(context.Background(), errors.New("constraint failed: UNIQUE constraint failed: applications.code"))
	if res.Status != types.StatusConflict {
		t.Fatalf("status = %s", res.Status)
	}
	res = f.services.Applications.failure(context.Background(), errors.New("disk I/O error"))
	if res.Status != types.StatusError || res.Errors[0] != "disk I/O error" {
		t.Fatalf("unknown error = %+v", res)
	}
	if f.logs.LastEntry() == nil || f.logs.LastEntry().Level != logrus.ErrorLevel {
		t.Fatal("unexpected failures must be logged")
	}
}

func TestUpdateKeepsIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := WithTenant(context.Background(), 4)
	app := f.application(t, ctx, "TEL")

	res := f.services.Applications.Update(ctx, app.ID, &entity.Application{Base: entity.Base{TenantID: 9}, Name: "Renamed", Code: "TEL"})
	if res.Status != types.StatusSuccess {
		t.Fatalf("update = %+v", res)
	}
	stored, err := f.stores.Applications.Find(ctx, app.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Name != "Renamed" || stored.TenantID != 4 || !stored.CreatedAt.Equal(app.CreatedAt) {
		t.Fatalf("stored = %+v", stored)
	}
	if res := f.services.Applications.Update(ctx, 999, &entity.Application{Name: "x", Code: "y"}); res.Status != types.StatusNotFound {
		t.Fatalf("missing = %+v", res)
	}
	f.application(t, ctx, "FPL")
	if res := f.services.Applications.Update(ctx, app.ID, &entity.Application{Name: "x", Code: "FPL"}); res.Status != types.StatusConflict {
		t.Fatalf("code clash = %+v", res)
	}
}

func TestVehicleUpdateIsDeferredThenCommitted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.application(t, ctx, "TEL")
	v := &entity.Vehicle{Chassis: "CH-1", Model: "Atego", ApplicationID: app.ID}
	if res := f.services.Vehicles.Create(ctx, v); res.Status != types.StatusCreated {
		t.Fatalf("create = %+v", res)
	}

	if f.services.Vehicles.updateMode != repository.Deferred || f.services.Suppliers.updateMode != repository.Immediate {
		t.Fatal("unexpected persist modes")
	}
	res := f.services.Vehicles.Update(ctx, v.ID, &entity.Vehicle{Chassis: "CH-1", Model: "Actros", ApplicationID: app.ID})
	if res.Status != types.StatusSuccess {
		t.Fatalf("update = %+v", res)
	}
	if f.stores.Session.Pending() != 0 {
		t.Fatalf("pending = %d", f.stores.Session.Pending())
	}
	stored, _ := f.stores.Vehicles.Find(ctx, v.ID)
	if stored.Model != "Actros" {
		t.Fatalf("model = %s", stored.Model)
	}
}

func TestSupplierUpdateIsImmediate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sup := &entity.Supplier{Name: "Bosch", Code: "BOS"}
	if res := f.services.Suppliers.Create(ctx, sup); res.Status != types.StatusCreated {
		t.Fatalf("create = %+v", res)
	}
	res := f.services.Suppliers.Update(ctx, sup.ID, &entity.Supplier{Name: "Bosch GmbH", Code: "BOS"})
	if res.Status != types.StatusSuccess {
		t.Fatalf("update = %+v", res)
	}
	stored, _ := f.stores.Suppliers.Find(ctx, sup.ID)
	if stored.Name != "Bosch GmbH" {
		t.Fatalf("name = %s", stored.Name)
	}
	want := []string{"supplier.created", "supplier.updated"}
	if got := f.events.subjects(); len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("events = %v", got)
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.application(t, ctx, "TEL")

	if res := f.services.Applications.Delete(ctx, app.ID); res.Status != types.StatusSuccess || res.Data != nil {
		t.Fatalf("delete = %+v", res)
	}
	if res := f.services.Applications.Delete(ctx, app.ID); res.Status != types.StatusNotFound {
		t.Fatalf("second delete = %+v", res)
	}
	if got := f.events.subjects(); len(got) != 2 || got[1] != "application.deleted" {
		t.Fatalf("events = %v", got)
	}
}

func TestTenantIsolation(t *testing.T) {
	f := newFixture(t)
	one := WithTenant(context.Background(), 1)
	two := WithTenant(context.Background(), 2)
	app := f.application(t, one, "TEL")
	f.application(t, two, "FPL")

	if res := f.services.Applications.Get(two, app.ID); res.Status != types.StatusNotFound {
		t.Fatalf("cross tenant get = %+v", res)
	}
	if res := f.services.Applications.Delete(two, app.ID); res.Status != types.StatusNotFound {
		t.Fatalf("cross tenant delete = %+v", res)
	}
	res := f.services.Applications.List(two, &store.ApplicationFilter{Filter: types.NewFilter()})
	page := res.Data.(*types.PagedResult[entity.Application])
	if page.Total != 1 || page.Items[0].Code != "FPL" {
		t.Fatalf("tenant page = %+v", page.Items)
	}
	res = f.services.Applications.List(context.Background(), &store.ApplicationFilter{Filter: types.NewFilter()})
	if page := res.Data.(*types.PagedResult[entity.Application]); page.Total != 2 {
		t.Fatalf("unscoped total = %d", page.Total)
	}
}

func TestListArgumentErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	filter := &store.ApplicationFilter{Filter: types.NewFilter()}
	filter.Sort = "settings"
	if res := f.services.Applications.List(ctx, filter); res.Status != types.StatusInvalidData {
		t.Fatalf("bad sort = %+v", res)
	}
	filter = &store.ApplicationFilter{Filter: types.Filter{Page: 0, PageSize: 10}}
	if res := f.services.Applications.List(ctx, filter); res.Status != types.StatusInvalidData {
		t.Fatalf("bad page = %+v", res)
	}
	if res := f.services.Applications.List(ctx, nil); res.Status != types.StatusInvalidData {
		t.Fatalf("nil filter = %+v", res)
	}
	if res := f.services.Applications.List(ctx, &store.ApplicationFilter{Filter: types.NewFilter()}, "Owner"); res.Status != types.StatusInvalidData {
		t.Fatalf("bad include = %+v", res)
	}
}

func TestCreateWithMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	squad := &entity.Squad{Name: "Core"}
	members := []*entity.Member{
		{Name: "Ada", Email: "ada@example.com"},
		{Name: "Linus", Email: "linus@example.com"},
	}

	res := f.services.Squads.CreateWithMembers(ctx, squad, members)
	if res.Status != types.StatusCreated {
		t.Fatalf("create = %+v", res)
	}
	if squad.ID == 0 || members[0].SquadID != squad.ID || members[1].SquadID != squad.ID {
		t.Fatalf("ids: squad %d members %d %d", squad.ID, members[0].SquadID, members[1].SquadID)
	}
	page, err := f.stores.Squads.List(ctx, &store.SquadFilter{Filter: types.NewFilter()}, "Members")
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 || len(page.Items[0].Members) != 2 {
		t.Fatalf("squads = %+v", page.Items)
	}
	if got := f.events.subjects(); len(got) != 3 || got[0] != "squad.created" || got[2] != "member.created" {
		t.Fatalf("events = %v", got)
	}
}

func TestCreateWithMembersRejectsDuplicateEmails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	members := []*entity.Member{
		{Name: "Ada", Email: "ada@example.com"},
		{Name: "Ada L.", Email: "ADA@example.com"},
	}
	res := f.services.Squads.CreateWithMembers(ctx, &entity.Squad{Name: "Core"}, members)
	if res.Status != types.StatusConflict {
		t.Fatalf("status = %+v", res)
	}
	if n, _ := f.stores.Squads.Count(ctx, repository.All); n != 0 {
		t.Fatalf("squads persisted = %d", n)
	}

	res = f.services.Squads.CreateWithMembers(ctx, &entity.Squad{Name: "Core"}, []*entity.Member{{Name: "NoMail"}})
	if res.Status != types.StatusInvalidData || len(res.Errors) != 1 {
		t.Fatalf("invalid member = %+v", res)
	}
}

func TestPublishFailureIsLogged(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("nats: connection closed")
	ctx := context.Background()

	app := &entity.Application{Name: "Telemetry", Code: "TEL"}
	if res := f.services.Applications.Create(ctx, app); res.Status != types.StatusCreated {
		t.Fatalf("create = %+v", res)
	}
	entry := f.logs.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel || entry.Data["entity"] != "application" {
		t.Fatalf("log = %+v", entry)
	}
}

func TestKnowledgeAssociationConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.application(t, ctx, "TEL")
	squad := &entity.Squad{Name: "Core"}
	member := &entity.Member{Name: "Ada", Email: "ada@example.com"}
	if res := f.services.Squads.CreateWithMembers(ctx, squad, []*entity.Member{member}); res.Status != types.StatusCreated {
		t.Fatalf("squad = %+v", res)
	}
	k := &entity.Knowledge{MemberID: member.ID, ApplicationID: app.ID, Level: 2}
	if res := f.services.Knowledge.Create(ctx, k); res.Status != types.StatusCreated {
		t.Fatalf("knowledge = %+v", res)
	}
	dup := &entity.Knowledge{MemberID: member.ID, ApplicationID: app.ID, Level: 4}
	if res := f.services.Knowledge.Create(ctx, dup); res.Status != types.StatusConflict {
		t.Fatalf("duplicate = %+v", res)
	}
	if res := f.services.Knowledge.Update(ctx, k.ID, &entity.Knowledge{MemberID: member.ID, ApplicationID: app.ID, Level: 5}); res.Status != types.StatusSuccess {
		t.Fatalf("own update = %+v", res)
	}
}

func TestStoreFailureIsError(t *testing.T) {
	f := newFixture(t)
	if err := f.stores.Session.DB().Close(); err != nil {
		t.Fatal(err)
	}
	res := f.services.Squads.Get(context.Background(), 1)
	if res.Status != types.StatusError || len(res.Errors) == 0 {
		t.Fatalf("closed db = %+v", res)
	}
}
