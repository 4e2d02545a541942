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

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/tomoncle/fleetdesk/types"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type widget struct {
	bun.BaseModel `bun:"table:widgets,alias:w"`

	ID    int64         `bun:"id,pk,autoincrement"`
	Name  string        `bun:"name,notnull"`
	Rank  int           `bun:"rank"`
	Attrs types.JSONMap `bun:"attrs,type:json"`
	Parts []*part       `bun:"rel:has-many,join:id=widget_id"`
}

type part struct {
	bun.BaseModel `bun:"table:parts,alias:p"`

	ID       int64   `bun:"id,pk,autoincrement"`
	WidgetID int64   `bun:"widget_id,notnull"`
	Label    string  `bun:"label"`
	Widget   *widget `bun:"rel:belongs-to,join:widget_id=id"`
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	for _, model := range []interface{}{(*widget)(nil), (*part)(nil)} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			t.Fatalf("create table %T: %v", model, err)
		}
	}
	return db
}

func seedWidgets(t *testing.T, repo Repository[widget], n int) []*widget {
	t.Helper()
	widgets := make([]*widget, n)
	for i := range widgets {
		widgets[i] = &widget{Name: fmt.Sprintf("widget-%02d", i+1), Rank: n - i}
	}
	if err := repo.Create(context.Background(), Immediate, widgets...); err != nil {
		t.Fatalf("seed widgets: %v", err)
	}
	return widgets
}

func TestGetListClampsToLastPage(t *testing.T) {
	repo := NewRepository[widget](NewSession(newTestDB(t)))
	seedWidgets(t, repo, 25)

	page, err := repo.GetList(context.Background(), All, "", types.Ascending, 5, 10)
	if err != nil {
		t.Fatalf("get list: %v", err)
	}
	if page.Page != 3 {
		t.Fatalf("served page = %d, want 3", page.Page)
	}
	if page.Total != 25 {
		t.Fatalf("total = %d, want 25", page.Total)
	}
	if len(page.Items) != 5 {
		t.Fatalf("items = %d, want 5", len(page.Items))
	}
	for i, item := range page.Items {
		if want := fmt.Sprintf("widget-%02d", 21+i); item.Name != want {
			t.Fatalf("items[%d] = %s, want %s", i, item.Name, want)
		}
	}
}

func TestGetListClampingAcrossShapes(t *testing.T) {
	repo := NewRepository[widget](NewSession(newTestDB(t)))
	seedWidgets(t, repo, 7)

	cases := []struct {
		pageSize, requested, served, items int
	}{
		{pageSize: 3, requested: 3, served: 3, items: 1},
		{pageSize: 3, requested: 9, served: 3, items: 1},
		{pageSize: 7, requested: 2, served: 1, items: 7},
		{pageSize: 10, requested: 100, served: 1, items: 7},
		{pageSize: 2, requested: 2, served: 2, items: 2},
	}
	for _, tc := range cases {
		page, err := repo.GetList(context.Background(), All, "", types.Ascending, tc.requested, tc.pageSize)
		if err != nil {
			t.Fatalf("size=%d page=%d: %v", tc.pageSize, tc.requested, err)
		}
		if page.Page != tc.served || len(page.Items) != tc.items || page.Total != 7 {
			t.Fatalf("size=%d page=%d: got page=%d items=%d total=%d", tc.pageSize, tc.requested, page.Page, len(page.Items), page.Total)
		}
	}
}

func TestGetListEmptyStore(t *testing.T) {
	repo := NewRepository[widget](NewSession(newTestDB(t)))

	page, err := repo.GetList(context.Background(), All, "Name", types.Descending, 4, 10)
	if err != nil {
		t.Fatalf("get list: %v", err)
	}
	if page.Page != 1 || page.Total != 0 || len(page.Items) != 0 || page.Items == nil {
		t.Fatalf("unexpected empty page: %+v", page)
	}
}

func TestGetListSortsByName(t *testing.T) {
	repo := NewRepository[widget](NewSession(newTestDB(t)))
	ctx := context.Background()
	for _, name := range []string{"Charlie", "Alice", "Bob"} {
		if err := repo.Create(ctx, Immediate, &widget{Name: name}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	asc, err := repo.GetList(ctx, All, "Name", types.Ascending, 1, 10)
	if err != nil {
		t.Fatalf("ascending: %v", err)
	}
	if got := names(asc.Items); got != "Alice,Bob,Charlie" {
		t.Fatalf("ascending order = %s", got)
	}

	desc, err := repo.GetList(ctx, All, "name", types.ParseSortDirection("DESC"), 1, 10)
	if err != nil {
		t.Fatalf("descending: %v", err)
	}
	if got := names(desc.Items); got != "Charlie,Bob,Alice" {
		t.Fatalf("descending order = %s", got)
	}
}

func TestGetListSortsNumbers(t *testing.T) {
	repo := NewRepository[widget](NewSession(newTestDB(t)))
	seedWidgets(t, repo, 12)

	page, err := repo.GetList(context.Background(), All, "Rank", types.Ascending, 1, 12)
	if err != nil {
		t.Fatalf("get list: %v", err)
	}
	for i := 1; i < len(page.Items); i++ {
		if page.Items[i-1].Rank > page.Items[i].Rank {
			t.Fatalf("ranks out of order at %d: %d > %d", i, page.Items[i-1].Rank, page.Items[i].Rank)
		}
	}
}

func TestGetListAppliesPredicate(t *testing.T) {
	repo := NewRepository[widget](NewSession(newTestDB(t)))
	seedWidgets(t, repo, 25)

	query := Where("?TableAlias.rank <= ?", 4)
	page, err := repo.GetList(context.Background(), query, "", types.Ascending, 9, 3)
	if err != nil {
		t.Fatalf("get list: %v", err)
	}
	if page.Total != 4 || page.Page != 2 || len(page.Items) != 1 {
		t.Fatalf("got total=%d page=%d items=%d", page.Total, page.Page, len(page.Items))
	}
}

func TestGetListArgumentErrors(t *testing.T) {
	repo := NewRepository[widget](NewSession(newTestDB(t)))
	ctx := context.Background()

	cases := []struct {
		name     string
		query    QueryFunc
		sort     string
		page     int
		pageSize int
		includes []string
		want     error
	}{
		{name: "nil query", query: nil, page: 1, pageSize: 10, want: ErrInvalidArgument},
		{name: "nil query with bad paging", query: nil, page: -1, pageSize: 0, want: ErrInvalidArgument},
		{name: "zero page", query: All, page: 0, pageSize: 10, want: ErrOutOfRange},
		{name: "negative page", query: All, page: -3, pageSize: 10, want: ErrOutOfRange},
		{name: "zero page size", query: All, page: 1, pageSize: 0, want: ErrOutOfRange},
		{name: "negative page size", query: All, page: 2, pageSize: -5, want: ErrOutOfRange},
		{name: "unknown sort field", query: All, sort: "NoSuchField", page: 1, pageSize: 10, want: ErrInvalidArgument},
		{name: "json column", query: All, sort: "Attrs", page: 1, pageSize: 10, want: ErrInvalidArgument},
		{name: "relation as sort field", query: All, sort: "Parts", page: 1, pageSize: 10, want: ErrInvalidArgument},
		{name: "unknown include", query: All, page: 1, pageSize: 10, includes: []string{"Gears"}, want: ErrInvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := repo.GetList(ctx, tc.query, tc.sort, types.Ascending, tc.page, tc.pageSize, tc.includes...)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestGetListErrorNamesField(t *testing.T) {
	repo := NewRepository[widget](NewSession(newTestDB(t)))

	_, err := repo.GetList(context.Background(), All, "NoSuchField", types.Ascending, 1, 10)
	if err == nil || !strings.Contains(err.Error(), "NoSuchField") {
		t.Fatalf("error should name the field, got %v", err)
	}
}

func TestGetListIncludes(t *testing.T) {
	repo := NewRepository[widget](NewSession(newTestDB(t)))
	parts := NewRepository[part](repo.Session())
	ctx := context.Background()
	widgets := seedWidgets(t, repo, 3)
	if err := parts.Create(ctx, Immediate,
		&part{WidgetID: widgets[0].ID, Label: "a"},
		&part{WidgetID: widgets[0].ID, Label: "b"},
		&part{WidgetID: widgets[2].ID, Label: "c"},
	); err != nil {
		t.Fatalf("create parts: %v", err)
	}

	with, err := repo.GetList(ctx, All, "", types.Ascending, 1, 10, "parts")
	if err != nil {
		t.Fatalf("with include: %v", err)
	}
	if len(with.Items[0].Parts) != 2 || len(with.Items[1].Parts) != 0 || len(with.Items[2].Parts) != 1 {
		t.Fatalf("unexpected parts: %d %d %d", len(with.Items[0].Parts), len(with.Items[1].Parts), len(with.Items[2].Parts))
	}

	without, err := repo.GetList(ctx, All, "", types.Ascending, 1, 10)
	if err != nil {
		t.Fatalf("without include: %v", err)
	}
	for _, w := range without.Items {
		if len(w.Parts) != 0 {
			t.Fatalf("widget %d loaded parts without include", w.ID)
		}
	}

	owners, err := parts.GetList(ctx, All, "Label", types.Ascending, 1, 10, "Widget")
	if err != nil {
		t.Fatalf("belongs-to include: %v", err)
	}
	if owners.Items[0].Widget == nil || owners.Items[0].Widget.ID != widgets[0].ID {
		t.Fatalf("belongs-to include not loaded: %+v", owners.Items[0].Widget)
	}
}

func TestResolveIncludeDottedPath(t *testing.T) {
	repo := NewRepository[part](NewSession(newTestDB(t)))

	got, err := repo.Fields().ResolveInclude("widget.parts")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "Widget.Parts" {
		t.Fatalf("resolved = %q, want Widget.Parts", got)
	}
	if _, err := repo.Fields().ResolveInclude("Widget.Gears"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("bad segment: %v", err)
	}
	if _, err := repo.Fields().ResolveInclude("Label"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("scalar field as include: %v", err)
	}
}

func TestFind(t *testing.T) {
	repo := NewRepository[widget](NewSession(newTestDB(t)))
	widgets := seedWidgets(t, repo, 2)
	ctx := context.Background()

	got, err := repo.Find(ctx, widgets[1].ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil || got.Name != widgets[1].Name {
		t.Fatalf("find returned %+v", got)
	}

	missing, err := repo.Find(ctx, int64(9999))
	if err != nil || missing != nil {
		t.Fatalf("missing id: got %+v, %v", missing, err)
	}
}

func TestCountAndExists(t *testing.T) {
	repo := NewRepository[widget](NewSession(newTestDB(t)))
	seedWidgets(t, repo, 6)
	ctx := context.Background()

	n, err := repo.Count(ctx, Where("?TableAlias.rank > ?", 3))
	if err != nil || n != 3 {
		t.Fatalf("count = %d, %v", n, err)
	}
	ok, err := repo.Exists(ctx, Where("?TableAlias.name = ?", "widget-01"))
	if err != nil || !ok {
		t.Fatalf("exists = %v, %v", ok, err)
	}
	if _, err := repo.Exists(ctx, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("nil query: %v", err)
	}
}

func names(items []*widget) string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Name
	}
	return strings.Join(out, ",")
}
