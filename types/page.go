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

// Paging defaults applied when a caller leaves the fields unset.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

// Filter carries the paging and ordering parameters shared by every list
// query. Entity filters embed it and add their own predicate fields.
//
// Page and PageSize are taken as given: zero or negative values are rejected
// by the repository rather than silently corrected. Use NewFilter or the
// binding defaults to get 1/10.
type Filter struct {
	Page          int    `form:"page,default=1" json:"page"`
	PageSize      int    `form:"page_size,default=10" json:"page_size"`
	Sort          string `form:"sort" json:"sort,omitempty"`
	SortDirection string `form:"direction" json:"direction,omitempty"`
}

// NewFilter returns a Filter on the first page with the default page size.
func NewFilter() Filter {
	return Filter{Page: DefaultPage, PageSize: DefaultPageSize}
}

// Direction parses SortDirection, defaulting to Ascending.
func (f Filter) Direction() SortDirection {
	return ParseSortDirection(f.SortDirection)
}

// Paging returns the paging part of a filter that embeds Filter.
func (f Filter) Paging() Filter { return f }

// GetOffset returns the number of rows skipped for the requested page.
func (f Filter) GetOffset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// PagedResult holds one page of entities along with paging metadata. Page is
// the page actually served, which may be lower than the one requested.
type PagedResult[T any] struct {
	Items    []*T `json:"items"`
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	Total    int  `json:"total"`
}

// NewPagedResult constructs an empty page.
func NewPagedResult[T any](page int, pageSize int) *PagedResult[T] {
	return &PagedResult[T]{Items: make([]*T, 0), Page: page, PageSize: pageSize}
}

// TotalPages reports ceil(Total/PageSize), never less than 1.
func (p *PagedResult[T]) TotalPages() int {
	return TotalPages(p.Total, p.PageSize)
}

// TotalPages reports how many pages of pageSize are needed to hold total
// rows. An empty set still has one (empty) page.
func TotalPages(total int, pageSize int) int {
	if pageSize < 1 || total <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

// ClampPage lowers page to the last valid page for total rows.
func ClampPage(page int, pageSize int, total int) int {
	if last := TotalPages(total, pageSize); page > last {
		return last
	}
	return page
}
