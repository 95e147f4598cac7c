// Package listing implements the search, filter and pagination applied to
// the portal's tables.
package listing

import (
	"strings"
)

// DefaultPageSize matches the ten rows per page the tables show.
const DefaultPageSize = 10

// MaxPageSize caps client supplied page sizes.
const MaxPageSize = 100

// Params are the table controls sent by the UI.
type Params struct {
	Query    string `form:"q"`
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// Page is one page of results. From and To are 1-based row numbers for the
// "Showing x to y of z" footer; both are 0 when there are no rows.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
	From       int `json:"from"`
	To         int `json:"to"`
}

// Filter keeps the items for which keep returns true.
func Filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// Search keeps items where any of fields contains query, ignoring case and
// surrounding space. An empty query keeps everything.
func Search[T any](items []T, query string, fields func(T) []string) []T {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return append(make([]T, 0, len(items)), items...)
	}
	return Filter(items, func(it T) bool {
		for _, f := range fields(it) {
			if strings.Contains(strings.ToLower(f), q) {
				return true
			}
		}
		return false
	})
}

// Paginate slices items. Out of range pages are clamped to the nearest valid one.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	total := len(items)
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	out := Page[T]{
		Items:      append(make([]T, 0, end-start), items[start:end]...),
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: pages,
	}
	if total > 0 {
		out.From = start + 1
		out.To = end
	}
	return out
}

// CountBy tallies items by the label key returns.
func CountBy[T any](items []T, key func(T) string) map[string]int {
	out := map[string]int{}
	for _, it := range items {
		out[key(it)]++
	}
	return out
}
