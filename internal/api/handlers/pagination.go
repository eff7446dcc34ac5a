package handlers

import (
	"net/http"
	"strconv"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 100
)

// parsePagination reads page/pageSize query params for §4.7's paginated
// list endpoints. Missing or invalid values, and a pageSize above
// maxPageSize, fall back to the defaults.
func parsePagination(r *http.Request) (page, pageSize int) {
	page = defaultPage
	pageSize = defaultPageSize

	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page = p
		}
	}
	if v := q.Get("pageSize"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 && p <= maxPageSize {
			pageSize = p
		}
	}
	return page, pageSize
}
