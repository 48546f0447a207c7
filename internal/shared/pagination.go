package shared

import (
	"net/http"
	"strconv"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

// ParsePage reads page/page_size query parameters, clamping page_size to
// 1..100 with a default of 25. Invalid values fall back to defaults.
func ParsePage(r *http.Request) (page, pageSize int) {
	page = parseInt(r.URL.Query().Get("page"), 1)
	if page < 1 {
		page = 1
	}
	pageSize = parseInt(r.URL.Query().Get("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// Offset converts a page number into a row offset.
func Offset(page, pageSize int) int {
	return (page - 1) * pageSize
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
