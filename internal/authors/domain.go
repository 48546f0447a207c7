// Package authors implements the author catalog: public reads ranked by
// popularity and the admin CRUD whose trash lifecycle cascades over the
// author's poems.
package authors

import (
	"errors"
	"time"

	"github.com/shoiron/shoiron/internal/poems"
	"github.com/shoiron/shoiron/internal/shared"
)

var ErrNotFound = errors.New("authors: not found")

// PublicAuthor is the public list payload. Popularity is the accumulated
// view count of the author's visible poems.
type PublicAuthor struct {
	ID         int64   `json:"id"`
	FullName   string  `json:"full_name"`
	BirthYear  *int    `json:"birth_year"`
	DeathYear  *int    `json:"death_year"`
	PhotoURL   *string `json:"photo_url"`
	PoemsCount int64   `json:"poems_count"`
	Popularity int64   `json:"popularity"`
	Slug       string  `json:"slug"`
	URLSlug    string  `json:"url_slug"`
}

// PublicDetail adds the biography to the public shape.
type PublicDetail struct {
	PublicAuthor
	BiographyMD *string `json:"biography_md"`
}

// AdminAuthor is the dashboard payload; PoemsCount here counts live poems in
// any published state.
type AdminAuthor struct {
	ID          int64             `json:"id"`
	FullName    string            `json:"full_name"`
	BirthYear   *int              `json:"birth_year"`
	DeathYear   *int              `json:"death_year"`
	BiographyMD *string           `json:"biography_md"`
	PhotoURL    *string           `json:"photo_url"`
	IsPublished bool              `json:"is_published"`
	PoemsCount  int64             `json:"poems_count"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	DeletedAt   *time.Time        `json:"deleted_at"`
	Poems       []poems.AdminPoem `json:"poems,omitempty"`
}

// CreateInput carries a validated create payload.
type CreateInput struct {
	FullName    string
	BirthYear   *int
	DeathYear   *int
	BiographyMD *string
	PhotoURL    *string
	IsPublished bool
}

// UpdateInput carries a partial update; nil fields are untouched.
type UpdateInput struct {
	FullName    *string
	BirthYear   *int
	DeathYear   *int
	BiographyMD *string
	PhotoURL    *string
	IsPublished *bool
}

// ListQuery carries normalized admin list filters.
type ListQuery struct {
	Trash     string
	Published string
	Q         string
	Sort      string
	Page      int
	PageSize  int
}

// PublicQuery carries the public list filters.
type PublicQuery struct {
	Q        string
	Ordering string
	Page     int
	PageSize int
}

func slugPair(id int64, fullName string) (slug, urlSlug string) {
	slug = shared.Slugify(fullName, "author")
	return slug, shared.URLSlug(id, slug)
}

// publicOrderings whitelists the public list ordering values, mirroring the
// payload field names with an optional leading minus.
var publicOrderings = map[string]string{
	"full_name":    "a.full_name ASC",
	"-full_name":   "a.full_name DESC",
	"popularity":   "popularity ASC",
	"-popularity":  "popularity DESC",
	"poems_count":  "poems_count ASC",
	"-poems_count": "poems_count DESC",
}

func publicOrderExpr(value string) string {
	if expr, ok := publicOrderings[value]; ok {
		return expr
	}
	return "a.full_name ASC"
}
