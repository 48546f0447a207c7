// Package poems implements the poem catalog: public reads with the
// visibility filter, the idempotent per-visitor view counter with monthly
// aggregates, and the admin CRUD with the trash lifecycle.
package poems

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shoiron/shoiron/internal/reactions"
	"github.com/shoiron/shoiron/internal/shared"
)

var (
	ErrNotFound          = errors.New("poems: not found")
	ErrAuthorUnavailable = errors.New("poems: author missing or trashed")
)

const previewLines = 3

// AuthorRef is the author fragment of public poem payloads.
type AuthorRef struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	Slug     string `json:"slug"`
}

// ListItem is the public list payload: a preview instead of the full text.
type ListItem struct {
	ID      int64     `json:"id"`
	Title   string    `json:"title"`
	Preview string    `json:"preview"`
	Author  AuthorRef `json:"author"`
	Views   int64     `json:"views"`
	Slug    string    `json:"slug"`
	URLSlug string    `json:"url_slug"`
}

// Detail is the public detail payload.
type Detail struct {
	ID        int64              `json:"id"`
	Title     string             `json:"title"`
	Text      string             `json:"text"`
	Author    AuthorRef          `json:"author"`
	Views     int64              `json:"views"`
	Slug      string             `json:"slug"`
	URLSlug   string             `json:"url_slug"`
	Reactions *reactions.Summary `json:"reactions,omitempty"`
}

// Neighbor is the minimal payload for prev/next navigation.
type Neighbor struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	URLSlug string `json:"url_slug"`
}

// Neighbors carries the adjacent visible poems within one author, by id.
type Neighbors struct {
	Prev *Neighbor `json:"prev"`
	Next *Neighbor `json:"next"`
}

// TopAuthor is the home-page ranking payload: the public author shape with
// popularity accumulated over the author's visible poems.
type TopAuthor struct {
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

// AdminAuthorRef is the author fragment of admin poem payloads.
type AdminAuthorRef struct {
	ID          int64      `json:"id"`
	FullName    string     `json:"full_name"`
	IsPublished bool       `json:"is_published"`
	DeletedAt   *time.Time `json:"deleted_at"`
}

// AdminPoem is the admin API payload.
type AdminPoem struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Text        string         `json:"text"`
	Author      AdminAuthorRef `json:"author"`
	IsPublished bool           `json:"is_published"`
	Views       int64          `json:"views"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   *time.Time     `json:"deleted_at"`
}

// ViewResult reports a view registration: the fresh total and whether this
// request was the one that counted.
type ViewResult struct {
	Views   int64 `json:"views"`
	Counted bool  `json:"counted"`
}

// CreateInput carries a validated create payload.
type CreateInput struct {
	AuthorID    int64
	Title       string
	Text        string
	IsPublished bool
}

// UpdateInput carries a partial update; nil fields are untouched.
type UpdateInput struct {
	AuthorID    *int64
	Title       *string
	Text        *string
	IsPublished *bool
}

// ListQuery carries normalized admin list filters.
type ListQuery struct {
	Trash     string
	Published string
	Q         string
	Sort      string
	AuthorID  int64
	Page      int
	PageSize  int
}

// preview keeps the first three non-empty lines of the text.
func preview(text string) string {
	kept := make([]string, 0, previewLines)
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		kept = append(kept, line)
		if len(kept) == previewLines {
			break
		}
	}
	return strings.Join(kept, "\n")
}

func poemSlug(id int64, title string) (slug, urlSlug string) {
	slug = shared.Slugify(title, "poem")
	return slug, shared.URLSlug(id, slug)
}

func authorSlug(fullName string) string {
	return shared.Slugify(fullName, "author")
}

// dayStart truncates a time to midnight of its calendar day, in the time's
// own zone. The dedupe window follows the calendar date, not UTC epoch days.
func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// monthStart truncates a time to the first day of its month.
func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// monthLabel renders a time as "MM.YYYY" for the dashboard.
func monthLabel(t time.Time) string {
	return fmt.Sprintf("%02d.%d", int(t.Month()), t.Year())
}

// viewLedger is the storage surface of one view registration. Insert must
// report false, without failing, when the (poem, visitor, day) row already
// exists.
type viewLedger interface {
	Insert(poemID int64, hash string, day time.Time) (bool, error)
	Increment(poemID int64, monthStart time.Time) error
	Total(poemID int64) (int64, error)
}

// registerView runs the count-once protocol: the row insert is the only
// arbiter, and the counters move only for the request that won it.
func registerView(l viewLedger, poemID int64, hash string, now time.Time) (ViewResult, error) {
	day := dayStart(now)
	counted, err := l.Insert(poemID, hash, day)
	if err != nil {
		return ViewResult{}, err
	}
	if counted {
		if err := l.Increment(poemID, monthStart(now)); err != nil {
			return ViewResult{}, err
		}
	}
	total, err := l.Total(poemID)
	if err != nil {
		return ViewResult{}, err
	}
	return ViewResult{Views: total, Counted: counted}, nil
}
