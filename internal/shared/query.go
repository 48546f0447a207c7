package shared

import "strings"

// List filter values shared by the dashboard list endpoints. Unknown values
// fall back to each filter's default rather than erroring.

// Trash filter modes.
const (
	TrashActive = "active"
	TrashOnly   = "trash"
	TrashAll    = "all"
)

// ParseTrash normalizes the trash query parameter; default is active rows.
func ParseTrash(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case TrashOnly:
		return TrashOnly
	case TrashAll:
		return TrashAll
	default:
		return TrashActive
	}
}

// Status filter modes.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusAll      = "all"
)

// ParseStatus normalizes the status query parameter; default is all rows.
func ParseStatus(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case StatusActive:
		return StatusActive
	case StatusInactive:
		return StatusInactive
	default:
		return StatusAll
	}
}

// Published filter modes.
const (
	PublishedOnly   = "published"
	UnpublishedOnly = "unpublished"
	PublishedAll    = "all"
)

// ParsePublished normalizes the published query parameter; default is all.
func ParsePublished(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case PublishedOnly:
		return PublishedOnly
	case UnpublishedOnly:
		return UnpublishedOnly
	default:
		return PublishedAll
	}
}

// SortExpr maps a sort query value to an ORDER BY expression, falling back
// to def for unknown values. Mapping values are trusted SQL fragments owned
// by the caller, never user input.
func SortExpr(value string, mapping map[string]string, def string) string {
	if expr, ok := mapping[strings.ToLower(strings.TrimSpace(value))]; ok {
		return expr
	}
	return def
}
