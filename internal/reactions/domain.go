// Package reactions implements visitor reactions on poems: a toggle keyed by
// the pseudonymous visitor hash, with at most one active reaction type per
// visitor per poem.
package reactions

import "errors"

var (
	ErrInvalidType  = errors.New("reactions: unknown reaction type")
	ErrPoemNotFound = errors.New("reactions: poem not found")
)

// Type is one of the fixed reaction kinds.
type Type string

const (
	TypeHeart Type = "heart"
	TypeFire  Type = "fire"
	TypeLike  Type = "like"
	TypeSad   Type = "sad"
	TypeStar  Type = "star"
)

// Types returns the fixed reaction type set.
func Types() []Type {
	return []Type{TypeHeart, TypeFire, TypeLike, TypeSad, TypeStar}
}

// ValidType reports whether t names a known reaction type.
func ValidType(t Type) bool {
	switch t {
	case TypeHeart, TypeFire, TypeLike, TypeSad, TypeStar:
		return true
	}
	return false
}

// Summary is the response shape for toggles and poem detail payloads. Both
// maps always carry every type.
type Summary struct {
	CountsByType    map[Type]int  `json:"counts_by_type"`
	UserFlagsByType map[Type]bool `json:"user_flags_by_type"`
}

// store is the mutation surface the toggle runs against. Implementations
// must treat a duplicate insert as "already present", not as a failure.
type store interface {
	Has(poemID int64, hash string, t Type) (bool, error)
	Delete(poemID int64, hash string, t Type) error
	DeleteOthers(poemID int64, hash string, keep Type) error
	Insert(poemID int64, hash string, t Type) error
}

// toggle applies the exclusive-toggle rule: same type present means toggle
// off; otherwise any other-typed reaction goes away before the insert.
func toggle(s store, poemID int64, hash string, t Type) error {
	present, err := s.Has(poemID, hash, t)
	if err != nil {
		return err
	}
	if present {
		return s.Delete(poemID, hash, t)
	}
	if err := s.DeleteOthers(poemID, hash, t); err != nil {
		return err
	}
	return s.Insert(poemID, hash, t)
}
