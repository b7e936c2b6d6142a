package store

import (
	"github.com/roach88/loom/internal/selector"
)

// Content is the result of a store lookup. Absence is a first-class
// value, not an error: the composer degrades an absent target to the
// empty fragment plus a missing-target diagnostic.
type Content struct {
	Found bool
	Raw   string
}

// Found wraps raw text in a present Content value.
func Found(raw string) Content {
	return Content{Found: true, Raw: raw}
}

// Absent is the not-found Content value.
func Absent() Content {
	return Content{}
}

// Store supplies fragment content by canonical path and resolves ids to
// paths. Implementations never fail a lookup: missing content is
// Content{Found: false}, a missing id is IDMatch{Found: false}.
//
// Lookups may receive literal reference keys that are not canonical
// paths (unresolved ids like "#missing", invalid selector text). Those
// must come back absent without touching the backing medium.
type Store interface {
	// Get returns the raw content at a canonical path.
	Get(canonicalPath string) Content

	// FindByID returns the first fragment whose metadata id matches,
	// in the store's stable enumeration order, plus every duplicate.
	FindByID(id string) selector.IDMatch

	// Paths enumerates every fragment path in stable order.
	Paths() []string
}

// canonical reports whether a lookup key is a well-formed canonical
// path. Keys that retain a selector sigil or invalid characters are
// rejected before any backend access.
func canonical(key string) bool {
	return selector.Classify(key) == selector.Relative
}
