// Package selector implements the reference selector grammar.
//
// A selector is the user-facing form of a fragment reference. Three forms
// exist:
//
//	relative   path/to/fragment     resolved against the referencing
//	                                fragment's own directory
//	root       @path/to/fragment    resolved against the fragment root
//	id         #fragment-id         resolved by metadata id lookup
//
// Every form normalizes to a canonical path: slash-separated
// [A-Za-z0-9_-]+ segments with no prefix. Canonical paths are the keys
// for overrides, ancestor chains, and substitution contexts.
package selector

import (
	"path"
	"regexp"

	"golang.org/x/text/unicode/norm"
)

// Kind classifies a selector string.
type Kind int

const (
	// Invalid means the selector matches none of the three forms.
	Invalid Kind = iota

	// Relative is one or more segments joined by "/", no prefix.
	Relative

	// Root is a relative path prefixed with "@".
	Root

	// ID is exactly one segment prefixed with "#".
	ID
)

// String returns the selector kind name for diagnostics.
func (k Kind) String() string {
	switch k {
	case Relative:
		return "relative"
	case Root:
		return "root"
	case ID:
		return "id"
	default:
		return "invalid"
	}
}

var (
	segmentRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	pathRe    = regexp.MustCompile(`^[A-Za-z0-9_-]+(/[A-Za-z0-9_-]+)*$`)
)

// Classify determines the form of a raw selector string.
//
// The input is NFC-normalized first so that visually identical selectors
// written with different Unicode compositions compare equal. Since the
// grammar only admits ASCII, normalization only affects whether a
// non-ASCII selector is rejected consistently.
func Classify(raw string) Kind {
	s := norm.NFC.String(raw)
	switch {
	case len(s) > 1 && s[0] == '@':
		if pathRe.MatchString(s[1:]) {
			return Root
		}
		return Invalid
	case len(s) > 1 && s[0] == '#':
		if segmentRe.MatchString(s[1:]) {
			return ID
		}
		return Invalid
	case pathRe.MatchString(s):
		return Relative
	default:
		return Invalid
	}
}

// IDMatch is the result of a metadata id lookup.
//
// Found reports whether any fragment declares the id. Path is the first
// match in the store's stable enumeration order. Duplicates lists every
// further matching path, surfaced as a duplicate-id diagnostic by the
// caller.
type IDMatch struct {
	Found      bool
	Path       string
	Duplicates []string
}

// IDIndex resolves a bare id to a canonical path. Implemented by the
// content stores; lookups never fail, absence is reported in the match.
type IDIndex interface {
	FindByID(id string) IDMatch
}

// Resolution is the outcome of normalizing a selector.
type Resolution struct {
	// Kind is the classified form of the raw selector.
	Kind Kind

	// Canonical is the normalized path, empty when the selector could
	// not be resolved (invalid syntax, or an id with no match).
	Canonical string

	// Literal is the NFC-normalized raw selector text. Callers use it
	// as the reference key when Canonical is empty so the failure
	// surfaces later as an ordinary not-found lookup.
	Literal string

	// Duplicates lists extra id matches beyond the first (id form only).
	Duplicates []string
}

// Resolved reports whether normalization produced a canonical path.
func (r Resolution) Resolved() bool {
	return r.Canonical != ""
}

// Normalize resolves a raw selector to its canonical path.
//
// baseDir is the directory of the referencing fragment (canonical,
// slash-separated, "" at the root); relative selectors resolve against
// it. ids may be nil, in which case id selectors resolve as absent.
func Normalize(raw, baseDir string, ids IDIndex) Resolution {
	s := norm.NFC.String(raw)
	res := Resolution{Kind: Classify(s), Literal: s}

	switch res.Kind {
	case Root:
		res.Canonical = s[1:]
	case Relative:
		res.Canonical = path.Join(baseDir, s)
	case ID:
		if ids == nil {
			break
		}
		m := ids.FindByID(s[1:])
		if m.Found {
			res.Canonical = m.Path
			res.Duplicates = m.Duplicates
		}
	}
	return res
}
