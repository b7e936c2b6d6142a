// Package fragment implements the fragment model: frontmatter parsing,
// token scanning, and the variable/reference extraction that feeds the
// composer.
//
// A fragment is one unit of content at a canonical path. Its raw text is
// an optional YAML frontmatter block followed by a free-text body
// containing zero or more {{ ... }} tokens. Tokens carrying a $name are
// variable declarations; every other token is a selector reference.
//
// Fragments are immutable once parsed. Every transformation in the
// composer produces a new value.
package fragment

import (
	"strings"

	"github.com/roach88/loom/internal/selector"
)

// Fragment is a parsed unit of content.
type Fragment struct {
	// Path is the canonical path of the fragment.
	Path string

	// Meta holds the frontmatter key/value pairs, nil when the raw text
	// carried no frontmatter block.
	Meta map[string]any

	// Body is the fragment text with reference tokens rewritten to
	// their canonical keys.
	Body string

	// Variables lists declared variable names in first-appearance
	// order, deduplicated.
	Variables []string

	// References lists declared reference keys (canonical paths, or
	// literal selector text for unresolvable selectors) in
	// first-appearance order, deduplicated.
	References []string
}

// ID returns the frontmatter id field, or "" when absent or not a string.
func (f Fragment) ID() string {
	id, _ := f.Meta["id"].(string)
	return id
}

// Empty is the degraded fragment used when content is absent: no
// metadata, empty body, no variables, no references.
func Empty(path string) Fragment {
	return Fragment{Path: path}
}

// New parses raw content at the given canonical path and extracts its
// declared variables and references. Relative selectors inside the body
// resolve against the fragment's own directory. The returned Extraction
// carries the anomalies found while resolving selectors (invalid syntax,
// duplicate id matches) for the caller's diagnostics channel.
func New(path, raw string, ids selector.IDIndex) (Fragment, Extraction) {
	meta, body := Parse(raw)
	ext := Extract(body, path, ids)
	return Fragment{
		Path:       path,
		Meta:       meta,
		Body:       ext.Body,
		Variables:  ext.Variables,
		References: ext.References,
	}, ext
}

// Dir returns the canonical directory of a canonical path: "" for a
// root-level path, the slash-joined prefix otherwise.
func Dir(canonicalPath string) string {
	i := strings.LastIndexByte(canonicalPath, '/')
	if i < 0 {
		return ""
	}
	return canonicalPath[:i]
}
