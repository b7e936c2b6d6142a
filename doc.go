// Package loom assembles a single text artifact from a tree of modular
// text fragments connected by inline references.
//
// Fragments are small files with optional YAML frontmatter and a body
// containing {{ ... }} tokens. A token carrying $name substitutes a
// variable; any other token is a selector referencing another fragment
// (relative path, @root path, or #id). Composing a selector expands the
// reference graph to a fixed point, removing cycles along the way, and
// substitutes variables with path-scoped override precedence.
//
// Typical use:
//
//	sess, err := loom.New("./fragments")
//	if err != nil { ... }
//	if err := sess.SetVariables(map[string]any{"audience": "reviewers"}); err != nil { ... }
//	if err := sess.SetOverrides(map[string]map[string]any{"#main": {"tone": "formal"}}); err != nil { ... }
//	out, err := sess.Compose("#main")
//
// Compose fails only on a syntactically invalid root selector. Every
// other anomaly (missing target, duplicate id, self-reference, ancestor
// cycle, invalid selector inside content) degrades gracefully and is
// reported on the session's diagnostics sink.
package loom
