package store

import (
	"sort"

	"github.com/roach88/loom/internal/fragment"
	"github.com/roach88/loom/internal/selector"
)

// Memory serves fragments from an in-memory map. Used by tests and by
// callers composing programmatic fragment sets. Enumeration order is
// sorted path order.
type Memory struct {
	fragments map[string]string
}

// NewMemory builds a memory store from canonical path to raw content.
// Keys that are not canonical paths are dropped.
func NewMemory(fragments map[string]string) *Memory {
	m := &Memory{fragments: make(map[string]string, len(fragments))}
	for p, raw := range fragments {
		if canonical(p) {
			m.fragments[p] = raw
		}
	}
	return m
}

// Put adds or replaces one fragment. Returns false for a non-canonical
// path.
func (m *Memory) Put(canonicalPath, raw string) bool {
	if !canonical(canonicalPath) {
		return false
	}
	m.fragments[canonicalPath] = raw
	return true
}

// Get returns the content at a canonical path.
func (m *Memory) Get(canonicalPath string) Content {
	raw, ok := m.fragments[canonicalPath]
	if !ok {
		return Absent()
	}
	return Found(raw)
}

// FindByID scans paths in sorted order for a matching metadata id.
func (m *Memory) FindByID(id string) selector.IDMatch {
	var match selector.IDMatch
	for _, p := range m.Paths() {
		meta, _ := fragment.Parse(m.fragments[p])
		fragID, _ := meta["id"].(string)
		if fragID != id {
			continue
		}
		if !match.Found {
			match = selector.IDMatch{Found: true, Path: p}
		} else {
			match.Duplicates = append(match.Duplicates, p)
		}
	}
	return match
}

// Paths returns every fragment path, sorted.
func (m *Memory) Paths() []string {
	paths := make([]string, 0, len(m.fragments))
	for p := range m.fragments {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
