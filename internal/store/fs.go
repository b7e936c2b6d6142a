package store

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/loom/internal/fragment"
	"github.com/roach88/loom/internal/selector"
)

// fragmentExt is the file extension fragments are stored under.
const fragmentExt = ".md"

// FS serves fragments from a directory tree. The canonical path "a/b"
// maps to <root>/a/b.md, falling back to <root>/a/b for extensionless
// files. Enumeration order is the lexical walk order of the tree, which
// makes id resolution deterministic.
type FS struct {
	root string
}

// OpenDir opens a fragment root directory. Returns an error if the path
// does not exist or is not a directory; this is the construction-time
// fatal of the session contract.
func OpenDir(root string) (*FS, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("fragment root %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fragment root %q: not a directory", root)
	}
	return &FS{root: root}, nil
}

// Root returns the root directory the store serves from.
func (s *FS) Root() string {
	return s.root
}

// Get returns the content at a canonical path, absent when no file
// backs it or the key is not a canonical path.
func (s *FS) Get(canonicalPath string) Content {
	if !canonical(canonicalPath) {
		return Absent()
	}
	rel := filepath.FromSlash(canonicalPath)
	for _, name := range []string{rel + fragmentExt, rel} {
		raw, err := os.ReadFile(filepath.Join(s.root, name))
		if err == nil {
			return Found(string(raw))
		}
	}
	return Absent()
}

// FindByID scans the tree in lexical order for fragments whose metadata
// id equals the bare id. The first match wins; the rest are reported as
// duplicates.
func (s *FS) FindByID(id string) selector.IDMatch {
	var match selector.IDMatch
	for _, p := range s.Paths() {
		content := s.Get(p)
		if !content.Found {
			continue
		}
		meta, _ := fragment.Parse(content.Raw)
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

// Paths enumerates every fragment file as a canonical path, sorted
// lexically. Files whose derived path would not be a valid canonical
// path (dotfiles, odd characters) are skipped.
func (s *FS) Paths() []string {
	seen := make(map[string]bool)
	_ = filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return nil
		}
		name := filepath.ToSlash(rel)
		name = strings.TrimSuffix(name, fragmentExt)
		if canonical(name) {
			seen[name] = true
		}
		return nil
	})
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
