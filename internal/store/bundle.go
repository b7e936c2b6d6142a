package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/loom/internal/fragment"
	"github.com/roach88/loom/internal/selector"
)

//go:embed schema.sql
var schemaSQL string

// Bundle schema version, stored in bundle_info under "schema_version".
const bundleSchemaVersion = "1"

// Bundle serves fragments from a packed SQLite file produced by Pack.
// Bundles are a distribution format: one file carrying a whole fragment
// set, read through the same Store contract as a directory.
type Bundle struct {
	db *sql.DB
}

// OpenBundle opens an existing bundle file. Unlike OpenDir this also
// verifies the schema, since a bundle path that exists but is not a
// bundle is a caller error worth surfacing at construction.
func OpenBundle(path string) (*Bundle, error) {
	db, err := openBundleDB("file:" + path + "?mode=ro")
	if err != nil {
		return nil, err
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'fragments'`).Scan(&n); err != nil || n == 0 {
		db.Close()
		return nil, fmt.Errorf("open bundle %q: not a fragment bundle", path)
	}
	return &Bundle{db: db}, nil
}

// Close releases the underlying database handle.
func (b *Bundle) Close() error {
	return b.db.Close()
}

// Get returns the content at a canonical path.
func (b *Bundle) Get(canonicalPath string) Content {
	if !canonical(canonicalPath) {
		return Absent()
	}
	var raw string
	err := b.db.QueryRow(`SELECT raw FROM fragments WHERE path = ?`, canonicalPath).Scan(&raw)
	if err != nil {
		return Absent()
	}
	return Found(raw)
}

// FindByID scans fragments in path order for a matching metadata id.
func (b *Bundle) FindByID(id string) selector.IDMatch {
	var match selector.IDMatch
	rows, err := b.db.Query(`SELECT path, raw FROM fragments ORDER BY path COLLATE BINARY`)
	if err != nil {
		return match
	}
	defer rows.Close()

	for rows.Next() {
		var p, raw string
		if err := rows.Scan(&p, &raw); err != nil {
			continue
		}
		meta, _ := fragment.Parse(raw)
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

// Paths enumerates every fragment path in path order.
func (b *Bundle) Paths() []string {
	rows, err := b.db.Query(`SELECT path FROM fragments ORDER BY path COLLATE BINARY`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err == nil {
			paths = append(paths, p)
		}
	}
	return paths
}

// openBundleDB opens a SQLite handle with the pragmas bundles rely on.
// SQLite supports one writer at a time, so the pool is capped at a
// single connection.
func openBundleDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("bundle pragma %q: %w", pragma, err)
		}
	}
	return db, nil
}
