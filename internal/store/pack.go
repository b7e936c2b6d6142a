package store

import (
	"fmt"
)

// Pack writes every fragment of src into a new bundle file at dest. An
// existing bundle at dest is replaced fragment-by-fragment inside one
// transaction, so readers never observe a half-written set.
func Pack(src Store, dest string) (count int, err error) {
	db, err := openBundleDB("file:" + dest)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return 0, fmt.Errorf("pack bundle: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return 0, fmt.Errorf("pack bundle: apply schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("pack bundle: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`DELETE FROM fragments`); err != nil {
		return 0, fmt.Errorf("pack bundle: %w", err)
	}
	for _, p := range src.Paths() {
		content := src.Get(p)
		if !content.Found {
			continue
		}
		if _, err = tx.Exec(
			`INSERT INTO fragments (path, raw) VALUES (?, ?) ON CONFLICT(path) DO UPDATE SET raw = excluded.raw`,
			p, content.Raw,
		); err != nil {
			return 0, fmt.Errorf("pack bundle: fragment %q: %w", p, err)
		}
		count++
	}
	if _, err = tx.Exec(
		`INSERT INTO bundle_info (key, value) VALUES ('schema_version', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		bundleSchemaVersion,
	); err != nil {
		return 0, fmt.Errorf("pack bundle: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("pack bundle: %w", err)
	}
	return count, nil
}
