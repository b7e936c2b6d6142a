package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func packFixture(t *testing.T) string {
	t.Helper()
	src := NewMemory(map[string]string{
		"intro":         "---\nid: main\n---\nHi {{ $name }}\n",
		"shared/footer": "---\nid: footer\n---\nbye\n",
		"shared/extra":  "---\nid: footer\n---\nduplicate id\n",
	})
	dest := filepath.Join(t.TempDir(), "set.loom")
	n, err := Pack(src, dest)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	return dest
}

func TestPackAndOpenBundle(t *testing.T) {
	b, err := OpenBundle(packFixture(t))
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, Found("---\nid: footer\n---\nbye\n"), b.Get("shared/footer"))
	assert.Equal(t, Absent(), b.Get("missing"))
	assert.Equal(t, Absent(), b.Get("#footer"), "literal keys come back absent")
	assert.Equal(t, []string{"intro", "shared/extra", "shared/footer"}, b.Paths())
}

func TestBundle_FindByID(t *testing.T) {
	b, err := OpenBundle(packFixture(t))
	require.NoError(t, err)
	defer b.Close()

	m := b.FindByID("footer")
	require.True(t, m.Found)
	assert.Equal(t, "shared/extra", m.Path, "first in path order")
	assert.Equal(t, []string{"shared/footer"}, m.Duplicates)

	assert.False(t, b.FindByID("ghost").Found)
}

func TestPack_ReplacesExistingBundle(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "set.loom")

	_, err := Pack(NewMemory(map[string]string{"old": "old text", "kept": "v1"}), dest)
	require.NoError(t, err)

	n, err := Pack(NewMemory(map[string]string{"kept": "v2"}), dest)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	b, err := OpenBundle(dest)
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, Absent(), b.Get("old"), "stale fragments are dropped")
	assert.Equal(t, Found("v2"), b.Get("kept"))
	assert.Equal(t, []string{"kept"}, b.Paths())
}

func TestOpenBundle_NotABundle(t *testing.T) {
	p := filepath.Join(t.TempDir(), "junk.loom")
	require.NoError(t, os.WriteFile(p, []byte("not sqlite"), 0o644))
	_, err := OpenBundle(p)
	assert.Error(t, err)
}

func TestOpenBundle_Missing(t *testing.T) {
	_, err := OpenBundle(filepath.Join(t.TempDir(), "absent.loom"))
	assert.Error(t, err)
}
