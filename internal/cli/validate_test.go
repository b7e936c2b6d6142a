package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommand_Clean(t *testing.T) {
	root := writeFragments(t, map[string]string{
		"main.md":  "---\nid: main\n---\nSee {{ extra }}.",
		"extra.md": "extra text",
	})

	stdout, _, err := runCommand(t, "validate", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, stdout, "2 fragment(s) checked")
	assert.Contains(t, stdout, "OK")
}

func TestValidateCommand_MissingTarget(t *testing.T) {
	root := writeFragments(t, map[string]string{
		"main.md": "See {{ gone }}.",
	})

	stdout, _, err := runCommand(t, "validate", "--root", root)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "missing-target")
	assert.Contains(t, stdout, `"gone"`)
}

func TestValidateCommand_InvalidSelector(t *testing.T) {
	root := writeFragments(t, map[string]string{
		"main.md": "Bad {{ ../escape }} token.",
	})

	stdout, _, err := runCommand(t, "validate", "--root", root)
	require.Error(t, err)
	assert.Contains(t, stdout, "selector")
	assert.Contains(t, stdout, "../escape")
}

func TestValidateCommand_DuplicateID(t *testing.T) {
	root := writeFragments(t, map[string]string{
		"a.md": "---\nid: shared\n---\nA",
		"b.md": "---\nid: shared\n---\nB",
	})

	stdout, _, err := runCommand(t, "validate", "--root", root)
	require.Error(t, err)
	assert.Contains(t, stdout, "duplicate-id")
	assert.Contains(t, stdout, `"shared"`)
}

func TestValidateCommand_BadMetadata(t *testing.T) {
	root := writeFragments(t, map[string]string{
		"a.md": "---\nid: \"has spaces\"\n---\nA",
	})

	stdout, _, err := runCommand(t, "validate", "--root", root)
	require.Error(t, err)
	assert.Contains(t, stdout, "metadata")
}

func TestValidateCommand_BrokenFrontmatterFence(t *testing.T) {
	root := writeFragments(t, map[string]string{
		"a.md": "---\nid: [unclosed\n---\nbody",
	})

	stdout, _, err := runCommand(t, "validate", "--root", root)
	require.Error(t, err)
	assert.Contains(t, stdout, "frontmatter")
}

func TestValidateCommand_CycleIsWarningOnly(t *testing.T) {
	root := writeFragments(t, map[string]string{
		"a.md": "A {{ b }}",
		"b.md": "B {{ a }}",
	})

	stdout, _, err := runCommand(t, "validate", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, stdout, "WARN cycle")
	assert.Contains(t, stdout, "OK")
}

func TestValidateCommand_JSON(t *testing.T) {
	root := writeFragments(t, map[string]string{
		"main.md": "See {{ gone }}.",
	})

	stdout, _, err := runCommand(t, "validate", "--root", root, "--format", "json")
	require.Error(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), data["fragments"])
	findings, ok := data["findings"].([]any)
	require.True(t, ok)
	require.Len(t, findings, 1)
}

func TestValidateCommand_BadRootDir(t *testing.T) {
	_, _, err := runCommand(t, "validate", "--root", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
