package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListCommand_Text(t *testing.T) {
	root := writeFragments(t, map[string]string{
		"main.md":        "---\nid: main\n---\nHi {{ $name }}, see {{ parts/extra }}",
		"parts/extra.md": "extra",
	})

	stdout, _, err := runCommand(t, "list", "--root", root)
	require.NoError(t, err)

	assert.Contains(t, stdout, "main\n")
	assert.Contains(t, stdout, "id: main")
	assert.Contains(t, stdout, "vars: name")
	assert.Contains(t, stdout, "refs: parts/extra")
	assert.Contains(t, stdout, "parts/extra\n")
}

func TestListCommand_JSON(t *testing.T) {
	root := writeFragments(t, map[string]string{
		"a.md": "{{ $x }} {{ $y }} {{ b }}",
		"b.md": "B",
	})

	stdout, _, err := runCommand(t, "list", "--root", root, "--format", "json")
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Equal(t, "ok", resp.Status)

	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var infos []FragmentInfo
	require.NoError(t, json.Unmarshal(raw, &infos))

	require.Len(t, infos, 2)
	assert.Equal(t, "a", infos[0].Path)
	assert.Equal(t, []string{"x", "y"}, infos[0].Variables)
	assert.Equal(t, []string{"b"}, infos[0].References)
	assert.Equal(t, "b", infos[1].Path)
	assert.Empty(t, infos[1].Variables)
}

func TestListCommand_BadRootDir(t *testing.T) {
	_, _, err := runCommand(t, "list", "--root", "does/not/exist")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
