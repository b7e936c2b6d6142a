package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCommand executes the root command with args and captures stdout.
// Stderr goes to a separate buffer so assertions on the document are
// not polluted by warnings.
func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeFragments materializes a path->content map under a temp dir.
func writeFragments(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func TestComposeCommand_Basic(t *testing.T) {
	root := writeFragments(t, map[string]string{
		"main.md":       "Hello {{ parts/name }}!",
		"parts/name.md": "World",
	})

	stdout, _, err := runCommand(t, "compose", "main", "--root", root)
	require.NoError(t, err)
	assert.Equal(t, "Hello World!", stdout)
}

func TestComposeCommand_IDSelector(t *testing.T) {
	root := writeFragments(t, map[string]string{
		"docs/entry.md": "---\nid: main\n---\nentry body",
	})

	stdout, _, err := runCommand(t, "compose", "#main", "--root", root)
	require.NoError(t, err)
	assert.Equal(t, "entry body", stdout)
}

func TestComposeCommand_InvalidSelectorFails(t *testing.T) {
	root := writeFragments(t, map[string]string{"a.md": "A"})

	_, _, err := runCommand(t, "compose", "../escape", "--root", root)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestComposeCommand_MissingRootDirFails(t *testing.T) {
	_, _, err := runCommand(t, "compose", "main", "--root", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestComposeCommand_VarFlag(t *testing.T) {
	root := writeFragments(t, map[string]string{
		"greet.md": "Hi {{ $name }}",
	})

	stdout, _, err := runCommand(t, "compose", "greet", "--root", root, "--var", "name=Ada")
	require.NoError(t, err)
	assert.Equal(t, "Hi Ada", stdout)
}

func TestComposeCommand_VarFlagBeatsVarsFile(t *testing.T) {
	root := writeFragments(t, map[string]string{
		"greet.md": "Hi {{ $name }}",
	})
	varsFile := filepath.Join(t.TempDir(), "vars.yaml")
	require.NoError(t, os.WriteFile(varsFile, []byte("vars:\n  name: File\n"), 0o644))

	stdout, _, err := runCommand(t, "compose", "greet", "--root", root,
		"--vars-file", varsFile, "--var", "name=Flag")
	require.NoError(t, err)
	assert.Equal(t, "Hi Flag", stdout)
}

func TestComposeCommand_VarsFileOverrides(t *testing.T) {
	root := writeFragments(t, map[string]string{
		"p.md": "{{ $x }}",
		"q.md": "{{ p }} {{ $x }}",
	})
	varsFile := filepath.Join(t.TempDir(), "vars.yaml")
	require.NoError(t, os.WriteFile(varsFile, []byte(
		"vars:\n  x: global\noverrides:\n  \"@p\":\n    x: scoped\n"), 0o644))

	stdout, _, err := runCommand(t, "compose", "q", "--root", root, "--vars-file", varsFile)
	require.NoError(t, err)
	assert.Equal(t, "scoped global", stdout)
}

func TestComposeCommand_OutFile(t *testing.T) {
	root := writeFragments(t, map[string]string{"a.md": "doc body"})
	outPath := filepath.Join(t.TempDir(), "out.md")

	stdout, _, err := runCommand(t, "compose", "a", "--root", root, "-o", outPath)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "doc body", string(written))
}

func TestComposeCommand_JSONIncludesDiagnostics(t *testing.T) {
	root := writeFragments(t, map[string]string{
		"a.md": "A {{ missing/target }}",
	})

	stdout, _, err := runCommand(t, "compose", "a", "--root", root, "--format", "json")
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "A ", data["document"])
	diags, ok := data["diagnostics"].([]any)
	require.True(t, ok)
	require.Len(t, diags, 1)
}

func TestComposeCommand_OutFileJSONKeepsDiagnostics(t *testing.T) {
	root := writeFragments(t, map[string]string{
		"a.md": "A {{ gone }}",
	})
	outPath := filepath.Join(t.TempDir(), "out.md")

	stdout, _, err := runCommand(t, "compose", "a", "--root", root, "-o", outPath, "--format", "json")
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, outPath, data["out"])
	diags, ok := data["diagnostics"].([]any)
	require.True(t, ok)
	require.Len(t, diags, 1)

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "A ", string(written))
}

func TestComposeCommand_WatchRequiresOut(t *testing.T) {
	root := writeFragments(t, map[string]string{"a.md": "A"})

	_, _, err := runCommand(t, "compose", "a", "--root", root, "--watch")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestComposeCommand_InvalidFormatRejected(t *testing.T) {
	root := writeFragments(t, map[string]string{"a.md": "A"})

	_, _, err := runCommand(t, "compose", "a", "--root", root, "--format", "xml")
	require.Error(t, err)
}

func TestParseVarFlags(t *testing.T) {
	payload, err := parseVarFlags([]string{"a=1", "b=two", "c=x=y"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "1", "b": "two", "c": "x=y"}, payload)

	_, err = parseVarFlags([]string{"novalue"})
	assert.Error(t, err)

	_, err = parseVarFlags([]string{"=v"})
	assert.Error(t, err)

	payload, err = parseVarFlags(nil)
	require.NoError(t, err)
	assert.Nil(t, payload)
}
