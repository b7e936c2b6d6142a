package fragment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loom/internal/selector"
)

type fakeIndex map[string]selector.IDMatch

func (f fakeIndex) FindByID(id string) selector.IDMatch {
	return f[id]
}

func TestExtractVariables(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"none", "plain text", nil},
		{"single", "Hi {{ $name }}", []string{"name"}},
		{"whitespace tolerant", "{{$a}} {{  $b  }}", []string{"a", "b"}},
		{"dedup keeps first order", "{{ $b }} {{ $a }} {{ $b }}", []string{"b", "a"}},
		{"references ignored", "{{ other }} {{ $x }}", []string{"x"}},
		{"malformed token ignored", "{{ $ }} {{ $ok }}", []string{"ok"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractVariables(tt.body))
		})
	}
}

func TestExtract_RelativeResolvesAgainstFragmentDir(t *testing.T) {
	ext := Extract("{{ tone }}", "guides/style", nil)
	assert.Equal(t, []string{"guides/tone"}, ext.References)
	assert.Equal(t, "{{ @guides/tone }}", ext.Body)
}

func TestExtract_RootForm(t *testing.T) {
	ext := Extract("{{ @shared/footer }}", "deep/nested/frag", nil)
	assert.Equal(t, []string{"shared/footer"}, ext.References)
	assert.Equal(t, "{{ @shared/footer }}", ext.Body)
}

func TestExtract_IDResolved(t *testing.T) {
	ids := fakeIndex{"footer": {Found: true, Path: "shared/footer"}}
	ext := Extract("{{ #footer }}", "intro", ids)
	assert.Equal(t, []string{"shared/footer"}, ext.References)
	assert.Equal(t, "{{ @shared/footer }}", ext.Body)
	assert.Empty(t, ext.Duplicates)
}

func TestExtract_IDAbsentKeepsLiteral(t *testing.T) {
	ext := Extract("{{ #missing }}", "intro", fakeIndex{})
	assert.Equal(t, []string{"#missing"}, ext.References)
	assert.Equal(t, "{{ #missing }}", ext.Body)
	assert.Empty(t, ext.Invalid, "a well-formed id with no match is not invalid syntax")
}

func TestExtract_IDDuplicateFlagged(t *testing.T) {
	ids := fakeIndex{"main": {Found: true, Path: "a/first", Duplicates: []string{"b/second", "c/third"}}}
	ext := Extract("{{ #main }} and again {{ #main }}", "intro", ids)
	assert.Equal(t, []string{"a/first"}, ext.References)
	require.Len(t, ext.Duplicates, 1, "duplicate flagged once per selector")
	assert.Equal(t, "main", ext.Duplicates[0].ID)
	assert.Equal(t, "a/first", ext.Duplicates[0].Chosen)
	assert.Equal(t, []string{"b/second", "c/third"}, ext.Duplicates[0].Others)
}

func TestExtract_InvalidSelectorKeptAsLiteral(t *testing.T) {
	ext := Extract("{{ not valid! }}", "intro", nil)
	assert.Equal(t, []string{"not valid!"}, ext.References)
	assert.Equal(t, []string{"not valid!"}, ext.Invalid)
	assert.Equal(t, "{{ not valid! }}", ext.Body)
}

func TestExtract_DedupFirstAppearance(t *testing.T) {
	ext := Extract("{{ a }} {{ @a }} {{ b }}", "", nil)
	assert.Equal(t, []string{"a", "b"}, ext.References,
		"relative and root forms of the same path share one key")
}

func TestExtract_MixedVariablesAndReferences(t *testing.T) {
	ext := Extract("Hi {{ $name }}\n{{ other }}", "root", nil)
	assert.Equal(t, []string{"name"}, ext.Variables)
	assert.Equal(t, []string{"other"}, ext.References)
	assert.Equal(t, "Hi {{ $name }}\n{{ @other }}", ext.Body)
}

func TestSubstituteVariables(t *testing.T) {
	body := "Hi {{ $name }}, missing: [{{ $nope }}], ref: {{ @other }}"
	out := SubstituteVariables(body, map[string]string{"name": "World"})
	assert.Equal(t, "Hi World, missing: [], ref: {{ @other }}", out)
}

func TestSubstituteReferences(t *testing.T) {
	body := "a: {{ @shared/a }} b: {{ #orphan }} var: {{ $keep }}"
	out := SubstituteReferences(body, map[string]string{"shared/a": "ALPHA"})
	assert.Equal(t, "a: ALPHA b:  var: {{ $keep }}", out)
}

func TestStripReference(t *testing.T) {
	body := "{{ @self }} kept {{ @other }} {{ $v }}"
	out := StripReference(body, "self")
	assert.Equal(t, " kept {{ @other }} {{ $v }}", out)
}

func TestNew_ParsesAndExtracts(t *testing.T) {
	raw := "---\nid: main\n---\nHi {{ $who }}\n{{ parts/footer }}\n"
	frag, ext := New("prompts/main", raw, nil)
	assert.Equal(t, "prompts/main", frag.Path)
	assert.Equal(t, "main", frag.ID())
	assert.Equal(t, []string{"who"}, frag.Variables)
	assert.Equal(t, []string{"prompts/parts/footer"}, frag.References)
	assert.Equal(t, "Hi {{ $who }}\n{{ @prompts/parts/footer }}\n", frag.Body)
	assert.Empty(t, ext.Invalid)
}

func TestEmpty(t *testing.T) {
	frag := Empty("gone/away")
	assert.Equal(t, "gone/away", frag.Path)
	assert.Equal(t, "", frag.Body)
	assert.Empty(t, frag.Variables)
	assert.Empty(t, frag.References)
	assert.Equal(t, "", frag.ID())
}

func TestDir(t *testing.T) {
	assert.Equal(t, "", Dir("intro"))
	assert.Equal(t, "guides", Dir("guides/style"))
	assert.Equal(t, "a/b", Dir("a/b/c"))
}
