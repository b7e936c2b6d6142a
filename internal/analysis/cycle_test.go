package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loom/internal/store"
)

func TestAnalyzeCycles_DAG(t *testing.T) {
	st := store.NewMemory(map[string]string{
		"root": "{{ a }} {{ b }}",
		"a":    "{{ shared }}",
		"b":    "{{ shared }}",
		"shared": "leaf",
	})
	assert.Empty(t, AnalyzeCycles(st))
}

func TestAnalyzeCycles_SelfLoop(t *testing.T) {
	st := store.NewMemory(map[string]string{
		"solo": "{{ solo }}",
	})
	warnings := AnalyzeCycles(st)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"solo", "solo"}, warnings[0].Path)
}

func TestAnalyzeCycles_TwoNodeCycle(t *testing.T) {
	st := store.NewMemory(map[string]string{
		"a": "{{ b }}",
		"b": "{{ a }}",
	})
	warnings := AnalyzeCycles(st)
	require.Len(t, warnings, 1)
	assert.Len(t, warnings[0].Path, 3)
	assert.Equal(t, warnings[0].Path[0], warnings[0].Path[len(warnings[0].Path)-1])
}

func TestAnalyzeCycles_MultipleComponents(t *testing.T) {
	st := store.NewMemory(map[string]string{
		"a":   "{{ b }}",
		"b":   "{{ a }}",
		"x":   "{{ x }}",
		"top": "{{ a }} {{ x }}",
	})
	warnings := AnalyzeCycles(st)
	assert.Len(t, warnings, 2)
}

func TestAnalyzeCycles_UnresolvedKeysContributeNoEdges(t *testing.T) {
	st := store.NewMemory(map[string]string{
		"a": "{{ #ghost }} {{ missing }} {{ bad! }}",
	})
	assert.Empty(t, AnalyzeCycles(st))
}

func TestAnalyzeCycles_IDEdges(t *testing.T) {
	st := store.NewMemory(map[string]string{
		"a": "---\nid: alpha\n---\n{{ #beta }}",
		"b": "---\nid: beta\n---\n{{ #alpha }}",
	})
	warnings := AnalyzeCycles(st)
	require.Len(t, warnings, 1, "id references resolve to paths before analysis")
}

func TestAnalyzeCycles_Deterministic(t *testing.T) {
	st := store.NewMemory(map[string]string{
		"m": "{{ n }}",
		"n": "{{ m }}",
		"p": "{{ q }}",
		"q": "{{ p }}",
	})
	first := AnalyzeCycles(st)
	second := AnalyzeCycles(st)
	assert.Equal(t, first, second)
}
