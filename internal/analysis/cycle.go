// Package analysis performs static whole-graph checks on a fragment
// store, ahead of any compose call.
//
// The composer removes cycles dynamically while expanding one root; this
// package instead walks every fragment, builds the full reference graph,
// and reports each strongly connected component as a warning. Cycles are
// warnings, not errors: the engine is guaranteed to terminate on them,
// but authors usually want to know their graph loops.
package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/loom/internal/fragment"
	"github.com/roach88/loom/internal/store"
)

// CycleWarning describes one reference cycle in the fragment graph.
type CycleWarning struct {
	Path    []string `json:"path"`    // cycle sequence: ["a", "b", "a"]
	Message string   `json:"message"` // human-readable description
}

// referenceGraph maps canonical path -> referenced canonical paths.
type referenceGraph map[string][]string

// AnalyzeCycles builds the reference graph of every fragment in the
// store and reports its cycles. Literal reference keys (unresolved ids,
// invalid selectors) never resolve to content, so they contribute no
// edges. A DAG returns an empty list.
func AnalyzeCycles(st store.Store) []CycleWarning {
	graph := buildReferenceGraph(st)

	var warnings []CycleWarning
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, sccToWarning(scc, graph))
		}
	}
	return warnings
}

// buildReferenceGraph extracts the declared references of every
// fragment. Only resolved canonical keys become edges.
func buildReferenceGraph(st store.Store) referenceGraph {
	graph := make(referenceGraph)
	for _, p := range st.Paths() {
		content := st.Get(p)
		if !content.Found {
			continue
		}
		frag, _ := fragment.New(p, content.Raw, st)
		edges := []string{}
		for _, ref := range frag.References {
			if st.Get(ref).Found {
				edges = append(edges, ref)
			}
		}
		graph[p] = edges
	}
	return graph
}

func hasSelfLoop(node string, graph referenceGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components. Single-node SCCs
// without self-loops are not cycles.
func tarjanSCC(graph referenceGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	// Iterate in stable path order so warning output is deterministic.
	for _, node := range sortedNodes(graph) {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func sortedNodes(graph referenceGraph) []string {
	nodes := make([]string, 0, len(graph))
	for n := range graph {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	return nodes
}

func sccToWarning(scc []string, graph referenceGraph) CycleWarning {
	if len(scc) == 1 {
		p := scc[0]
		return CycleWarning{
			Path:    []string{p, p},
			Message: fmt.Sprintf("fragment references itself: %s -> %s", p, p),
		}
	}
	path := reconstructCyclePath(scc, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("reference cycle: %s", strings.Join(path, " -> ")),
	}
}

// reconstructCyclePath walks edges inside the SCC from its first node
// until the walk returns to the start.
func reconstructCyclePath(scc []string, graph referenceGraph) []string {
	sccSet := make(map[string]bool, len(scc))
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true
		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
