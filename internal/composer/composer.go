// Package composer implements the resolution/flattening engine.
//
// Composing a selector builds a tree of fragments connected by inline
// references and flattens it into a single text artifact. Each node
// moves through the states
//
//	Parsed -> ChildrenAttached -> Flattened -> (Parsed again if new
//	references surfaced) -> Terminal
//
// as an iterative expand-then-flatten loop: children are built fully
// terminal (recursively, with copy-on-extend ancestor chains), their
// rendered bodies are substituted into the parent, and references are
// re-extracted from the substituted body until none remain. Loop
// filtering removes self-references and ancestor cycles at every step,
// so termination is structural rather than hop-counted: every recursion
// extends the ancestor chain with a path not already on it, and the
// store is finite.
//
// The composer is single-threaded and synchronous. It never mutates the
// variable or override state it is given; every transformation produces
// a new node value.
package composer

import (
	"fmt"
	"log/slog"

	"github.com/roach88/loom/internal/diag"
	"github.com/roach88/loom/internal/fragment"
	"github.com/roach88/loom/internal/selector"
	"github.com/roach88/loom/internal/store"
	"github.com/roach88/loom/internal/vars"
)

// InvalidSelectorError is the single fatal failure of a compose call: a
// root selector that matches no selector form.
type InvalidSelectorError struct {
	Selector string
}

func (e *InvalidSelectorError) Error() string {
	return fmt.Sprintf("invalid root selector %q: must be a relative path, @root path, or #id", e.Selector)
}

// Node is one fragment in the resolution tree, plus the ancestor chain
// that led to it. Ancestors are canonical paths from the root, exclusive
// of the node itself; the chain is copied on every extension so sibling
// subtrees can never corrupt each other.
type Node struct {
	fragment.Fragment
	Ancestors []string
}

// Result is the outcome of one compose run.
type Result struct {
	// Output is the final artifact: no reference tokens remain, and
	// every variable token was substituted (missing names as "").
	Output string

	// RunID correlates the run's diagnostics.
	RunID string
}

// Composer owns one compose run's read-only inputs.
type Composer struct {
	store     store.Store
	globals   vars.Set
	overrides vars.Overrides
	sink      diag.Sink
	logger    *slog.Logger
	runID     string
}

// Config carries the session state a compose run reads.
type Config struct {
	Store     store.Store
	Globals   vars.Set
	Overrides vars.Overrides

	// Sink receives recoverable diagnostics. Nil means discard.
	Sink diag.Sink

	// Logger receives debug-level trace of the expansion. Nil means
	// slog.Default.
	Logger *slog.Logger

	// RunID correlates diagnostics; generated by the session.
	RunID string
}

// New builds a composer for one run.
func New(cfg Config) *Composer {
	c := &Composer{
		store:     cfg.Store,
		globals:   cfg.Globals,
		overrides: cfg.Overrides,
		sink:      cfg.Sink,
		logger:    cfg.Logger,
		runID:     cfg.RunID,
	}
	if c.sink == nil {
		c.sink = diag.Discard{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Compose resolves the root selector and flattens its tree. The only
// error is an invalid root selector; every other anomaly degrades to a
// diagnostic and composition continues.
func (c *Composer) Compose(rootSelector string) (Result, error) {
	res := selector.Normalize(rootSelector, "", c.store)
	if res.Kind == selector.Invalid {
		return Result{}, &InvalidSelectorError{Selector: rootSelector}
	}
	c.reportDuplicates(res, "")

	key := res.Literal
	if res.Resolved() {
		key = res.Canonical
	}

	c.logger.Debug("compose start", "run_id", c.runID, "selector", rootSelector, "path", key)
	node := c.build(key, nil)
	c.logger.Debug("compose done", "run_id", c.runID, "path", key, "bytes", len(node.Body))

	return Result{Output: node.Body, RunID: c.runID}, nil
}

// build constructs a fully terminal node for key: fetch, parse,
// substitute the node's own variables, then expand and flatten until no
// references remain.
func (c *Composer) build(key string, ancestors []string) Node {
	content := c.store.Get(key)
	if !content.Found {
		c.report(diag.MissingTarget, key, key, fmt.Sprintf("no fragment at %q, rendered as empty", key))
		return Node{Fragment: fragment.Empty(key), Ancestors: ancestors}
	}

	meta, rawBody := fragment.Parse(content.Raw)

	// The node's own variables are resolved with its canonical path as
	// the override key and substituted before reference extraction, so
	// references carried inside variable values are expanded like any
	// other.
	declared := fragment.ExtractVariables(rawBody)
	body := c.substituteVars(key, rawBody)

	ext := c.extract(body, key)
	node := Node{
		Fragment: fragment.Fragment{
			Path:      key,
			Meta:      meta,
			Body:      ext.Body,
			Variables: declared,
		},
		Ancestors: ancestors,
	}
	node.Fragment.References, node.Fragment.Body = c.filterLoops(node, ext.References, ext.Body)

	for len(node.References) > 0 {
		node = c.expand(node)
	}
	return node
}

// expand runs one iteration of the expand-then-flatten loop: attach a
// terminal child per reference, substitute the children's rendered
// bodies into the parent, re-extract, and loop-filter. The children are
// discarded; only their rendered text persists.
func (c *Composer) expand(node Node) Node {
	chain := extend(node.Ancestors, node.Path)

	rendered := make(map[string]string, len(node.References))
	for _, ref := range node.References {
		child := c.build(ref, chain)
		rendered[ref] = child.Body
	}

	flat := fragment.SubstituteReferences(node.Body, rendered)

	// Flattening can assemble new tokens of either kind, so the node
	// re-enters the Parsed state: variables are substituted again, then
	// extraction runs until it comes up empty.
	flat = c.substituteVars(node.Path, flat)
	ext := c.extract(flat, node.Path)
	next := Node{
		Fragment: fragment.Fragment{
			Path:      node.Path,
			Meta:      node.Meta,
			Body:      ext.Body,
			Variables: node.Variables,
		},
		Ancestors: node.Ancestors,
	}
	next.Fragment.References, next.Fragment.Body = c.filterLoops(next, ext.References, ext.Body)

	c.logger.Debug("node flattened",
		"run_id", c.runID,
		"path", node.Path,
		"children", len(node.References),
		"remaining", len(next.References),
	)
	return next
}

// filterLoops drops self-references and ancestor cycles from refs,
// strips their tokens from body, and reports each drop. Both anomalies
// are non-fatal. Literal reference keys (unresolved ids, invalid
// selector text) keep their sigil and are never checked against the
// ancestor chain, which holds canonical paths only; they degrade through
// the store as not-found lookups instead.
func (c *Composer) filterLoops(node Node, refs []string, body string) ([]string, string) {
	onChain := make(map[string]bool, len(node.Ancestors))
	for _, a := range node.Ancestors {
		onChain[a] = true
	}

	var kept []string
	for _, ref := range refs {
		switch {
		case ref == node.Path:
			c.report(diag.SelfReference, node.Path, ref, fmt.Sprintf("%q references itself, token dropped", node.Path))
			body = fragment.StripReference(body, ref)
		case onChain[ref]:
			c.report(diag.AncestorCycle, node.Path, ref, fmt.Sprintf("%q references ancestor %q, token dropped", node.Path, ref))
			body = fragment.StripReference(body, ref)
		default:
			kept = append(kept, ref)
		}
	}
	return kept, body
}

// substituteVars applies the path's variable context to the body until
// it stops changing, then renders any variable token still standing as
// the empty string. Values may carry variable tokens of their own; an
// acyclic chain of values nests at most len(ctx) deep, so a body still
// changing past that bound is reproducing tokens and the remainder
// degrades to "".
func (c *Composer) substituteVars(path, body string) string {
	ctx := vars.Resolve(path, c.globals, c.overrides)
	for i := 0; i <= len(ctx); i++ {
		next := fragment.SubstituteVariables(body, ctx)
		if next == body {
			break
		}
		body = next
	}
	return fragment.SubstituteVariables(body, nil)
}

// extract wraps fragment.Extract and forwards its anomalies to the
// diagnostics sink.
func (c *Composer) extract(body, currentPath string) fragment.Extraction {
	ext := fragment.Extract(body, currentPath, c.store)
	for _, lit := range ext.Invalid {
		c.report(diag.InvalidSelector, currentPath, lit, fmt.Sprintf("invalid selector %q treated as unresolved reference", lit))
	}
	for _, dup := range ext.Duplicates {
		c.report(diag.DuplicateID, currentPath, "#"+dup.ID,
			fmt.Sprintf("id %q matches %d fragments, using %q", dup.ID, len(dup.Others)+1, dup.Chosen))
	}
	return ext
}

// reportDuplicates surfaces duplicate matches from a root-level or
// override-key id resolution.
func (c *Composer) reportDuplicates(res selector.Resolution, path string) {
	if len(res.Duplicates) == 0 {
		return
	}
	id := res.Literal
	c.report(diag.DuplicateID, path, id,
		fmt.Sprintf("id %q matches %d fragments, using %q", id, len(res.Duplicates)+1, res.Canonical))
}

func (c *Composer) report(cat diag.Category, path, subject, msg string) {
	c.sink.Report(diag.Diagnostic{
		Category: cat,
		RunID:    c.runID,
		Path:     path,
		Subject:  subject,
		Message:  msg,
	})
}

// extend returns a new ancestor chain with path appended. The input is
// never aliased: sibling subtrees expanded from one parent must not
// share backing arrays.
func extend(ancestors []string, path string) []string {
	chain := make([]string, len(ancestors), len(ancestors)+1)
	copy(chain, ancestors)
	return append(chain, path)
}
