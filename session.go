package loom

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/loom/internal/composer"
	"github.com/roach88/loom/internal/diag"
	"github.com/roach88/loom/internal/selector"
	"github.com/roach88/loom/internal/store"
	"github.com/roach88/loom/internal/vars"
)

// Public aliases for the diagnostics side channel and store contract, so
// callers outside this module can name them.
type (
	// Diagnostic is one recoverable anomaly from a compose run or a
	// configuration call.
	Diagnostic = diag.Diagnostic

	// Category identifies the kind of anomaly.
	Category = diag.Category

	// Sink receives diagnostics.
	Sink = diag.Sink

	// Collector is a Sink accumulating diagnostics in memory.
	Collector = diag.Collector

	// Store supplies fragment content; see loom/internal/store.
	Store = store.Store
)

// Diagnostic categories.
const (
	DuplicateID     = diag.DuplicateID
	MissingTarget   = diag.MissingTarget
	SelfReference   = diag.SelfReference
	AncestorCycle   = diag.AncestorCycle
	InvalidSelector = diag.InvalidSelector
)

// NewCollector returns an empty diagnostics collector.
func NewCollector() *Collector {
	return diag.NewCollector()
}

// Session owns a fragment store plus the accumulated variable and
// override configuration. Configuration calls mutate the session;
// Compose never does. Configuration is expected from a single logical
// owner before composing: once configuration writes have quiesced,
// concurrent Compose calls are safe.
type Session struct {
	store     store.Store
	globals   vars.Set
	overrides vars.Overrides
	sink      diag.Sink
	logger    *slog.Logger
	runIDs    diag.RunIDGenerator
}

// Option configures a Session at construction.
type Option func(*Session)

// WithSink routes diagnostics to the given sink instead of the default
// slog-backed one.
func WithSink(s Sink) Option {
	return func(sess *Session) { sess.sink = s }
}

// WithLogger sets the logger for debug traces and the default sink.
func WithLogger(l *slog.Logger) Option {
	return func(sess *Session) { sess.logger = l }
}

// WithRunIDGenerator overrides run-id generation (tests use
// deterministic generators).
func WithRunIDGenerator(g diag.RunIDGenerator) Option {
	return func(sess *Session) { sess.runIDs = g }
}

// New opens a session over a fragment root directory. Fails if the path
// is missing or not a directory.
func New(rootDir string, opts ...Option) (*Session, error) {
	st, err := store.OpenDir(rootDir)
	if err != nil {
		return nil, err
	}
	return NewWithStore(st, opts...), nil
}

// NewWithStore opens a session over an arbitrary content store (packed
// bundle, in-memory set).
func NewWithStore(st Store, opts ...Option) *Session {
	sess := &Session{
		store:     st,
		globals:   vars.Set{},
		overrides: vars.Overrides{},
		runIDs:    diag.UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(sess)
	}
	if sess.logger == nil {
		sess.logger = slog.Default()
	}
	if sess.sink == nil {
		sess.sink = diag.SlogSink{Logger: sess.logger}
	}
	return sess
}

// SetVariables merges a payload into the global variable set; later
// calls override earlier ones on key collision. Values must be strings
// or numbers; anything else fails the call without touching the set.
func (s *Session) SetVariables(payload map[string]any) error {
	set, err := vars.NewSet(payload)
	if err != nil {
		return fmt.Errorf("set variables: %w", err)
	}
	s.globals = vars.Merge(s.globals, set)
	return nil
}

// SetOverrides merges path-scoped variable overrides. Keys are
// selectors, normalized now with the same resolution as runtime
// references (id search included). A syntactically invalid key fails
// the call, like an invalid root selector would. An id key with no
// match cannot bind to any path: it is skipped with a missing-target
// diagnostic. Keys are processed in sorted order, so two keys resolving
// to the same canonical path merge deterministically: the lexically
// greater key wins on variable-name collision. No state is modified
// when an error is returned.
func (s *Session) SetOverrides(payload map[string]map[string]any) error {
	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	resolved := make(vars.Overrides, len(payload))
	for _, key := range keys {
		values := payload[key]
		res := selector.Normalize(key, "", s.store)
		if res.Kind == selector.Invalid {
			return fmt.Errorf("set overrides: invalid selector %q", key)
		}
		set, err := vars.NewSet(values)
		if err != nil {
			return fmt.Errorf("set overrides: selector %q: %w", key, err)
		}
		if !res.Resolved() {
			s.sink.Report(diag.Diagnostic{
				Category: diag.MissingTarget,
				Subject:  key,
				Message:  fmt.Sprintf("override selector %q matches no fragment, binding skipped", key),
			})
			continue
		}
		if len(res.Duplicates) > 0 {
			s.sink.Report(diag.Diagnostic{
				Category: diag.DuplicateID,
				Subject:  key,
				Message:  fmt.Sprintf("override id %q matches %d fragments, using %q", key, len(res.Duplicates)+1, res.Canonical),
			})
		}
		resolved[res.Canonical] = vars.Merge(resolved[res.Canonical], set)
	}
	for path, set := range resolved {
		s.overrides[path] = vars.Merge(s.overrides[path], set)
	}
	return nil
}

// Compose resolves a selector to its flattened artifact. The only error
// is a syntactically invalid root selector; everything else degrades
// with a diagnostic on the session sink. Compose reads session state
// without mutating it, so repeated calls against unchanged configuration
// yield identical output.
func (s *Session) Compose(rootSelector string) (string, error) {
	c := composer.New(composer.Config{
		Store:     s.store,
		Globals:   s.globals,
		Overrides: s.overrides,
		Sink:      s.sink,
		Logger:    s.logger,
		RunID:     s.runIDs.Generate(),
	})
	res, err := c.Compose(rootSelector)
	if err != nil {
		return "", err
	}
	return res.Output, nil
}
