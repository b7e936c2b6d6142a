// Package diag implements the diagnostics side channel for compose
// operations.
//
// Recoverable anomalies (duplicate id, missing target, self-reference,
// ancestor cycle, invalid nested selector) are reported here and never
// cross the compose boundary as errors. The category and occurrence of
// each diagnostic is the compatibility contract; the message text is
// not.
package diag

import (
	"fmt"
	"log/slog"
	"sync"
)

// Category identifies the kind of recoverable anomaly.
type Category string

const (
	// DuplicateID: an id selector matched more than one fragment; the
	// stable first match was used.
	DuplicateID Category = "DUPLICATE_ID"

	// MissingTarget: a reference key had no content in the store; it
	// rendered as the empty string.
	MissingTarget Category = "MISSING_TARGET"

	// SelfReference: a fragment referenced itself; the token was
	// stripped.
	SelfReference Category = "SELF_REFERENCE"

	// AncestorCycle: a reference pointed back to a fragment on the
	// current ancestor chain; the token was stripped.
	AncestorCycle Category = "ANCESTOR_CYCLE"

	// InvalidSelector: a selector embedded in content matched no
	// selector form; it was treated as an unresolved reference.
	InvalidSelector Category = "INVALID_SELECTOR"
)

// Diagnostic is one recoverable anomaly observed during a compose run or
// a configuration call.
type Diagnostic struct {
	// Category is the anomaly kind.
	Category Category `json:"category"`

	// RunID correlates the diagnostic with one compose run. Empty for
	// diagnostics raised outside a compose (e.g. override key
	// normalization).
	RunID string `json:"run_id,omitempty"`

	// Path is the canonical path of the fragment where the anomaly was
	// observed, when known.
	Path string `json:"path,omitempty"`

	// Subject is the selector or reference key the anomaly concerns.
	Subject string `json:"subject,omitempty"`

	// Message is a human-readable description. Not a contract.
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Path != "" {
		return fmt.Sprintf("%s: %s (path=%s, subject=%s)", d.Category, d.Message, d.Path, d.Subject)
	}
	return fmt.Sprintf("%s: %s (subject=%s)", d.Category, d.Message, d.Subject)
}

// Sink receives diagnostics. Implementations must not fail; a sink that
// cannot deliver drops silently rather than disturbing composition.
type Sink interface {
	Report(d Diagnostic)
}

// Collector is a Sink that accumulates diagnostics in memory. Safe for
// concurrent use; compose itself is single-threaded, but independent
// composes may share a session sink.
type Collector struct {
	mu   sync.Mutex
	diag []Diagnostic
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Report appends the diagnostic.
func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diag = append(c.diag, d)
}

// All returns a copy of the collected diagnostics in report order.
func (c *Collector) All() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.diag))
	copy(out, c.diag)
	return out
}

// ByCategory returns the collected diagnostics matching the category.
func (c *Collector) ByCategory(cat Category) []Diagnostic {
	var out []Diagnostic
	for _, d := range c.All() {
		if d.Category == cat {
			out = append(out, d)
		}
	}
	return out
}

// Reset discards everything collected so far.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diag = nil
}

// SlogSink forwards diagnostics to a structured logger at warn level.
type SlogSink struct {
	Logger *slog.Logger
}

// Report logs the diagnostic with its structured fields.
func (s SlogSink) Report(d Diagnostic) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn(d.Message,
		"category", string(d.Category),
		"run_id", d.RunID,
		"path", d.Path,
		"subject", d.Subject,
	)
}

// Tee fans a diagnostic out to multiple sinks.
type Tee []Sink

// Report forwards to every sink in order.
func (t Tee) Report(d Diagnostic) {
	for _, s := range t {
		s.Report(d)
	}
}

// Discard drops every diagnostic.
type Discard struct{}

// Report does nothing.
func (Discard) Report(Diagnostic) {}
