package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/loom"
	"github.com/roach88/loom/internal/diag"
	"github.com/roach88/loom/internal/store"
)

// Result captures everything a scenario run produced.
type Result struct {
	// Document is the flattened output.
	Document string

	// Diagnostics lists every diagnostic the run surfaced, in report
	// order. Includes configuration diagnostics from SetOverrides.
	Diagnostics []diag.Diagnostic
}

// Run executes a scenario against an in-memory store. The session uses
// the scenario's fixed run id, so repeated runs produce identical
// results. Fails on session construction or configuration errors and on
// an invalid root selector; expectation mismatches are Check's business.
func Run(scenario *Scenario) (*Result, error) {
	st := store.NewMemory(scenario.Fragments)
	if got, want := len(st.Paths()), len(scenario.Fragments); got != want {
		return nil, fmt.Errorf("%d of %d fragment paths are not canonical", want-got, want)
	}

	collector := diag.NewCollector()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	sess := loom.NewWithStore(st,
		loom.WithSink(collector),
		loom.WithLogger(quiet),
		loom.WithRunIDGenerator(diag.NewFixedGenerator(scenario.RunID)),
	)

	if scenario.Vars != nil {
		if err := sess.SetVariables(scenario.Vars); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
		}
	}
	if scenario.Overrides != nil {
		if err := sess.SetOverrides(scenario.Overrides); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
		}
	}

	doc, err := sess.Compose(scenario.Compose)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}
	return &Result{Document: doc, Diagnostics: collector.All()}, nil
}

// Check validates a result against the scenario's expectations. Every
// failed expectation contributes one error line; nil means the scenario
// passed.
func Check(scenario *Scenario, result *Result) error {
	var failures []string

	if result.Document != scenario.Expect.Document {
		failures = append(failures, fmt.Sprintf(
			"document mismatch:\n  want: %q\n  got:  %q",
			scenario.Expect.Document, result.Document))
	}

	if scenario.Expect.Clean && len(result.Diagnostics) > 0 {
		failures = append(failures, fmt.Sprintf(
			"expected no diagnostics, got %d: %v", len(result.Diagnostics), result.Diagnostics))
	}

	for _, want := range scenario.Expect.Diagnostics {
		if !containsDiagnostic(result.Diagnostics, want) {
			failures = append(failures, fmt.Sprintf(
				"missing diagnostic category=%s path=%q subject=%q in %v",
				want.Category, want.Path, want.Subject, result.Diagnostics))
		}
	}

	if len(failures) == 0 {
		return nil
	}
	msg := failures[0]
	for _, f := range failures[1:] {
		msg += "\n" + f
	}
	return fmt.Errorf("scenario %q: %s", scenario.Name, msg)
}

// containsDiagnostic reports whether any surfaced diagnostic matches the
// expectation. Empty expectation fields match anything.
func containsDiagnostic(got []diag.Diagnostic, want ExpectedDiagnostic) bool {
	for _, d := range got {
		if d.Category != want.Category {
			continue
		}
		if want.Path != "" && d.Path != want.Path {
			continue
		}
		if want.Subject != "" && d.Subject != want.Subject {
			continue
		}
		return true
	}
	return false
}
