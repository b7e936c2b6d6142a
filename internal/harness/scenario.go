package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/loom/internal/diag"
)

// Scenario defines one conformance scenario: a fragment set, session
// configuration, a compose call, and the expected outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Fragments maps canonical paths to raw fragment content.
	Fragments map[string]string `yaml:"fragments"`

	// Vars holds global variables applied before composing.
	Vars map[string]any `yaml:"vars,omitempty"`

	// Overrides holds selector-keyed variable overrides.
	Overrides map[string]map[string]any `yaml:"overrides,omitempty"`

	// Compose is the root selector to resolve.
	Compose string `yaml:"compose"`

	// RunID is the fixed run id for deterministic diagnostics. Defaults
	// to "test-run".
	RunID string `yaml:"run_id,omitempty"`

	// Expect specifies the expected outcome.
	Expect Expectation `yaml:"expect"`
}

// Expectation is the asserted outcome of a scenario run.
type Expectation struct {
	// Document is the expected flattened output, compared exactly.
	Document string `yaml:"document"`

	// Diagnostics lists diagnostics the run must surface. Subset match:
	// extra diagnostics are allowed unless Clean is set.
	Diagnostics []ExpectedDiagnostic `yaml:"diagnostics,omitempty"`

	// Clean requires that the run surfaces no diagnostics at all.
	Clean bool `yaml:"clean,omitempty"`
}

// ExpectedDiagnostic matches one surfaced diagnostic. Category is
// required; Path and Subject are matched only when non-empty. Message
// text is never matched.
type ExpectedDiagnostic struct {
	Category diag.Category `yaml:"category"`
	Path     string        `yaml:"path,omitempty"`
	Subject  string        `yaml:"subject,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly instead of silently weakening the
// scenario.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if scenario.RunID == "" {
		scenario.RunID = "test-run"
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and
// internally consistent.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Fragments) == 0 {
		return fmt.Errorf("fragments map is required and must be non-empty")
	}
	if s.Compose == "" {
		return fmt.Errorf("compose selector is required")
	}
	if s.Expect.Clean && len(s.Expect.Diagnostics) > 0 {
		return fmt.Errorf("expect.clean conflicts with expect.diagnostics")
	}
	for i, d := range s.Expect.Diagnostics {
		if d.Category == "" {
			return fmt.Errorf("expect.diagnostics[%d]: category is required", i)
		}
		if !knownCategory(d.Category) {
			return fmt.Errorf("expect.diagnostics[%d]: unknown category %q", i, d.Category)
		}
	}
	return nil
}

func knownCategory(c diag.Category) bool {
	switch c {
	case diag.DuplicateID, diag.MissingTarget, diag.SelfReference,
		diag.AncestorCycle, diag.InvalidSelector:
		return true
	}
	return false
}
