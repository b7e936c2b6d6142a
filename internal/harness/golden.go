package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/loom/internal/diag"
)

// Snapshot is the golden-file representation of a scenario run.
// Diagnostic messages are deliberately excluded: the category and
// occurrence of each diagnostic is the contract, the wording is not.
type Snapshot struct {
	Scenario    string         `json:"scenario"`
	RunID       string         `json:"run_id"`
	Document    string         `json:"document"`
	Diagnostics []SnapshotDiag `json:"diagnostics"`
}

// SnapshotDiag is one diagnostic reduced to its contractual fields.
type SnapshotDiag struct {
	Category diag.Category `json:"category"`
	Path     string        `json:"path,omitempty"`
	Subject  string        `json:"subject,omitempty"`
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	snapshot := Snapshot{
		Scenario:    scenario.Name,
		RunID:       scenario.RunID,
		Document:    result.Document,
		Diagnostics: make([]SnapshotDiag, 0, len(result.Diagnostics)),
	}
	for _, d := range result.Diagnostics {
		snapshot.Diagnostics = append(snapshot.Diagnostics, SnapshotDiag{
			Category: d.Category,
			Path:     d.Path,
			Subject:  d.Subject,
		})
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}
