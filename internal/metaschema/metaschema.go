// Package metaschema validates fragment frontmatter against a CUE
// schema.
//
// Frontmatter is an open map: authors can attach whatever keys their
// tooling wants. The schema only constrains the keys the engine itself
// interprets: id must be a selector-shaped string, and vars (when
// present, reserved for future per-fragment defaults) must hold scalar
// values.
package metaschema

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

const schemaSource = `
#Fragment: {
	id?:          string & =~"^[A-Za-z0-9_-]+$"
	title?:       string
	description?: string
	vars?: [string]: string | int | float
	...
}
`

var (
	schemaOnce  sync.Once
	schemaCtx   *cue.Context
	schemaValue cue.Value
)

func compiledSchema() (*cue.Context, cue.Value) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		schemaValue = schemaCtx.CompileString(schemaSource).LookupPath(cue.ParsePath("#Fragment"))
	})
	return schemaCtx, schemaValue
}

// Issue is one frontmatter schema violation.
type Issue struct {
	// FragmentPath is the canonical path of the offending fragment.
	FragmentPath string `json:"fragment_path"`

	// Field is the frontmatter field path, when the violation is
	// attributable to one.
	Field string `json:"field,omitempty"`

	// Message describes the violation.
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Field != "" {
		return fmt.Sprintf("%s: field %s: %s", i.FragmentPath, i.Field, i.Message)
	}
	return fmt.Sprintf("%s: %s", i.FragmentPath, i.Message)
}

// Validate checks one fragment's frontmatter map. A nil map (no
// frontmatter) is trivially valid. Returns all violations, not just the
// first.
func Validate(fragmentPath string, meta map[string]any) []Issue {
	if meta == nil {
		return nil
	}

	ctx, schema := compiledSchema()
	value := ctx.Encode(meta)
	if err := value.Err(); err != nil {
		return []Issue{{
			FragmentPath: fragmentPath,
			Message:      fmt.Sprintf("frontmatter not encodable: %v", err),
		}}
	}

	unified := schema.Unify(value)
	err := unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var issues []Issue
	for _, e := range cueerrors.Errors(err) {
		issue := Issue{
			FragmentPath: fragmentPath,
			Message:      e.Error(),
		}
		if p := e.Path(); len(p) > 0 {
			issue.Field = p[len(p)-1]
		}
		issues = append(issues, issue)
	}
	return issues
}
