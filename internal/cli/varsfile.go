package cli

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// VarsFile is the YAML shape accepted by --vars-file:
//
//	vars:
//	  name: World
//	  retries: 3
//	overrides:
//	  "#main":
//	    tone: formal
//	  "@guides/style":
//	    tone: relaxed
type VarsFile struct {
	Vars      map[string]any            `yaml:"vars"`
	Overrides map[string]map[string]any `yaml:"overrides"`
}

// LoadVarsFile reads and decodes a vars file.
func LoadVarsFile(path string) (*VarsFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vars file: %w", err)
	}
	var vf VarsFile
	if err := yaml.Unmarshal(raw, &vf); err != nil {
		return nil, fmt.Errorf("vars file %q: %w", path, err)
	}
	return &vf, nil
}

// parseVarFlags turns repeated --var name=value flags into a payload
// map. Values stay strings; numeric typing matters only for API
// callers, the substitution text is identical.
func parseVarFlags(flags []string) (map[string]any, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	payload := make(map[string]any, len(flags))
	for _, f := range flags {
		name, value, ok := strings.Cut(f, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("--var %q: expected name=value", f)
		}
		payload[name] = value
	}
	return payload, nil
}
