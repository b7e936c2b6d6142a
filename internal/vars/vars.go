// Package vars implements variable sets and path-scoped override
// precedence for fragment substitution.
//
// Variable values are scalars only: strings or numbers. Anything else in
// a configuration payload is a fatal error at the call that supplied it,
// never later during compose. Values are rendered to their substitution
// text at insertion time so a Set is always a plain string map by the
// time the composer sees it.
package vars

import (
	"fmt"
	"sort"
	"strconv"
)

// Set maps variable names to their rendered substitution text.
type Set map[string]string

// Overrides maps a canonical fragment path to the variable set that
// takes precedence over the globals for that one fragment. Keys are
// normalized at insertion time by the session, with the same selector
// resolution used for runtime references.
type Overrides map[string]Set

// ValueError reports a variable value that is not a string or number.
type ValueError struct {
	Name  string
	Value any
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("variable %q: value must be a string or number, got %T", e.Name, e.Value)
}

// Render converts a scalar payload value to its substitution text.
// Numbers render in plain decimal notation, never exponent form.
func Render(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case int:
		return strconv.Itoa(val), true
	case int32:
		return strconv.FormatInt(int64(val), 10), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case uint:
		return strconv.FormatUint(uint64(val), 10), true
	case uint64:
		return strconv.FormatUint(val, 10), true
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	default:
		return "", false
	}
}

// NewSet validates and renders a payload map into a Set. The first
// offending value (in sorted key order, for deterministic errors) is
// reported via ValueError.
func NewSet(payload map[string]any) (Set, error) {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	set := make(Set, len(payload))
	for _, k := range keys {
		text, ok := Render(payload[k])
		if !ok {
			return nil, &ValueError{Name: k, Value: payload[k]}
		}
		set[k] = text
	}
	return set, nil
}

// Merge copies src into dst, src winning on key collision. dst may be
// nil, in which case a new set is allocated. The returned set is dst.
func Merge(dst, src Set) Set {
	if dst == nil {
		dst = make(Set, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Resolve produces the substitution context for one fragment: the
// globals merged with the override set for its canonical path, the
// override winning on key collision. The inputs are never mutated.
func Resolve(canonicalPath string, globals Set, overrides Overrides) Set {
	ctx := make(Set, len(globals))
	for k, v := range globals {
		ctx[k] = v
	}
	for k, v := range overrides[canonicalPath] {
		ctx[k] = v
	}
	return ctx
}
