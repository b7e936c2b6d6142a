package fragment

import (
	"regexp"
	"strings"

	"github.com/roach88/loom/internal/selector"
)

var (
	tokenRe = regexp.MustCompile(`\{\{[^{}]*\}\}`)
	varRe   = regexp.MustCompile(`^\$([A-Za-z0-9_-]+)$`)
)

// tokenBody strips the braces and surrounding whitespace from a matched
// token.
func tokenBody(token string) string {
	return strings.TrimSpace(token[2 : len(token)-2])
}

// ExtractVariables returns the variable names declared by {{ $name }}
// tokens in the body, deduplicated, in first-appearance order.
func ExtractVariables(body string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, token := range tokenRe.FindAllString(body, -1) {
		m := varRe.FindStringSubmatch(tokenBody(token))
		if m == nil {
			continue
		}
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Duplicate records an id selector that matched more than one fragment.
type Duplicate struct {
	ID     string   // bare id, without the # sigil
	Chosen string   // canonical path of the stable first match
	Others []string // canonical paths of the remaining matches
}

// Extraction is the result of scanning a body for tokens.
type Extraction struct {
	// Body is the input body with every reference token rewritten to
	// show its key: "{{ @canonical }}" for resolved selectors, the
	// normalized literal for unresolvable ones. Later stages compare
	// canonical values, not raw selector text.
	Body string

	// Variables lists declared variable names, first appearance order.
	Variables []string

	// References lists reference keys (canonical paths or literal
	// selector text), first appearance order, deduplicated.
	References []string

	// Invalid lists selector literals that matched no selector form.
	// Non-fatal: they stay in References as literal keys and surface as
	// not-found lookups.
	Invalid []string

	// Duplicates lists id selectors with more than one match.
	Duplicates []Duplicate
}

// Extract scans a body for reference tokens, normalizing each selector
// against the referencing fragment's own directory (dirname of
// currentPath), and rewrites the body so every reference token shows its
// key. Variable tokens pass through untouched.
//
// An unresolvable selector (invalid syntax, or an id with no match)
// keeps its literal text as the reference key rather than being dropped,
// so the failure surfaces later as an ordinary not-found lookup.
func Extract(body, currentPath string, ids selector.IDIndex) Extraction {
	ext := Extraction{Variables: ExtractVariables(body)}
	baseDir := Dir(currentPath)

	seenRefs := make(map[string]bool)
	seenInvalid := make(map[string]bool)
	seenDup := make(map[string]bool)

	ext.Body = tokenRe.ReplaceAllStringFunc(body, func(token string) string {
		expr := tokenBody(token)
		if varRe.MatchString(expr) {
			return token
		}

		res := selector.Normalize(expr, baseDir, ids)
		if res.Kind == selector.Invalid && !seenInvalid[res.Literal] {
			seenInvalid[res.Literal] = true
			ext.Invalid = append(ext.Invalid, res.Literal)
		}
		if len(res.Duplicates) > 0 && !seenDup[res.Literal] {
			seenDup[res.Literal] = true
			ext.Duplicates = append(ext.Duplicates, Duplicate{
				ID:     strings.TrimPrefix(res.Literal, "#"),
				Chosen: res.Canonical,
				Others: res.Duplicates,
			})
		}

		key := res.Literal
		if res.Resolved() {
			key = res.Canonical
		}
		if !seenRefs[key] {
			seenRefs[key] = true
			ext.References = append(ext.References, key)
		}

		if res.Resolved() {
			return "{{ @" + res.Canonical + " }}"
		}
		return "{{ " + res.Literal + " }}"
	})

	return ext
}

// SubstituteVariables replaces every variable token with its value from
// ctx. A name with no entry renders as the empty string, never as the
// literal token. Reference tokens pass through untouched.
func SubstituteVariables(body string, ctx map[string]string) string {
	return tokenRe.ReplaceAllStringFunc(body, func(token string) string {
		m := varRe.FindStringSubmatch(tokenBody(token))
		if m == nil {
			return token
		}
		return ctx[m[1]]
	})
}

// SubstituteReferences replaces every reference token with the rendered
// text for its key. Tokens with no matching entry (absent lookups,
// filtered loops) render as the empty string. Variable tokens pass
// through untouched.
func SubstituteReferences(body string, rendered map[string]string) string {
	return tokenRe.ReplaceAllStringFunc(body, func(token string) string {
		expr := tokenBody(token)
		if varRe.MatchString(expr) {
			return token
		}
		return rendered[referenceKey(expr)]
	})
}

// StripReference removes every token whose key equals key from the body.
// Used by loop filtering to drop self and ancestor references.
func StripReference(body, key string) string {
	return tokenRe.ReplaceAllStringFunc(body, func(token string) string {
		expr := tokenBody(token)
		if varRe.MatchString(expr) {
			return token
		}
		if referenceKey(expr) == key {
			return ""
		}
		return token
	})
}

// referenceKey maps a token expression to its reference key: resolved
// root-form tokens key by canonical path, everything else by literal
// text.
func referenceKey(expr string) string {
	if strings.HasPrefix(expr, "@") && selector.Classify(expr) == selector.Root {
		return expr[1:]
	}
	return expr
}
