package fragment

import (
	"strings"

	"gopkg.in/yaml.v3"
)

const frontmatterFence = "---"

// Parse splits raw fragment text into optional frontmatter metadata and
// body.
//
// Frontmatter is a leading block delimited by "---" lines:
//
//	---
//	id: main-prompt
//	owner: docs
//	---
//	body text...
//
// The block is parsed as YAML into a string-keyed map. A missing opening
// fence, an unterminated block, or YAML that fails to parse all mean "no
// metadata": the raw text is returned untouched as the body. Malformed
// frontmatter is never fatal.
func Parse(raw string) (map[string]any, string) {
	rest, ok := strings.CutPrefix(raw, frontmatterFence+"\n")
	if !ok {
		rest, ok = strings.CutPrefix(raw, frontmatterFence+"\r\n")
	}
	if !ok {
		return nil, raw
	}

	block, body, ok := cutFence(rest)
	if !ok {
		return nil, raw
	}

	var meta map[string]any
	if err := yaml.Unmarshal([]byte(block), &meta); err != nil || meta == nil {
		return nil, raw
	}
	return meta, body
}

// cutFence splits text at the first line consisting solely of the fence.
func cutFence(text string) (block, body string, ok bool) {
	if rest, found := strings.CutPrefix(text, frontmatterFence+"\n"); found {
		return "", rest, true
	}
	for _, marker := range []string{"\n" + frontmatterFence + "\n", "\n" + frontmatterFence + "\r\n"} {
		if i := strings.Index(text, marker); i >= 0 {
			return text[:i], text[i+len(marker):], true
		}
	}
	// Closing fence at end of input without a trailing newline.
	if rest, found := strings.CutSuffix(text, "\n"+frontmatterFence); found {
		return rest, "", true
	}
	return "", "", false
}
