package engine

import "strings"

// fenceLanguages are tried in order when picking the artifact block out of
// a response that wraps code in multiple fences.
var fenceLanguages = []string{"tsx", "typescript", "jsx", "ts", "css", "json", "html", ""}

// ExtractCode pulls the artifact out of a model response.
//
// Models tend to wrap code in a Markdown fence and surround it with
// commentary despite being told not to. ExtractCode returns the content of
// the first fenced block, preferring fences tagged with a code language;
// a response with no fence is returned whole, trimmed.
func ExtractCode(response string) string {
	for _, lang := range fenceLanguages {
		if block, ok := fencedBlock(response, lang); ok {
			return block
		}
	}
	return strings.TrimSpace(response)
}

// fencedBlock returns the first ``` block with the given language tag.
// An empty lang matches any fence.
func fencedBlock(s, lang string) (string, bool) {
	open := "```" + lang
	for {
		start := strings.Index(s, open)
		if start < 0 {
			return "", false
		}
		rest := s[start+len(open):]
		// Require the fence tag to end the marker: "```ts" must not match
		// inside "```tsx".
		nl := strings.IndexByte(rest, '\n')
		if nl < 0 {
			return "", false
		}
		if lang != "" && strings.TrimSpace(rest[:nl]) != "" {
			s = rest
			continue
		}
		body := rest[nl+1:]
		end := strings.Index(body, "```")
		if end < 0 {
			return strings.TrimSpace(body), true
		}
		return strings.TrimSpace(body[:end]), true
	}
}
