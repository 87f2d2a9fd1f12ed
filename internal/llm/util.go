package llm

import "strings"

// CleanJSONBlock strips a markdown code fence from a model response. Models
// frequently wrap JSON output in ```json fences even when told not to, and
// the generic ``` form sometimes carries a language tag on the first line.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	if nl := strings.Index(text, "\n"); nl >= 0 && looksLikeLanguageTag(text[:nl]) {
		text = text[nl+1:]
	}
	if end := strings.LastIndex(text, "```"); end >= 0 {
		text = text[:end]
	}
	return strings.TrimSpace(text)
}

// looksLikeLanguageTag reports whether a fence's first line is a tag like
// "json" rather than the start of the payload.
func looksLikeLanguageTag(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}
	return len(line) < 20 && !strings.ContainsAny(line, " {[\"")
}
