package publicapi

import (
	"html"
	"regexp"
	"strings"
)

const maxSanitizedLength = 8000

var (
	manyNewlines = regexp.MustCompile(`\n{3,}`)

	injectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)ignore\s+previous\s+instructions`),
		regexp.MustCompile(`(?i)forget\s+everything`),
		regexp.MustCompile(`(?i)system\s*:`),
		regexp.MustCompile(`(?i)assistant\s*:`),
		regexp.MustCompile(`(?i)human\s*:`),
		regexp.MustCompile(`(?i)user\s*:`),
		// html.EscapeString has already turned <system> into &lt;system&gt;.
		regexp.MustCompile(`(?i)&lt;\s*/?system\s*&gt;`),
		regexp.MustCompile(`(?i)&lt;\s*/?assistant\s*&gt;`),
		regexp.MustCompile(`(?i)act\s+as\s+if`),
		regexp.MustCompile(`(?i)pretend\s+to\s+be`),
		regexp.MustCompile(`(?i)roleplay\s+as`),
	}
)

// sanitizeMessage prepares user text for storage and the model: trims,
// collapses runs of blank lines, escapes HTML and masks prompt-injection
// phrases with [FILTERED].
func sanitizeMessage(msg string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return ""
	}
	msg = manyNewlines.ReplaceAllString(msg, "\n\n")
	msg = html.EscapeString(msg)
	for _, p := range injectionPatterns {
		msg = p.ReplaceAllString(msg, "[FILTERED]")
	}
	return msg
}
