package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	contentPolicy = bluemonday.UGCPolicy()
	titlePolicy   = bluemonday.StrictPolicy()
)

// SanitizeContent cleans user HTML to prevent XSS while keeping basic formatting.
// The result is an HTML fragment, only for output rendered as markup.
func SanitizeContent(input string) string {
	return strings.TrimSpace(contentPolicy.Sanitize(input))
}

// SanitizeTitle strips all markup and returns plain text. Entities are decoded so the
// stored value is what the user typed; templates escape it on output.
func SanitizeTitle(input string) string {
	return strings.TrimSpace(html.UnescapeString(titlePolicy.Sanitize(input)))
}
