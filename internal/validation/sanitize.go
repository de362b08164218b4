package validation

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy  = bluemonday.StrictPolicy()
	jsURI         = regexp.MustCompile(`(?i)javascript\s*:`)
	eventHandler  = regexp.MustCompile(`(?i)\bon[a-z]+\s*=`)
	leftoverTags  = regexp.MustCompile(`</?[A-Za-z][^>]*>`)
	repeatedSpace = regexp.MustCompile(`[ \t]+`)
)

// SanitizeText strips markup, script bodies, javascript: URIs and inline
// event handlers so the result is safe to persist and redisplay as text.
func SanitizeText(raw string) string {
	s := html.UnescapeString(raw)
	s = strictPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	s = leftoverTags.ReplaceAllString(s, "")
	s = jsURI.ReplaceAllString(s, "")
	s = eventHandler.ReplaceAllString(s, "")
	s = repeatedSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
