package contextgen

import (
	"regexp"
	"strings"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// SanitizeProjectName lowercases name, replaces runs of non-alphanumeric
// characters with a single dash, strips leading/trailing dashes, and falls
// back to "unnamed-project" if nothing survives (spec.md §4.6).
func SanitizeProjectName(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	replaced := nonAlphanumeric.ReplaceAllString(lowered, "-")
	trimmed := strings.Trim(replaced, "-")
	if trimmed == "" {
		return "unnamed-project"
	}
	return trimmed
}
