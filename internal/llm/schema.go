package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Schema names one of the declared response shapes a Call can target.
// Concrete schema names are the stable identifiers other components pass to
// Client.Call; the outputDescription is appended to the rendered prompt so
// the model knows the expected shape.
type Schema struct {
	Name              string
	OutputDescription string
	// Timeout overrides the client default for this schema (spec.md §4.2:
	// "Timeout default 300s per call; configurable per schema").
	Timeout int // seconds, 0 = use client default
}

var codeFencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")

// StripCodeFences removes a single leading/trailing Markdown code fence
// around text, if present, returning the inner content unchanged otherwise.
func StripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if m := codeFencePattern.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	return trimmed
}

// ParseInto strips common wrappers from raw and unmarshals into out
// (a pointer). Used by Client.Call for the "parse into declared schema"
// step of spec.md §4.2.
func ParseInto(raw string, out interface{}) error {
	cleaned := StripCodeFences(raw)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("llm: parse into schema: %w", err)
	}
	return nil
}

// BuildPrompt renders a template (simple string, caller pre-fills inputs)
// with the schema's output format description appended, per spec.md §4.2
// step 1.
func BuildPrompt(template string, schema Schema) string {
	var sb strings.Builder
	sb.WriteString(template)
	if schema.OutputDescription != "" {
		sb.WriteString("\n\nRespond with JSON matching this shape:\n")
		sb.WriteString(schema.OutputDescription)
	}
	return sb.String()
}
