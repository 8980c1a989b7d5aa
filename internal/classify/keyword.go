package classify

import (
	"os"
	"regexp"
	"strings"

	"github.com/forgewright/planloom/internal/model"
	"gopkg.in/yaml.v3"
)

// KeywordDictionary maps a routing decision to the set of whole-word,
// case-insensitive keywords that trigger it. Loaded from YAML so operators
// can tune Tier 1 without recompiling (spec.md §9).
type KeywordDictionary map[model.RoutingDecision][]string

// DefaultKeywordDictionary mirrors the category vocabulary implied by
// spec.md §4.3/§11.2's routing table.
func DefaultKeywordDictionary() KeywordDictionary {
	return KeywordDictionary{
		model.RoutingMiddleware: {
			"queue", "message broker", "kafka", "rabbitmq", "event bus",
			"middleware", "pub/sub", "pubsub", "saga", "orchestration",
		},
		model.RoutingBackendOnly: {
			"database", "api", "endpoint", "server", "migration",
			"schema", "repository", "service", "cron", "batch job",
		},
		model.RoutingFrontendOnly: {
			"ui", "button", "screen", "page", "component",
			"css", "layout", "form", "modal", "render",
		},
	}
}

// routingPriority breaks ties when a text matches keywords from more than
// one category: middleware > backend > frontend (spec.md §4.3).
var routingPriority = []model.RoutingDecision{
	model.RoutingMiddleware,
	model.RoutingBackendOnly,
	model.RoutingFrontendOnly,
}

// KeywordMatcher is Tier 1 of the cascade: an O(1)-per-token scan against a
// configurable dictionary.
type KeywordMatcher struct {
	dict    KeywordDictionary
	pattern map[model.RoutingDecision]*regexp.Regexp
}

// NewKeywordMatcher compiles whole-word match patterns for each category in
// dict up front, so Match is a cheap regex scan per call.
func NewKeywordMatcher(dict KeywordDictionary) *KeywordMatcher {
	m := &KeywordMatcher{dict: dict, pattern: make(map[model.RoutingDecision]*regexp.Regexp, len(dict))}
	for routing, words := range dict {
		m.pattern[routing] = compileWholeWordAlternation(words)
	}
	return m
}

// LoadKeywordDictionary reads a YAML file of the KeywordDictionary shape. A
// missing file is not an error; the default dictionary is returned instead.
func LoadKeywordDictionary(path string) (KeywordDictionary, error) {
	if path == "" {
		return DefaultKeywordDictionary(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultKeywordDictionary(), nil
		}
		return nil, err
	}
	var dict KeywordDictionary
	if err := yaml.Unmarshal(data, &dict); err != nil {
		return nil, err
	}
	return dict, nil
}

func compileWholeWordAlternation(words []string) *regexp.Regexp {
	if len(words) == 0 {
		return regexp.MustCompile(`a^`) // never matches
	}
	escaped := make([]string, len(words))
	for i, w := range words {
		escaped[i] = regexp.QuoteMeta(strings.ToLower(w))
	}
	return regexp.MustCompile(`\b(` + strings.Join(escaped, "|") + `)\b`)
}

// Match scans text against every category's keyword set and applies the
// middleware > backend > frontend tie-break when more than one matches. ok
// is false when no keyword matches (the requirement passes through to Tier 2).
func (m *KeywordMatcher) Match(text string) (routing model.RoutingDecision, ok bool) {
	lower := strings.ToLower(text)
	matched := make(map[model.RoutingDecision]bool)
	for routing, pattern := range m.pattern {
		if pattern.MatchString(lower) {
			matched[routing] = true
		}
	}
	for _, candidate := range routingPriority {
		if matched[candidate] {
			return candidate, true
		}
	}
	return "", false
}
