// Package decompose implements the two-phase Requirement Decomposition
// Engine (C4): an initial LLM extraction pass over the full research text,
// followed by a per-subprocess expansion pass with adaptive (ADaPT)
// granularity.
package decompose

import (
	"strings"

	"github.com/forgewright/planloom/internal/model"
)

// Complexity is the ADaPT granularity tier assessed for a subprocess before
// expansion (spec.md §4.4).
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// crossCuttingKeywords are concerns that push a subprocess toward Complex
// regardless of how many layers it touches (spec.md §4.4).
var crossCuttingKeywords = []string{
	"auth", "logging", "caching", "transaction", "security",
}

// contextCharBudget returns the context-truncation budget in characters for
// a given complexity tier (spec.md §4.4: 2k/4k/8k for simple/medium/complex).
func contextCharBudget(c Complexity) int {
	switch c {
	case ComplexitySimple:
		return 2000
	case ComplexityMedium:
		return 4000
	case ComplexityComplex:
		return 8000
	}
	return 4000
}

// criteriaRange returns the [min, max] acceptance-criteria count a schema
// should request for this complexity tier.
func criteriaRange(c Complexity) (min, max int) {
	switch c {
	case ComplexitySimple:
		return 2, 3
	case ComplexityMedium:
		return 4, 6
	case ComplexityComplex:
		return 8, 12
	}
	return 4, 6
}

// AssessComplexity counts the distinct layers named in affectedLayers and
// scans subprocessText for cross-cutting keywords, deriving the ADaPT tier:
// any cross-cutting keyword or more than two affected layers forces Complex;
// two layers is Medium; otherwise Simple.
func AssessComplexity(subprocessText string, affectedLayers []string) Complexity {
	lower := strings.ToLower(subprocessText)
	for _, kw := range crossCuttingKeywords {
		if strings.Contains(lower, kw) {
			return ComplexityComplex
		}
	}

	distinct := make(map[string]bool, len(affectedLayers))
	for _, l := range affectedLayers {
		distinct[l] = true
	}

	switch {
	case len(distinct) > 2:
		return ComplexityComplex
	case len(distinct) == 2:
		return ComplexityMedium
	default:
		return ComplexitySimple
	}
}

// truncateContext bounds context to the character budget implied by
// complexity, cutting at a rune boundary.
func truncateContext(context string, complexity Complexity) string {
	budget := contextCharBudget(complexity)
	runes := []rune(context)
	if len(runes) <= budget {
		return context
	}
	return string(runes[:budget])
}

// schemaForRouting selects a category-specific schema name when the
// Pre-Classifier returned a confident routing, else the generic schema
// (spec.md §4.4).
func schemaForRouting(routing model.RoutingDecision, confidentRouting bool) string {
	if !confidentRouting {
		return "expansion_generic"
	}
	switch routing {
	case model.RoutingBackendOnly:
		return "expansion_backend_only"
	case model.RoutingFrontendOnly:
		return "expansion_frontend_only"
	case model.RoutingMiddleware:
		return "expansion_middleware"
	default:
		return "expansion_generic"
	}
}
