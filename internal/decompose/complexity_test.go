package decompose

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/forgewright/planloom/internal/model"
)

func TestAssessComplexity_CrossCuttingKeywordForcesComplex(t *testing.T) {
	got := AssessComplexity("add caching to the lookup path", nil)
	assert.Equal(t, ComplexityComplex, got)
}

func TestAssessComplexity_LayerCounts(t *testing.T) {
	cases := []struct {
		name   string
		layers []string
		want   Complexity
	}{
		{"no layers", nil, ComplexitySimple},
		{"one layer", []string{"backend"}, ComplexitySimple},
		{"two layers", []string{"backend", "frontend"}, ComplexityMedium},
		{"three layers", []string{"backend", "frontend", "middleware"}, ComplexityComplex},
		{"duplicate layers collapse", []string{"backend", "backend"}, ComplexitySimple},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AssessComplexity("plain subprocess text", tc.layers)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCriteriaRange(t *testing.T) {
	min, max := criteriaRange(ComplexitySimple)
	assert.Equal(t, 2, min)
	assert.Equal(t, 3, max)

	min, max = criteriaRange(ComplexityMedium)
	assert.Equal(t, 4, min)
	assert.Equal(t, 6, max)

	min, max = criteriaRange(ComplexityComplex)
	assert.Equal(t, 8, min)
	assert.Equal(t, 12, max)
}

func TestTruncateContext_RespectsBudget(t *testing.T) {
	long := strings.Repeat("x", 5000)
	truncated := truncateContext(long, ComplexitySimple)
	assert.Len(t, truncated, 2000)

	short := "short context"
	assert.Equal(t, short, truncateContext(short, ComplexityComplex))
}

func TestSchemaForRouting(t *testing.T) {
	assert.Equal(t, "expansion_generic", schemaForRouting(model.RoutingBackendOnly, false))
	assert.Equal(t, "expansion_backend_only", schemaForRouting(model.RoutingBackendOnly, true))
	assert.Equal(t, "expansion_frontend_only", schemaForRouting(model.RoutingFrontendOnly, true))
	assert.Equal(t, "expansion_middleware", schemaForRouting(model.RoutingMiddleware, true))
	assert.Equal(t, "expansion_generic", schemaForRouting(model.RoutingFullStack, true))
}
