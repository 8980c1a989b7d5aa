package orchestrator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePlan = `# Widget Catalog Plan

Ship a small widget listing endpoint.

## Phase 1: Build the service
Implement the widget listing endpoint.

## Phase 2: Add tests
Cover the happy path and the empty-catalog edge case.
`

func TestSplitPlan_SeparatesIntroAndPhases(t *testing.T) {
	intro, phases := splitPlan(samplePlan)
	assert.Contains(t, intro, "Widget Catalog Plan")
	require.Len(t, phases, 2)
	assert.Equal(t, 1, phases[0].number)
	assert.Equal(t, "Build the service", phases[0].title)
	assert.Contains(t, phases[0].body, "listing endpoint")
	assert.Equal(t, 2, phases[1].number)
	assert.Equal(t, "Add tests", phases[1].title)
}

func TestSplitPlan_NoHeadingsReturnsWholeTextAsIntro(t *testing.T) {
	intro, phases := splitPlan("Just some plain prose, no phase headings at all.")
	assert.Empty(t, phases)
	assert.Contains(t, intro, "plain prose")
}

func TestSlugify_LowercasesAndDashes(t *testing.T) {
	assert.Equal(t, "build-the-service", slugify("Build the Service!"))
}

func TestSlugify_EmptyFallsBackToPhase(t *testing.T) {
	assert.Equal(t, "phase", slugify("!!!"))
}

func TestPlanDirName_IncludesDateAndFeatureSlug(t *testing.T) {
	name := planDirName("Build a widget catalog service for the storefront")
	assert.True(t, strings.Contains(name, "build-a-widget-catalog"))
}

func TestRenderOverview_ListsPhasesWithLinks(t *testing.T) {
	_, phases := splitPlan(samplePlan)
	out := renderOverview("Ship a small widget listing endpoint.", phases)
	assert.Contains(t, out, "[Build the service](01-build-the-service.md)")
	assert.Contains(t, out, "[Add tests](02-add-tests.md)")
}
