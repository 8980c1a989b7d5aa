package validate

import (
	"strings"

	"github.com/forgewright/planloom/internal/model"
)

// categoryRules lists the required-elements keyword set per category
// (spec.md §4.5 Stage 4). Functional and usability have no required rules.
// The rule set is small and fixed, so plain substring matching is used
// instead of reaching for an interpreter or rule engine — there's nothing
// here that benefits from one.
var categoryRules = map[model.Category][]string{
	model.CategorySecurity: {
		"threat model", "auth", "authz", "data classification",
	},
	model.CategoryPerformance: {
		"metric", "target", "load",
	},
	model.CategoryIntegration: {
		"interface contract", "error handling", "timeout",
	},
}

// CategoryValidator runs Stage 4 (spec.md §4.5): advisory, category-specific
// required-element checks. The orchestrator applies it inside the
// StructuralValidation step, so it runs before planning and checks the
// requirement hierarchy, not the plan. Never blocking.
type CategoryValidator struct{}

// NewCategoryValidator returns a CategoryValidator.
func NewCategoryValidator() *CategoryValidator {
	return &CategoryValidator{}
}

// Validate checks node.Implementation's combined text (and acceptance
// criteria) against the required elements for node.Category, returning a
// warning per missing element. Categories with no rule set always pass.
func (v *CategoryValidator) Validate(hierarchy *model.RequirementHierarchy) ([]model.ValidationIssue, model.ValidationSummary) {
	var issues []model.ValidationIssue
	validCount, invalidCount := 0, 0

	hierarchy.Walk(func(node, _ *model.RequirementNode) {
		required, ok := categoryRules[node.Category]
		if !ok {
			validCount++
			return
		}

		text := strings.ToLower(requirementText(node))
		missing := missingElements(text, required)
		if len(missing) == 0 {
			validCount++
			return
		}

		invalidCount++
		for _, m := range missing {
			issues = append(issues, warningIssue(model.StageCategory, node.ID,
				"missing required element for "+string(node.Category)+": "+m))
		}
	})

	return issues, model.NewValidationSummary(validCount, invalidCount)
}

func requirementText(node *model.RequirementNode) string {
	parts := []string{node.Description}
	parts = append(parts, node.AcceptanceCriteria...)
	if node.Implementation != nil {
		parts = append(parts, node.Implementation.Frontend...)
		parts = append(parts, node.Implementation.Backend...)
		parts = append(parts, node.Implementation.Middleware...)
		parts = append(parts, node.Implementation.Shared...)
	}
	if node.DesignContracts != nil {
		parts = append(parts, node.DesignContracts.Preconditions...)
		parts = append(parts, node.DesignContracts.Postconditions...)
		parts = append(parts, node.DesignContracts.Invariants...)
	}
	return strings.Join(parts, "\n")
}

func missingElements(lowerText string, required []string) []string {
	var missing []string
	for _, element := range required {
		if !strings.Contains(lowerText, element) {
			missing = append(missing, element)
		}
	}
	return missing
}
