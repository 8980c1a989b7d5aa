// Package validate implements the three-stage Validation Layer (spec.md
// §4.5): blocking structural checks over the requirement graph, advisory
// semantic checks via the LLM, and advisory per-category rule checks.
package validate

import (
	"context"
	"fmt"

	"github.com/forgewright/planloom/internal/datalog"
	"github.com/forgewright/planloom/internal/model"
)

// structuralSchema declares the parent/child edge graph and the one
// predicate that genuinely benefits from recursive derivation: cycle(X),
// a node reachable from itself via parent_id edges. Orphan, duplicate-ID,
// and depth checks are local (single-node) properties that plain Go
// already computes cheaply — Datalog earns its keep here specifically for
// transitive-closure reachability, not as a blanket rule engine.
const structuralSchema = `
Decl edge(Parent, Child) descr [mode("-", "-")].
Decl reaches(X, Y) descr [mode("-", "-")].
Decl cycle(X) descr [mode("-")].

reaches(X, Y) :- edge(X, Y).
reaches(X, Z) :- edge(X, Y), reaches(Y, Z).
cycle(X) :- reaches(X, X).
`

// StructuralValidator runs Stage 1-2 (spec.md §4.5) over a RequirementHierarchy:
// plain Go for the per-node invariants (non-empty ID/description, valid
// type/category, unique IDs, resolvable parent_id, depth <= MaxDepth) and a
// Datalog engine for the one invariant that is genuinely a graph-reachability
// question (no cycles among parent_id edges).
type StructuralValidator struct{}

// NewStructuralValidator returns a StructuralValidator. It holds no state; a
// fresh Datalog engine is built per Validate call so concurrent validations
// never share a fact store.
func NewStructuralValidator() *StructuralValidator {
	return &StructuralValidator{}
}

// Validate runs every structural invariant from spec.md §4.5 and returns the
// issues found, plus a summary over every node visited. Stage 1-2 is the
// only validation kind that blocks the pipeline (spec.md §7); every issue
// returned here carries SeverityBlocking.
func (v *StructuralValidator) Validate(ctx context.Context, hierarchy *model.RequirementHierarchy) ([]model.ValidationIssue, model.ValidationSummary, error) {
	var issues []model.ValidationIssue
	seenIDs := make(map[string]bool)
	declaredIDs := make(map[string]bool)
	totalNodeCount := 0

	hierarchy.Walk(func(node, _ *model.RequirementNode) {
		declaredIDs[node.ID] = true
	})

	var edgeFacts []datalog.Fact
	invalidIDs := make(map[string]bool)

	walkWithDepth(hierarchy, func(node *model.RequirementNode, parentID string, depth int) {
		totalNodeCount++

		nodeIssues := checkNodeInvariants(node, parentID, depth)
		if len(nodeIssues) > 0 {
			issues = append(issues, nodeIssues...)
			invalidIDs[node.ID] = true
		}

		if seenIDs[node.ID] {
			issues = append(issues, blockingIssue(node.ID, fmt.Sprintf("duplicate requirement id %q", node.ID)))
			invalidIDs[node.ID] = true
		}
		seenIDs[node.ID] = true

		if node.ParentID != "" {
			if !declaredIDs[node.ParentID] {
				issues = append(issues, blockingIssue(node.ID, fmt.Sprintf("parent_id %q does not resolve to any node", node.ParentID)))
				invalidIDs[node.ID] = true
			} else {
				edgeFacts = append(edgeFacts, datalog.Fact{Predicate: "edge", Args: []interface{}{node.ParentID, node.ID}})
			}
		}
	})

	engine := datalog.NewEngine(datalog.DefaultConfig())
	if err := engine.LoadSchemaString(structuralSchema); err != nil {
		return nil, model.ValidationSummary{}, fmt.Errorf("validate: load structural schema: %w", err)
	}
	if err := engine.AddFacts(edgeFacts); err != nil {
		return nil, model.ValidationSummary{}, fmt.Errorf("validate: assert graph facts: %w", err)
	}

	cycleRows, err := engine.Query(ctx, "cycle(X)")
	if err != nil {
		return nil, model.ValidationSummary{}, fmt.Errorf("validate: query cycles: %w", err)
	}
	for _, row := range cycleRows {
		id, _ := row["X"].(string)
		issues = append(issues, blockingIssue(id, fmt.Sprintf("requirement %q participates in a parent_id cycle", id)))
		invalidIDs[id] = true
	}

	invalidNodeCount := len(invalidIDs)
	validNodeCount := totalNodeCount - invalidNodeCount
	summary := model.NewValidationSummary(validNodeCount, invalidNodeCount)
	return issues, summary, nil
}

// walkWithDepth performs a depth-first, pre-order traversal carrying each
// node's actual root-to-node distance (1 for a root) and its parent's ID,
// independent of model.RequirementNode.Type — so a hierarchy loaded from a
// tampered or hand-edited checkpoint is checked against its real structure,
// not just the depth its Type label claims.
func walkWithDepth(h *model.RequirementHierarchy, fn func(node *model.RequirementNode, parentID string, depth int)) {
	for _, root := range h.Roots {
		walkWithDepthRec(root, "", 1, fn)
	}
}

func walkWithDepthRec(node *model.RequirementNode, parentID string, depth int, fn func(node *model.RequirementNode, parentID string, depth int)) {
	fn(node, parentID, depth)
	for _, child := range node.Children {
		walkWithDepthRec(child, node.ID, depth+1, fn)
	}
}

func checkNodeInvariants(node *model.RequirementNode, parentID string, depth int) []model.ValidationIssue {
	var issues []model.ValidationIssue

	if node.ID == "" || !model.ValidID(node.ID) {
		issues = append(issues, blockingIssue(node.ID, fmt.Sprintf("invalid requirement id %q", node.ID)))
	}
	if node.Description == "" {
		issues = append(issues, blockingIssue(node.ID, "description must not be empty"))
	}
	if !validType(node.Type) {
		issues = append(issues, blockingIssue(node.ID, fmt.Sprintf("invalid type %q", node.Type)))
	}
	if !validCategory(node.Category) {
		issues = append(issues, blockingIssue(node.ID, fmt.Sprintf("invalid category %q", node.Category)))
	}
	if node.ParentID != parentID {
		issues = append(issues, blockingIssue(node.ID, fmt.Sprintf("parent_id %q does not match owning parent %q", node.ParentID, parentID)))
	}
	if depth > model.MaxDepth {
		issues = append(issues, blockingIssue(node.ID, fmt.Sprintf("depth %d exceeds maximum of %d", depth, model.MaxDepth)))
	}

	return issues
}

func validType(t model.RequirementType) bool {
	switch t {
	case model.TypeParent, model.TypeSubProcess, model.TypeImplementation:
		return true
	}
	return false
}

func validCategory(c model.Category) bool {
	switch c {
	case model.CategoryFunctional, model.CategoryNonFunctional, model.CategorySecurity,
		model.CategoryPerformance, model.CategoryUsability, model.CategoryIntegration:
		return true
	}
	return false
}

func blockingIssue(requirementID, message string) model.ValidationIssue {
	return model.ValidationIssue{
		Stage:         model.StageStructural,
		Severity:      model.SeverityBlocking,
		RequirementID: requirementID,
		Message:       message,
	}
}
