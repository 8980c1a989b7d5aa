package validate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgewright/planloom/internal/model"
)

func mustNode(t *testing.T, id, description string, typ model.RequirementType) *model.RequirementNode {
	t.Helper()
	node, err := model.NewRequirementNode(id, description, typ, model.CategoryFunctional)
	require.NoError(t, err)
	return node
}

func TestStructuralValidator_ValidHierarchyHasNoIssues(t *testing.T) {
	hierarchy := model.NewRequirementHierarchy()
	parent := mustNode(t, "REQ_001", "Support bulk export", model.TypeParent)
	child := mustNode(t, "REQ_001.1", "Add export endpoint", model.TypeSubProcess)
	require.NoError(t, parent.AddChild(child))
	require.NoError(t, hierarchy.AddRoot(parent))

	v := NewStructuralValidator()
	issues, summary, err := v.Validate(context.Background(), hierarchy)
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, 2, summary.ValidCount)
	assert.Equal(t, 0, summary.InvalidCount)
	assert.Equal(t, 1.0, summary.ValidityRate)
}

func TestStructuralValidator_EmptyDescriptionIsBlocking(t *testing.T) {
	hierarchy := model.NewRequirementHierarchy()
	root := &model.RequirementNode{ID: "REQ_001", Description: "", Type: model.TypeParent, Category: model.CategoryFunctional}
	require.NoError(t, hierarchy.AddRoot(root))

	v := NewStructuralValidator()
	issues, summary, err := v.Validate(context.Background(), hierarchy)
	require.NoError(t, err)
	require.NotEmpty(t, issues)
	assert.Equal(t, model.SeverityBlocking, issues[0].Severity)
	assert.Equal(t, model.StageStructural, issues[0].Stage)
	assert.Equal(t, 0, summary.ValidCount)
	assert.Equal(t, 1, summary.InvalidCount)
}

func TestStructuralValidator_InvalidIDIsBlocking(t *testing.T) {
	hierarchy := model.NewRequirementHierarchy()
	root := &model.RequirementNode{ID: "not-an-id", Description: "something", Type: model.TypeParent, Category: model.CategoryFunctional}
	require.NoError(t, hierarchy.AddRoot(root))

	v := NewStructuralValidator()
	issues, _, err := v.Validate(context.Background(), hierarchy)
	require.NoError(t, err)
	require.NotEmpty(t, issues)
	found := false
	for _, issue := range issues {
		if issue.Message == `invalid requirement id "not-an-id"` {
			found = true
		}
	}
	assert.True(t, found, "expected an invalid-id issue, got %+v", issues)
}

func TestStructuralValidator_InvalidTypeIsBlocking(t *testing.T) {
	hierarchy := model.NewRequirementHierarchy()
	root := &model.RequirementNode{ID: "REQ_001", Description: "something", Type: "bogus", Category: model.CategoryFunctional}
	require.NoError(t, hierarchy.AddRoot(root))

	v := NewStructuralValidator()
	issues, _, err := v.Validate(context.Background(), hierarchy)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "invalid type")
}

func TestStructuralValidator_InvalidCategoryIsBlocking(t *testing.T) {
	hierarchy := model.NewRequirementHierarchy()
	root := &model.RequirementNode{ID: "REQ_001", Description: "something", Type: model.TypeParent, Category: "bogus"}
	require.NoError(t, hierarchy.AddRoot(root))

	v := NewStructuralValidator()
	issues, _, err := v.Validate(context.Background(), hierarchy)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "invalid category")
}

func TestStructuralValidator_DuplicateIDIsBlocking(t *testing.T) {
	hierarchy := model.NewRequirementHierarchy()
	root := mustNode(t, "REQ_001", "first", model.TypeParent)
	dup := &model.RequirementNode{ID: "REQ_001", Description: "second", Type: model.TypeParent, Category: model.CategoryFunctional}
	hierarchy.Roots = append(hierarchy.Roots, root, dup)

	v := NewStructuralValidator()
	issues, summary, err := v.Validate(context.Background(), hierarchy)
	require.NoError(t, err)
	found := false
	for _, issue := range issues {
		if issue.Message == `duplicate requirement id "REQ_001"` {
			found = true
		}
	}
	assert.True(t, found, "expected a duplicate-id issue, got %+v", issues)
	assert.Equal(t, 1, summary.InvalidCount)
}

func TestStructuralValidator_UnresolvableParentIDIsBlocking(t *testing.T) {
	hierarchy := model.NewRequirementHierarchy()
	root := mustNode(t, "REQ_001", "first", model.TypeParent)
	stray := &model.RequirementNode{ID: "REQ_001.1", Description: "orphaned", Type: model.TypeSubProcess, Category: model.CategoryFunctional, ParentID: "REQ_999"}
	root.Children = append(root.Children, stray)
	require.NoError(t, hierarchy.AddRoot(root))

	v := NewStructuralValidator()
	issues, _, err := v.Validate(context.Background(), hierarchy)
	require.NoError(t, err)
	found := false
	for _, issue := range issues {
		if issue.Message == `parent_id "REQ_999" does not resolve to any node` {
			found = true
		}
	}
	assert.True(t, found, "expected an unresolvable parent_id issue, got %+v", issues)
}

func TestStructuralValidator_MismatchedParentIDIsBlocking(t *testing.T) {
	hierarchy := model.NewRequirementHierarchy()
	root := mustNode(t, "REQ_001", "first", model.TypeParent)
	other := mustNode(t, "REQ_002", "second", model.TypeParent)
	// Attach under root via the struct directly but stamp a parent_id that
	// points somewhere else, simulating a hand-edited checkpoint.
	mismatched := &model.RequirementNode{ID: "REQ_001.1", Description: "mismatched", Type: model.TypeSubProcess, Category: model.CategoryFunctional, ParentID: "REQ_002"}
	root.Children = append(root.Children, mismatched)
	require.NoError(t, hierarchy.AddRoot(root))
	require.NoError(t, hierarchy.AddRoot(other))

	v := NewStructuralValidator()
	issues, _, err := v.Validate(context.Background(), hierarchy)
	require.NoError(t, err)
	found := false
	for _, issue := range issues {
		if issue.Message == `parent_id "REQ_002" does not match owning parent "REQ_001"` {
			found = true
		}
	}
	assert.True(t, found, "expected a parent_id mismatch issue, got %+v", issues)
}

func TestStructuralValidator_DepthExceedingMaxIsBlocking(t *testing.T) {
	hierarchy := model.NewRequirementHierarchy()
	root := mustNode(t, "REQ_001", "first", model.TypeParent)
	sub := mustNode(t, "REQ_001.1", "second", model.TypeSubProcess)
	require.NoError(t, root.AddChild(sub))
	impl := mustNode(t, "REQ_001.1.1", "third", model.TypeImplementation)
	require.NoError(t, sub.AddChild(impl))
	// Attach a fourth, illegally deep level directly via the struct, bypassing
	// RequirementNode.AddChild's own MaxDepth guard, to exercise the
	// defensive re-check over hand-edited data.
	tooDeep := &model.RequirementNode{ID: "REQ_001.1.1.1", Description: "fourth", Type: model.TypeImplementation, Category: model.CategoryFunctional, ParentID: impl.ID}
	impl.Children = append(impl.Children, tooDeep)
	require.NoError(t, hierarchy.AddRoot(root))

	v := NewStructuralValidator()
	issues, _, err := v.Validate(context.Background(), hierarchy)
	require.NoError(t, err)
	found := false
	for _, issue := range issues {
		if issue.RequirementID == "REQ_001.1.1.1" && issue.Message == "depth 4 exceeds maximum of 3" {
			found = true
		}
	}
	assert.True(t, found, "expected a depth-exceeded issue, got %+v", issues)
}

// Cycle detection itself (the Datalog reaches/cycle query) is exercised
// directly in internal/datalog's engine tests.
