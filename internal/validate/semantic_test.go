package validate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgewright/planloom/internal/llm"
	"github.com/forgewright/planloom/internal/model"
)

// fakeBackend is a call-order indexed llm.Backend test double, safe here
// because SemanticValidator.Validate visits nodes sequentially (single
// hierarchy.Walk, no fan-out).
type fakeBackend struct {
	name      llm.BackendName
	responses []string
	errs      []error
	calls     int
}

func (f *fakeBackend) Name() llm.BackendName { return f.name }

func (f *fakeBackend) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("fakeBackend: exhausted scripted responses")
}

func buildTwoNodeHierarchy(t *testing.T) *model.RequirementHierarchy {
	t.Helper()
	hierarchy := model.NewRequirementHierarchy()
	root := mustNode(t, "REQ_001", "Support bulk order export", model.TypeParent)
	child := mustNode(t, "REQ_001.1", "Add export endpoint", model.TypeSubProcess)
	child.AcceptanceCriteria = []string{"Returns CSV", "Streams rows"}
	require.NoError(t, root.AddChild(child))
	require.NoError(t, hierarchy.AddRoot(root))
	return hierarchy
}

func TestSemanticValidator_AboveFloorsProducesNoIssues(t *testing.T) {
	response := `{"is_valid": true, "issues": [], "suggestions": [], "completeness_score": 0.9, "scope_alignment_score": 0.9, "confidence": 0.9}`
	backend := &fakeBackend{name: llm.BackendOpus, responses: []string{response, response}}
	client := llm.NewClient(backend, nil)
	v := NewSemanticValidator(client)

	issues, summary, err := v.Validate(context.Background(), buildTwoNodeHierarchy(t))
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, 2, summary.ValidCount)
	assert.Equal(t, 0, summary.InvalidCount)
}

func TestSemanticValidator_BelowCompletenessFloorIsWarning(t *testing.T) {
	low := `{"is_valid": false, "issues": [], "suggestions": [], "completeness_score": 0.2, "scope_alignment_score": 0.9, "confidence": 0.9}`
	high := `{"is_valid": true, "issues": [], "suggestions": [], "completeness_score": 0.9, "scope_alignment_score": 0.9, "confidence": 0.9}`
	backend := &fakeBackend{name: llm.BackendOpus, responses: []string{low, high}}
	client := llm.NewClient(backend, nil)
	v := NewSemanticValidator(client)

	issues, summary, err := v.Validate(context.Background(), buildTwoNodeHierarchy(t))
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, model.SeverityWarning, issues[0].Severity)
	assert.Equal(t, model.StageSemantic, issues[0].Stage)
	assert.Contains(t, issues[0].Message, "completeness score")
	assert.Equal(t, 1, summary.ValidCount)
	assert.Equal(t, 1, summary.InvalidCount)
}

func TestSemanticValidator_BelowScopeAlignmentFloorIsWarning(t *testing.T) {
	low := `{"is_valid": false, "issues": [], "suggestions": [], "completeness_score": 0.9, "scope_alignment_score": 0.1, "confidence": 0.9}`
	high := `{"is_valid": true, "issues": [], "suggestions": [], "completeness_score": 0.9, "scope_alignment_score": 0.9, "confidence": 0.9}`
	backend := &fakeBackend{name: llm.BackendOpus, responses: []string{low, high}}
	client := llm.NewClient(backend, nil)
	v := NewSemanticValidator(client)

	issues, _, err := v.Validate(context.Background(), buildTwoNodeHierarchy(t))
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "scope alignment score")
}

func TestSemanticValidator_PropagatesLLMIssuesAsWarnings(t *testing.T) {
	response := `{"is_valid": true, "issues": ["acceptance criteria too vague"], "suggestions": [], "completeness_score": 0.9, "scope_alignment_score": 0.9, "confidence": 0.9}`
	backend := &fakeBackend{name: llm.BackendOpus, responses: []string{response, response}}
	client := llm.NewClient(backend, nil)
	v := NewSemanticValidator(client)

	issues, _, err := v.Validate(context.Background(), buildTwoNodeHierarchy(t))
	require.NoError(t, err)
	require.Len(t, issues, 2)
	messages := []string{issues[0].Message, issues[1].Message}
	assert.Contains(t, messages, "acceptance criteria too vague")
}

func TestSemanticValidator_TransportErrorAbortsValidation(t *testing.T) {
	transportErr := errors.New("connection refused")
	backend := &fakeBackend{name: llm.BackendOpus, errs: []error{transportErr, transportErr, transportErr, transportErr}}
	client := llm.NewClient(backend, nil)
	v := NewSemanticValidator(client)

	_, _, err := v.Validate(context.Background(), buildTwoNodeHierarchy(t))
	require.Error(t, err)
	var llmErr *llm.Error
	assert.ErrorAs(t, err, &llmErr)
}

func TestFormatCriteria_EmptyReturnsPlaceholder(t *testing.T) {
	assert.Equal(t, "(none)", formatCriteria(nil))
}

func TestFormatCriteria_JoinsWithBullets(t *testing.T) {
	out := formatCriteria([]string{"a", "b"})
	assert.Equal(t, "- a\n- b\n", out)
}
