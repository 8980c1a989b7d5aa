package validate

import (
	"context"
	"fmt"

	"github.com/forgewright/planloom/internal/llm"
	"github.com/forgewright/planloom/internal/model"
)

// semanticSchema requests an LLM judgment of one requirement's quality
// against the rest of the hierarchy (spec.md §4.5 Stage 3).
var semanticSchema = llm.Schema{
	Name: "semantic_validation",
	OutputDescription: `{
  "is_valid": true,
  "issues": ["string"],
  "suggestions": ["string"],
  "completeness_score": 0.0,
  "scope_alignment_score": 0.0,
  "confidence": 0.0
}`,
	Timeout: 60,
}

const semanticPromptTemplate = `Requirement %s: %s

Acceptance criteria:
%s

Judge this requirement's completeness (does it fully capture what's needed?)
and scope alignment (does it stay within its stated concern, without
drifting into unrelated work?). Score both 0.0-1.0.`

type semanticResponse struct {
	IsValid             bool     `json:"is_valid"`
	Issues              []string `json:"issues"`
	Suggestions         []string `json:"suggestions"`
	CompletenessScore   float64  `json:"completeness_score"`
	ScopeAlignmentScore float64  `json:"scope_alignment_score"`
	Confidence          float64  `json:"confidence"`
}

const (
	completenessFloor   = 0.6
	scopeAlignmentFloor = 0.5
)

// SemanticValidator runs Stage 3 (spec.md §4.5): advisory, LLM-judged
// completeness and scope-alignment checks. Never blocking.
type SemanticValidator struct {
	client *llm.Client
}

// NewSemanticValidator builds a SemanticValidator.
func NewSemanticValidator(client *llm.Client) *SemanticValidator {
	return &SemanticValidator{client: client}
}

// Validate walks every node in hierarchy, calling the LLM once per node, and
// returns an advisory ValidationIssue for any node scoring below the
// completeness or scope-alignment floor.
func (v *SemanticValidator) Validate(ctx context.Context, hierarchy *model.RequirementHierarchy) ([]model.ValidationIssue, model.ValidationSummary, error) {
	var issues []model.ValidationIssue
	validCount, invalidCount := 0, 0

	var walkErr error
	hierarchy.Walk(func(node, _ *model.RequirementNode) {
		if walkErr != nil {
			return
		}
		nodeIssues, ok, err := v.validateNode(ctx, node)
		if err != nil {
			walkErr = err
			return
		}
		issues = append(issues, nodeIssues...)
		if ok {
			validCount++
		} else {
			invalidCount++
		}
	})
	if walkErr != nil {
		return nil, model.ValidationSummary{}, walkErr
	}

	return issues, model.NewValidationSummary(validCount, invalidCount), nil
}

func (v *SemanticValidator) validateNode(ctx context.Context, node *model.RequirementNode) ([]model.ValidationIssue, bool, error) {
	var resp semanticResponse
	prompt := fmt.Sprintf(semanticPromptTemplate, node.ID, node.Description, formatCriteria(node.AcceptanceCriteria))
	if err := v.client.Call(ctx, semanticSchema, prompt, "", &resp); err != nil {
		return nil, false, err
	}

	var issues []model.ValidationIssue
	ok := true

	if resp.CompletenessScore < completenessFloor {
		ok = false
		issues = append(issues, warningIssue(model.StageSemantic, node.ID,
			fmt.Sprintf("completeness score %.2f below floor %.2f", resp.CompletenessScore, completenessFloor)))
	}
	if resp.ScopeAlignmentScore < scopeAlignmentFloor {
		ok = false
		issues = append(issues, warningIssue(model.StageSemantic, node.ID,
			fmt.Sprintf("scope alignment score %.2f below floor %.2f", resp.ScopeAlignmentScore, scopeAlignmentFloor)))
	}
	for _, issue := range resp.Issues {
		issues = append(issues, warningIssue(model.StageSemantic, node.ID, issue))
	}

	return issues, ok, nil
}

func formatCriteria(criteria []string) string {
	if len(criteria) == 0 {
		return "(none)"
	}
	out := ""
	for _, c := range criteria {
		out += "- " + c + "\n"
	}
	return out
}

func warningIssue(stage model.ValidationStage, requirementID, message string) model.ValidationIssue {
	return model.ValidationIssue{
		Stage:         stage,
		Severity:      model.SeverityWarning,
		RequirementID: requirementID,
		Message:       message,
	}
}
