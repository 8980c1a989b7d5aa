package decompose

import (
	"context"
	"fmt"

	"github.com/forgewright/planloom/internal/classify"
	"github.com/forgewright/planloom/internal/llm"
	"github.com/forgewright/planloom/internal/logging"
	"github.com/forgewright/planloom/internal/model"
)

// Decomposer runs the two-phase decomposition engine end to end, assigning
// REQ_NNN / REQ_NNN.M IDs and routing each subprocess through the
// Pre-Classifier cascade before expansion.
type Decomposer struct {
	client  *llm.Client
	cascade *classify.Cascade // may be nil; every subprocess then uses the generic schema
}

// NewDecomposer builds a Decomposer. cascade may be nil to skip
// classification (every subprocess expands with the generic schema).
func NewDecomposer(client *llm.Client, cascade *classify.Cascade) *Decomposer {
	return &Decomposer{client: client, cascade: cascade}
}

// Decompose runs Phase A then Phase B over researchText, returning a fully
// populated RequirementHierarchy.
func (d *Decomposer) Decompose(ctx context.Context, researchText string) (*model.RequirementHierarchy, error) {
	parents, err := ExtractParents(ctx, d.client, researchText)
	if err != nil {
		return nil, err
	}

	hierarchy := model.NewRequirementHierarchy()
	var tasks []SubprocessTask
	childIDsByTaskIndex := make([]string, 0)

	for pi, parent := range parents {
		parentID := fmt.Sprintf("REQ_%03d", pi+1)
		parentNode, err := model.NewRequirementNode(parentID, parent.Description, model.TypeParent, model.CategoryFunctional)
		if err != nil {
			return nil, err
		}
		parentNode.RelatedConcepts = parent.RelatedConcepts
		if err := hierarchy.AddRoot(parentNode); err != nil {
			return nil, err
		}

		for si, sub := range parent.SubProcesses {
			childID := fmt.Sprintf("%s.%d", parentID, si+1)
			routing, confident := d.route(ctx, sub)
			tasks = append(tasks, SubprocessTask{
				ParentDescription: parent.Description,
				SubprocessText:    sub,
				Context:           researchText,
				Routing:           routing,
				ConfidentRouting:  confident,
				ChildID:           childID,
			})
			childIDsByTaskIndex = append(childIDsByTaskIndex, parentID)
		}
	}

	results := ExpandSubprocesses(ctx, d.client, tasks)

	for i, result := range results {
		parentID := childIDsByTaskIndex[i]
		if result.Node == nil {
			logging.For(logging.ComponentDecompose).Warnw("subprocess produced no node, skipping",
				"child_id", result.Task.ChildID, "err", result.Err)
			continue
		}
		if err := hierarchy.AddChildByID(parentID, result.Node); err != nil {
			return nil, err
		}
	}

	return hierarchy, nil
}

// route classifies text through the cascade, if configured, returning a
// confident routing decision or ("", false) when no cascade is wired or the
// cascade itself failed (expansion then falls back to the generic schema).
func (d *Decomposer) route(ctx context.Context, text string) (model.RoutingDecision, bool) {
	if d.cascade == nil {
		return "", false
	}
	result, err := d.cascade.Classify(ctx, text)
	if err != nil {
		logging.For(logging.ComponentDecompose).Warnw("pre-classification failed, using generic schema", "err", err)
		return "", false
	}
	return result.RoutingDecision, true
}
