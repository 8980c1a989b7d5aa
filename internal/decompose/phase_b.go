package decompose

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/forgewright/planloom/internal/llm"
	"github.com/forgewright/planloom/internal/logging"
	"github.com/forgewright/planloom/internal/model"
)

// maxConcurrentExpansions bounds how many Phase B subprocess expansion
// calls run at once (SPEC_FULL.md §11.3: "bounded by a fixed concurrency
// limit, mirroring the corpus's habit of bounding concurrent LLM work").
const maxConcurrentExpansions = 4

var genericExpansionSchema = llm.Schema{
	Name: "expansion_generic",
	OutputDescription: `{
  "acceptance_criteria": ["string"],
  "implementation": {"frontend": ["string"], "backend": ["string"], "middleware": ["string"], "shared": ["string"]},
  "design_contracts": {"preconditions": ["string"], "postconditions": ["string"], "invariants": ["string"]}
}`,
	Timeout: 120,
}

type expansionResponse struct {
	AcceptanceCriteria []string `json:"acceptance_criteria"`
	Implementation     struct {
		Frontend   []string `json:"frontend"`
		Backend    []string `json:"backend"`
		Middleware []string `json:"middleware"`
		Shared     []string `json:"shared"`
	} `json:"implementation"`
	DesignContracts *struct {
		Preconditions  []string `json:"preconditions"`
		Postconditions []string `json:"postconditions"`
		Invariants     []string `json:"invariants"`
	} `json:"design_contracts"`
}

const expansionPromptTemplate = `Parent requirement: %s

Sub-process to expand: %s

Context (may be truncated):
%s

Produce %d-%d acceptance criteria and the concrete implementation components
this sub-process touches, split across frontend/backend/middleware/shared.
Include design contracts (preconditions/postconditions/invariants) when they
apply.`

// SubprocessTask is one unit of Phase B work: a parent's subprocess text
// plus the routing/context needed to expand it.
type SubprocessTask struct {
	ParentDescription string
	SubprocessText    string
	Context           string
	Routing           model.RoutingDecision
	ConfidentRouting  bool
	ChildID           string // pre-assigned "{parent}.{n}" ID
}

// ExpandResult pairs a task with its expansion outcome. Err is non-nil when
// the LLM call failed after the client's own retries, or when the child node
// could not be built. After a failed LLM call Node is still returned, already
// marked ExpansionFailed; Node is nil only when the node itself could not be
// built.
type ExpandResult struct {
	Task   SubprocessTask
	Node   *model.RequirementNode
	Err    error
}

// ExpandSubprocesses runs every task concurrently (bounded by
// maxConcurrentExpansions). Each result is written to its own input-ordered
// slot, so output ordering stays deterministic despite the concurrent fan
// -out (SPEC_FULL.md §11.3).
func ExpandSubprocesses(ctx context.Context, client *llm.Client, tasks []SubprocessTask) []ExpandResult {
	if len(tasks) == 0 {
		return nil
	}

	results := make([]ExpandResult, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentExpansions)

	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			node, err := expandOne(gctx, client, task)
			results[i] = ExpandResult{Task: task, Node: node, Err: err}
			return nil // individual failures never abort the group; partial progress is retained
		})
	}
	_ = g.Wait()

	return results
}

func expandOne(ctx context.Context, client *llm.Client, task SubprocessTask) (*model.RequirementNode, error) {
	complexity := AssessComplexity(task.SubprocessText, nil)
	truncated := truncateContext(task.Context, complexity)
	min, max := criteriaRange(complexity)

	schema := genericExpansionSchema
	schema.Name = schemaForRouting(task.Routing, task.ConfidentRouting)

	var resp expansionResponse
	prompt := fmt.Sprintf(expansionPromptTemplate, task.ParentDescription, task.SubprocessText, truncated, min, max)

	if err := client.Call(ctx, schema, prompt, "", &resp); err != nil {
		logging.For(logging.ComponentDecompose).Warnw("subprocess expansion failed",
			"child_id", task.ChildID, "err", err)
		node, buildErr := model.NewRequirementNode(task.ChildID, task.SubprocessText, model.TypeSubProcess, model.CategoryFunctional)
		if buildErr != nil {
			return nil, buildErr
		}
		node.ExpansionFailed = true
		return node, err
	}

	node, err := model.NewRequirementNode(task.ChildID, task.SubprocessText, model.TypeSubProcess, model.CategoryFunctional)
	if err != nil {
		return nil, err
	}
	node.AcceptanceCriteria = resp.AcceptanceCriteria
	node.Implementation = &model.ImplementationComponents{
		Frontend:   resp.Implementation.Frontend,
		Backend:    resp.Implementation.Backend,
		Middleware: resp.Implementation.Middleware,
		Shared:     resp.Implementation.Shared,
	}
	if resp.DesignContracts != nil {
		node.DesignContracts = &model.DesignContracts{
			Preconditions:  resp.DesignContracts.Preconditions,
			Postconditions: resp.DesignContracts.Postconditions,
			Invariants:     resp.DesignContracts.Invariants,
		}
	}
	return node, nil
}
