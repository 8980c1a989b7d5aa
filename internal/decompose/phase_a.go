package decompose

import (
	"context"
	"fmt"

	"github.com/forgewright/planloom/internal/llm"
	"github.com/forgewright/planloom/internal/perr"
)

// phaseASchema requests a list of parent requirements from the full
// research text (spec.md §4.4 Phase A).
var phaseASchema = llm.Schema{
	Name: "initial_extraction",
	OutputDescription: `{
  "parents": [
    {
      "description": "string",
      "sub_processes": ["string"],
      "related_concepts": ["string"]
    }
  ]
}`,
	Timeout: 180,
}

const phaseAPromptTemplate = `Read the following research text and extract the top-level parent
requirements it implies. For each parent, list its sub-processes (discrete
units of work needed to satisfy it) and any related concepts worth carrying
into later expansion.

Research text:
%s`

// ParentExtraction is one entry of Phase A's response, before IDs are
// assigned.
type ParentExtraction struct {
	Description      string   `json:"description"`
	SubProcesses     []string `json:"sub_processes"`
	RelatedConcepts  []string `json:"related_concepts"`
}

type phaseAResponse struct {
	Parents []ParentExtraction `json:"parents"`
}

// ExtractParents runs Phase A: one LLM call over the entire research text,
// returning parent requirements in list order (callers assign REQ_NNN IDs
// in that order, per spec.md §4.4).
func ExtractParents(ctx context.Context, client *llm.Client, researchText string) ([]ParentExtraction, error) {
	if researchText == "" {
		return nil, perr.NewInputError(perr.InputEmptyContent, nil)
	}

	var resp phaseAResponse
	prompt := fmt.Sprintf(phaseAPromptTemplate, researchText)
	if err := client.Call(ctx, phaseASchema, prompt, "", &resp); err != nil {
		return nil, err
	}
	return resp.Parents, nil
}
