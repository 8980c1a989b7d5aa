package classify

import (
	"context"
	"fmt"

	"github.com/forgewright/planloom/internal/llm"
	"github.com/forgewright/planloom/internal/model"
)

// classificationSchema is the Tier 3 structured response shape.
var classificationSchema = llm.Schema{
	Name: "pre_classification",
	OutputDescription: `{
  "category": "backend_only | frontend_only | middleware | full_stack",
  "confidence": 0.0
}`,
	Timeout: 60,
}

const classificationPromptTemplate = `Classify which implementation layer(s) the following requirement text
primarily concerns. Respond with one of backend_only, frontend_only,
middleware, or full_stack, plus your confidence (0.0-1.0).

Requirement text:
%s`

type llmClassificationResponse struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// LLMClassifier is Tier 3 of the cascade: delegates to the structured LLM
// client with the classification schema (spec.md §4.3).
type LLMClassifier struct {
	client *llm.Client
}

// NewLLMClassifier wraps an existing structured LLM client.
func NewLLMClassifier(client *llm.Client) *LLMClassifier {
	return &LLMClassifier{client: client}
}

// Classify submits text to the LLM and returns the routed category and its
// confidence. Thresholding into auto-route / human-review / default-full-stack
// is the Cascade's responsibility, not this tier's.
func (c *LLMClassifier) Classify(ctx context.Context, text string) (model.RoutingDecision, float64, error) {
	var resp llmClassificationResponse
	prompt := fmt.Sprintf(classificationPromptTemplate, text)

	if err := c.client.Call(ctx, classificationSchema, prompt, "", &resp); err != nil {
		return "", 0, err
	}

	routing := model.RoutingDecision(resp.Category)
	switch routing {
	case model.RoutingBackendOnly, model.RoutingFrontendOnly, model.RoutingMiddleware, model.RoutingFullStack:
	default:
		routing = model.RoutingFullStack
	}
	return routing, resp.Confidence, nil
}
