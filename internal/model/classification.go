package model

// ClassificationMethod records which cascade tier produced a ClassificationResult.
type ClassificationMethod string

const (
	MethodKeyword   ClassificationMethod = "keyword"
	MethodEmbedding ClassificationMethod = "embedding"
	MethodLLM       ClassificationMethod = "llm"
)

// RoutingDecision is the pre-classifier's downstream-prompt routing hint.
type RoutingDecision string

const (
	RoutingBackendOnly  RoutingDecision = "backend_only"
	RoutingFrontendOnly RoutingDecision = "frontend_only"
	RoutingMiddleware   RoutingDecision = "middleware"
	RoutingFullStack    RoutingDecision = "full_stack"
)

// ClassificationResult is the cascade router's (C3) output for one
// requirement text.
type ClassificationResult struct {
	Category        Category             `json:"category"`
	Confidence      float64               `json:"confidence"`
	Method          ClassificationMethod  `json:"method"`
	RoutingDecision RoutingDecision       `json:"routing_decision"`
}
