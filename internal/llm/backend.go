package llm

import "context"

// BackendName is one of the three concrete LLM backends named in spec.md §6.
type BackendName string

const (
	BackendOpus   BackendName = "opus"
	BackendHaiku  BackendName = "haiku"
	BackendOllama BackendName = "ollama-local"
	// BackendCLIFallback names the degraded subprocess-driven path used when
	// no structured backend is reachable (spec.md §4.4/§9).
	BackendCLIFallback BackendName = "cli-fallback"
)

// Backend is the minimal transport used by Client: submit a rendered prompt
// (with system text) and get back raw completion text, or a transport-level
// error. Backends never parse or validate JSON — that is the Client's job,
// uniform across backends (spec.md §4.2).
type Backend interface {
	Name() BackendName
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
