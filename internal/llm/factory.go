package llm

import (
	"fmt"

	"github.com/forgewright/planloom/internal/config"
)

// anthropicModelFor maps the three backend names of spec.md §6 to a concrete
// Anthropic model id. ollama-local has no Anthropic equivalent and is
// rejected by NewClientFromConfig.
var anthropicModelFor = map[string]string{
	"opus":  "claude-opus-4-20250514",
	"haiku": "claude-haiku-4-20250514",
}

// NewClientFromConfig builds a Client whose primary backend is
// cfg.LLM.Backend and whose fallback is the CLI subprocess path, matching
// the degraded-mode behavior described in spec.md §4.4/§9.
func NewClientFromConfig(cfg *config.Config) (*Client, error) {
	var primary Backend

	switch cfg.LLM.Backend {
	case "opus", "haiku":
		model := anthropicModelFor[cfg.LLM.Backend]
		name := BackendOpus
		if cfg.LLM.Backend == "haiku" {
			name = BackendHaiku
		}
		primary = NewAnthropicBackend(name, cfg.LLM.AnthropicKey, model, cfg.LLM.Temperature, cfg.LLM.MaxTokens, cfg.LLM.DefaultTimeout)
	case "ollama-local":
		primary = NewOllamaBackend(cfg.LLM.OllamaBaseURL, "", cfg.LLM.DefaultTimeout)
	default:
		return nil, fmt.Errorf("llm: unknown backend %q", cfg.LLM.Backend)
	}

	fallback := NewCLIFallbackBackend("claude", []string{"-p"}, cfg.LLM.DefaultTimeout)

	return NewClient(primary, fallback), nil
}
