package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaBackend implements Backend over a local OpenAI-generic Ollama
// endpoint (spec.md §6).
type OllamaBackend struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllamaBackend constructs a backend pointed at a local Ollama server.
func NewOllamaBackend(baseURL, model string, timeout time.Duration) *OllamaBackend {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3"
	}
	return &OllamaBackend{baseURL: baseURL, model: model, httpClient: &http.Client{Timeout: timeout}}
}

func (b *OllamaBackend) Name() BackendName { return BackendOllama }

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Error string `json:"error,omitempty"`
}

// Complete submits one turn to /api/chat.
func (b *OllamaBackend) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var messages []ollamaChatMessage
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, ollamaChatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, ollamaChatMessage{Role: "user", Content: userPrompt})

	payload, err := json.Marshal(ollamaChatRequest{Model: b.model, Messages: messages, Stream: false})
	if err != nil {
		return "", fmt.Errorf("llm: ollama backend: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("llm: ollama backend: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm: ollama backend: read response: %w", err)
	}

	var parsed ollamaChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("llm: ollama backend: unmarshal response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("llm: ollama backend: %s", parsed.Error)
	}
	text := strings.TrimSpace(parsed.Message.Content)
	if text == "" {
		return "", fmt.Errorf("llm: ollama backend: empty response")
	}
	return text, nil
}
