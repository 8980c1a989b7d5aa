package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CLIFallbackBackend is the degraded "plain subprocess + JSON-in-text parse"
// path described in spec.md §4.4/§9: when the structured LLM path is
// unavailable it shells out to a generic CLI with explicit "return only
// JSON" instructions appended to the prompt. It is a first-class Backend
// variant, not a special case scattered across callers.
type CLIFallbackBackend struct {
	binary  string
	args    []string
	timeout time.Duration
}

// NewCLIFallbackBackend builds a fallback backend that runs `binary args...`
// and appends the prompt as a final argument.
func NewCLIFallbackBackend(binary string, args []string, timeout time.Duration) *CLIFallbackBackend {
	return &CLIFallbackBackend{binary: binary, args: args, timeout: timeout}
}

func (b *CLIFallbackBackend) Name() BackendName { return BackendCLIFallback }

// Complete appends "return only JSON" guidance to the user prompt and runs
// the CLI, returning raw stdout. The Client's JSON-substring extraction
// (bounded by the first '{' and the last '}') handles the rest.
func (b *CLIFallbackBackend) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	prompt := userPrompt + "\n\nRespond with ONLY a single JSON object. No prose, no code fences."
	if systemPrompt != "" {
		prompt = systemPrompt + "\n\n" + prompt
	}

	args := append(append([]string{}, b.args...), prompt)
	cmd := exec.CommandContext(ctx, b.binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("llm: cli fallback timed out after %v", b.timeout)
		}
		return "", fmt.Errorf("llm: cli fallback failed: %w (stderr: %s)", err, stderr.String())
	}
	return strings.TrimSpace(stdout.String()), nil
}

// ExtractJSONSubstring bounds the first '{' and the last '}' in text and
// returns the substring between them, matching the fallback parser described
// in spec.md §4.4.
func ExtractJSONSubstring(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < 0 || end < start {
		return "", fmt.Errorf("llm: no JSON object found in CLI fallback output")
	}
	return text[start : end+1], nil
}
