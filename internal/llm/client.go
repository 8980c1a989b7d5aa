package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/forgewright/planloom/internal/logging"
)

// retryDelays is the fixed exponential backoff schedule for transport
// failures (spec.md §4.2: "0.5s, 1.5s, 4.5s between the three attempts").
var retryDelays = []time.Duration{
	500 * time.Millisecond,
	1500 * time.Millisecond,
	4500 * time.Millisecond,
}

// Client implements the uniform Call(schema, inputs) contract of spec.md
// §4.2: every caller across the pipeline goes through one Client regardless
// of which concrete backend answers the call. It owns retry/backoff,
// fallback to the CLI path, response cleaning, and usage accounting.
type Client struct {
	primary  Backend
	fallback Backend // may be nil
	usage    *UsageStats
}

// NewClient builds a Client around a primary backend and an optional
// fallback backend used when the primary is Unavailable.
func NewClient(primary Backend, fallback Backend) *Client {
	return &Client{primary: primary, fallback: fallback, usage: NewUsageStats()}
}

// Usage exposes the client's running token/cost tracker.
func (c *Client) Usage() *UsageStats { return c.usage }

// Call renders promptTemplate against schema, submits it to the configured
// backend chain, and unmarshals the (cleaned) response into out. out must be
// a non-nil pointer. Every failure path returns an *Error tagged with one of
// the five ErrorKinds named in spec.md §4.2/§7.
func (c *Client) Call(ctx context.Context, schema Schema, promptTemplate, systemPrompt string, out interface{}) error {
	prompt := BuildPrompt(promptTemplate, schema)
	timeout := time.Duration(schema.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 300 * time.Second
	}

	raw, usedBackend, err := c.completeWithFallback(ctx, systemPrompt, prompt, timeout, schema.Name)
	if err != nil {
		return err
	}

	if parseErr := c.parseWithOneCleanRetry(ctx, raw, out, usedBackend, systemPrompt, prompt, timeout, schema.Name); parseErr != nil {
		return parseErr
	}
	return nil
}

// CallText renders promptTemplate (already fully formed; no schema output
// description is appended) and returns the backend's raw text response
// unparsed. Used by callers whose expected output is prose, not a declared
// JSON shape — the Pipeline Orchestrator's Planning step (spec.md §4.8)
// treats the external agent as "a pure input→output transform via C2" and
// has no structured schema to parse the plan markdown against.
func (c *Client) CallText(ctx context.Context, promptTemplate, systemPrompt string, timeoutSeconds int) (string, error) {
	timeout := time.Duration(timeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	raw, _, err := c.completeWithFallback(ctx, systemPrompt, promptTemplate, timeout, "plan_text")
	if err != nil {
		return "", err
	}
	return raw, nil
}

// completeWithFallback runs the retry-with-backoff loop against the primary
// backend, then falls through to the fallback backend (if configured) on
// exhaustion, per spec.md §4.4/§9.
func (c *Client) completeWithFallback(ctx context.Context, systemPrompt, prompt string, timeout time.Duration, schemaName string) (string, Backend, error) {
	raw, err := c.completeWithRetry(ctx, c.primary, systemPrompt, prompt, timeout, schemaName)
	if err == nil {
		return raw, c.primary, nil
	}

	if c.fallback == nil {
		return "", nil, err
	}

	logging.For(logging.ComponentLLM).Warnw("primary backend exhausted, falling back",
		"schema", schemaName, "primary", c.primary.Name(), "fallback", c.fallback.Name(), "err", err)

	raw, fbErr := c.completeWithRetry(ctx, c.fallback, systemPrompt, prompt, timeout, schemaName)
	if fbErr != nil {
		return "", nil, newError(KindUnavailable, schemaName, fmt.Errorf("primary: %w; fallback: %v", err, fbErr))
	}
	return raw, c.fallback, nil
}

// completeWithRetry attempts backend.Complete up to len(retryDelays)+1 times,
// sleeping the fixed schedule between attempts. Context cancellation aborts
// immediately without consuming remaining attempts.
func (c *Client) completeWithRetry(ctx context.Context, backend Backend, systemPrompt, prompt string, timeout time.Duration, schemaName string) (string, error) {
	var lastErr error
	attempts := len(retryDelays) + 1

	for attempt := 0; attempt < attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		raw, err := backend.Complete(callCtx, systemPrompt, prompt)
		cancel()

		if err == nil {
			c.usage.Record(backend.Name(), schemaName, estimateTokens(systemPrompt+prompt), estimateTokens(raw))
			return raw, nil
		}
		lastErr = err

		if errors.Is(ctx.Err(), context.Canceled) {
			return "", newError(KindUnavailable, schemaName, ctx.Err())
		}

		logging.For(logging.ComponentLLM).Debugw("backend call failed, will retry",
			"backend", backend.Name(), "schema", schemaName, "attempt", attempt, "err", err)

		if attempt < len(retryDelays) {
			select {
			case <-time.After(retryDelays[attempt]):
			case <-ctx.Done():
				return "", newError(KindTimeout, schemaName, ctx.Err())
			}
		}
	}

	return "", classifyTransportError(schemaName, lastErr)
}

// classifyTransportError maps a raw transport failure to the Unavailable,
// Timeout, or ApiError kind (spec.md §7).
func classifyTransportError(schemaName string, err error) *Error {
	if err == nil {
		return newError(KindUnavailable, schemaName, errors.New("no attempts made"))
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindTimeout, schemaName, err)
	}
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}
	return newError(KindAPIError, schemaName, err)
}

// parseWithOneCleanRetry attempts ParseInto(raw, out). If that fails, it asks
// the same backend to re-emit strictly as JSON (the "cleaning pass" of
// spec.md §4.2) exactly once before giving up with InvalidJson.
func (c *Client) parseWithOneCleanRetry(ctx context.Context, raw string, out interface{}, backend Backend, systemPrompt, prompt string, timeout time.Duration, schemaName string) error {
	if err := ParseInto(raw, out); err == nil {
		return nil
	} else if backend == nil {
		return newError(KindInvalidJSON, schemaName, err)
	}

	cleaningPrompt := prompt + "\n\nYour previous response could not be parsed as JSON:\n" + raw +
		"\n\nRe-emit ONLY the JSON object, with no surrounding prose or code fences."

	cleaned, err := c.completeWithRetry(ctx, backend, systemPrompt, cleaningPrompt, timeout, schemaName)
	if err != nil {
		return newError(KindInvalidJSON, schemaName, err)
	}

	if err := ParseInto(cleaned, out); err != nil {
		return newError(KindInvalidJSON, schemaName, err)
	}
	return nil
}

// ValidateAgainstJSON is a narrow convenience used by callers that already
// have a parsed map and want to check it still round-trips cleanly, e.g.
// after a manual patch. It is not part of the retry path.
func ValidateAgainstJSON(v interface{}) error {
	if _, err := json.Marshal(v); err != nil {
		return fmt.Errorf("llm: value does not marshal to JSON: %w", err)
	}
	return nil
}
