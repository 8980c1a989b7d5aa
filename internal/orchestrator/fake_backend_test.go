package orchestrator

import (
	"context"
	"errors"
	"strings"

	"github.com/forgewright/planloom/internal/llm"
)

// keyedBackend picks its scripted response by matching a substring against
// the outgoing prompt, the same content-addressed double used in
// internal/decompose's own tests — needed here too since Phase B expansion
// calls fan out concurrently.
type keyedBackend struct {
	name  llm.BackendName
	rules []keyedRule
}

type keyedRule struct {
	contains string
	response string
	err      error
}

func (f *keyedBackend) Name() llm.BackendName { return f.name }

func (f *keyedBackend) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	for _, rule := range f.rules {
		if strings.Contains(userPrompt, rule.contains) {
			if rule.err != nil {
				return "", rule.err
			}
			return rule.response, nil
		}
	}
	return "", errors.New("keyedBackend: no rule matched prompt")
}
