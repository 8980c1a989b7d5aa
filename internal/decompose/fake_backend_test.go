package decompose

import (
	"context"
	"errors"
	"strings"

	"github.com/forgewright/planloom/internal/llm"
)

// fakeBackend scripts a sequence of responses (or errors) per call, mirroring
// the test double used in internal/llm's own tests.
type fakeBackend struct {
	name      llm.BackendName
	responses []string
	errs      []error
	calls     int
}

func (f *fakeBackend) Name() llm.BackendName { return f.name }

func (f *fakeBackend) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("fakeBackend: exhausted scripted responses")
}

// keyedBackend picks its scripted response (or error) by matching a
// substring against the outgoing prompt, so concurrent callers (e.g. Phase
// B's bounded fan-out) get deterministic, content-addressed behavior instead
// of depending on call order across goroutines.
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
