package contextgen

import (
	"context"
	"errors"

	"github.com/forgewright/planloom/internal/llm"
)

// fakeBackend is a call-order indexed llm.Backend test double, sufficient
// here since every contextgen call path issues its LLM calls sequentially.
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
