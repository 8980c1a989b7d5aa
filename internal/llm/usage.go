// Usage tracking is an ambient cost-accounting concern the distilled spec is
// silent on but the corpus carries throughout (SPEC_FULL.md §11.1). This
// file is grounded on the teacher's internal/usage package, narrowed to the
// dimensions the structured LLM client actually has available: backend and
// schema name.
package llm

import (
	"encoding/json"
	"os"
	"sync"
)

// TokenCounts holds an input/output token sum.
type TokenCounts struct {
	Input  int64 `json:"input"`
	Output int64 `json:"output"`
	Total  int64 `json:"total"`
}

func (t *TokenCounts) add(input, output int64) {
	t.Input += input
	t.Output += output
	t.Total += input + output
}

// UsageStats aggregates token counts by backend and by schema name.
type UsageStats struct {
	mu         sync.Mutex
	Total      TokenCounts            `json:"total"`
	ByBackend  map[string]*TokenCounts `json:"by_backend"`
	BySchema   map[string]*TokenCounts `json:"by_schema"`
}

// NewUsageStats returns an empty tracker.
func NewUsageStats() *UsageStats {
	return &UsageStats{
		ByBackend: make(map[string]*TokenCounts),
		BySchema:  make(map[string]*TokenCounts),
	}
}

// Record adds one call's token usage to the aggregate.
func (u *UsageStats) Record(backend BackendName, schema string, inputTokens, outputTokens int64) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.Total.add(inputTokens, outputTokens)

	if _, ok := u.ByBackend[string(backend)]; !ok {
		u.ByBackend[string(backend)] = &TokenCounts{}
	}
	u.ByBackend[string(backend)].add(inputTokens, outputTokens)

	if _, ok := u.BySchema[schema]; !ok {
		u.BySchema[schema] = &TokenCounts{}
	}
	u.BySchema[schema].add(inputTokens, outputTokens)
}

// Snapshot returns a JSON-serializable copy safe to persist.
func (u *UsageStats) Snapshot() ([]byte, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return json.MarshalIndent(u, "", "  ")
}

// Persist writes the current snapshot to path.
func (u *UsageStats) Persist(path string) error {
	data, err := u.Snapshot()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// estimateTokens is a rough, dependency-free token estimate (~4 chars/token)
// used when a backend does not report usage directly. This mirrors the
// corpus's own practice of estimating usage client-side when a provider's
// response omits token counts.
func estimateTokens(text string) int64 {
	if len(text) == 0 {
		return 0
	}
	n := int64(len(text)) / 4
	if n == 0 {
		n = 1
	}
	return n
}
