package classify

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/forgewright/planloom/internal/model"
)

// ReviewEntry is one Tier 3 classification flagged for human review because
// its confidence fell in [llm_human_review, llm_auto_route) (spec.md §4.3,
// §9 open question; resolved per SPEC_FULL.md §12 as an append-only JSONL
// queue).
type ReviewEntry struct {
	Text       string                  `json:"text"`
	Routing    model.RoutingDecision   `json:"routing"`
	Confidence float64                 `json:"confidence"`
	FlaggedAt  time.Time               `json:"flagged_at"`
}

// ReviewQueue appends flagged classifications to a JSONL file and can list
// pending entries back out.
type ReviewQueue struct {
	mu   sync.Mutex
	path string
}

// NewReviewQueue returns a queue backed by path (typically
// .workflow-checkpoints/review-queue.jsonl). The file is created on first
// Append; a missing parent directory is created eagerly.
func NewReviewQueue(path string) (*ReviewQueue, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("classify: create review queue directory: %w", err)
	}
	return &ReviewQueue{path: path}, nil
}

// Append adds one flagged classification to the queue.
func (q *ReviewQueue) Append(entry ReviewEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	f, err := os.OpenFile(q.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("classify: open review queue: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("classify: marshal review entry: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("classify: append review entry: %w", err)
	}
	return nil
}

// List returns every pending entry in the queue, oldest first. A missing
// file returns an empty slice, not an error.
func (q *ReviewQueue) List() ([]ReviewEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	f, err := os.Open(q.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("classify: open review queue: %w", err)
	}
	defer f.Close()

	var entries []ReviewEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry ReviewEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("classify: scan review queue: %w", err)
	}
	return entries, nil
}
