package classify

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/forgewright/planloom/internal/model"
)

func TestReviewQueue_AppendAndList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "review-queue.jsonl")
	q, err := NewReviewQueue(path)
	require.NoError(t, err)

	entries := []ReviewEntry{
		{Text: "first", Routing: model.RoutingBackendOnly, Confidence: 0.72, FlaggedAt: time.Now()},
		{Text: "second", Routing: model.RoutingFrontendOnly, Confidence: 0.80, FlaggedAt: time.Now()},
	}
	for _, e := range entries {
		require.NoError(t, q.Append(e))
	}

	got, err := q.List()
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "first", got[0].Text)
	require.Equal(t, "second", got[1].Text)
}

func TestReviewQueue_ListMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent", "review-queue.jsonl")
	q := &ReviewQueue{path: path}

	got, err := q.List()
	require.NoError(t, err)
	require.Nil(t, got)
}
