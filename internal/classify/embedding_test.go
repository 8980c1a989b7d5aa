package classify

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgewright/planloom/internal/model"
)

// fakeEmbedder returns a fixed 4-dimensional vector per text, keyed by exact
// string match, so cosine similarity tests are deterministic without a real
// embedding provider.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Dimensions() int { return 4 }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 0, 1}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func TestEmbeddingClassifier_SeedAndClassify(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"queue handling reference":  {1, 0, 0, 0},
		"api endpoint reference":    {0, 1, 0, 0},
		"new incoming message text": {0.9, 0.1, 0, 0},
	}}

	dbPath := filepath.Join(t.TempDir(), "reference.db")
	classifier, err := OpenEmbeddingClassifier(dbPath, embedder, 0.5)
	require.NoError(t, err)
	defer classifier.Close()

	err = classifier.Seed(context.Background(), []ReferenceExample{
		{Category: model.RoutingMiddleware, Text: "queue handling reference"},
		{Category: model.RoutingBackendOnly, Text: "api endpoint reference"},
	})
	require.NoError(t, err)

	routing, similarity, ok, err := classifier.Classify(context.Background(), "new incoming message text")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, model.RoutingMiddleware, routing)
	require.Greater(t, similarity, 0.5)
}

func TestEmbeddingClassifier_BelowThresholdPassesThrough(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"queue handling reference": {1, 0, 0, 0},
		"unrelated query":          {0, 0, 1, 0},
	}}

	dbPath := filepath.Join(t.TempDir(), "reference.db")
	classifier, err := OpenEmbeddingClassifier(dbPath, embedder, 0.9)
	require.NoError(t, err)
	defer classifier.Close()

	require.NoError(t, classifier.Seed(context.Background(), []ReferenceExample{
		{Category: model.RoutingMiddleware, Text: "queue handling reference"},
	}))

	_, _, ok, err := classifier.Classify(context.Background(), "unrelated query")
	require.NoError(t, err)
	require.False(t, ok)
}
