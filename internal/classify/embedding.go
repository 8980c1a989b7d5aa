package classify

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/forgewright/planloom/internal/llm"
	"github.com/forgewright/planloom/internal/logging"
	"github.com/forgewright/planloom/internal/model"
)

func init() {
	vec.Auto()
}

// ReferenceExample is one labeled training sentence for a category, used to
// seed the Tier 2 vec0 table (15-20 per category per spec.md §4.3).
type ReferenceExample struct {
	Category model.RoutingDecision
	Text     string
}

// EmbeddingClassifier is Tier 2 of the cascade: reference category
// embeddings held in a SQLite vec0 virtual table, queried by MATCH
// nearest-neighbor search. The on-disk index gives the "cache bound <= 100MB"
// requirement a concrete, restartable implementation (SPEC_FULL.md §11.2).
type EmbeddingClassifier struct {
	db       *sql.DB
	embedder llm.Embedder
	minSim   float64 // T_embed floor (calibratable, see spec.md §4.3)
}

// OpenEmbeddingClassifier opens (or creates) the vec0-backed reference store
// at dbPath and returns a classifier ready for Seed/Classify.
func OpenEmbeddingClassifier(dbPath string, embedder llm.Embedder, minSimilarity float64) (*EmbeddingClassifier, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("classify: open embedding store: %w", err)
	}

	createStmt := fmt.Sprintf(
		"CREATE VIRTUAL TABLE IF NOT EXISTS reference_embeddings USING vec0(embedding float[%d], category TEXT, text TEXT)",
		embedder.Dimensions(),
	)
	if _, err := db.Exec(createStmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("classify: create vec0 table: %w", err)
	}

	return &EmbeddingClassifier{db: db, embedder: embedder, minSim: minSimilarity}, nil
}

// Close releases the underlying SQLite connection.
func (c *EmbeddingClassifier) Close() error {
	return c.db.Close()
}

// Seed embeds and inserts reference examples, replacing any existing rows.
// Intended to run once at setup time or when the reference corpus changes.
func (c *EmbeddingClassifier) Seed(ctx context.Context, examples []ReferenceExample) error {
	if len(examples) == 0 {
		return nil
	}

	if _, err := c.db.Exec("DELETE FROM reference_embeddings"); err != nil {
		return fmt.Errorf("classify: clear reference embeddings: %w", err)
	}

	texts := make([]string, len(examples))
	for i, ex := range examples {
		texts[i] = ex.Text
	}
	vectors, err := c.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("classify: embed reference examples: %w", err)
	}

	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT INTO reference_embeddings(embedding, category, text) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, ex := range examples {
		blob, err := vec.SerializeFloat32(vectors[i])
		if err != nil {
			return fmt.Errorf("classify: serialize embedding: %w", err)
		}
		if _, err := stmt.Exec(blob, string(ex.Category), ex.Text); err != nil {
			return fmt.Errorf("classify: insert reference embedding: %w", err)
		}
	}

	logging.For(logging.ComponentClassify).Infow("seeded reference embeddings", "count", len(examples))
	return tx.Commit()
}

// Classify embeds text, finds the single nearest reference example by vec0
// MATCH distance, converts distance to a similarity score, and returns the
// matched category if similarity >= minSim (ok=false otherwise, passing
// through to Tier 3).
func (c *EmbeddingClassifier) Classify(ctx context.Context, text string) (routing model.RoutingDecision, similarity float64, ok bool, err error) {
	vector, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return "", 0, false, fmt.Errorf("classify: embed query: %w", err)
	}
	blob, err := vec.SerializeFloat32(vector)
	if err != nil {
		return "", 0, false, fmt.Errorf("classify: serialize query embedding: %w", err)
	}

	row := c.db.QueryRowContext(ctx,
		`SELECT category, distance FROM reference_embeddings
		 WHERE embedding MATCH ? AND k = 1
		 ORDER BY distance LIMIT 1`, blob)

	var category string
	var distance float64
	if scanErr := row.Scan(&category, &distance); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return "", 0, false, nil
		}
		return "", 0, false, fmt.Errorf("classify: nearest-neighbor query: %w", scanErr)
	}

	// vec0's default distance metric is L2; for normalized embedding vectors
	// cosine similarity = 1 - (L2^2 / 2).
	similarity = 1 - (distance*distance)/2
	if similarity < c.minSim {
		return "", similarity, false, nil
	}
	return model.RoutingDecision(category), similarity, true, nil
}

// referenceExamplesJSON is a convenience loader for seeding from a JSON file
// of []ReferenceExample, used by setup tooling and tests.
func referenceExamplesJSON(data []byte) ([]ReferenceExample, error) {
	var examples []ReferenceExample
	if err := json.Unmarshal(data, &examples); err != nil {
		return nil, fmt.Errorf("classify: parse reference examples: %w", err)
	}
	return examples, nil
}
