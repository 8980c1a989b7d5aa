package classify

import (
	"context"
	"fmt"

	"github.com/forgewright/planloom/internal/config"
	"github.com/forgewright/planloom/internal/llm"
)

// NewCascadeFromConfig wires up every tier from cfg. embedder may be nil, in
// which case Tier 2 is skipped entirely and the cascade falls straight from
// Tier 1 to Tier 3 (a degraded but still-correct mode).
func NewCascadeFromConfig(ctx context.Context, cfg *config.Config, llmClient *llm.Client, embedder llm.Embedder) (*Cascade, error) {
	dict, err := LoadKeywordDictionary(cfg.Classify.KeywordDictionaryPath)
	if err != nil {
		return nil, fmt.Errorf("classify: load keyword dictionary: %w", err)
	}
	keywordTier := NewKeywordMatcher(dict)

	var embeddingTier *EmbeddingClassifier
	if embedder != nil && cfg.Classify.EmbeddingDBPath != "" {
		embeddingTier, err = OpenEmbeddingClassifier(cfg.Classify.EmbeddingDBPath, embedder, cfg.Threshold.EmbeddingMin)
		if err != nil {
			return nil, fmt.Errorf("classify: open embedding tier: %w", err)
		}
	}

	llmTier := NewLLMClassifier(llmClient)

	var reviews *ReviewQueue
	if cfg.Classify.ReviewQueuePath != "" {
		reviews, err = NewReviewQueue(cfg.Classify.ReviewQueuePath)
		if err != nil {
			return nil, fmt.Errorf("classify: open review queue: %w", err)
		}
	}

	overrides, err := LoadOverrideRules(cfg.Classify.OverrideRulesDir)
	if err != nil {
		return nil, fmt.Errorf("classify: load override rules: %w", err)
	}

	return NewCascade(overrides, keywordTier, embeddingTier, llmTier, cfg.Threshold, reviews), nil
}
