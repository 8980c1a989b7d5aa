// Package classify implements the three-tier Pre-Classifier cascade
// (keyword -> embedding similarity -> LLM) that routes each requirement to a
// category with a confidence score, minimizing expensive Tier 3 calls.
package classify

import (
	"context"
	"time"

	"github.com/forgewright/planloom/internal/config"
	"github.com/forgewright/planloom/internal/logging"
	"github.com/forgewright/planloom/internal/model"
)

// Cascade composes an optional override hook, the keyword matcher, the
// embedding matcher, and the LLM tier into the routing decision described in
// spec.md §4.3.
type Cascade struct {
	overrides []OverrideRule
	keyword   *KeywordMatcher
	embedding *EmbeddingClassifier // may be nil (degrades straight to Tier 1 -> Tier 3)
	llmTier   *LLMClassifier
	threshold config.ThresholdConfig
	reviews   *ReviewQueue // may be nil (review flagging becomes a no-op)
}

// NewCascade builds a cascade from its component tiers. embedding and
// reviews may be nil.
func NewCascade(overrides []OverrideRule, keyword *KeywordMatcher, embedding *EmbeddingClassifier, llmTier *LLMClassifier, threshold config.ThresholdConfig, reviews *ReviewQueue) *Cascade {
	return &Cascade{
		overrides: overrides,
		keyword:   keyword,
		embedding: embedding,
		llmTier:   llmTier,
		threshold: threshold,
		reviews:   reviews,
	}
}

// Classify runs text through override rules, then Tier 1, Tier 2, and
// finally Tier 3, returning the first confident routing decision. Tier 3's
// own threshold banding (auto-route / human-review / default full_stack) is
// applied here, and flagged classifications are appended to the review
// queue when configured.
func (c *Cascade) Classify(ctx context.Context, text string) (model.ClassificationResult, error) {
	log := logging.For(logging.ComponentClassify)

	for _, rule := range c.overrides {
		if category, ok := rule.Route(text); ok {
			log.Debugw("override rule matched", "rule", rule.Name, "category", category)
			return model.ClassificationResult{
				Category:        model.CategoryFunctional,
				Confidence:      1.0,
				Method:          model.MethodKeyword,
				RoutingDecision: model.RoutingDecision(category),
			}, nil
		}
	}

	if c.keyword != nil {
		if routing, ok := c.keyword.Match(text); ok {
			return model.ClassificationResult{
				Category:        model.CategoryFunctional,
				Confidence:      c.threshold.KeywordConfidence,
				Method:          model.MethodKeyword,
				RoutingDecision: routing,
			}, nil
		}
	}

	if c.embedding != nil {
		routing, similarity, ok, err := c.embedding.Classify(ctx, text)
		if err != nil {
			log.Warnw("embedding tier failed, falling through to LLM", "err", err)
		} else if ok {
			return model.ClassificationResult{
				Category:        model.CategoryFunctional,
				Confidence:      similarity,
				Method:          model.MethodEmbedding,
				RoutingDecision: routing,
			}, nil
		}
	}

	routing, confidence, err := c.llmTier.Classify(ctx, text)
	if err != nil {
		return model.ClassificationResult{}, err
	}

	result := model.ClassificationResult{
		Category:        model.CategoryFunctional,
		Confidence:      confidence,
		Method:          model.MethodLLM,
		RoutingDecision: routing,
	}

	switch {
	case confidence >= c.threshold.LLMAutoRoute:
		// Auto-route as-is.
	case confidence >= c.threshold.LLMHumanReview:
		if c.reviews != nil {
			entry := ReviewEntry{Text: text, Routing: routing, Confidence: confidence, FlaggedAt: time.Now()}
			if appendErr := c.reviews.Append(entry); appendErr != nil {
				log.Warnw("failed to append review queue entry", "err", appendErr)
			}
		}
	default:
		result.RoutingDecision = model.RoutingFullStack
	}

	return result, nil
}
