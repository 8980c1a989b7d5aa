package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault_PassesThresholdValidation(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Threshold.Validate())
}

func TestThresholdValidate_RejectsBadInvariants(t *testing.T) {
	cases := []ThresholdConfig{
		{KeywordConfidence: 0.9, EmbeddingInitial: 0.85, EmbeddingMin: 0.2, LLMAutoRoute: 0.85, LLMHumanReview: 0.7},
		{KeywordConfidence: 1.0, EmbeddingInitial: 0.2, EmbeddingMin: 0.85, LLMAutoRoute: 0.85, LLMHumanReview: 0.7},
		{KeywordConfidence: 1.0, EmbeddingInitial: 0.85, EmbeddingMin: 0.2, LLMAutoRoute: 0.7, LLMHumanReview: 0.85},
	}
	for i, c := range cases {
		require.Error(t, c.Validate(), "case %d", i)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default().LLM.Backend, cfg.LLM.Backend)
}

func TestLoad_OverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  backend: haiku\n  max_tokens: 4096\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "haiku", cfg.LLM.Backend)
	require.Equal(t, 4096, cfg.LLM.MaxTokens)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("PRECLASSIFY_EMBED_MIN", "0.33")

	cfg := Default()
	ApplyEnvOverrides(cfg)

	require.Equal(t, "sk-test", cfg.LLM.AnthropicKey)
	require.Equal(t, 0.33, cfg.Threshold.EmbeddingMin)
}
