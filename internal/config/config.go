// Package config loads the pipeline's process-wide configuration from a YAML
// file and applies environment variable overrides. Config is the only piece
// of process-wide state in the system (see SPEC_FULL.md §9); every other
// component receives it by value or pointer at construction time.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all planning-pipeline configuration.
type Config struct {
	LLM          LLMConfig          `yaml:"llm"`
	Threshold    ThresholdConfig    `yaml:"threshold"`
	Classify     ClassifyConfig     `yaml:"classify"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Loop         LoopConfig         `yaml:"loop"`
	ContextGen   ContextGenConfig   `yaml:"context_generation"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ClassifyConfig points the pre-classifier cascade (C3) at its on-disk
// resources: the Tier 1 keyword dictionary, the Tier 2 vec0 reference
// store, the Tier 3 human-review queue, and the optional yaegi override
// rule directory.
type ClassifyConfig struct {
	KeywordDictionaryPath string `yaml:"keyword_dictionary_path"`
	EmbeddingDBPath       string `yaml:"embedding_db_path"`
	ReviewQueuePath       string `yaml:"review_queue_path"`
	OverrideRulesDir      string `yaml:"override_rules_dir"`
}

// LLMConfig configures the structured LLM client (C2).
type LLMConfig struct {
	Backend        string        `yaml:"backend"` // opus | haiku | ollama-local
	AnthropicKey   string        `yaml:"-"`
	Temperature    float64       `yaml:"temperature"`
	MaxTokens      int           `yaml:"max_tokens"`
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	OllamaBaseURL  string        `yaml:"ollama_base_url"`
}

// ThresholdConfig is the frozen classifier threshold configuration (C3).
// Invariants (enforced by Validate): KeywordConfidence == 1.0,
// EmbeddingMin < EmbeddingInitial, HumanReview < AutoRoute.
type ThresholdConfig struct {
	KeywordConfidence float64 `yaml:"keyword_confidence"`
	EmbeddingInitial  float64 `yaml:"embedding_initial"`
	EmbeddingMin      float64 `yaml:"embedding_min"`
	LLMAutoRoute      float64 `yaml:"llm_auto_route"`
	LLMHumanReview    float64 `yaml:"llm_human_review"`
}

// Validate checks the threshold invariants named in spec.md §4.3.
func (t ThresholdConfig) Validate() error {
	if t.KeywordConfidence != 1.0 {
		return fmt.Errorf("threshold: keyword_confidence must be 1.0, got %v", t.KeywordConfidence)
	}
	if !(t.EmbeddingMin < t.EmbeddingInitial) {
		return fmt.Errorf("threshold: embedding_min (%v) must be < embedding_initial (%v)", t.EmbeddingMin, t.EmbeddingInitial)
	}
	if !(t.LLMHumanReview < t.LLMAutoRoute) {
		return fmt.Errorf("threshold: llm_human_review (%v) must be < llm_auto_route (%v)", t.LLMHumanReview, t.LLMAutoRoute)
	}
	return nil
}

// Autonomy modes for OrchestratorConfig.AutonomyMode (spec.md §6), controlling
// where the pipeline pauses for human review between checkpointed steps.
const (
	AutonomyCheckpoint      = "checkpoint"
	AutonomyBatch           = "batch"
	AutonomyFullyAutonomous = "fully_autonomous"
)

// OrchestratorConfig controls pipeline orchestrator (C8) behavior.
type OrchestratorConfig struct {
	EnableContextGeneration bool   `yaml:"enable_context_generation"`
	ValidateFull            bool   `yaml:"validate_full"`
	ValidateCategory        bool   `yaml:"validate_category"`
	ForceAll                bool   `yaml:"force_all"`
	MaxFiles                int    `yaml:"max_files"`
	OutputDir               string `yaml:"output_dir"`
	PreClassify             bool   `yaml:"pre_classify"`
	AutonomyMode            string `yaml:"autonomy_mode"` // checkpoint | batch | fully_autonomous
}

// LoopConfig controls the execution loop runner (C9).
type LoopConfig struct {
	MaxIterations   int           `yaml:"max_iterations"`
	AgentTimeout    time.Duration `yaml:"agent_timeout"`
	TrackerTimeout  time.Duration `yaml:"tracker_timeout"`
	MaxBlockedSkips int           `yaml:"max_blocked_skips"`
}

// ContextGenConfig controls the context generator (C6).
type ContextGenConfig struct {
	MaxFiles   int    `yaml:"max_files"`
	OutputRoot string `yaml:"output_root"`
}

// LoggingConfig controls the ambient logging subsystem.
type LoggingConfig struct {
	Debug      bool `yaml:"debug"`
	JSONFormat bool `yaml:"json_format"`
}

// Default returns the default configuration, mirroring the values in
// spec.md §6/§4.3/§4.6/§4.9.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Backend:        "opus",
			Temperature:    0.3,
			MaxTokens:      8192,
			DefaultTimeout: 300 * time.Second,
			OllamaBaseURL:  "http://localhost:11434",
		},
		Threshold: ThresholdConfig{
			KeywordConfidence: 1.0,
			EmbeddingInitial:  0.85,
			EmbeddingMin:      0.20,
			LLMAutoRoute:      0.85,
			LLMHumanReview:    0.70,
		},
		Classify: ClassifyConfig{
			EmbeddingDBPath:  ".workflow-checkpoints/reference-embeddings.db",
			ReviewQueuePath:  ".workflow-checkpoints/review-queue.jsonl",
			OverrideRulesDir: ".workflow-checkpoints/override-rules",
		},
		Orchestrator: OrchestratorConfig{
			EnableContextGeneration: true,
			MaxFiles:                100,
			OutputDir:               "output",
			PreClassify:             true,
			AutonomyMode:            "checkpoint",
		},
		Loop: LoopConfig{
			MaxIterations:   100,
			AgentTimeout:    300 * time.Second,
			TrackerTimeout:  30 * time.Second,
			MaxBlockedSkips: 100,
		},
		ContextGen: ContextGenConfig{
			MaxFiles:   100,
			OutputRoot: "output",
		},
		Logging: LoggingConfig{},
	}
}

// Load reads a YAML config file, falling back to defaults for any field the
// file omits, then applies environment overrides. A missing path is not an
// error — it returns defaults with env overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: reading %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}
	ApplyEnvOverrides(cfg)
	if err := cfg.Threshold.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides applies the environment variables recognized by §6 of
// the spec, in place.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.LLM.AnthropicKey = v
	}
	if v := os.Getenv("ANTHROPIC_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.LLM.Temperature = f
		}
	}
	envFloat := func(name string, dst *float64) {
		if v := os.Getenv(name); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}
	envFloat("PRECLASSIFY_KEYWORD_CONFIDENCE", &cfg.Threshold.KeywordConfidence)
	envFloat("PRECLASSIFY_EMBED_INITIAL", &cfg.Threshold.EmbeddingInitial)
	envFloat("PRECLASSIFY_EMBED_MIN", &cfg.Threshold.EmbeddingMin)
	envFloat("PRECLASSIFY_LLM_AUTO", &cfg.Threshold.LLMAutoRoute)
	envFloat("PRECLASSIFY_LLM_REVIEW", &cfg.Threshold.LLMHumanReview)
}
