// Package config loads and validates the tunable settings for the
// macro-unit-model training and generation pipelines.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"mum/internal/merr"
)

// CacheDirName is the root of the persisted directory layout.
const CacheDirName = "cache"

// CountConfig holds the tunable parameters for the streaming subsequence
// counter.
type CountConfig struct {
	MinLen              int     `yaml:"min_length" json:"min_length"`
	MaxLen              int     `yaml:"max_length" json:"max_length"`
	MaxSubseqLen        int     `yaml:"max_subsequence_length" json:"max_subsequence_length"`
	MinFrequency        uint64  `yaml:"min_frequency" json:"min_frequency"`
	SampleRate          float64 `yaml:"subsequence_sample_rate" json:"subsequence_sample_rate"`
	PruneInterval       uint64  `yaml:"subsequence_prune_interval" json:"subsequence_prune_interval"`
	MaxEntries          int     `yaml:"max_subsequence_entries" json:"max_subsequence_entries"`
	PruneThresholdStart uint64  `yaml:"subsequence_prune_threshold" json:"subsequence_prune_threshold"`
}

// Validate enforces the ConfigError invariants for counting.
func (c CountConfig) Validate() error {
	if c.MinLen <= 0 || c.MaxLen <= 0 {
		return merr.Config("CountConfig.Validate", fmt.Errorf("min_length and max_length must be positive"))
	}
	if c.MinLen > c.MaxLen {
		return merr.Config("CountConfig.Validate", fmt.Errorf("min_length (%d) > max_length (%d)", c.MinLen, c.MaxLen))
	}
	if c.SampleRate <= 0 || c.SampleRate > 1 {
		return merr.Config("CountConfig.Validate", fmt.Errorf("subsequence_sample_rate must be in (0,1], got %v", c.SampleRate))
	}
	if c.MaxEntries <= 0 {
		return merr.Config("CountConfig.Validate", fmt.Errorf("max_subsequence_entries must be positive"))
	}
	if c.PruneInterval == 0 {
		return merr.Config("CountConfig.Validate", fmt.Errorf("subsequence_prune_interval must be positive"))
	}
	return nil
}

// SelectConfig holds the tunable parameters for MDL macro-unit selection.
type SelectConfig struct {
	MDLThreshold  float64 `yaml:"mdl_threshold"`
	MaxMacroUnits int     `yaml:"max_macro_units"` // 0 = unbounded
}

// TrainingConfig is the top-level Config for cmd/mum-train.
type TrainingConfig struct {
	DatasetID    string       `yaml:"dataset_id"`
	ModelID      string       `yaml:"model_id"`
	Tag          string       `yaml:"tag"`
	MaxRecords   int          `yaml:"max_records"`
	MaxBytes     int64        `yaml:"max_bytes"`
	MaxBytesRec  int64        `yaml:"max_bytes_per_record"`
	ContextOrder int          `yaml:"context_window"` // K, the max n-gram order
	Count        CountConfig  `yaml:"count"`
	Select       SelectConfig `yaml:"select"`
	Export       ExportConfig `yaml:"export"`

	CheckpointEvery int    `yaml:"checkpoint_every"`
	CheckpointPath  string `yaml:"checkpoint_path"`
	Resume          bool   `yaml:"resume"`
	Force           bool   `yaml:"force"`
	CachePath       string `yaml:"cache_path"`
}

// ExportConfig holds the Compact-mode pruning knobs for model export.
type ExportConfig struct {
	Full          bool `yaml:"full"`
	MaxOrders     int  `yaml:"max_orders"`
	MaxMacroUnits int  `yaml:"max_macro_units"`
	MinNgramCount int  `yaml:"min_ngram_count"`
}

// GenerationConfig is the top-level Config for cmd/mum-generate.
type GenerationConfig struct {
	Prompt            string  `yaml:"prompt"`
	MaxTokens         int     `yaml:"max_tokens"`
	Temperature       float64 `yaml:"temperature"`
	TopK              int     `yaml:"top_k"`
	RepetitionPenalty float64 `yaml:"repetition_penalty"`
	BudgetMs          int64   `yaml:"budget_ms"`
	Seed              *int64  `yaml:"seed"`
	ModelPath         string  `yaml:"model_path"`
}

// DefaultCountConfig provides a reasonable baseline that can be overridden
// by a config file or flags.
func DefaultCountConfig() CountConfig {
	return CountConfig{
		MinLen:              2,
		MaxLen:              16,
		MaxSubseqLen:        16,
		MinFrequency:        4,
		SampleRate:          1.0,
		PruneInterval:       250_000,
		MaxEntries:          2_000_000,
		PruneThresholdStart: 1,
	}
}

func DefaultSelectConfig() SelectConfig {
	return SelectConfig{
		MDLThreshold:  0.0,
		MaxMacroUnits: 50_000,
	}
}

func DefaultExportConfig() ExportConfig {
	return ExportConfig{
		Full:          false,
		MaxOrders:     5,
		MaxMacroUnits: 50_000,
		MinNgramCount: 1,
	}
}

// DefaultTrainingConfig provides the baseline training configuration.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		ContextOrder:    5,
		Count:           DefaultCountConfig(),
		Select:          DefaultSelectConfig(),
		Export:          DefaultExportConfig(),
		CheckpointEvery: 5000,
		CachePath:       CacheDirName,
	}
}

// DefaultGenerationConfig provides the baseline generation configuration.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		MaxTokens:         256,
		Temperature:       1.0,
		TopK:              0,
		RepetitionPenalty: 1.0,
		BudgetMs:          0,
	}
}

// LoadTrainingConfig reads a YAML config file (if path is non-empty) and
// overlays it onto DefaultTrainingConfig(), then validates.
func LoadTrainingConfig(path string) (TrainingConfig, error) {
	cfg := DefaultTrainingConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, merr.IO("LoadTrainingConfig", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, merr.Format("LoadTrainingConfig", err)
	}
	return cfg, cfg.Validate()
}

// Validate enforces the top-level ConfigError invariants.
func (c TrainingConfig) Validate() error {
	if c.ContextOrder < 1 {
		return merr.Config("TrainingConfig.Validate", fmt.Errorf("context_window (K) must be >= 1, got %d", c.ContextOrder))
	}
	if err := c.Count.Validate(); err != nil {
		return err
	}
	return nil
}

// LoadGenerationConfig reads a YAML config file (if path is non-empty) and
// overlays it onto DefaultGenerationConfig(), then validates.
func LoadGenerationConfig(path string) (GenerationConfig, error) {
	cfg := DefaultGenerationConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, merr.IO("LoadGenerationConfig", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, merr.Format("LoadGenerationConfig", err)
	}
	return cfg, cfg.Validate()
}

func (c GenerationConfig) Validate() error {
	if c.Temperature <= 0 {
		return merr.Config("GenerationConfig.Validate", fmt.Errorf("temperature must be > 0, got %v", c.Temperature))
	}
	if c.TopK < 0 {
		return merr.Config("GenerationConfig.Validate", fmt.Errorf("top_k must be >= 0"))
	}
	if c.RepetitionPenalty < 1.0 {
		return merr.Config("GenerationConfig.Validate", fmt.Errorf("repetition_penalty must be >= 1.0"))
	}
	return nil
}

// BudgetDuration returns BudgetMs as a time.Duration, or 0 if unset.
func (c GenerationConfig) BudgetDuration() time.Duration {
	if c.BudgetMs <= 0 {
		return 0
	}
	return time.Duration(c.BudgetMs) * time.Millisecond
}
