package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultTrainingConfig(t *testing.T) {
	cfg := DefaultTrainingConfig()

	if cfg.ContextOrder != 5 {
		t.Errorf("expected context_window 5, got %d", cfg.ContextOrder)
	}
	if cfg.Count.MinLen != 2 || cfg.Count.MaxLen != 16 {
		t.Errorf("unexpected count bounds: %+v", cfg.Count)
	}
	if cfg.Count.SampleRate != 1.0 {
		t.Errorf("expected sample rate 1.0, got %v", cfg.Count.SampleRate)
	}
	if cfg.CheckpointEvery != 5000 {
		t.Errorf("expected checkpoint_every 5000, got %d", cfg.CheckpointEvery)
	}
	if cfg.CachePath != CacheDirName {
		t.Errorf("expected cache path %q, got %q", CacheDirName, cfg.CachePath)
	}
}

func TestLoadTrainingConfigEmptyPath(t *testing.T) {
	cfg, err := LoadTrainingConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ContextOrder != DefaultTrainingConfig().ContextOrder {
		t.Errorf("expected defaults when path is empty")
	}
}

func TestLoadTrainingConfigNonExistentFile(t *testing.T) {
	if _, err := LoadTrainingConfig("/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestLoadTrainingConfigValid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "train.yaml")

	content := `
dataset_id: enwik8
context_window: 7
count:
  min_length: 3
  max_length: 24
  max_subsequence_length: 24
  min_frequency: 8
  subsequence_sample_rate: 0.5
  subsequence_prune_interval: 100000
  max_subsequence_entries: 500000
  subsequence_prune_threshold: 2
select:
  mdl_threshold: 0.1
  max_macro_units: 1000
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadTrainingConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.DatasetID != "enwik8" {
		t.Errorf("expected dataset_id 'enwik8', got %q", cfg.DatasetID)
	}
	if cfg.ContextOrder != 7 {
		t.Errorf("expected context_window 7, got %d", cfg.ContextOrder)
	}
	if cfg.Count.MinLen != 3 || cfg.Count.MaxLen != 24 {
		t.Errorf("unexpected count bounds: %+v", cfg.Count)
	}
	if cfg.Select.MaxMacroUnits != 1000 {
		t.Errorf("expected max_macro_units 1000, got %d", cfg.Select.MaxMacroUnits)
	}
}

func TestLoadTrainingConfigInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: yaml: content:"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	if _, err := LoadTrainingConfig(configPath); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestCountConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     CountConfig
		wantErr bool
	}{
		{
			name:    "min greater than max",
			cfg:     CountConfig{MinLen: 10, MaxLen: 2, SampleRate: 1, MaxEntries: 10, PruneInterval: 1},
			wantErr: true,
		},
		{
			name:    "sample rate out of range",
			cfg:     CountConfig{MinLen: 1, MaxLen: 2, SampleRate: 1.5, MaxEntries: 10, PruneInterval: 1},
			wantErr: true,
		},
		{
			name:    "zero max entries",
			cfg:     CountConfig{MinLen: 1, MaxLen: 2, SampleRate: 1, MaxEntries: 0, PruneInterval: 1},
			wantErr: true,
		},
		{
			name:    "valid",
			cfg:     CountConfig{MinLen: 1, MaxLen: 2, SampleRate: 1, MaxEntries: 10, PruneInterval: 1},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error but got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestTrainingConfigValidateContextOrder(t *testing.T) {
	cfg := DefaultTrainingConfig()
	cfg.ContextOrder = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for context_window < 1")
	}
}

func TestGenerationConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     GenerationConfig
		wantErr bool
	}{
		{"zero temperature", GenerationConfig{Temperature: 0, RepetitionPenalty: 1}, true},
		{"negative top_k", GenerationConfig{Temperature: 1, TopK: -1, RepetitionPenalty: 1}, true},
		{"penalty below one", GenerationConfig{Temperature: 1, RepetitionPenalty: 0.5}, true},
		{"valid", GenerationConfig{Temperature: 1, RepetitionPenalty: 1.2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error but got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestBudgetDuration(t *testing.T) {
	cfg := GenerationConfig{BudgetMs: 0}
	if cfg.BudgetDuration() != 0 {
		t.Errorf("expected zero duration when BudgetMs is 0")
	}
	cfg.BudgetMs = 20
	if cfg.BudgetDuration().Milliseconds() != 20 {
		t.Errorf("expected 20ms budget, got %v", cfg.BudgetDuration())
	}
}
