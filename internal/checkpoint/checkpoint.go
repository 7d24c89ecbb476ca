// Package checkpoint implements periodic atomic snapshots of training
// training state sufficient to restart a run without re-ingesting from the
// beginning.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"mum/internal/config"
	"mum/internal/merr"
	"mum/internal/model"
	"mum/internal/mum/ngram"
	"mum/internal/mum/subseq"
	"mum/internal/mum/token"
)

// CurrentVersion is the only checkpoint schema version this implementation
// writes or accepts.
const CurrentVersion = 1

// StreamState records how much of the input stream has been consumed, so
// resumed ingestion can skip already-processed sequences.
type StreamState struct {
	SequencesConsumed uint64 `json:"sequences_consumed"`
	BytesConsumed     uint64 `json:"bytes_consumed"`
}

// subsequenceEntry is one row of a serialised subseq.Table.
type subsequenceEntry struct {
	PatternB64 string `json:"pattern_b64"`
	Count      uint64 `json:"count"`
}

// Checkpoint is the on-disk tuple { version, dataset_id, model_id, state,
// subsequence_config, subsequence_counts, partial_model }.
type Checkpoint struct {
	Version           int                 `json:"version"`
	DatasetID         string              `json:"dataset_id"`
	ModelID           string              `json:"model_id"`
	State             StreamState         `json:"state"`
	SubsequenceConfig config.CountConfig  `json:"subsequence_config"`
	SubsequenceCounts []subsequenceEntry  `json:"subsequence_counts"`
	PartialModel      *model.Export       `json:"partial_model"`
}

// Build assembles a Checkpoint from the current training state. counter may
// be nil if counting has already finished (counting phase complete, only
// accumulation remains) — in that case SubsequenceCounts is empty.
func Build(datasetID, modelID string, state StreamState, countCfg config.CountConfig, counter *subseq.Counter, m *ngram.Model) *Checkpoint {
	var entries []subsequenceEntry
	if counter != nil {
		counter.Table().Each(func(pattern []byte, count uint64) {
			entries = append(entries, subsequenceEntry{
				PatternB64: encodeB64(pattern),
				Count:      count,
			})
		})
	}
	return &Checkpoint{
		Version:           CurrentVersion,
		DatasetID:         datasetID,
		ModelID:           modelID,
		State:             state,
		SubsequenceConfig: countCfg,
		SubsequenceCounts: entries,
		PartialModel:      model.ToJSON(m, config.ExportConfig{Full: true}),
	}
}

// Write atomically persists a checkpoint to path: it writes to a sibling
// temp file (named with a random uuid suffix so concurrent runs against the
// same path never collide) and renames it into place, so a crash mid-write
// never leaves a corrupt checkpoint at path.
func Write(path string, cp *Checkpoint) error {
	raw, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return merr.Format("checkpoint.Write", err)
	}
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return merr.IO("checkpoint.Write", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return merr.IO("checkpoint.Write", err)
	}
	return nil
}

// Load reads and parses a checkpoint file, rejecting an unknown version.
func Load(path string) (*Checkpoint, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, merr.IO("checkpoint.Load", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, merr.Format("checkpoint.Load", err)
	}
	if cp.Version != CurrentVersion {
		return nil, merr.Content("checkpoint.Load", fmt.Errorf("unknown checkpoint version %d, want %d", cp.Version, CurrentVersion))
	}
	return &cp, nil
}

// Resume validates that a loaded checkpoint belongs to the current run
// (matching dataset and model id) before the caller rebuilds state from it.
// A mismatch is a ContentError: resuming into the wrong run's checkpoint
// would silently corrupt state, so this fails the run instead.
func Resume(cp *Checkpoint, datasetID, modelID string) error {
	if cp.DatasetID != datasetID || cp.ModelID != modelID {
		return merr.Content("checkpoint.Resume", fmt.Errorf(
			"checkpoint belongs to dataset=%q model=%q, current run is dataset=%q model=%q",
			cp.DatasetID, cp.ModelID, datasetID, modelID))
	}
	return nil
}

// RestoreModel rebuilds the partial n-gram model carried by the checkpoint.
func RestoreModel(cp *Checkpoint) (*ngram.Model, error) {
	return model.FromJSON(cp.PartialModel)
}

// RestoreSubsequenceTable rebuilds a subseq.Table from the checkpoint's
// serialised entries, for a training run that resumes mid-counting.
func RestoreSubsequenceTable(cp *Checkpoint) (*subseq.Table, error) {
	tbl := subseq.NewTable()
	for _, e := range cp.SubsequenceCounts {
		pattern, err := decodeB64(e.PatternB64)
		if err != nil {
			return nil, merr.Content("checkpoint.RestoreSubsequenceTable", err)
		}
		tbl.SetCount(pattern, e.Count)
	}
	return tbl, nil
}

// Delete removes a checkpoint file after a successful final export. A
// missing file is not an error: deletion is idempotent.
func Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return merr.IO("checkpoint.Delete", err)
	}
	return nil
}

// MacroUnitsFrom is a convenience accessor for callers that only need the
// partial model's macro-unit dictionary (e.g. to keep the subsequence
// counter's dictionary in sync with the n-gram model across a resume).
func MacroUnitsFrom(cp *Checkpoint) []token.MacroUnit {
	if cp.PartialModel == nil {
		return nil
	}
	units := make([]token.MacroUnit, len(cp.PartialModel.MacroUnits))
	for i, u := range cp.PartialModel.MacroUnits {
		b, err := decodeB64(u.PatternB64)
		if err != nil {
			continue
		}
		units[i] = token.MacroUnit{ID: u.ID, Bytes: b, Count: u.Count, MDLScore: u.MDLScore, Length: u.Length}
	}
	return units
}
