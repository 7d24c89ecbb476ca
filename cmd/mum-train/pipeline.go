package main

import (
	"bufio"
	"context"
	"io"
	"math"
	"math/rand"
	"os"
	"time"

	"mum/internal/checkpoint"
	"mum/internal/config"
	"mum/internal/merr"
	"mum/internal/model"
	"mum/internal/mum/ngram"
	"mum/internal/mum/subseq"
	"mum/internal/mum/token"
	"mum/internal/telemetry"
)

// run executes the full pipeline: count -> select -> accumulate -> export,
// with periodic checkpoint flushes and an optional resume from a prior
// checkpoint.
func run(ctx context.Context, inputPath string, cfg config.TrainingConfig, l layout, tlog *telemetry.Log, runID string) error {
	var resumedTable *subseq.Table
	var resumedModel *ngram.Model
	var skipSequences uint64

	if cfg.Resume {
		cp, err := checkpoint.Load(cfg.CheckpointPath)
		if err != nil {
			return err
		}
		if err := checkpoint.Resume(cp, cfg.DatasetID, cfg.ModelID); err != nil {
			return err
		}
		resumedTable, err = checkpoint.RestoreSubsequenceTable(cp)
		if err != nil {
			return err
		}
		resumedModel, err = checkpoint.RestoreModel(cp)
		if err != nil {
			return err
		}
		skipSequences = cp.State.SequencesConsumed
		tlog.Log("training.resumed", map[string]uint64{"sequences_consumed": skipSequences})
	}

	counter, err := subseq.NewCounter(cfg.Count, rand.New(rand.NewSource(1)))
	if err != nil {
		return err
	}
	if resumedTable != nil {
		resumedTable.Each(func(pattern []byte, count uint64) { counter.Table().SetCount(pattern, count) })
	}

	// Counting pass: the subsequence counter ingests every sequence to build
	// the subsequence table. Checkpoints are only written during the
	// accumulation pass, after counting has finished, so a restored table
	// already reflects the whole input and no sequence is counted again.
	countSkip := skipSequences
	if resumedTable != nil {
		countSkip = math.MaxUint64
	}
	seqCount, byteCount, countErr := runCountingPass(ctx, inputPath, cfg, counter, countSkip)
	if countErr != nil {
		return countErr
	}
	tlog.Log("training.counting_complete", map[string]uint64{"sequences": seqCount, "bytes": byteCount})

	units := subseq.SelectMacroUnits(counter, cfg.Select)
	tlog.Log("training.macro_units_selected", map[string]int{"count": len(units)})

	m := resumedModel
	if m == nil {
		m = ngram.NewModel(cfg.ContextOrder, units)
	}

	// Accumulation pass: re-reads the input and folds n-gram counts over
	// the now-finalised macro-unit vocabulary.
	if _, err := runAccumulationPass(ctx, inputPath, cfg, counter, m, skipSequences, tlog); err != nil {
		return err
	}

	return finalizeExport(cfg, l, m, units, runID)
}

func runCountingPass(ctx context.Context, inputPath string, cfg config.TrainingConfig, counter *subseq.Counter, skipSequences uint64) (seqCount, byteCount uint64, err error) {
	records, closeFn, err := openRecords(inputPath, cfg.MaxRecords, cfg.MaxBytes, cfg.MaxBytesRec)
	if err != nil {
		return 0, 0, err
	}
	defer closeFn()

	ingestErr := counter.Ingest(func() ([]byte, bool, error) {
		select {
		case <-ctx.Done():
			return nil, false, merr.Cancel("mum-train.countingPass")
		default:
		}
		rec, ok, rerr := records()
		if rerr != nil || !ok {
			return nil, ok, rerr
		}
		seqCount++
		byteCount += uint64(len(rec))
		if seqCount <= skipSequences {
			return nil, true, nil // window already reflected in the resumed table
		}
		return rec, true, nil
	})
	return seqCount, byteCount, ingestErr
}

func runAccumulationPass(ctx context.Context, inputPath string, cfg config.TrainingConfig, counter *subseq.Counter, m *ngram.Model, skipSequences uint64, tlog *telemetry.Log) (uint64, error) {
	records, closeFn, err := openRecords(inputPath, cfg.MaxRecords, cfg.MaxBytes, cfg.MaxBytesRec)
	if err != nil {
		return 0, err
	}
	defer closeFn()

	var accumulated uint64
	for {
		select {
		case <-ctx.Done():
			_ = flushCheckpoint(cfg, counter, m, accumulated)
			return accumulated, merr.Cancel("mum-train.accumulationPass")
		default:
		}
		rec, ok, rerr := records()
		if rerr != nil {
			return accumulated, rerr
		}
		if !ok {
			break
		}
		accumulated++
		if accumulated <= skipSequences {
			continue
		}
		m.Accumulate(rec)
		if cfg.CheckpointEvery > 0 && accumulated%uint64(cfg.CheckpointEvery) == 0 {
			if err := flushCheckpoint(cfg, counter, m, accumulated); err != nil {
				return accumulated, err
			}
			tlog.Log("training.checkpoint_written", map[string]uint64{"sequences": accumulated})
		}
	}
	return accumulated, nil
}

func flushCheckpoint(cfg config.TrainingConfig, counter *subseq.Counter, m *ngram.Model, seqs uint64) error {
	cp := checkpoint.Build(cfg.DatasetID, cfg.ModelID, checkpoint.StreamState{
		SequencesConsumed: seqs,
		BytesConsumed:     m.ByteCount,
	}, cfg.Count, counter, m)
	return checkpoint.Write(cfg.CheckpointPath, cp)
}

func finalizeExport(cfg config.TrainingConfig, l layout, m *ngram.Model, units []token.MacroUnit, runID string) error {
	exported := model.ToJSON(m, cfg.Export)
	raw, err := model.Marshal(exported)
	if err != nil {
		return err
	}
	if err := writeFile(l.modelFile(), raw); err != nil {
		return err
	}
	if err := writeMeta(l, cfg, m, runID); err != nil {
		return err
	}
	if err := writeFacts(l, units, cfg.DatasetID, cfg.ModelID); err != nil {
		return err
	}
	if err := writeLatestPointers(l, cfg); err != nil {
		return err
	}
	return checkpoint.Delete(cfg.CheckpointPath)
}

func writeMeta(l layout, cfg config.TrainingConfig, m *ngram.Model, runID string) error {
	meta := map[string]interface{}{
		"engine":    "mum",
		"datasetId": cfg.DatasetID,
		"modelId":   cfg.ModelID,
		"trainedAt": time.Now().UTC().Format(time.RFC3339),
		"runId":     runID,
		"training":  cfg,
		"export":    cfg.Export,
		"stats":     map[string]uint64{"seqCount": m.SeqCount, "byteCount": m.ByteCount},
		"sequences": map[string]uint64{"count": m.SeqCount, "totalBytes": m.ByteCount},
	}
	return writeJSON(l.metaFile(), meta)
}

func writeLatestPointers(l layout, cfg config.TrainingConfig) error {
	if err := os.MkdirAll(l.datasetDir(), 0o755); err != nil {
		return merr.IO("mum-train.writeLatestPointers", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if err := writeJSON(l.datasetLatestFile(), map[string]string{"datasetId": cfg.DatasetID, "updatedAt": now}); err != nil {
		return err
	}
	return writeJSON(l.engineLatestFile(), map[string]string{"modelId": cfg.ModelID, "updatedAt": now})
}

// openRecords opens a newline-delimited input file and returns a pull
// source of records respecting maxRecords/maxBytes/maxBytesPerRecord.
func openRecords(path string, maxRecords int, maxBytes, maxBytesPerRecord int64) (func() ([]byte, bool, error), func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, func() {}, merr.IO("mum-train.openRecords", err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var recordsSeen int
	var bytesSeen int64
	next := func() ([]byte, bool, error) {
		if maxRecords > 0 && recordsSeen >= maxRecords {
			return nil, false, nil
		}
		if !scanner.Scan() {
			if serr := scanner.Err(); serr != nil && serr != io.EOF {
				return nil, false, merr.IO("mum-train.scan", serr)
			}
			return nil, false, nil
		}
		line := scanner.Bytes()
		if maxBytesPerRecord > 0 && int64(len(line)) > maxBytesPerRecord {
			line = line[:maxBytesPerRecord]
		}
		if maxBytes > 0 && bytesSeen+int64(len(line)) > maxBytes {
			return nil, false, nil
		}
		recordsSeen++
		bytesSeen += int64(len(line))
		out := make([]byte, len(line))
		copy(out, line)
		return out, true, nil
	}
	return next, func() { _ = f.Close() }, nil
}
