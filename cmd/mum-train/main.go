// Command mum-train drives the full training pipeline end to end: it
// reads newline-delimited byte sequences from --input, discovers a
// macro-unit dictionary, accumulates a smoothed n-gram model over it, and
// writes the persisted cache/ artefacts consumed by mum-generate.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"mum/internal/config"
	"mum/internal/merr"
	"mum/internal/slug"
	"mum/internal/telemetry"
)

func main() {
	input := flag.String("input", "", "path to a newline-delimited input file (required)")
	datasetID := flag.String("dataset-id", "", "dataset id (derived from --tag if empty)")
	modelID := flag.String("model-id", "", "model id (derived from --tag if empty)")
	tag := flag.String("tag", "default", "human label folded into derived dataset/model ids")
	maxRecords := flag.Int("max-records", 0, "stop after this many input records (0 = unbounded)")
	maxBytes := flag.Int64("max-bytes", 0, "stop after this many total input bytes (0 = unbounded)")
	maxBytesPerRecord := flag.Int64("max-bytes-per-record", 0, "truncate any single record to this many bytes (0 = unbounded)")

	minFrequency := flag.Uint64("min-frequency", 0, "override CountConfig.min_frequency (0 = use default)")
	minLength := flag.Int("min-length", 0, "override CountConfig.min_length (0 = use default)")
	maxLength := flag.Int("max-length", 0, "override CountConfig.max_length (0 = use default)")
	contextWindow := flag.Int("context-window", 0, "K, the max n-gram order (0 = use default)")
	mdlThreshold := flag.Float64("mdl-threshold", 0, "override SelectConfig.mdl_threshold")
	maxMacroUnits := flag.Int("max-macro-units", 0, "override SelectConfig.max_macro_units (0 = use default)")
	maxNgramOrder := flag.Int("max-ngram-order", 0, "alias for --context-window")
	maxSubseqLen := flag.Int("max-subsequence-length", 0, "override CountConfig.max_subsequence_length")
	maxSubseqEntries := flag.Int("max-subsequence-entries", 0, "override CountConfig.max_subsequence_entries")
	subseqSampleRate := flag.Float64("subsequence-sample-rate", 0, "override CountConfig.subsequence_sample_rate")
	subseqPruneThreshold := flag.Uint64("subsequence-prune-threshold", 0, "override CountConfig.subsequence_prune_threshold")
	subseqPruneInterval := flag.Uint64("subsequence-prune-interval", 0, "override CountConfig.subsequence_prune_interval")

	exportMaxOrders := flag.Int("export-max-orders", 0, "override ExportConfig.max_orders")
	exportMaxMacroUnits := flag.Int("export-max-macro-units", 0, "override ExportConfig.max_macro_units")
	exportMinNgramCount := flag.Int("export-min-ngram-count", 0, "override ExportConfig.min_ngram_count")
	exportFull := flag.Bool("export-full", false, "export in Full mode (no pruning)")

	resume := flag.Bool("resume", false, "resume from an existing checkpoint")
	checkpointEvery := flag.Int("checkpoint-every", 0, "flush a checkpoint every N sequences (0 = use default)")
	checkpointPath := flag.String("checkpoint-path", "", "checkpoint file path (defaults under the model directory)")
	force := flag.Bool("force", false, "overwrite an existing model directory")
	cachePath := flag.String("cache-path", "", "root of the persisted cache/ directory (defaults to ./cache)")

	flag.Parse()

	if *input == "" {
		log.Fatalf("mum-train: --input is required")
	}

	cfg := config.DefaultTrainingConfig()
	applyTrainingOverrides(&cfg, trainingFlags{
		minFrequency: *minFrequency, minLength: *minLength, maxLength: *maxLength,
		contextWindow: *contextWindow, maxNgramOrder: *maxNgramOrder, mdlThreshold: *mdlThreshold,
		maxMacroUnits: *maxMacroUnits, maxSubseqLen: *maxSubseqLen, maxSubseqEntries: *maxSubseqEntries,
		subseqSampleRate: *subseqSampleRate, subseqPruneThreshold: *subseqPruneThreshold,
		subseqPruneInterval: *subseqPruneInterval, exportMaxOrders: *exportMaxOrders,
		exportMaxMacroUnits: *exportMaxMacroUnits, exportMinNgramCount: *exportMinNgramCount,
		exportFull: *exportFull, checkpointEvery: *checkpointEvery,
	})
	if *cachePath != "" {
		cfg.CachePath = *cachePath
	}
	cfg.Resume = *resume
	cfg.Force = *force
	cfg.MaxRecords = *maxRecords
	cfg.MaxBytes = *maxBytes
	cfg.MaxBytesRec = *maxBytesPerRecord
	if err := cfg.Validate(); err != nil {
		log.Fatalf("mum-train: invalid configuration: %v", err)
	}

	fingerprint := slug.Fingerprint(
		"min_length="+strconv.Itoa(cfg.Count.MinLen),
		"max_length="+strconv.Itoa(cfg.Count.MaxLen),
		"min_frequency="+strconv.FormatUint(cfg.Count.MinFrequency, 10),
		"context_window="+strconv.Itoa(cfg.ContextOrder),
		"mdl_threshold="+strconv.FormatFloat(cfg.Select.MDLThreshold, 'g', -1, 64),
	)
	cfg.DatasetID = *datasetID
	if cfg.DatasetID == "" {
		cfg.DatasetID = slug.DatasetID(*tag, fingerprint)
	}
	cfg.ModelID = *modelID
	if cfg.ModelID == "" {
		cfg.ModelID = slug.ModelID(*tag, fingerprint)
	}

	l := newLayout(cfg.CachePath, "mum", cfg.DatasetID, cfg.ModelID)
	if *checkpointPath != "" {
		cfg.CheckpointPath = *checkpointPath
	} else {
		cfg.CheckpointPath = l.checkpointFile()
	}

	if err := os.MkdirAll(l.modelDir(), 0o755); err != nil {
		log.Fatalf("mum-train: creating model directory: %v", err)
	}
	if !cfg.Force {
		if _, err := os.Stat(l.modelFile()); err == nil {
			log.Fatalf("mum-train: model already exists at %s (use --force to overwrite)", l.modelFile())
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tlog, err := telemetry.NewLog(filepath.Join(cfg.CachePath, "telemetry"))
	if err != nil {
		log.Fatalf("mum-train: initializing telemetry: %v", err)
	}
	runID, err := tlog.Start("train")
	if err != nil {
		log.Fatalf("mum-train: starting telemetry run: %v", err)
	}
	defer tlog.Close()

	startedAt := time.Now()
	if err := run(ctx, *input, cfg, l, tlog, runID); err != nil {
		if merr.Is(err, merr.KindCancel) {
			log.Printf("mum-train: cancelled: %v", err)
			os.Exit(1)
		}
		log.Fatalf("mum-train: %v", err)
	}
	log.Printf("mum-train: finished dataset=%s model=%s in %s", cfg.DatasetID, cfg.ModelID, time.Since(startedAt))
}

type trainingFlags struct {
	minFrequency                                       uint64
	minLength, maxLength, contextWindow, maxNgramOrder int
	mdlThreshold                                        float64
	maxMacroUnits, maxSubseqLen, maxSubseqEntries       int
	subseqSampleRate                                    float64
	subseqPruneThreshold, subseqPruneInterval           uint64
	exportMaxOrders, exportMaxMacroUnits                int
	exportMinNgramCount                                 int
	exportFull                                          bool
	checkpointEvery                                     int
}

func applyTrainingOverrides(cfg *config.TrainingConfig, f trainingFlags) {
	if f.minFrequency > 0 {
		cfg.Count.MinFrequency = f.minFrequency
	}
	if f.minLength > 0 {
		cfg.Count.MinLen = f.minLength
	}
	if f.maxLength > 0 {
		cfg.Count.MaxLen = f.maxLength
	}
	if f.contextWindow > 0 {
		cfg.ContextOrder = f.contextWindow
	}
	if f.maxNgramOrder > 0 {
		cfg.ContextOrder = f.maxNgramOrder
	}
	if f.mdlThreshold != 0 {
		cfg.Select.MDLThreshold = f.mdlThreshold
	}
	if f.maxMacroUnits > 0 {
		cfg.Select.MaxMacroUnits = f.maxMacroUnits
	}
	if f.maxSubseqLen > 0 {
		cfg.Count.MaxSubseqLen = f.maxSubseqLen
	}
	if f.maxSubseqEntries > 0 {
		cfg.Count.MaxEntries = f.maxSubseqEntries
	}
	if f.subseqSampleRate > 0 {
		cfg.Count.SampleRate = f.subseqSampleRate
	}
	if f.subseqPruneThreshold > 0 {
		cfg.Count.PruneThresholdStart = f.subseqPruneThreshold
	}
	if f.subseqPruneInterval > 0 {
		cfg.Count.PruneInterval = f.subseqPruneInterval
	}
	if f.exportMaxOrders > 0 {
		cfg.Export.MaxOrders = f.exportMaxOrders
	}
	if f.exportMaxMacroUnits > 0 {
		cfg.Export.MaxMacroUnits = f.exportMaxMacroUnits
	}
	if f.exportMinNgramCount > 0 {
		cfg.Export.MinNgramCount = f.exportMinNgramCount
	}
	if f.exportFull {
		cfg.Export.Full = true
	}
	if f.checkpointEvery > 0 {
		cfg.CheckpointEvery = f.checkpointEvery
	}
}
