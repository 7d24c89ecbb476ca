// Command mum-generate loads a trained model exported by mum-train and
// samples bounded output from it under a temperature/top-K/repetition-
// penalty policy and an optional wall-clock budget.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"mum/internal/config"
	"mum/internal/merr"
	"mum/internal/model"
	"mum/internal/mum/generator"
	"mum/internal/mum/ngram"
	"mum/internal/telemetry"
)

func main() {
	modelPath := flag.String("model", "", "path to a model.json produced by mum-train (required)")
	prompt := flag.String("prompt", "", "prompt bytes, interpreted as UTF-8 text")
	maxTokens := flag.Int("max-tokens", 0, "stop once this many output bytes have been emitted (0 = use default)")
	temperature := flag.Float64("temperature", 0, "softmax temperature (0 = use default)")
	topK := flag.Int("top-k", 0, "keep only the top-K candidates each step (0 = unbounded)")
	repetitionPenalty := flag.Float64("repetition-penalty", 0, "penalty applied to recently emitted tokens (0 = use default)")
	budgetMs := flag.Int64("budget-ms", 0, "stop after this many wall-clock milliseconds (0 = unbounded)")
	seed := flag.Int64("seed", 0, "seed the sampler for reproducible output (0 = use wall-clock entropy)")
	seedSet := flag.Bool("seed-set", false, "set when --seed was explicitly provided, even as 0")
	cachePath := flag.String("cache-path", "", "root of the persisted cache/ directory, for telemetry (defaults to ./cache)")

	flag.Parse()

	if *modelPath == "" {
		log.Fatalf("mum-generate: --model is required")
	}

	cfg := config.DefaultGenerationConfig()
	cfg.Prompt = *prompt
	cfg.ModelPath = *modelPath
	if *maxTokens > 0 {
		cfg.MaxTokens = *maxTokens
	}
	if *temperature > 0 {
		cfg.Temperature = *temperature
	}
	if *topK > 0 {
		cfg.TopK = *topK
	}
	if *repetitionPenalty > 0 {
		cfg.RepetitionPenalty = *repetitionPenalty
	}
	if *budgetMs > 0 {
		cfg.BudgetMs = *budgetMs
	}
	if *seedSet || *seed != 0 {
		cfg.Seed = seed
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("mum-generate: invalid configuration: %v", err)
	}

	root := *cachePath
	if root == "" {
		root = config.CacheDirName
	}
	tlog, err := telemetry.NewLog(root + "/telemetry")
	if err != nil {
		log.Fatalf("mum-generate: initializing telemetry: %v", err)
	}
	runID, err := tlog.Start("generate")
	if err != nil {
		log.Fatalf("mum-generate: starting telemetry run: %v", err)
	}
	defer tlog.Close()

	m, err := loadModel(cfg.ModelPath)
	if err != nil {
		log.Fatalf("mum-generate: %v", err)
	}
	tlog.Log("generation.model_loaded", map[string]string{"path": cfg.ModelPath})

	opts := generator.Opts{
		MaxTokens:         cfg.MaxTokens,
		Temperature:       cfg.Temperature,
		TopK:              cfg.TopK,
		RepetitionPenalty: cfg.RepetitionPenalty,
		Budget:            cfg.BudgetDuration(),
		Seed:              cfg.Seed,
	}

	started := time.Now()
	result := generator.Generate([]byte(cfg.Prompt), m, opts)
	elapsed := time.Since(started)

	tlog.Log("generation.complete", map[string]interface{}{
		"run_id":            runID,
		"emitted_tokens":    len(result.EmittedTokens),
		"timed_out":         result.TimedOut,
		"compression_ratio": result.CompressionRatio,
		"duration_ms":       elapsed.Milliseconds(),
	})

	if err := emit(result); err != nil {
		log.Fatalf("mum-generate: %v", err)
	}
	if result.TimedOut {
		fmt.Fprintf(os.Stderr, "mum-generate: budget exhausted after %s, %d tokens emitted\n", elapsed, len(result.EmittedTokens))
	}
}

func loadModel(path string) (*ngram.Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, merr.IO("mum-generate.loadModel", err)
	}
	exported, err := model.Unmarshal(raw)
	if err != nil {
		return nil, err
	}
	m, err := model.FromJSON(exported)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func emit(result generator.Result) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"text":             string(result.Bytes),
		"emittedTokens":    len(result.EmittedTokens),
		"timedOut":         result.TimedOut,
		"compressionRatio": result.CompressionRatio,
		"macroUnitsUsed":   result.MacroUnitsUsed,
	})
}
