package generator

import (
	"bytes"
	"testing"
	"time"

	"mum/internal/mum/ngram"
)

func trainedModel() *ngram.Model {
	m := ngram.NewModel(3, nil)
	for i := 0; i < 30; i++ {
		m.Accumulate([]byte("abcabcabcabcabcabcabc"))
	}
	return m
}

func TestGenerateRespectsMaxTokens(t *testing.T) {
	m := trainedModel()
	seed := int64(42)
	res := Generate([]byte("abc"), m, Opts{
		MaxTokens:         16,
		Temperature:       1.0,
		RepetitionPenalty: 1.0,
		Seed:              &seed,
	})
	if len(res.Bytes) > 16 {
		t.Errorf("emitted %d bytes, want <= 16", len(res.Bytes))
	}
	if res.TimedOut {
		t.Errorf("unexpected timeout with no budget set")
	}
}

func TestGenerateDeterministicWithSeed(t *testing.T) {
	m := trainedModel()
	seed := int64(42)
	opts := Opts{MaxTokens: 32, Temperature: 1.0, RepetitionPenalty: 1.0, Seed: &seed}

	r1 := Generate([]byte("Once upon a time"), m, opts)
	r2 := Generate([]byte("Once upon a time"), m, opts)

	if !bytes.Equal(r1.Bytes, r2.Bytes) {
		t.Errorf("expected byte-identical output across runs with a fixed seed, got %q vs %q", r1.Bytes, r2.Bytes)
	}
}

func TestGenerateBudgetExhaustionSetsTimedOut(t *testing.T) {
	m := trainedModel()
	fakeNow := time.Unix(0, 0)
	calls := 0
	clk := func() time.Time {
		calls++
		if calls > 2 {
			fakeNow = fakeNow.Add(5 * time.Millisecond)
		}
		return fakeNow
	}
	res := generate([]byte("abc"), m, Opts{
		MaxTokens:         1_000_000,
		Temperature:       1.0,
		RepetitionPenalty: 1.0,
		Budget:            10 * time.Millisecond,
	}, clk)
	if !res.TimedOut {
		t.Errorf("expected timed_out=true when budget is exceeded")
	}
}

func TestGenerateWithRepetitionPenaltyEmitsTokens(t *testing.T) {
	m := trainedModel()
	seed := int64(7)
	res := Generate([]byte("a"), m, Opts{
		MaxTokens:         64,
		Temperature:       1.0,
		RepetitionPenalty: 4.0,
		Seed:              &seed,
	})
	if len(res.EmittedTokens) == 0 {
		t.Fatalf("expected some tokens emitted")
	}
}

func TestGenerateCompressionRatioPositive(t *testing.T) {
	m := trainedModel()
	seed := int64(3)
	res := Generate([]byte("abc"), m, Opts{
		MaxTokens:         20,
		Temperature:       1.0,
		RepetitionPenalty: 1.0,
		Seed:              &seed,
	})
	if len(res.Bytes) > 0 && res.CompressionRatio <= 0 {
		t.Errorf("expected positive compression ratio, got %v", res.CompressionRatio)
	}
}
