package subseq

import (
	"math/rand"
	"testing"

	"mum/internal/config"
)

// record returns a SeqSource yielding data once as a single whole sequence,
// as the real pipeline does per input line; Counter.Ingest is responsible
// for windowing it into countable-length substrings.
func record(data []byte) SeqSource {
	done := false
	return func() ([]byte, bool, error) {
		if done {
			return nil, false, nil
		}
		done = true
		return data, true, nil
	}
}

func newTestCounter(t *testing.T, cfg config.CountConfig) *Counter {
	t.Helper()
	c, err := NewCounter(cfg, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("NewCounter: %v", err)
	}
	return c
}

func TestCounterIngestCountsRepeatedSubsequence(t *testing.T) {
	cfg := config.DefaultCountConfig()
	cfg.MinLen = 2
	cfg.MaxLen = 3
	cfg.MinFrequency = 1
	c := newTestCounter(t, cfg)

	if err := c.Ingest(record([]byte("abcabcabc"))); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if got := c.Table().Count([]byte("abc")); got != 3 {
		t.Errorf("Count(abc) = %d, want 3", got)
	}
}

func TestCounterIngestAfterFinaliseFails(t *testing.T) {
	cfg := config.DefaultCountConfig()
	c := newTestCounter(t, cfg)
	c.Finalise()
	if err := c.Ingest(record([]byte("ab"))); err == nil {
		t.Errorf("expected error ingesting into a finalised counter")
	}
}

func TestCounterFinaliseDropsBelowMinFrequency(t *testing.T) {
	cfg := config.DefaultCountConfig()
	cfg.MinLen, cfg.MaxLen = 2, 2
	cfg.MinFrequency = 2
	c := newTestCounter(t, cfg)
	if err := c.Ingest(record([]byte("abzzzz"))); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	c.Finalise()
	if c.Table().Count([]byte("ab")) != 0 {
		t.Errorf("expected singleton 'ab' dropped on finalise")
	}
}

func TestCounterLowSampleRateDropsMostObservations(t *testing.T) {
	cfg := config.DefaultCountConfig()
	cfg.MinLen, cfg.MaxLen = 1, 1
	cfg.SampleRate = 0.0001
	c, err := NewCounter(cfg, rand.New(rand.NewSource(99)))
	if err != nil {
		t.Fatalf("NewCounter: %v", err)
	}
	if err := c.Ingest(record([]byte("aaaaaaaaaa"))); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if c.Table().Count([]byte("a")) >= 10 {
		t.Errorf("expected sampling to drop most observations, got %d", c.Table().Count([]byte("a")))
	}
}

func TestCounterPruneBoundsMaxEntries(t *testing.T) {
	cfg := config.DefaultCountConfig()
	cfg.MinLen, cfg.MaxLen = 2, 2
	cfg.MaxEntries = 4
	cfg.PruneInterval = 1
	cfg.PruneThresholdStart = 1
	c := newTestCounter(t, cfg)

	data := make([]byte, 0, 512)
	for i := 0; i < 256; i++ {
		data = append(data, byte(i), byte(i+1))
	}
	if err := c.Ingest(record(data)); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if c.Table().Len() > cfg.MaxEntries*4 {
		t.Errorf("table grew unbounded: len=%d", c.Table().Len())
	}
}
