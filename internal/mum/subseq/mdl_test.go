package subseq

import (
	"math/rand"
	"testing"

	"mum/internal/config"
)

// TestSelectMacroUnitsCompressesRepeatedPattern is scenario S1: a trivially
// repetitive input should yield "abc" as the top-scoring macro-unit.
func TestSelectMacroUnitsCompressesRepeatedPattern(t *testing.T) {
	countCfg := config.DefaultCountConfig()
	countCfg.MinLen, countCfg.MaxLen = 2, 3
	countCfg.MinFrequency = 2

	c, err := NewCounter(countCfg, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("NewCounter: %v", err)
	}
	data := []byte("abcabcabc")
	if err := c.Ingest(record(data)); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	selectCfg := config.DefaultSelectConfig()
	selectCfg.MDLThreshold = 0.0
	units := SelectMacroUnits(c, selectCfg)

	if len(units) == 0 {
		t.Fatalf("expected at least one selected macro-unit")
	}
	if string(units[0].Bytes) != "abc" {
		t.Errorf("expected top macro-unit to be %q, got %q (score %v)", "abc", units[0].Bytes, units[0].MDLScore)
	}
	if units[0].ID != 0 {
		t.Errorf("expected top macro-unit id 0, got %d", units[0].ID)
	}
	for i := 1; i < len(units); i++ {
		if units[i].MDLScore > units[i-1].MDLScore {
			t.Errorf("units not sorted descending by score at index %d", i)
		}
		if units[i].ID != uint32(i) {
			t.Errorf("expected dense id %d, got %d", i, units[i].ID)
		}
	}
}

// TestSelectMacroUnitsNoPatternYieldsNone is scenario S2: 256 distinct
// singleton bytes have no recurring subsequence, so nothing clears
// MinFrequency and no macro-units are selected.
func TestSelectMacroUnitsNoPatternYieldsNone(t *testing.T) {
	countCfg := config.DefaultCountConfig()
	countCfg.MinLen, countCfg.MaxLen = 2, 2
	countCfg.MinFrequency = 4

	c, err := NewCounter(countCfg, rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatalf("NewCounter: %v", err)
	}
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	if err := c.Ingest(record(data)); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	selectCfg := config.DefaultSelectConfig()
	units := SelectMacroUnits(c, selectCfg)
	if len(units) != 0 {
		t.Errorf("expected zero macro-units for non-repeating input, got %d", len(units))
	}
}

func TestSelectMacroUnitsRespectsMaxMacroUnits(t *testing.T) {
	countCfg := config.DefaultCountConfig()
	countCfg.MinLen, countCfg.MaxLen = 2, 2
	countCfg.MinFrequency = 1

	c, err := NewCounter(countCfg, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("NewCounter: %v", err)
	}
	data := []byte("aabbccddeeff")
	if err := c.Ingest(record(data)); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	selectCfg := config.DefaultSelectConfig()
	selectCfg.MDLThreshold = -10
	selectCfg.MaxMacroUnits = 2
	units := SelectMacroUnits(c, selectCfg)
	if len(units) > 2 {
		t.Errorf("expected at most 2 macro-units, got %d", len(units))
	}
}
