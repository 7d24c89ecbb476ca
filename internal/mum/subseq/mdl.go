package subseq

import (
	"bytes"
	"sort"

	"mum/internal/config"
	"mum/internal/mum/token"
)

// overheadBits is the fixed per-entry cost of recording a macro-unit in the
// dictionary itself: its length prefix plus its assigned id, charged once
// regardless of how often the pattern recurs.
const overheadBits = 16

// candidate is a scored subsequence awaiting the acceptance test.
type candidate struct {
	pattern []byte
	count   uint64
	score   float64
}

// SelectMacroUnits scores every subsequence in c's table under a minimum
// description length criterion and returns the accepted macro-units in
// final selection order (highest score first, id 0 is the first selected).
//
// The score for a candidate of length L observed k times is
// (savings - cost) / N, where savings is the number of bits saved by
// replacing each of the k occurrences with a single token reference
// (k*(L-1) bytes, at 8 bits/byte), cost is the one-time bits needed to
// record the pattern in the dictionary (L*8 + overheadBits), and N is the
// total bit-volume of every subsequence left in the table after
// finalisation, accepted or not. A
// candidate is accepted when its score clears MDLThreshold and its count
// clears MinFrequency; ties are broken lexicographically on the pattern
// bytes so selection order is deterministic given a fixed table.
func SelectMacroUnits(c *Counter, cfg config.SelectConfig) []token.MacroUnit {
	if c.state != stateFinalised {
		c.Finalise()
	}
	defer c.markSelected()

	var totalBits float64
	c.table.Each(func(pattern []byte, count uint64) {
		totalBits += float64(count) * float64(len(pattern)) * 8
	})
	if totalBits <= 0 {
		return nil
	}

	var candidates []candidate
	c.table.Each(func(pattern []byte, count uint64) {
		if count < c.cfg.MinFrequency {
			return
		}
		l := len(pattern)
		savings := float64(count) * float64(l-1) * 8
		cost := float64(l)*8 + overheadBits
		score := (savings - cost) / totalBits
		if score < cfg.MDLThreshold {
			return
		}
		p := make([]byte, l)
		copy(p, pattern)
		candidates = append(candidates, candidate{pattern: p, count: count, score: score})
	})

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return bytes.Compare(candidates[i].pattern, candidates[j].pattern) < 0
	})

	if cfg.MaxMacroUnits > 0 && len(candidates) > cfg.MaxMacroUnits {
		candidates = candidates[:cfg.MaxMacroUnits]
	}

	units := make([]token.MacroUnit, len(candidates))
	for i, cand := range candidates {
		units[i] = token.MacroUnit{
			ID:       uint32(i),
			Bytes:    cand.pattern,
			Count:    cand.count,
			MDLScore: cand.score,
			Length:   uint32(len(cand.pattern)),
		}
	}
	return units
}
