// Package model implements deterministic JSON export/import of a
// trained n-gram model, in Compact or Full mode.
package model

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"mum/internal/config"
	"mum/internal/merr"
	"mum/internal/mum/ngram"
	"mum/internal/mum/token"
)

// CurrentVersion is the only export schema version this implementation
// produces or accepts.
const CurrentVersion = 2

// MacroUnitJSON is the wire shape of a token.MacroUnit. Pattern bytes are
// base64-encoded since macro-unit patterns are arbitrary bytes, not valid
// UTF-8 in general.
type MacroUnitJSON struct {
	ID        uint32  `json:"id"`
	PatternB64 string `json:"pattern_b64"`
	Count     uint64  `json:"count"`
	MDLScore  float64 `json:"mdl_score"`
	Length    uint32  `json:"length"`
}

// NgramEntryJSON is one context's observed next-token counts. Context is a
// comma-joined string of token ids, per the export contract.
type NgramEntryJSON struct {
	Context string           `json:"context"`
	Counts  map[string]uint64 `json:"counts"` // token id (decimal) -> count
}

// StatsJSON carries the handful of running totals alongside the model.
type StatsJSON struct {
	SeqCount  uint64 `json:"seq_count"`
	ByteCount uint64 `json:"byte_count"`
}

// Export is the top-level exported structure: { version, macro_units,
// ngrams, stats }.
type Export struct {
	Version       int                         `json:"version"`
	ByteVocabSize int                         `json:"byte_vocab_size"`
	Discount      float64                     `json:"discount"`
	Order         int                         `json:"order"`
	MacroUnits    []MacroUnitJSON             `json:"macro_units"`
	Ngrams        map[string][]NgramEntryJSON `json:"ngrams"` // "order_1".."order_K"
	Stats         StatsJSON                   `json:"stats"`
}

// ToJSON exports m according to cfg: Compact mode caps macro-units (highest
// MDL score kept), caps n-gram orders, and drops low-count entries;
// Full mode (cfg.Full) applies no pruning.
func ToJSON(m *ngram.Model, cfg config.ExportConfig) *Export {
	units := selectMacroUnits(m.MacroUnits, cfg)
	maxOrder := m.Order
	if !cfg.Full && cfg.MaxOrders > 0 && cfg.MaxOrders < maxOrder {
		maxOrder = cfg.MaxOrders
	}
	minCount := uint64(0)
	if !cfg.Full {
		minCount = uint64(cfg.MinNgramCount)
	}

	out := &Export{
		Version:       CurrentVersion,
		ByteVocabSize: token.ByteVocabSize,
		Discount:      m.Discount,
		Order:         m.Order,
		MacroUnits:    exportMacroUnits(units),
		Ngrams:        make(map[string][]NgramEntryJSON, maxOrder),
		Stats:         StatsJSON{SeqCount: m.SeqCount, ByteCount: m.ByteCount},
	}

	for n := 1; n <= maxOrder; n++ {
		key := orderKey(n)
		byCtx := make(map[string]map[string]uint64)
		m.EachCount(n, func(ctx []token.ID, tok token.ID, count uint64) {
			if count < minCount {
				return
			}
			ctxKey := joinContext(ctx)
			row, ok := byCtx[ctxKey]
			if !ok {
				row = make(map[string]uint64)
				byCtx[ctxKey] = row
			}
			row[strconv.FormatUint(uint64(tok), 10)] = count
		})
		entries := make([]NgramEntryJSON, 0, len(byCtx))
		for ctxKey, counts := range byCtx {
			if len(counts) == 0 {
				continue
			}
			entries = append(entries, NgramEntryJSON{Context: ctxKey, Counts: counts})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Context < entries[j].Context })
		out.Ngrams[key] = entries
	}
	return out
}

// Marshal serialises an Export to canonical indented JSON.
func Marshal(e *Export) ([]byte, error) {
	b, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return nil, merr.Format("model.Marshal", err)
	}
	return b, nil
}

func selectMacroUnits(units []token.MacroUnit, cfg config.ExportConfig) []token.MacroUnit {
	if cfg.Full || cfg.MaxMacroUnits <= 0 || cfg.MaxMacroUnits >= len(units) {
		return units
	}
	sorted := make([]token.MacroUnit, len(units))
	copy(sorted, units)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MDLScore > sorted[j].MDLScore })
	return sorted[:cfg.MaxMacroUnits]
}

func exportMacroUnits(units []token.MacroUnit) []MacroUnitJSON {
	out := make([]MacroUnitJSON, len(units))
	for i, u := range units {
		out[i] = MacroUnitJSON{
			ID:         u.ID,
			PatternB64: base64.StdEncoding.EncodeToString(u.Bytes),
			Count:      u.Count,
			MDLScore:   u.MDLScore,
			Length:     u.Length,
		}
	}
	return out
}

func orderKey(n int) string { return fmt.Sprintf("order_%d", n) }

func joinContext(ctx []token.ID) string {
	if len(ctx) == 0 {
		return ""
	}
	parts := make([]string, len(ctx))
	for i, id := range ctx {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ",")
}
