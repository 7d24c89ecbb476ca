package model

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"mum/internal/merr"
	"mum/internal/mum/ngram"
	"mum/internal/mum/token"
)

// Unmarshal parses an exported model from JSON and rejects any unknown
// version before the caller attempts to rebuild a live model from it.
func Unmarshal(data []byte) (*Export, error) {
	var e Export
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, merr.Format("model.Unmarshal", err)
	}
	if e.Version != CurrentVersion {
		return nil, merr.Content("model.Unmarshal", fmt.Errorf("unknown export version %d, want %d", e.Version, CurrentVersion))
	}
	return &e, nil
}

// FromJSON rebuilds a live *ngram.Model from an Export produced by ToJSON.
// Re-importing a Full-mode export and generating with the same seed
// reproduces identical output, since Full mode retains every count.
func FromJSON(e *Export) (*ngram.Model, error) {
	units, err := importMacroUnits(e.MacroUnits)
	if err != nil {
		return nil, err
	}
	m := ngram.NewModelWithDiscount(e.Order, units, e.Discount)
	m.SeqCount = e.Stats.SeqCount
	m.ByteCount = e.Stats.ByteCount

	for key, entries := range e.Ngrams {
		order, err := parseOrderKey(key)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			ctx, err := parseContext(entry.Context)
			if err != nil {
				return nil, err
			}
			for tokStr, count := range entry.Counts {
				id, err := strconv.ParseUint(tokStr, 10, 32)
				if err != nil {
					return nil, merr.Content("model.FromJSON", fmt.Errorf("invalid token id %q: %w", tokStr, err))
				}
				m.SetCount(order, ctx, token.ID(id), count)
			}
		}
	}
	return m, nil
}

func importMacroUnits(units []MacroUnitJSON) ([]token.MacroUnit, error) {
	out := make([]token.MacroUnit, len(units))
	for i, u := range units {
		b, err := base64.StdEncoding.DecodeString(u.PatternB64)
		if err != nil {
			return nil, merr.Content("model.importMacroUnits", fmt.Errorf("macro unit %d: invalid pattern encoding: %w", u.ID, err))
		}
		out[i] = token.MacroUnit{
			ID:       u.ID,
			Bytes:    b,
			Count:    u.Count,
			MDLScore: u.MDLScore,
			Length:   u.Length,
		}
	}
	return out, nil
}

func parseOrderKey(key string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(key, "order_%d", &n); err != nil {
		return 0, merr.Content("model.parseOrderKey", fmt.Errorf("malformed order key %q", key))
	}
	return n, nil
}

func parseContext(s string) ([]token.ID, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]token.ID, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, merr.Content("model.parseContext", fmt.Errorf("invalid context token id %q: %w", p, err))
		}
		ids[i] = token.ID(v)
	}
	return ids, nil
}
