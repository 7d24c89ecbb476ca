// Package generator implements bounded sampling from a trained n-gram
// model under a temperature/top-K/repetition-penalty policy and a
// wall-clock budget.
package generator

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"mum/internal/mum/ngram"
	"mum/internal/mum/token"
)

// RepetitionWindow is W, the number of most-recently emitted tokens the
// repetition penalty looks back over. Left as a named constant per the
// implementation note that the source's window size is implicit.
const RepetitionWindow = 32

// Opts mirrors GenOpts: the sampling policy and stopping conditions for a
// single generation call.
type Opts struct {
	MaxTokens         int
	Temperature       float64
	TopK              int
	RepetitionPenalty float64
	Budget            time.Duration // 0 disables the wall-clock budget
	Seed              *int64
}

// Result mirrors GenResult.
type Result struct {
	Bytes            []byte
	EmittedTokens    []token.ID
	TimedOut         bool
	CompressionRatio float64
	MacroUnitsUsed   []uint32
}

// clock lets tests substitute a deterministic time source; production
// callers use Generate, which wires in time.Now.
type clock func() time.Time

// Generate encodes prompt with model's dictionary and samples tokens until
// a stop condition is reached, decoding macro tokens back to bytes as it
// goes.
func Generate(prompt []byte, model *ngram.Model, opts Opts) Result {
	return generate(prompt, model, opts, time.Now)
}

func generate(prompt []byte, model *ngram.Model, opts Opts, now clock) Result {
	dict := model.Dictionary()
	promptTokens := dict.Encode(prompt)

	ctx := make([]token.ID, 0, len(promptTokens)+opts.MaxTokens)
	for _, t := range promptTokens {
		ctx = append(ctx, t.ID())
	}

	var rng *rand.Rand
	if opts.Seed != nil {
		rng = rand.New(rand.NewSource(*opts.Seed))
	} else {
		rng = rand.New(rand.NewSource(now().UnixNano()))
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1
	}

	start := now()
	var out []byte
	emitted := make([]token.ID, 0, maxTokens)
	macroUsed := map[uint32]struct{}{}
	timedOut := false

	for len(out) < maxTokens {
		if opts.Budget > 0 && now().Sub(start) >= opts.Budget {
			timedOut = true
			break
		}
		dist := model.NextTokenDistribution(ctx)
		dist = applyTemperature(dist, opts.Temperature)
		dist = applyRepetitionPenalty(dist, emitted, opts.RepetitionPenalty)
		dist = applyTopK(dist, opts.TopK)
		if len(dist) == 0 {
			break
		}

		id := sample(dist, rng)
		tok, ok := token.FromID(id, len(model.MacroUnits))
		if !ok {
			break
		}

		emitted = append(emitted, id)
		ctx = append(ctx, id)
		if tok.Kind == token.KindMacro {
			macroUsed[model.MacroUnits[tok.Macro].ID] = struct{}{}
			out = append(out, dict.Unit(tok.Macro).Bytes...)
		} else {
			out = append(out, tok.Byte)
		}
	}

	ratio := 0.0
	if len(out) > 0 {
		ratio = float64(len(emitted)) / float64(len(out))
	}
	units := make([]uint32, 0, len(macroUsed))
	for id := range macroUsed {
		units = append(units, id)
	}
	sort.Slice(units, func(i, j int) bool { return units[i] < units[j] })

	return Result{
		Bytes:            out,
		EmittedTokens:    emitted,
		TimedOut:         timedOut,
		CompressionRatio: ratio,
		MacroUnitsUsed:   units,
	}
}

// applyTemperature rescales log-probabilities by 1/temperature and
// re-exponentiates, clamping -inf logits (zero-probability tokens) so they
// stay at exactly zero rather than becoming NaN.
func applyTemperature(dist map[token.ID]float64, temperature float64) map[token.ID]float64 {
	out := make(map[token.ID]float64, len(dist))
	var sum float64
	for id, p := range dist {
		if p <= 0 {
			out[id] = 0
			continue
		}
		logit := math.Log(p) / temperature
		v := math.Exp(logit)
		out[id] = v
		sum += v
	}
	return normalize(out, sum)
}

// applyRepetitionPenalty divides the probability mass of any token seen in
// the last RepetitionWindow emissions by penalty, then renormalises.
func applyRepetitionPenalty(dist map[token.ID]float64, emitted []token.ID, penalty float64) map[token.ID]float64 {
	if penalty <= 1.0 {
		return dist
	}
	recent := emitted
	if len(recent) > RepetitionWindow {
		recent = recent[len(recent)-RepetitionWindow:]
	}
	seen := make(map[token.ID]struct{}, len(recent))
	for _, id := range recent {
		seen[id] = struct{}{}
	}
	out := make(map[token.ID]float64, len(dist))
	var sum float64
	for id, p := range dist {
		if _, penalised := seen[id]; penalised {
			p /= penalty
		}
		out[id] = p
		sum += p
	}
	return normalize(out, sum)
}

// applyTopK keeps only the topK highest-probability tokens (topK<=0 keeps
// everything), then renormalises.
func applyTopK(dist map[token.ID]float64, topK int) map[token.ID]float64 {
	if topK <= 0 || topK >= len(dist) {
		return dist
	}
	type kv struct {
		id token.ID
		p  float64
	}
	all := make([]kv, 0, len(dist))
	for id, p := range dist {
		all = append(all, kv{id, p})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].p != all[j].p {
			return all[i].p > all[j].p
		}
		return all[i].id < all[j].id
	})
	out := make(map[token.ID]float64, topK)
	var sum float64
	for i := 0; i < topK; i++ {
		out[all[i].id] = all[i].p
		sum += all[i].p
	}
	return normalize(out, sum)
}

func normalize(dist map[token.ID]float64, sum float64) map[token.ID]float64 {
	if sum <= 0 {
		return dist
	}
	for id, p := range dist {
		dist[id] = p / sum
	}
	return dist
}

// sample draws one token id from dist, iterating in ascending id order so
// that, for a given rng state, the draw is a deterministic function of the
// distribution's contents rather than of Go's unordered map iteration.
func sample(dist map[token.ID]float64, rng *rand.Rand) token.ID {
	ids := make([]token.ID, 0, len(dist))
	for id := range dist {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	r := rng.Float64()
	var cum float64
	for _, id := range ids {
		cum += dist[id]
		if r <= cum {
			return id
		}
	}
	return ids[len(ids)-1]
}
