// Package ngram implements a variable-order n-gram accumulator with
// interpolated Kneser-Ney-style back-off smoothing over the mixed
// byte/macro-unit vocabulary produced by package token.
package ngram

import (
	"encoding/binary"
	"math"

	"mum/internal/mum/token"
)

// DefaultDiscount is the fixed Kneser-Ney discount applied at every order.
// The exact value is deliberately an implementation choice (there is no
// single correct constant); 0.75 is the textbook default for interpolated
// Kneser-Ney and is what this implementation commits to.
const DefaultDiscount = 0.75

// orderTable holds the raw counts for a single n-gram order. counts maps a
// context key (the encoding of an ordered tuple of n-1 token ids) to a
// mapping from next-token id to observed count; totals caches the row sum
// of each context so probability queries don't re-sum it every call.
type orderTable struct {
	counts map[string]map[token.ID]uint64
	totals map[string]uint64
}

func newOrderTable() *orderTable {
	return &orderTable{
		counts: make(map[string]map[token.ID]uint64),
		totals: make(map[string]uint64),
	}
}

// Model is the n-gram model: per-order count tables over the vocabulary
// fixed by macroUnits, plus the handful of running stats exported
// alongside it.
type Model struct {
	Order      int
	VocabSize  int
	Discount   float64
	MacroUnits []token.MacroUnit

	dict   *token.Dictionary
	tables []*orderTable // tables[n] holds order-n counts, for n in [1, Order]; tables[0] unused

	SeqCount  uint64
	ByteCount uint64
}

// NewModel constructs an empty model for the given maximum order K and
// macro-unit vocabulary, using DefaultDiscount.
func NewModel(order int, macroUnits []token.MacroUnit) *Model {
	return NewModelWithDiscount(order, macroUnits, DefaultDiscount)
}

// NewModelWithDiscount is NewModel with an explicit discount, for callers
// (tests, exported-model reload) that need to pin a specific value.
func NewModelWithDiscount(order int, macroUnits []token.MacroUnit, discount float64) *Model {
	m := &Model{
		Order:      order,
		VocabSize:  token.ByteVocabSize + len(macroUnits),
		Discount:   discount,
		MacroUnits: macroUnits,
		dict:       token.NewDictionary(macroUnits),
		tables:     make([]*orderTable, order+1),
	}
	for n := 1; n <= order; n++ {
		m.tables[n] = newOrderTable()
	}
	return m
}

// Dictionary exposes the model's macro-unit segmentation dictionary, e.g.
// for the generator to decode sampled tokens back to bytes.
func (m *Model) Dictionary() *token.Dictionary { return m.dict }

// EachCount calls fn once per (context, token, count) triple recorded at
// the given order. Used by the export/import layer, which has no need to
// know how contexts are keyed internally.
func (m *Model) EachCount(order int, fn func(ctx []token.ID, tok token.ID, count uint64)) {
	if order < 1 || order > m.Order {
		return
	}
	tbl := m.tables[order]
	for key, row := range tbl.counts {
		ctx := decodeContextKey(key)
		for tok, c := range row {
			fn(ctx, tok, c)
		}
	}
}

// SetCount installs a single (context, token, count) triple at the given
// order, used when rebuilding a model from an imported export. Counts for
// the same (order, context) accumulate into the context's cached total.
func (m *Model) SetCount(order int, ctx []token.ID, tok token.ID, count uint64) {
	if order < 1 || order > m.Order {
		return
	}
	tbl := m.tables[order]
	key := contextKey(ctx)
	row, ok := tbl.counts[key]
	if !ok {
		row = make(map[token.ID]uint64)
		tbl.counts[key] = row
	}
	row[tok] = count
	tbl.totals[key] += count
}

// decodeContextKey reverses contextKey, recovering the ordered token ids.
func decodeContextKey(key string) []token.ID {
	raw := []byte(key)
	ids := make([]token.ID, len(raw)/4)
	for i := range ids {
		ids[i] = token.ID(binary.BigEndian.Uint32(raw[i*4 : i*4+4]))
	}
	return ids
}

// contextKey encodes an ordered tuple of token ids as a fixed-width binary
// string. Fixed-width (4 bytes per id) avoids any delimiter ambiguity.
func contextKey(ctx []token.ID) string {
	buf := make([]byte, 4*len(ctx))
	for i, id := range ctx {
		binary.BigEndian.PutUint32(buf[i*4:], uint32(id))
	}
	return string(buf)
}

// Accumulate encodes seq with the model's macro-unit dictionary and folds
// it into every order's count tables: for each order n in [1, Order], each
// position contributes one (context, token) observation. A zero-length seq
// is skipped silently.
func (m *Model) Accumulate(seq []byte) {
	if len(seq) == 0 {
		return
	}
	toks := m.dict.Encode(seq)
	ids := make([]token.ID, len(toks))
	for i, t := range toks {
		ids[i] = t.ID()
	}
	m.accumulateIDs(ids)
	m.SeqCount++
	m.ByteCount += uint64(len(seq))
}

func (m *Model) accumulateIDs(ids []token.ID) {
	T := len(ids)
	for n := 1; n <= m.Order; n++ {
		tbl := m.tables[n]
		for t := n - 1; t < T; t++ {
			ctx := ids[t-(n-1) : t]
			tok := ids[t]
			key := contextKey(ctx)
			row, ok := tbl.counts[key]
			if !ok {
				row = make(map[token.ID]uint64)
				tbl.counts[key] = row
			}
			row[tok]++
			tbl.totals[key]++
		}
	}
}

// probability computes the interpolated Kneser-Ney estimate of tok given a
// context of exactly n-1 ids, recursing to shorter contexts and ultimately
// to a uniform distribution at order 1.
func (m *Model) probability(tok token.ID, ctx []token.ID, n int) float64 {
	if n <= 1 {
		return 1.0 / float64(m.VocabSize)
	}
	tbl := m.tables[n]
	key := contextKey(ctx)
	total, ok := tbl.totals[key]
	if !ok || total == 0 {
		return m.probability(tok, ctx[1:], n-1)
	}
	row := tbl.counts[key]
	c := row[tok]
	discounted := math.Max(float64(c)-m.Discount, 0) / float64(total)
	continuationDiversity := float64(len(row))
	lambda := m.Discount * continuationDiversity / float64(total)
	return discounted + lambda*m.probability(tok, ctx[1:], n-1)
}

// effectiveContext trims ctx to the longest suffix usable at the model's
// order, returning that suffix and the order it corresponds to.
func (m *Model) effectiveContext(ctx []token.ID) ([]token.ID, int) {
	order := m.Order
	if len(ctx)+1 < order {
		order = len(ctx) + 1
	}
	if order < 1 {
		order = 1
	}
	trimmed := ctx
	if len(trimmed) > order-1 {
		trimmed = trimmed[len(trimmed)-(order-1):]
	}
	return trimmed, order
}

// NextTokenDistribution returns P(x|ctx) for every token x in the full
// vocabulary, normalised to sum to 1.
func (m *Model) NextTokenDistribution(ctx []token.ID) map[token.ID]float64 {
	trimmed, order := m.effectiveContext(ctx)
	dist := make(map[token.ID]float64, m.VocabSize)
	var sum float64
	for id := 0; id < m.VocabSize; id++ {
		p := m.probability(token.ID(id), trimmed, order)
		dist[token.ID(id)] = p
		sum += p
	}
	if sum > 0 {
		for id := range dist {
			dist[id] /= sum
		}
	}
	return dist
}

// Perplexity encodes seq and computes exp(-1/N * sum(log P(x_t|ctx_t))),
// the standard per-token perplexity under this model.
func (m *Model) Perplexity(seq []byte) float64 {
	toks := m.dict.Encode(seq)
	if len(toks) == 0 {
		return math.Inf(1)
	}
	ids := make([]token.ID, len(toks))
	for i, t := range toks {
		ids[i] = t.ID()
	}
	var logSum float64
	for t := range ids {
		trimmed, order := m.effectiveContext(ids[:t])
		p := m.probability(ids[t], trimmed, order)
		logSum += math.Log(p)
	}
	return math.Exp(-logSum / float64(len(ids)))
}
