package ngram

import (
	"math"
	"testing"

	"mum/internal/mum/token"
)

func TestNextTokenDistributionSumsToOne(t *testing.T) {
	m := NewModel(3, nil)
	m.Accumulate([]byte("abcabcabcabc"))

	dist := m.NextTokenDistribution([]token.ID{'a', 'b'})
	var sum float64
	for id, p := range dist {
		if p <= 0 {
			t.Errorf("token %d has non-positive probability %v", id, p)
		}
		sum += p
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("distribution sums to %v, want ~1.0", sum)
	}
}

func TestNextTokenDistributionEmptyContextFallsBackUniform(t *testing.T) {
	m := NewModel(3, nil)
	dist := m.NextTokenDistribution(nil)
	want := 1.0 / float64(m.VocabSize)
	for id, p := range dist {
		if math.Abs(p-want) > 1e-12 {
			t.Errorf("token %d: got %v, want uniform %v", id, p, want)
			break
		}
	}
}

func TestPerplexityLowerOnTrainedSequence(t *testing.T) {
	m := NewModel(3, nil)
	trained := []byte("abcabcabcabcabcabcabc")
	for i := 0; i < 20; i++ {
		m.Accumulate(trained)
	}

	pTrained := m.Perplexity(trained)
	pRandom := m.Perplexity([]byte{0, 200, 55, 128, 9, 250, 3})

	if !(pTrained < pRandom) {
		t.Errorf("expected perplexity on trained sequence (%v) to be lower than on unseen bytes (%v)", pTrained, pRandom)
	}
}

func TestAccumulateSkipsEmptySequence(t *testing.T) {
	m := NewModel(2, nil)
	m.Accumulate(nil)
	if m.SeqCount != 0 {
		t.Errorf("expected SeqCount 0 after accumulating empty sequence, got %d", m.SeqCount)
	}
}

func TestAccumulateWithMacroUnits(t *testing.T) {
	units := []token.MacroUnit{{ID: 0, Bytes: []byte("abc"), Length: 3}}
	m := NewModel(2, units)
	m.Accumulate([]byte("abcabcabc"))

	macroID := token.NewMacro(0).ID()
	dist := m.NextTokenDistribution([]token.ID{macroID})
	if _, ok := dist[macroID]; !ok {
		t.Fatalf("expected macro token id %d present in distribution", macroID)
	}
	if m.VocabSize != token.ByteVocabSize+1 {
		t.Errorf("VocabSize = %d, want %d", m.VocabSize, token.ByteVocabSize+1)
	}
}

func TestPerplexityOfEmptySequence(t *testing.T) {
	m := NewModel(2, nil)
	if got := m.Perplexity(nil); !math.IsInf(got, 1) {
		t.Errorf("Perplexity(nil) = %v, want +Inf", got)
	}
}
