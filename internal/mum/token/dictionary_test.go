package token

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTripEmptyDictionary(t *testing.T) {
	d := NewDictionary(nil)
	s := []byte("hello world")
	tokens := d.Encode(s)
	if got := d.Decode(tokens); !bytes.Equal(got, s) {
		t.Errorf("round trip mismatch: got %q want %q", got, s)
	}
	for _, tok := range tokens {
		if tok.Kind != KindByte {
			t.Errorf("expected all-byte tokens with empty dictionary")
		}
	}
}

func TestEncodeGreedyLongestMatch(t *testing.T) {
	units := []MacroUnit{
		{ID: 0, Bytes: []byte("ab"), Length: 2},
		{ID: 1, Bytes: []byte("abc"), Length: 3},
	}
	d := NewDictionary(units)
	tokens := d.Encode([]byte("abcabc"))
	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens (greedy longest match on 'abc'), got %d: %+v", len(tokens), tokens)
	}
	for _, tok := range tokens {
		if tok.Kind != KindMacro || tok.Macro != 1 {
			t.Errorf("expected macro index 1 (the longer 'abc' pattern), got %+v", tok)
		}
	}
}

func TestEncodeDecodeRoundTripWithDictionary(t *testing.T) {
	units := []MacroUnit{
		{ID: 0, Bytes: []byte("abc"), Length: 3},
		{ID: 1, Bytes: []byte("xy"), Length: 2},
	}
	d := NewDictionary(units)
	for _, s := range [][]byte{
		[]byte("abcabcabc"),
		[]byte("xyzxyabc"),
		[]byte(""),
		[]byte("nomatch"),
	} {
		tokens := d.Encode(s)
		if got := d.Decode(tokens); !bytes.Equal(got, s) {
			t.Errorf("round trip mismatch for %q: got %q", s, got)
		}
	}
}

func TestTokenID(t *testing.T) {
	b := NewByte(65)
	if b.ID() != 65 {
		t.Errorf("expected byte id 65, got %d", b.ID())
	}
	m := NewMacro(3)
	if m.ID() != ID(ByteVocabSize+3) {
		t.Errorf("expected macro id %d, got %d", ByteVocabSize+3, m.ID())
	}
}

func TestFromID(t *testing.T) {
	tok, ok := FromID(10, 5)
	if !ok || tok.Kind != KindByte || tok.Byte != 10 {
		t.Errorf("expected byte token 10, got %+v ok=%v", tok, ok)
	}
	tok, ok = FromID(258, 5)
	if !ok || tok.Kind != KindMacro || tok.Macro != 2 {
		t.Errorf("expected macro token index 2, got %+v ok=%v", tok, ok)
	}
	if _, ok := FromID(300, 5); ok {
		t.Errorf("expected out-of-range macro id to fail")
	}
}
