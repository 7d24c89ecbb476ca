// Package token defines the mixed vocabulary shared by the macro-unit
// selector (which produces macro-units), the n-gram model (which
// accumulates counts over tokens), and the generator (which samples and
// decodes tokens).
package token

// Kind discriminates the two shapes of the Byte(u8) | Macro(u32) tagged
// union.
type Kind uint8

const (
	KindByte Kind = iota
	KindMacro
)

// ByteVocabSize is the fixed size of the literal byte alphabet.
const ByteVocabSize = 256

// ID is the internal vocabulary id: byte value for Byte tokens,
// 256+macro_index for Macro tokens.
type ID uint32

// Token is the tagged union Byte(u8) | Macro(u32).
type Token struct {
	Kind  Kind
	Byte  byte
	Macro uint32 // index into the macro-unit dictionary, not the raw id
}

// NewByte constructs a byte token.
func NewByte(b byte) Token { return Token{Kind: KindByte, Byte: b} }

// NewMacro constructs a macro token referencing dictionary index idx.
func NewMacro(idx uint32) Token { return Token{Kind: KindMacro, Macro: idx} }

// ID computes the internal vocabulary id.
func (t Token) ID() ID {
	if t.Kind == KindByte {
		return ID(t.Byte)
	}
	return ID(ByteVocabSize) + ID(t.Macro)
}

// FromID reconstructs a Token from a vocabulary id, given the number of
// macro-units currently in the dictionary (needed only to validate that a
// Macro id refers to an existing entry; callers that already trust the id
// may ignore the ok return).
func FromID(id ID, macroCount int) (Token, bool) {
	if id < ByteVocabSize {
		return NewByte(byte(id)), true
	}
	idx := uint32(id) - ByteVocabSize
	if int(idx) >= macroCount {
		return Token{}, false
	}
	return NewMacro(idx), true
}

// MacroUnit is a selected macro-unit: its byte pattern, observed count, and
// MDL score. Immutable after creation; created by the MDL selector.
type MacroUnit struct {
	ID       uint32
	Bytes    []byte
	Count    uint64
	MDLScore float64
	Length   uint32
}
