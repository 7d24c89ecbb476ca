package token

// Dictionary indexes a macro-unit vocabulary for greedy longest-match
// segmentation. Ties in selection order are broken by earliest insertion,
// which is the order of MDL selection. Because a (length, byte-pattern)
// pair identifies at most one macro-unit by construction (the selector
// never emits two macro-units for the same byte pattern), longest-match
// lookup never needs an explicit tie-break: a given position and length
// combination can resolve to only one candidate.
type Dictionary struct {
	units  []MacroUnit
	byLen  map[int]map[string]uint32 // length -> pattern -> index into units
	maxLen int
}

// NewDictionary builds a lookup index over units, which must already be in
// ascending-id (selection) order.
func NewDictionary(units []MacroUnit) *Dictionary {
	d := &Dictionary{
		units: units,
		byLen: make(map[int]map[string]uint32),
	}
	for idx, u := range units {
		l := int(u.Length)
		if l > d.maxLen {
			d.maxLen = l
		}
		m, ok := d.byLen[l]
		if !ok {
			m = make(map[string]uint32)
			d.byLen[l] = m
		}
		m[string(u.Bytes)] = uint32(idx)
	}
	return d
}

// Len returns the number of macro-units in the dictionary.
func (d *Dictionary) Len() int { return len(d.units) }

// Unit returns the macro-unit at dictionary index idx.
func (d *Dictionary) Unit(idx uint32) MacroUnit { return d.units[idx] }

// Units returns the underlying slice of macro-units in selection order.
func (d *Dictionary) Units() []MacroUnit { return d.units }

// LongestMatchAt returns the dictionary index of the longest macro-unit
// whose byte pattern matches s starting at pos, trying lengths from the
// largest down to 1.
func (d *Dictionary) LongestMatchAt(s []byte, pos int) (uint32, bool) {
	remaining := len(s) - pos
	upper := d.maxLen
	if remaining < upper {
		upper = remaining
	}
	for l := upper; l >= 1; l-- {
		m, ok := d.byLen[l]
		if !ok {
			continue
		}
		if idx, ok := m[string(s[pos:pos+l])]; ok {
			return idx, true
		}
	}
	return 0, false
}

// Encode performs greedy longest-match segmentation of s against the
// dictionary. Bytes with no matching macro-unit are emitted as Byte tokens.
// Invariant: Decode(Encode(s)) == s.
func (d *Dictionary) Encode(s []byte) []Token {
	out := make([]Token, 0, len(s))
	for i := 0; i < len(s); {
		if idx, ok := d.LongestMatchAt(s, i); ok {
			out = append(out, NewMacro(idx))
			i += int(d.units[idx].Length)
			continue
		}
		out = append(out, NewByte(s[i]))
		i++
	}
	return out
}

// Decode reconstructs the original byte sequence from a token sequence.
func (d *Dictionary) Decode(tokens []Token) []byte {
	out := make([]byte, 0, len(tokens))
	for _, t := range tokens {
		if t.Kind == KindByte {
			out = append(out, t.Byte)
			continue
		}
		out = append(out, d.units[t.Macro].Bytes...)
	}
	return out
}
