package facts

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"

	"mum/internal/merr"
)

// FrameMagic and FrameVersion identify the canonical binary fact wire format.
var FrameMagic = [4]byte{'F', 'A', 'C', 'T'}

const FrameVersion uint16 = 1

const (
	flagHasTime       uint16 = 1 << 0
	flagHasConfidence uint16 = 1 << 1
)

// Encode serialises a Fact into a length-prefixed, CRC-terminated frame.
// Arguments and qualifiers are canonicalised and sorted lexicographically
// by name first, so Encode is a pure function of fact content.
func Encode(f Fact) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(FrameMagic[:])
	writeU16(&buf, FrameVersion)

	var flags uint16
	if f.Time != nil {
		flags |= flagHasTime
	}
	if f.Confidence != nil {
		flags |= flagHasConfidence
	}
	writeU16(&buf, flags)

	buf.Write(f.FactID[:])

	writeLPString(&buf, canonString(f.Predicate.Namespace)+"."+canonString(f.Predicate.Name))

	args := sortedSlots(f.Arguments)
	writeU16(&buf, uint16(len(args)))
	for _, a := range args {
		writeLPString(&buf, a.Name)
		if err := writeTerm(&buf, a.Term); err != nil {
			return nil, merr.Format("facts.Encode", err)
		}
	}

	buf.WriteByte(byte(f.Polarity))
	writeLPString(&buf, f.ScopeID)

	if f.Time != nil {
		writeTimeRef(&buf, *f.Time)
	}
	if f.Confidence != nil {
		writeF64(&buf, *f.Confidence)
	}

	writeU16(&buf, uint16(len(f.Provenance)))
	for _, p := range f.Provenance {
		writeLPString(&buf, p.Source)
		writeLPString(&buf, p.Detail)
	}

	quals := sortedSlots(f.Qualifiers)
	writeU16(&buf, uint16(len(quals)))
	for _, q := range quals {
		writeLPString(&buf, q.Name)
		if err := writeTerm(&buf, q.Term); err != nil {
			return nil, merr.Format("facts.Encode", err)
		}
	}

	sum := crc32.ChecksumIEEE(buf.Bytes())
	var crcBytes [4]byte
	binary.LittleEndian.PutUint32(crcBytes[:], sum)
	buf.Write(crcBytes[:])

	return buf.Bytes(), nil
}

// Decode parses a frame produced by Encode, verifies its CRC, and
// recomputes the fact id to guard against silent corruption (invariant (b)).
func Decode(data []byte) (Fact, error) {
	if len(data) < 4+4 {
		return Fact{}, merr.Format("facts.Decode", fmt.Errorf("frame too short"))
	}
	if !bytes.Equal(data[:4], FrameMagic[:]) {
		return Fact{}, merr.Format("facts.Decode", fmt.Errorf("bad magic"))
	}

	body := data[:len(data)-4]
	wantCRC := binary.LittleEndian.Uint32(data[len(data)-4:])
	gotCRC := crc32.ChecksumIEEE(body)
	if wantCRC != gotCRC {
		return Fact{}, merr.Content("facts.Decode", fmt.Errorf("crc mismatch: want %x got %x", wantCRC, gotCRC))
	}

	r := bytes.NewReader(body[4:]) // skip magic

	version, err := readU16(r)
	if err != nil {
		return Fact{}, merr.Format("facts.Decode", err)
	}
	if version != FrameVersion {
		return Fact{}, merr.Format("facts.Decode", fmt.Errorf("unknown frame version %d", version))
	}

	flags, err := readU16(r)
	if err != nil {
		return Fact{}, merr.Format("facts.Decode", err)
	}

	var f Fact
	if _, err := io.ReadFull(r, f.FactID[:]); err != nil {
		return Fact{}, merr.Format("facts.Decode", err)
	}

	predStr, err := readLPString(r)
	if err != nil {
		return Fact{}, merr.Format("facts.Decode", err)
	}
	ns, name := splitPredicate(predStr)
	f.Predicate = Predicate{Namespace: ns, Name: name}

	argCount, err := readU16(r)
	if err != nil {
		return Fact{}, merr.Format("facts.Decode", err)
	}
	f.Arguments = make([]Slot, argCount)
	for i := range f.Arguments {
		name, err := readLPString(r)
		if err != nil {
			return Fact{}, merr.Format("facts.Decode", err)
		}
		term, err := readTerm(r)
		if err != nil {
			return Fact{}, merr.Format("facts.Decode", err)
		}
		f.Arguments[i] = Slot{Name: name, Term: term}
	}

	polByte, err := r.ReadByte()
	if err != nil {
		return Fact{}, merr.Format("facts.Decode", err)
	}
	f.Polarity = Polarity(polByte)

	f.ScopeID, err = readLPString(r)
	if err != nil {
		return Fact{}, merr.Format("facts.Decode", err)
	}

	if flags&flagHasTime != 0 {
		tr, err := readTimeRef(r)
		if err != nil {
			return Fact{}, merr.Format("facts.Decode", err)
		}
		f.Time = &tr
	}
	if flags&flagHasConfidence != 0 {
		c, err := readF64(r)
		if err != nil {
			return Fact{}, merr.Format("facts.Decode", err)
		}
		f.Confidence = &c
	}

	provCount, err := readU16(r)
	if err != nil {
		return Fact{}, merr.Format("facts.Decode", err)
	}
	f.Provenance = make([]ProvenanceLink, provCount)
	for i := range f.Provenance {
		src, err := readLPString(r)
		if err != nil {
			return Fact{}, merr.Format("facts.Decode", err)
		}
		detail, err := readLPString(r)
		if err != nil {
			return Fact{}, merr.Format("facts.Decode", err)
		}
		f.Provenance[i] = ProvenanceLink{Source: src, Detail: detail}
	}

	qualCount, err := readU16(r)
	if err != nil {
		return Fact{}, merr.Format("facts.Decode", err)
	}
	f.Qualifiers = make([]Slot, qualCount)
	for i := range f.Qualifiers {
		name, err := readLPString(r)
		if err != nil {
			return Fact{}, merr.Format("facts.Decode", err)
		}
		term, err := readTerm(r)
		if err != nil {
			return Fact{}, merr.Format("facts.Decode", err)
		}
		f.Qualifiers[i] = Slot{Name: name, Term: term}
	}

	recomputed := ComputeFactID(f.Predicate, f.Arguments, f.Qualifiers)
	if recomputed != f.FactID {
		return Fact{}, merr.Content("facts.Decode", fmt.Errorf("fact id mismatch: stored %s recomputed %s",
			FactIDString(f.FactID), FactIDString(recomputed)))
	}

	return f, nil
}

func splitPredicate(s string) (namespace, name string) {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return s[:i], s[i+1:]
		}
	}
	return "", s
}

// --- term encoding ---

const (
	termTagAtom   byte = 0x01
	termTagStruct byte = 0x02
)

func writeTerm(buf *bytes.Buffer, t Term) error {
	switch t.Kind {
	case TermAtomKind:
		buf.WriteByte(termTagAtom)
		buf.WriteByte(byte(t.AtomType))
		if t.AtomType == AtomBoolean {
			if t.Bool {
				buf.WriteByte(1)
			} else {
				buf.WriteByte(0)
			}
			return nil
		}
		writeLPString(buf, t.String)
		return nil
	case TermStructKind:
		buf.WriteByte(termTagStruct)
		writeLPString(buf, t.Symbol)
		writeU16(buf, uint16(len(t.Slots)))
		for _, s := range t.Slots {
			writeLPString(buf, s.Name)
			if err := writeTerm(buf, s.Term); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown term kind %d", t.Kind)
	}
}

func readTerm(r *bytes.Reader) (Term, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return Term{}, err
	}
	switch tag {
	case termTagAtom:
		typeCode, err := r.ReadByte()
		if err != nil {
			return Term{}, err
		}
		t := Term{Kind: TermAtomKind, AtomType: AtomKind(typeCode)}
		if t.AtomType == AtomBoolean {
			b, err := r.ReadByte()
			if err != nil {
				return Term{}, err
			}
			t.Bool = b != 0
			return t, nil
		}
		s, err := readLPString(r)
		if err != nil {
			return Term{}, err
		}
		t.String = s
		return t, nil
	case termTagStruct:
		symbol, err := readLPString(r)
		if err != nil {
			return Term{}, err
		}
		count, err := readU16(r)
		if err != nil {
			return Term{}, err
		}
		slots := make([]Slot, count)
		for i := range slots {
			name, err := readLPString(r)
			if err != nil {
				return Term{}, err
			}
			term, err := readTerm(r)
			if err != nil {
				return Term{}, err
			}
			slots[i] = Slot{Name: name, Term: term}
		}
		return Term{Kind: TermStructKind, Symbol: symbol, Slots: slots}, nil
	default:
		return Term{}, fmt.Errorf("unknown term tag %d", tag)
	}
}

// --- time_ref encoding ---

func writeTimeRef(buf *bytes.Buffer, t TimeRef) {
	buf.WriteByte(byte(t.Type))
	buf.WriteByte(byte(t.Precision))
	switch t.Type {
	case TimeInstant:
		writeI64(buf, t.Instant)
	case TimeInterval:
		if t.HasStart {
			buf.WriteByte(1)
			writeI64(buf, t.Start)
		} else {
			buf.WriteByte(0)
		}
		if t.HasEnd {
			buf.WriteByte(1)
			writeI64(buf, t.End)
		} else {
			buf.WriteByte(0)
		}
	case TimeRelative:
		writeLPString(buf, t.RelativeOffset)
	case TimeUnknown:
		// no payload
	}
}

func readTimeRef(r *bytes.Reader) (TimeRef, error) {
	typeByte, err := r.ReadByte()
	if err != nil {
		return TimeRef{}, err
	}
	precByte, err := r.ReadByte()
	if err != nil {
		return TimeRef{}, err
	}
	t := TimeRef{Type: TimeRefType(typeByte), Precision: Precision(precByte)}
	switch t.Type {
	case TimeInstant:
		v, err := readI64(r)
		if err != nil {
			return TimeRef{}, err
		}
		t.Instant = v
	case TimeInterval:
		hasStart, err := r.ReadByte()
		if err != nil {
			return TimeRef{}, err
		}
		if hasStart != 0 {
			t.HasStart = true
			if t.Start, err = readI64(r); err != nil {
				return TimeRef{}, err
			}
		}
		hasEnd, err := r.ReadByte()
		if err != nil {
			return TimeRef{}, err
		}
		if hasEnd != 0 {
			t.HasEnd = true
			if t.End, err = readI64(r); err != nil {
				return TimeRef{}, err
			}
		}
	case TimeRelative:
		s, err := readLPString(r)
		if err != nil {
			return TimeRef{}, err
		}
		t.RelativeOffset = s
	case TimeUnknown:
	}
	return t, nil
}

// --- primitive helpers ---

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func readU16(r *bytes.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func writeI64(buf *bytes.Buffer, v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	buf.Write(b[:])
}

func readI64(r *bytes.Reader) (int64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

func writeF64(buf *bytes.Buffer, v float64) {
	writeI64(buf, int64(math.Float64bits(v)))
}

func readF64(r *bytes.Reader) (float64, error) {
	v, err := readI64(r)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(uint64(v)), nil
}

func writeLPString(buf *bytes.Buffer, s string) {
	writeU16(buf, uint16(len(s)))
	buf.WriteString(s)
}

func readLPString(r *bytes.Reader) (string, error) {
	n, err := readU16(r)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
