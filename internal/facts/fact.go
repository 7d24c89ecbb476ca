package facts

import (
	"crypto/sha256"
	"encoding/base64"
)

// Polarity is a fact's Assert/Deny discriminator.
type Polarity uint8

const (
	Assert Polarity = iota + 1
	Deny
)

// Predicate identifies a fact's predicate by namespace and name.
type Predicate struct {
	Namespace string
	Name      string
}

// ProvenanceLink records where a fact came from: a source identifier plus
// an opaque detail string, enough to cover every provenance use in this
// pipeline (training-run id, input record offset).
type ProvenanceLink struct {
	Source string
	Detail string
}

// Fact is a predicate applied to a set of argument slots, with optional
// time, confidence, scope, provenance, and qualifier metadata.
type Fact struct {
	FactID     [48]byte
	Predicate  Predicate
	Arguments  []Slot
	Polarity   Polarity
	ScopeID    string // "/"-joined path
	Time       *TimeRef
	Confidence *float64
	Provenance []ProvenanceLink
	Qualifiers []Slot
}

// idHashLen is the truncated SHA-256 length (in bytes) used for each of the
// three components folded into the 48-byte FactId.
const idHashLen = 16

// ComputeFactID derives the 48-byte content-addressed id from predicate,
// arguments, and qualifiers (excluding time/scope/provenance/confidence),
// all canonicalised first. Argument/qualifier insertion order never affects
// the result: both are sorted lexicographically
// by name before hashing.
func ComputeFactID(pred Predicate, arguments []Slot, qualifiers []Slot) [48]byte {
	predHash := sha256.Sum256([]byte(canonString(pred.Namespace) + "\x00" + canonString(pred.Name)))

	argHash := sha256.Sum256([]byte(encodeSlotsForHash(sortedSlots(arguments))))
	qualHash := sha256.Sum256([]byte(encodeSlotsForHash(sortedSlots(qualifiers))))

	var out [48]byte
	copy(out[0:idHashLen], predHash[:idHashLen])
	copy(out[idHashLen:2*idHashLen], argHash[:idHashLen])
	copy(out[2*idHashLen:3*idHashLen], qualHash[:idHashLen])
	return out
}

// encodeSlotsForHash produces a deterministic byte string from
// already-sorted, already-canonicalised slots. It is intentionally a
// simpler, length-prefixed encoding than the wire frame in codec.go — it only
// needs to be a pure, injective function of content, not a decodable frame.
func encodeSlotsForHash(slots []Slot) string {
	var b []byte
	for _, s := range slots {
		b = appendLP(b, s.Name)
		b = appendTermForHash(b, s.Term)
	}
	return string(b)
}

func appendTermForHash(b []byte, t Term) []byte {
	switch t.Kind {
	case TermAtomKind:
		b = append(b, byte(t.AtomType))
		if t.AtomType == AtomBoolean {
			if t.Bool {
				b = append(b, 1)
			} else {
				b = append(b, 0)
			}
			return b
		}
		return appendLP(b, t.String)
	case TermStructKind:
		b = append(b, 0xFF)
		b = appendLP(b, t.Symbol)
		for _, s := range sortedSlots(t.Slots) {
			b = appendLP(b, s.Name)
			b = appendTermForHash(b, s.Term)
		}
		return b
	default:
		return b
	}
}

func appendLP(b []byte, s string) []byte {
	n := len(s)
	b = append(b, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	return append(b, s...)
}

// FactIDString base64url-encodes a FactId for string transport.
func FactIDString(id [48]byte) string {
	return base64.URLEncoding.EncodeToString(id[:])
}

// NewFact builds a Fact and stamps its content-addressed id.
func NewFact(pred Predicate, arguments []Slot, polarity Polarity, scopeID string, opts ...FactOption) Fact {
	f := Fact{
		Predicate: pred,
		Arguments: arguments,
		Polarity:  polarity,
		ScopeID:   scopeID,
	}
	for _, opt := range opts {
		opt(&f)
	}
	normalizeTimeRef(f.Time)
	f.FactID = ComputeFactID(pred, f.Arguments, f.Qualifiers)
	return f
}

// FactOption configures the optional fields of a Fact.
type FactOption func(*Fact)

func WithTime(t TimeRef) FactOption          { return func(f *Fact) { f.Time = &t } }
func WithConfidence(c float64) FactOption    { return func(f *Fact) { f.Confidence = &c } }
func WithProvenance(p ...ProvenanceLink) FactOption {
	return func(f *Fact) { f.Provenance = append(f.Provenance, p...) }
}
func WithQualifiers(q ...Slot) FactOption { return func(f *Fact) { f.Qualifiers = q } }
