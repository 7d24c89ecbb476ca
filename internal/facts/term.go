// Package facts implements the canonical binary Fact codec and an in-memory
// indexed fact store used by the training pipeline to record provenance
// (one fact per accepted macro-unit, among others).
package facts

import "fmt"

// AtomKind discriminates the scalar values a Term.Atom may hold:
// string, number, integer, boolean, time, entity, symbol, or null.
type AtomKind uint8

const (
	AtomString AtomKind = iota + 1
	AtomNumber
	AtomInteger
	AtomBoolean
	AtomTime
	AtomEntity
	AtomSymbol
	AtomNull
)

// TermKind discriminates the two term shapes in the tagged union.
type TermKind uint8

const (
	TermAtomKind TermKind = iota + 1
	TermStructKind
)

// Term is a tagged union:
// Term = Atom(AtomKind, Value) | Struct(Symbol, OrderedMap<Name,Term>).
type Term struct {
	Kind TermKind

	// Populated when Kind == TermAtomKind.
	AtomType AtomKind
	// String carries the string/entity/symbol/time payload, or the
	// canonical decimal rendering of a number/integer atom.
	String string
	Bool   bool

	// Populated when Kind == TermStructKind.
	Symbol string
	Slots  []Slot
}

// Slot is one named member of a Struct term. A slice (not a map) so that
// insertion order can be preserved until canonicalisation explicitly sorts
// it.
type Slot struct {
	Name string
	Term Term
}

// --- plain constructors for each atom variant ---

func StringAtom(v string) Term  { return Term{Kind: TermAtomKind, AtomType: AtomString, String: v} }
func NumberAtom(v float64) Term {
	return Term{Kind: TermAtomKind, AtomType: AtomNumber, String: formatFloat(v)}
}
func IntegerAtom(v int64) Term {
	return Term{Kind: TermAtomKind, AtomType: AtomInteger, String: fmt.Sprintf("%d", v)}
}
func BooleanAtom(v bool) Term { return Term{Kind: TermAtomKind, AtomType: AtomBoolean, Bool: v} }
func TimeAtom(v string) Term  { return Term{Kind: TermAtomKind, AtomType: AtomTime, String: v} }
func EntityAtom(v string) Term { return Term{Kind: TermAtomKind, AtomType: AtomEntity, String: v} }
func SymbolAtom(v string) Term { return Term{Kind: TermAtomKind, AtomType: AtomSymbol, String: v} }
func NullAtom() Term           { return Term{Kind: TermAtomKind, AtomType: AtomNull} }

// StructTerm builds a named struct term from ordered slots.
func StructTerm(symbol string, slots ...Slot) Term {
	return Term{Kind: TermStructKind, Symbol: symbol, Slots: slots}
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}

// Render returns a debug-friendly scalar rendering of the term.
func (t Term) Render() string {
	switch t.Kind {
	case TermAtomKind:
		if t.AtomType == AtomBoolean {
			return fmt.Sprintf("%v", t.Bool)
		}
		return t.String
	case TermStructKind:
		return t.Symbol
	default:
		return ""
	}
}
