package facts

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// canonString trims, case-folds, and NFC-normalises a string. Applied to
// predicate namespace+name, argument/qualifier slot names, and string atom
// values before hashing or encoding.
func canonString(s string) string {
	s = strings.TrimSpace(s)
	s = norm.NFC.String(s)
	return strings.ToLower(s)
}

// canonTerm returns a copy of t with string-bearing atoms canonicalised and
// struct slots sorted lexicographically by name, recursively.
func canonTerm(t Term) Term {
	out := t
	switch t.Kind {
	case TermAtomKind:
		switch t.AtomType {
		case AtomString, AtomEntity, AtomSymbol:
			out.String = canonString(t.String)
		case AtomTime:
			out.String = canonString(t.String)
		}
	case TermStructKind:
		out.Symbol = canonString(t.Symbol)
		out.Slots = make([]Slot, len(t.Slots))
		for i, s := range t.Slots {
			out.Slots[i] = Slot{Name: canonString(s.Name), Term: canonTerm(s.Term)}
		}
		sort.Slice(out.Slots, func(i, j int) bool { return out.Slots[i].Name < out.Slots[j].Name })
	}
	return out
}

// sortedSlots returns slots sorted lexicographically by name, canonicalised.
// Used for both arguments and qualifiers so that encoding is a pure function
// of fact content.
func sortedSlots(slots []Slot) []Slot {
	out := make([]Slot, len(slots))
	for i, s := range slots {
		out[i] = Slot{Name: canonString(s.Name), Term: canonTerm(s.Term)}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
