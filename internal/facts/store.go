package facts

import (
	"fmt"
	"sync"

	"github.com/google/mangle/ast"
	"github.com/google/mangle/factstore"
)

// Store indexes decoded Facts by predicate using Mangle's in-memory deductive
// fact store for O(1) predicate lookup. It is a plain index, not a
// rule-evaluation engine: the wire format in codec.go is the source of
// truth, and Store only mirrors decoded facts for querying by predicate.
type Store struct {
	mu    sync.RWMutex
	mf    factstore.FactStore
	index map[string][]Fact
}

// NewStore creates an empty, ready-to-use fact index.
func NewStore() *Store {
	return &Store{
		mf:    factstore.NewSimpleInMemoryStore(),
		index: make(map[string][]Fact),
	}
}

// Add mirrors a decoded fact into the index and the underlying Mangle store.
func (s *Store) Add(f Fact) error {
	atom, err := factToAtom(f)
	if err != nil {
		return fmt.Errorf("facts.Store.Add: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mf.Add(atom)
	key := predicateKey(f.Predicate)
	s.index[key] = append(s.index[key], f)
	return nil
}

// ByPredicate returns every fact previously Added under the given
// namespace.name predicate, in insertion order.
func (s *Store) ByPredicate(namespace, name string) []Fact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := predicateKey(Predicate{Namespace: namespace, Name: name})
	out := make([]Fact, len(s.index[key]))
	copy(out, s.index[key])
	return out
}

// Len returns the number of facts indexed so far.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, fs := range s.index {
		n += len(fs)
	}
	return n
}

func predicateKey(p Predicate) string {
	return canonString(p.Namespace) + "." + canonString(p.Name)
}

// factToAtom converts a decoded Fact into a Mangle ast.Atom for indexing.
// Only the predicate and scalar argument values travel into the atom;
// Mangle's Datalog evaluation is out of scope here (see DESIGN.md) so
// struct-valued arguments are flattened to their Render() string.
func factToAtom(f Fact) (ast.Atom, error) {
	predSym := ast.PredicateSym{Symbol: predicateKey(f.Predicate), Arity: len(f.Arguments)}
	args := make([]ast.BaseTerm, len(f.Arguments))
	for i, a := range sortedSlots(f.Arguments) {
		args[i] = termToConstant(a.Term)
	}
	return ast.Atom{Predicate: predSym, Args: args}, nil
}

// termToConstant converts a facts.Term into a Mangle ast.Constant, following
// the constant-term conversion a Datalog engine's parser would perform.
func termToConstant(t Term) ast.Constant {
	if t.Kind == TermStructKind {
		return ast.String(t.Render())
	}
	switch t.AtomType {
	case AtomNumber:
		return ast.String(t.String)
	case AtomInteger:
		return ast.String(t.String)
	case AtomBoolean:
		if t.Bool {
			return ast.String("true")
		}
		return ast.String("false")
	case AtomNull:
		return ast.String("")
	default:
		return ast.String(t.String)
	}
}
