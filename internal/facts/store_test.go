package facts

import "testing"

func TestStoreByPredicate(t *testing.T) {
	s := NewStore()
	f1 := NewFact(Predicate{Namespace: "training", Name: "macro_unit_selected"},
		[]Slot{{Name: "bytes", Term: StringAtom("abc")}}, Assert, "/d")
	f2 := NewFact(Predicate{Namespace: "training", Name: "macro_unit_selected"},
		[]Slot{{Name: "bytes", Term: StringAtom("xyz")}}, Assert, "/d")
	other := NewFact(Predicate{Namespace: "training", Name: "sequence_ingested"},
		nil, Assert, "/d")

	for _, f := range []Fact{f1, f2, other} {
		if err := s.Add(f); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	got := s.ByPredicate("training", "macro_unit_selected")
	if len(got) != 2 {
		t.Fatalf("expected 2 facts, got %d", len(got))
	}
	if s.Len() != 3 {
		t.Errorf("expected total length 3, got %d", s.Len())
	}
}

func TestStorePredicateCaseInsensitive(t *testing.T) {
	s := NewStore()
	f := NewFact(Predicate{Namespace: "Training", Name: "Event"}, nil, Assert, "/d")
	if err := s.Add(f); err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(s.ByPredicate("training", "event")) != 1 {
		t.Errorf("expected predicate lookup to be case-insensitive")
	}
}
