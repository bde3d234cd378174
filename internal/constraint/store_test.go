package constraint

import "testing"

func TestAddSubtypeIgnoresReflexive(t *testing.T) {
	s := NewStore()
	s.AddSubtype(Object{}, Object{})
	if len(s.Active()) != 0 {
		t.Errorf("reflexive constraint should be dropped, got %v", s.Active())
	}
}

func TestFreshVariableSupertypeShortCircuits(t *testing.T) {
	s := NewStore()
	v := s.FreshVariable("x")
	s.AddSubtype(v, Object{})
	// Object is already known to be a supertype of v; asking for a fresh
	// supertype of (v, Object) should just hand back Object rather than
	// minting a redundant variable.
	got := s.FreshVariableSupertype(v, Object{})
	if _, ok := got.(Object); !ok {
		t.Errorf("expected Object, got %s", got)
	}
}

func TestIsSubtypeUnknownOnFreeVariable(t *testing.T) {
	s := NewStore()
	v := s.FreshVariable("x")
	if got := s.IsSubtype(v, Object{}); got != True {
		t.Errorf("v <: Object should be trivially True, got %v", got)
	}
	if got := s.IsSubtype(Object{}, v); got != Unknown {
		t.Errorf("Object <: v should be Unknown absent other info, got %v", got)
	}
}

func TestConstraintsOnVariable(t *testing.T) {
	s := NewStore()
	v := s.FreshVariable("x")
	w := s.FreshVariable("y")
	s.AddSubtype(v, w)
	s.AddSubtype(w, Object{})
	found := s.ConstraintsOnVariable(v)
	if len(found) != 1 {
		t.Fatalf("expected 1 constraint mentioning v, got %d: %v", len(found), found)
	}
}
