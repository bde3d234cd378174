package constraint

import "testing"

func TestSimplifyRemovesConstants(t *testing.T) {
	s := NewStore()
	intType := Instance{MRO: NewMRO([]*Class{{Name: "int"}}), Overrides: map[string]Type{}}
	v := s.FreshVariable("x")
	s.AddSubtype(v, Constant{Values: map[string]any{"1": 1}, ValueType: intType})
	s.Simplify()
	for _, c := range s.Active() {
		if _, ok := c.Left.(Constant); ok {
			t.Errorf("constant should have been removed from %v", c)
		}
		if _, ok := c.Right.(Constant); ok {
			t.Errorf("constant should have been removed from %v", c)
		}
	}
}

func TestSimplifyMeetsSuperBounds(t *testing.T) {
	s := NewStore()
	classA := &Class{Name: "A"}
	classB := &Class{Name: "B"}
	tyA := Instance{MRO: NewMRO([]*Class{classA}), Overrides: map[string]Type{}}
	tyB := Instance{MRO: NewMRO([]*Class{classB}), Overrides: map[string]Type{}}

	v := s.FreshVariable("x")
	s.AddSubtype(v, tyA)
	s.AddSubtype(v, tyB)
	s.Simplify()

	count := 0
	for _, c := range s.Active() {
		if left, ok := c.Left.(*Variable); ok && left.Identity == v.Identity {
			count++
		}
	}
	if count > 1 {
		t.Errorf("expected the two super bounds to merge into at most one constraint, got %d", count)
	}
}

// TestEliminateTriviallySuperBoundedVariablesScenario4 mirrors TESTABLE
// PROPERTIES scenario 4: a class method "set_x" assigning self.x gives
// self <: Instance(_, {"x": argX}); tracing a call a.set_x(1.2) adds
// a <: self (the call's actual-self argument, contravariant) and
// float <: argX (the call's actual 1.2 argument). self's sole upper bound
// must still collapse it into the caller's constraint even though self
// also occurs as the upper bound of "a" elsewhere — eliminateTriviallyBounded
// Variables previously rejected this by counting self's total occurrences
// (2: one upper, one lower) instead of only its upper-bound occurrences (1).
func TestEliminateTriviallySuperBoundedVariablesScenario4(t *testing.T) {
	s := NewStore()
	floatClass := &Class{Name: "float"}
	floatType := Instance{MRO: NewMRO([]*Class{floatClass}), Overrides: map[string]Type{}}

	self := s.FreshVariable("self")
	argX := s.FreshVariable("x")
	a := s.FreshVariable("a")

	s.AddSubtype(self, Instance{MRO: NewMRO(nil), Overrides: map[string]Type{"x": argX}})
	s.AddSubtype(a, self)
	s.AddSubtype(floatType, argX)

	// "a" is the observable output here (the call site's inferred self
	// type); register it as a target the way the abstract interpreter
	// would, since the elimination this test exercises substitutes "a"
	// itself away once it collapses to a single closed bound, leaving no
	// active constraint naming it directly — only the target registry
	// tracks what it ultimately resolved to.
	s.AddTarget("a", a)

	s.Simplify()

	want := Instance{MRO: NewMRO(nil), Overrides: map[string]Type{"x": floatType}}.String()
	got, ok := s.Targets()["a"]
	if !ok || got.String() != want {
		t.Errorf("expected target \"a\" = %s after simplify, got %v (active=%v)", want, got, s.Active())
	}
}

func TestSimplifyEliminatesEqualityConstrainedVariable(t *testing.T) {
	s := NewStore()
	v := s.FreshVariable("x")
	w := s.FreshVariable("y")
	s.ConstrainEqual(v, w)
	s.AddSubtype(v, Object{})
	s.Simplify()
	for _, c := range s.Active() {
		if c.Kind == KindEqual {
			t.Errorf("equality constraint should have been eliminated, found %v", c)
		}
	}
}
