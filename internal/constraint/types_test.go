package constraint

import "testing"

// fixture mirrors the small class hierarchy used throughout the original
// constraint-system tests: A, B (with an attribute a:A), C(B), D(B).
type fixture struct {
	store              *Store
	clsA, clsB, clsC, clsD *Class
	tyA, tyB, tyC, tyD Type
}

func newFixture() *fixture {
	f := &fixture{store: NewStore()}
	f.clsA = &Class{Name: "A", ClassMembers: map[string]Type{}, InstanceMembers: map[string]Type{}}
	f.tyA = Instance{MRO: NewMRO([]*Class{f.clsA}), Overrides: map[string]Type{}, Name: "A"}

	f.clsB = &Class{Name: "B", ClassMembers: map[string]Type{}, InstanceMembers: map[string]Type{"a": f.tyA}}
	f.clsC = &Class{Name: "C", ClassMembers: map[string]Type{}, InstanceMembers: map[string]Type{}}
	f.clsD = &Class{Name: "D", ClassMembers: map[string]Type{}, InstanceMembers: map[string]Type{}}

	f.tyB = Instance{MRO: NewMRO([]*Class{f.clsB}), Overrides: map[string]Type{}, Name: "B"}
	f.tyC = Instance{MRO: NewMRO([]*Class{f.clsC, f.clsB}), Overrides: map[string]Type{}, Name: "C"}
	f.tyD = Instance{MRO: NewMRO([]*Class{f.clsD, f.clsB}), Overrides: map[string]Type{}, Name: "D"}
	return f
}

func TestInstanceMROs(t *testing.T) {
	f := newFixture()
	cases := []struct {
		name     string
		sub, sup Type
		want     bool
	}{
		{"C<:B", f.tyC, f.tyB, true},
		{"A<:B", f.tyA, f.tyB, false},
		{"A<:C", f.tyA, f.tyC, false},
		{"B<:C", f.tyB, f.tyC, false},
		{"C<:A", f.tyC, f.tyA, false},
	}
	for _, c := range cases {
		if got := StructuralSubtype(c.sub, c.sup); got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestInstanceSubtyping(t *testing.T) {
	f := newFixture()
	shape := Instance{MRO: NewMRO(nil), Overrides: map[string]Type{"a": f.tyA}}
	if !StructuralSubtype(f.tyD, shape) {
		t.Error("D should be a structural subtype of {a: A}")
	}
}

func TestUnionTypeSubtyping(t *testing.T) {
	f := newFixture()
	if !StructuralSubtype(f.tyC, NewUnion([]Type{f.tyB, f.tyA})) {
		t.Error("C should be <: Union(B, A)")
	}
	if !StructuralSubtype(NewUnion([]Type{f.tyC, f.tyD}), f.tyB) {
		t.Error("Union(C, D) should be <: B")
	}
	if !StructuralSubtype(NewUnion([]Type{f.tyC, f.tyD}), NewUnion([]Type{f.tyB, f.tyA})) {
		t.Error("Union(C, D) should be <: Union(B, A)")
	}
}

func TestUnionTypeJoin(t *testing.T) {
	f := newFixture()
	got := Join(f.store, f.tyC, NewUnion([]Type{f.tyD, f.tyA}))
	want := NewUnion([]Type{f.tyD, f.tyA, f.tyC})
	if got.String() != want.String() {
		t.Errorf("got %s, want %s", got, want)
	}

	got2 := Join(f.store, NewUnion([]Type{f.tyD, f.tyA}), f.tyC)
	if got2.String() != want.String() {
		t.Errorf("got %s, want %s", got2, want)
	}

	got3 := Join(f.store, NewUnion([]Type{f.tyD, f.tyA}), NewUnion([]Type{f.tyB, f.tyC}))
	want3 := NewUnion([]Type{f.tyD, f.tyA, f.tyC, f.tyB})
	if got3.String() != want3.String() {
		t.Errorf("got %s, want %s", got3, want3)
	}
}

func TestUnionTypeMeet(t *testing.T) {
	f := newFixture()
	got := Meet(f.store, f.tyC, NewUnion([]Type{f.tyC, f.tyA}))
	if got.String() != f.tyC.String() {
		t.Errorf("got %s, want %s", got, f.tyC)
	}

	got2 := Meet(f.store, NewUnion([]Type{f.tyD, f.tyA}), NewUnion([]Type{f.tyA, f.tyC, f.tyD}))
	want2 := NewUnion([]Type{f.tyD, f.tyA})
	if got2.String() != want2.String() {
		t.Errorf("got %s, want %s", got2, want2)
	}
}

// TestUnionMeetJoinScenario6 mirrors TESTABLE PROPERTIES scenario 6 against
// the fixture's C/D-both-inherit-B hierarchy: Union(C,D).meet(Union(A,C,D))
// collapses to Union(C,D) (A belongs to neither side), and
// Union(C,D).join(B) keeps all three members distinct rather than
// collapsing to B, since join only flattens/dedups and never drops a
// member subsumed by another.
func TestUnionMeetJoinScenario6(t *testing.T) {
	f := newFixture()

	meetGot := Meet(f.store, NewUnion([]Type{f.tyC, f.tyD}), NewUnion([]Type{f.tyA, f.tyC, f.tyD}))
	meetWant := NewUnion([]Type{f.tyC, f.tyD})
	if meetGot.String() != meetWant.String() {
		t.Errorf("Union(C,D).meet(Union(A,C,D)) = %s, want %s", meetGot, meetWant)
	}

	joinGot := Join(f.store, NewUnion([]Type{f.tyC, f.tyD}), f.tyB)
	joinWant := NewUnion([]Type{f.tyC, f.tyD, f.tyB})
	if joinGot.String() != joinWant.String() {
		t.Errorf("Union(C,D).join(B) = %s, want %s", joinGot, joinWant)
	}
}

func TestUnionTypeSimplification(t *testing.T) {
	f := newFixture()
	if got := NewUnion([]Type{f.tyB}); got.String() != f.tyB.String() {
		t.Errorf("singleton union should collapse, got %s", got)
	}
	if got := NewUnion([]Type{f.tyB, f.tyB}); got.String() != f.tyB.String() {
		t.Errorf("duplicate union should collapse, got %s", got)
	}
	nested := NewUnion([]Type{f.tyB, NewUnion([]Type{f.tyB, f.tyA}), f.tyC})
	want := NewUnion([]Type{f.tyB, f.tyA, f.tyC})
	if nested.String() != want.String() {
		t.Errorf("nested union should flatten, got %s want %s", nested, want)
	}
	if got := NewUnion(nil); got.String() != (Nothing{}).String() {
		t.Errorf("empty union should collapse to Nothing, got %s", got)
	}
}

func TestFunctionTypeSubtyping(t *testing.T) {
	f := newFixture()
	if !StructuralSubtype(
		Function{Args: []Type{f.tyA}, Ret: f.tyC},
		Function{Args: []Type{f.tyA}, Ret: f.tyB}) {
		t.Error("covariant return should allow this subtype")
	}
	if !StructuralSubtype(
		Function{Args: []Type{f.tyB}, Ret: f.tyA},
		Function{Args: []Type{f.tyC}, Ret: f.tyA}) {
		t.Error("contravariant arg should allow this subtype")
	}
	if !StructuralSubtype(
		Function{Args: []Type{f.tyB}, Ret: f.tyC},
		Function{Args: []Type{f.tyC}, Ret: f.tyB}) {
		t.Error("contravariant arg + covariant return should allow this subtype")
	}
	if StructuralSubtype(
		Function{Args: []Type{f.tyC}, Ret: f.tyA},
		Function{Args: []Type{f.tyB}, Ret: f.tyA}) {
		t.Error("wrong-direction arg variance should not be a subtype")
	}
	if StructuralSubtype(
		Function{Args: []Type{f.tyA}, Ret: f.tyB},
		Function{Args: []Type{f.tyA}, Ret: f.tyC}) {
		t.Error("wrong-direction return variance should not be a subtype")
	}
}

func TestFunctionTypeJoinMeet(t *testing.T) {
	f := newFixture()
	got := Join(f.store, Function{Args: []Type{f.tyA}, Ret: f.tyC}, Function{Args: []Type{f.tyA}, Ret: f.tyB})
	want := Function{Args: []Type{f.tyA}, Ret: f.tyB}
	if got.String() != want.String() {
		t.Errorf("got %s, want %s", got, want)
	}

	got2 := Join(f.store, Function{Args: []Type{f.tyA}, Ret: f.tyD}, Function{Args: []Type{f.tyA}, Ret: f.tyC})
	if got2.String() != want.String() {
		t.Errorf("got %s, want %s", got2, want)
	}

	got3 := Meet(f.store, Function{Args: []Type{f.tyA}, Ret: f.tyC}, Function{Args: []Type{f.tyA}, Ret: f.tyB})
	want3 := Function{Args: []Type{f.tyA}, Ret: f.tyC}
	if got3.String() != want3.String() {
		t.Errorf("got %s, want %s", got3, want3)
	}
}
