package constraint

import (
	"fmt"
	"sort"
)

// ConstraintKind distinguishes the two shapes of constraint the store
// tracks (spec §4.D data model).
type ConstraintKind int

const (
	// KindSubtype records Left <: Right.
	KindSubtype ConstraintKind = iota
	// KindEqual records Left = Right.
	KindEqual
)

// Constraint is one entry of the store's multiset. Constraints compare by
// the String() of their operands plus Kind (see the note on Type in
// types.go about using String() as a structural hash/equality surrogate),
// which is why Store keeps them in maps keyed by Constraint.key() rather
// than relying on Go's native comparability (Type values may embed slices
// or maps and so are not themselves comparable).
type Constraint struct {
	Left, Right Type
	Kind        ConstraintKind
}

func (c Constraint) key() string {
	op := "<:"
	if c.Kind == KindEqual {
		op = "="
	}
	return fmt.Sprintf("%s %s %s", c.Left.String(), op, c.Right.String())
}

func (c Constraint) String() string { return c.key() }

// Store is the mutable constraint database threaded through abstract
// interpretation and simplification. Its active/completed split, variable
// counter, and target-type registry follow the corresponding
// ConstraintStore design directly: "active" holds constraints still being
// worked on, "completed" is the graveyard of constraints simplification has
// already made redundant but that callers may still want to inspect (e.g.
// to report a type derived entirely from eliminated bounds).
type Store struct {
	active    map[string]Constraint
	completed map[string]Constraint

	variables   []*Variable
	targetTypes map[string]Type // name -> its principal type variable/term

	nextID uint64
}

// NewStore returns an empty store ready to accept constraints.
func NewStore() *Store {
	return &Store{
		active:      map[string]Constraint{},
		completed:   map[string]Constraint{},
		targetTypes: map[string]Type{},
	}
}

// FreshVariable allocates a new Variable with a globally unique identity
// within this store. name is an optional hint used only for String()
// output and diagnostics.
func (s *Store) FreshVariable(name string) *Variable {
	s.nextID++
	v := &Variable{Identity: s.nextID, Name: name, Attributes: map[string]*Variable{}}
	s.variables = append(s.variables, v)
	return v
}

// AddTarget registers name as resolving to t, typically a fresh Variable
// standing in for a function's inferred parameter or return type.
func (s *Store) AddTarget(name string, t Type) {
	s.targetTypes[name] = t
}

// Targets returns the target-type registry built up by AddTarget.
func (s *Store) Targets() map[string]Type {
	return s.targetTypes
}

// Variables returns every Variable minted by this store, in allocation
// order.
func (s *Store) Variables() []*Variable {
	return s.variables
}

// AddSubtype records sub <: super, unless it is trivially reflexive
// (sub.String() == super.String()), in which case it is a no-op.
func (s *Store) AddSubtype(sub, super Type) {
	if sub.String() == super.String() {
		return
	}
	c := Constraint{Left: sub, Right: super, Kind: KindSubtype}
	s.active[c.key()] = c
}

// AddEqual records left = right, unless trivially reflexive.
func (s *Store) AddEqual(left, right Type) {
	if left.String() == right.String() {
		return
	}
	c := Constraint{Left: left, Right: right, Kind: KindEqual}
	s.active[c.key()] = c
}

func (s *Store) complete(c Constraint) {
	delete(s.active, c.key())
	s.completed[c.key()] = c
}

// Active returns every still-open constraint, sorted for determinism.
func (s *Store) Active() []Constraint {
	return sortedConstraints(s.active)
}

// Completed returns every constraint simplification has retired.
func (s *Store) Completed() []Constraint {
	return sortedConstraints(s.completed)
}

func sortedConstraints(m map[string]Constraint) []Constraint {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Constraint, len(keys))
	for i, k := range keys {
		out[i] = m[k]
	}
	return out
}

// ConstraintsOnVariable returns every active constraint mentioning v on
// either side.
func (s *Store) ConstraintsOnVariable(v *Variable) []Constraint {
	var out []Constraint
	for _, c := range s.Active() {
		if mentions(c.Left, v) || mentions(c.Right, v) {
			out = append(out, c)
		}
	}
	return out
}

func mentions(t Type, v *Variable) bool {
	if candidate, ok := t.(*Variable); ok {
		return candidate.Identity == v.Identity
	}
	return false
}

// IsSubtype answers the three-valued subtype question: True/False when the
// answer is decidable from closed structure or from an already-recorded
// relation between the two variables, Unknown otherwise. This is the
// store-aware counterpart to StructuralSubtype, which only handles
// variable-free operands.
func (s *Store) IsSubtype(a, b Type) Tri {
	if !ContainsVariable(a) && !ContainsVariable(b) {
		return triFromBool(StructuralSubtype(a, b))
	}
	if a.String() == b.String() {
		return True
	}
	if _, ok := a.(Nothing); ok {
		return True
	}
	if _, ok := b.(Object); ok {
		return True
	}
	if s.hasKnownSubtype(a, b, map[string]bool{}) {
		return True
	}
	return Unknown
}

// hasKnownSubtype walks active+completed subtype constraints transitively.
// visited guards against cycles through already-seen pairs.
func (s *Store) hasKnownSubtype(a, b Type, visited map[string]bool) bool {
	key := a.String() + "<:" + b.String()
	if visited[key] {
		return false
	}
	visited[key] = true
	check := func(pool map[string]Constraint) bool {
		for _, c := range pool {
			if c.Kind != KindSubtype {
				continue
			}
			if c.Left.String() == a.String() {
				if c.Right.String() == b.String() {
					return true
				}
				if s.hasKnownSubtype(c.Right, b, visited) {
					return true
				}
			}
		}
		return false
	}
	return check(s.active) || check(s.completed)
}

// FreshVariableSupertype returns whichever operand is already known to be a
// supertype of the other, otherwise mints a fresh variable constrained as a
// supertype of both.
func (s *Store) FreshVariableSupertype(a, b Type) Type {
	if s.IsSubtype(a, b) == True {
		return b
	}
	if s.IsSubtype(b, a) == True {
		return a
	}
	v := s.FreshVariable("")
	s.AddSubtype(a, v)
	s.AddSubtype(b, v)
	return v
}

// FreshVariableSubtype is the dual of FreshVariableSupertype: it mints a
// fresh variable constrained as a subtype of both a and b, short-circuiting
// to an existing operand when one is already known to satisfy both bounds.
func (s *Store) FreshVariableSubtype(a, b Type) Type {
	if s.IsSubtype(a, b) == True {
		return a
	}
	if s.IsSubtype(b, a) == True {
		return b
	}
	v := s.FreshVariable("")
	s.AddSubtype(v, a)
	s.AddSubtype(v, b)
	return v
}

// ConstrainSubtype is the public entry point abstract interpretation uses
// to record sub <: super.
func (s *Store) ConstrainSubtype(sub, super Type) {
	s.AddSubtype(sub, super)
}

// ConstrainSupertype records super >: sub (sugar for ConstrainSubtype with
// arguments swapped, kept as a distinct entry point to mirror call sites
// that read more naturally the other way around).
func (s *Store) ConstrainSupertype(super, sub Type) {
	s.AddSubtype(sub, super)
}

// ConstrainEqual records left = right.
func (s *Store) ConstrainEqual(left, right Type) {
	s.AddEqual(left, right)
}
