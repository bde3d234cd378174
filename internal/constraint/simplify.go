package constraint

// Simplify runs every rewrite to a fixed point, in the order the original
// implementation used: constants and self-subtype noise are swept first
// since later rewrites assume neither is present, then the bound-narrowing
// rewrites loop until none of them changes anything. Per spec §4.D, the
// loop itself covers only {equality, known relations, meet/join bounds,
// trivial-bound, trivial-unused, unify} — mergeSuperBounds and
// eliminateVariablesByTransitivity are kept as standalone operations
// (constraint_store.py marks both "not used" by its own simplify()) rather
// than run here; a caller that wants their extra chain-bridging can invoke
// them explicitly between Simplify() calls.
func (s *Store) Simplify() {
	s.removeConstants()
	s.completelyRemoveSelfSubtypeConstraints()
	for {
		changed := false
		changed = s.eliminateEqualityConstrainedVariables() || changed
		changed = s.eliminateKnownRelations() || changed
		changed = s.meetSuperBounds() || changed
		changed = s.joinSubBounds() || changed
		changed = s.eliminateTriviallySuperBoundedVariables() || changed
		changed = s.eliminateTriviallyConstrainedUnusedVariables() || changed
		changed = s.unifySubtypeConstraints() || changed
		if !changed {
			return
		}
	}
}

// removeConstants replaces every Constant appearing in any active
// constraint with its value type (spec §4.A "Constants fold away early").
func (s *Store) removeConstants() bool {
	changed := false
	for _, c := range s.Active() {
		newLeft := RemoveConstants(c.Left)
		newRight := RemoveConstants(c.Right)
		if newLeft.String() == c.Left.String() && newRight.String() == c.Right.String() {
			continue
		}
		changed = true
		delete(s.active, c.key())
		if newLeft.String() != newRight.String() {
			if c.Kind == KindEqual {
				s.AddEqual(newLeft, newRight)
			} else {
				s.AddSubtype(newLeft, newRight)
			}
		}
	}
	return changed
}

// completelyRemoveSelfSubtypeConstraints drops every "a <: a" constraint,
// which AddSubtype already refuses to create but which can reappear after a
// rewrite substitutes both sides to the same type.
func (s *Store) completelyRemoveSelfSubtypeConstraints() bool {
	changed := false
	for _, c := range s.Active() {
		if c.Left.String() == c.Right.String() {
			delete(s.active, c.key())
			changed = true
		}
	}
	return changed
}

// eliminateEqualityConstrainedVariables: for every "v = t" equality where v
// is a Variable, substitutes t for v everywhere and retires the equality.
func (s *Store) eliminateEqualityConstrainedVariables() bool {
	changed := false
	for _, c := range s.Active() {
		if c.Kind != KindEqual {
			continue
		}
		v, ok := c.Left.(*Variable)
		var repl Type
		if ok {
			repl = c.Right
		} else if v2, ok2 := c.Right.(*Variable); ok2 {
			v, repl = v2, c.Left
		} else {
			continue
		}
		mapping := map[*Variable]Type{v: repl}
		s.substituteAll(mapping)
		s.complete(c)
		changed = true
	}
	return changed
}

func (s *Store) substituteAll(mapping map[*Variable]Type) {
	// A registered target's recorded type must keep tracking whatever
	// variable it names even as that variable is eliminated out of every
	// constraint (constraint_store.py substitutes into its target types the
	// same way it substitutes into constraints) — otherwise a caller that
	// only cares about a target's principal type, not the constraint that
	// produced it, loses the answer the moment the last constraint
	// mentioning it is retired.
	for name, t := range s.targetTypes {
		newT := Substitute(t, mapping)
		if newT.String() != t.String() {
			s.targetTypes[name] = newT
		}
	}
	for _, c := range s.Active() {
		newLeft := Substitute(c.Left, mapping)
		newRight := Substitute(c.Right, mapping)
		if newLeft.String() == c.Left.String() && newRight.String() == c.Right.String() {
			continue
		}
		delete(s.active, c.key())
		if newLeft.String() == newRight.String() {
			continue
		}
		if c.Kind == KindEqual {
			s.AddEqual(newLeft, newRight)
		} else {
			s.AddSubtype(newLeft, newRight)
		}
	}
}

// eliminateKnownRelations drops any subtype constraint already decidable
// (True or False) purely from closed structure, moving it to completed
// rather than leaving it active forever.
func (s *Store) eliminateKnownRelations() bool {
	changed := false
	for _, c := range s.Active() {
		if c.Kind != KindSubtype {
			continue
		}
		if ContainsVariable(c.Left) || ContainsVariable(c.Right) {
			continue
		}
		s.complete(c)
		changed = true
	}
	return changed
}

// meetSuperBounds: when a variable v has two or more "v <: X" constraints,
// replace them with a single "v <: meet(X1, X2, ...)".
func (s *Store) meetSuperBounds() bool {
	return s.mergeBoundsOneSide(true)
}

// joinSubBounds: when a variable v has two or more "X <: v" constraints,
// replace them with a single "join(X1, X2, ...) <: v".
func (s *Store) joinSubBounds() bool {
	return s.mergeBoundsOneSide(false)
}

func (s *Store) mergeBoundsOneSide(superSide bool) bool {
	bounds := map[uint64][]Type{}
	vars := map[uint64]*Variable{}
	for _, c := range s.Active() {
		if c.Kind != KindSubtype {
			continue
		}
		var v *Variable
		var bound Type
		var ok bool
		if superSide {
			v, ok = c.Left.(*Variable)
			bound = c.Right
		} else {
			v, ok = c.Right.(*Variable)
			bound = c.Left
		}
		if !ok || ContainsVariable(bound) {
			continue
		}
		bounds[v.Identity] = append(bounds[v.Identity], bound)
		vars[v.Identity] = v
	}
	changed := false
	scratch := NewStore()
	for id, ts := range bounds {
		if len(ts) < 2 {
			continue
		}
		var merged Type
		if superSide {
			merged = ts[0]
			for _, t := range ts[1:] {
				merged = Meet(scratch, merged, t)
			}
		} else {
			merged = ts[0]
			for _, t := range ts[1:] {
				merged = Join(scratch, merged, t)
			}
		}
		v := vars[id]
		for _, t := range ts {
			var c Constraint
			if superSide {
				c = Constraint{Left: v, Right: t, Kind: KindSubtype}
			} else {
				c = Constraint{Left: t, Right: v, Kind: KindSubtype}
			}
			delete(s.active, c.key())
		}
		if superSide {
			s.AddSubtype(v, merged)
		} else {
			s.AddSubtype(merged, v)
		}
		changed = true
	}
	return changed
}

// mergeSuperBounds folds transitive chains "v <: w" and "w <: X" (X closed)
// into a direct "v <: X", adding it unless it is already active or
// reflexive. The chain's own constraints stay active, and w's other uses
// are not checked.
func (s *Store) mergeSuperBounds() bool {
	changed := false
	for _, c := range s.Active() {
		if c.Kind != KindSubtype {
			continue
		}
		w, ok := c.Left.(*Variable)
		if !ok {
			continue
		}
		for _, c2 := range s.Active() {
			if c2.Kind != KindSubtype {
				continue
			}
			w2, ok := c2.Right.(*Variable)
			if !ok || w2.Identity != w.Identity {
				continue
			}
			if ContainsVariable(c.Right) {
				continue
			}
			derived := Constraint{Left: c2.Left, Right: c.Right, Kind: KindSubtype}
			if _, exists := s.active[derived.key()]; exists {
				continue
			}
			if derived.Left.String() == derived.Right.String() {
				continue
			}
			s.AddSubtype(c2.Left, c.Right)
			changed = true
		}
	}
	return changed
}

// eliminateTriviallySuperBoundedVariables: a variable with exactly one
// "v <: X" constraint, X variable-free, is replaced everywhere by X; its
// occurrences as a lower bound of other terms do not count against it.
func (s *Store) eliminateTriviallySuperBoundedVariables() bool {
	return s.eliminateTriviallyBoundedVariables(true)
}

// eliminateTriviallyConstrainedUnusedVariables: a variable with exactly one
// "X <: v" constraint, X variable-free, is replaced everywhere by X; its
// occurrences as an upper bound of other terms do not count against it.
func (s *Store) eliminateTriviallyConstrainedUnusedVariables() bool {
	return s.eliminateTriviallyBoundedVariables(false)
}

func (s *Store) eliminateTriviallyBoundedVariables(superSide bool) bool {
	// relevantSideCount only counts constraints on the side eliminable by
	// this rule ("v <: X" constraints for superSide, "X <: v" otherwise) —
	// an occurrence on the other side (e.g. an unrelated "Y <: v" lower
	// bound while eliminating v's single upper bound) does not disqualify
	// the substitution, matching the original's
	// "constraints_on_var = [c for c in self.constraints if c.left == var ...]".
	relevantSideCount := map[uint64]int{}
	var onlyBound = map[uint64]Type{}
	for _, c := range s.Active() {
		if c.Kind != KindSubtype {
			continue
		}
		if v, ok := c.Left.(*Variable); ok && superSide {
			relevantSideCount[v.Identity]++
			if !ContainsVariable(c.Right) {
				if _, seen := onlyBound[v.Identity]; !seen {
					onlyBound[v.Identity] = c.Right
				} else {
					onlyBound[v.Identity] = nil
				}
			}
		}
		if v, ok := c.Right.(*Variable); ok && !superSide {
			relevantSideCount[v.Identity]++
			if !ContainsVariable(c.Left) {
				if _, seen := onlyBound[v.Identity]; !seen {
					onlyBound[v.Identity] = c.Left
				} else {
					onlyBound[v.Identity] = nil
				}
			}
		}
	}
	changed := false
	for id, bound := range onlyBound {
		if bound == nil || relevantSideCount[id] != 1 {
			continue
		}
		var v *Variable
		for _, candidate := range s.variables {
			if candidate.Identity == id {
				v = candidate
				break
			}
		}
		if v == nil {
			continue
		}
		s.substituteAll(map[*Variable]Type{v: bound})
		changed = true
	}
	return changed
}

// eliminateVariablesByTransitivity: "a <: v" and "v <: b" together imply
// "a <: b" directly, without requiring v to disappear; this adds the
// derived constraint so later rewrites (especially the trivial-bound ones)
// can see it.
func (s *Store) eliminateVariablesByTransitivity() bool {
	changed := false
	actives := s.Active()
	for _, c1 := range actives {
		v, ok := c1.Right.(*Variable)
		if !ok {
			continue
		}
		for _, c2 := range actives {
			v2, ok := c2.Left.(*Variable)
			if !ok || v2.Identity != v.Identity {
				continue
			}
			key := Constraint{Left: c1.Left, Right: c2.Right, Kind: KindSubtype}.key()
			if _, exists := s.active[key]; exists {
				continue
			}
			if c1.Left.String() == c2.Right.String() {
				continue
			}
			s.AddSubtype(c1.Left, c2.Right)
			changed = true
		}
	}
	return changed
}

// unifySubtypeConstraints decomposes a subtype constraint whose two sides
// already share the same shape into one constraint per shared piece, so
// that solving never has to reason about Function/Instance structure
// itself once a shape is known (spec §4.D rewrite 11): a Function <:
// Function of equal arity retires into its swapped argument constraints
// plus one return constraint; an Instance <: Instance whose MRO the
// nominal check already accepts retires into one constraint per member
// name shared by both sides.
func (s *Store) unifySubtypeConstraints() bool {
	changed := false
	for _, c := range s.Active() {
		if c.Kind != KindSubtype {
			continue
		}
		if lf, ok := c.Left.(Function); ok {
			if rf, ok := c.Right.(Function); ok && len(lf.Args) == len(rf.Args) {
				s.complete(c)
				for i := range lf.Args {
					s.AddSubtype(rf.Args[i], lf.Args[i]) // contravariant
				}
				s.AddSubtype(lf.Ret, rf.Ret)
				changed = true
				continue
			}
		}
		li, lok := c.Left.(Instance)
		ri, rok := c.Right.(Instance)
		if !lok || !rok {
			continue
		}
		superClasses, errSuper := ri.MRO.Classes()
		if errSuper != nil {
			continue
		}
		subClasses, errSub := li.MRO.Classes()
		if errSub != nil || !IsSubsequence(superClasses, subClasses) {
			continue
		}
		s.complete(c)
		subStructure := li.GetStructure()
		for name, superTy := range ri.GetStructure() {
			if subTy, ok := subStructure[name]; ok {
				s.AddSubtype(subTy, superTy)
			}
		}
		changed = true
	}
	return changed
}
