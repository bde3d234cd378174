package constraint

// This file implements the actual join/meet/subtype/attribute-access
// operations over Type. They are free functions rather than methods so
// that the ones needing to mint fresh type variables (Join/Meet/GetAttr on
// a Variable or an unresolved Instance member) can thread a *Store through
// explicitly, per the "variable allocation as a side effect" design note:
// callers always know which store a fresh variable belongs to instead of
// relying on an ambient global counter.

// StructuralSubtype decides subtyping for a pair of closed (variable-free)
// terms. It must not be called when either side contains a Variable;
// Store.IsSubtype handles that three-valued case and falls back to this
// function once a term is fully concrete.
func StructuralSubtype(a, b Type) bool {
	if _, ok := b.(Object); ok {
		return true
	}
	if _, ok := a.(Nothing); ok {
		return true
	}
	if a.String() == b.String() {
		return true
	}
	if _, ok := a.(Dynamic); ok {
		_, isDyn := b.(Dynamic)
		return isDyn
	}
	if _, ok := b.(Dynamic); ok {
		return false
	}
	if _, ok := a.(Object); ok {
		_, isObj := b.(Object)
		return isObj
	}
	if _, ok := b.(Nothing); ok {
		_, isNothing := a.(Nothing)
		return isNothing
	}

	if ac, ok := a.(Constant); ok {
		return StructuralSubtype(ac.ValueType, b)
	}
	if _, ok := b.(Constant); ok {
		return false // a concrete, non-constant type is never <: a literal set
	}

	switch av := a.(type) {
	case Union:
		for _, m := range av.Members {
			if !StructuralSubtype(m, b) {
				return false
			}
		}
		return true
	}
	switch bv := b.(type) {
	case Union:
		for _, m := range bv.Members {
			if StructuralSubtype(a, m) {
				return true
			}
		}
		return false
	}

	switch av := a.(type) {
	case Instance:
		bv, ok := b.(Instance)
		if !ok {
			return false
		}
		return instanceSubtype(av, bv)
	case Function:
		bv, ok := b.(Function)
		if !ok {
			return false
		}
		return functionSubtype(av, bv)
	case *Variable:
		bv, ok := b.(*Variable)
		return ok && av.Identity == bv.Identity
	}
	return false
}

func instanceSubtype(sub, super Instance) bool {
	// Nominal check: super's linearization, if it has one, must be a
	// subsequence of sub's.
	if superClasses, err := super.MRO.Classes(); err == nil && len(superClasses) > 0 {
		subClasses, err := sub.MRO.Classes()
		if err != nil || !IsSubsequence(superClasses, subClasses) {
			return false
		}
	}
	// Structural check: every member super names must be present on sub
	// and itself a subtype (covariant in member position).
	subStructure := sub.GetStructure()
	for name, superTy := range super.GetStructure() {
		subTy, ok := subStructure[name]
		if !ok {
			return false
		}
		if !StructuralSubtype(subTy, superTy) {
			return false
		}
	}
	return true
}

func functionSubtype(sub, super Function) bool {
	if len(sub.Args) != len(super.Args) {
		return false
	}
	for i := range sub.Args {
		// Contravariant in argument position.
		if !StructuralSubtype(super.Args[i], sub.Args[i]) {
			return false
		}
	}
	// Covariant in return position.
	return StructuralSubtype(sub.Ret, super.Ret)
}

// Join computes the least upper bound of a and b, threading s so that a
// Variable operand can be widened by minting a fresh supertype variable
// rather than losing precision to Object outright.
func Join(s *Store, a, b Type) Type {
	if a.String() == b.String() {
		return a
	}
	if _, ok := a.(Dynamic); ok {
		return Dynamic{}
	}
	if _, ok := b.(Dynamic); ok {
		return Dynamic{}
	}
	if _, ok := a.(Object); ok {
		return Object{}
	}
	if _, ok := b.(Object); ok {
		return Object{}
	}
	if _, ok := a.(Nothing); ok {
		return b
	}
	if _, ok := b.(Nothing); ok {
		return a
	}
	if ac, ok := a.(Constant); ok {
		return Join(s, ac.ValueType, b)
	}
	if bc, ok := b.(Constant); ok {
		return Join(s, a, bc.ValueType)
	}
	if av, ok := a.(*Variable); ok {
		return s.FreshVariableSupertype(av, b)
	}
	if bv, ok := b.(*Variable); ok {
		return s.FreshVariableSupertype(bv, a)
	}
	if au, ok := a.(Union); ok {
		return NewUnion(append(append([]Type{}, au.Members...), b))
	}
	if bu, ok := b.(Union); ok {
		return NewUnion(append(append([]Type{}, bu.Members...), a))
	}
	if av, ok := a.(Instance); ok {
		if bv, ok := b.(Instance); ok {
			return joinInstance(av, bv)
		}
		return Object{}
	}
	if av, ok := a.(Function); ok {
		if bv, ok := b.(Function); ok {
			return joinFunction(s, av, bv)
		}
		return Object{}
	}
	return Object{}
}

// Meet computes the greatest lower bound of a and b.
func Meet(s *Store, a, b Type) Type {
	if a.String() == b.String() {
		return a
	}
	if _, ok := a.(Dynamic); ok {
		return Dynamic{}
	}
	if _, ok := b.(Dynamic); ok {
		return Dynamic{}
	}
	if _, ok := a.(Nothing); ok {
		return Nothing{}
	}
	if _, ok := b.(Nothing); ok {
		return Nothing{}
	}
	if _, ok := a.(Object); ok {
		return b
	}
	if _, ok := b.(Object); ok {
		return a
	}
	if ac, ok := a.(Constant); ok {
		return Meet(s, ac.ValueType, b)
	}
	if bc, ok := b.(Constant); ok {
		return Meet(s, a, bc.ValueType)
	}
	if av, ok := a.(*Variable); ok {
		return s.FreshVariableSubtype(av, b)
	}
	if bv, ok := b.(*Variable); ok {
		return s.FreshVariableSubtype(bv, a)
	}
	if _, aUnion := a.(Union); aUnion {
		return meetUnion(a, b)
	}
	if _, bUnion := b.(Union); bUnion {
		return meetUnion(a, b)
	}
	if av, ok := a.(Instance); ok {
		if bv, ok := b.(Instance); ok {
			return meetInstance(s, av, bv)
		}
		return Nothing{}
	}
	if av, ok := a.(Function); ok {
		if bv, ok := b.(Function); ok {
			return meetFunction(s, av, bv)
		}
		return Nothing{}
	}
	return Nothing{}
}

func membersOf(t Type) []Type {
	if u, ok := t.(Union); ok {
		return u.Members
	}
	return []Type{t}
}

func meetUnion(a, b Type) Type {
	aMembers, bMembers := membersOf(a), membersOf(b)
	seen := map[string]bool{}
	var kept []Type
	for _, m := range aMembers {
		if StructuralSubtype(m, b) && !seen[m.String()] {
			kept = append(kept, m)
			seen[m.String()] = true
		}
	}
	for _, m := range bMembers {
		if StructuralSubtype(m, a) && !seen[m.String()] {
			kept = append(kept, m)
			seen[m.String()] = true
		}
	}
	return NewUnion(kept)
}

func joinInstance(a, b Instance) Type {
	aClasses, errA := a.MRO.Classes()
	bClasses, errB := b.MRO.Classes()
	if errA != nil || errB != nil {
		return Object{}
	}
	lcs := LongestCommonSubsequence(aClasses, bClasses)
	if len(lcs) == 0 {
		return Object{}
	}
	return Instance{MRO: NewMRO(lcs), Overrides: map[string]Type{}}
}

func meetInstance(s *Store, a, b Instance) Type {
	aClasses, errA := a.MRO.Classes()
	bClasses, errB := b.MRO.Classes()
	if errA != nil || errB != nil {
		return Nothing{}
	}
	// One side already nominally contains the other: the meet is just the
	// more specific (sub)type, not a fresh C3 merge of two already-related
	// chains (that would re-declare B as both an ancestor and a sibling of
	// itself and spuriously look like illegal inheritance).
	if IsSubsequence(bClasses, aClasses) {
		return Instance{MRO: a.MRO, Overrides: DictMeet(s, a.Overrides, b.Overrides), Name: a.Name}
	}
	if IsSubsequence(aClasses, bClasses) {
		return Instance{MRO: b.MRO, Overrides: DictMeet(s, a.Overrides, b.Overrides), Name: b.Name}
	}

	var merged []*Class
	var err error
	switch {
	case len(aClasses) == 0:
		merged, err = bClasses, nil
	case len(bClasses) == 0:
		merged, err = aClasses, nil
	default:
		merged, err = MergeMROs(aClasses[0], [][]*Class{aClasses[1:], bClasses})
	}
	if err != nil {
		return Nothing{}
	}
	overrides := DictMeet(s, a.Overrides, b.Overrides)
	return Instance{MRO: NewMRO(merged), Overrides: overrides}
}

func joinFunction(s *Store, a, b Function) Type {
	if len(a.Args) != len(b.Args) {
		// Open question: differing arity widens to Top rather than being
		// rejected outright; kept as the original design flagged it.
		return Object{}
	}
	args := make([]Type, len(a.Args))
	for i := range a.Args {
		args[i] = Meet(s, a.Args[i], b.Args[i])
	}
	return Function{Args: args, Ret: Join(s, a.Ret, b.Ret)}
}

func meetFunction(s *Store, a, b Function) Type {
	if len(a.Args) != len(b.Args) {
		return Nothing{}
	}
	args := make([]Type, len(a.Args))
	for i := range a.Args {
		args[i] = Join(s, a.Args[i], b.Args[i])
	}
	return Function{Args: args, Ret: Meet(s, a.Ret, b.Ret)}
}

// DictMeet pointwise-meets two attribute maps, a structural analogue of
// Meet for the member maps carried by Instance.Overrides.
func DictMeet(s *Store, a, b map[string]Type) map[string]Type {
	out := make(map[string]Type, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if existing, ok := out[k]; ok {
			out[k] = Meet(s, existing, v)
		} else {
			out[k] = v
		}
	}
	return out
}

// DictJoin pointwise-joins two attribute maps, keeping only keys present in
// both (a structural join only agrees where both sides define something).
func DictJoin(s *Store, a, b map[string]Type) map[string]Type {
	out := map[string]Type{}
	for k, v := range a {
		if bv, ok := b[k]; ok {
			out[k] = Join(s, v, bv)
		}
	}
	return out
}

// GetAttr resolves an attribute access on t, consulting s to mint a fresh
// variable when nothing pins the result down (spec §4.A "Attribute access
// on an Instance with no matching member").
func GetAttr(s *Store, t Type, name string) Type {
	switch v := t.(type) {
	case *Variable:
		if v.Attributes == nil {
			v.Attributes = map[string]*Variable{}
		}
		if existing, ok := v.Attributes[name]; ok {
			return existing
		}
		fresh := s.FreshVariable(name)
		v.Attributes[name] = fresh
		return fresh
	case Instance:
		if override, ok := v.Overrides[name]; ok {
			return override
		}
		structure := v.GetStructure()
		if member, ok := structure[name]; ok {
			if fn, ok := member.(Function); ok {
				return BindSelf(fn)
			}
			return member
		}
		return s.FreshVariable(name)
	case Union:
		var result Type
		for _, m := range v.Members {
			attr := GetAttr(s, m, name)
			if result == nil {
				result = attr
			} else {
				result = Join(s, result, attr)
			}
		}
		if result == nil {
			return s.FreshVariable(name)
		}
		return result
	case Constant:
		return GetAttr(s, v.ValueType, name)
	case Dynamic:
		return Dynamic{}
	default:
		return s.FreshVariable(name)
	}
}

// BindSelf drops a method's first (self) parameter, as happens when an
// Instance resolves a class-level method through GetAttr. Class and
// instance methods are deliberately not distinguished (the "bind first
// parameter" conflation is preserved rather than refined further).
func BindSelf(f Function) Function {
	if len(f.Args) == 0 {
		return f
	}
	return Function{Args: f.Args[1:], Ret: f.Ret, Name: f.Name}
}
