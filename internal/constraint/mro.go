package constraint

import "sort"

// Class is a named record of class-level and instance-level members.
// Equality of two Class values is judged by name plus the set of member
// *values* rather than member names, so that a method whose signature
// mentions the class's own instance type does not force infinite
// recursion when classes are compared during MRO construction.
type Class struct {
	Name            string
	ClassMembers    map[string]Type
	InstanceMembers map[string]Type
}

// Equal implements the name+values comparison described above.
func (c *Class) Equal(other *Class) bool {
	if c == other {
		return true
	}
	if c == nil || other == nil {
		return false
	}
	if c.Name != other.Name {
		return false
	}
	return sameValueSet(c.ClassMembers, other.ClassMembers) &&
		sameValueSet(c.InstanceMembers, other.InstanceMembers)
}

func sameValueSet(a, b map[string]Type) bool {
	if len(a) != len(b) {
		return false
	}
	av := valueStrings(a)
	bv := valueStrings(b)
	sort.Strings(av)
	sort.Strings(bv)
	for i := range av {
		if av[i] != bv[i] {
			return false
		}
	}
	return true
}

func valueStrings(m map[string]Type) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v.String())
	}
	return out
}

// MRO is a late-bindable linearization handle: an Instance may reference an
// MRO before its class list is known, so that mutually-recursive class
// definitions (a method on class A returning an A instance) can be built in
// two passes (see declimport.Import).
type MRO struct {
	classes  []*Class
	resolved bool
}

// NewMRO builds an already-resolved MRO from a linearization.
func NewMRO(classes []*Class) *MRO {
	return &MRO{classes: classes, resolved: true}
}

// NewUnresolvedMRO allocates a handle whose linearization is filled in
// later via SetClasses.
func NewUnresolvedMRO() *MRO {
	return &MRO{}
}

func (m *MRO) isResolved() bool { return m != nil && m.resolved }

// Resolved reports whether SetClasses has already been called.
func (m *MRO) Resolved() bool { return m.isResolved() }

// Classes returns the linearization, or ErrMROUnset if SetClasses has not
// been called yet.
func (m *MRO) Classes() ([]*Class, error) {
	if !m.isResolved() {
		return nil, ErrMROUnset
	}
	return m.classes, nil
}

// SetClasses fills in a previously-unresolved MRO. Calling it twice is a
// programming error.
func (m *MRO) SetClasses(classes []*Class) error {
	if m.resolved {
		return ErrMROAlreadySet
	}
	m.classes = classes
	m.resolved = true
	return nil
}

// IsSubsequence reports whether sub appears, in order, as a (not
// necessarily contiguous) subsequence of super, comparing classes with
// Class.Equal. An Instance's MRO being a subsequence of another's is the
// nominal-subtyping test (spec §4.A).
func IsSubsequence(sub, super []*Class) bool {
	i := 0
	for _, c := range super {
		if i >= len(sub) {
			break
		}
		if sub[i].Equal(c) {
			i++
		}
	}
	return i == len(sub)
}

// LongestCommonSubsequence returns the longest common subsequence of a and
// b (by Class.Equal), used to compute the join of two Instance types: the
// most specific set of shared ancestors.
func LongestCommonSubsequence(a, b []*Class) []*Class {
	n, m := len(a), len(b)
	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i].Equal(b[j]) {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i+1][j] >= dp[i][j+1] {
				dp[i][j] = dp[i+1][j]
			} else {
				dp[i][j] = dp[i][j+1]
			}
		}
	}
	result := make([]*Class, 0, dp[0][0])
	i, j := 0, 0
	for i < n && j < m {
		if a[i].Equal(b[j]) {
			result = append(result, a[i])
			i++
			j++
		} else if dp[i+1][j] >= dp[i][j+1] {
			i++
		} else {
			j++
		}
	}
	return result
}

// MergeMROs implements C3 linearization: given the already-computed MRO of
// each direct parent (in declaration order) plus the parent list itself,
// it produces a single linearization with the derived class first.
// Returns ErrIllegalInheritance if no consistent linearization exists.
func MergeMROs(self *Class, parentMROs [][]*Class) ([]*Class, error) {
	sequences := make([][]*Class, 0, len(parentMROs)+1)
	for _, p := range parentMROs {
		if len(p) > 0 {
			cp := make([]*Class, len(p))
			copy(cp, p)
			sequences = append(sequences, cp)
		}
	}
	directParents := make([]*Class, 0, len(parentMROs))
	for _, p := range parentMROs {
		if len(p) > 0 {
			directParents = append(directParents, p[0])
		}
	}
	if len(directParents) > 0 {
		sequences = append(sequences, directParents)
	}

	result := []*Class{self}
	for {
		sequences = dropEmpty(sequences)
		if len(sequences) == 0 {
			return result, nil
		}
		var head *Class
		for _, seq := range sequences {
			candidate := seq[0]
			if !appearsInTail(candidate, sequences) {
				head = candidate
				break
			}
		}
		if head == nil {
			return nil, ErrIllegalInheritance
		}
		result = append(result, head)
		for i, seq := range sequences {
			if len(seq) > 0 && seq[0].Equal(head) {
				sequences[i] = seq[1:]
			}
		}
	}
}

func dropEmpty(seqs [][]*Class) [][]*Class {
	out := seqs[:0]
	for _, s := range seqs {
		if len(s) > 0 {
			out = append(out, s)
		}
	}
	return out
}

func appearsInTail(c *Class, seqs [][]*Class) bool {
	for _, seq := range seqs {
		for _, t := range seq[1:] {
			if t.Equal(c) {
				return true
			}
		}
	}
	return false
}

// ClassConstructor is the callable produced by a class statement: calling
// it (spec component C, absint "make instance") yields a fresh Instance
// sharing the class's MRO.
type ClassConstructor struct {
	Class *Class
	MRO   *MRO
}

// Construct returns a fresh Instance of the constructor's class with no
// overrides beyond what the caller supplies.
func (cc *ClassConstructor) Construct(overrides map[string]Type) Instance {
	if overrides == nil {
		overrides = map[string]Type{}
	}
	return Instance{MRO: cc.MRO, Overrides: overrides, Name: cc.Class.Name}
}
