// Package satsolve encodes a constraint set as a propositional SAT
// instance and decodes a satisfying assignment back into per-Variable
// lower/upper bounds (spec component F). Every subtype question between
// two closed types in the structural closure becomes a boolean proposition
// "a <: b"; clauses pin down the propositions that follow from known facts
// (instance/function/union structure) and an external or in-process
// SATBackend finds an assignment consistent with all of them.
package satsolve

import (
	"fmt"
	"sort"

	"github.com/lucidscript/lucid/internal/constraint"
)

// Proposition is the boolean variable "Sub <: Super", identified by the
// atom ids the Encoder assigned to each side.
type Proposition struct {
	Sub, Super string
}

func (p Proposition) String() string { return fmt.Sprintf("%s<:%s", p.Sub, p.Super) }

// Literal is a Proposition or its negation, the unit of a Clause.
type Literal struct {
	Prop    Proposition
	Negated bool
}

func pos(p Proposition) Literal { return Literal{Prop: p} }
func neg(p Proposition) Literal { return Literal{Prop: p, Negated: true} }

// Clause is a disjunction of literals.
type Clause []Literal

// Encoder builds the SAT instance for a constraint set.
type Encoder struct {
	ids     map[string]string
	types   map[string]constraint.Type
	next    int
	clauses []Clause
	prefer  []Proposition // objective: bias the backend toward setting these true
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder {
	return &Encoder{ids: map[string]string{}, types: map[string]constraint.Type{}}
}

func (e *Encoder) getID(t constraint.Type) string {
	key := t.String()
	if id, ok := e.ids[key]; ok {
		return id
	}
	id := fmt.Sprintf("s%d", e.next)
	e.next++
	e.ids[key] = id
	e.types[key] = t
	return id
}

func (e *Encoder) prop(a, b constraint.Type) Proposition {
	return Proposition{Sub: e.getID(a), Super: e.getID(b)}
}

// Generate computes the structural closure over cs, emits every pairwise
// proposition's defining clauses, and records the objective's preferred
// propositions. Call Generate again after widening the closure with
// discovered bounds (SolveIterate's second round) to extend the instance.
func (e *Encoder) Generate(cs []constraint.Constraint) {
	var seeds []constraint.Type
	for _, c := range cs {
		seeds = append(seeds, c.Left, c.Right)
	}
	universe := closure(seeds)
	for _, t := range universe {
		e.getID(t)
	}

	e.generateKnownRelationships(universe)
	e.generateInstanceRelationships(universe)
	e.generateFunctionRelationships(universe)
	e.generateUnionRelationships(universe)
	e.generateTransitivityConstraints(universe)
	e.generateConcreteSolutionObjective(universe)

	for _, c := range cs {
		if c.Kind != constraint.KindSubtype {
			continue
		}
		e.clauses = append(e.clauses, Clause{pos(e.prop(c.Left, c.Right))})
	}
}

func closure(seeds []constraint.Type) []constraint.Type {
	seen := map[string]constraint.Type{}
	queue := append([]constraint.Type{constraint.Object{}, constraint.Nothing{}}, seeds...)
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		key := t.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = t
		switch v := t.(type) {
		case constraint.Instance:
			for _, m := range v.GetStructure() {
				queue = append(queue, m)
			}
		case constraint.Function:
			queue = append(queue, v.Args...)
			queue = append(queue, v.Ret)
		case constraint.Union:
			queue = append(queue, v.Members...)
		case constraint.Constant:
			queue = append(queue, v.ValueType)
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]constraint.Type, len(keys))
	for i, k := range keys {
		out[i] = seen[k]
	}
	return out
}

// generateKnownRelationships pins every proposition between two
// variable-free types to its structurally-decided truth value; these never
// need to be left to the backend to guess.
func (e *Encoder) generateKnownRelationships(universe []constraint.Type) {
	for _, a := range universe {
		if constraint.ContainsVariable(a) {
			continue
		}
		for _, b := range universe {
			if constraint.ContainsVariable(b) {
				continue
			}
			p := e.prop(a, b)
			if constraint.StructuralSubtype(a, b) {
				e.clauses = append(e.clauses, Clause{pos(p)})
			} else {
				e.clauses = append(e.clauses, Clause{neg(p)})
			}
		}
	}
}

// generateInstanceRelationships: Instance a <: Instance b implies that every
// method b.GetStructure() requires (other than __init__/__new__, which are
// constructors rather than part of the protocol) is present and covariant
// on a's side; a missing member forces a <: b false. Only that direction is
// encoded: the members holding does not force a <: b true, and the two
// MROs are not compared here.
func (e *Encoder) generateInstanceRelationships(universe []constraint.Type) {
	for _, a := range universe {
		ai, ok := a.(constraint.Instance)
		if !ok {
			continue
		}
		for _, b := range universe {
			bi, ok := b.(constraint.Instance)
			if !ok {
				continue
			}
			p := e.prop(a, b)
			var lits Clause
			allKnown := true
			for name, bmember := range bi.GetStructure() {
				if name == "__init__" || name == "__new__" {
					continue
				}
				amember, ok := ai.GetStructure()[name]
				if !ok {
					// b requires a member a doesn't have: never a subtype.
					e.clauses = append(e.clauses, Clause{neg(p)})
					allKnown = false
					break
				}
				lits = append(lits, neg(e.prop(amember, bmember)))
			}
			if !allKnown {
				continue
			}
			// p -> AND(member props): encode as (!p OR member) for each member,
			// plus (p OR !member1 OR !member2 ...) is not required since we only
			// need the forward implication for soundness of the decoded bounds.
			for _, lit := range lits {
				e.clauses = append(e.clauses, Clause{neg(p), negateBack(lit)})
			}
		}
	}
}

func negateBack(l Literal) Literal {
	return Literal{Prop: l.Prop, Negated: !l.Negated}
}

// generateFunctionRelationships: equal-arity functions relate
// contravariantly in arguments and covariantly in return; unequal arity
// can never be related.
func (e *Encoder) generateFunctionRelationships(universe []constraint.Type) {
	for _, a := range universe {
		af, ok := a.(constraint.Function)
		if !ok {
			continue
		}
		for _, b := range universe {
			bf, ok := b.(constraint.Function)
			if !ok {
				continue
			}
			p := e.prop(a, b)
			if len(af.Args) != len(bf.Args) {
				e.clauses = append(e.clauses, Clause{neg(p)})
				continue
			}
			e.clauses = append(e.clauses, Clause{neg(p), pos(e.prop(af.Ret, bf.Ret))})
			for i := range af.Args {
				e.clauses = append(e.clauses, Clause{neg(p), pos(e.prop(bf.Args[i], af.Args[i]))})
			}
		}
	}
	// Functions are never related to instances.
	for _, a := range universe {
		af, aIsFn := a.(constraint.Function)
		_ = af
		for _, b := range universe {
			_, bIsInst := b.(constraint.Instance)
			if aIsFn && bIsInst {
				e.clauses = append(e.clauses, Clause{neg(e.prop(a, b))})
				e.clauses = append(e.clauses, Clause{neg(e.prop(b, a))})
			}
		}
	}
}

// generateUnionRelationships: Union a <: b implies every member of a is
// <: b; a <: Union b implies a is <: some member of b. Only these
// implications are encoded; the converse directions are not.
func (e *Encoder) generateUnionRelationships(universe []constraint.Type) {
	for _, a := range universe {
		au, ok := a.(constraint.Union)
		if !ok {
			continue
		}
		for _, b := range universe {
			p := e.prop(a, b)
			for _, m := range au.Members {
				e.clauses = append(e.clauses, Clause{neg(p), pos(e.prop(m, b))})
			}
		}
	}
	for _, b := range universe {
		bu, ok := b.(constraint.Union)
		if !ok {
			continue
		}
		for _, a := range universe {
			p := e.prop(a, b)
			var disjuncts Clause
			disjuncts = append(disjuncts, neg(p))
			for _, m := range bu.Members {
				disjuncts = append(disjuncts, pos(e.prop(a, m)))
			}
			e.clauses = append(e.clauses, disjuncts)
		}
	}
}

// generateTransitivityConstraints adds a <: c when a <: b and b <: c, but
// only pivoting through a b that contains a Variable: pivoting through two
// fully concrete types is already covered by generateKnownRelationships and
// would blow up the clause count for no benefit.
func (e *Encoder) generateTransitivityConstraints(universe []constraint.Type) {
	for _, b := range universe {
		if !constraint.ContainsVariable(b) {
			continue
		}
		for _, a := range universe {
			for _, c := range universe {
				if a.String() == b.String() || b.String() == c.String() {
					continue
				}
				pab := e.prop(a, b)
				pbc := e.prop(b, c)
				pac := e.prop(a, c)
				e.clauses = append(e.clauses, Clause{neg(pab), neg(pbc), pos(pac)})
			}
		}
	}
}

// generateConcreteSolutionObjective records which propositions the
// objective prefers true: those with a bare Variable on exactly one side.
// The other side is not required to be concrete (it may be object,
// nothing, or a type containing variables); Solve decodes only the ones
// whose other side is variable-free into bounds. A plain SAT
// instance has no native objective, so this list is advisory — the
// backend may use it to order search, and Solve/SolveIterate always re-read
// whatever assignment the backend actually returns.
func (e *Encoder) generateConcreteSolutionObjective(universe []constraint.Type) {
	for _, a := range universe {
		_, aVar := a.(*constraint.Variable)
		for _, b := range universe {
			_, bVar := b.(*constraint.Variable)
			if aVar != bVar {
				e.prefer = append(e.prefer, e.prop(a, b))
			}
		}
	}
}

func (e *Encoder) typeByID(id string) (constraint.Type, bool) {
	for key, assigned := range e.ids {
		if assigned == id {
			return e.types[key], true
		}
	}
	return nil, false
}

func (e *Encoder) propositions() []Proposition {
	seen := map[Proposition]bool{}
	var out []Proposition
	for _, c := range e.clauses {
		for _, l := range c {
			if !seen[l.Prop] {
				seen[l.Prop] = true
				out = append(out, l.Prop)
			}
		}
	}
	return out
}
