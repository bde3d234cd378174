package satsolve

import (
	"context"
	"fmt"
	"sort"

	"github.com/lucidscript/lucid/internal/constraint"
)

// SATBackend finds a satisfying assignment for a CNF instance, or reports
// that none exists. prefer lists propositions the caller would like set
// true when the backend has a free choice; a backend is allowed to ignore
// it entirely and still be a correct implementation.
type SATBackend interface {
	Solve(ctx context.Context, clauses []Clause, vars []Proposition, prefer []Proposition) (assignment map[Proposition]bool, sat bool, err error)
}

// DPLLBackend is a small in-process unit-propagation-plus-backtracking
// solver. It is not competitive with a production SAT engine, but the
// instances this package generates are bounded by the structural closure
// of a single function or module's inferred types, not by program size.
type DPLLBackend struct{}

// Solve implements SATBackend.
func (DPLLBackend) Solve(ctx context.Context, clauses []Clause, vars []Proposition, prefer []Proposition) (map[Proposition]bool, bool, error) {
	order := orderedVars(vars, prefer)
	assignment := map[Proposition]bool{}
	ok := dpll(ctx, clauses, order, assignment)
	if !ok {
		return nil, false, nil
	}
	return assignment, true, nil
}

func orderedVars(vars, prefer []Proposition) []Proposition {
	preferred := map[Proposition]bool{}
	for _, p := range prefer {
		preferred[p] = true
	}
	out := append([]Proposition(nil), vars...)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := preferred[out[i]], preferred[out[j]]
		if pi != pj {
			return pi
		}
		return out[i].String() < out[j].String()
	})
	return out
}

func dpll(ctx context.Context, clauses []Clause, vars []Proposition, assignment map[Proposition]bool) bool {
	select {
	case <-ctx.Done():
		return false
	default:
	}

	simplified, ok := unitPropagate(clauses, assignment)
	if !ok {
		return false
	}
	if len(simplified) == 0 {
		return true
	}
	var next Proposition
	found := false
	for _, v := range vars {
		if _, set := assignment[v]; !set {
			next = v
			found = true
			break
		}
	}
	if !found {
		// All variables assigned but clauses remain unsatisfied.
		return false
	}
	for _, val := range []bool{true, false} {
		trial := cloneAssignment(assignment)
		trial[next] = val
		if dpll(ctx, simplified, vars, trial) {
			for k, v := range trial {
				assignment[k] = v
			}
			return true
		}
	}
	return false
}

func cloneAssignment(a map[Proposition]bool) map[Proposition]bool {
	out := make(map[Proposition]bool, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// unitPropagate removes satisfied clauses and falsified literals, failing
// if any clause becomes empty. Returns the residual clause set.
func unitPropagate(clauses []Clause, assignment map[Proposition]bool) ([]Clause, bool) {
	changed := true
	residual := clauses
	for changed {
		changed = false
		var next []Clause
		for _, c := range residual {
			satisfied := false
			var remaining Clause
			for _, l := range c {
				val, set := assignment[l.Prop]
				if set {
					if val != l.Negated {
						satisfied = true
						break
					}
					continue // falsified literal, drop it
				}
				remaining = append(remaining, l)
			}
			if satisfied {
				continue
			}
			if len(remaining) == 0 {
				return nil, false
			}
			if len(remaining) == 1 {
				assignment[remaining[0].Prop] = !remaining[0].Negated
				changed = true
				continue
			}
			next = append(next, remaining)
		}
		residual = next
	}
	return residual, true
}

// Bounds is the decoded result for one Variable: its join of discovered
// lower bounds and meet of discovered upper bounds.
type Bounds struct {
	Lower, Upper constraint.Type
}

// Solve runs enc's instance through backend and decodes every true
// proposition that relates a Variable to a variable-free type into a Bounds
// entry, joining/meeting multiple bounds on the same variable together.
func Solve(ctx context.Context, backend SATBackend, enc *Encoder) (map[string]Bounds, error) {
	assignment, sat, err := backend.Solve(ctx, enc.clauses, enc.propositions(), enc.prefer)
	if err != nil {
		return nil, err
	}
	if !sat {
		return nil, constraint.ErrUnsatisfiable
	}
	scratch := constraint.NewStore()
	results := map[string]Bounds{}
	for p, truth := range assignment {
		if !truth {
			continue
		}
		sub, ok1 := enc.typeByID(p.Sub)
		super, ok2 := enc.typeByID(p.Super)
		if !ok1 || !ok2 {
			continue
		}
		if v, ok := sub.(*constraint.Variable); ok && !constraint.ContainsVariable(super) {
			key := fmt.Sprintf("T%d", v.Identity)
			b := results[key]
			if b.Upper == nil {
				b.Upper = super
			} else {
				b.Upper = constraint.Meet(scratch, b.Upper, super)
			}
			results[key] = b
		}
		if v, ok := super.(*constraint.Variable); ok && !constraint.ContainsVariable(sub) {
			key := fmt.Sprintf("T%d", v.Identity)
			b := results[key]
			if b.Lower == nil {
				b.Lower = sub
			} else {
				b.Lower = constraint.Join(scratch, b.Lower, sub)
			}
			results[key] = b
		}
	}
	return results, nil
}

// SolveIterate runs Generate/Solve twice: the first round's discovered
// upper bounds are substituted into both sides of every constraint, and
// the resulting types are added to the second round's structural closure
// so it can see through variables it previously had to treat opaquely
// (spec §4.F "two-round widening"). The second round still carries the
// original constraints, and its bounds are the ones returned.
func SolveIterate(ctx context.Context, backend SATBackend, cs []constraint.Constraint) (map[string]Bounds, error) {
	enc := NewEncoder()
	enc.Generate(cs)
	first, err := Solve(ctx, backend, enc)
	if err != nil {
		return nil, err
	}

	mapping := map[*constraint.Variable]constraint.Type{}
	for _, v := range allVariables(cs) {
		key := fmt.Sprintf("T%d", v.Identity)
		if b, ok := first[key]; ok && b.Upper != nil {
			mapping[v] = b.Upper
		}
	}
	// "nothing <: t" always holds, so each substituted side only joins the
	// second round's universe; the original constraints keep every variable.
	widened := append([]constraint.Constraint{}, cs...)
	for _, c := range cs {
		widened = append(widened,
			constraint.Constraint{Left: constraint.Nothing{}, Right: constraint.Substitute(c.Left, mapping), Kind: constraint.KindSubtype},
			constraint.Constraint{Left: constraint.Nothing{}, Right: constraint.Substitute(c.Right, mapping), Kind: constraint.KindSubtype})
	}

	enc2 := NewEncoder()
	enc2.Generate(widened)
	return Solve(ctx, backend, enc2)
}

func allVariables(cs []constraint.Constraint) []*constraint.Variable {
	seen := map[uint64]*constraint.Variable{}
	var collect func(t constraint.Type)
	collect = func(t constraint.Type) {
		t.Visit(constraint.Visitor{Any: func(tp constraint.Type) constraint.Type {
			if v, ok := tp.(*constraint.Variable); ok {
				seen[v.Identity] = v
			}
			return tp
		}})
	}
	for _, c := range cs {
		collect(c.Left)
		collect(c.Right)
	}
	ids := make([]uint64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*constraint.Variable, len(ids))
	for i, id := range ids {
		out[i] = seen[id]
	}
	return out
}
