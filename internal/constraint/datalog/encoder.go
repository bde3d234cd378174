package datalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lucidscript/lucid/internal/constraint"
)

// Encoder assigns opaque atom ids to every type reachable from a
// constraint set's structural closure and converts both the types and the
// constraints themselves into Fact values.
type Encoder struct {
	ids   map[string]string
	types map[string]constraint.Type
	facts []Fact
	next  int
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder {
	return &Encoder{
		ids:   map[string]string{},
		types: map[string]constraint.Type{},
	}
}

func (e *Encoder) getID(t constraint.Type) string {
	key := t.String()
	if id, ok := e.ids[key]; ok {
		return id
	}
	id := fmt.Sprintf("t%d", e.next)
	e.next++
	e.ids[key] = id
	e.types[key] = t
	return id
}

// Generate computes the structural closure of every type mentioned in cs,
// emits their facts, and emits a subtype/2 fact for each constraint whose
// Kind is KindSubtype (equality constraints are expected to already have
// been eliminated by Store.Simplify before encoding).
func (e *Encoder) Generate(cs []constraint.Constraint) {
	var seeds []constraint.Type
	for _, c := range cs {
		seeds = append(seeds, c.Left, c.Right)
	}
	for _, t := range closure(seeds) {
		e.convertType(t)
	}
	for _, c := range cs {
		if c.Kind != constraint.KindSubtype {
			continue
		}
		e.facts = append(e.facts, Fact{
			Predicate: "subtype",
			Args:      []string{e.getID(c.Left), e.getID(c.Right)},
		})
	}
}

// closure returns every type reachable from seeds, expanding Instance
// structure, Function args/return, Union members, and Constant value
// types, always including Object and Nothing.
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

func (e *Encoder) convertType(t constraint.Type) {
	id := e.getID(t)
	e.facts = append(e.facts, Fact{Predicate: "repr", Args: []string{id, quote(t.String())}})

	switch v := t.(type) {
	case constraint.Object:
		e.facts = append(e.facts, Fact{Predicate: "object", Args: []string{id}})
	case constraint.Nothing:
		e.facts = append(e.facts, Fact{Predicate: "nothing", Args: []string{id}})
	case constraint.Dynamic:
		e.facts = append(e.facts, Fact{Predicate: "dynamic_type", Args: []string{id}})
	case *constraint.Variable:
		e.facts = append(e.facts, Fact{Predicate: "variable", Args: []string{id}})
	case constraint.Union:
		for i, m := range v.Members {
			e.facts = append(e.facts, Fact{
				Predicate: "union",
				Args:      []string{id, fmt.Sprint(i), e.getID(m)},
			})
		}
	case constraint.Function:
		argTupleID := fmt.Sprintf("%s_args", id)
		for i, a := range v.Args {
			e.facts = append(e.facts, Fact{
				Predicate: "tuple",
				Args:      []string{argTupleID, fmt.Sprint(i), e.getID(a)},
			})
		}
		e.facts = append(e.facts, Fact{
			Predicate: "function",
			Args:      []string{id, quote(argTupleID), e.getID(v.Ret)},
		})
	case constraint.Instance:
		for idx, cls := range mroClassNames(v) {
			e.facts = append(e.facts, Fact{
				Predicate: "mro",
				Args:      []string{id, fmt.Sprint(idx), quote(cls)},
			})
		}
		for name, member := range v.GetStructure() {
			e.facts = append(e.facts, Fact{
				Predicate: "instance",
				Args:      []string{id, quote(name), e.getID(member)},
			})
		}
	case constraint.Constant:
		e.convertType(v.ValueType)
		e.facts = append(e.facts, Fact{Predicate: "repr", Args: []string{id, quote("const:" + v.ValueType.String())}})
	}
}

func mroClassNames(i constraint.Instance) []string {
	classes, err := i.MRO.Classes()
	if err != nil {
		return nil
	}
	names := make([]string, len(classes))
	for idx, c := range classes {
		names[idx] = c.Name
	}
	return names
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "\\'") + "'"
}

// Program renders the static rule header followed by every fact collected
// so far, sorted for determinism.
func (e *Encoder) Program() string {
	var b strings.Builder
	b.WriteString(ruleHeader)
	b.WriteString("\n")
	for _, f := range sortFacts(e.facts) {
		b.WriteString(f.String())
		b.WriteString("\n")
	}
	return b.String()
}

// TypeByID recovers the original Type for an atom id produced by this
// Encoder run, used to translate an evaluator's results back into
// constraint.Type pairs.
func (e *Encoder) TypeByID(id string) (constraint.Type, bool) {
	for key, assignedID := range e.ids {
		if assignedID == id {
			return e.types[key], true
		}
	}
	return nil, false
}
