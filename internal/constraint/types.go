// Package constraint implements a subtype lattice over a closed family of
// type terms plus a constraint store and solver pipeline for recovering
// principal types from subtype/equality constraints emitted while
// abstractly interpreting compiled bytecode for a dynamically-typed guest
// language. See original_source/byterun/constraint for the implementation
// this package is modeled on.
package constraint

import (
	"fmt"
	"sort"
	"strings"
)

// Tri is a three-valued logic result used wherever subtyping cannot be
// decided without more information (a free Variable on either side).
type Tri int

const (
	// Unknown means "not known to be a subtype", distinct from False.
	Unknown Tri = iota
	True
	False
)

func triFromBool(b bool) Tri {
	if b {
		return True
	}
	return False
}

// Type is the sealed sum of all type variants in the lattice (spec §3).
// Every variant must be immutable (besides MRO late-binding and Variable's
// attribute cache) and implement structural String() output that is stable
// enough to serve as its own hash/equality key (see design note in spec
// §4.E "Datalog identifier reuse").
type Type interface {
	fmt.Stringer

	// Visit performs a structural traversal, rebuilding the term from
	// visited children before invoking the variant-specific callback (or
	// the Any fallback) in v.
	Visit(v Visitor) Type

	isConstraintType()
}

// Visitor is a struct of optional per-variant callbacks, the Go analogue of
// the "visitor pattern [as] a stand-in for the missing sum-match" flagged
// in spec §9 — dispatch is done with ordinary type switches inside Visit
// methods rather than a hand-rolled virtual call, and a caller only sets
// the fields it cares about. Any, if set, is used whenever a more specific
// field is nil; if Any is also nil the reconstructed (visited) term is
// returned unchanged.
type Visitor struct {
	Any      func(Type) Type
	Object   func(Object) Type
	Nothing  func(Nothing) Type
	Dynamic  func(Dynamic) Type
	Function func(Function) Type
	Instance func(Instance) Type
	Union    func(Union) Type
	Constant func(Constant) Type
	Variable func(*Variable) Type
}

func (v Visitor) fallback(t Type) Type {
	if v.Any != nil {
		return v.Any(t)
	}
	return t
}

// ContainsVariable reports whether t contains any Variable anywhere in its
// structure.
func ContainsVariable(t Type) bool {
	found := false
	t.Visit(Visitor{Any: func(tp Type) Type {
		if _, ok := tp.(*Variable); ok {
			found = true
		}
		return tp
	}})
	return found
}

// RemoveConstants replaces every Constant inside t with its value type.
func RemoveConstants(t Type) Type {
	return t.Visit(Visitor{Constant: func(c Constant) Type {
		return c.ValueType
	}})
}

// Substitute rewrites t by replacing every Variable present as a key in
// mapping with its mapped Type. It is idempotent provided mapping's
// codomain contains none of its own keys (spec §4.A "Substitution").
func Substitute(t Type, mapping map[*Variable]Type) Type {
	return t.Visit(Visitor{Variable: func(v *Variable) Type {
		if repl, ok := mapping[v]; ok {
			return repl
		}
		return v
	}})
}

// ---- Object (top) ----

// Object is the top of the lattice ("object" in spec terms).
type Object struct{}

func (Object) isConstraintType() {}
func (Object) String() string    { return "object" }
func (o Object) Visit(v Visitor) Type {
	if v.Object != nil {
		return v.Object(o)
	}
	return v.fallback(o)
}

// ---- Nothing (bottom) ----

// Nothing is the uninhabited bottom of the lattice.
type Nothing struct{}

func (Nothing) isConstraintType() {}
func (Nothing) String() string    { return "nothing" }
func (n Nothing) Visit(v Visitor) Type {
	if v.Nothing != nil {
		return v.Nothing(n)
	}
	return v.fallback(n)
}

// ---- Dynamic ----

// Dynamic represents "unknown, do not reason": not part of the lattice,
// neither sub- nor supertype of anything but itself.
type Dynamic struct{}

func (Dynamic) isConstraintType() {}
func (Dynamic) String() string    { return "dynamic" }
func (d Dynamic) Visit(v Visitor) Type {
	if v.Dynamic != nil {
		return v.Dynamic(d)
	}
	return v.fallback(d)
}

// ---- Function ----

// Function is the type of a function value. Arity is part of identity;
// variadics are unsupported (spec §1 Non-goals).
type Function struct {
	Args []Type
	Ret  Type
	Name string
}

func (Function) isConstraintType() {}

func (f Function) String() string {
	parts := make([]string, len(f.Args))
	for i, a := range f.Args {
		parts[i] = a.String()
	}
	prefix := ""
	if f.Name != "" {
		prefix = f.Name
	}
	return fmt.Sprintf("%s(%s) -> %s", prefix, strings.Join(parts, ", "), f.Ret.String())
}

func (f Function) Visit(v Visitor) Type {
	newArgs := make([]Type, len(f.Args))
	for i, a := range f.Args {
		newArgs[i] = a.Visit(v)
	}
	result := Function{Args: newArgs, Ret: f.Ret.Visit(v), Name: f.Name}
	if v.Function != nil {
		return v.Function(result)
	}
	return v.fallback(result)
}

// ---- Instance ----

// Instance is the type of class instances: an MRO (nominal part) plus a
// map of overriding members (structural part). Per invariant 3, the
// effective structure folds the MRO's class/instance members right-to-left
// and then applies Overrides on top.
type Instance struct {
	MRO       *MRO
	Overrides map[string]Type
	Name      string
}

func (Instance) isConstraintType() {}

// String renders an Instance by structure (MRO class names plus sorted
// override fields), not by Name: Name is a display hint only, and two
// Instances built from the same MRO/Overrides must compare equal (via
// String()) regardless of what label, if any, was attached to each.
func (i Instance) String() string {
	classNames := []string{}
	if i.MRO != nil && i.MRO.isResolved() {
		for _, c := range i.MRO.classes {
			classNames = append(classNames, c.Name)
		}
	}
	keys := sortedKeys(i.Overrides)
	fields := make([]string, len(keys))
	for idx, k := range keys {
		fields[idx] = fmt.Sprintf("%s: %s", k, i.Overrides[k].String())
	}
	return fmt.Sprintf("I<(%s), {%s}>", strings.Join(classNames, ", "), strings.Join(fields, ", "))
}

func (i Instance) Visit(v Visitor) Type {
	// The MRO itself is not visited: doing so would make traversal cyclic,
	// since a class's method signatures may mention the class's own
	// instance type (spec §9 "Cyclic structures").
	newOverrides := make(map[string]Type, len(i.Overrides))
	for k, val := range i.Overrides {
		newOverrides[k] = val.Visit(v)
	}
	result := Instance{MRO: i.MRO, Overrides: newOverrides, Name: i.Name}
	if v.Instance != nil {
		return v.Instance(result)
	}
	return v.fallback(result)
}

// GetStructure folds the MRO's class/instance members (in reverse MRO
// order so earlier entries win) and then applies Overrides on top.
func (i Instance) GetStructure() map[string]Type {
	out := map[string]Type{}
	if i.MRO != nil && i.MRO.isResolved() {
		for idx := len(i.MRO.classes) - 1; idx >= 0; idx-- {
			cls := i.MRO.classes[idx]
			for k, v := range cls.ClassMembers {
				out[k] = v
			}
			for k, v := range cls.InstanceMembers {
				out[k] = v
			}
		}
	}
	for k, v := range i.Overrides {
		out[k] = v
	}
	return out
}

// ---- Union ----

// Union is a non-empty, flattened, deduplicated set of member types. Use
// NewUnion to construct one so the size-0/size-1 collapse rules and
// flattening invariants (spec §3 invariant 1) are always applied.
type Union struct {
	Members []Type // sorted by String() for deterministic String()/equality
}

func (Union) isConstraintType() {}

// NewUnion builds a Union from subtypes, flattening nested unions,
// deduplicating by String(), and collapsing to Nothing (empty) or the sole
// element (singleton) per spec §3.
func NewUnion(subtypes []Type) Type {
	seen := map[string]Type{}
	order := []string{}
	var flatten func(Type)
	flatten = func(t Type) {
		if u, ok := t.(Union); ok {
			for _, m := range u.Members {
				flatten(m)
			}
			return
		}
		key := t.String()
		if _, ok := seen[key]; !ok {
			seen[key] = t
			order = append(order, key)
		}
	}
	for _, t := range subtypes {
		flatten(t)
	}
	switch len(order) {
	case 0:
		return Nothing{}
	case 1:
		return seen[order[0]]
	default:
		sort.Strings(order)
		members := make([]Type, len(order))
		for i, k := range order {
			members[i] = seen[k]
		}
		return Union{Members: members}
	}
}

func (u Union) String() string {
	parts := make([]string, len(u.Members))
	for i, m := range u.Members {
		parts[i] = m.String()
	}
	return fmt.Sprintf("U(%s)", strings.Join(parts, ", "))
}

func (u Union) Visit(v Visitor) Type {
	newMembers := make([]Type, len(u.Members))
	for i, m := range u.Members {
		newMembers[i] = m.Visit(v)
	}
	rebuilt := NewUnion(newMembers)
	if result, ok := rebuilt.(Union); ok {
		if v.Union != nil {
			return v.Union(result)
		}
		return v.fallback(result)
	}
	// Flattening/dedup collapsed the union to a single type; visit_union
	// never applies to a non-union result (mirrors byterun's Union.visit).
	return v.fallback(rebuilt)
}

// ---- Constant ----

// Constant is the type of a known literal domain value (or set of values).
// ValueType is always a supertype of every value's natural type
// (invariant 5).
type Constant struct {
	Values    map[string]any // keyed by a canonical repr of each literal
	ValueType Type
}

func (Constant) isConstraintType() {}

func (c Constant) String() string {
	keys := make([]string, 0, len(c.Values))
	for k := range c.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("`%s`(%s)", c.ValueType.String(), strings.Join(keys, ","))
}

func (c Constant) Visit(v Visitor) Type {
	// Constants are not recursed into (mirrors byterun: visit_constant
	// either replaces the whole node or leaves it untouched).
	if v.Constant != nil {
		return v.Constant(c)
	}
	return v.fallback(c)
}

// ---- Variable ----

// Variable is a type variable with a globally fresh, immutable identity
// (invariant 4). Construct one only via Store.FreshVariable so identities
// stay unique within a run; Attributes caches per-name attribute variables
// so repeated GetAttr calls on the same Variable return the same handle.
type Variable struct {
	Identity   uint64
	Name       string
	Attributes map[string]*Variable
}

func (*Variable) isConstraintType() {}

func (v *Variable) String() string {
	if v.Name != "" {
		return fmt.Sprintf("T%d(%s)", v.Identity, v.Name)
	}
	return fmt.Sprintf("T%d", v.Identity)
}

// AddName records an extra hint name, mirroring byterun's Type.add_name:
// substrings of the existing name are not re-added.
func (v *Variable) AddName(name string) {
	if name == "" {
		return
	}
	if v.Name == "" {
		v.Name = name
		return
	}
	if !strings.Contains(v.Name, name) {
		v.Name += "$" + name
	}
}

func (v *Variable) Visit(vis Visitor) Type {
	if vis.Variable != nil {
		return vis.Variable(v)
	}
	return vis.fallback(v)
}

func sortedKeys(m map[string]Type) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
