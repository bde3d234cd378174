// Package declimport turns a YAML builtin-declaration file into lattice
// terms (spec component G), replacing the PyTD text format the original
// implementation parsed with a YAML schema more natural for a Go toolchain.
package declimport

import (
	"fmt"
	"log"

	"gopkg.in/yaml.v3"

	"github.com/lucidscript/lucid/internal/constraint"
)

// Signature is one method or function declaration.
type Signature struct {
	Args []string `yaml:"args"`
	Ret  string    `yaml:"ret"`
}

// ClassDecl is one class declaration: its parents (by name: "object" or
// another class declared anywhere in the same file), its methods, and its
// instance fields.
type ClassDecl struct {
	Name    string                 `yaml:"name"`
	Parents []string               `yaml:"parents"`
	Methods map[string][]Signature `yaml:"methods"`
	Fields  map[string]string      `yaml:"fields"`
}

// File is the top-level YAML document shape.
type File struct {
	Classes   []ClassDecl          `yaml:"classes"`
	Functions map[string]Signature `yaml:"functions"`
	Constants map[string]string    `yaml:"constants"`
}

// Result is the name-indexed outcome of importing a File.
type Result struct {
	Classes   map[string]*constraint.Class
	MROs      map[string]*constraint.MRO
	Functions map[string]constraint.Type
	Constants map[string]constraint.Type
}

// Import parses raw YAML and builds the declared classes/functions/
// constants. s is not used: no type variables are minted, and a type
// reference that names nothing known becomes Dynamic with a log line.
func Import(s *constraint.Store, raw []byte) (*Result, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("declimport: parsing: %w", err)
	}

	res := &Result{
		Classes:   map[string]*constraint.Class{},
		MROs:      map[string]*constraint.MRO{},
		Functions: map[string]constraint.Type{},
		Constants: map[string]constraint.Type{},
	}

	// Pass 1: allocate every class and an empty MRO handle up front, so
	// mutually-recursive signatures (a method on A returning an A
	// instance, or B's parent list naming a class declared after it) can
	// be resolved to a stable object before any linearization is filled
	// in.
	for _, cd := range f.Classes {
		res.Classes[cd.Name] = &constraint.Class{
			Name:            cd.Name,
			ClassMembers:    map[string]constraint.Type{},
			InstanceMembers: map[string]constraint.Type{},
		}
		res.MROs[cd.Name] = constraint.NewUnresolvedMRO()
	}

	typeRefs := map[string]constraint.Type{
		"object":  constraint.Object{},
		"nothing": constraint.Nothing{},
		"dynamic": constraint.Dynamic{},
	}
	for name, mro := range res.MROs {
		typeRefs[name] = constraint.Instance{MRO: mro, Overrides: map[string]constraint.Type{}, Name: name}
	}

	resolveType := func(name string) constraint.Type {
		if t, ok := typeRefs[name]; ok {
			return t
		}
		log.Printf("declimport: unknown type reference %q, defaulting to dynamic", name)
		return constraint.Dynamic{}
	}

	resolveSignature := func(sigs []Signature, class *constraint.Class) constraint.Type {
		if len(sigs) == 0 {
			return constraint.Dynamic{}
		}
		if len(sigs) > 1 {
			log.Printf("declimport: %s has %d overloaded signatures, using only the first", class.Name, len(sigs))
		}
		sig := sigs[0]
		args := make([]constraint.Type, len(sig.Args))
		for i, a := range sig.Args {
			args[i] = resolveType(a)
		}
		return constraint.Function{Args: args, Ret: resolveType(sig.Ret)}
	}

	// Pass 2: fill in members and, via compute_mro-style recursion over
	// already-allocated parent MROs, every class's own linearization.
	for _, cd := range f.Classes {
		cls := res.Classes[cd.Name]
		for name, sigs := range cd.Methods {
			cls.ClassMembers[name] = resolveSignature(sigs, cls)
		}
		for name, typeName := range cd.Fields {
			cls.InstanceMembers[name] = resolveType(typeName)
		}
	}
	for _, cd := range f.Classes {
		if err := resolveMRO(cd.Name, f, res); err != nil {
			return nil, err
		}
	}

	for name, sigs := range f.Functions {
		res.Functions[name] = resolveSignature([]Signature{sigs}, &constraint.Class{Name: name})
	}
	for name, typeName := range f.Constants {
		vt := resolveType(typeName)
		res.Constants[name] = constraint.Constant{
			Values:    map[string]any{name: true},
			ValueType: vt,
		}
	}

	return res, nil
}

func resolveMRO(name string, f File, res *Result) error {
	mro := res.MROs[name]
	if mro.Resolved() {
		return nil
	}
	var decl *ClassDecl
	for i := range f.Classes {
		if f.Classes[i].Name == name {
			decl = &f.Classes[i]
			break
		}
	}
	if decl == nil {
		return fmt.Errorf("declimport: class %q not found while resolving its MRO", name)
	}

	self := res.Classes[name]
	var parentLinearizations [][]*constraint.Class
	parents := decl.Parents
	if len(parents) == 0 {
		parents = []string{"object"}
	}
	for _, p := range parents {
		if p == "object" {
			continue
		}
		if err := resolveMRO(p, f, res); err != nil {
			return err
		}
		classes, _ := res.MROs[p].Classes()
		parentLinearizations = append(parentLinearizations, classes)
	}

	merged, err := constraint.MergeMROs(self, parentLinearizations)
	if err != nil {
		return fmt.Errorf("declimport: class %q: %w", name, err)
	}
	return mro.SetClasses(merged)
}
