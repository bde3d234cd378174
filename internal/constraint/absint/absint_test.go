package absint

import (
	"strings"
	"testing"

	"github.com/lucidscript/lucid/internal/constraint"
	"github.com/lucidscript/lucid/internal/constraint/bytecode"
)

// TestMakeFunctionInfersAddConstraint builds the bytecode for
// "def f(y): return y + 1" and checks that the abstract interpreter
// constrains the parameter to expose a usable __add__.
func TestMakeFunctionInfersAddConstraint(t *testing.T) {
	s := constraint.NewStore()
	intType := constraint.Instance{
		MRO:       constraint.NewMRO([]*constraint.Class{{Name: "int"}}),
		Overrides: map[string]constraint.Type{},
	}
	vm := New(s, map[string]constraint.Type{"int": intType})

	chunk := &bytecode.Chunk{
		Constants: []any{1},
		Code: []bytecode.Instruction{
			{Op: bytecode.OpGetLocal, Operand: 0},
			{Op: bytecode.OpConst, Operand: 0},
			{Op: bytecode.OpAdd},
			{Op: bytecode.OpReturn},
		},
	}

	fn := vm.MakeFunction(chunk, 1, "f")
	f, ok := fn.(constraint.Function)
	if !ok {
		t.Fatalf("expected Function, got %T", fn)
	}
	if len(f.Args) != 1 {
		t.Fatalf("expected 1 argument, got %d", len(f.Args))
	}

	param, ok := f.Args[0].(*constraint.Variable)
	if !ok {
		t.Fatalf("expected the parameter to still be a Variable, got %T", f.Args[0])
	}

	found := false
	for _, c := range s.ConstraintsOnVariable(param) {
		if strings.Contains(c.Right.String(), "__add__") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a constraint pinning __add__ on the parameter, got %v", s.Active())
	}
}

func TestCallFunctionConstrainsCallee(t *testing.T) {
	s := constraint.NewStore()
	vm := New(s, nil)
	callee := s.FreshVariable("g")
	args := []constraint.Type{s.FreshVariable("arg0")}

	ret := vm.CallFunction(callee, args)
	if _, ok := ret.(*constraint.Variable); !ok {
		t.Fatalf("expected call result to be a fresh variable, got %T", ret)
	}

	found := false
	for _, c := range s.Active() {
		if v, ok := c.Left.(*constraint.Variable); ok && v.Identity == callee.Identity {
			if _, ok := c.Right.(constraint.Function); ok {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("expected callee to be constrained as a Function, got %v", s.Active())
	}
}
