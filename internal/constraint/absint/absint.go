// Package absint abstractly interprets a bytecode.Chunk, emitting subtype
// and equality constraints into a constraint.Store as it goes rather than
// computing any concrete value (spec component H, grounded on
// constraintvm.py's ConstraintVirtualMachine). It never runs a program: it
// only ever discovers what must be true of a program's types for the
// instructions it sees to make sense.
package absint

import (
	"fmt"

	"github.com/lucidscript/lucid/internal/constraint"
	"github.com/lucidscript/lucid/internal/constraint/bytecode"
)

// Frame holds one call's locals and evaluation stack.
type Frame struct {
	Locals []constraint.Type
	Stack  []constraint.Type
}

func (f *Frame) push(t constraint.Type) { f.Stack = append(f.Stack, t) }

func (f *Frame) pop() constraint.Type {
	n := len(f.Stack)
	t := f.Stack[n-1]
	f.Stack = f.Stack[:n-1]
	return t
}

// Interpreter drives Chunks against a Store, the way ConstraintVirtualMachine
// drove real bytecode in the original implementation.
type Interpreter struct {
	Store    *constraint.Store
	Builtins map[string]constraint.Type
}

// New returns an Interpreter backed by s, with builtins (as produced by
// declimport.Import) available for constant typing and global lookups.
func New(s *constraint.Store, builtins map[string]constraint.Type) *Interpreter {
	return &Interpreter{Store: s, Builtins: builtins}
}

// MakeFunction runs chunk as a function body with paramCount fresh
// parameter variables, takes the value OpReturn popped as the return type
// (object if no OpReturn ran), and registers the resulting Function as a
// named target the way a top-level def statement would.
func (vm *Interpreter) MakeFunction(chunk *bytecode.Chunk, paramCount int, name string) constraint.Type {
	params := make([]constraint.Type, paramCount)
	for i := range params {
		params[i] = vm.Store.FreshVariable(fmt.Sprintf("%s.arg%d", name, i))
	}
	frame := &Frame{Locals: append([]constraint.Type{}, params...)}
	ret := vm.run(chunk, frame)
	fn := constraint.Function{Args: params, Ret: ret, Name: name}
	vm.Store.AddTarget(name, fn)
	return fn
}

func (vm *Interpreter) run(chunk *bytecode.Chunk, frame *Frame) constraint.Type {
	for _, instr := range chunk.Code {
		switch instr.Op {
		case bytecode.OpConst:
			frame.push(vm.loadConstant(chunk.Constants[instr.Operand]))
		case bytecode.OpGetLocal:
			frame.push(frame.Locals[instr.Operand])
		case bytecode.OpSetLocal:
			v := frame.pop()
			for len(frame.Locals) <= int(instr.Operand) {
				frame.Locals = append(frame.Locals, nil)
			}
			frame.Locals[instr.Operand] = v
		case bytecode.OpGetField:
			obj := frame.pop()
			frame.push(vm.LoadAttr(obj, chunk.Names[instr.Operand]))
		case bytecode.OpSetField:
			val := frame.pop()
			obj := frame.pop()
			vm.StoreAttr(obj, chunk.Names[instr.Operand], val)
		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv:
			b := frame.pop()
			a := frame.pop()
			frame.push(vm.callBinaryOp(instr.Op, a, b))
		case bytecode.OpCall:
			argc := int(instr.Operand)
			args := make([]constraint.Type, argc)
			for i := argc - 1; i >= 0; i-- {
				args[i] = frame.pop()
			}
			fn := frame.pop()
			frame.push(vm.CallFunction(fn, args))
		case bytecode.OpMakeClosure:
			// Nested function bodies are out of scope for this reduced
			// instruction set; a closure becomes an opaque function variable
			// callers can still constrain against.
			frame.push(vm.Store.FreshVariable("closure"))
		case bytecode.OpReturn:
			return frame.pop()
		}
	}
	return constraint.Object{}
}

var binaryOpNames = map[bytecode.Op]string{
	bytecode.OpAdd: "__add__",
	bytecode.OpSub: "__sub__",
	bytecode.OpMul: "__mul__",
	bytecode.OpDiv: "__div__",
}

func (vm *Interpreter) callBinaryOp(op bytecode.Op, a, b constraint.Type) constraint.Type {
	method := vm.LoadAttr(a, binaryOpNames[op])
	return vm.CallFunction(method, []constraint.Type{b})
}

// CallFunction constrains fn to be a Function accepting args and returning
// a fresh variable, which is handed back as the call's result. This is the
// same shape constraintvm.call_function uses: the caller never needs to
// know fn's real signature ahead of time.
func (vm *Interpreter) CallFunction(fn constraint.Type, args []constraint.Type) constraint.Type {
	ret := vm.Store.FreshVariable("")
	vm.Store.ConstrainSubtype(fn, constraint.Function{Args: args, Ret: ret})
	return ret
}

// LoadAttr resolves an attribute read on obj. Besides computing the
// resolved type, it constrains obj itself to expose name as that type
// (constraintvm.py's load_attr does both: ret = obj.getattr(attr) and
// constrain_subtype(obj, Instance(object.mro, {attr: ret}))), the same
// shape StoreAttr already uses for the write side.
func (vm *Interpreter) LoadAttr(obj constraint.Type, name string) constraint.Type {
	ret := constraint.GetAttr(vm.Store, obj, name)
	vm.Store.ConstrainSubtype(obj, constraint.Instance{
		MRO:       constraint.NewMRO(nil),
		Overrides: map[string]constraint.Type{name: ret},
	})
	return ret
}

// StoreAttr constrains obj to be (at least) an Instance exposing name as
// val, the way assigning to self.x inside a method does.
func (vm *Interpreter) StoreAttr(obj constraint.Type, name string, val constraint.Type) {
	vm.Store.ConstrainSubtype(obj, constraint.Instance{
		MRO:       constraint.NewMRO(nil),
		Overrides: map[string]constraint.Type{name: val},
	})
}

// loadConstant wraps a host literal in a Constant type, or Dynamic if its
// Go type has no builtin counterpart registered.
func (vm *Interpreter) loadConstant(value any) constraint.Type {
	var builtin string
	switch value.(type) {
	case int, int64:
		builtin = "int"
	case float64, float32:
		builtin = "float"
	case string:
		builtin = "str"
	case bool:
		builtin = "bool"
	default:
		return constraint.Dynamic{}
	}
	vt, ok := vm.Builtins[builtin]
	if !ok {
		return constraint.Dynamic{}
	}
	return constraint.Constant{Values: map[string]any{fmt.Sprint(value): value}, ValueType: vt}
}

// MakeClass builds a Class and its ClassConstructor the way a class
// statement does: each method's first ("self") parameter is equated to a
// single fresh self-variable shared across the whole class body, and the
// class's MRO is the C3 merge of its declared parents.
func (vm *Interpreter) MakeClass(name string, methodChunks map[string]*bytecode.Chunk, methodArity map[string]int, parents [][]*constraint.Class) (*constraint.ClassConstructor, error) {
	selfVar := vm.Store.FreshVariable(name + ".self")
	cls := &constraint.Class{Name: name, ClassMembers: map[string]constraint.Type{}, InstanceMembers: map[string]constraint.Type{}}
	for methodName, chunk := range methodChunks {
		arity := methodArity[methodName]
		if arity == 0 {
			arity = 1
		}
		params := make([]constraint.Type, arity)
		params[0] = selfVar
		for i := 1; i < arity; i++ {
			params[i] = vm.Store.FreshVariable(fmt.Sprintf("%s.%s.arg%d", name, methodName, i))
		}
		frame := &Frame{Locals: append([]constraint.Type{}, params...)}
		ret := vm.run(chunk, frame)
		cls.ClassMembers[methodName] = constraint.Function{Args: params, Ret: ret, Name: methodName}
	}
	merged, err := constraint.MergeMROs(cls, parents)
	if err != nil {
		return nil, err
	}
	mro := constraint.NewMRO(merged)
	vm.Store.ConstrainEqual(selfVar, constraint.Instance{MRO: mro, Overrides: map[string]constraint.Type{}, Name: name})
	return &constraint.ClassConstructor{Class: cls, MRO: mro}, nil
}
