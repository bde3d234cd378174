// Package bytecode defines the small instruction set the abstract
// interpreter in internal/constraint/absint drives (spec component H) and
// its binary encoding, built with bit-syntax segments the way the rest of
// this codebase already expresses fixed-width wire formats.
package bytecode

import (
	"fmt"

	"github.com/funvibe/funbit/pkg/funbit"
)

// Op is one opcode in the reduced instruction set this package models.
// Only the handful of operations the abstract interpreter actually needs
// to build Function/Instance constraints are represented; a full
// expression/statement bytecode is out of scope.
type Op uint8

const (
	OpConst Op = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpGetLocal
	OpSetLocal
	OpGetField
	OpSetField
	OpCall
	OpMakeClosure
	OpReturn
)

var opNames = map[Op]string{
	OpConst:       "CONST",
	OpAdd:         "ADD",
	OpSub:         "SUB",
	OpMul:         "MUL",
	OpDiv:         "DIV",
	OpGetLocal:    "GET_LOCAL",
	OpSetLocal:    "SET_LOCAL",
	OpGetField:    "GET_FIELD",
	OpSetField:    "SET_FIELD",
	OpCall:        "CALL",
	OpMakeClosure: "MAKE_CLOSURE",
	OpReturn:      "RETURN",
}

func (o Op) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return fmt.Sprintf("OP(%d)", o)
}

// Instruction is one bytecode instruction: an opcode plus a 32-bit operand
// whose meaning depends on Op (a constant pool index for OpConst, a local
// slot for OpGetLocal/OpSetLocal, a Names pool index for OpGetField/
// OpSetField, an argument count for OpCall).
type Instruction struct {
	Op      Op
	Operand uint32
}

// Chunk is a compiled unit: its instruction stream plus the side tables
// instructions index into.
type Chunk struct {
	Code      []Instruction
	Constants []any
	Names     []string
}

// Encode serializes a Chunk to its wire form: a 32-bit instruction count
// followed by one 8-bit opcode + 32-bit big-endian operand pair per
// instruction. Constants/Names are not part of the wire format — callers
// that need them round-tripped keep the Chunk itself rather than
// reconstructing it from bytes.
func Encode(chunk *Chunk) ([]byte, error) {
	builder := funbit.NewBuilder()
	funbit.AddInteger(builder, uint(len(chunk.Code)), funbit.WithSize(32), funbit.WithEndianness("big"))
	for _, instr := range chunk.Code {
		funbit.AddInteger(builder, uint(instr.Op), funbit.WithSize(8))
		funbit.AddInteger(builder, uint(instr.Operand), funbit.WithSize(32), funbit.WithEndianness("big"))
	}
	bits, err := funbit.Build(builder)
	if err != nil {
		return nil, fmt.Errorf("bytecode: encoding: %w", err)
	}
	return bits.ToBytes(), nil
}

// Decode parses the wire form Encode produces back into a Chunk's
// instruction stream (Constants/Names are left empty; a caller that needs
// them must already have the original Chunk).
func Decode(data []byte) (*Chunk, error) {
	bits := funbit.NewBitStringFromBytes(data)

	var count uint
	var afterHeader []byte
	matcher := funbit.NewMatcher()
	funbit.Integer(matcher, &count, funbit.WithSize(32), funbit.WithEndianness("big"))
	funbit.RestBinary(matcher, &afterHeader)
	if _, err := funbit.Match(matcher, bits); err != nil {
		return nil, fmt.Errorf("bytecode: decoding header: %w", err)
	}

	chunk := &Chunk{Code: make([]Instruction, 0, count)}
	rest := funbit.NewBitStringFromBytes(afterHeader)
	for i := uint(0); i < count; i++ {
		var op uint
		var operand uint
		var tail []byte
		m := funbit.NewMatcher()
		funbit.Integer(m, &op, funbit.WithSize(8))
		funbit.Integer(m, &operand, funbit.WithSize(32), funbit.WithEndianness("big"))
		funbit.RestBinary(m, &tail)
		if _, err := funbit.Match(m, rest); err != nil {
			return nil, fmt.Errorf("bytecode: decoding instruction %d: %w", i, err)
		}
		chunk.Code = append(chunk.Code, Instruction{Op: Op(op), Operand: uint32(operand)})
		rest = funbit.NewBitStringFromBytes(tail)
	}
	return chunk, nil
}
