// Package ir defines the typed intermediate representation the core
// lowers decoded PowerPC instructions into, optimizes, and hands to the
// emitter: a linear per-block sequence of operations over virtual
// registers and constants.
package ir

import "fmt"

// Op is the tag of one IR instruction's operation.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpRol
	OpLoad
	OpStore
	OpMove
	OpMoveImm
	OpBranch
	OpBranchCond
	OpCall
	OpIndirectCall
	OpReturn
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpFLoad
	OpFStore
	OpSetCr
	OpSetLr
	OpCompare
	OpUnimplemented
)

func (op Op) String() string {
	names := [...]string{
		"add", "sub", "mul", "div", "and", "or", "xor", "shl", "shr", "rol",
		"load", "store", "move", "moveimm", "branch", "branchcond", "call",
		"indirectcall", "return", "fadd", "fsub", "fmul", "fdiv", "fload",
		"fstore", "setcr", "setlr", "compare", "unimplemented",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return "op?"
}

// Value is either a virtual register or a constant operand, mirroring
// the Decoder's closed Operand interface: one concrete type per
// variant rather than a struct with optional fields.
type Value interface {
	isValue()
	String() string
}

// VReg is a virtual register, stable for the lifetime of the function:
// one is allocated per (architectural register, definition site) when
// lowering from the CFG.
type VReg struct {
	Name string
	ID   int
}

func (VReg) isValue() {}
func (v VReg) String() string {
	return fmt.Sprintf("%s.%d", v.Name, v.ID)
}

// Const is an integer constant operand.
type Const struct{ Value int64 }

func (Const) isValue() {}
func (c Const) String() string {
	return fmt.Sprintf("%d", c.Value)
}

// FConst is a floating-point constant operand.
type FConst struct{ Value float64 }

func (FConst) isValue() {}
func (c FConst) String() string {
	return fmt.Sprintf("%g", c.Value)
}

// Instruction is one IR operation. Not every field applies to every
// Op: Width/Signed qualify Load/Store/FLoad/FStore, Target qualifies
// Branch/BranchCond/Call, Predicate/CrField qualify BranchCond/SetCr.
type Instruction struct {
	Op         Op
	Dst        Value
	Args       []Value
	Width      int
	Signed     bool
	Target     uint32
	Predicate  string
	CrField    uint8
	SourceAddr uint32
}

func (i *Instruction) String() string {
	return fmt.Sprintf("%s %v <- %v", i.Op, i.Dst, i.Args)
}

// BasicBlock is one IR block, labeled by the PowerPC address its first
// lowered instruction came from.
type BasicBlock struct {
	Label        string
	StartAddr    uint32
	Instructions []*Instruction
}

// Func is the IR of one translated function.
type Func struct {
	Name     string
	Entry    uint32
	Blocks   []*BasicBlock
	NumVRegs int
	// Unsupported is set when lowering hit an instruction the core
	// could not translate; the emitter replaces the function body with
	// a stub call rather than emitting partial, unreachable logic.
	Unsupported bool
}

// Program is a batch's whole IR: every function lowering produced,
// successfully or not.
type Program struct {
	Funcs []*Func
}

// FindFunc returns the function with the given entry address, if any.
func (p *Program) FindFunc(entry uint32) (*Func, bool) {
	for _, f := range p.Funcs {
		if f.Entry == entry {
			return f, true
		}
	}
	return nil, false
}
