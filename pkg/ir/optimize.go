package ir

// Optimize runs the core's five optimization passes over f, each gated
// by a name in enabled: "const-fold", "copy-prop", "dce", "peephole",
// "redundant-load". Order follows the core's pass pipeline: constant
// folding runs to a fixed point first so copy propagation and DCE see
// the folded form, copy propagation runs once, DCE then runs to a
// fixed point over whatever copy propagation exposed, and peephole and
// redundant-load elimination clean up what remains.
func Optimize(f *Func, enabled map[string]bool) {
	if enabled["const-fold"] {
		for ConstFold(f) {
		}
	}
	if enabled["copy-prop"] {
		CopyPropagate(f)
	}
	if enabled["dce"] {
		for DeadCodeEliminate(f) {
		}
	}
	if enabled["peephole"] {
		Peephole(f)
	}
	if enabled["redundant-load"] {
		RedundantLoadEliminate(f)
	}
}

// ConstFold folds arithmetic and logical operations over two Const
// operands into OpMoveImm, substituting already-folded virtual
// registers into later instructions' operands as it walks. Division by
// a folded zero is left unfolded so the emitted code still performs
// the division (and whatever panic/trap behavior that implies) rather
// than folding it away. Callers loop until it returns false to reach a
// fixed point, since one block's fold can expose another's.
func ConstFold(f *Func) bool {
	changed := false
	consts := map[string]Const{}
	for _, blk := range f.Blocks {
		for _, insn := range blk.Instructions {
			substituteConsts(insn, consts)
			if v, ok := tryFold(insn); ok {
				insn.Op = OpMoveImm
				insn.Args = []Value{v}
				if insn.Dst != nil {
					if c, ok := v.(Const); ok {
						consts[insn.Dst.String()] = c
					}
				}
				changed = true
				continue
			}
			if insn.Op == OpMoveImm && insn.Dst != nil && len(insn.Args) == 1 {
				if c, ok := insn.Args[0].(Const); ok {
					consts[insn.Dst.String()] = c
				}
			}
		}
	}
	return changed
}

func substituteConsts(insn *Instruction, consts map[string]Const) {
	for i, arg := range insn.Args {
		if vr, ok := arg.(VReg); ok {
			if c, ok := consts[vr.String()]; ok {
				insn.Args[i] = c
			}
		}
	}
}

func tryFold(insn *Instruction) (Value, bool) {
	if len(insn.Args) != 2 {
		return nil, false
	}
	a, aok := insn.Args[0].(Const)
	b, bok := insn.Args[1].(Const)
	if !aok || !bok {
		return nil, false
	}
	switch insn.Op {
	case OpAdd:
		return Const{a.Value + b.Value}, true
	case OpSub:
		return Const{a.Value - b.Value}, true
	case OpMul:
		return Const{a.Value * b.Value}, true
	case OpDiv:
		if b.Value == 0 {
			return nil, false
		}
		return Const{a.Value / b.Value}, true
	case OpAnd:
		return Const{a.Value & b.Value}, true
	case OpOr:
		return Const{a.Value | b.Value}, true
	case OpXor:
		return Const{a.Value ^ b.Value}, true
	case OpShl:
		return Const{a.Value << uint(b.Value&31)}, true
	case OpShr:
		if insn.Signed {
			return Const{int64(int32(a.Value) >> uint(b.Value&31))}, true
		}
		return Const{int64(uint32(a.Value) >> uint(b.Value&31))}, true
	case OpRol:
		v := uint32(a.Value)
		n := uint(b.Value) & 31
		return Const{int64(v<<n | v>>(32-n))}, true
	}
	return nil, false
}

// CopyPropagate runs a single forward pass substituting the source of
// every OpMove for its destination's later uses. One pass is sufficient
// because lowering never introduces a move chain longer than the
// nand/nor/crlogic decompositions it emits inline, each already
// resolved by the time copy propagation reaches it.
func CopyPropagate(f *Func) {
	copies := map[string]Value{}
	for _, blk := range f.Blocks {
		for _, insn := range blk.Instructions {
			for i, arg := range insn.Args {
				if vr, ok := arg.(VReg); ok {
					if v, ok := copies[vr.String()]; ok {
						insn.Args[i] = v
					}
				}
			}
			if insn.Op == OpMove && insn.Dst != nil && len(insn.Args) == 1 {
				copies[insn.Dst.String()] = insn.Args[0]
			}
		}
	}
}

// DeadCodeEliminate removes instructions whose destination is one of
// the synthetic intermediates the lowering pass names with a "$"
// separator (the nand/nor/crlogic decompositions' scratch values) when
// that intermediate is never read afterward. It deliberately does not
// attempt liveness of architectural registers (r0..r31, f0..f31,
// cr0..cr7, lr, ctr): the IR carries no explicit use at a function's
// Return or Call boundaries, so removing a definition of one of those
// on local evidence alone could delete a value the emitter still needs
// to read by name. That broader liveness was already computed by the
// Data-Flow Analyzer over the decoded instructions (pkg/dataflow) before
// lowering; this pass only mops up what lowering itself introduced.
func DeadCodeEliminate(f *Func) bool {
	used := map[string]bool{}
	for _, blk := range f.Blocks {
		for _, insn := range blk.Instructions {
			for _, arg := range insn.Args {
				if vr, ok := arg.(VReg); ok {
					used[vr.String()] = true
				}
			}
		}
	}

	changed := false
	for _, blk := range f.Blocks {
		kept := blk.Instructions[:0]
		for _, insn := range blk.Instructions {
			if isScratchTemp(insn.Dst) && !used[insn.Dst.String()] && !hasIRSideEffect(insn) {
				changed = true
				continue
			}
			kept = append(kept, insn)
		}
		blk.Instructions = kept
	}
	return changed
}

func isScratchTemp(v Value) bool {
	vr, ok := v.(VReg)
	if !ok {
		return false
	}
	for i := 0; i < len(vr.Name); i++ {
		if vr.Name[i] == '$' {
			return true
		}
	}
	return false
}

func hasIRSideEffect(insn *Instruction) bool {
	switch insn.Op {
	case OpStore, OpFStore, OpCall, OpIndirectCall, OpReturn, OpBranch, OpBranchCond, OpSetLr, OpSetCr:
		return true
	}
	return false
}

// Peephole rewrites a handful of algebraic identities the lowering pass
// routinely produces: x+0, x*1, x*0, x-x, x^x, and shifts by zero.
func Peephole(f *Func) {
	for _, blk := range f.Blocks {
		for _, insn := range blk.Instructions {
			if len(insn.Args) != 2 {
				continue
			}
			c, isConst := insn.Args[1].(Const)
			switch insn.Op {
			case OpAdd:
				if isConst && c.Value == 0 {
					toMove(insn, insn.Args[0])
				}
			case OpMul:
				if isConst && c.Value == 1 {
					toMove(insn, insn.Args[0])
				} else if isConst && c.Value == 0 {
					insn.Op, insn.Args = OpMoveImm, []Value{Const{0}}
				}
			case OpShl, OpShr, OpRol:
				if isConst && c.Value == 0 {
					toMove(insn, insn.Args[0])
				}
			case OpSub:
				if valuesEqual(insn.Args[0], insn.Args[1]) {
					insn.Op, insn.Args = OpMoveImm, []Value{Const{0}}
				}
			case OpXor:
				if valuesEqual(insn.Args[0], insn.Args[1]) {
					insn.Op, insn.Args = OpMoveImm, []Value{Const{0}}
				}
			}
		}
	}
}

func toMove(insn *Instruction, v Value) {
	insn.Op = OpMove
	insn.Args = []Value{v}
}

func valuesEqual(a, b Value) bool {
	av, aok := a.(VReg)
	bv, bok := b.(VReg)
	if aok && bok {
		return av == bv
	}
	ac, acok := a.(Const)
	bc, bcok := b.(Const)
	if acok && bcok {
		return ac.Value == bc.Value
	}
	return false
}

// RedundantLoadEliminate replaces a Load from the same (base, offset,
// width, signedness) as one already loaded earlier in the same block
// with a Move, provided no Store, call, or other memory-opaque
// operation separates them. It does not reason about aliasing across
// block boundaries or across an intervening Store to a different base,
// which is a conservative, within-block-only scope, matching the
// core's pass description exactly.
func RedundantLoadEliminate(f *Func) {
	type key struct {
		base   string
		disp   int64
		width  int
		signed bool
	}
	for _, blk := range f.Blocks {
		cache := map[key]Value{}
		for _, insn := range blk.Instructions {
			switch insn.Op {
			case OpLoad:
				base, baseOK := insn.Args[0].(VReg)
				disp, dispOK := insn.Args[1].(Const)
				if !baseOK || !dispOK {
					continue
				}
				k := key{base.String(), disp.Value, insn.Width, insn.Signed}
				if prev, ok := cache[k]; ok {
					toMove(insn, prev)
					continue
				}
				if insn.Dst != nil {
					cache[k] = insn.Dst
				}
			case OpStore, OpFStore, OpCall, OpIndirectCall:
				cache = map[key]Value{}
			}
		}
	}
}
