package dataflow

import (
	"github.com/KaiserGranatapfel/gcrecomp/pkg/cfg"
	"github.com/KaiserGranatapfel/gcrecomp/pkg/ppc"
)

// BlockInfo carries the def-use and liveness sets for one basic block.
type BlockInfo struct {
	Def, Use           RegSet
	LiveIn, LiveOut    RegSet
}

// Definition identifies one instruction that writes a register, by its
// position in the CFG.
type Definition struct {
	Block, Index int
}

// Result is the outcome of analyzing a function's CFG: per-block
// def/use/liveness, the reaching-definition chains, and which
// instructions dead-code elimination would remove.
type Result struct {
	Blocks []BlockInfo
	// Reaching maps a register name to the set of Definitions that may
	// reach the end of each block, keyed by block id.
	Reaching map[int]map[string][]Definition
	// Dead marks (block, index) pairs whose instruction is eliminable:
	// every register it defines is dead at its exit and it has no
	// observable side effect.
	Dead map[[2]int]bool
}

// Analyze runs def-use, live-variable, and dead-code analysis over g.
func Analyze(g *cfg.Graph) *Result {
	blocks := make([]BlockInfo, len(g.Blocks))
	for i, b := range g.Blocks {
		var def, use RegSet
		for _, insn := range b.Instructions {
			d, u := instrDefUse(insn)
			// A register used before it is (re)defined within this block
			// belongs to the block's use set; one defined earlier in the
			// block and then used again does not add to use.
			use = use.Union(u.Subtract(def))
			def = def.Union(d)
		}
		blocks[i] = BlockInfo{Def: def, Use: use}
	}

	liveness(g, blocks)
	reaching := reachingDefinitions(g)
	dead := markDead(g, blocks, reaching)

	return &Result{Blocks: blocks, Reaching: reaching, Dead: dead}
}

// liveness runs the backward fixed point: live_out(b) = U live_in(s) for
// s in successors(b); live_in(b) = use(b) U (live_out(b) \ def(b)).
func liveness(g *cfg.Graph, blocks []BlockInfo) {
	changed := true
	for changed {
		changed = false
		for i, b := range g.Blocks {
			var liveOut RegSet
			for _, e := range b.Successors {
				if e.Target >= 0 {
					liveOut = liveOut.Union(blocks[e.Target].LiveIn)
				}
			}
			liveIn := blocks[i].Use.Union(liveOut.Subtract(blocks[i].Def))
			if !liveIn.Equal(blocks[i].LiveIn) || !liveOut.Equal(blocks[i].LiveOut) {
				blocks[i].LiveIn = liveIn
				blocks[i].LiveOut = liveOut
				changed = true
			}
		}
	}
}

// reachingDefinitions computes, for each block, the last definition of
// each register reaching its exit, as a forward fixed point. Only the
// most recent definition per predecessor path is tracked per register
// name; registers defined along divergent paths accumulate all of them,
// matching the def-use chain's "set of reaching definitions" shape.
func reachingDefinitions(g *cfg.Graph) map[int]map[string][]Definition {
	out := make(map[int]map[string][]Definition, len(g.Blocks))
	for i := range g.Blocks {
		out[i] = map[string][]Definition{}
	}

	local := make([]map[string][]Definition, len(g.Blocks))
	for i, b := range g.Blocks {
		local[i] = map[string][]Definition{}
		for idx, insn := range b.Instructions {
			d, _ := instrDefUse(insn)
			for _, name := range d.Names() {
				local[i][name] = []Definition{{Block: i, Index: idx}}
			}
		}
	}

	changed := true
	for changed {
		changed = false
		for i, b := range g.Blocks {
			in := map[string][]Definition{}
			for _, pred := range b.Predecessors {
				for name, defs := range out[pred] {
					in[name] = append(in[name], defs...)
				}
			}
			merged := map[string][]Definition{}
			for name, defs := range in {
				merged[name] = defs
			}
			for name, defs := range local[i] {
				merged[name] = defs
			}
			if !reachEqual(merged, out[i]) {
				out[i] = merged
				changed = true
			}
		}
	}
	return out
}

func reachEqual(a, b map[string][]Definition) bool {
	if len(a) != len(b) {
		return false
	}
	for name, defsA := range a {
		defsB, ok := b[name]
		if !ok || len(defsA) != len(defsB) {
			return false
		}
	}
	return true
}

// hasSideEffect reports whether insn has an effect observable outside
// the dead-register it may also define: a memory write, an SPR write,
// or a link-register mutation from a call.
func hasSideEffect(insn *ppc.Instruction) bool {
	if insn.Class == ppc.ClassStore || insn.Class == ppc.ClassFloatMemory && isStoreMnemonic(insn.Mnemonic) {
		return true
	}
	if insn.Mnemonic == "mtspr" || insn.Mnemonic == "mtcrf" {
		return true
	}
	if insn.LinkRegisterUpdate {
		return true
	}
	switch insn.Class {
	case ppc.ClassBranchDirect, ppc.ClassBranchConditional, ppc.ClassBranchIndirect:
		return true
	}
	if insn.Mnemonic == "sync" || insn.Mnemonic == "icbi" || insn.Mnemonic == "dcbst" {
		return true
	}
	return false
}

func markDead(g *cfg.Graph, blocks []BlockInfo, _ map[int]map[string][]Definition) map[[2]int]bool {
	dead := map[[2]int]bool{}
	for bi, b := range g.Blocks {
		live := blocks[bi].LiveOut
		for idx := len(b.Instructions) - 1; idx >= 0; idx-- {
			insn := b.Instructions[idx]
			d, u := instrDefUse(insn)
			definesOnlyDeadRegs := !d.IsEmpty() && d.Intersect(live).IsEmpty()
			if definesOnlyDeadRegs && !hasSideEffect(insn) {
				dead[[2]int{bi, idx}] = true
				// A removed instruction contributes nothing to live_in.
				continue
			}
			live = live.Subtract(d)
			live = live.Union(u)
		}
	}
	return dead
}
