// Package cfg builds control-flow graphs over a function's decoded
// instructions: basic-block partitioning by worklist traversal, edge
// classification, and dominator-based loop detection.
package cfg

import (
	"fmt"
	"sort"

	"github.com/KaiserGranatapfel/gcrecomp/pkg/dol"
	"github.com/KaiserGranatapfel/gcrecomp/pkg/ppc"
)

// EdgeKind classifies a control-flow edge out of a basic block.
type EdgeKind int

const (
	FallThrough EdgeKind = iota
	Taken
	NotTaken
	Call
	CallReturn
	Return
	Indirect
)

func (k EdgeKind) String() string {
	names := [...]string{"fall_through", "taken", "not_taken", "call", "call_return", "return", "indirect"}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// Edge is a directed control-flow transfer from one block to another.
// Target is -1 for Return and for Indirect edges whose destination is
// not statically known.
type Edge struct {
	Target int
	Kind   EdgeKind
}

// BasicBlock is a maximal straight-line instruction run with one entry
// and one exit, per the core's block invariants.
type BasicBlock struct {
	ID           int
	Start, End   uint32
	Instructions []*ppc.Instruction
	Successors   []Edge
	Predecessors []int
}

// Loop is the natural loop of a back edge: the set of blocks that reach
// the back edge's source without passing through its header, plus the
// header itself.
type Loop struct {
	Header    int
	BackEdges [][2]int
	Body      map[int]bool
	Exits     map[int]bool
}

// Graph is the CFG of a single function.
type Graph struct {
	Blocks []*BasicBlock
	Entry  int
	Loops  []Loop

	// dominators[b] is the set of block indices that dominate block b.
	dominators map[int]map[int]bool
}

// DisjointFunction reports that the worklist walk left the function's
// text section; fatal for the enclosing function.
type DisjointFunction struct {
	Entry uint32
	Addr  uint32
}

func (e *DisjointFunction) Error() string {
	return fmt.Sprintf("function at 0x%08X is disjoint: walk reached unmapped address 0x%08X", e.Entry, e.Addr)
}

// decodeAt decodes the instruction at addr. UnmappedAddress becomes a
// DisjointFunction error; UnknownInstruction is not an error here and
// becomes a synthetic placeholder instruction instead.
func decodeAt(img *dol.Image, entry, addr uint32) (*ppc.Instruction, error) {
	word, err := img.ReadWord(addr)
	if err != nil {
		return nil, &DisjointFunction{Entry: entry, Addr: addr}
	}
	insn, err := ppc.Decode(word, addr)
	if err != nil {
		// DecodeUnknown is recoverable: a synthetic opaque instruction
		// lets the CFG walk and later stages continue past it.
		return &ppc.Instruction{Address: addr, Raw: word, Class: ppc.ClassUnknown, Mnemonic: "unimplemented_instruction"}, nil
	}
	return insn, nil
}

// isBranch reports whether insn may transfer control away from addr+4.
func isBranch(insn *ppc.Instruction) bool {
	switch insn.Class {
	case ppc.ClassBranchDirect, ppc.ClassBranchConditional, ppc.ClassBranchIndirect:
		return true
	default:
		return false
	}
}

// isUnconditionalTerminator reports whether insn always transfers control
// away, i.e. it has no fall-through successor of its own.
func isUnconditionalTerminator(insn *ppc.Instruction) bool {
	switch insn.Mnemonic {
	case "b", "bclr", "bcctr":
		return true
	case "bc":
		bo := insn.Operands[0].(ppc.CRBits).BO
		// A BO of the form 1z1zz (both the "ignore condition" 0x10 and
		// "ignore CTR" 0x04 bits set, e.g. 10100) encodes an unconditional
		// bc; anything else is a real conditional branch with a fall-through.
		return bo&0x14 == 0x14
	default:
		return false
	}
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

// Build walks the function starting at entry, decoding instructions via
// img, and returns its basic-block partition and edge set. Call targets
// are not walked; a call's return point is. declaredEnd, if non-nil,
// bounds the walk (addresses at or past it are not decoded) and is used
// as the function's end in place of the last decoded address plus 4.
func Build(entry uint32, img *dol.Image, declaredEnd *uint32) (*Graph, error) {
	visited := make(map[uint32]*ppc.Instruction)
	leaders := map[uint32]bool{entry: true}

	worklist := []uint32{entry}
	for len(worklist) > 0 {
		addr := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if _, done := visited[addr]; done {
			continue
		}
		if declaredEnd != nil && addr >= *declaredEnd {
			continue
		}
		insn, err := decodeAt(img, entry, addr)
		if err != nil {
			return nil, err
		}
		visited[addr] = insn

		next := addr + 4
		if isBranch(insn) {
			if target, ok := branchTargetAddr(insn); ok {
				leaders[target] = true
				if _, seen := visited[target]; !seen && !insn.LinkRegisterUpdate {
					worklist = append(worklist, target)
				}
			}
			if !isUnconditionalTerminator(insn) || insn.LinkRegisterUpdate {
				// Conditional branches fall through; calls always return.
				leaders[next] = true
				if declaredEnd == nil || next < *declaredEnd {
					worklist = append(worklist, next)
				}
			}
		} else {
			if declaredEnd == nil || next < *declaredEnd {
				worklist = append(worklist, next)
			}
		}
	}

	// A leader in the middle of an already-decoded straight-line run
	// also splits that run; discover those here.
	for addr := range visited {
		next := addr + 4
		if visited[next] != nil && leaderBetween(leaders, addr, next) {
			leaders[next] = true
		}
	}

	addrs := make([]uint32, 0, len(visited))
	for a := range visited {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	end := addrs[len(addrs)-1] + 4
	if declaredEnd != nil {
		end = *declaredEnd
	}

	blocks := partition(addrs, visited, leaders, end)
	blockByStart := make(map[uint32]int, len(blocks))
	for i, b := range blocks {
		blockByStart[b.Start] = i
	}

	for i, b := range blocks {
		if len(b.Instructions) == 0 {
			continue
		}
		last := b.Instructions[len(b.Instructions)-1]
		wireEdges(blocks, blockByStart, i, last, b.End)
	}
	for i, b := range blocks {
		for _, e := range b.Successors {
			if e.Target >= 0 {
				blocks[e.Target].Predecessors = append(blocks[e.Target].Predecessors, i)
			}
		}
	}

	g := &Graph{Blocks: blocks, Entry: blockByStart[entry]}
	g.computeDominators()
	g.detectLoops()
	return g, nil
}

func leaderBetween(leaders map[uint32]bool, from, to uint32) bool {
	return leaders[to] && !leaders[from]
}

func partition(addrs []uint32, visited map[uint32]*ppc.Instruction, leaders map[uint32]bool, funcEnd uint32) []*BasicBlock {
	var blocks []*BasicBlock
	var cur *BasicBlock
	for _, addr := range addrs {
		if addr >= funcEnd {
			continue
		}
		if leaders[addr] || cur == nil {
			if cur != nil {
				blocks = append(blocks, cur)
			}
			cur = &BasicBlock{ID: len(blocks), Start: addr}
		}
		cur.Instructions = append(cur.Instructions, visited[addr])
		cur.End = addr + 4
	}
	if cur != nil {
		blocks = append(blocks, cur)
	}
	return blocks
}

func wireEdges(blocks []*BasicBlock, blockByStart map[uint32]int, idx int, last *ppc.Instruction, blockEnd uint32) {
	b := blocks[idx]
	addEdge := func(e Edge) { b.Successors = append(b.Successors, e) }

	switch last.Mnemonic {
	case "b":
		target, _ := branchTargetAddr(last)
		if last.LinkRegisterUpdate {
			addEdge(Edge{Target: targetOr(blockByStart, target), Kind: Call})
			addEdge(Edge{Target: targetOr(blockByStart, blockEnd), Kind: CallReturn})
		} else {
			addEdge(Edge{Target: targetOr(blockByStart, target), Kind: Taken})
		}
	case "bc":
		target, _ := branchTargetAddr(last)
		if last.LinkRegisterUpdate {
			addEdge(Edge{Target: targetOr(blockByStart, target), Kind: Call})
			addEdge(Edge{Target: targetOr(blockByStart, blockEnd), Kind: CallReturn})
		} else {
			addEdge(Edge{Target: targetOr(blockByStart, target), Kind: Taken})
			if !isUnconditionalTerminator(last) {
				addEdge(Edge{Target: targetOr(blockByStart, blockEnd), Kind: NotTaken})
			}
		}
	case "bclr":
		if last.LinkRegisterUpdate {
			addEdge(Edge{Target: -1, Kind: Call})
			addEdge(Edge{Target: targetOr(blockByStart, blockEnd), Kind: CallReturn})
		} else {
			addEdge(Edge{Target: -1, Kind: Return})
		}
	case "bcctr":
		if last.LinkRegisterUpdate {
			addEdge(Edge{Target: -1, Kind: Call})
			addEdge(Edge{Target: targetOr(blockByStart, blockEnd), Kind: CallReturn})
		} else {
			addEdge(Edge{Target: -1, Kind: Indirect})
		}
	default:
		if idx, ok := blockByStart[blockEnd]; ok {
			addEdge(Edge{Target: idx, Kind: FallThrough})
		}
	}
}

func targetOr(blockByStart map[uint32]int, addr uint32) int {
	if idx, ok := blockByStart[addr]; ok {
		return idx
	}
	return -1
}

// computeDominators runs the standard iterative dominator fixed point,
// in the same shape as the intersect/changed-flag loop used elsewhere in
// the retrieved corpus for control-flow analysis.
func (g *Graph) computeDominators() {
	g.dominators = make(map[int]map[int]bool, len(g.Blocks))
	all := make(map[int]bool, len(g.Blocks))
	for i := range g.Blocks {
		all[i] = true
	}
	for i := range g.Blocks {
		g.dominators[i] = cloneSet(all)
	}
	g.dominators[g.Entry] = map[int]bool{g.Entry: true}

	changed := true
	for changed {
		changed = false
		for i, b := range g.Blocks {
			if i == g.Entry {
				continue
			}
			var newDom map[int]bool
			for _, pred := range b.Predecessors {
				if newDom == nil {
					newDom = cloneSet(g.dominators[pred])
				} else {
					newDom = intersectSet(newDom, g.dominators[pred])
				}
			}
			if newDom == nil {
				newDom = map[int]bool{}
			}
			newDom[i] = true
			if !setsEqual(newDom, g.dominators[i]) {
				g.dominators[i] = newDom
				changed = true
			}
		}
	}
}

func (g *Graph) dominates(a, b int) bool { return g.dominators[b][a] }

// detectLoops finds back edges (u -> v where v dominates u) and computes
// each one's natural loop: the set of blocks that reach u without
// passing through v, plus v itself.
func (g *Graph) detectLoops() {
	headerBackEdges := make(map[int][][2]int)
	for u, b := range g.Blocks {
		for _, e := range b.Successors {
			if e.Target < 0 {
				continue
			}
			v := e.Target
			if g.dominates(v, u) {
				headerBackEdges[v] = append(headerBackEdges[v], [2]int{u, v})
			}
		}
	}

	headers := make([]int, 0, len(headerBackEdges))
	for h := range headerBackEdges {
		headers = append(headers, h)
	}
	sort.Ints(headers)

	for _, header := range headers {
		edges := headerBackEdges[header]
		body := map[int]bool{header: true}
		for _, be := range edges {
			g.collectLoopBody(be[0], header, body)
		}
		exits := map[int]bool{}
		for blk := range body {
			for _, e := range g.Blocks[blk].Successors {
				if e.Target >= 0 && !body[e.Target] {
					exits[blk] = true
				}
			}
		}
		g.Loops = append(g.Loops, Loop{Header: header, BackEdges: edges, Body: body, Exits: exits})
	}
}

func (g *Graph) collectLoopBody(from, header int, body map[int]bool) {
	if body[from] {
		return
	}
	body[from] = true
	if from == header {
		return
	}
	for _, pred := range g.Blocks[from].Predecessors {
		g.collectLoopBody(pred, header, body)
	}
}

func cloneSet(s map[int]bool) map[int]bool {
	out := make(map[int]bool, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func intersectSet(a, b map[int]bool) map[int]bool {
	out := map[int]bool{}
	for k := range a {
		if b[k] {
			out[k] = true
		}
	}
	return out
}

func setsEqual(a, b map[int]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
