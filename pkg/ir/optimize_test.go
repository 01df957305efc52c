package ir

import (
	"testing"

	"github.com/KaiserGranatapfel/gcrecomp/pkg/cfg"
)

var allPasses = map[string]bool{
	"const-fold":     true,
	"copy-prop":      true,
	"dce":            true,
	"peephole":       true,
	"redundant-load": true,
}

func allInsns(f *Func) []*Instruction {
	var out []*Instruction
	for _, blk := range f.Blocks {
		out = append(out, blk.Instructions...)
	}
	return out
}

// Scenario 2: li r3,5 / li r4,3 / add r3,r3,r4 / blr constant-folds the
// add down to a single MoveImm of 8.
func TestOptimizeConstantFoldsAddOfImmediates(t *testing.T) {
	entry := uint32(0x80003000)
	img := buildImage(entry, []uint32{
		0x38600005, // li r3, 5
		0x38800003, // li r4, 3
		0x7C632214, // add r3, r3, r4
		0x4E800020, // blr
	})
	end := entry + 16
	g, err := cfg.Build(entry, img, &end)
	if err != nil {
		t.Fatalf("cfg.Build: %v", err)
	}
	f := Lower("fn_80003000", entry, g)
	Optimize(f, allPasses)

	found := false
	for _, insn := range allInsns(f) {
		if insn.Op == OpMoveImm {
			if c, ok := insn.Args[0].(Const); ok && c.Value == 8 {
				found = true
			}
		}
	}
	if !found {
		t.Error("expected the add of two folded immediates to collapse to MoveImm 8")
	}
}

func TestConstFoldLeavesDivisionByZeroUnfolded(t *testing.T) {
	f := &Func{Name: "fn", Blocks: []*BasicBlock{{
		Instructions: []*Instruction{
			{Op: OpMoveImm, Dst: VReg{"r3", 1}, Args: []Value{Const{10}}},
			{Op: OpMoveImm, Dst: VReg{"r4", 1}, Args: []Value{Const{0}}},
			{Op: OpDiv, Dst: VReg{"r3", 2}, Args: []Value{VReg{"r3", 1}, VReg{"r4", 1}}, Signed: true},
		},
	}}}
	for ConstFold(f) {
	}
	div := f.Blocks[0].Instructions[2]
	if div.Op != OpDiv {
		t.Errorf("Op = %v, want OpDiv to remain unfolded for divide-by-zero", div.Op)
	}
}

func TestPeepholeAddZeroBecomesMove(t *testing.T) {
	f := &Func{Blocks: []*BasicBlock{{
		Instructions: []*Instruction{
			{Op: OpAdd, Dst: VReg{"r3", 1}, Args: []Value{VReg{"r4", 0}, Const{0}}},
		},
	}}}
	Peephole(f)
	insn := f.Blocks[0].Instructions[0]
	if insn.Op != OpMove {
		t.Errorf("Op = %v, want OpMove", insn.Op)
	}
}

func TestPeepholeSubSelfBecomesZero(t *testing.T) {
	v := VReg{"r3", 1}
	f := &Func{Blocks: []*BasicBlock{{
		Instructions: []*Instruction{
			{Op: OpSub, Dst: VReg{"r3", 2}, Args: []Value{v, v}},
		},
	}}}
	Peephole(f)
	insn := f.Blocks[0].Instructions[0]
	if insn.Op != OpMoveImm {
		t.Fatalf("Op = %v, want OpMoveImm", insn.Op)
	}
	if c, ok := insn.Args[0].(Const); !ok || c.Value != 0 {
		t.Errorf("Args[0] = %v, want Const{0}", insn.Args[0])
	}
}

func TestDeadCodeEliminateRemovesUnusedScratchTemp(t *testing.T) {
	f := &Func{Blocks: []*BasicBlock{{
		Instructions: []*Instruction{
			{Op: OpAnd, Dst: VReg{"r3$and", 1}, Args: []Value{VReg{"r3", 0}, VReg{"r4", 0}}},
			{Op: OpXor, Dst: VReg{"r3", 1}, Args: []Value{VReg{"r3$and", 1}, Const{-1}}},
		},
	}}}
	for DeadCodeEliminate(f) {
	}
	if len(f.Blocks[0].Instructions) != 2 {
		t.Fatalf("len(Instructions) = %d, want 2 (scratch temp is used)", len(f.Blocks[0].Instructions))
	}

	// Now make the scratch temp unused: nothing reads r3$and.
	f2 := &Func{Blocks: []*BasicBlock{{
		Instructions: []*Instruction{
			{Op: OpAnd, Dst: VReg{"r3$and", 1}, Args: []Value{VReg{"r3", 0}, VReg{"r4", 0}}},
			{Op: OpMoveImm, Dst: VReg{"r3", 1}, Args: []Value{Const{0}}},
		},
	}}}
	for DeadCodeEliminate(f2) {
	}
	if len(f2.Blocks[0].Instructions) != 1 {
		t.Errorf("len(Instructions) = %d, want 1 (dead scratch temp removed)", len(f2.Blocks[0].Instructions))
	}
}

func TestRedundantLoadEliminateCachesSameAddress(t *testing.T) {
	base := VReg{"r3", 0}
	f := &Func{Blocks: []*BasicBlock{{
		Instructions: []*Instruction{
			{Op: OpLoad, Dst: VReg{"r4", 1}, Args: []Value{base, Const{0}}, Width: 32, Signed: true},
			{Op: OpLoad, Dst: VReg{"r5", 1}, Args: []Value{base, Const{0}}, Width: 32, Signed: true},
		},
	}}}
	RedundantLoadEliminate(f)
	second := f.Blocks[0].Instructions[1]
	if second.Op != OpMove {
		t.Errorf("Op = %v, want OpMove (second load is redundant)", second.Op)
	}
}

func TestRedundantLoadEliminateInvalidatedByStore(t *testing.T) {
	base := VReg{"r3", 0}
	f := &Func{Blocks: []*BasicBlock{{
		Instructions: []*Instruction{
			{Op: OpLoad, Dst: VReg{"r4", 1}, Args: []Value{base, Const{0}}, Width: 32, Signed: true},
			{Op: OpStore, Args: []Value{base, Const{0}, VReg{"r6", 0}}, Width: 32},
			{Op: OpLoad, Dst: VReg{"r5", 1}, Args: []Value{base, Const{0}}, Width: 32, Signed: true},
		},
	}}}
	RedundantLoadEliminate(f)
	third := f.Blocks[0].Instructions[2]
	if third.Op != OpLoad {
		t.Errorf("Op = %v, want OpLoad (intervening store invalidates the cache)", third.Op)
	}
}
