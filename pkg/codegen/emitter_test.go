package codegen

import (
	"strings"
	"testing"

	"github.com/KaiserGranatapfel/gcrecomp/pkg/config"
	"github.com/KaiserGranatapfel/gcrecomp/pkg/ir"
)

func simpleFunc(entry uint32, name string) *ir.Func {
	return &ir.Func{
		Name:  name,
		Entry: entry,
		Blocks: []*ir.BasicBlock{{
			Label:     "bb",
			StartAddr: entry,
			Instructions: []*ir.Instruction{
				{Op: ir.OpReturn, SourceAddr: entry},
			},
		}},
	}
}

func TestGenerateProducesSharedHeaderDispatcherAndFunctions(t *testing.T) {
	prog := &ir.Program{Funcs: []*ir.Func{
		simpleFunc(0x80004000, "fn_b"),
		simpleFunc(0x80003000, "fn_a"),
	}}
	out, err := (RustEmitter{}).Generate(prog, map[uint32]FuncMeta{}, config.NewConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, ok := out.Files["shared.h"]; !ok {
		t.Error("missing shared.h")
	}
	if _, ok := out.Files["dispatcher.src"]; !ok {
		t.Error("missing dispatcher.src")
	}
	if _, ok := out.Files["fn/fn_a.src"]; !ok {
		t.Error("missing fn/fn_a.src")
	}
	if _, ok := out.Files["fn/fn_b.src"]; !ok {
		t.Error("missing fn/fn_b.src")
	}
}

// The dispatcher must list functions in ascending address order
// regardless of the order they appear in the Program.
func TestDispatcherOrdersByAscendingAddress(t *testing.T) {
	prog := &ir.Program{Funcs: []*ir.Func{
		simpleFunc(0x80004000, "fn_high"),
		simpleFunc(0x80003000, "fn_low"),
	}}
	out, err := (RustEmitter{}).Generate(prog, map[uint32]FuncMeta{}, config.NewConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	dispatcher := string(out.Files["dispatcher.src"])
	lowIdx := strings.Index(dispatcher, "0x80003000")
	highIdx := strings.Index(dispatcher, "0x80004000")
	if lowIdx == -1 || highIdx == -1 {
		t.Fatalf("dispatcher missing expected addresses:\n%s", dispatcher)
	}
	if lowIdx > highIdx {
		t.Error("dispatcher must list the lower address before the higher one")
	}
}

// A function flagged Unsupported is emitted as a stub, not its
// (possibly partial) block bodies.
func TestGenerateStubsUnsupportedFunctions(t *testing.T) {
	f := simpleFunc(0x80003000, "fn_bad")
	f.Unsupported = true
	prog := &ir.Program{Funcs: []*ir.Func{f}}
	out, err := (RustEmitter{}).Generate(prog, map[uint32]FuncMeta{}, config.NewConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	body := string(out.Files["fn/fn_bad.src"])
	if strings.Contains(body, "loop {") {
		t.Error("an unsupported function must not emit the block-dispatch loop body")
	}
}

// Pins cmpOp's CR encoding (LT=0, EQ=1, GT=2) and branchPredicate's
// matching reads, since the two disagreeing silently produces a
// branch that fires on the wrong condition.
func TestCompareAndBranchCondEncodeMatchingCrValues(t *testing.T) {
	f := &ir.Func{
		Name:  "fn_cmp",
		Entry: 0x80003000,
		Blocks: []*ir.BasicBlock{{
			Label:     "bb",
			StartAddr: 0x80003000,
			Instructions: []*ir.Instruction{
				{Op: ir.OpCompare, Dst: ir.VReg{Name: "cr0"}, Args: []ir.Value{ir.VReg{Name: "r3"}, ir.Const{Value: 0}}, Signed: true, CrField: 0, SourceAddr: 0x80003000},
				{Op: ir.OpBranchCond, Predicate: "eq", CrField: 0, Target: 0x80003008, SourceAddr: 0x80003004},
				{Op: ir.OpReturn, SourceAddr: 0x80003008},
			},
		}},
	}
	out, err := (RustEmitter{}).Generate(&ir.Program{Funcs: []*ir.Func{f}}, map[uint32]FuncMeta{}, config.NewConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	body := string(out.Files["fn/fn_cmp.src"])

	if !strings.Contains(body, "else if (r3 == 0) as u8 != 0 { 1u32 } else { 2u32 }") {
		t.Errorf("cmpOp must pack EQ=1, GT=2 into cr0, got:\n%s", body)
	}
	if !strings.Contains(body, "if cr0 == 1 { block = 0x80003008; continue; }") {
		t.Errorf("branchPredicate for eq must test cr0 == 1, got:\n%s", body)
	}
}

// Pins a signed OpLoad: it must call the unsigned read_u{width}
// accessor the shared header declares, then sign-extend in the
// generated expression rather than calling a read_i{width} accessor
// that genSharedHeader never declares.
func TestSignedLoadUsesUnsignedAccessorAndSignExtends(t *testing.T) {
	f := &ir.Func{
		Name:  "fn_load",
		Entry: 0x80003000,
		Blocks: []*ir.BasicBlock{{
			Label:     "bb",
			StartAddr: 0x80003000,
			Instructions: []*ir.Instruction{
				{Op: ir.OpLoad, Dst: ir.VReg{Name: "r4"}, Args: []ir.Value{ir.VReg{Name: "r3"}, ir.Const{Value: 0}}, Width: 32, Signed: true, SourceAddr: 0x80003000},
				{Op: ir.OpReturn, SourceAddr: 0x80003004},
			},
		}},
	}
	out, err := (RustEmitter{}).Generate(&ir.Program{Funcs: []*ir.Func{f}}, map[uint32]FuncMeta{}, config.NewConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	body := string(out.Files["fn/fn_load.src"])

	if !strings.Contains(body, "r4 = (mem.read_u32(r3.wrapping_add(0 as u32)) as i32) as _;") {
		t.Errorf("signed load must read_u32 then sign-extend via as i32, got:\n%s", body)
	}
	if strings.Contains(body, "read_i32") || strings.Contains(body, "read_i16") {
		t.Errorf("a signed load must never call an undeclared read_i* accessor, got:\n%s", body)
	}
}

func TestFileNamePrefersMetaNameThenFuncNameThenHex(t *testing.T) {
	f := &ir.Func{Name: "", Entry: 0x80003000}
	if got := fileName(f, FuncMeta{Name: "explicit"}); got != "explicit" {
		t.Errorf("fileName = %q, want explicit", got)
	}
	if got := fileName(f, FuncMeta{}); got != "fn_80003000" {
		t.Errorf("fileName = %q, want fn_80003000", got)
	}
	f.Name = "fn_symbolname"
	if got := fileName(f, FuncMeta{}); got != "fn_symbolname" {
		t.Errorf("fileName = %q, want fn_symbolname", got)
	}
}
