package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaiserGranatapfel/gcrecomp/pkg/config"
	"github.com/KaiserGranatapfel/gcrecomp/pkg/ir"
)

// RustEmitter is the core's sole Backend: a single-pass, method-per-
// concern text generator. One method walks the Program's functions,
// one per function, one per block, one per instruction, with dedicated
// value/type formatters — the same shape this codebase's own backend
// historically used to emit QBE IL text, retargeted to Rust source.
type RustEmitter struct{}

func hex32(v uint32) string { return fmt.Sprintf("%08x", v) }

// Generate implements Backend.
func (RustEmitter) Generate(prog *ir.Program, meta map[uint32]FuncMeta, cfg *config.Config) (*Output, error) {
	out := &Output{}
	out.put("shared.h", genSharedHeader())

	names := make(map[uint32]string, len(prog.Funcs))
	for _, f := range prog.Funcs {
		name := fileName(f, meta[f.Entry])
		names[f.Entry] = name
		out.put("fn/"+name+".src", genFunc(f, meta[f.Entry]))
	}
	out.put("dispatcher.src", genDispatcher(prog, names))
	return out, nil
}

func fileName(f *ir.Func, m FuncMeta) string {
	if m.Name != "" {
		return sanitizeIdent(m.Name)
	}
	if f.Name != "" {
		return sanitizeIdent(f.Name)
	}
	return "fn_" + hex32(f.Entry)
}

func sanitizeIdent(name string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// genDispatcher emits the address -> function map, in ascending
// address order, per the ordering guarantee in §5.
func genDispatcher(prog *ir.Program, names map[uint32]string) string {
	entries := make([]uint32, 0, len(prog.Funcs))
	for e := range names {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i] < entries[j] })

	var b strings.Builder
	b.WriteString("// Generated dispatcher: routes a call target to its emitted function.\n")
	b.WriteString("include!(\"../shared.h\");\n")
	for _, e := range entries {
		b.WriteString(fmt.Sprintf("include!(\"fn/%s.src\");\n", names[e]))
	}
	b.WriteString("\npub fn dispatch(target: u32, ctx: &mut CpuContext, mem: &mut dyn Memory) -> u32 {\n")
	b.WriteString("    match target {\n")
	for _, e := range entries {
		b.WriteString(fmt.Sprintf("        0x%s => %s(ctx, mem),\n", hex32(e), names[e]))
	}
	b.WriteString("        _ => { unsafe { unsupported_function(target); } 0 }\n")
	b.WriteString("    }\n}\n")
	return b.String()
}

// genFunc renders one function. A function lowering flagged
// Unsupported is replaced wholesale by a stub body with the same
// signature, per §4.7/§7's UnsupportedFunction contract: the surviving
// blocks are discarded rather than emitted partially, since partial
// control flow around a gap the emitter could not express is not
// something a reader could trust.
func genFunc(f *ir.Func, m FuncMeta) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("// Entry 0x%s\n", hex32(f.Entry)))
	b.WriteString(fmt.Sprintf("pub fn %s(ctx: &mut CpuContext, mem: &mut dyn Memory) -> u32 {\n", fileName(f, m)))
	if f.Unsupported {
		b.WriteString(stubFunctionBody(f.Entry))
		b.WriteString("}\n")
		return b.String()
	}

	locals := collectLocals(f)
	for _, name := range locals {
		b.WriteString("    let mut " + name + ": " + localType(name, m.Types) + " = " + initExpr(name) + ";\n")
	}
	b.WriteString(fmt.Sprintf("    let mut block: u32 = 0x%s;\n", hex32(f.Entry)))
	b.WriteString("    loop {\n        match block {\n")
	for i, blk := range f.Blocks {
		var next uint32
		hasNext := i+1 < len(f.Blocks)
		if hasNext {
			next = f.Blocks[i+1].StartAddr
		}
		b.WriteString(fmt.Sprintf("            0x%s => {\n", hex32(blk.StartAddr)))
		b.WriteString(genBlockBody(blk, next, hasNext))
		b.WriteString("            }\n")
	}
	b.WriteString("            _ => { unsafe { unimplemented_instruction(block); } return r3; }\n")
	b.WriteString("        }\n    }\n}\n")
	return b.String()
}

func initExpr(name string) string {
	switch {
	case strings.HasPrefix(name, "r"):
		if n, ok := gprIndex(name); ok {
			return fmt.Sprintf("ctx.gpr[%d]", n)
		}
	case strings.HasPrefix(name, "f") && !strings.HasPrefix(name, "fn"):
		if n, ok := fprIndex(name); ok {
			return fmt.Sprintf("ctx.fpr[%d] as _", n)
		}
	case strings.HasPrefix(name, "cr"):
		if n, ok := crIndex(name); ok {
			return fmt.Sprintf("ctx.cr[%d] as _", n)
		}
	case name == "lr":
		return "ctx.lr"
	case name == "ctr":
		return "ctx.ctr"
	}
	return "0"
}

func gprIndex(name string) (int, bool) {
	var n int
	if _, err := fmt.Sscanf(name, "r%d", &n); err != nil || n < 0 || n > 31 {
		return 0, false
	}
	return n, true
}

func fprIndex(name string) (int, bool) {
	var n int
	if _, err := fmt.Sscanf(name, "f%d", &n); err != nil || n < 0 || n > 31 {
		return 0, false
	}
	return n, true
}

func crIndex(name string) (int, bool) {
	var n int
	if _, err := fmt.Sscanf(name, "cr%d", &n); err != nil || n < 0 || n > 7 {
		return 0, false
	}
	return n, true
}

// collectLocals walks every instruction's Dst and Args once, in block
// and instruction order, and returns r3 first, then each other distinct
// local name the first time it is mentioned — the declaration order a reader would
// expect, and stable across repeated runs on the same IR.
func collectLocals(f *ir.Func) []string {
	seen := map[string]bool{"r3": true}
	order := []string{"r3"}
	note := func(v ir.Value) {
		vr, ok := v.(ir.VReg)
		if !ok {
			return
		}
		name := strings.ReplaceAll(vr.Name, "$", "_")
		if !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
	}
	for _, blk := range f.Blocks {
		for _, insn := range blk.Instructions {
			if insn.Dst != nil {
				note(insn.Dst)
			}
			for _, a := range insn.Args {
				note(a)
			}
		}
	}
	return order
}

func genBlockBody(blk *ir.BasicBlock, next uint32, hasNext bool) string {
	var b strings.Builder
	for _, insn := range blk.Instructions {
		b.WriteString(genInstr(insn))
	}
	if len(blk.Instructions) == 0 || !terminates(blk.Instructions[len(blk.Instructions)-1].Op) {
		if hasNext {
			b.WriteString(fmt.Sprintf("                block = 0x%s;\n                continue;\n", hex32(next)))
		} else {
			b.WriteString("                return r3;\n")
		}
	}
	return b.String()
}

func terminates(op ir.Op) bool {
	switch op {
	case ir.OpBranch, ir.OpBranchCond, ir.OpReturn, ir.OpIndirectCall:
		return true
	}
	return false
}

func genInstr(insn *ir.Instruction) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("                // 0x%s\n", hex32(insn.SourceAddr)))
	switch insn.Op {
	case ir.OpAdd:
		binOp(&b, insn, "wrapping_add")
	case ir.OpSub:
		binOp(&b, insn, "wrapping_sub")
	case ir.OpMul:
		binOp(&b, insn, "wrapping_mul")
	case ir.OpDiv:
		binOp(&b, insn, "wrapping_div")
	case ir.OpAnd:
		binSym(&b, insn, "&")
	case ir.OpOr:
		binSym(&b, insn, "|")
	case ir.OpXor:
		binSym(&b, insn, "^")
	case ir.OpShl:
		binSym(&b, insn, "<<")
	case ir.OpShr:
		binSym(&b, insn, ">>")
	case ir.OpRol:
		b.WriteString(fmt.Sprintf("                %s = %s.rotate_left(%s as u32);\n",
			localName(insn.Dst), localName(insn.Args[0]), localName(insn.Args[1])))
	case ir.OpMove, ir.OpMoveImm:
		b.WriteString(fmt.Sprintf("                %s = %s as _;\n", localName(insn.Dst), localName(insn.Args[0])))
	case ir.OpLoad:
		// The shared header only declares unsigned read_u{width} accessors
		// (genSharedHeader); a signed load reads the unsigned bit pattern
		// and sign-extends it in the generated expression instead, first
		// to the load's own width (a same-width cast reinterprets bits)
		// and then to the destination's width (a cross-width cast between
		// signed integers sign-extends).
		suffix := accessorSuffix(insn.Width, false)
		expr := fmt.Sprintf("mem.read_%s(%s.wrapping_add(%s as u32))", suffix, localName(insn.Args[0]), localName(insn.Args[1]))
		if insn.Signed {
			expr = fmt.Sprintf("(%s as %s)", expr, accessorSuffix(insn.Width, true))
		}
		b.WriteString(fmt.Sprintf("                %s = %s as _;\n", localName(insn.Dst), expr))
	case ir.OpStore:
		suffix := accessorSuffix(insn.Width, false)
		b.WriteString(fmt.Sprintf("                mem.write_%s(%s.wrapping_add(%s as u32), %s as _);\n",
			suffix, localName(insn.Args[0]), localName(insn.Args[1]), localName(insn.Args[2])))
	case ir.OpFLoad:
		suffix := "f64"
		if insn.Width == 32 {
			suffix = "f32"
		}
		b.WriteString(fmt.Sprintf("                %s = mem.read_%s(%s.wrapping_add(%s as u32)) as f64;\n",
			localName(insn.Dst), suffix, localName(insn.Args[0]), localName(insn.Args[1])))
	case ir.OpFStore:
		suffix := "f64"
		if insn.Width == 32 {
			suffix = "f32"
		}
		b.WriteString(fmt.Sprintf("                mem.write_%s(%s.wrapping_add(%s as u32), %s as %s);\n",
			suffix, localName(insn.Args[0]), localName(insn.Args[1]), localName(insn.Args[2]), suffix))
	case ir.OpFAdd:
		binSym(&b, insn, "+")
	case ir.OpFSub:
		binSym(&b, insn, "-")
	case ir.OpFMul:
		binSym(&b, insn, "*")
	case ir.OpFDiv:
		binSym(&b, insn, "/")
	case ir.OpCompare:
		cmpOp(&b, insn)
	case ir.OpSetCr:
		b.WriteString(fmt.Sprintf("                %s = %s as _;\n                ctx.cr[%d] = %s as u8;\n",
			localName(insn.Dst), localName(insn.Args[0]), insn.CrField, localName(insn.Dst)))
	case ir.OpSetLr:
		b.WriteString(fmt.Sprintf("                ctx.lr = %s;\n", localName(insn.Args[0])))
	case ir.OpBranch:
		b.WriteString(fmt.Sprintf("                block = 0x%s;\n                continue;\n", hex32(insn.Target)))
	case ir.OpBranchCond:
		cond := branchPredicate(insn)
		b.WriteString(fmt.Sprintf("                if %s { block = 0x%s; continue; }\n", cond, hex32(insn.Target)))
	case ir.OpCall:
		b.WriteString(fmt.Sprintf("                r3 = unsafe { dispatch(0x%s, ctx, mem) };\n", hex32(insn.Target)))
	case ir.OpIndirectCall:
		b.WriteString(fmt.Sprintf("                r3 = unsafe { dispatch(%s, ctx, mem) };\n                return r3;\n", localName(insn.Args[0])))
	case ir.OpReturn:
		b.WriteString("                return r3;\n")
	case ir.OpUnimplemented:
		b.WriteString(fmt.Sprintf("                unsafe { unimplemented_instruction(0x%s); }\n", hex32(insn.SourceAddr)))
	default:
		b.WriteString("                // unhandled IR op\n")
	}
	return b.String()
}

func binOp(b *strings.Builder, insn *ir.Instruction, method string) {
	b.WriteString(fmt.Sprintf("                %s = %s.%s(%s);\n",
		localName(insn.Dst), localName(insn.Args[0]), method, localName(insn.Args[1])))
}

func binSym(b *strings.Builder, insn *ir.Instruction, sym string) {
	b.WriteString(fmt.Sprintf("                %s = %s %s %s;\n",
		localName(insn.Dst), localName(insn.Args[0]), sym, localName(insn.Args[1])))
}

func cmpOp(b *strings.Builder, insn *ir.Instruction) {
	lt, eq := "0", "0"
	lhs, rhs := localName(insn.Args[0]), localName(insn.Args[1])
	if insn.Predicate == "float" {
		lt = fmt.Sprintf("(%s < %s) as u8", lhs, rhs)
		eq = fmt.Sprintf("(%s == %s) as u8", lhs, rhs)
	} else if insn.Signed {
		lt = fmt.Sprintf("((%s as i64) < (%s as i64)) as u8", lhs, rhs)
		eq = fmt.Sprintf("(%s == %s) as u8", lhs, rhs)
	} else {
		lt = fmt.Sprintf("((%s as u64) < (%s as u64)) as u8", lhs, rhs)
		eq = fmt.Sprintf("(%s == %s) as u8", lhs, rhs)
	}
	b.WriteString(fmt.Sprintf("                %s = if %s != 0 { 0u32 } else if %s != 0 { 1u32 } else { 2u32 };\n",
		localName(insn.Dst), lt, eq))
	b.WriteString(fmt.Sprintf("                ctx.cr[%d] = %s as u8;\n", insn.CrField, localName(insn.Dst)))
}

// branchPredicate renders a BranchCond's test against the condition
// register field it reads: the compare lowering above packs LT/EQ/GT
// into 0/1/2 so the predicate can be a single integer comparison.
func branchPredicate(insn *ir.Instruction) string {
	cr := fmt.Sprintf("cr%d", insn.CrField)
	switch insn.Predicate {
	case "eq":
		return cr + " == 1"
	case "ne":
		return cr + " != 1"
	case "lt":
		return cr + " == 0"
	case "ge":
		return cr + " != 0"
	case "gt":
		return cr + " == 2"
	case "le":
		return cr + " != 2"
	case "always":
		return "true"
	default:
		return "true"
	}
}
