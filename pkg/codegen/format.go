package codegen

import (
	"fmt"
	"strings"

	"github.com/KaiserGranatapfel/gcrecomp/pkg/ir"
	"github.com/KaiserGranatapfel/gcrecomp/pkg/typeinfer"
)

// localName is the Rust local variable an IR Value's destination or
// operand lowers to. Registration allocation is lexical: every
// definition of a given architectural register or lowering-introduced
// scratch value reuses the same local, so a VReg's ID (its SSA-like
// version, meaningful to the optimizer) is dropped here and only its
// Name survives, with "$" sanitized to "_" for Rust identifier rules.
func localName(v ir.Value) string {
	switch vv := v.(type) {
	case ir.VReg:
		return strings.ReplaceAll(vv.Name, "$", "_")
	case ir.Const:
		return fmt.Sprintf("%d", vv.Value)
	case ir.FConst:
		return fmt.Sprintf("%g", vv.Value)
	default:
		return "0"
	}
}

// rustType renders a Type Inferencer result as a Rust primitive.
// Pointer is rendered as u32, the address width every accessor in the
// shared header takes, rather than a native Rust pointer: the emitted
// code never dereferences host memory directly, only through
// read_*/write_* calls against the recompiled image's byte buffer.
func rustType(t typeinfer.Type) string {
	switch t.Kind {
	case typeinfer.KindInt:
		width := t.Width
		if width == 0 {
			width = 32
		}
		if t.Signed {
			return fmt.Sprintf("i%d", width)
		}
		return fmt.Sprintf("u%d", width)
	case typeinfer.KindFloat:
		width := t.Width
		if width != 32 {
			width = 64
		}
		return fmt.Sprintf("f%d", width)
	case typeinfer.KindPointer:
		return "u32"
	case typeinfer.KindVoid:
		return "()"
	default:
		return "u32"
	}
}

// localType resolves the Rust type of a local by its architectural or
// scratch name. Architectural GPR/FPR names are looked up in the Type
// Inferencer's per-register result; condition-register fields, lr,
// and ctr, and any lowering-introduced scratch value default to u32.
func localType(name string, types *typeinfer.Result) string {
	if types != nil {
		if t, ok := types.Registers[name]; ok {
			return rustType(t)
		}
	}
	return "u32"
}

func accessorSuffix(width int, signed bool) string {
	if width == 0 {
		width = 32
	}
	s := "u"
	if signed {
		s = "i"
	}
	return fmt.Sprintf("%s%d", s, width)
}
