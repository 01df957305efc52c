package dataflow

import "github.com/KaiserGranatapfel/gcrecomp/pkg/ppc"

// instrDefUse returns the registers an instruction defines and uses,
// per its opcode class and operand shape. Update-form loads/stores
// (the "u" suffix) additionally define their base register; that case
// is handled inline below rather than threaded through every case.
func instrDefUse(insn *ppc.Instruction) (def, use RegSet) {
	ops := insn.Operands

	reg := func(i int) (uint8, bool) {
		if i >= len(ops) {
			return 0, false
		}
		r, ok := ops[i].(ppc.Register)
		return r.Num, ok
	}
	fpreg := func(i int) (uint8, bool) {
		if i >= len(ops) {
			return 0, false
		}
		r, ok := ops[i].(ppc.FPRegister)
		return r.Num, ok
	}
	disp := func(i int) (ppc.Displacement, bool) {
		if i >= len(ops) {
			return ppc.Displacement{}, false
		}
		d, ok := ops[i].(ppc.Displacement)
		return d, ok
	}

	switch insn.Class {
	case ppc.ClassArithmetic, ppc.ClassLogical, ppc.ClassShift, ppc.ClassRotate:
		if rt, ok := reg(0); ok {
			def = def.Union(GPR(rt))
		}
		if ra, ok := reg(1); ok {
			use = use.Union(GPR(ra))
		}
		if rb, ok := reg(2); ok {
			use = use.Union(GPR(rb))
		}
	case ppc.ClassCompare:
		if cf, ok := ops[0].(ppc.CRField); ok {
			def = def.Union(CR(cf.Field))
		}
		if ra, ok := reg(1); ok {
			use = use.Union(GPR(ra))
		}
		if rb, ok := reg(2); ok {
			use = use.Union(GPR(rb))
		}
	case ppc.ClassLoad:
		if rt, ok := reg(0); ok {
			def = def.Union(GPR(rt))
		}
		if d, ok := disp(1); ok {
			use = use.Union(GPR(d.Base))
			if isUpdateForm(insn.Mnemonic) {
				def = def.Union(GPR(d.Base))
			}
		}
	case ppc.ClassStore:
		if rt, ok := reg(0); ok {
			use = use.Union(GPR(rt))
		}
		if d, ok := disp(1); ok {
			use = use.Union(GPR(d.Base))
			if isUpdateForm(insn.Mnemonic) {
				def = def.Union(GPR(d.Base))
			}
		}
	case ppc.ClassFloatMemory:
		if fr, ok := fpreg(0); ok {
			if isStoreMnemonic(insn.Mnemonic) {
				use = use.Union(FPR(fr))
			} else {
				def = def.Union(FPR(fr))
			}
		}
		if d, ok := disp(1); ok {
			use = use.Union(GPR(d.Base))
		}
	case ppc.ClassFloatArithmetic:
		if frt, ok := fpreg(0); ok {
			def = def.Union(FPR(frt))
		}
		if fra, ok := fpreg(1); ok {
			use = use.Union(FPR(fra))
		}
		if frb, ok := fpreg(2); ok {
			use = use.Union(FPR(frb))
		}
	case ppc.ClassFloatCompare:
		if cf, ok := ops[0].(ppc.CRField); ok {
			def = def.Union(CR(cf.Field))
		}
		if fra, ok := fpreg(1); ok {
			use = use.Union(FPR(fra))
		}
		if frb, ok := fpreg(2); ok {
			use = use.Union(FPR(frb))
		}
	case ppc.ClassBranchConditional, ppc.ClassBranchIndirect:
		if bits, ok := ops[0].(ppc.CRBits); ok && bits.BO&0x10 == 0 {
			use = use.Union(CR(bits.BI / 4))
		}
		switch insn.Mnemonic {
		case "bclr":
			use = use.Union(LR())
		case "bcctr":
			use = use.Union(CTR())
		}
		if insn.LinkRegisterUpdate {
			def = def.Union(LR())
		}
	case ppc.ClassBranchDirect:
		if insn.LinkRegisterUpdate {
			def = def.Union(LR())
		}
	case ppc.ClassConditionRegister:
		switch insn.Mnemonic {
		case "mtcrf":
			if rt, ok := reg(1); ok {
				use = use.Union(GPR(rt))
			}
			for f := 0; f < 8; f++ {
				def = def.Union(CR(uint8(f)))
			}
		case "mfcr":
			if rt, ok := reg(0); ok {
				def = def.Union(GPR(rt))
			}
			for f := 0; f < 8; f++ {
				use = use.Union(CR(uint8(f)))
			}
		default:
			for _, op := range ops {
				if cf, ok := op.(ppc.CRField); ok {
					use = use.Union(CR(cf.Field))
				}
			}
		}
	case ppc.ClassSystem:
		switch insn.Mnemonic {
		case "mtspr":
			if spr, ok := ops[0].(ppc.SPR); ok {
				def = def.Union(sprSet(spr.Num))
			}
			if rt, ok := reg(1); ok {
				use = use.Union(GPR(rt))
			}
		case "mfspr":
			if rt, ok := reg(0); ok {
				def = def.Union(GPR(rt))
			}
			if spr, ok := ops[1].(ppc.SPR); ok {
				use = use.Union(sprSet(spr.Num))
			}
		}
	}
	return def, use
}

func isUpdateForm(mnemonic string) bool {
	return len(mnemonic) > 0 && mnemonic[len(mnemonic)-1] == 'u'
}

func isStoreMnemonic(mnemonic string) bool {
	return len(mnemonic) >= 2 && mnemonic[:2] == "st"
}

// sprSet maps the two SPRs the core's instruction set touches (LR=8,
// CTR=9) onto the dedicated bits in the register space; any other SPR
// number is tracked nowhere, matching the core's "opaque word" treatment
// of SPRs it does not otherwise model.
func sprSet(num uint16) RegSet {
	switch num {
	case 8:
		return LR()
	case 9:
		return CTR()
	default:
		return RegSet{}
	}
}
