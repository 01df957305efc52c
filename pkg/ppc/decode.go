package ppc

// Bitfield extraction numbers bits from the least-significant end
// (bit 0 = LSB), the reverse of the MSB-first numbering the PowerPC
// manuals use; every shift below is written in LSB terms.

func bits(word uint32, shift, width uint) uint32 {
	return (word >> shift) & ((1 << width) - 1)
}

func primaryOpcode(word uint32) uint32 { return bits(word, 26, 6) }
func secondaryOpcode(word uint32) uint32 { return bits(word, 1, 10) }
func secondaryOpcode5(word uint32) uint32 { return bits(word, 1, 5) }

func simm16(word uint32) int32 { return int32(int16(word & 0xFFFF)) }
func uimm16(word uint32) uint32 { return word & 0xFFFF }

// signExtendField sign-extends the field selected by mask, whose most
// significant bit sits at signBitPos (LSB-numbered), to a full int32.
func signExtendField(word, mask uint32, signBitPos uint) int32 {
	v := int32(word & mask)
	shift := 31 - signBitPos
	return (v << shift) >> shift
}

// Decode classifies a 32-bit big-endian PowerPC word fetched from address
// into a typed Instruction. It never panics; an encoding this package does
// not recognize yields *UnknownInstruction rather than a zero Instruction.
func Decode(word, address uint32) (*Instruction, error) {
	rt := uint8(bits(word, 21, 5))
	ra := uint8(bits(word, 16, 5))
	rb := uint8(bits(word, 11, 5))

	switch op := primaryOpcode(word); op {
	case 14: // addi
		return rform("addi", ClassArithmetic, word, address, rt, ra, simm16(word)), nil
	case 15: // addis
		return rform("addis", ClassArithmetic, word, address, rt, ra, simm16(word)), nil
	case 7: // mulli
		return rform("mulli", ClassArithmetic, word, address, rt, ra, simm16(word)), nil
	case 8: // subfic
		return rform("subfic", ClassArithmetic, word, address, rt, ra, simm16(word)), nil
	case 10: // cmplwi
		bf := uint8(bits(word, 23, 3))
		return &Instruction{Address: address, Raw: word, Class: ClassCompare, Mnemonic: "cmplwi",
			Operands: []Operand{CRField{bf}, Register{ra}, UImmediate{uimm16(word)}}}, nil
	case 11: // cmpwi
		bf := uint8(bits(word, 23, 3))
		return &Instruction{Address: address, Raw: word, Class: ClassCompare, Mnemonic: "cmpwi",
			Operands: []Operand{CRField{bf}, Register{ra}, Immediate{simm16(word)}}}, nil
	case 16: // bc
		return decodeBC(word, address), nil
	case 18: // b
		return decodeB(word, address), nil
	case 19: // bclr/bcctr/crlogic
		return decodeOp19(word, address)
	case 20: // rlwimi
		return decodeRotate("rlwimi", word, address, rt, ra), nil
	case 21: // rlwinm
		return decodeRotate("rlwinm", word, address, rt, ra), nil
	case 23: // rlwnm
		sh := rb // shift amount comes from a register here, reuse rb slot
		mb := uint8(bits(word, 6, 5))
		me := uint8(bits(word, 1, 5))
		return &Instruction{Address: address, Raw: word, Class: ClassRotate, Mnemonic: "rlwnm",
			Operands: []Operand{Register{rt}, Register{ra}, Register{sh}, RotateMask{mb, me}}}, nil
	case 24: // ori
		return logicalImm("ori", word, address, rt, ra, false), nil
	case 25: // oris
		return logicalImm("oris", word, address, rt, ra, false), nil
	case 26: // xori
		return logicalImm("xori", word, address, rt, ra, false), nil
	case 27: // xoris
		return logicalImm("xoris", word, address, rt, ra, false), nil
	case 28: // andi.
		return logicalImm("andi.", word, address, rt, ra, true), nil
	case 29: // andis.
		return logicalImm("andis.", word, address, rt, ra, true), nil
	case 31: // extended arithmetic/logical/shift/system
		return decodeOp31(word, address, rt, ra, rb)
	case 32: // lwz
		return loadStore("lwz", ClassLoad, word, address, rt, ra), nil
	case 33: // lwzu
		return loadStore("lwzu", ClassLoad, word, address, rt, ra), nil
	case 34: // lbz
		return loadStore("lbz", ClassLoad, word, address, rt, ra), nil
	case 35: // lbzu
		return loadStore("lbzu", ClassLoad, word, address, rt, ra), nil
	case 36: // stw
		return loadStore("stw", ClassStore, word, address, rt, ra), nil
	case 37: // stwu
		return loadStore("stwu", ClassStore, word, address, rt, ra), nil
	case 38: // stb
		return loadStore("stb", ClassStore, word, address, rt, ra), nil
	case 39: // stbu
		return loadStore("stbu", ClassStore, word, address, rt, ra), nil
	case 40: // lhz
		return loadStore("lhz", ClassLoad, word, address, rt, ra), nil
	case 41: // lhzu
		return loadStore("lhzu", ClassLoad, word, address, rt, ra), nil
	case 42: // lha
		return loadStore("lha", ClassLoad, word, address, rt, ra), nil
	case 43: // lhau
		return loadStore("lhau", ClassLoad, word, address, rt, ra), nil
	case 44: // sth
		return loadStore("sth", ClassStore, word, address, rt, ra), nil
	case 45: // sthu
		return loadStore("sthu", ClassStore, word, address, rt, ra), nil
	case 48: // lfs
		return floatLoadStore("lfs", ClassFloatMemory, word, address, rt, ra), nil
	case 49: // lfsu
		return floatLoadStore("lfsu", ClassFloatMemory, word, address, rt, ra), nil
	case 50: // lfd
		return floatLoadStore("lfd", ClassFloatMemory, word, address, rt, ra), nil
	case 51: // lfdu
		return floatLoadStore("lfdu", ClassFloatMemory, word, address, rt, ra), nil
	case 52: // stfs
		return floatLoadStore("stfs", ClassFloatMemory, word, address, rt, ra), nil
	case 53: // stfsu
		return floatLoadStore("stfsu", ClassFloatMemory, word, address, rt, ra), nil
	case 54: // stfd
		return floatLoadStore("stfd", ClassFloatMemory, word, address, rt, ra), nil
	case 55: // stfdu
		return floatLoadStore("stfdu", ClassFloatMemory, word, address, rt, ra), nil
	case 59: // float single arithmetic (A-form)
		return decodeOp59(word, address, rt, ra, rb)
	case 63: // float double arithmetic/compare
		return decodeOp63(word, address, rt, ra, rb)
	default:
		return nil, &UnknownInstruction{Word: word, Address: address}
	}
}

func rform(mnem string, class Class, word, address uint32, rt, ra uint8, imm int32) *Instruction {
	return &Instruction{Address: address, Raw: word, Class: class, Mnemonic: mnem,
		Operands: []Operand{Register{rt}, Register{ra}, Immediate{imm}}}
}

func logicalImm(mnem string, word, address uint32, rt, ra uint8, record bool) *Instruction {
	return &Instruction{Address: address, Raw: word, Class: ClassLogical, Mnemonic: mnem,
		Operands: []Operand{Register{rt}, Register{ra}, UImmediate{uimm16(word)}}}
}

func loadStore(mnem string, class Class, word, address uint32, rt, ra uint8) *Instruction {
	return &Instruction{Address: address, Raw: word, Class: class, Mnemonic: mnem,
		Operands: []Operand{Register{rt}, Displacement{Base: ra, Disp: simm16(word)}}}
}

func floatLoadStore(mnem string, class Class, word, address uint32, frt, ra uint8) *Instruction {
	return &Instruction{Address: address, Raw: word, Class: class, Mnemonic: mnem,
		Operands: []Operand{FPRegister{frt}, Displacement{Base: ra, Disp: simm16(word)}}}
}

func decodeRotate(mnem string, word, address uint32, rt, ra uint8) *Instruction {
	sh := uint8(bits(word, 11, 5))
	mb := uint8(bits(word, 6, 5))
	me := uint8(bits(word, 1, 5))
	return &Instruction{Address: address, Raw: word, Class: ClassRotate, Mnemonic: mnem,
		Operands: []Operand{Register{rt}, Register{ra}, ShiftAmount{sh}, RotateMask{mb, me}}}
}

func decodeBC(word, address uint32) *Instruction {
	bo := uint8(bits(word, 21, 5))
	bi := uint8(bits(word, 16, 5))
	bd := signExtendField(word, 0x0000FFFC, 15)
	aa := bits(word, 1, 1) != 0
	lk := bits(word, 0, 1) != 0
	return &Instruction{Address: address, Raw: word, Class: ClassBranchConditional, Mnemonic: "bc",
		Operands:           []Operand{CRBits{bo, bi}, BranchTarget{Offset: bd, Absolute: aa}},
		LinkRegisterUpdate: lk, AbsoluteTarget: aa}
}

func decodeB(word, address uint32) *Instruction {
	li := signExtendField(word, 0x03FFFFFC, 25)
	aa := bits(word, 1, 1) != 0
	lk := bits(word, 0, 1) != 0
	return &Instruction{Address: address, Raw: word, Class: ClassBranchDirect, Mnemonic: "b",
		Operands:           []Operand{BranchTarget{Offset: li, Absolute: aa}},
		LinkRegisterUpdate: lk, AbsoluteTarget: aa}
}

func decodeOp19(word, address uint32) (*Instruction, error) {
	bo := uint8(bits(word, 21, 5))
	bi := uint8(bits(word, 16, 5))
	lk := bits(word, 0, 1) != 0
	switch sec := secondaryOpcode(word); sec {
	case 16: // bclr
		return &Instruction{Address: address, Raw: word, Class: ClassBranchIndirect, Mnemonic: "bclr",
			Operands: []Operand{CRBits{bo, bi}}, LinkRegisterUpdate: lk}, nil
	case 528: // bcctr
		return &Instruction{Address: address, Raw: word, Class: ClassBranchIndirect, Mnemonic: "bcctr",
			Operands: []Operand{CRBits{bo, bi}}, LinkRegisterUpdate: lk}, nil
	case 0: // mcrf
		bf := uint8(bits(word, 23, 3))
		bfa := uint8(bits(word, 18, 3))
		return &Instruction{Address: address, Raw: word, Class: ClassConditionRegister, Mnemonic: "mcrf",
			Operands: []Operand{CRField{bf}, CRField{bfa}}}, nil
	case 257, 129, 193, 225, 449, 417, 33, 289: // crand/cror/crxor/crnand/crandc/crorc/crnor/creqv
		bt := uint8(bits(word, 21, 5))
		ba := uint8(bits(word, 16, 5))
		bb := uint8(bits(word, 11, 5))
		return &Instruction{Address: address, Raw: word, Class: ClassConditionRegister, Mnemonic: crLogicName(sec),
			Operands: []Operand{CRField{bt}, CRField{ba}, CRField{bb}}}, nil
	default:
		return nil, &UnknownInstruction{Word: word, Address: address}
	}
}

func crLogicName(sec uint32) string {
	switch sec {
	case 257:
		return "crand"
	case 129:
		return "cror"
	case 193:
		return "crxor"
	case 225:
		return "crnand"
	case 449:
		return "crandc"
	case 417:
		return "crorc"
	case 33:
		return "crnor"
	case 289:
		return "creqv"
	default:
		return "crlogic"
	}
}

func decodeOp31(word, address uint32, rt, ra, rb uint8) (*Instruction, error) {
	sec := secondaryOpcode(word)
	switch sec {
	case 266:
		return xform("add", ClassArithmetic, word, address, rt, ra, rb), nil
	case 40:
		return xform("subf", ClassArithmetic, word, address, rt, ra, rb), nil
	case 235:
		return xform("mullw", ClassArithmetic, word, address, rt, ra, rb), nil
	case 491:
		return xform("divw", ClassArithmetic, word, address, rt, ra, rb), nil
	case 28:
		return xform("and", ClassLogical, word, address, rt, ra, rb), nil
	case 444:
		return xform("or", ClassLogical, word, address, rt, ra, rb), nil
	case 316:
		return xform("xor", ClassLogical, word, address, rt, ra, rb), nil
	case 476:
		return xform("nand", ClassLogical, word, address, rt, ra, rb), nil
	case 124:
		return xform("nor", ClassLogical, word, address, rt, ra, rb), nil
	case 24:
		return xform("slw", ClassShift, word, address, rt, ra, rb), nil
	case 536:
		return xform("srw", ClassShift, word, address, rt, ra, rb), nil
	case 792:
		return xform("sraw", ClassShift, word, address, rt, ra, rb), nil
	case 0:
		bf := uint8(bits(word, 23, 3))
		return &Instruction{Address: address, Raw: word, Class: ClassCompare, Mnemonic: "cmpw",
			Operands: []Operand{CRField{bf}, Register{ra}, Register{rb}}}, nil
	case 32:
		bf := uint8(bits(word, 23, 3))
		return &Instruction{Address: address, Raw: word, Class: ClassCompare, Mnemonic: "cmplw",
			Operands: []Operand{CRField{bf}, Register{ra}, Register{rb}}}, nil
	case 467: // mtspr
		sprNum := uint16(bits(word, 16, 5) | bits(word, 11, 5)<<5) // encoded with its 5-bit halves swapped
		return &Instruction{Address: address, Raw: word, Class: ClassSystem, Mnemonic: "mtspr",
			Operands: []Operand{SPR{sprNum}, Register{rt}}}, nil
	case 339: // mfspr
		sprNum := uint16(bits(word, 16, 5) | bits(word, 11, 5)<<5) // encoded with its 5-bit halves swapped
		return &Instruction{Address: address, Raw: word, Class: ClassSystem, Mnemonic: "mfspr",
			Operands: []Operand{Register{rt}, SPR{sprNum}}}, nil
	case 144: // mtcrf
		mask := bits(word, 12, 8)
		return &Instruction{Address: address, Raw: word, Class: ClassConditionRegister, Mnemonic: "mtcrf",
			Operands: []Operand{UImmediate{mask}, Register{rt}}}, nil
	case 19: // mfcr
		return &Instruction{Address: address, Raw: word, Class: ClassConditionRegister, Mnemonic: "mfcr",
			Operands: []Operand{Register{rt}}}, nil
	case 598:
		return &Instruction{Address: address, Raw: word, Class: ClassSystem, Mnemonic: "sync"}, nil
	case 982:
		return &Instruction{Address: address, Raw: word, Class: ClassSystem, Mnemonic: "icbi",
			Operands: []Operand{Displacement{Base: ra, Disp: 0}}}, nil
	case 54:
		return &Instruction{Address: address, Raw: word, Class: ClassSystem, Mnemonic: "dcbst",
			Operands: []Operand{Displacement{Base: ra, Disp: 0}}}, nil
	default:
		return nil, &UnknownInstruction{Word: word, Address: address}
	}
}

func xform(mnem string, class Class, word, address uint32, rt, ra, rb uint8) *Instruction {
	return &Instruction{Address: address, Raw: word, Class: class, Mnemonic: mnem,
		Operands: []Operand{Register{rt}, Register{ra}, Register{rb}}}
}

func decodeOp59(word, address uint32, frt, fra, frb uint8) (*Instruction, error) {
	switch sec := secondaryOpcode5(word); sec {
	case 21:
		return ffform("fadds", word, address, frt, fra, frb), nil
	case 20:
		return ffform("fsubs", word, address, frt, fra, frb), nil
	case 25:
		return ffform("fmuls", word, address, frt, fra, frb), nil
	case 18:
		return ffform("fdivs", word, address, frt, fra, frb), nil
	default:
		return nil, &UnknownInstruction{Word: word, Address: address}
	}
}

func decodeOp63(word, address uint32, frt, fra, frb uint8) (*Instruction, error) {
	if sec5 := secondaryOpcode5(word); sec5 == 21 || sec5 == 20 || sec5 == 25 || sec5 == 18 {
		names := map[uint32]string{21: "fadd", 20: "fsub", 25: "fmul", 18: "fdiv"}
		return ffform(names[sec5], word, address, frt, fra, frb), nil
	}
	switch sec := secondaryOpcode(word); sec {
	case 32: // fcmpu
		bf := uint8(bits(word, 23, 3))
		return &Instruction{Address: address, Raw: word, Class: ClassFloatCompare, Mnemonic: "fcmpu",
			Operands: []Operand{CRField{bf}, FPRegister{fra}, FPRegister{frb}}}, nil
	default:
		return nil, &UnknownInstruction{Word: word, Address: address}
	}
}

func ffform(mnem string, word, address uint32, frt, fra, frb uint8) *Instruction {
	return &Instruction{Address: address, Raw: word, Class: ClassFloatArithmetic, Mnemonic: mnem,
		Operands: []Operand{FPRegister{frt}, FPRegister{fra}, FPRegister{frb}}}
}
