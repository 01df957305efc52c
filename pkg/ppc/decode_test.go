package ppc

import "testing"

func TestDecodeAdd(t *testing.T) {
	insn, err := Decode(0x7C632214, 0x80003000)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if insn.Mnemonic != "add" {
		t.Errorf("Mnemonic = %q, want %q", insn.Mnemonic, "add")
	}
	if insn.Class != ClassArithmetic {
		t.Errorf("Class = %v, want %v", insn.Class, ClassArithmetic)
	}
	if insn.Raw != 0x7C632214 {
		t.Errorf("Raw = 0x%08X, want the decoded word", insn.Raw)
	}
	if insn.Address != 0x80003000 {
		t.Errorf("Address = 0x%08X, want 0x80003000", insn.Address)
	}
	rt, ok := insn.Operands[0].(Register)
	if !ok || rt.Num != 3 {
		t.Errorf("Operands[0] = %v, want r3", insn.Operands[0])
	}
}

func TestDecodeLoadImmediate(t *testing.T) {
	insn, err := Decode(0x38600005, 0x80003000) // li r3, 5
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if insn.Mnemonic != "addi" {
		t.Errorf("Mnemonic = %q, want addi (li is addi r,0,imm)", insn.Mnemonic)
	}
	imm, ok := insn.Operands[len(insn.Operands)-1].(Immediate)
	if !ok || imm.Value != 5 {
		t.Errorf("immediate operand = %v, want 5", insn.Operands[len(insn.Operands)-1])
	}
}

func TestDecodeBranchLinkRegister(t *testing.T) {
	insn, err := Decode(0x4E800020, 0x80003004) // blr
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if insn.Class != ClassBranchIndirect {
		t.Errorf("Class = %v, want %v", insn.Class, ClassBranchIndirect)
	}
	if insn.Mnemonic != "bclr" {
		t.Errorf("Mnemonic = %q, want bclr", insn.Mnemonic)
	}
}

// Scenario 3: cmpwi r3, 0 then beq +8.
func TestDecodeCompareAndConditionalBranch(t *testing.T) {
	cmp, err := Decode(0x2C030000, 0x80003000)
	if err != nil {
		t.Fatalf("Decode cmpwi: %v", err)
	}
	if cmp.Class != ClassCompare {
		t.Errorf("cmpwi Class = %v, want %v", cmp.Class, ClassCompare)
	}

	beq, err := Decode(0x41820008, 0x80003004)
	if err != nil {
		t.Fatalf("Decode beq: %v", err)
	}
	if beq.Class != ClassBranchConditional {
		t.Errorf("beq Class = %v, want %v", beq.Class, ClassBranchConditional)
	}
	target, ok := beq.Operands[len(beq.Operands)-1].(BranchTarget)
	if !ok {
		t.Fatalf("beq last operand = %v, want BranchTarget", beq.Operands[len(beq.Operands)-1])
	}
	if target.Offset != 8 {
		t.Errorf("beq offset = %d, want 8", target.Offset)
	}
}

// Scenario 4: bl +0x100 sets LinkRegisterUpdate.
func TestDecodeBranchLink(t *testing.T) {
	insn, err := Decode(0x48000101, 0x80004000)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if insn.Class != ClassBranchDirect {
		t.Errorf("Class = %v, want %v", insn.Class, ClassBranchDirect)
	}
	if !insn.LinkRegisterUpdate {
		t.Error("bl must set LinkRegisterUpdate")
	}
	target, ok := insn.Operands[0].(BranchTarget)
	if !ok || target.Offset != 0x100 {
		t.Errorf("target = %v, want offset 0x100", insn.Operands[0])
	}
}

// Scenario 5: the decoder never panics and classifies an opaque word as
// an error the caller can recover from.
func TestDecodeUnknownWord(t *testing.T) {
	_, err := Decode(0xFFFFFFFF, 0x80003000)
	if err == nil {
		t.Fatal("expected UnknownInstruction, got nil")
	}
	uk, ok := err.(*UnknownInstruction)
	if !ok {
		t.Fatalf("error = %T, want *UnknownInstruction", err)
	}
	if uk.Word != 0xFFFFFFFF || uk.Address != 0x80003000 {
		t.Errorf("UnknownInstruction = %+v, want word/address preserved", uk)
	}
}

func TestDecodeRoundTripsRawAndAddress(t *testing.T) {
	words := []struct {
		word uint32
		addr uint32
	}{
		{0x7C632214, 0x80003000},
		{0x38600005, 0x80003004},
		{0x4E800020, 0x80003008},
	}
	for _, w := range words {
		insn, err := Decode(w.word, w.addr)
		if err != nil {
			t.Fatalf("Decode(0x%08X, 0x%08X): %v", w.word, w.addr, err)
		}
		if insn.Raw != w.word {
			t.Errorf("Raw = 0x%08X, want 0x%08X", insn.Raw, w.word)
		}
		if insn.Address != w.addr {
			t.Errorf("Address = 0x%08X, want 0x%08X", insn.Address, w.addr)
		}
	}
}
