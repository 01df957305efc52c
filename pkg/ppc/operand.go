package ppc

import "fmt"

// Operand is implemented by every PowerPC instruction operand variant.
// Like the IR's Value type, operands are a closed set of tagged structs
// rather than a single struct with optional fields, so each decode site
// only ever constructs the variant it means.
type Operand interface {
	isOperand()
	String() string
}

// Register is a general-purpose register index, 0..31.
type Register struct{ Num uint8 }

func (Register) isOperand()       {}
func (r Register) String() string { return fmt.Sprintf("r%d", r.Num) }

// FPRegister is a floating-point register index, 0..31.
type FPRegister struct{ Num uint8 }

func (FPRegister) isOperand()       {}
func (r FPRegister) String() string { return fmt.Sprintf("f%d", r.Num) }

// Immediate is a sign-extended immediate operand.
type Immediate struct{ Value int32 }

func (Immediate) isOperand()       {}
func (i Immediate) String() string { return fmt.Sprintf("%d", i.Value) }

// UImmediate is a zero-extended immediate operand (e.g. `andi.`'s UI field).
type UImmediate struct{ Value uint32 }

func (UImmediate) isOperand()       {}
func (u UImmediate) String() string { return fmt.Sprintf("0x%X", u.Value) }

// Displacement is a D-form effective address: disp(base).
type Displacement struct {
	Base uint8
	Disp int32
}

func (Displacement) isOperand() {}
func (d Displacement) String() string {
	return fmt.Sprintf("%d(r%d)", d.Disp, d.Base)
}

// BranchTarget is a branch destination, either absolute or PC-relative.
type BranchTarget struct {
	Offset   int32
	Absolute bool
}

func (BranchTarget) isOperand() {}
func (b BranchTarget) String() string {
	if b.Absolute {
		return fmt.Sprintf("0x%08X", uint32(b.Offset))
	}
	return fmt.Sprintf("%+d", b.Offset)
}

// CRField is a condition-register field or bit index (BI/BF encodings).
type CRField struct{ Field uint8 }

func (CRField) isOperand()       {}
func (c CRField) String() string { return fmt.Sprintf("cr%d", c.Field) }

// CRBits packages the BO/BI pair that qualifies a conditional branch.
type CRBits struct {
	BO uint8
	BI uint8
}

func (CRBits) isOperand()       {}
func (c CRBits) String() string { return fmt.Sprintf("bo=%d,bi=%d", c.BO, c.BI) }

// SPR is a special-purpose register id, as named in mtspr/mfspr.
type SPR struct{ Num uint16 }

func (SPR) isOperand()       {}
func (s SPR) String() string { return fmt.Sprintf("spr%d", s.Num) }

// ShiftAmount is an immediate shift/rotate amount.
type ShiftAmount struct{ Amount uint8 }

func (ShiftAmount) isOperand()       {}
func (s ShiftAmount) String() string { return fmt.Sprintf("%d", s.Amount) }

// RotateMask packages the MB/ME bit-range operands of the rlw* family.
type RotateMask struct {
	MB uint8
	ME uint8
}

func (RotateMask) isOperand()       {}
func (r RotateMask) String() string { return fmt.Sprintf("mb=%d,me=%d", r.MB, r.ME) }
