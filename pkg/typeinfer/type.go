// Package typeinfer assigns semantic types to registers and memory
// operands: Void, Int{signed,width}, Float{width}, Pointer{pointee}, or
// Unknown, seeded from symbol hints and instruction semantics and
// unified in a single pass over the function's instructions.
package typeinfer

import "fmt"

// Kind is the tag of a Type's variant.
type Kind int

const (
	KindVoid Kind = iota
	KindInt
	KindFloat
	KindPointer
	KindUnknown
)

// Type is a tagged variant: Void, Int{Signed,Width}, Float{Width},
// Pointer{Pointee}, or Unknown. Represented as one struct rather than an
// interface-per-variant (the IR's Value/Operand convention) because
// Type values need to round-trip through the Symbol Source's JSON
// encoding and recurse through Pointee; a struct with an explicit Kind
// tag does both without a custom marshaler.
type Type struct {
	Kind    Kind  `json:"kind"`
	Signed  bool  `json:"signed,omitempty"`
	Width   int   `json:"width,omitempty"`
	Pointee *Type `json:"pointee,omitempty"`
}

var (
	Void    = Type{Kind: KindVoid}
	Unknown = Type{Kind: KindUnknown}
)

func Int(signed bool, width int) Type   { return Type{Kind: KindInt, Signed: signed, Width: width} }
func Float(width int) Type              { return Type{Kind: KindFloat, Width: width} }
func Pointer(pointee Type) Type         { return Type{Kind: KindPointer, Pointee: &pointee} }

func (t Type) String() string {
	switch t.Kind {
	case KindVoid:
		return "void"
	case KindInt:
		sign := "u"
		if t.Signed {
			sign = "s"
		}
		return fmt.Sprintf("%sint%d", sign, t.Width)
	case KindFloat:
		return fmt.Sprintf("float%d", t.Width)
	case KindPointer:
		if t.Pointee != nil {
			return fmt.Sprintf("*%s", t.Pointee.String())
		}
		return "*unknown"
	default:
		return "unknown"
	}
}

func (t Type) Equal(other Type) bool {
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case KindInt:
		return t.Signed == other.Signed && t.Width == other.Width
	case KindFloat:
		return t.Width == other.Width
	case KindPointer:
		if t.Pointee == nil || other.Pointee == nil {
			return t.Pointee == other.Pointee
		}
		return t.Pointee.Equal(*other.Pointee)
	default:
		return true
	}
}

// Unify widens a and b toward a common type, per the core's conflict
// rule: an Int/Pointer conflict resolves to the Pointer if asPointerUse
// says the register feeds a load/store base, otherwise to the Int; an
// Int/Float conflict of matching width always resolves to Unknown.
func Unify(a, b Type, asPointerUse bool) (Type, *Conflict) {
	if a.Kind == KindUnknown || b.Kind == KindUnknown {
		return Unknown, nil
	}
	if a.Equal(b) {
		return a, nil
	}
	if a.Kind == KindVoid {
		return b, nil
	}
	if b.Kind == KindVoid {
		return a, nil
	}

	if a.Kind == KindInt && b.Kind == KindPointer {
		if asPointerUse {
			return b, nil
		}
		return a, nil
	}
	if a.Kind == KindPointer && b.Kind == KindInt {
		if asPointerUse {
			return a, nil
		}
		return b, nil
	}

	if (a.Kind == KindInt && b.Kind == KindFloat) || (a.Kind == KindFloat && b.Kind == KindInt) {
		return Unknown, &Conflict{A: a, B: b}
	}

	if a.Kind == KindPointer && b.Kind == KindPointer {
		inner, conflict := Unify(*a.Pointee, *b.Pointee, asPointerUse)
		return Pointer(inner), conflict
	}

	return Unknown, &Conflict{A: a, B: b}
}

// Conflict records an irreconcilable unification; the caller turns this
// into a TypeConflict diagnostic.
type Conflict struct {
	A, B Type
}

func (c *Conflict) Error() string {
	return fmt.Sprintf("type conflict: %s vs %s", c.A, c.B)
}
