// Package dataflow computes def-use chains and live-variable sets over a
// function's CFG, and marks dead instructions for removal.
package dataflow

import "fmt"

// RegSet is a bit set over the core's register space: 32 GPRs, 32 FPRs,
// 8 condition-register fields, the link register, and the count
// register — 74 bits, comfortably inside two uint64 words.
type RegSet struct {
	lo, hi uint64
}

const (
	gprBase = 0
	fprBase = 32
	crBase  = 64
	lrBit   = 72
	ctrBit  = 73
)

func (s *RegSet) Set(i int) {
	if i < 64 {
		s.lo |= 1 << uint(i)
	} else {
		s.hi |= 1 << uint(i-64)
	}
}

func (s RegSet) Test(i int) bool {
	if i < 64 {
		return s.lo&(1<<uint(i)) != 0
	}
	return s.hi&(1<<uint(i-64)) != 0
}

func (s RegSet) Union(o RegSet) RegSet { return RegSet{s.lo | o.lo, s.hi | o.hi} }
func (s RegSet) Subtract(o RegSet) RegSet {
	return RegSet{s.lo &^ o.lo, s.hi &^ o.hi}
}
func (s RegSet) Intersect(o RegSet) RegSet { return RegSet{s.lo & o.lo, s.hi & o.hi} }
func (s RegSet) Equal(o RegSet) bool       { return s.lo == o.lo && s.hi == o.hi }
func (s RegSet) IsEmpty() bool             { return s.lo == 0 && s.hi == 0 }

func (s RegSet) Contains(sub RegSet) bool {
	return s.Intersect(sub).Equal(sub)
}

// GPR, FPR, CR, LR, and CTR build single-bit RegSets for each register
// space, matching the naming the Decoder and Type Inferencer already use.
func GPR(n uint8) RegSet {
	var s RegSet
	s.Set(gprBase + int(n))
	return s
}

func FPR(n uint8) RegSet {
	var s RegSet
	s.Set(fprBase + int(n))
	return s
}

func CR(field uint8) RegSet {
	var s RegSet
	s.Set(crBase + int(field))
	return s
}

func LR() RegSet {
	var s RegSet
	s.Set(lrBit)
	return s
}

func CTR() RegSet {
	var s RegSet
	s.Set(ctrBit)
	return s
}

// Names returns the human-readable register names set in s, for
// diagnostics and tests.
func (s RegSet) Names() []string {
	var out []string
	for i := 0; i < 32; i++ {
		if s.Test(gprBase + i) {
			out = append(out, fmt.Sprintf("r%d", i))
		}
	}
	for i := 0; i < 32; i++ {
		if s.Test(fprBase + i) {
			out = append(out, fmt.Sprintf("f%d", i))
		}
	}
	for i := 0; i < 8; i++ {
		if s.Test(crBase + i) {
			out = append(out, fmt.Sprintf("cr%d", i))
		}
	}
	if s.Test(lrBit) {
		out = append(out, "lr")
	}
	if s.Test(ctrBit) {
		out = append(out, "ctr")
	}
	return out
}
