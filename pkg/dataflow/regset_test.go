package dataflow

import "testing"

func TestRegSetSetAndTest(t *testing.T) {
	s := GPR(3).Union(FPR(1)).Union(CR(0)).Union(LR()).Union(CTR())
	if !s.Test(gprBase + 3) {
		t.Error("r3 should be set")
	}
	if !s.Test(fprBase + 1) {
		t.Error("f1 should be set")
	}
	if !s.Test(crBase + 0) {
		t.Error("cr0 should be set")
	}
	if !s.Test(lrBit) || !s.Test(ctrBit) {
		t.Error("lr and ctr should be set")
	}
	if s.Test(gprBase + 4) {
		t.Error("r4 should not be set")
	}
}

func TestRegSetUnionSubtractIntersect(t *testing.T) {
	a := GPR(3).Union(GPR(4))
	b := GPR(4).Union(GPR(5))

	u := a.Union(b)
	if !u.Test(gprBase+3) || !u.Test(gprBase+4) || !u.Test(gprBase+5) {
		t.Errorf("union missing expected bits: %v", u.Names())
	}

	sub := a.Subtract(b)
	if !sub.Equal(GPR(3)) {
		t.Errorf("a-b = %v, want {r3}", sub.Names())
	}

	inter := a.Intersect(b)
	if !inter.Equal(GPR(4)) {
		t.Errorf("a&b = %v, want {r4}", inter.Names())
	}
}

func TestRegSetContains(t *testing.T) {
	a := GPR(3).Union(GPR(4)).Union(GPR(5))
	if !a.Contains(GPR(3).Union(GPR(4))) {
		t.Error("a should contain {r3,r4}")
	}
	if a.Contains(GPR(6)) {
		t.Error("a should not contain r6")
	}
}

func TestRegSetNamesOrdering(t *testing.T) {
	s := CTR().Union(LR()).Union(GPR(0)).Union(FPR(2)).Union(CR(1))
	names := s.Names()
	want := []string{"r0", "f2", "cr1", "lr", "ctr"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestRegSetEmptyIsEmpty(t *testing.T) {
	var s RegSet
	if !s.IsEmpty() {
		t.Error("zero value should be empty")
	}
	if GPR(0).IsEmpty() {
		t.Error("r0 set should not be empty")
	}
}
