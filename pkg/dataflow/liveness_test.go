package dataflow

import (
	"encoding/binary"
	"testing"

	"github.com/KaiserGranatapfel/gcrecomp/pkg/cfg"
	"github.com/KaiserGranatapfel/gcrecomp/pkg/dol"
)

func buildImage(loadAddr uint32, words []uint32) *dol.Image {
	code := make([]byte, len(words)*4)
	for i, w := range words {
		binary.BigEndian.PutUint32(code[i*4:], w)
	}
	header := make([]byte, 256)
	binary.BigEndian.PutUint32(header[0x00:], 256)
	binary.BigEndian.PutUint32(header[0x48:], loadAddr)
	binary.BigEndian.PutUint32(header[0x90:], uint32(len(code)))
	binary.BigEndian.PutUint32(header[0xE0:], loadAddr)
	data := append(header, code...)
	img, err := dol.Load(data)
	if err != nil {
		panic(err)
	}
	return img
}

// TestLivenessInvariants checks the two invariants from the round-trip
// properties: live_in(b) subset of use(b) union live_out(b), and
// live_out(b) equals the union of live_in over b's successors.
func TestLivenessInvariants(t *testing.T) {
	entry := uint32(0x80003000)
	img := buildImage(entry, []uint32{
		0x2C030000, // cmpwi r3, 0
		0x41820008, // beq +8
		0x38600000, // addi r3, r0, 0
		0x4E800020, // blr
	})
	g, err := cfg.Build(entry, img, nil)
	if err != nil {
		t.Fatalf("cfg.Build: %v", err)
	}
	res := Analyze(g)

	for i, b := range g.Blocks {
		info := res.Blocks[i]
		allowed := info.Use.Union(info.LiveOut)
		if !allowed.Contains(info.LiveIn) {
			t.Errorf("block %d: live_in %v not subset of use ∪ live_out %v", i, info.LiveIn.Names(), allowed.Names())
		}

		var wantLiveOut RegSet
		for _, e := range b.Successors {
			if e.Target >= 0 {
				wantLiveOut = wantLiveOut.Union(res.Blocks[e.Target].LiveIn)
			}
		}
		if !wantLiveOut.Equal(info.LiveOut) {
			t.Errorf("block %d: live_out = %v, want union of successor live_in = %v", i, info.LiveOut.Names(), wantLiveOut.Names())
		}
	}
}

// TestMarkDeadFindsUnusedDefinition: a register defined and never used
// before the function returns is eliminable.
func TestMarkDeadFindsUnusedDefinition(t *testing.T) {
	entry := uint32(0x80003000)
	img := buildImage(entry, []uint32{
		0x38A00001, // li r5, 1  (never read again)
		0x4E800020, // blr
	})
	end := entry + 4
	g, err := cfg.Build(entry, img, &end)
	if err != nil {
		t.Fatalf("cfg.Build: %v", err)
	}
	res := Analyze(g)
	if !res.Dead[[2]int{0, 0}] {
		t.Error("li r5,1 with no subsequent use should be marked dead")
	}
}

// TestMarkDeadSkipsSideEffects: a store is never eliminated even if the
// register it reads becomes dead afterward.
func TestMarkDeadSkipsSideEffects(t *testing.T) {
	entry := uint32(0x80003000)
	img := buildImage(entry, []uint32{
		0x38A00001, // li r5, 1
		0x90A30000, // stw r5, 0(r3)
		0x4E800020, // blr
	})
	end := entry + 12
	g, err := cfg.Build(entry, img, &end)
	if err != nil {
		t.Fatalf("cfg.Build: %v", err)
	}
	res := Analyze(g)
	if res.Dead[[2]int{0, 1}] {
		t.Error("a store must never be marked dead")
	}
}
