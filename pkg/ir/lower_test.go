package ir

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

// Scenario 1: add r3, r3, r4 lowers to a single OpAdd over r3/r4 vregs.
func TestLowerAdd(t *testing.T) {
	entry := uint32(0x80003000)
	img := buildImage(entry, []uint32{0x7C632214})
	end := entry + 4
	g, err := cfg.Build(entry, img, &end)
	if err != nil {
		t.Fatalf("cfg.Build: %v", err)
	}
	f := Lower("fn_80003000", entry, g)
	if f.Unsupported {
		t.Fatal("add should be fully supported")
	}
	var insns []*Instruction
	for _, blk := range f.Blocks {
		insns = append(insns, blk.Instructions...)
	}
	if len(insns) != 1 {
		t.Fatalf("len(insns) = %d, want 1", len(insns))
	}
	if insns[0].Op != OpAdd {
		t.Errorf("Op = %v, want OpAdd", insns[0].Op)
	}
	if len(insns[0].Args) != 2 {
		t.Fatalf("len(Args) = %d, want 2", len(insns[0].Args))
	}
	r3, ok := insns[0].Args[0].(VReg)
	if !ok || r3.Name != "r3" {
		t.Errorf("Args[0] = %v, want r3 vreg", insns[0].Args[0])
	}
	r4, ok := insns[0].Args[1].(VReg)
	if !ok || r4.Name != "r4" {
		t.Errorf("Args[1] = %v, want r4 vreg", insns[0].Args[1])
	}
}

// An unknown/opaque decoded instruction lowers to OpUnimplemented and
// marks the function Unsupported so the emitter can stub it out.
func TestLowerUnknownMarksUnsupported(t *testing.T) {
	entry := uint32(0x80003000)
	img := buildImage(entry, []uint32{0xFFFFFFFF})
	end := entry + 4
	g, err := cfg.Build(entry, img, &end)
	if err != nil {
		t.Fatalf("cfg.Build: %v", err)
	}
	f := Lower("fn_80003000", entry, g)
	if !f.Unsupported {
		t.Error("an opaque instruction should mark the function Unsupported")
	}
}

func TestFindFunc(t *testing.T) {
	f := &Func{Name: "fn_a", Entry: 0x80003000}
	p := &Program{Funcs: []*Func{f}}
	got, ok := p.FindFunc(0x80003000)
	if !ok || got != f {
		t.Errorf("FindFunc did not return the matching function")
	}
	if _, ok := p.FindFunc(0x80004000); ok {
		t.Error("FindFunc should miss on an unknown entry")
	}
}
