package typeinfer

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

func TestInferSeedsDefaultIntForUnreferencedRegisters(t *testing.T) {
	entry := uint32(0x80003000)
	img := buildImage(entry, []uint32{0x7C632214}) // add r3, r3, r4
	end := entry + 4
	g, err := cfg.Build(entry, img, &end)
	if err != nil {
		t.Fatalf("cfg.Build: %v", err)
	}
	res, _ := Infer(g, Hints{})
	if !res.Registers["r10"].Equal(Int(true, 32)) {
		t.Errorf("r10 = %s, want default sint32", res.Registers["r10"])
	}
}

func TestInferAppliesParameterHints(t *testing.T) {
	entry := uint32(0x80003000)
	img := buildImage(entry, []uint32{0x7C632214}) // add r3, r3, r4
	end := entry + 4
	g, err := cfg.Build(entry, img, &end)
	if err != nil {
		t.Fatalf("cfg.Build: %v", err)
	}
	hints := Hints{ParameterTypes: []Type{Pointer(Int(false, 8))}}
	res, _ := Infer(g, hints)
	if res.Registers["r3"].Kind != KindPointer {
		t.Errorf("r3 = %s, want pointer hint applied", res.Registers["r3"])
	}
}

// A register hinted as a float that a later instruction uses as a load's
// base register produces a TypeConflict diagnostic (float vs pointer
// cannot be reconciled).
func TestInferReportsTypeConflict(t *testing.T) {
	entry := uint32(0x80003000)
	img := buildImage(entry, []uint32{0x80830000}) // lwz r4, 0(r3)
	end := entry + 4
	g, err := cfg.Build(entry, img, &end)
	if err != nil {
		t.Fatalf("cfg.Build: %v", err)
	}
	hints := Hints{ParameterTypes: []Type{Float(64)}}
	_, diags := Infer(g, hints)
	if len(diags) == 0 {
		t.Fatal("expected a TypeConflict diagnostic for r3 (float hint vs pointer use)")
	}
	found := false
	for _, d := range diags {
		if d.Register == "r3" {
			found = true
		}
	}
	if !found {
		t.Errorf("diagnostics %+v do not mention r3", diags)
	}
}
