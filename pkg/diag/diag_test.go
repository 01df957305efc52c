package diag

import (
	"strings"
	"testing"

	"github.com/KaiserGranatapfel/gcrecomp/pkg/config"
)

func TestReporterCollectsFatalsWithoutExiting(t *testing.T) {
	r := NewReporter(config.NewConfig())
	if r.HasFatal() {
		t.Fatal("a fresh Reporter must have no fatals")
	}
	r.Fatal(Diagnostic{Kind: KindInvalidImage, Message: "bad image"})
	if !r.HasFatal() {
		t.Error("HasFatal() should be true after Fatal()")
	}
	if len(r.Fatals()) != 1 {
		t.Errorf("len(Fatals()) = %d, want 1", len(r.Fatals()))
	}
}

func TestReporterWarnGatedByConfig(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetWarning(config.WarnDecodeUnknown, false)
	r := NewReporter(cfg)
	r.Warn(Diagnostic{Kind: KindDecodeUnknown, Address: 0x80003000})
	if len(r.Warnings()) != 0 {
		t.Errorf("a disabled warning category must not be kept, got %v", r.Warnings())
	}

	cfg.SetWarning(config.WarnDecodeUnknown, true)
	r2 := NewReporter(cfg)
	r2.Warn(Diagnostic{Kind: KindDecodeUnknown, Address: 0x80003000})
	if len(r2.Warnings()) != 1 {
		t.Errorf("an enabled warning category must be kept, got %v", r2.Warnings())
	}
}

func TestReporterWarnUngatedKindAlwaysKept(t *testing.T) {
	cfg := config.NewConfig()
	r := NewReporter(cfg)
	r.Warn(Diagnostic{Kind: KindUnmappedAddress, Address: 0x90000000})
	if len(r.Warnings()) != 1 {
		t.Error("a kind with no warning-category mapping should always be kept")
	}
}

func TestDiagnosticStringIncludesRegisterWhenSet(t *testing.T) {
	d := Diagnostic{Kind: KindTypeConflict, Address: 0x80003000, Register: "r3", Stage: "type_infer", Message: "conflict"}
	s := d.String()
	if !strings.Contains(s, "r3") || !strings.Contains(s, "type_conflict") {
		t.Errorf("String() = %q, want it to mention register and kind", s)
	}
}
