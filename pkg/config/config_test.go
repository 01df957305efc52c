package config

import "testing"

func TestApplyProfileFast(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.ApplyProfile("fast"); err != nil {
		t.Fatalf("ApplyProfile: %v", err)
	}
	for f := Feature(0); f < FeatCount; f++ {
		if !cfg.IsFeatureEnabled(f) {
			t.Errorf("feature %d should be enabled under fast", f)
		}
	}
	if cfg.IsWarningEnabled(WarnUnreachableBlock) {
		t.Error("unreachable-block warning should be suppressed under fast")
	}
}

func TestApplyProfileDebug(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.ApplyProfile("debug"); err != nil {
		t.Fatalf("ApplyProfile: %v", err)
	}
	for f := Feature(0); f < FeatCount; f++ {
		if cfg.IsFeatureEnabled(f) {
			t.Errorf("feature %d should be disabled under debug", f)
		}
	}
	for w := Warning(0); w < WarnCount; w++ {
		if !cfg.IsWarningEnabled(w) {
			t.Errorf("warning %d should be enabled under debug", w)
		}
	}
}

func TestApplyProfileStrict(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.ApplyProfile("strict"); err != nil {
		t.Fatalf("ApplyProfile: %v", err)
	}
	for f := Feature(0); f < FeatCount; f++ {
		if !cfg.IsFeatureEnabled(f) {
			t.Errorf("feature %d should be enabled under strict", f)
		}
	}
	for w := Warning(0); w < WarnCount; w++ {
		if !cfg.IsWarningEnabled(w) {
			t.Errorf("warning %d should be enabled under strict", w)
		}
	}
}

func TestApplyProfileUnknownIsError(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.ApplyProfile("bogus"); err == nil {
		t.Fatal("expected an error for an unsupported profile name")
	}
}

func TestProcessFlagsTogglesFeaturesAndWarnings(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.ApplyProfile("fast"); err != nil {
		t.Fatalf("ApplyProfile: %v", err)
	}
	cfg.ProcessFlags(func(fn func(name string)) {
		fn("Fno-peephole")
		fn("Wno-decode-unknown")
	})
	if cfg.IsFeatureEnabled(FeatPeephole) {
		t.Error("Fno-peephole should disable the peephole pass")
	}
	if cfg.IsWarningEnabled(WarnDecodeUnknown) {
		t.Error("Wno-decode-unknown should disable the decode-unknown warning")
	}
	if !cfg.IsFeatureEnabled(FeatConstFold) {
		t.Error("const-fold should remain enabled; only peephole was toggled")
	}
}

func TestEnabledFeatureNamesMatchesIrOptimizeShape(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.ApplyProfile("fast"); err != nil {
		t.Fatalf("ApplyProfile: %v", err)
	}
	names := cfg.EnabledFeatureNames()
	for _, want := range []string{"const-fold", "copy-prop", "dce", "peephole", "redundant-load"} {
		if !names[want] {
			t.Errorf("EnabledFeatureNames()[%q] = false, want true under fast", want)
		}
	}
}
