// Package config holds the run-time toggles the Pipeline Driver and
// Emitter consult: which optimizer passes run, which diagnostic
// categories are reported, and the active optimization profile.
package config

import (
	"fmt"
	"strings"
)

// Feature is one optimizer pass the IR Builder & Optimizer can run.
type Feature int

const (
	FeatConstFold Feature = iota
	FeatCopyProp
	FeatDCE
	FeatPeephole
	FeatRedundantLoad
	FeatCount
)

// Warning is one diagnostic category the core can raise while
// translating a function.
type Warning int

const (
	WarnTypeConflict Warning = iota
	WarnDecodeUnknown
	WarnEmitUnsupported
	WarnUnreachableBlock
	WarnDisjointFunction
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

// Config is the translation run's full set of toggles, shared by the
// IR Builder, the Emitter, and the diagnostic printer.
type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning
	ProfileName string
	Jobs        int
}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
	}

	features := map[Feature]Info{
		FeatConstFold:     {"const-fold", true, "Fold arithmetic and logical operations over constant operands."},
		FeatCopyProp:      {"copy-prop", true, "Propagate plain register-to-register moves to their uses."},
		FeatDCE:           {"dce", true, "Remove lowering-introduced scratch values that are never read."},
		FeatPeephole:      {"peephole", true, "Rewrite algebraic identities such as x+0 and x*1."},
		FeatRedundantLoad: {"redundant-load", true, "Elide a repeated load of the same address within one block."},
	}

	warnings := map[Warning]Info{
		WarnTypeConflict:     {"type-conflict", true, "Warn when the Type Inferencer cannot unify a register's uses."},
		WarnDecodeUnknown:    {"decode-unknown", true, "Warn when the Decoder meets a word it cannot classify."},
		WarnEmitUnsupported:  {"emit-unsupported", true, "Warn when the Emitter falls back to a stub for a function."},
		WarnUnreachableBlock: {"unreachable-block", false, "Warn about a basic block with no predecessors."},
		WarnDisjointFunction: {"disjoint-function", true, "Warn when a function's walk leaves the image's mapped sections."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// EnabledFeatureNames returns the optimizer-pass names currently
// enabled, in the shape pkg/ir.Optimize expects.
func (c *Config) EnabledFeatureNames() map[string]bool {
	out := make(map[string]bool, len(c.Features))
	for _, info := range c.Features {
		out[info.Name] = info.Enabled
	}
	return out
}

// ApplyProfile configures the feature and warning sets for one of the
// three optimization profiles: fast (every pass on, the unreachable-block
// warning turned off, the other warnings left as they are), debug (every pass off, every warning on, so
// the emitted Rust mirrors the decoded instructions one-to-one), and
// strict (every pass on, every warning on, used in CI).
func (c *Config) ApplyProfile(name string) error {
	c.ProfileName = name
	switch name {
	case "fast":
		for f := Feature(0); f < FeatCount; f++ {
			c.SetFeature(f, true)
		}
		c.SetWarning(WarnUnreachableBlock, false)
	case "debug":
		for f := Feature(0); f < FeatCount; f++ {
			c.SetFeature(f, false)
		}
		for w := Warning(0); w < WarnCount; w++ {
			c.SetWarning(w, true)
		}
	case "strict":
		for f := Feature(0); f < FeatCount; f++ {
			c.SetFeature(f, true)
		}
		for w := Warning(0); w < WarnCount; w++ {
			c.SetWarning(w, true)
		}
	default:
		return fmt.Errorf("unsupported optimization profile %q. Supported: fast, debug, strict", name)
	}
	return nil
}

func (c *Config) applyFlag(flag string) {
	trimmed := strings.TrimPrefix(flag, "-")
	isNo := strings.HasPrefix(trimmed, "Wno-") || strings.HasPrefix(trimmed, "Fno-")
	enable := !isNo

	var name string
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		name = strings.TrimPrefix(trimmed, "W")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
	default:
		return
	}

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			c.SetWarning(i, enable)
		}
		return
	}

	if isWarning {
		if w, ok := c.WarningMap[name]; ok {
			c.SetWarning(w, enable)
		}
	} else {
		if f, ok := c.FeatureMap[name]; ok {
			c.SetFeature(f, enable)
		}
	}
}

// ProcessFlags applies a batch of "-Wname"/"-Wno-name"/"-Fname"/
// "-Fno-name" command-line toggles, in the order visitFlag supplies
// them, so a later flag overrides an earlier one.
func (c *Config) ProcessFlags(visitFlag func(fn func(name string))) {
	visitFlag(func(name string) {
		c.applyFlag("-" + name)
	})
}
