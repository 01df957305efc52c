package validate

import (
	"testing"

	"github.com/KaiserGranatapfel/gcrecomp/pkg/codegen"
)

func tree(files map[string]string) *codegen.Output {
	out := &codegen.Output{Files: map[string][]byte{}}
	for _, name := range []string{"shared.h", "dispatcher.src"} {
		if content, ok := files[name]; ok {
			out.Files[name] = []byte(content)
			out.Order = append(out.Order, name)
			delete(files, name)
		}
	}
	for name, content := range files {
		out.Files[name] = []byte(content)
		out.Order = append(out.Order, name)
	}
	return out
}

func TestValidateCleanTreeHasNoErrors(t *testing.T) {
	out := tree(map[string]string{
		"shared.h":        "pub fn unsupported_function(addr: u32) {}\n",
		"dispatcher.src":  "match target {\n    0x80003000 => fn_a(ctx, mem),\n}\n",
		"fn/fn_a.src":     "pub fn fn_a(ctx: &mut CpuContext, mem: &mut dyn Memory) -> u32 {\n    return 0;\n}\n",
	})
	errs := Validate(out)
	if len(errs) != 0 {
		t.Fatalf("Validate() = %v, want no errors", errs)
	}
}

func TestValidateDetectsBracketImbalance(t *testing.T) {
	out := tree(map[string]string{
		"shared.h":       "pub fn helper() {}\n",
		"dispatcher.src": "match target {\n",
		"fn/fn_a.src":    "pub fn fn_a() -> u32 {\n    return 0;\n}\n",
	})
	errs := Validate(out)
	found := false
	for _, e := range errs {
		if e.Kind == KindBracketImbalance && e.File == "dispatcher.src" {
			found = true
		}
	}
	if !found {
		t.Errorf("Validate() = %v, want a bracket_imbalance error on dispatcher.src", errs)
	}
}

func TestValidateDetectsEmptyFile(t *testing.T) {
	out := tree(map[string]string{
		"shared.h":       "pub fn helper() {}\n",
		"dispatcher.src": "match target {}\n",
		"fn/fn_a.src":    "   \n",
	})
	errs := Validate(out)
	found := false
	for _, e := range errs {
		if e.Kind == KindEmptyFile && e.File == "fn/fn_a.src" {
			found = true
		}
	}
	if !found {
		t.Errorf("Validate() = %v, want an empty_file error on fn/fn_a.src", errs)
	}
}

func TestValidateDetectsMissingFunction(t *testing.T) {
	out := tree(map[string]string{
		"shared.h":       "pub fn helper() {}\n",
		"dispatcher.src": "match target {\n    0x80003000 => fn_missing(ctx, mem),\n}\n",
	})
	errs := Validate(out)
	found := false
	for _, e := range errs {
		if e.Kind == KindMissingFunction {
			found = true
		}
	}
	if !found {
		t.Errorf("Validate() = %v, want a missing_function error", errs)
	}
}

func TestValidateDetectsOrphanDispatcherEntry(t *testing.T) {
	out := tree(map[string]string{
		"shared.h":       "pub fn helper() {}\n",
		"dispatcher.src": "match target {}\n",
		"fn/fn_a.src":    "pub fn fn_a() -> u32 {\n    return 0;\n}\n",
	})
	errs := Validate(out)
	found := false
	for _, e := range errs {
		if e.Kind == KindOrphanDispatcherEntry && e.File == "fn/fn_a.src" {
			found = true
		}
	}
	if !found {
		t.Errorf("Validate() = %v, want an orphan_dispatcher_entry error on fn/fn_a.src", errs)
	}
}

func TestValidateDetectsUndeclaredHelper(t *testing.T) {
	out := tree(map[string]string{
		"shared.h":       "pub fn helper() {}\n",
		"dispatcher.src": "match target {\n    0x80003000 => fn_a(ctx, mem),\n}\n",
		"fn/fn_a.src":    "pub fn fn_a() -> u32 {\n    mystery_helper(1);\n    return 0;\n}\n",
	})
	errs := Validate(out)
	found := false
	for _, e := range errs {
		if e.Kind == KindUndeclaredHelper {
			found = true
		}
	}
	if !found {
		t.Errorf("Validate() = %v, want an undeclared_helper error", errs)
	}
}
