// Package codegen renders a lowered and optimized ir.Program as Rust
// source text: one file per function, a dispatcher, and a shared
// header of runtime declarations.
package codegen

import (
	"github.com/KaiserGranatapfel/gcrecomp/pkg/config"
	"github.com/KaiserGranatapfel/gcrecomp/pkg/ir"
	"github.com/KaiserGranatapfel/gcrecomp/pkg/typeinfer"
)

// Output is the emitted program's whole file tree, keyed by path
// relative to the output directory per the persisted-state layout:
// "shared.h", "dispatcher.src", "fn/<name>.src".
type Output struct {
	Files map[string][]byte
	// Order lists the keys of Files in the order they were produced,
	// so a caller writing them to disk or a golden file gets a stable
	// ordering without re-sorting map keys.
	Order []string
}

func (o *Output) put(name string, content string) {
	if o.Files == nil {
		o.Files = map[string][]byte{}
	}
	o.Files[name] = []byte(content)
	o.Order = append(o.Order, name)
}

// FuncMeta carries the per-function facts the Emitter needs that are
// not themselves part of the IR: the Type Inferencer's result and the
// display name the Symbol Source supplied (empty if anonymous).
type FuncMeta struct {
	Types *typeinfer.Result
	Name  string
}

// Backend is the interface a code-generation target implements. The
// core ships one: RustEmitter.
type Backend interface {
	Generate(prog *ir.Program, meta map[uint32]FuncMeta, cfg *config.Config) (*Output, error)
}
