// Package pipeline drives the translator over an already loaded Image
// and Symbol Source: it runs the per-function passes (Decoder through
// Optimizer) across a worker pool, then emits the resulting Rust tree.
// Validating that tree is left to the caller.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/KaiserGranatapfel/gcrecomp/pkg/cfg"
	"github.com/KaiserGranatapfel/gcrecomp/pkg/codegen"
	"github.com/KaiserGranatapfel/gcrecomp/pkg/config"
	"github.com/KaiserGranatapfel/gcrecomp/pkg/dataflow"
	"github.com/KaiserGranatapfel/gcrecomp/pkg/diag"
	"github.com/KaiserGranatapfel/gcrecomp/pkg/dol"
	"github.com/KaiserGranatapfel/gcrecomp/pkg/ir"
	"github.com/KaiserGranatapfel/gcrecomp/pkg/symbols"
	"github.com/KaiserGranatapfel/gcrecomp/pkg/typeinfer"
)

// State is a function's position in the monotonic per-function state
// machine of §4.9. States are never re-entered.
type State int

const (
	Discovered State = iota
	Decoded
	CfgBuilt
	DataFlowAnalyzed
	TypeInferred
	IrLowered
	IrOptimized
	Emitted
	Validated
	Failed
)

func (s State) String() string {
	names := [...]string{
		"discovered", "decoded", "cfg_built", "data_flow_analyzed", "type_inferred",
		"ir_lowered", "ir_optimized", "emitted", "validated", "failed",
	}
	if int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// FunctionResult is one function's terminal state: either a lowered
// and optimized ir.Func ready for emission, or the stage and cause it
// failed at.
type FunctionResult struct {
	Symbol     symbols.FunctionSymbol
	State      State
	FailedAt   State
	Cause      error
	Func       *ir.Func
	Types      *typeinfer.Result
	Diagnostics []diag.Diagnostic
}

// Progress is one event the driver emits as it works through the
// function list: a stage name, how many functions have reached or
// passed it, and the total function count.
type Progress struct {
	Stage   string
	Done    int
	Total   int
	Current string
}

// Report is the Pipeline Driver's aggregated result for a whole run,
// stamped with a run id so a CI archive of many runs against the same
// image can be told apart.
type Report struct {
	RunID     string
	Functions []FunctionResult
	Output    *codegen.Output
	Validation []error
}

// FailedFunctions returns the subset of Functions whose terminal state
// is Failed.
func (r *Report) FailedFunctions() []FunctionResult {
	var out []FunctionResult
	for _, f := range r.Functions {
		if f.State == Failed {
			out = append(out, f)
		}
	}
	return out
}

// Driver runs the translation pipeline for one image against one
// symbol source.
type Driver struct {
	Image   *dol.Image
	Symbols symbols.Source
	Config  *config.Config
	Jobs    int
	Progress chan<- Progress
}

// NewDriver builds a Driver with a sensible default worker count
// (GOMAXPROCS, per §5) when jobs is zero or negative.
func NewDriver(img *dol.Image, src symbols.Source, cfg *config.Config, jobs int) *Driver {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	return &Driver{Image: img, Symbols: src, Config: cfg, Jobs: jobs}
}

// Run executes the whole pipeline. It returns the aggregated report
// plus an error only when the run as a whole must be treated as
// failed (a canceled context, or an emission error); it does not run
// the validator, and Report.Validation is left empty. Individual
// function failures are collected in the report, not returned here.
func (d *Driver) Run(ctx context.Context) (*Report, error) {
	functions := d.Symbols.Functions()
	sort.Slice(functions, func(i, j int) bool { return functions[i].EntryAddress < functions[j].EntryAddress })

	report := &Report{RunID: uuid.NewString()}
	results := make([]FunctionResult, len(functions))

	jobs := make(chan int)
	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0

	worker := func() {
		defer wg.Done()
		for idx := range jobs {
			select {
			case <-ctx.Done():
				return
			default:
			}
			fs := functions[idx]
			results[idx] = d.runFunction(fs)

			mu.Lock()
			done++
			if d.Progress != nil {
				name := fs.Name
				if name == "" {
					name = fmt.Sprintf("0x%08x", fs.EntryAddress)
				}
				d.Progress <- Progress{Stage: "translate", Done: done, Total: len(functions), Current: name}
			}
			mu.Unlock()
		}
	}

	workers := d.Jobs
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go worker()
	}
	for i := range functions {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return report, err
	}

	report.Functions = results

	prog := &ir.Program{}
	meta := map[uint32]codegen.FuncMeta{}
	for _, r := range results {
		if r.State != IrOptimized && r.State != Validated {
			continue
		}
		prog.Funcs = append(prog.Funcs, r.Func)
		meta[r.Func.Entry] = codegen.FuncMeta{Types: r.Types, Name: r.Symbol.Name}
	}

	emitter := codegen.RustEmitter{}
	out, err := emitter.Generate(prog, meta, d.Config)
	if err != nil {
		return report, fmt.Errorf("pipeline: emit: %w", err)
	}
	report.Output = out

	for i := range results {
		if results[i].State == IrOptimized {
			results[i].State = Emitted
		}
	}

	return report, nil
}

// runFunction executes C2-C7 for one function. Each stage's artifacts
// are local to this call and released when it returns, so peak memory
// is bounded by jobs x largest function rather than by the whole image.
func (d *Driver) runFunction(fs symbols.FunctionSymbol) FunctionResult {
	res := FunctionResult{Symbol: fs, State: Discovered}

	g, err := cfg.Build(fs.EntryAddress, d.Image, fs.EndAddress)
	if err != nil {
		res.State, res.FailedAt, res.Cause = Failed, Decoded, err
		return res
	}
	res.State = CfgBuilt

	for _, warn := range collectDecodeWarnings(g, fs.EntryAddress) {
		res.Diagnostics = append(res.Diagnostics, warn)
	}

	_ = dataflow.Analyze(g)
	res.State = DataFlowAnalyzed

	hints := typeinfer.Hints{ParameterTypes: fs.ParameterTypes, ReturnType: fs.ReturnType}
	types, tdiags := typeinfer.Infer(g, hints)
	res.Types = types
	res.State = TypeInferred
	for _, td := range tdiags {
		res.Diagnostics = append(res.Diagnostics, diag.Diagnostic{
			Kind: diag.KindTypeConflict, Address: td.At, Register: td.Register, Stage: "type_infer",
			Message: fmt.Sprintf("could not unify register %s at 0x%08x", td.Register, td.At),
		})
	}
	if d.Config.ProfileName == "strict" && len(tdiags) > 0 {
		res.State, res.FailedAt = Failed, TypeInferred
		res.Cause = fmt.Errorf("type conflict under strict profile: register %s at 0x%08x", tdiags[0].Register, tdiags[0].At)
		return res
	}

	name := fs.Name
	if name == "" {
		name = fmt.Sprintf("fn_%08x", fs.EntryAddress)
	}
	f := ir.Lower(name, fs.EntryAddress, g)
	res.State = IrLowered

	ir.Optimize(f, d.Config.EnabledFeatureNames())
	res.State = IrOptimized
	res.Func = f

	return res
}

// collectDecodeWarnings scans a built graph for the Decoder's synthetic
// opaque-instruction placeholders and turns each into a DecodeUnknown
// diagnostic, since cfg.Build folds the error into the walk rather than
// surfacing it directly (DecodeUnknown is recoverable, per §7).
func collectDecodeWarnings(g *cfg.Graph, entry uint32) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, b := range g.Blocks {
		for _, insn := range b.Instructions {
			if insn.Mnemonic == "unimplemented_instruction" {
				out = append(out, diag.Diagnostic{
					Kind: diag.KindDecodeUnknown, Address: insn.Address, Stage: "decode",
					Message: fmt.Sprintf("word 0x%08x at 0x%08x did not classify", insn.Raw, insn.Address),
				})
			}
		}
	}
	_ = entry
	return out
}
