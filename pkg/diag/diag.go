// Package diag renders the core's Diagnostic{kind, address, register,
// stage} values: fatal errors that abort a run and non-fatal warnings
// that the Pipeline Driver collects and the CLI prints at the end.
package diag

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/KaiserGranatapfel/gcrecomp/pkg/config"
)

var colorEnabled = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

func colorize(code, s string) string {
	if !colorEnabled {
		return s
	}
	return fmt.Sprintf("\033[%sm%s\033[0m", code, s)
}

// Kind is the error kind a Diagnostic reports, per §7.
type Kind int

const (
	KindInvalidImage Kind = iota
	KindUnmappedAddress
	KindDecodeUnknown
	KindDisjointFunction
	KindTypeConflict
	KindEmitUnsupported
	KindValidationError
)

func (k Kind) String() string {
	names := [...]string{
		"invalid_image", "unmapped_address", "decode_unknown", "disjoint_function",
		"type_conflict", "emit_unsupported", "validation_error",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// warningFor maps a Kind to the config.Warning category that gates it,
// when one exists; Warn never suppresses a kind with no entry.
var warningFor = map[Kind]config.Warning{
	KindDecodeUnknown:   config.WarnDecodeUnknown,
	KindTypeConflict:    config.WarnTypeConflict,
	KindEmitUnsupported: config.WarnEmitUnsupported,
}

// Diagnostic is the addressable, printable form of every error kind.
type Diagnostic struct {
	Kind     Kind
	Address  uint32
	Register string
	Stage    string
	Message  string
}

func (d Diagnostic) String() string {
	loc := fmt.Sprintf("0x%08x", d.Address)
	if d.Register != "" {
		loc += " reg=" + d.Register
	}
	return fmt.Sprintf("%s [%s] %s: %s", loc, d.Stage, d.Kind, d.Message)
}

// Reporter collects diagnostics across a run and prints them under a
// given Config's warning gating. It never calls os.Exit; the Pipeline
// Driver decides exit codes from the fatal count it observes.
type Reporter struct {
	cfg      *config.Config
	fatal    []Diagnostic
	warnings []Diagnostic
}

func NewReporter(cfg *config.Config) *Reporter {
	return &Reporter{cfg: cfg}
}

// Fatal records a diagnostic that aborts translation of its function
// (or the whole run, for a pre-function-loop kind like InvalidImage).
func (r *Reporter) Fatal(d Diagnostic) {
	r.fatal = append(r.fatal, d)
}

// Warn records a non-fatal diagnostic, subject to the active profile's
// warning gating; a suppressed warning is dropped: it is neither kept
// for printing nor counted.
func (r *Reporter) Warn(d Diagnostic) {
	if w, ok := warningFor[d.Kind]; ok && !r.cfg.IsWarningEnabled(w) {
		return
	}
	r.warnings = append(r.warnings, d)
}

func (r *Reporter) HasFatal() bool { return len(r.fatal) > 0 }
func (r *Reporter) Fatals() []Diagnostic { return r.fatal }
func (r *Reporter) Warnings() []Diagnostic { return r.warnings }

// Print writes every recorded diagnostic to stderr, warnings first so
// a scroll-back reader sees the fatal summary last.
func (r *Reporter) Print() {
	for _, d := range r.warnings {
		fmt.Fprintf(os.Stderr, "%s %s\n", colorize("33", "warning:"), d)
	}
	for _, d := range r.fatal {
		fmt.Fprintf(os.Stderr, "%s %s\n", colorize("31", "error:"), d)
	}
}
