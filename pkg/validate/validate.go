// Package validate performs a text-level structural check of the
// Emitter's output tree before the host is told to compile it.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/KaiserGranatapfel/gcrecomp/pkg/codegen"
)

// Kind classifies one structural defect.
type Kind int

const (
	KindBracketImbalance Kind = iota
	KindEmptyFile
	KindMissingFunction
	KindUndeclaredHelper
	KindOrphanDispatcherEntry
)

func (k Kind) String() string {
	names := [...]string{"bracket_imbalance", "empty_file", "missing_function", "undeclared_helper", "orphan_dispatcher_entry"}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// ValidationError is one structural defect found in the emitted tree.
type ValidationError struct {
	File string
	Line int
	Kind Kind
	Detail string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s:%d: %s: %s", e.File, e.Line, e.Kind, e.Detail)
}

var (
	fnDeclRe       = regexp.MustCompile(`pub fn (\w+)\(`)
	dispatchCallRe = regexp.MustCompile(`=> (\w+)\(ctx, mem\)`)
	callRe         = regexp.MustCompile(`\b(\w+)\s*\(`)
)

// Validate scans out's files and returns every structural defect
// found; an empty result means the tree is safe to hand to the host
// build step. Order follows §4.8: bracket balance, non-empty files,
// dispatcher/file/symbol correspondence, then the declared-helper
// check, which needs the other files' contents first.
func Validate(out *codegen.Output) []ValidationError {
	var errs []ValidationError

	for _, name := range out.Order {
		content := string(out.Files[name])
		if strings.TrimSpace(content) == "" {
			errs = append(errs, ValidationError{File: name, Kind: KindEmptyFile, Detail: "file has no content"})
			continue
		}
		if line, ok := checkBrackets(content); !ok {
			errs = append(errs, ValidationError{File: name, Line: line, Kind: KindBracketImbalance, Detail: "unbalanced braces/parens"})
		}
	}

	declaredFns := map[string]bool{}
	for name, content := range out.Files {
		if !strings.HasPrefix(name, "fn/") {
			continue
		}
		for _, m := range fnDeclRe.FindAllStringSubmatch(string(content), -1) {
			declaredFns[m[1]] = true
		}
	}

	dispatcher := string(out.Files["dispatcher.src"])
	dispatched := map[string]bool{}
	for lineNo, line := range strings.Split(dispatcher, "\n") {
		for _, m := range dispatchCallRe.FindAllStringSubmatch(line, -1) {
			name := m[1]
			dispatched[name] = true
			if !declaredFns[name] {
				errs = append(errs, ValidationError{File: "dispatcher.src", Line: lineNo + 1, Kind: KindMissingFunction,
					Detail: fmt.Sprintf("dispatcher references %q, no fn/%s.src declares it", name, name)})
			}
		}
	}
	for name := range declaredFns {
		if !dispatched[name] {
			errs = append(errs, ValidationError{File: "fn/" + name + ".src", Kind: KindOrphanDispatcherEntry,
				Detail: fmt.Sprintf("function %q is not reachable from dispatcher.src", name)})
		}
	}

	errs = append(errs, checkDeclaredHelpers(out, declaredFns)...)
	return errs
}

// checkBrackets reports the 1-based line of the first unmatched
// closing brace/paren/bracket, or, if one is left open, the line of the
// innermost opener still unclosed; (0, true) means the file balances.
func checkBrackets(content string) (int, bool) {
	type frame struct {
		ch   byte
		line int
	}
	var stack []frame
	line := 1
	pairs := map[byte]byte{')': '(', '}': '{', ']': '['}
	for i := 0; i < len(content); i++ {
		c := content[i]
		if c == '\n' {
			line++
			continue
		}
		switch c {
		case '(', '{', '[':
			stack = append(stack, frame{c, line})
		case ')', '}', ']':
			if len(stack) == 0 || stack[len(stack)-1].ch != pairs[c] {
				return line, false
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return stack[len(stack)-1].line, false
	}
	return 0, true
}

// checkDeclaredHelpers ensures every bare-call identifier in a
// function file that is not another emitted function is declared in
// shared.h's extern block.
func checkDeclaredHelpers(out *codegen.Output, declaredFns map[string]bool) []ValidationError {
	header := string(out.Files["shared.h"])
	declaredHelpers := map[string]bool{}
	for _, m := range fnDeclRe.FindAllStringSubmatch(header, -1) {
		declaredHelpers[m[1]] = true
	}
	for _, line := range strings.Split(header, "\n") {
		if idx := strings.Index(line, "pub fn "); idx >= 0 {
			rest := line[idx+len("pub fn "):]
			if p := strings.IndexByte(rest, '('); p >= 0 {
				declaredHelpers[rest[:p]] = true
			}
		}
	}

	var errs []ValidationError
	for name, content := range out.Files {
		if !strings.HasPrefix(name, "fn/") && name != "dispatcher.src" {
			continue
		}
		for lineNo, line := range strings.Split(string(content), "\n") {
			for _, m := range callRe.FindAllStringSubmatch(line, -1) {
				callee := m[1]
				if isRustKeywordOrMethod(callee) || declaredFns[callee] || declaredHelpers[callee] {
					continue
				}
				errs = append(errs, ValidationError{File: name, Line: lineNo + 1, Kind: KindUndeclaredHelper,
					Detail: fmt.Sprintf("call to %q has no matching declaration", callee)})
			}
		}
	}
	return errs
}

var rustKeywordsAndMethods = map[string]bool{
	"if": true, "match": true, "loop": true, "fn": true, "pub": true, "let": true,
	"mut": true, "wrapping_add": true, "wrapping_sub": true, "wrapping_mul": true,
	"wrapping_div": true, "rotate_left": true, "read_u8": true, "read_u16": true,
	"read_u32": true, "read_u64": true, "read_f32": true, "read_f64": true,
	"write_u8": true, "write_u16": true, "write_u32": true, "write_u64": true,
	"write_f32": true, "write_f64": true, "dispatch": true,
}

func isRustKeywordOrMethod(name string) bool {
	return rustKeywordsAndMethods[name]
}
