// Package symbols defines the Symbol Source contract the core consumes
// to discover functions and globals, plus a concrete newline-delimited
// JSON loader for it.
package symbols

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/KaiserGranatapfel/gcrecomp/pkg/typeinfer"
)

// FunctionSymbol is one function entry supplied by the Symbol Source.
// EndAddress, Name, ParameterTypes, and ReturnType are all optional; the
// CFG Builder and Type Inferencer fall back to their own defaults when
// absent.
type FunctionSymbol struct {
	EntryAddress   uint32              `json:"entry_address"`
	EndAddress     *uint32             `json:"end_address,omitempty"`
	Name           string              `json:"name,omitempty"`
	ParameterTypes []typeinfer.Type    `json:"parameter_types,omitempty"`
	ReturnType     *typeinfer.Type     `json:"return_type,omitempty"`
}

// GlobalSymbol is one global data entry supplied by the Symbol Source.
type GlobalSymbol struct {
	Address uint32         `json:"address"`
	Type    typeinfer.Type `json:"type"`
	Name    string         `json:"name,omitempty"`
}

// record is the on-the-wire shape of one ndjson line: exactly one of
// Function or Global is set.
type record struct {
	Function *FunctionSymbol `json:"function,omitempty"`
	Global   *GlobalSymbol   `json:"global,omitempty"`
}

// Source is the contract the rest of the core depends on. A Source is
// queried by address; callers never assume anything about how it is
// populated.
type Source interface {
	Functions() []FunctionSymbol
	FunctionAt(addr uint32) (FunctionSymbol, bool)
	Globals() []GlobalSymbol
	GlobalAt(addr uint32) (GlobalSymbol, bool)
}

// Table is the in-memory Source implementation populated by Load.
type Table struct {
	functions []FunctionSymbol
	globals   []GlobalSymbol
	funcByAddr map[uint32]int
	globalByAddr map[uint32]int
}

func (t *Table) Functions() []FunctionSymbol { return t.functions }

func (t *Table) FunctionAt(addr uint32) (FunctionSymbol, bool) {
	i, ok := t.funcByAddr[addr]
	if !ok {
		return FunctionSymbol{}, false
	}
	return t.functions[i], true
}

func (t *Table) Globals() []GlobalSymbol { return t.globals }

func (t *Table) GlobalAt(addr uint32) (GlobalSymbol, bool) {
	i, ok := t.globalByAddr[addr]
	if !ok {
		return GlobalSymbol{}, false
	}
	return t.globals[i], true
}

// DuplicateSymbol reports that two entries in the source describe the
// same address.
type DuplicateSymbol struct {
	Addr uint32
	Kind string
}

func (e *DuplicateSymbol) Error() string {
	return fmt.Sprintf("duplicate %s symbol at 0x%08X", e.Kind, e.Addr)
}

// Load reads a newline-delimited JSON symbol table, one record per line.
func Load(r io.Reader) (*Table, error) {
	t := &Table{funcByAddr: map[uint32]int{}, globalByAddr: map[uint32]int{}}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("symbols: line %d: %w", lineNo, err)
		}
		switch {
		case rec.Function != nil:
			f := *rec.Function
			if _, dup := t.funcByAddr[f.EntryAddress]; dup {
				return nil, &DuplicateSymbol{Addr: f.EntryAddress, Kind: "function"}
			}
			t.funcByAddr[f.EntryAddress] = len(t.functions)
			t.functions = append(t.functions, f)
		case rec.Global != nil:
			g := *rec.Global
			if _, dup := t.globalByAddr[g.Address]; dup {
				return nil, &DuplicateSymbol{Addr: g.Address, Kind: "global"}
			}
			t.globalByAddr[g.Address] = len(t.globals)
			t.globals = append(t.globals, g)
		default:
			return nil, fmt.Errorf("symbols: line %d: neither function nor global set", lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("symbols: %w", err)
	}
	return t, nil
}
