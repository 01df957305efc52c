package symbols

import (
	"strings"
	"testing"
)

func TestLoadFunctionsAndGlobals(t *testing.T) {
	data := `{"function":{"entry_address":2147495936,"name":"fn_main"}}
{"global":{"address":2156396544,"type":{"kind":1,"signed":true,"width":32},"name":"g_counter"}}
`
	table, err := Load(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(table.Functions()) != 1 {
		t.Fatalf("len(Functions()) = %d, want 1", len(table.Functions()))
	}
	fs, ok := table.FunctionAt(0x80003000)
	if !ok || fs.Name != "fn_main" {
		t.Errorf("FunctionAt(0x80003000) = %+v, %v, want fn_main", fs, ok)
	}
	gs, ok := table.GlobalAt(0x80880000)
	if !ok || gs.Name != "g_counter" {
		t.Errorf("GlobalAt(0x80880000) = %+v, %v, want g_counter", gs, ok)
	}
}

func TestLoadRejectsDuplicateFunction(t *testing.T) {
	data := `{"function":{"entry_address":2147495936,"name":"fn_a"}}
{"function":{"entry_address":2147495936,"name":"fn_b"}}
`
	_, err := Load(strings.NewReader(data))
	if err == nil {
		t.Fatal("expected a DuplicateSymbol error")
	}
	if _, ok := err.(interface{ Error() string }); !ok {
		t.Fatalf("error = %T, want an error value", err)
	}
}

func TestLoadRejectsMalformedLine(t *testing.T) {
	_, err := Load(strings.NewReader("not json\n"))
	if err == nil {
		t.Fatal("expected an error for a malformed line")
	}
}

func TestLoadSkipsBlankLines(t *testing.T) {
	data := "\n{\"function\":{\"entry_address\":2147495936}}\n\n"
	table, err := Load(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(table.Functions()) != 1 {
		t.Errorf("len(Functions()) = %d, want 1", len(table.Functions()))
	}
}

func TestFunctionAtMissReturnsFalse(t *testing.T) {
	table, err := Load(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := table.FunctionAt(0x80003000); ok {
		t.Error("FunctionAt should miss on an empty table")
	}
}
