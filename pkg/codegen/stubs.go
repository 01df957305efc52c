package codegen

import "strings"

// sdkStub is one entry in the console SDK stub catalogue the shared
// header declares: a name, its Rust parameter list (beyond the
// leading &mut CpuContext every stub takes), and its return type.
type sdkStub struct {
	name    string
	params  string
	returns string
}

// sdkStubs is grounded in the original console SDK's entry-point
// naming (§3A); the core declares these signatures and a dispatch-by-
// name path to them but does not implement their semantics.
var sdkStubs = []sdkStub{
	{"OSReport", "fmt_addr: u32", "()"},
	{"OSPanic", "file_addr: u32, line: u32, msg_addr: u32", "()"},
	{"OSGetConsoleType", "", "u32"},
	{"OSDisableInterrupts", "", "u32"},
	{"OSRestoreInterrupts", "level: u32", "u32"},
	{"OSAllocFromArenaLo", "size: u32, align: u32", "u32"},
	{"OSAllocFromArenaHi", "size: u32, align: u32", "u32"},
	{"OSGetArenaLo", "", "u32"},
	{"OSGetArenaHi", "", "u32"},
	{"OSSetArenaLo", "addr: u32", "()"},
	{"OSSetArenaHi", "addr: u32", "()"},
	{"GXBegin", "primitive: u32, vtx_fmt: u32, count: u32", "()"},
	{"GXEnd", "", "()"},
	{"PADRead", "status_addr: u32", "u32"},
	{"DVDReadAsync", "entry_addr: u32, dst_addr: u32, length: u32, offset: u32, cb_addr: u32", "i32"},
}

func genSharedHeader() string {
	var b strings.Builder
	b.WriteString("// Generated shared header: CpuContext and the runtime the emitted\n")
	b.WriteString("// functions call into. Hand-written host glue provides the bodies.\n\n")
	b.WriteString("pub struct CpuContext {\n")
	b.WriteString("    pub gpr: [u32; 32],\n")
	b.WriteString("    pub fpr: [f64; 32],\n")
	b.WriteString("    pub cr: [u8; 8],\n")
	b.WriteString("    pub lr: u32,\n")
	b.WriteString("    pub ctr: u32,\n")
	b.WriteString("    pub msr: u32,\n")
	b.WriteString("    pub fpscr: u32,\n")
	b.WriteString("}\n\n")
	b.WriteString("pub trait Memory {\n")
	for _, w := range []int{8, 16, 32, 64} {
		fmt_write_line(&b, w)
	}
	b.WriteString("    fn read_f32(&self, addr: u32) -> f32;\n")
	b.WriteString("    fn read_f64(&self, addr: u32) -> f64;\n")
	b.WriteString("    fn write_f32(&mut self, addr: u32, value: f32);\n")
	b.WriteString("    fn write_f64(&mut self, addr: u32, value: f64);\n")
	b.WriteString("}\n\n")
	b.WriteString("// Host glue provides the bodies for everything below: the call\n")
	b.WriteString("// dispatcher, the two recoverable-error signals, and the SDK stub\n")
	b.WriteString("// catalogue. Declared extern so the emitted functions link against\n")
	b.WriteString("// whatever the host crate defines for them.\n")
	b.WriteString("extern \"Rust\" {\n")
	b.WriteString("    // dispatch routes a direct or indirect call to the emitted function\n")
	b.WriteString("    // at `target`, or to a named SDK stub when the symbol source\n")
	b.WriteString("    // labeled that address as one.\n")
	b.WriteString("    pub fn dispatch(target: u32, ctx: &mut CpuContext, mem: &mut dyn Memory) -> u32;\n\n")
	b.WriteString("    pub fn unimplemented_instruction(raw: u32);\n")
	b.WriteString("    pub fn unsupported_function(entry: u32);\n\n")
	for _, s := range sdkStubs {
		params := "ctx: &mut CpuContext"
		if s.params != "" {
			params += ", " + s.params
		}
		b.WriteString("    pub fn " + s.name + "(" + params + ") -> " + s.returns + ";\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func fmt_write_line(b *strings.Builder, width int) {
	suffix := ""
	switch width {
	case 8:
		suffix = "u8"
	case 16:
		suffix = "u16"
	case 32:
		suffix = "u32"
	case 64:
		suffix = "u64"
	}
	b.WriteString("    fn read_" + suffix + "(&self, addr: u32) -> " + suffix + ";\n")
	b.WriteString("    fn write_" + suffix + "(&mut self, addr: u32, value: " + suffix + ");\n")
}

// stubFunctionBody is the body the Emitter substitutes for a function
// it could not translate, per UnsupportedFunction (§7): the same
// signature, a runtime signal, and a zeroed return.
func stubFunctionBody(entry uint32) string {
	var b strings.Builder
	b.WriteString("    unsupported_function(0x")
	b.WriteString(hex32(entry))
	b.WriteString(");\n    0\n")
	return b.String()
}
