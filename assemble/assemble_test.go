package assemble

import (
	"reflect"
	"testing"

	"lc3/parser"
)

func assembleSource(t *testing.T, src string) []uint16 {
	t.Helper()
	p := parser.NewParser(src, "test.asm")
	prog, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	words, err := Assemble(prog)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	return words
}

func TestAssemble_S1_MinimalProgram(t *testing.T) {
	words := assembleSource(t, ".ORIG x3000\nADD R0,R0,#1\nHALT\n.END\n")
	want := []uint16{0x3000, 0x1021, 0xF025}
	if !reflect.DeepEqual(words, want) {
		t.Fatalf("words = %#v, want %#v", words, want)
	}
}

func TestAssemble_S2_BranchLoopOffset(t *testing.T) {
	src := ".ORIG x3000\n" +
		"LOOP ADD R0,R0,#-1\n" +
		"BRp LOOP\n" +
		"HALT\n" +
		".END\n"
	words := assembleSource(t, src)
	// BRp LOOP is at 0x3001; target 0x3000; offset = 0x3000 - 0x3002 = -2.
	wantBR := uint16(0)<<12 | 0x1<<9 | (uint16(0xFFFE) & 0x1FF)
	if words[2] != wantBR {
		t.Fatalf("BRp word = %#04x, want %#04x", words[2], wantBR)
	}
}

func TestAssemble_S3_LeaPutsStringz(t *testing.T) {
	src := ".ORIG x3000\n" +
		"LEA R0,MSG\n" +
		"PUTS\n" +
		"HALT\n" +
		"MSG .STRINGZ \"hi\"\n" +
		".END\n"
	words := assembleSource(t, src)
	// LEA R0,MSG at 0x3000; MSG at 0x3003; offset = 3 - 1 = 2.
	wantLEA := uint16(0xE)<<12 | 0<<9 | 2
	if words[1] != wantLEA {
		t.Fatalf("LEA word = %#04x, want %#04x", words[1], wantLEA)
	}
	if words[2] != 0xF022 {
		t.Fatalf("PUTS word = %#04x, want 0xF022", words[2])
	}
	if words[3] != 0xF025 {
		t.Fatalf("HALT word = %#04x, want 0xF025", words[3])
	}
	if words[4] != uint16('h') || words[5] != uint16('i') || words[6] != 0 {
		t.Fatalf("STRINGZ words = %#v, want ['h','i',0]", words[4:7])
	}
}

func TestAssemble_UndefinedLabel(t *testing.T) {
	p := parser.NewParser(".ORIG x3000\nBR NOPE\n.END\n", "test.asm")
	prog, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, err := Assemble(prog); err == nil {
		t.Fatal("Assemble() error = nil, want undefined label error")
	}
}

func TestAssemble_PCOffsetOutOfRange(t *testing.T) {
	// LDR/STR is fine, but a BR target 600 words away overflows the
	// 9-bit PC-relative field checked at assemble time (labels aren't
	// width-checked until the target address is known).
	src := ".ORIG x3000\nBR FAR\n.BLKW #600\nFAR ADD R0,R0,R0\n.END\n"
	p := parser.NewParser(src, "test.asm")
	prog, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, err := Assemble(prog); err == nil {
		t.Fatal("Assemble() error = nil, want out-of-range PC offset error")
	}
}

func TestAssemble_FillAndBlkw(t *testing.T) {
	src := ".ORIG x3000\n" +
		".FILL x1234\n" +
		".BLKW #2\n" +
		".END\n"
	words := assembleSource(t, src)
	want := []uint16{0x3000, 0x1234, 0, 0}
	if !reflect.DeepEqual(words, want) {
		t.Fatalf("words = %#v, want %#v", words, want)
	}
}

func TestAssemble_JsrAndJsrr(t *testing.T) {
	src := ".ORIG x3000\n" +
		"JSR SUB\n" +
		"JSRR R3\n" +
		"SUB RET\n" +
		".END\n"
	words := assembleSource(t, src)
	// JSR SUB at 0x3000; SUB at 0x3002; offset = 2 - 1 = 1.
	wantJSR := uint16(0x4)<<12 | 1<<11 | 1
	if words[1] != wantJSR {
		t.Fatalf("JSR word = %#04x, want %#04x", words[1], wantJSR)
	}
	wantJSRR := uint16(0x4)<<12 | 3<<6
	if words[2] != wantJSRR {
		t.Fatalf("JSRR word = %#04x, want %#04x", words[2], wantJSRR)
	}
	wantRET := uint16(0xC)<<12 | 7<<6
	if words[3] != wantRET {
		t.Fatalf("RET word = %#04x, want %#04x", words[3], wantRET)
	}
}
