package loader

import (
	"bytes"
	"strings"
	"testing"

	"lc3/vm"
)

func TestWriteObjectThenReadObjectRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	words := []uint16{0x1021, 0xF025}
	if err := WriteObject(&buf, 0x3000, words); err != nil {
		t.Fatalf("WriteObject() error = %v", err)
	}

	origin, got, err := ReadObject(&buf)
	if err != nil {
		t.Fatalf("ReadObject() error = %v", err)
	}
	if origin != 0x3000 {
		t.Fatalf("origin = %#x, want 0x3000", origin)
	}
	if !bytes.Equal(uint16sToBytes(got), uint16sToBytes(words)) {
		t.Fatalf("words = %#v, want %#v", got, words)
	}
}

func uint16sToBytes(words []uint16) []byte {
	out := make([]byte, 2*len(words))
	for i, w := range words {
		out[2*i] = byte(w >> 8)
		out[2*i+1] = byte(w)
	}
	return out
}

func TestLoadProgram_PlacesWordsAtOrigin(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteObject(&buf, 0x3000, []uint16{0x1021, 0xF025}); err != nil {
		t.Fatalf("WriteObject() error = %v", err)
	}

	mem := vm.NewMemory(strings.NewReader(""), &bytes.Buffer{})
	origin, err := LoadProgram(mem, &buf)
	if err != nil {
		t.Fatalf("LoadProgram() error = %v", err)
	}
	if origin != 0x3000 {
		t.Fatalf("origin = %#x, want 0x3000", origin)
	}
	if got := mem.Get(0x3000); got != 0x1021 {
		t.Fatalf("mem[0x3000] = %#04x, want 0x1021", got)
	}
	if got := mem.Get(0x3001); got != 0xF025 {
		t.Fatalf("mem[0x3001] = %#04x, want 0xF025", got)
	}
}

func TestReadObject_EmptyIsError(t *testing.T) {
	if _, _, err := ReadObject(bytes.NewReader(nil)); err == nil {
		t.Fatal("ReadObject() error = nil, want error for empty input")
	}
}

func TestReadObject_OddByteCountIsError(t *testing.T) {
	if _, _, err := ReadObject(bytes.NewReader([]byte{0x30})); err == nil {
		t.Fatal("ReadObject() error = nil, want error for odd byte count")
	}
}

func TestLoadProgram_MultipleLoadsComposeByOverwrite(t *testing.T) {
	mem := vm.NewMemory(strings.NewReader(""), &bytes.Buffer{})

	var osImage bytes.Buffer
	_ = WriteObject(&osImage, 0x0000, []uint16{0xAAAA, 0xBBBB})
	if _, err := LoadProgram(mem, &osImage); err != nil {
		t.Fatalf("LoadProgram(os) error = %v", err)
	}

	var userImage bytes.Buffer
	_ = WriteObject(&userImage, 0x3000, []uint16{0xCCCC})
	if _, err := LoadProgram(mem, &userImage); err != nil {
		t.Fatalf("LoadProgram(user) error = %v", err)
	}

	if got := mem.Get(0x0000); got != 0xAAAA {
		t.Fatalf("mem[0x0000] = %#04x, want 0xAAAA", got)
	}
	if got := mem.Get(0x3000); got != 0xCCCC {
		t.Fatalf("mem[0x3000] = %#04x, want 0xCCCC", got)
	}
}
