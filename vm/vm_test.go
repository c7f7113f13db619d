package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVM() *VM {
	return NewVM(strings.NewReader(""), &bytes.Buffer{}, EditionSecond)
}

func TestStep_S5_MinimalProgramHalts(t *testing.T) {
	v := newTestVM()
	v.Memory.LoadImage(0x3000, []uint16{0x1021, 0xF025})
	// Minimal HALT service routine, since the VM has no built-in OS: the
	// trap vector table entry 0x25 points at a two-word routine that
	// clears MCR through an indirect store (STI's 9-bit PC-relative
	// field can't reach 0xFFFE directly, so it stores through a pointer
	// cell holding the absolute address). R1 is 0 at reset, so STI R1,#0
	// stores 0 into MCR, clearing bit 15.
	v.Memory.LoadImage(0x0025, []uint16{0x0200})
	v.Memory.LoadImage(0x0200, []uint16{0xB200, 0xFFFE})
	v.CPU.PC = 0x3000

	steps, err := v.Run(0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if steps != 3 {
		t.Fatalf("steps = %d, want 3", steps)
	}
	if v.CPU.R[0] != 1 {
		t.Fatalf("R0 = %d, want 1", v.CPU.R[0])
	}
	if v.CPU.PSR&0x7 != 0x1 {
		t.Fatalf("PSR[2:0] = %#x, want 0x1", v.CPU.PSR&0x7)
	}
	if v.Memory.Running() {
		t.Fatal("Memory.Running() = true, want halted after HALT trap")
	}
}

func TestStep_ConditionCodes(t *testing.T) {
	v := newTestVM()
	v.CPU.R[0] = 5
	v.Memory.LoadImage(0x3000, []uint16{0x103F}) // ADD R0,R0,#-1
	v.CPU.PC = 0x3000
	if err := v.Step(); err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if v.CPU.R[0] != 4 {
		t.Fatalf("R0 = %d, want 4", v.CPU.R[0])
	}
	if v.CPU.PSR&0x7 != 0x1 { // positive
		t.Fatalf("PSR[2:0] = %#x, want 0x1 (P)", v.CPU.PSR&0x7)
	}

	v.CPU.R[0] = 1
	v.Memory.LoadImage(0x3001, []uint16{0x103F}) // ADD R0,R0,#-1 -> 0
	v.CPU.PC = 0x3001
	if err := v.Step(); err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if v.CPU.PSR&0x7 != 0x2 { // zero
		t.Fatalf("PSR[2:0] = %#x, want 0x2 (Z)", v.CPU.PSR&0x7)
	}
}

func TestStep_JsrrSavesPreCallR7(t *testing.T) {
	v := newTestVM()
	v.CPU.R[7] = 0x4000
	v.Memory.LoadImage(0x3000, []uint16{0x41C0}) // JSRR R7
	v.CPU.PC = 0x3000
	if err := v.Step(); err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if v.CPU.PC != 0x4000 {
		t.Fatalf("PC = %#x, want 0x4000 (pre-call R7)", v.CPU.PC)
	}
	if v.CPU.R[7] != 0x3001 {
		t.Fatalf("R7 = %#x, want 0x3001 (return address)", v.CPU.R[7])
	}
}

func TestStep_PrivilegeViolationOnSupervisorAccess(t *testing.T) {
	v := newTestVM()
	v.CPU.R[6] = 0x3100 // user stack
	v.CPU.PSR |= 0x8000 // user mode
	v.CPU.R[0] = 0x0010
	v.Memory.LoadImage(0x3000, []uint16{0x6000}) // LDR R0,R0,#0 -> reads mem[0x0010], supervisor space
	v.CPU.PC = 0x3000
	if err := v.Step(); err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if v.CPU.UserMode() {
		t.Fatal("UserMode() = true after privilege violation, want supervisor mode entered")
	}
	if v.CPU.PC != 0x0102 {
		t.Fatalf("PC = %#x, want 0x0102 (exception vector for ACV)", v.CPU.PC)
	}
}

func TestKeyboard_S6_BufferSequencing(t *testing.T) {
	k := NewKeyboard(strings.NewReader("A"))
	if got := k.ReadKBSR(); got != 0x8000 {
		t.Fatalf("first ReadKBSR() = %#x, want 0x8000", got)
	}
	if got := k.ReadKBDR(); got != 0x41 {
		t.Fatalf("ReadKBDR() = %#x, want 0x41", got)
	}
	if got := k.ReadKBSR(); got != 0x0000 {
		t.Fatalf("ReadKBSR() after consuming = %#x, want 0x0000", got)
	}
}

func TestMemory_DisplayWriteTranslatesNewline(t *testing.T) {
	var out bytes.Buffer
	m := NewMemory(strings.NewReader(""), &out)
	m.Set(AddrDDR, uint16('\n'))
	if out.String() != "\r\n" {
		t.Fatalf("display output = %q, want %q", out.String(), "\r\n")
	}
}

func TestStep_RtiReturnsToSavedPSRAndPC(t *testing.T) {
	v := newTestVM()
	v.CPU.PSR |= 0x8000 // user mode before the trap
	v.CPU.R[6] = 0x3100  // user stack
	v.Memory.LoadImage(0x3000, []uint16{0xF025}) // TRAP HALT
	v.Edition = EditionThird                     // third edition: TRAP enters supervisor mode, so RTI can unwind it
	v.CPU.PC = 0x3000
	v.Memory.LoadImage(0x0025, []uint16{0x0200})
	v.Memory.LoadImage(0x0200, []uint16{0x8000}) // RTI, instead of halting, unwinds back to user mode

	require.NoError(t, v.Step(), "TRAP")
	require.NoError(t, v.Step(), "RTI")

	assert.True(t, v.CPU.UserMode(), "UserMode() after RTI should restore the pre-trap mode")
	assert.Equal(t, uint16(0x3001), v.CPU.PC, "PC after RTI should be the saved return address")
}

func TestAddressAccessible(t *testing.T) {
	cases := []struct {
		user bool
		addr uint16
		want bool
	}{
		{true, 0x3000, true},
		{true, 0xFDFF, true},
		{true, 0x2FFF, false},
		{true, 0xFE00, false},
		{false, 0x0000, true},
		{false, 0xFFFF, true},
	}
	for _, c := range cases {
		if got := AddressAccessible(c.user, c.addr); got != c.want {
			t.Errorf("AddressAccessible(%v, %#x) = %v, want %v", c.user, c.addr, got, c.want)
		}
	}
}
