package vm

import (
	"fmt"
	"io"

	"lc3/bits"
	"lc3/opcode"
)

// State is the coarse run/halt/error status of the VM, mirroring the
// emulator's own MCR-driven halt but adding a host-visible error state
// for conditions the LC-3 architecture itself has no representation for
// (a malformed dispatch, not a runtime exception — those are serviced in
// guest code per spec.md §7).
type State int

const (
	StateRunning State = iota
	StateHalted
	StateError
)

// VM is the complete emulator: register file, memory (with its
// memory-mapped I/O and keyboard buffer), and the edition-selected
// semantics (spec.md §4.6).
type VM struct {
	CPU     *CPU
	Memory  *Memory
	Edition Edition

	State     State
	LastError error
}

// NewVM returns a VM with a fresh CPU and Memory wired to in/out, with the
// memory-mapped PSR register bound to the CPU's own PSR.
func NewVM(in io.Reader, out io.Writer, edition Edition) *VM {
	v := &VM{
		CPU:     NewCPU(),
		Memory:  NewMemory(in, out),
		Edition: edition,
		State:   StateRunning,
	}
	v.Memory.BindCPU(v.CPU)
	return v
}

// Run steps the VM until MCR[15] clears, an error occurs, or maxSteps
// steps have executed (0 means unbounded). It returns the number of
// steps executed.
func (vm *VM) Run(maxSteps uint64) (uint64, error) {
	var steps uint64
	for vm.Memory.Running() && vm.State == StateRunning {
		if maxSteps > 0 && steps >= maxSteps {
			return steps, nil
		}
		if err := vm.Step(); err != nil {
			return steps, err
		}
		steps++
	}
	return steps, nil
}

// Step executes one fetch-decode-execute cycle (spec.md §4.6 "Dispatch").
func (vm *VM) Step() error {
	if vm.State == StateError {
		return fmt.Errorf("vm: step called in error state: %w", vm.LastError)
	}

	pc := vm.CPU.PC
	if !vm.checkedAccess(pc, false) {
		// handleException already redirected PC to the vector table;
		// overwriting it with pc+1 below would discard the fault.
		return nil
	}
	instr := vm.Memory.Get(pc)
	vm.CPU.PC = pc + 1
	vm.CPU.Cycles++

	op := opcode.FromNibble(bits.GetBits(instr, 12, 15))
	if op.Reserved() {
		vm.handleException(opcode.ExceptionIllegal)
		return nil
	}

	switch op {
	case opcode.ADD:
		vm.execAddAnd(instr, false)
	case opcode.AND:
		vm.execAddAnd(instr, true)
	case opcode.BR:
		vm.execBR(instr)
	case opcode.JMP:
		vm.execJMP(instr)
	case opcode.JSR:
		vm.execJSR(instr)
	case opcode.LD:
		vm.execLD(instr)
	case opcode.LDI:
		vm.execLDI(instr)
	case opcode.LDR:
		vm.execLDR(instr)
	case opcode.LEA:
		vm.execLEA(instr)
	case opcode.NOT:
		vm.execNOT(instr)
	case opcode.RTI:
		vm.execRTI()
	case opcode.ST:
		vm.execST(instr)
	case opcode.STI:
		vm.execSTI(instr)
	case opcode.STR:
		vm.execSTR(instr)
	case opcode.TRAP:
		vm.execTRAP(instr)
	default:
		vm.handleException(opcode.ExceptionIllegal)
	}
	return nil
}

// checkedAccess implements spec.md §4.6 "Privilege and memory
// protection": a user-mode access outside 0x3000-0xFDFF raises an ACV
// exception and the caller must not complete the access. Returns
// whether the access may proceed.
func (vm *VM) checkedAccess(addr uint16, _write bool) bool {
	if AddressAccessible(vm.CPU.UserMode(), addr) {
		return true
	}
	vm.handleException(opcode.ExceptionACV)
	return false
}

// load and store report ok=false when the access violates spec.md §4.6
// "Privilege and memory protection"; handleException has already fired
// and the caller must not apply any further register/memory side effect
// (spec.md §8 invariant 5).
func (vm *VM) load(addr uint16) (value uint16, ok bool) {
	if !vm.checkedAccess(addr, false) {
		return 0, false
	}
	return vm.Memory.Get(addr), true
}

func (vm *VM) store(addr, value uint16) bool {
	if !vm.checkedAccess(addr, true) {
		return false
	}
	vm.Memory.Set(addr, value)
	return true
}

func pcOffset9(instr uint16) uint16 {
	return bits.SignExtend(bits.GetBits(instr, 0, 8), 9)
}

func pcOffset11(instr uint16) uint16 {
	return bits.SignExtend(bits.GetBits(instr, 0, 10), 11)
}

func offset6(instr uint16) uint16 {
	return bits.SignExtend(bits.GetBits(instr, 0, 5), 6)
}

func (vm *VM) execAddAnd(instr uint16, isAnd bool) {
	dr := bits.GetBits(instr, 9, 11)
	sr1 := vm.CPU.R[bits.GetBits(instr, 6, 8)]
	var operand uint16
	if bits.GetBits(instr, 5, 5) == 1 {
		operand = bits.SignExtend(bits.GetBits(instr, 0, 4), 5)
	} else {
		operand = vm.CPU.R[bits.GetBits(instr, 0, 2)]
	}
	var result uint16
	if isAnd {
		result = sr1 & operand
	} else {
		result = sr1 + operand
	}
	vm.CPU.R[dr] = result
	vm.CPU.SetConditionCodes(result)
}

func (vm *VM) execBR(instr uint16) {
	n, z, p := vm.CPU.ConditionCodes()
	wantN := bits.GetBits(instr, 11, 11) == 1
	wantZ := bits.GetBits(instr, 10, 10) == 1
	wantP := bits.GetBits(instr, 9, 9) == 1
	if (wantN && n) || (wantZ && z) || (wantP && p) {
		vm.CPU.PC += pcOffset9(instr)
	}
}

func (vm *VM) execJMP(instr uint16) {
	vm.CPU.PC = vm.CPU.R[bits.GetBits(instr, 6, 8)]
}

func (vm *VM) execJSR(instr uint16) {
	oldPC := vm.CPU.PC
	if bits.GetBits(instr, 11, 11) == 1 {
		vm.CPU.PC = oldPC + pcOffset11(instr)
	} else {
		// JSRR: compute the target from BaseR before clobbering R7, so
		// JSRR R7 jumps to the pre-call value of R7 (spec.md §8
		// invariant 6 "JSR ordering").
		target := vm.CPU.R[bits.GetBits(instr, 6, 8)]
		vm.CPU.PC = target
	}
	vm.CPU.R[7] = oldPC
}

func (vm *VM) execLD(instr uint16) {
	dr := bits.GetBits(instr, 9, 11)
	addr := vm.CPU.PC + pcOffset9(instr)
	value, ok := vm.load(addr)
	if !ok {
		return
	}
	vm.CPU.R[dr] = value
	vm.CPU.SetConditionCodes(value)
}

func (vm *VM) execLDI(instr uint16) {
	dr := bits.GetBits(instr, 9, 11)
	ptr := vm.CPU.PC + pcOffset9(instr)
	addr, ok := vm.load(ptr)
	if !ok {
		return
	}
	value, ok := vm.load(addr)
	if !ok {
		return
	}
	vm.CPU.R[dr] = value
	vm.CPU.SetConditionCodes(value)
}

func (vm *VM) execLDR(instr uint16) {
	dr := bits.GetBits(instr, 9, 11)
	base := vm.CPU.R[bits.GetBits(instr, 6, 8)]
	addr := base + offset6(instr)
	value, ok := vm.load(addr)
	if !ok {
		return
	}
	vm.CPU.R[dr] = value
	vm.CPU.SetConditionCodes(value)
}

func (vm *VM) execLEA(instr uint16) {
	dr := bits.GetBits(instr, 9, 11)
	value := vm.CPU.PC + pcOffset9(instr)
	vm.CPU.R[dr] = value
	if vm.Edition == EditionSecond {
		vm.CPU.SetConditionCodes(value)
	}
}

func (vm *VM) execNOT(instr uint16) {
	dr := bits.GetBits(instr, 9, 11)
	sr := vm.CPU.R[bits.GetBits(instr, 6, 8)]
	result := ^sr
	vm.CPU.R[dr] = result
	vm.CPU.SetConditionCodes(result)
}

func (vm *VM) execRTI() {
	if vm.CPU.UserMode() {
		vm.handleException(opcode.ExceptionPrivilege)
		return
	}
	vm.CPU.rti(vm.Memory)
}

func (vm *VM) execST(instr uint16) {
	sr := vm.CPU.R[bits.GetBits(instr, 9, 11)]
	addr := vm.CPU.PC + pcOffset9(instr)
	vm.store(addr, sr)
}

func (vm *VM) execSTI(instr uint16) {
	sr := vm.CPU.R[bits.GetBits(instr, 9, 11)]
	ptr := vm.CPU.PC + pcOffset9(instr)
	addr, ok := vm.load(ptr)
	if !ok {
		return
	}
	vm.store(addr, sr)
}

func (vm *VM) execSTR(instr uint16) {
	sr := vm.CPU.R[bits.GetBits(instr, 9, 11)]
	base := vm.CPU.R[bits.GetBits(instr, 6, 8)]
	addr := base + offset6(instr)
	vm.store(addr, sr)
}

func (vm *VM) execTRAP(instr uint16) {
	vector := bits.GetBits(instr, 0, 7)
	oldPC := vm.CPU.PC
	if vm.Edition == EditionThird {
		vm.CPU.enterSupervisorMode(vm.Memory, oldPC)
	} else {
		vm.CPU.R[7] = oldPC
	}
	vm.CPU.PC = vm.Memory.Get(vector)
}

// handleException implements spec.md §4.6 "handle_exception": enter
// supervisor mode, then jump to the vector table entry 0x0100|v.
func (vm *VM) handleException(vector uint16) {
	vm.CPU.enterSupervisorMode(vm.Memory, vm.CPU.PC)
	vm.CPU.PC = 0x0100 | vector
}

// HandleInterrupt implements spec.md §4.6 "handle_interrupt": ignored if
// pri does not exceed the current priority, else serviced as an
// exception and the priority level raised.
func (vm *VM) HandleInterrupt(vector uint16, pri uint16) {
	if pri <= vm.CPU.Priority() {
		return
	}
	vm.handleException(vector)
	vm.CPU.SetPriority(pri)
}
