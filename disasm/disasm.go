// Package disasm reconstructs a textual mnemonic+operand listing from a
// stream of encoded LC-3 words (spec.md §4.5).
package disasm

import (
	"fmt"

	"lc3/bits"
	"lc3/opcode"
)

// Line is one decoded instruction: its address, the raw word, and the
// disassembled text.
type Line struct {
	Addr uint16
	Word uint16
	Text string
}

// Decode disassembles a stream of 16-bit words with no origin prefix,
// assigning addresses starting at 0.
func Decode(words []uint16) []Line {
	return decodeFrom(words, 0)
}

// DecodeObject disassembles an object-file-shaped word stream: a leading
// origin word followed by the program's words. Addresses are printed
// relative to that origin (SPEC_FULL.md §6.8 ".ORIG-relative disassembly
// addresses"), matching the emulator binary convention described in
// spec.md §4.5.
func DecodeObject(words []uint16) []Line {
	if len(words) == 0 {
		return nil
	}
	return decodeFrom(words[1:], words[0])
}

func decodeFrom(words []uint16, origin uint16) []Line {
	lines := make([]Line, 0, len(words))
	for i, w := range words {
		addr := origin + uint16(i)
		lines = append(lines, Line{Addr: addr, Word: w, Text: decodeWord(w)})
	}
	return lines
}

func decodeWord(w uint16) string {
	op := opcode.FromNibble(bits.GetBits(w, 12, 15))
	if op.Reserved() {
		return "[reserved]"
	}

	switch op {
	case opcode.ADD:
		return decodeAddAnd("ADD", w)
	case opcode.AND:
		return decodeAddAnd("AND", w)
	case opcode.BR:
		return decodeBR(w)
	case opcode.JMP:
		base := bits.GetBits(w, 6, 8)
		if base == 7 {
			return "RET"
		}
		return fmt.Sprintf("JMP R%d", base)
	case opcode.JSR:
		if bits.GetBits(w, 11, 11) == 1 {
			off := int16(bits.SignExtend(bits.GetBits(w, 0, 10), 11))
			return fmt.Sprintf("JSR %d", off)
		}
		return fmt.Sprintf("JSRR R%d", bits.GetBits(w, 6, 8))
	case opcode.LD:
		return decodePCOffset("LD", w)
	case opcode.LDI:
		return decodePCOffset("LDI", w)
	case opcode.LEA:
		return decodePCOffset("LEA", w)
	case opcode.ST:
		return decodePCOffset("ST", w)
	case opcode.STI:
		return decodePCOffset("STI", w)
	case opcode.LDR:
		return decodeIndexed("LDR", w)
	case opcode.STR:
		return decodeIndexed("STR", w)
	case opcode.NOT:
		dr := bits.GetBits(w, 9, 11)
		sr := bits.GetBits(w, 6, 8)
		return fmt.Sprintf("NOT R%d,R%d", dr, sr)
	case opcode.RTI:
		return "RTI"
	case opcode.TRAP:
		vector := bits.GetBits(w, 0, 7)
		if name, ok := opcode.TrapMnemonic(vector); ok {
			return name
		}
		return fmt.Sprintf("TRAP x%02X", vector)
	default:
		return "[reserved]"
	}
}

func decodeAddAnd(mnemonic string, w uint16) string {
	dr := bits.GetBits(w, 9, 11)
	sr1 := bits.GetBits(w, 6, 8)
	if bits.GetBits(w, 5, 5) == 1 {
		imm := int16(bits.SignExtend(bits.GetBits(w, 0, 4), 5))
		return fmt.Sprintf("%s R%d,R%d,#%d", mnemonic, dr, sr1, imm)
	}
	sr2 := bits.GetBits(w, 0, 2)
	return fmt.Sprintf("%s R%d,R%d,R%d", mnemonic, dr, sr1, sr2)
}

func decodeBR(w uint16) string {
	n := bits.GetBits(w, 11, 11) == 1
	z := bits.GetBits(w, 10, 10) == 1
	p := bits.GetBits(w, 9, 9) == 1
	suffix := ""
	if n {
		suffix += "n"
	}
	if z {
		suffix += "z"
	}
	if p {
		suffix += "p"
	}
	off := int16(bits.SignExtend(bits.GetBits(w, 0, 8), 9))
	return fmt.Sprintf("BR%s %d", suffix, off)
}

func decodePCOffset(mnemonic string, w uint16) string {
	dr := bits.GetBits(w, 9, 11)
	off := int16(bits.SignExtend(bits.GetBits(w, 0, 8), 9))
	return fmt.Sprintf("%s R%d,%d", mnemonic, dr, off)
}

func decodeIndexed(mnemonic string, w uint16) string {
	dr := bits.GetBits(w, 9, 11)
	base := bits.GetBits(w, 6, 8)
	off := int16(bits.SignExtend(bits.GetBits(w, 0, 5), 6))
	return fmt.Sprintf("%s R%d,R%d,#%d", mnemonic, dr, base, off)
}
