// Package assemble implements the LC-3 assembler's second pass: encoding a
// parsed parser.Program into a stream of 16-bit words (spec.md §4.4).
package assemble

import (
	"fmt"

	"lc3/bits"
	"lc3/opcode"
	"lc3/parser"
)

// Error reports an encoding failure at a source position, in the same
// "position: error: message" form as parser.Error (spec.md §7). It carries
// no source line, so no caret-marked line is printed.
type Error struct {
	Pos     parser.Position
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: error: %s", e.Pos, e.Message)
}

// Assemble encodes a fully-parsed Program into its object image: the origin
// word followed by one or more words per instruction, in source order
// (spec.md §4.4). .END produces no word.
func Assemble(prog *parser.Program) ([]uint16, error) {
	words := make([]uint16, 0, len(prog.Lines)+1)
	words = append(words, prog.Origin)

	for _, line := range prog.Lines {
		instr := line.Instr
		if instr.Kind == parser.KindEnd {
			continue
		}
		encoded, err := encodeLine(prog, line)
		if err != nil {
			return nil, err
		}
		words = append(words, encoded...)
	}
	return words, nil
}

func encodeLine(prog *parser.Program, line parser.CodeLine) ([]uint16, error) {
	instr := line.Instr
	loc := line.Loc

	switch instr.Kind {
	case parser.KindADD, parser.KindAND:
		return []uint16{encodeAddAnd(instr)}, nil
	case parser.KindBR:
		off, err := resolvePCOffset(prog, instr, loc, 9)
		if err != nil {
			return nil, err
		}
		nzp := uint16(0)
		if instr.NZP[0] {
			nzp |= 0x4
		}
		if instr.NZP[1] {
			nzp |= 0x2
		}
		if instr.NZP[2] {
			nzp |= 0x1
		}
		return []uint16{opcode.BR.Nibble()<<12 | nzp<<9 | off}, nil
	case parser.KindJMP:
		return []uint16{opcode.JMP.Nibble()<<12 | uint16(instr.BaseR)<<6}, nil
	case parser.KindRET:
		return []uint16{opcode.JMP.Nibble()<<12 | 7<<6}, nil
	case parser.KindJSR:
		off, err := resolvePCOffset(prog, instr, loc, 11)
		if err != nil {
			return nil, err
		}
		return []uint16{opcode.JSR.Nibble()<<12 | 1<<11 | off}, nil
	case parser.KindJSRR:
		return []uint16{opcode.JSR.Nibble()<<12 | uint16(instr.BaseR)<<6}, nil
	case parser.KindLD:
		return encodeOffset9(prog, opcode.LD, instr, loc)
	case parser.KindLDI:
		return encodeOffset9(prog, opcode.LDI, instr, loc)
	case parser.KindLEA:
		return encodeOffset9(prog, opcode.LEA, instr, loc)
	case parser.KindST:
		return encodeOffset9(prog, opcode.ST, instr, loc)
	case parser.KindSTI:
		return encodeOffset9(prog, opcode.STI, instr, loc)
	case parser.KindLDR:
		return []uint16{encodeIndexed(opcode.LDR, instr)}, nil
	case parser.KindSTR:
		return []uint16{encodeIndexed(opcode.STR, instr)}, nil
	case parser.KindNOT:
		return []uint16{opcode.NOT.Nibble()<<12 | uint16(instr.DR)<<9 | uint16(instr.SR)<<6 | 0x3F}, nil
	case parser.KindRTI:
		return []uint16{opcode.RTI.Nibble() << 12}, nil
	case parser.KindTRAP:
		return []uint16{opcode.TRAP.Nibble()<<12 | instr.TrapVector}, nil
	case parser.KindFill:
		v, err := resolveAbsolute(prog, instr.FillValue, instr.Pos)
		if err != nil {
			return nil, err
		}
		return []uint16{v}, nil
	case parser.KindBlkw:
		return make([]uint16, instr.BlkwCount), nil
	case parser.KindStringz:
		out := make([]uint16, 0, len(instr.Str)+1)
		for i := 0; i < len(instr.Str); i++ {
			out = append(out, uint16(instr.Str[i]))
		}
		out = append(out, 0)
		return out, nil
	default:
		return nil, &Error{Pos: instr.Pos, Message: fmt.Sprintf("cannot encode instruction kind %d", instr.Kind)}
	}
}

func encodeAddAnd(instr *parser.Instruction) uint16 {
	op := opcode.ADD
	if instr.Kind == parser.KindAND {
		op = opcode.AND
	}
	word := op.Nibble()<<12 | uint16(instr.DR)<<9 | uint16(instr.SR1)<<6
	if instr.ImmMode {
		imm, _ := bits.Truncate(instr.Imm5, 5)
		word |= 1<<5 | imm
	} else {
		word |= uint16(instr.SR2)
	}
	return word
}

func encodeIndexed(op opcode.Op, instr *parser.Instruction) uint16 {
	off, _ := bits.Truncate(instr.Offset6, 6)
	return op.Nibble()<<12 | uint16(instr.DR)<<9 | uint16(instr.BaseR)<<6 | off
}

func encodeOffset9(prog *parser.Program, op opcode.Op, instr *parser.Instruction, loc uint16) ([]uint16, error) {
	off, err := resolvePCOffset(prog, instr, loc, 9)
	if err != nil {
		return nil, err
	}
	return []uint16{op.Nibble()<<12 | uint16(instr.DR)<<9 | off}, nil
}

// resolvePCOffset computes the PC-relative offset for a branch-like
// operand: for a label, target - (loc + 1), mod 2^16; a literal operand is
// already the offset. The result is then checked to fit in width bits
// (spec.md §4.4, invariant "bit width").
func resolvePCOffset(prog *parser.Program, instr *parser.Instruction, loc uint16, width int) (uint16, error) {
	target := instr.PCTarget
	var offset int32
	if target.IsLabel {
		addr, ok := prog.Labels[target.Label]
		if !ok {
			return 0, &Error{Pos: instr.Pos, Message: fmt.Sprintf("undefined label %q", target.Label)}
		}
		offset = int32(addr) - int32(loc) - 1
	} else {
		offset = target.Value
	}

	// Reduce into a representable range before the width check so a
	// logically-valid wraparound offset (e.g. target 0 from loc 0xFFFF)
	// does not spuriously fail; the check below is on the signed value.
	for offset > 0xFFFF {
		offset -= 0x10000
	}
	for offset < -0x10000 {
		offset += 0x10000
	}
	if offset > 32767 {
		offset -= 65536
	} else if offset < -32768 {
		offset += 65536
	}

	encoded, err := bits.Truncate(offset, width)
	if err != nil {
		return 0, &Error{Pos: instr.Pos, Message: fmt.Sprintf("PC-relative offset %d to %q out of range for %d-bit field", offset, describeTarget(target), width)}
	}
	return encoded, nil
}

// resolveAbsolute resolves a .FILL operand: a label's address unchanged, or
// a literal 16-bit value (spec.md §9 "Label-to-label .FILL").
func resolveAbsolute(prog *parser.Program, target parser.Target, pos parser.Position) (uint16, error) {
	if target.IsLabel {
		addr, ok := prog.Labels[target.Label]
		if !ok {
			return 0, &Error{Pos: pos, Message: fmt.Sprintf("undefined label %q", target.Label)}
		}
		return addr, nil
	}
	return uint16(target.Value), nil
}

func describeTarget(t parser.Target) string {
	if t.IsLabel {
		return t.Label
	}
	return fmt.Sprintf("%d", t.Value)
}
