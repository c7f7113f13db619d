// Package bits provides the windowed bit extraction, sign extension and
// truncation helpers shared by the assembler, disassembler and emulator.
package bits

import "fmt"

// GetBits returns the bits of n in the inclusive range [start, end], shifted
// down to start at bit 0. Both start and end are bit indices into a 16-bit
// word, with end >= start and end <= 15.
func GetBits(n uint16, start, end int) uint16 {
	if start < 0 || end > 15 || start > end {
		panic(fmt.Sprintf("bits: invalid window [%d, %d]", start, end))
	}
	width := end - start + 1
	mask := uint16((1 << uint(width)) - 1)
	return (n >> uint(start)) & mask
}

// SignExtend treats the low width bits of n as a two's-complement value and
// sign-extends it to a full 16-bit word. width must be in [1, 16].
func SignExtend(n uint16, width int) uint16 {
	if width < 1 || width > 16 {
		panic(fmt.Sprintf("bits: invalid width %d", width))
	}
	if width == 16 {
		return n
	}
	signBit := uint16(1) << uint(width-1)
	low := n & (signBit<<1 - 1)
	if low&signBit != 0 {
		return low | ^uint16(0)<<uint(width)
	}
	return low
}

// Truncate narrows a signed value to width bits, returning an error if the
// value does not fit. For width < 16 every field this is applied to is a
// signed immediate or PC-relative offset, so the accepted range is the
// two's-complement range [-(2^(width-1)), 2^(width-1) - 1] (spec.md §4.4).
// width == 16 is the .FILL/.ORIG literal case, which accepts either the
// signed or the equivalent unsigned 16-bit encoding, [-(2^15), 2^16 - 1].
func Truncate(value int32, width int) (uint16, error) {
	if width < 1 || width > 16 {
		panic(fmt.Sprintf("bits: invalid width %d", width))
	}
	lo := -(int32(1) << uint(width-1))
	hi := int32(1)<<uint(width-1) - 1
	if width == 16 {
		hi = int32(1)<<16 - 1
	}
	if value < lo || value > hi {
		return 0, fmt.Errorf("value %d does not fit in %d bits (range [%d, %d])", value, width, lo, hi)
	}
	mask := uint16((1 << uint(width)) - 1)
	return uint16(value) & mask, nil
}
