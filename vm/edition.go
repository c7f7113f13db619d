package vm

// Edition selects between the two documented LC-3 ISA-manual semantics
// (spec.md §9 "Two-edition compatibility", SPEC_FULL.md §6.8): whether
// LEA updates condition codes, and whether TRAP enters supervisor mode.
type Edition int

const (
	// EditionSecond is the default: TRAP sets R7 without a mode switch,
	// and LEA updates condition codes.
	EditionSecond Edition = iota
	// EditionThird: TRAP enters supervisor mode via the same path as an
	// exception, and LEA leaves condition codes untouched.
	EditionThird
)
