package parser

// Kind identifies the variant of a parsed instruction line: one of the
// seventeen operation forms (JSRR and RET have kinds of their own), or one
// of the five pseudo-ops (spec.md §3).
type Kind int

const (
	KindADD Kind = iota
	KindAND
	KindBR
	KindJMP
	KindJSR
	KindJSRR
	KindLD
	KindLDI
	KindLDR
	KindLEA
	KindNOT
	KindRET
	KindRTI
	KindST
	KindSTI
	KindSTR
	KindTRAP
	KindOrig
	KindFill
	KindBlkw
	KindStringz
	KindEnd
)

// Target is a PC-relative or absolute operand that is either a label
// (resolved against the symbol table in the second pass) or a literal
// value already known at parse time.
type Target struct {
	Label    string
	Value    int32
	IsLabel  bool
}

// Instruction is the tagged variant of a single parsed assembly line. Only
// the fields relevant to Kind are meaningful; this mirrors the "tagged
// variant with arms for each operation and pseudo-op" called for in
// spec.md §3 using plain struct fields rather than a Rust-style enum.
type Instruction struct {
	Kind Kind

	// Register operands (0-7). Meaning depends on Kind:
	//   ADD/AND: DR, SR1, and either SR2 or Imm5 (ImmMode selects which)
	//   NOT:     DR, SR
	//   LDR/STR: DR, BaseR, Offset6
	//   JMP/JSRR: BaseR
	DR, SR1, SR2, SR, BaseR int

	ImmMode bool  // ADD/AND: true selects Imm5 over SR2
	Imm5    int32 // ADD/AND immediate operand, range [-16, 15]
	Offset6 int32 // LDR/STR offset, range [-32, 31]

	NZP [3]bool // BR condition flags (N, Z, P); BR with no suffix means all three

	// PC-relative target, used by BR, JSR and LD/LDI/LEA/ST/STI (.FILL
	// uses FillValue).
	PCTarget Target

	TrapVector uint16 // TRAP (and the named trap aliases, pre-resolved)

	FillValue Target // .FILL
	BlkwCount uint16 // .BLKW
	Str       string // .STRINGZ, escapes already processed

	Origin uint16 // .ORIG

	// EndLabel records .END's optional trailing label (supplemented
	// feature, SPEC_FULL.md §6.8); it does not change assembly semantics.
	EndLabel string
	HasEndLabel bool

	// Pos locates the instruction for diagnostics (spec.md §7). The parser
	// does not fill in RawLine.
	Pos     Position
	RawLine string
}

// CodeLine bundles an optional label, one parsed instruction, and the
// location-counter value at which the instruction is placed (spec.md §3).
type CodeLine struct {
	Label   string
	HasLabel bool
	Instr   *Instruction
	Loc     uint16
}

// Program is the output of the first pass: the origin, the ordered lines,
// and the label -> address map (spec.md §3).
type Program struct {
	Origin   uint16
	Lines    []CodeLine
	Labels   map[string]uint16
	EndLabel string
	HasEndLabel bool
}
