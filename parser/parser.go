package parser

import (
	"fmt"
	"strings"

	"lc3/bits"
	"lc3/opcode"
)

// Parser is a single-pass, one-token-lookahead parser that turns LC-3
// assembly source into a Program (spec.md §4.3).
type Parser struct {
	lex      *Lexer
	filename string
	cur      Token
	cursor   uint32 // location_cursor; uint32 so overflow past 0xFFFF is detectable
	lines    []CodeLine
	labels   map[string]uint16
	errs     *ErrorList
}

// NewParser constructs a Parser over source from a named file (used only
// for diagnostics; the parser itself only ever reads from the in-memory
// string produced by the caller's text-source reader, per spec.md §1).
func NewParser(source, filename string) *Parser {
	p := &Parser{
		lex:      NewLexer(source, filename),
		filename: filename,
		labels:   make(map[string]uint16),
		errs:     &ErrorList{},
	}
	p.advance()
	return p
}

func (p *Parser) advance() {
	p.cur = p.lex.NextToken()
}

func (p *Parser) errorf(pos Position, kind ErrorKind, format string, args ...interface{}) error {
	context := ""
	if lines := strings.Split(p.lex.input, "\n"); pos.Line >= 1 && pos.Line <= len(lines) {
		context = strings.TrimRight(lines[pos.Line-1], "\r")
	}
	err := NewErrorWithContext(pos, kind, fmt.Sprintf(format, args...), context)
	p.errs.AddError(err)
	return err
}

func (p *Parser) skipNewlines() {
	for p.cur.Type == TokenNewline {
		p.advance()
	}
}

func (p *Parser) skipComma() {
	if p.cur.Type == TokenComma {
		p.advance()
	}
}

// Parse runs the first pass and returns the resulting Program.
func (p *Parser) Parse() (*Program, error) {
	if lexErrs := p.lex.Errors(); lexErrs.HasErrors() {
		return nil, lexErrs
	}

	p.skipNewlines()
	if p.cur.Type != TokenDirective || p.cur.Literal != ".ORIG" {
		return nil, p.errorf(p.cur.Pos, ErrorMissingOrig, "program must begin with .ORIG")
	}
	origPos := p.cur.Pos
	p.advance()

	origin, err := p.parseNumber16(origPos, 16)
	if err != nil {
		return nil, err
	}
	p.cursor = uint32(origin)

	if err := p.endOfLine(); err != nil {
		return nil, err
	}

	var pendingLabel string
	havePending := false

	for {
		p.skipNewlines()
		if p.cur.Type == TokenEOF {
			return nil, p.errorf(p.cur.Pos, ErrorSyntax, "unexpected end of file: missing .END")
		}

		if p.cur.Type == TokenLabel {
			pendingLabel = p.cur.Literal
			havePending = true
			p.advance()
			if p.cur.Type == TokenNewline || p.cur.Type == TokenEOF {
				// Label-only line: attach to the next instruction line.
				continue
			}
		}

		instr, err := p.parseInstruction()
		if err != nil {
			return nil, err
		}

		loc := uint16(p.cursor)
		if havePending {
			p.labels[pendingLabel] = loc
		}

		cl := CodeLine{Loc: loc, Instr: instr}
		if havePending {
			cl.Label = pendingLabel
			cl.HasLabel = true
			pendingLabel = ""
			havePending = false
		}
		p.lines = append(p.lines, cl)

		if instr.Kind == KindEnd {
			if lexErrs := p.lex.Errors(); lexErrs.HasErrors() {
				return nil, lexErrs
			}
			prog := &Program{
				Origin: origin,
				Lines:  p.lines,
				Labels: p.labels,
			}
			if instr.HasEndLabel {
				prog.EndLabel = instr.EndLabel
				prog.HasEndLabel = true
			}
			return prog, nil
		}

		words, err := wordSize(instr)
		if err != nil {
			return nil, p.errorf(instr.Pos, ErrorInvalidOperand, "%s", err)
		}
		p.cursor += uint32(words)
		if p.cursor > 0xFFFF {
			return nil, p.errorf(instr.Pos, ErrorLocationOverflow, "program overflows 16-bit address space")
		}
		if p.cursor >= 0xFE00 {
			return nil, p.errorf(instr.Pos, ErrorLocationOverflow, "program runs into device register space (0xFE00)")
		}

		if err := p.endOfLine(); err != nil {
			return nil, err
		}
	}
}

func (p *Parser) endOfLine() error {
	if p.cur.Type == TokenNewline || p.cur.Type == TokenEOF {
		if p.cur.Type == TokenNewline {
			p.advance()
		}
		return nil
	}
	return p.errorf(p.cur.Pos, ErrorSyntax, "unexpected token %q at end of line", p.cur.Literal)
}

// wordSize returns the number of words a CodeLine's instruction occupies in
// the object image (spec.md §3 location-counter invariants).
func wordSize(instr *Instruction) (uint16, error) {
	switch instr.Kind {
	case KindBlkw:
		return instr.BlkwCount, nil
	case KindStringz:
		n := len(instr.Str) + 1
		if n >= 0xFFFE {
			return 0, fmt.Errorf("string too large (%d bytes including NUL)", n)
		}
		return uint16(n), nil
	default:
		return 1, nil
	}
}

func (p *Parser) parseInstruction() (*Instruction, error) {
	pos := p.cur.Pos
	switch p.cur.Type {
	case TokenDirective:
		return p.parseDirective(pos)
	case TokenMnemonic:
		return p.parseMnemonic(pos)
	default:
		return nil, p.errorf(pos, ErrorSyntax, "expected an instruction or directive, got %q", p.cur.Literal)
	}
}

func (p *Parser) parseDirective(pos Position) (*Instruction, error) {
	name := p.cur.Literal
	p.advance()
	switch name {
	case ".ORIG":
		return nil, p.errorf(pos, ErrorSyntax, ".ORIG may only appear once, at the start of the program")
	case ".FILL":
		target, err := p.parseLabelOrOffset(pos, 16)
		if err != nil {
			return nil, err
		}
		return &Instruction{Kind: KindFill, FillValue: target, Pos: pos}, nil
	case ".BLKW":
		n, err := p.parseNumber16(pos, 16)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, p.errorf(pos, ErrorInvalidOperand, ".BLKW count must be positive")
		}
		return &Instruction{Kind: KindBlkw, BlkwCount: n, Pos: pos}, nil
	case ".STRINGZ":
		if p.cur.Type != TokenString {
			return nil, p.errorf(p.cur.Pos, ErrorSyntax, "expected a string literal after .STRINGZ")
		}
		raw := p.cur.Literal
		p.advance()
		s, err := ProcessEscapes(raw)
		if err != nil {
			return nil, p.errorf(pos, ErrorSyntax, "%s", err)
		}
		return &Instruction{Kind: KindStringz, Str: s, Pos: pos}, nil
	case ".END":
		instr := &Instruction{Kind: KindEnd, Pos: pos}
		if p.cur.Type == TokenLabel {
			instr.EndLabel = p.cur.Literal
			instr.HasEndLabel = true
			p.advance()
		}
		return instr, nil
	default:
		return nil, p.errorf(pos, ErrorInvalidDirective, "unknown directive %q", name)
	}
}

func (p *Parser) parseMnemonic(pos Position) (*Instruction, error) {
	word := p.cur.Literal
	p.advance()

	if vector, ok := opcode.TrapVector(word); ok && word != "TRAP" {
		return &Instruction{Kind: KindTRAP, TrapVector: vector, Pos: pos}, nil
	}

	switch {
	case word == "ADD" || word == "AND":
		return p.parseAddAnd(pos, word)
	case isBranchWord(word):
		return p.parseBR(pos, word)
	case word == "JMP":
		base, err := p.parseRegister()
		if err != nil {
			return nil, err
		}
		return &Instruction{Kind: KindJMP, BaseR: base, Pos: pos}, nil
	case word == "JSRR":
		base, err := p.parseRegister()
		if err != nil {
			return nil, err
		}
		return &Instruction{Kind: KindJSRR, BaseR: base, Pos: pos}, nil
	case word == "JSR":
		target, err := p.parseLabelOrOffset(pos, 11)
		if err != nil {
			return nil, err
		}
		return &Instruction{Kind: KindJSR, PCTarget: target, Pos: pos}, nil
	case word == "LD" || word == "LDI" || word == "LEA" || word == "ST" || word == "STI":
		return p.parseDRAndTarget(pos, word, 9)
	case word == "LDR" || word == "STR":
		return p.parseIndexed(pos, word)
	case word == "NOT":
		dr, err := p.parseRegister()
		if err != nil {
			return nil, err
		}
		p.skipComma()
		sr, err := p.parseRegister()
		if err != nil {
			return nil, err
		}
		return &Instruction{Kind: KindNOT, DR: dr, SR: sr, Pos: pos}, nil
	case word == "RET":
		return &Instruction{Kind: KindRET, Pos: pos}, nil
	case word == "RTI":
		return &Instruction{Kind: KindRTI, Pos: pos}, nil
	case word == "TRAP":
		// The trap vector is an unsigned 8-bit field, [0, 255].
		if p.cur.Type != TokenNumber {
			return nil, p.errorf(p.cur.Pos, ErrorInvalidOperand, "expected a number, got %q", p.cur.Literal)
		}
		raw := p.cur.Literal
		p.advance()
		v, err := ParseNumericLiteral(raw)
		if err != nil {
			return nil, p.errorf(pos, ErrorOutOfRange, "%s", err)
		}
		if v < 0 || v > 0xFF {
			return nil, p.errorf(pos, ErrorOutOfRange, "trap vector %d out of range [0, 255]", v)
		}
		return &Instruction{Kind: KindTRAP, TrapVector: uint16(v), Pos: pos}, nil
	default:
		return nil, p.errorf(pos, ErrorInvalidInstruction, "unknown mnemonic %q", word)
	}
}

func kindFor(word string) Kind {
	switch word {
	case "LD":
		return KindLD
	case "LDI":
		return KindLDI
	case "LEA":
		return KindLEA
	case "ST":
		return KindST
	case "STI":
		return KindSTI
	}
	panic("unreachable kind " + word)
}

func (p *Parser) parseDRAndTarget(pos Position, word string, width int) (*Instruction, error) {
	dr, err := p.parseRegister()
	if err != nil {
		return nil, err
	}
	p.skipComma()
	target, err := p.parseLabelOrOffset(pos, width)
	if err != nil {
		return nil, err
	}
	return &Instruction{Kind: kindFor(word), DR: dr, PCTarget: target, Pos: pos}, nil
}

func (p *Parser) parseIndexed(pos Position, word string) (*Instruction, error) {
	dr, err := p.parseRegister()
	if err != nil {
		return nil, err
	}
	p.skipComma()
	base, err := p.parseRegister()
	if err != nil {
		return nil, err
	}
	p.skipComma()
	off, err := p.parseNumber16(pos, 6)
	if err != nil {
		return nil, err
	}
	kind := KindLDR
	if word == "STR" {
		kind = KindSTR
	}
	signed := int32(int16(bits.SignExtend(off, 6)))
	return &Instruction{Kind: kind, DR: dr, BaseR: base, Offset6: signed, Pos: pos}, nil
}

func (p *Parser) parseAddAnd(pos Position, word string) (*Instruction, error) {
	dr, err := p.parseRegister()
	if err != nil {
		return nil, err
	}
	p.skipComma()
	sr1, err := p.parseRegister()
	if err != nil {
		return nil, err
	}
	p.skipComma()

	kind := KindADD
	if word == "AND" {
		kind = KindAND
	}

	if p.cur.Type == TokenRegister {
		sr2, err := p.parseRegister()
		if err != nil {
			return nil, err
		}
		return &Instruction{Kind: kind, DR: dr, SR1: sr1, SR2: sr2, Pos: pos}, nil
	}

	imm, err := p.parseNumber16(pos, 5)
	if err != nil {
		return nil, err
	}
	signed := int32(int16(bits.SignExtend(imm, 5)))
	return &Instruction{Kind: kind, DR: dr, SR1: sr1, ImmMode: true, Imm5: signed, Pos: pos}, nil
}

func (p *Parser) parseBR(pos Position, word string) (*Instruction, error) {
	suffix := word[2:]
	instr := &Instruction{Kind: KindBR, Pos: pos}
	if suffix == "" {
		instr.NZP = [3]bool{true, true, true}
	} else {
		for _, c := range suffix {
			switch c {
			case 'N':
				instr.NZP[0] = true
			case 'Z':
				instr.NZP[1] = true
			case 'P':
				instr.NZP[2] = true
			}
		}
	}
	target, err := p.parseLabelOrOffset(pos, 9)
	if err != nil {
		return nil, err
	}
	instr.PCTarget = target
	return instr, nil
}

func (p *Parser) parseRegister() (int, error) {
	if p.cur.Type != TokenRegister {
		return 0, p.errorf(p.cur.Pos, ErrorInvalidOperand, "expected a register, got %q", p.cur.Literal)
	}
	idx := int(p.cur.Literal[1] - '0')
	p.advance()
	return idx, nil
}

// parseLabelOrOffset parses a label or a literal numeric offset/value. When
// the operand is a literal (not a label), its width is checked immediately
// against width bits, two's-complement; label-carried PC-relative operands
// are width-checked later by the assembler once the target address is
// known (spec.md §4.4).
func (p *Parser) parseLabelOrOffset(pos Position, width int) (Target, error) {
	switch p.cur.Type {
	case TokenLabel:
		name := p.cur.Literal
		p.advance()
		return Target{Label: name, IsLabel: true}, nil
	case TokenNumber:
		raw := p.cur.Literal
		p.advance()
		v, err := ParseNumericLiteral(raw)
		if err != nil {
			return Target{}, p.errorf(pos, ErrorOutOfRange, "%s", err)
		}
		if _, err := bits.Truncate(v, width); err != nil {
			return Target{}, p.errorf(pos, ErrorOutOfRange, "%s", err)
		}
		return Target{Value: v}, nil
	default:
		return Target{}, p.errorf(p.cur.Pos, ErrorInvalidOperand, "expected a label or number, got %q", p.cur.Literal)
	}
}

// parseNumber16 parses a plain numeric literal (no label) and checks it
// fits in width bits, two's-complement.
func (p *Parser) parseNumber16(pos Position, width int) (uint16, error) {
	if p.cur.Type != TokenNumber {
		return 0, p.errorf(p.cur.Pos, ErrorInvalidOperand, "expected a number, got %q", p.cur.Literal)
	}
	raw := p.cur.Literal
	p.advance()
	v, err := ParseNumericLiteral(raw)
	if err != nil {
		return 0, p.errorf(pos, ErrorOutOfRange, "%s", err)
	}
	truncated, err := bits.Truncate(v, width)
	if err != nil {
		return 0, p.errorf(pos, ErrorOutOfRange, "%s", err)
	}
	return truncated, nil
}
