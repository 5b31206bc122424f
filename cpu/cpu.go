// Package cpu provides the MOS 6502 opcode table the assembler core
// drives when encoding instructions.
//
// Supported addressing-mode tags: imp (implied), acc (accumulator), imm
// (immediate), zpg/zpx/zpy (zero-page variants), abs/abx/aby (absolute
// variants), ind/inx/iny (indirect variants), rel (relative branch).
// The pseudo-modes the assembler core resolves before consulting this
// table (add, a,x, a,y) never appear as keys here.
package cpu

import "github.com/pkg/errors"

// Mode identifies an addressing mode.
type Mode string

// Addressing-mode tags produced by the assembler's argument parser.
const (
	Implied     Mode = "imp"
	Accumulator Mode = "acc"
	Immediate   Mode = "imm"
	ZeroPage    Mode = "zpg"
	ZeroPageX   Mode = "zpx"
	ZeroPageY   Mode = "zpy"
	Absolute    Mode = "abs"
	AbsoluteX   Mode = "abx"
	AbsoluteY   Mode = "aby"
	Indirect    Mode = "ind"
	IndirectX   Mode = "inx"
	IndirectY   Mode = "iny"
	Relative    Mode = "rel"
)

// argLen is the operand byte count for each addressing mode, keyed by
// mode tag.
var argLen = map[Mode]int{
	Implied:     0,
	Accumulator: 0,
	Immediate:   1,
	ZeroPage:    1,
	ZeroPageX:   1,
	ZeroPageY:   1,
	Absolute:    2,
	AbsoluteX:   2,
	AbsoluteY:   2,
	Indirect:    2,
	IndirectX:   1,
	IndirectY:   1,
	Relative:    1,
}

// ArgLen returns the operand byte count for the given addressing mode.
func ArgLen(mode Mode) int {
	return argLen[mode]
}

// entry is one mnemonic's mode -> opcode mapping.
type entry map[Mode]byte

// Cpu is the NMOS 6502 mnemonic -> addressing-mode -> opcode table.
// Mnemonics are stored lowercased; lookups should lowercase first.
type Cpu struct {
	ops map[string]entry
}

// New returns the standard NMOS 6502 instruction set.
func New() *Cpu {
	return &Cpu{ops: table}
}

// Modes returns the mapping from addressing-mode tag to opcode byte for
// the given mnemonic, or an error if the mnemonic is unknown.
func (c *Cpu) Modes(mnemonic string) (map[Mode]byte, error) {
	e, ok := c.ops[mnemonic]
	if !ok {
		return nil, errors.Errorf("unknown mnemonic %q", mnemonic)
	}
	out := make(map[Mode]byte, len(e))
	for m, op := range e {
		out[m] = op
	}
	return out, nil
}

// Opcode returns the opcode byte for a (mnemonic, mode) pair and reports
// whether that combination exists.
func (c *Cpu) Opcode(mnemonic string, mode Mode) (byte, bool) {
	e, ok := c.ops[mnemonic]
	if !ok {
		return 0, false
	}
	op, ok := e[mode]
	return op, ok
}

// HasMode reports whether the mnemonic supports the given addressing mode.
func (c *Cpu) HasMode(mnemonic string, mode Mode) bool {
	_, ok := c.Opcode(mnemonic, mode)
	return ok
}

// table is the full table of official NMOS 6502 (mnemonic, mode, opcode)
// triples, adapted from the (opsym, Mode, opcode, length) rows of
// beevik/go6502's instructions.go data table, filtered down to the NMOS
// subset (no 65C02-only opcodes: no BRA/PHX/PHY/PLX/PLY/STZ/TRB/TSB, no
// (zp) BIT imm/zpx/abx, no (zp) indirect addressing for ADC/AND/CMP/EOR/
// LDA/ORA/SBC/STA, no ASL/DEC/INC/LSR/ROL/ROR accumulator-via-memory
// CMOS quirks) and collapsed into this package's mode-tag vocabulary.
var table = map[string]entry{
	"adc": {Immediate: 0x69, ZeroPage: 0x65, ZeroPageX: 0x75, Absolute: 0x6D, AbsoluteX: 0x7D, AbsoluteY: 0x79, IndirectX: 0x61, IndirectY: 0x71},
	"and": {Immediate: 0x29, ZeroPage: 0x25, ZeroPageX: 0x35, Absolute: 0x2D, AbsoluteX: 0x3D, AbsoluteY: 0x39, IndirectX: 0x21, IndirectY: 0x31},
	"asl": {Accumulator: 0x0A, ZeroPage: 0x06, ZeroPageX: 0x16, Absolute: 0x0E, AbsoluteX: 0x1E},
	"bcc": {Relative: 0x90},
	"bcs": {Relative: 0xB0},
	"beq": {Relative: 0xF0},
	"bit": {ZeroPage: 0x24, Absolute: 0x2C},
	"bmi": {Relative: 0x30},
	"bne": {Relative: 0xD0},
	"bpl": {Relative: 0x10},
	"brk": {Implied: 0x00},
	"bvc": {Relative: 0x50},
	"bvs": {Relative: 0x70},
	"clc": {Implied: 0x18},
	"cld": {Implied: 0xD8},
	"cli": {Implied: 0x58},
	"clv": {Implied: 0xB8},
	"cmp": {Immediate: 0xC9, ZeroPage: 0xC5, ZeroPageX: 0xD5, Absolute: 0xCD, AbsoluteX: 0xDD, AbsoluteY: 0xD9, IndirectX: 0xC1, IndirectY: 0xD1},
	"cpx": {Immediate: 0xE0, ZeroPage: 0xE4, Absolute: 0xEC},
	"cpy": {Immediate: 0xC0, ZeroPage: 0xC4, Absolute: 0xCC},
	"dec": {ZeroPage: 0xC6, ZeroPageX: 0xD6, Absolute: 0xCE, AbsoluteX: 0xDE},
	"dex": {Implied: 0xCA},
	"dey": {Implied: 0x88},
	"eor": {Immediate: 0x49, ZeroPage: 0x45, ZeroPageX: 0x55, Absolute: 0x4D, AbsoluteX: 0x5D, AbsoluteY: 0x59, IndirectX: 0x41, IndirectY: 0x51},
	"inc": {ZeroPage: 0xE6, ZeroPageX: 0xF6, Absolute: 0xEE, AbsoluteX: 0xFE},
	"inx": {Implied: 0xE8},
	"iny": {Implied: 0xC8},
	"jmp": {Absolute: 0x4C, Indirect: 0x6C},
	"jsr": {Absolute: 0x20},
	"lda": {Immediate: 0xA9, ZeroPage: 0xA5, ZeroPageX: 0xB5, Absolute: 0xAD, AbsoluteX: 0xBD, AbsoluteY: 0xB9, IndirectX: 0xA1, IndirectY: 0xB1},
	"ldx": {Immediate: 0xA2, ZeroPage: 0xA6, ZeroPageY: 0xB6, Absolute: 0xAE, AbsoluteY: 0xBE},
	"ldy": {Immediate: 0xA0, ZeroPage: 0xA4, ZeroPageX: 0xB4, Absolute: 0xAC, AbsoluteX: 0xBC},
	"lsr": {Accumulator: 0x4A, ZeroPage: 0x46, ZeroPageX: 0x56, Absolute: 0x4E, AbsoluteX: 0x5E},
	"nop": {Implied: 0xEA},
	"ora": {Immediate: 0x09, ZeroPage: 0x05, ZeroPageX: 0x15, Absolute: 0x0D, AbsoluteX: 0x1D, AbsoluteY: 0x19, IndirectX: 0x01, IndirectY: 0x11},
	"pha": {Implied: 0x48},
	"php": {Implied: 0x08},
	"pla": {Implied: 0x68},
	"plp": {Implied: 0x28},
	"rol": {Accumulator: 0x2A, ZeroPage: 0x26, ZeroPageX: 0x36, Absolute: 0x2E, AbsoluteX: 0x3E},
	"ror": {Accumulator: 0x6A, ZeroPage: 0x66, ZeroPageX: 0x76, Absolute: 0x6E, AbsoluteX: 0x7E},
	"rti": {Implied: 0x40},
	"rts": {Implied: 0x60},
	"sbc": {Immediate: 0xE9, ZeroPage: 0xE5, ZeroPageX: 0xF5, Absolute: 0xED, AbsoluteX: 0xFD, AbsoluteY: 0xF9, IndirectX: 0xE1, IndirectY: 0xF1},
	"sec": {Implied: 0x38},
	"sed": {Implied: 0xF8},
	"sei": {Implied: 0x78},
	"sta": {ZeroPage: 0x85, ZeroPageX: 0x95, Absolute: 0x8D, AbsoluteX: 0x9D, AbsoluteY: 0x99, IndirectX: 0x81, IndirectY: 0x91},
	"stx": {ZeroPage: 0x86, ZeroPageY: 0x96, Absolute: 0x8E},
	"sty": {ZeroPage: 0x84, ZeroPageX: 0x94, Absolute: 0x8C},
	"tax": {Implied: 0xAA},
	"tay": {Implied: 0xA8},
	"tsx": {Implied: 0xBA},
	"txa": {Implied: 0x8A},
	"txs": {Implied: 0x9A},
	"tya": {Implied: 0x98},
}
