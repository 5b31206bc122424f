package asm

import (
	"strings"

	"github.com/shicks/js65/chunk"
	"github.com/shicks/js65/cpu"
	"github.com/shicks/js65/expr"
	"github.com/shicks/js65/srcpos"
	"github.com/shicks/js65/token"
)

// argKind is the syntactic shape of an instruction operand, before
// resolveMode narrows a pseudo-mode like add/a,x/a,y down to a
// concrete cpu.Mode using the operand's evaluated size.
type argKind int

const (
	argImp argKind = iota
	argAcc
	argImm
	argInd
	argInx
	argIny
	argAdd
	argAX
	argAY
)

// Arg is a parsed instruction operand.
type Arg struct {
	Kind      argKind
	Expr      *expr.Expr
	ForceSize int // 0 = unforced, else 1 or 2 from a "z:"/"a:" prefix.
}

// parseArg classifies and parses an instruction's operand token list.
func (a *Assembler) parseArg(toks []token.Token) (*Arg, error) {
	if len(toks) == 0 {
		return &Arg{Kind: argImp}, nil
	}

	pos := toks[0].Pos
	force := 0
	if len(toks) >= 2 && toks[0].Kind == token.KindIdent && toks[1].Kind == token.KindOp && toks[1].Text == ":" {
		switch strings.ToLower(toks[0].Text) {
		case "z":
			force = 1
		case "a":
			force = 2
		}
		if force != 0 {
			toks = toks[2:]
		}
	}

	if len(toks) == 1 && toks[0].Kind == token.KindIdent && strings.EqualFold(toks[0].Text, "a") {
		if force != 0 {
			return nil, a.fail(pos, "cannot force direct/absolute on accumulator operand")
		}
		return &Arg{Kind: argAcc}, nil
	}

	if toks[0].Kind == token.KindOp && toks[0].Text == "#" {
		if force != 0 {
			return nil, a.fail(pos, "cannot force direct/absolute on immediate operand")
		}
		e, err := a.parseExpr(toks[1:])
		if err != nil {
			return nil, err
		}
		return &Arg{Kind: argImm, Expr: foldOrSelf(e)}, nil
	}

	if toks[0].Kind == token.KindGroup && (!toks[0].Bracket || a.opts.AllowBrackets) {
		return a.parseIndirectArg(toks)
	}

	p := &exprParser{a: a, toks: toks}
	e, err := p.parseLogOr()
	if err != nil {
		return nil, err
	}
	kind := argAdd
	if !p.atEnd() {
		comma, ok := p.peek()
		if !ok || comma.Kind != token.KindOp || comma.Text != "," {
			bad, _ := p.peek()
			return nil, a.fail(bad.Pos, "unexpected token %q in operand", tokenText(bad))
		}
		p.next()
		idx, ok := p.peek()
		if !ok || idx.Kind != token.KindIdent {
			return nil, a.fail(comma.Pos, "expected X or Y after ','")
		}
		p.next()
		switch strings.ToLower(idx.Text) {
		case "x":
			kind = argAX
		case "y":
			kind = argAY
		default:
			return nil, a.fail(idx.Pos, "expected X or Y after ',', got %q", idx.Text)
		}
		if !p.atEnd() {
			bad, _ := p.peek()
			return nil, a.fail(bad.Pos, "unexpected token %q in operand", tokenText(bad))
		}
	}
	return &Arg{Kind: kind, Expr: applyForceSize(foldOrSelf(e), force), ForceSize: force}, nil
}

// parseIndirectArg handles "(addr)", "(addr,X)" and "(addr),Y" (and
// the bracket spellings, when enabled).
func (a *Assembler) parseIndirectArg(toks []token.Token) (*Arg, error) {
	group := toks[0]
	rest := toks[1:]

	inner := group.Group
	kind := argInd
	if n := len(inner); n >= 2 {
		last := inner[n-1]
		comma := inner[n-2]
		if last.Kind == token.KindIdent && strings.EqualFold(last.Text, "x") &&
			comma.Kind == token.KindOp && comma.Text == "," {
			kind = argInx
			inner = inner[:n-2]
		}
	}
	if kind == argInd && len(rest) >= 2 &&
		rest[0].Kind == token.KindOp && rest[0].Text == "," &&
		rest[1].Kind == token.KindIdent && strings.EqualFold(rest[1].Text, "y") {
		kind = argIny
		rest = rest[2:]
	}
	if len(rest) != 0 {
		return nil, a.fail(rest[0].Pos, "unexpected token %q after indirect operand", tokenText(rest[0]))
	}
	e, err := a.parseExpr(inner)
	if err != nil {
		return nil, err
	}
	return &Arg{Kind: kind, Expr: foldOrSelf(e)}, nil
}

func foldOrSelf(e *expr.Expr) *expr.Expr {
	if v, err := expr.Evaluate(e); err == nil {
		return v
	}
	return e
}

// applyForceSize stamps an explicit "z:"/"a:" size onto e, leaving it
// untouched when no override was given.
func applyForceSize(e *expr.Expr, force int) *expr.Expr {
	if force == 0 {
		return e
	}
	return expr.ForceSize(e, force)
}

// resolveMode narrows arg's syntactic kind to a concrete cpu.Mode for
// mnemonic, preferring the smallest encoding the mnemonic supports.
func resolveMode(c *cpu.Cpu, mnemonic string, arg *Arg) (cpu.Mode, error) {
	switch arg.Kind {
	case argImp:
		return cpu.Implied, nil
	case argAcc:
		return cpu.Accumulator, nil
	case argImm:
		return cpu.Immediate, nil
	case argInd:
		return cpu.Indirect, nil
	case argInx:
		return cpu.IndirectX, nil
	case argIny:
		return cpu.IndirectY, nil
	}

	size := arg.ForceSize
	if size == 0 {
		size = arg.Expr.Meta.Size
		if size == 0 {
			size = 2
		}
	}

	switch arg.Kind {
	case argAdd:
		if size == 1 && c.HasMode(mnemonic, cpu.ZeroPage) {
			return cpu.ZeroPage, nil
		}
		if c.HasMode(mnemonic, cpu.Absolute) {
			return cpu.Absolute, nil
		}
		if c.HasMode(mnemonic, cpu.Relative) {
			return cpu.Relative, nil
		}
	case argAX:
		if size == 1 && c.HasMode(mnemonic, cpu.ZeroPageX) {
			return cpu.ZeroPageX, nil
		}
		if c.HasMode(mnemonic, cpu.AbsoluteX) {
			return cpu.AbsoluteX, nil
		}
	case argAY:
		if size == 1 && c.HasMode(mnemonic, cpu.ZeroPageY) {
			return cpu.ZeroPageY, nil
		}
		if c.HasMode(mnemonic, cpu.AbsoluteY) {
			return cpu.AbsoluteY, nil
		}
	}
	return "", errNoMode
}

var errNoMode = &modeError{}

type modeError struct{}

func (*modeError) Error() string { return "no matching addressing mode" }

// handleInstruction parses and encodes one instruction line.
func (a *Assembler) handleInstruction(line token.Line) error {
	mnem := strings.ToLower(line[0].Text)
	arg, err := a.parseArg(line[1:])
	if err != nil {
		return err
	}
	return a.encodeInstruction(line[0].Pos, mnem, arg)
}

func (a *Assembler) encodeInstruction(pos srcpos.Pos, mnem string, arg *Arg) error {
	mode, err := resolveMode(a.cpu, mnem, arg)
	if err != nil {
		return a.fail(pos, "no addressing mode of %s matches this operand", mnem)
	}
	opcode, ok := a.cpu.Opcode(mnem, mode)
	if !ok {
		return a.fail(pos, "unknown mnemonic %q", mnem)
	}
	if mnem == "rts" {
		a.bindRts()
	}
	if err := a.mgr.Write([]byte{opcode}); err != nil {
		return a.fail(pos, "%s", err)
	}
	argLen := cpu.ArgLen(mode)
	if argLen == 0 {
		return nil
	}
	if mode == cpu.Relative {
		return a.encodeRelative(pos, arg.Expr)
	}
	return a.emitValue(arg.Expr, argLen)
}

// encodeRelative computes a branch displacement against the PC
// immediately following the two-byte instruction.
func (a *Assembler) encodeRelative(pos srcpos.Pos, target *expr.Expr) error {
	c := a.mgr.Active()
	if c == nil {
		c = a.mgr.EnsureChunk()
	}
	base := c.PCAt(1)
	delta := expr.Binary(expr.Sub, target, base)
	v, err := expr.Evaluate(delta)
	if err != nil {
		return a.fail(pos, "%s", err)
	}
	if expr.IsConst(v) {
		if v.Num < -128 || v.Num > 127 {
			return a.fail(pos, "branch out of range (%d)", v.Num)
		}
		b := []byte{byte(int8(v.Num))}
		if err := a.mgr.Write(b); err != nil {
			return a.fail(pos, "%s", err)
		}
		a.emitRef(v, b)
		return nil
	}
	off := len(c.Data)
	b := []byte{0}
	if err := a.mgr.Write(b); err != nil {
		return a.fail(pos, "%s", err)
	}
	c.Subs = append(c.Subs, chunk.Sub{Offset: off, Size: 1, Expr: delta})
	a.emitRef(v, b)
	return nil
}

// emitValue writes e's little-endian bytes directly if it folds to a
// constant, otherwise a zero-filled placeholder plus a deferred Sub.
func (a *Assembler) emitValue(e *expr.Expr, size int) error {
	v, err := expr.Evaluate(e)
	if err != nil {
		return a.fail(e.Source, "%s", err)
	}
	if expr.IsConst(v) {
		b := leBytes(v.Num, size)
		if err := a.mgr.Write(b); err != nil {
			return a.fail(e.Source, "%s", err)
		}
		a.emitRef(v, b)
		return nil
	}
	c := a.mgr.EnsureChunk()
	off := len(c.Data)
	b := make([]byte, size)
	if err := a.mgr.Write(b); err != nil {
		return a.fail(e.Source, "%s", err)
	}
	c.Subs = append(c.Subs, chunk.Sub{Offset: off, Size: size, Expr: v})
	a.emitRef(v, b)
	return nil
}

func leBytes(v, size int) []byte {
	b := make([]byte, size)
	for i := 0; i < size; i++ {
		b[i] = byte(v >> uint(8*i))
	}
	return b
}
