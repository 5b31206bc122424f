package asm

import (
	"encoding/base64"
	"strings"

	"github.com/shicks/js65/chunk"
	"github.com/shicks/js65/expr"
	"github.com/shicks/js65/scope"
	"github.com/shicks/js65/srcpos"
	"github.com/shicks/js65/token"
)

// handleDirective dispatches a line whose first token is a control
// symbol to the matching directive handler.
func (a *Assembler) handleDirective(line token.Line) error {
	head := line[0]
	name := strings.ToLower(head.Text)
	args := line[1:]
	switch name {
	case ".org":
		return a.dirOrg(head.Pos, args)
	case ".reloc":
		a.mgr.Reloc()
		return nil
	case ".segment":
		return a.dirSegment(head.Pos, args)
	case ".byte":
		return a.dirBytes(args, 1)
	case ".word":
		return a.dirBytes(args, 2)
	case ".res":
		return a.dirRes(head.Pos, args)
	case ".bytestr":
		return a.dirBytestr(head.Pos, args)
	case ".free":
		return a.dirFree(head.Pos, args)
	case ".assert":
		return a.dirAssert(head.Pos, args)
	case ".scope":
		return a.dirScope(head.Pos, args, scope.KindScope)
	case ".proc":
		return a.dirProc(head.Pos, args)
	case ".endscope", ".endproc":
		return a.dirEndScope(head.Pos)
	case ".pushseg":
		return a.dirPushSeg(args)
	case ".popseg":
		if err := a.mgr.PopSeg(); err != nil {
			return a.fail(head.Pos, "%s", err)
		}
		return nil
	case ".import":
		return a.dirImportExport(head.Pos, args, true)
	case ".export":
		return a.dirImportExport(head.Pos, args, false)
	case ".segmentprefix":
		return a.dirSegmentPrefix(head.Pos, args)
	case ".move":
		return a.dirMove(head.Pos, args)
	case ".out":
		return a.dirDiag(head.Pos, args, a.opts.Diagnostics.Out)
	case ".warning":
		return a.dirDiag(head.Pos, args, a.opts.Diagnostics.Warning)
	case ".error":
		return a.dirError(head.Pos, args)
	case ".set":
		// Reached only if a ".set" appears outside assignment position;
		// treat as a syntax error rather than silently ignoring it.
		return a.fail(head.Pos, ".set requires a target symbol")
	}
	return a.fail(head.Pos, "unknown directive %q", head.Text)
}

// constExpr parses and requires toks to fold to a compile-time constant.
func (a *Assembler) constExpr(toks []token.Token) (int, error) {
	e, err := a.parseExpr(toks)
	if err != nil {
		return 0, err
	}
	v, err := expr.Evaluate(e)
	if err != nil {
		return 0, a.fail(srcposOfToks(toks), "%s", err)
	}
	if !expr.IsConst(v) {
		return 0, a.fail(srcposOfToks(toks), "expected a constant expression")
	}
	return v.Num, nil
}

func srcposOfToks(toks []token.Token) srcpos.Pos {
	if len(toks) == 0 {
		return srcpos.Pos{}
	}
	return toks[0].Pos
}

func (a *Assembler) dirOrg(pos srcpos.Pos, args []token.Token) error {
	n, err := a.constExpr(args)
	if err != nil {
		return err
	}
	a.mgr.SetOrg(n)
	return nil
}

// dirSegment handles `.segment "A"[,"B"...][:attrs]`, collecting every
// leading string-literal name before the first non-string group (the
// optional colon-prefixed attribute clause, which applies to all of
// them), the same way dirPushSeg collects its segment list.
func (a *Assembler) dirSegment(pos srcpos.Pos, args []token.Token) error {
	if len(args) == 0 || args[0].Kind != token.KindString {
		return a.fail(pos, ".segment requires a name")
	}
	var names []string
	i := 0
	for i < len(args) && args[i].Kind == token.KindString {
		names = append(names, args[i].Str)
		i++
		if i < len(args) && args[i].Kind == token.KindOp && args[i].Text == "," {
			i++
			continue
		}
		break
	}
	a.mgr.SetSegments(names)
	rest := trimLeadingColon(args[i:])
	if len(rest) == 0 {
		return nil
	}
	attrs, err := a.parseSegmentAttrs(rest)
	if err != nil {
		return err
	}
	for _, name := range names {
		a.mgr.UpdateSegment(name, attrs)
	}
	return nil
}

// parseSegmentAttrs parses a comma-separated "key=value,key=value" list.
func (a *Assembler) parseSegmentAttrs(toks []token.Token) (chunk.Attrs, error) {
	var attrs chunk.Attrs
	for _, clause := range splitArgs(toks) {
		clause = trimLeadingColon(clause)
		eq := -1
		for i, t := range clause {
			if t.Kind == token.KindOp && t.Text == "=" {
				eq = i
				break
			}
		}
		if eq < 0 || eq == 0 {
			return attrs, a.fail(srcposOfToks(clause), "malformed segment attribute")
		}
		key := strings.ToLower(clause[0].Text)
		valToks := clause[eq+1:]
		switch key {
		case "bank":
			v, err := a.constExpr(valToks)
			if err != nil {
				return attrs, err
			}
			attrs.Bank = &v
		case "size":
			v, err := a.constExpr(valToks)
			if err != nil {
				return attrs, err
			}
			attrs.Size = &v
		case "offset":
			v, err := a.constExpr(valToks)
			if err != nil {
				return attrs, err
			}
			attrs.Offset = &v
		case "mem", "memory":
			v, err := a.constExpr(valToks)
			if err != nil {
				return attrs, err
			}
			attrs.Memory = &v
		case "fill":
			v, err := a.constExpr(valToks)
			if err != nil {
				return attrs, err
			}
			b := byte(v)
			attrs.Fill = &b
		case "out":
			if len(valToks) != 1 || valToks[0].Kind != token.KindString {
				return attrs, a.fail(srcposOfToks(valToks), "out= requires a string")
			}
			s := valToks[0].Str
			attrs.Out = &s
		case "overlay":
			v, err := a.constExpr(valToks)
			if err != nil {
				return attrs, err
			}
			b := v != 0
			attrs.Overlay = &b
		case "addressing":
			if len(valToks) != 1 {
				return attrs, a.fail(srcposOfToks(valToks), "addressing= requires a single value")
			}
			s := valToks[0].Text
			attrs.Addressing = &s
		case "zp":
			v, err := a.constExpr(valToks)
			if err != nil {
				return attrs, err
			}
			b := v != 0
			attrs.ZP = &b
		default:
			return attrs, a.fail(srcposOfToks(clause), "unknown segment attribute %q", key)
		}
	}
	return attrs, nil
}

func trimLeadingColon(toks []token.Token) []token.Token {
	if len(toks) > 0 && toks[0].Kind == token.KindOp && toks[0].Text == ":" {
		return toks[1:]
	}
	return toks
}

func (a *Assembler) dirBytes(args []token.Token, size int) error {
	for _, g := range splitArgs(args) {
		if len(g) == 1 && g[0].Kind == token.KindString && size == 1 {
			for i := 0; i < len(g[0].Str); i++ {
				b := []byte{g[0].Str[i]}
				if err := a.mgr.Write(b); err != nil {
					return a.fail(g[0].Pos, "%s", err)
				}
				a.emitRef(expr.NumNode(int(b[0])), b)
			}
			continue
		}
		e, err := a.parseExpr(g)
		if err != nil {
			return err
		}
		if err := a.emitValue(e, size); err != nil {
			return a.fail(srcposOfToks(g), "%s", err)
		}
	}
	return nil
}

func (a *Assembler) dirRes(pos srcpos.Pos, args []token.Token) error {
	groups := splitArgs(args)
	count, err := a.constExpr(groups[0])
	if err != nil {
		return err
	}
	fill := 0
	if len(groups) > 1 {
		fill, err = a.constExpr(groups[1])
		if err != nil {
			return err
		}
	}
	buf := make([]byte, count)
	for i := range buf {
		buf[i] = byte(fill)
	}
	if err := a.mgr.Write(buf); err != nil {
		return a.fail(pos, "%s", err)
	}
	a.emitRef(expr.NumNode(fill), buf)
	return nil
}

func (a *Assembler) dirBytestr(pos srcpos.Pos, args []token.Token) error {
	if len(args) != 1 || args[0].Kind != token.KindString {
		return a.fail(pos, ".bytestr requires a single base64 string literal")
	}
	b, err := base64.StdEncoding.DecodeString(args[0].Str)
	if err != nil {
		return a.fail(pos, "invalid base64 in .bytestr: %s", err)
	}
	if err := a.mgr.Write(b); err != nil {
		return a.fail(pos, "%s", err)
	}
	a.emitRef(nil, b)
	return nil
}

func (a *Assembler) dirFree(pos srcpos.Pos, args []token.Token) error {
	n, err := a.constExpr(args)
	if err != nil {
		return err
	}
	if err := a.mgr.Free(n); err != nil {
		return a.fail(pos, "%s", err)
	}
	return nil
}

func (a *Assembler) dirAssert(pos srcpos.Pos, args []token.Token) error {
	groups := splitArgs(args)
	e, err := a.parseExpr(groups[0])
	if err != nil {
		return err
	}
	level := chunk.AssertError
	if len(groups) > 1 && len(groups[1]) == 1 && groups[1][0].Kind == token.KindIdent {
		if strings.EqualFold(groups[1][0].Text, "warning") {
			level = chunk.AssertWarning
		}
	}
	msg := "assertion failed"
	if len(groups) > 2 && len(groups[2]) == 1 && groups[2][0].Kind == token.KindString {
		msg = groups[2][0].Str
	}
	v, err := expr.Evaluate(e)
	if err != nil {
		return a.fail(pos, "%s", err)
	}
	if expr.IsConst(v) {
		if v.Num == 0 {
			if level == chunk.AssertError {
				return a.fail(pos, "%s", msg)
			}
			if a.opts.Diagnostics.Warning != nil {
				a.opts.Diagnostics.Warning(msg, pos)
			}
		}
		return nil
	}
	c := a.mgr.EnsureChunk()
	c.Asserts = append(c.Asserts, chunk.Assert{Expr: v, Level: level, Msg: msg})
	return nil
}

func (a *Assembler) dirScope(pos srcpos.Pos, args []token.Token, kind scope.Kind) error {
	name := ""
	if len(args) > 0 {
		if args[0].Kind != token.KindIdent {
			return a.fail(pos, "expected scope name")
		}
		name = args[0].Text
	}
	child, err := a.cur.Enter(name, kind, a.opts.ReentrantScopes)
	if err != nil {
		return a.fail(pos, "%s", err)
	}
	a.cur = child
	a.trace(1, "scope: entered %q (kind=%v)", name, kind)
	return nil
}

func (a *Assembler) dirProc(pos srcpos.Pos, args []token.Token) error {
	if len(args) == 0 || args[0].Kind != token.KindIdent {
		return a.fail(pos, ".proc requires a name")
	}
	name := args[0]
	if err := a.assignSymbol(name, a.mgr.PC(), false); err != nil {
		return err
	}
	return a.dirScope(pos, args, scope.KindProc)
}

func (a *Assembler) dirEndScope(pos srcpos.Pos) error {
	if a.cur.IsRoot() {
		return a.fail(pos, ".endscope/.endproc without matching .scope/.proc")
	}
	a.trace(1, "scope: left %q", a.cur.Name)
	a.cur = a.cur.Parent
	return nil
}

func (a *Assembler) dirPushSeg(args []token.Token) error {
	var names []string
	for _, g := range splitArgs(args) {
		if len(g) == 0 {
			continue
		}
		if g[0].Kind == token.KindString {
			names = append(names, g[0].Str)
		}
	}
	a.mgr.PushSeg(names)
	return nil
}

func (a *Assembler) dirImportExport(pos srcpos.Pos, args []token.Token, isImport bool) error {
	for _, g := range splitArgs(args) {
		if len(g) == 0 || g[0].Kind != token.KindIdent {
			return a.fail(pos, "expected a symbol name")
		}
		name := g[0].Text
		sym, err := scope.Resolve(a.cur, name, scope.ResolveOptions{AllowForwardRef: true, Ref: g[0].Pos})
		if err != nil {
			return a.fail(g[0].Pos, "%s", err)
		}
		a.symRef(sym)
		if isImport {
			a.imports = append(a.imports, globalRef{Name: name, Pos: g[0].Pos})
			if sym.Expr == nil {
				sym.Expr = expr.ImportRef(name)
			}
		} else {
			sym.Export = name
			a.exports = append(a.exports, globalRef{Name: name, Pos: g[0].Pos})
		}
	}
	return nil
}

func (a *Assembler) dirSegmentPrefix(pos srcpos.Pos, args []token.Token) error {
	if len(args) != 1 || args[0].Kind != token.KindString {
		return a.fail(pos, ".segmentprefix requires a single string")
	}
	a.mgr.SegmentPrefix(args[0].Str)
	return nil
}

func (a *Assembler) dirMove(pos srcpos.Pos, args []token.Token) error {
	groups := splitArgs(args)
	if len(groups) != 2 {
		return a.fail(pos, ".move requires exactly two arguments")
	}
	n, err := a.constExpr(groups[0])
	if err != nil {
		return err
	}
	e, err := a.parseExpr(groups[1])
	if err != nil {
		return err
	}
	node := expr.MoveNode(n, e)
	c := a.mgr.EnsureChunk()
	off := len(c.Data)
	if err := a.mgr.Write(make([]byte, n)); err != nil {
		return a.fail(pos, "%s", err)
	}
	c.Subs = append(c.Subs, chunk.Sub{Offset: off, Size: n, Expr: node})
	return nil
}

func (a *Assembler) dirDiag(pos srcpos.Pos, args []token.Token, sink func(string, srcpos.Pos)) error {
	msg := ""
	if len(args) == 1 && args[0].Kind == token.KindString {
		msg = args[0].Str
	}
	if sink != nil {
		sink(msg, pos)
	}
	return nil
}

func (a *Assembler) dirError(pos srcpos.Pos, args []token.Token) error {
	msg := "user error"
	if len(args) == 1 && args[0].Kind == token.KindString {
		msg = args[0].Str
	}
	return a.fail(pos, "%s", msg)
}
