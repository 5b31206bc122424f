package asm

import (
	"strings"

	"github.com/shicks/js65/expr"
	"github.com/shicks/js65/srcpos"
	"github.com/shicks/js65/token"
)

// exprParser is a recursive-descent parser over a flat token slice,
// mirroring db47h/ngaro/asm's hand-rolled Pratt-style expression parser
// but tiered into explicit precedence levels instead of a precedence
// table, since ca65 expression grammar is small and fixed.
type exprParser struct {
	a    *Assembler
	toks []token.Token
	pos  int
}

func (p *exprParser) peek() (token.Token, bool) {
	if p.pos >= len(p.toks) {
		return token.Token{}, false
	}
	return p.toks[p.pos], true
}

func (p *exprParser) next() (token.Token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

func (p *exprParser) atEnd() bool { return p.pos >= len(p.toks) }

// parseExpr parses a full expression out of toks, erroring if trailing
// tokens remain.
func (a *Assembler) parseExpr(toks []token.Token) (*expr.Expr, error) {
	p := &exprParser{a: a, toks: toks}
	e, err := p.parseLogOr()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		t, _ := p.peek()
		return nil, a.fail(t.Pos, "unexpected token %q in expression", tokenText(t))
	}
	return e, nil
}

func tokenText(t token.Token) string {
	switch t.Kind {
	case token.KindString:
		return t.Str
	case token.KindNum:
		return ""
	default:
		return t.Text
	}
}

func (p *exprParser) opMatches(ops ...string) (string, bool) {
	t, ok := p.peek()
	if !ok || t.Kind != token.KindOp {
		return "", false
	}
	for _, o := range ops {
		if t.Text == o {
			return o, true
		}
	}
	return "", false
}

func (p *exprParser) parseLogOr() (*expr.Expr, error) {
	x, err := p.parseLogAnd()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.opMatches("||"); !ok {
			return x, nil
		}
		p.next()
		y, err := p.parseLogAnd()
		if err != nil {
			return nil, err
		}
		x = expr.Binary(expr.LogOr, x, y)
	}
}

func (p *exprParser) parseLogAnd() (*expr.Expr, error) {
	x, err := p.parseCompare()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.opMatches("&&"); !ok {
			return x, nil
		}
		p.next()
		y, err := p.parseCompare()
		if err != nil {
			return nil, err
		}
		x = expr.Binary(expr.LogAnd, x, y)
	}
}

var compareOps = map[string]expr.Op{
	"=": expr.CmpEq, "==": expr.CmpEq, "<>": expr.CmpNe, "!=": expr.CmpNe,
	"<": expr.CmpLt, ">": expr.CmpGt, "<=": expr.CmpLe, ">=": expr.CmpGe,
}

func (p *exprParser) parseCompare() (*expr.Expr, error) {
	x, err := p.parseBitOr()
	if err != nil {
		return nil, err
	}
	for {
		o, ok := p.opMatches("==", "!=", "<>", "<=", ">=")
		if !ok {
			return x, nil
		}
		p.next()
		y, err := p.parseBitOr()
		if err != nil {
			return nil, err
		}
		x = expr.Binary(compareOps[o], x, y)
	}
}

func (p *exprParser) parseBitOr() (*expr.Expr, error) {
	x, err := p.parseBitXor()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.opMatches("|"); !ok {
			return x, nil
		}
		p.next()
		y, err := p.parseBitXor()
		if err != nil {
			return nil, err
		}
		x = expr.Binary(expr.Or, x, y)
	}
}

func (p *exprParser) parseBitXor() (*expr.Expr, error) {
	x, err := p.parseBitAnd()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.opMatches("^"); !ok {
			return x, nil
		}
		p.next()
		y, err := p.parseBitAnd()
		if err != nil {
			return nil, err
		}
		x = expr.Binary(expr.Xor, x, y)
	}
}

func (p *exprParser) parseBitAnd() (*expr.Expr, error) {
	x, err := p.parseShift()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.opMatches("&"); !ok {
			return x, nil
		}
		p.next()
		y, err := p.parseShift()
		if err != nil {
			return nil, err
		}
		x = expr.Binary(expr.And, x, y)
	}
}

func (p *exprParser) parseShift() (*expr.Expr, error) {
	x, err := p.parseAddSub()
	if err != nil {
		return nil, err
	}
	for {
		o, ok := p.opMatches("<<", ">>")
		if !ok {
			return x, nil
		}
		p.next()
		y, err := p.parseAddSub()
		if err != nil {
			return nil, err
		}
		op := expr.Shl
		if o == ">>" {
			op = expr.Shr
		}
		x = expr.Binary(op, x, y)
	}
}

func (p *exprParser) parseAddSub() (*expr.Expr, error) {
	x, err := p.parseMulDiv()
	if err != nil {
		return nil, err
	}
	for {
		o, ok := p.opMatches("+", "-")
		if !ok {
			return x, nil
		}
		p.next()
		y, err := p.parseMulDiv()
		if err != nil {
			return nil, err
		}
		op := expr.Add
		if o == "-" {
			op = expr.Sub
		}
		x = expr.Binary(op, x, y)
	}
}

func (p *exprParser) parseMulDiv() (*expr.Expr, error) {
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		o, ok := p.opMatches("*", "/", "%", ".mod")
		if !ok {
			return x, nil
		}
		p.next()
		y, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		var op expr.Op
		switch o {
		case "*":
			op = expr.Mul
		case "/":
			op = expr.Div
		default:
			op = expr.Mod
		}
		x = expr.Binary(op, x, y)
	}
}

var unaryOps = map[string]expr.Op{
	"-": expr.Neg, "!": expr.LogNot, "<": expr.LoByte, ">": expr.HiByte,
	"^": expr.Bank, "~": expr.BitNot,
}

func (p *exprParser) parseUnary() (*expr.Expr, error) {
	if t, ok := p.peek(); ok && t.Kind == token.KindOp {
		// A lone "-" with nothing after it is a relative backref (the
		// "-" label form), not a unary negation missing its operand.
		if t.Text == "-" && p.pos+1 >= len(p.toks) {
			return p.parsePrimary()
		}
		if op, ok := unaryOps[t.Text]; ok {
			p.next()
			x, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return expr.Unary(op, x), nil
		}
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (*expr.Expr, error) {
	t, ok := p.next()
	if !ok {
		return nil, p.a.fail(srcposOf(p), "unexpected end of expression")
	}
	switch t.Kind {
	case token.KindNum:
		return expr.NumNode(t.Num), nil
	case token.KindString:
		return stringExpr(t.Str), nil
	case token.KindGroup:
		sub := &exprParser{a: p.a, toks: t.Group}
		e, err := sub.parseLogOr()
		if err != nil {
			return nil, err
		}
		if !sub.atEnd() {
			bad, _ := sub.peek()
			return nil, p.a.fail(bad.Pos, "unexpected token %q in parenthesized expression", tokenText(bad))
		}
		return e, nil
	case token.KindOp:
		if t.Text == "*" {
			return p.a.mgr.PC(), nil
		}
		if strings.HasPrefix(t.Text, ":") && t.Text != ":" {
			return p.a.parsePositionalRef(t)
		}
		if allSameChar(t.Text, '+') || allSameChar(t.Text, '-') {
			return p.a.parseRelativeRef(t)
		}
	case token.KindIdent:
		return p.parseIdentRef(t)
	}
	return nil, p.a.fail(t.Pos, "unexpected token %q in expression", tokenText(t))
}

// stringExpr folds a single-character string literal to its byte value,
// the way ca65 treats a quoted character as a numeric constant; longer
// strings are left for directives that consume token.KindString
// directly (.byte, .bytestr) rather than through expression parsing.
func stringExpr(s string) *expr.Expr {
	if len(s) == 1 {
		return expr.NumNode(int(s[0]))
	}
	return expr.NumNode(0)
}

func srcposOf(p *exprParser) (pos srcpos.Pos) {
	if p.pos > 0 && p.pos-1 < len(p.toks) {
		return p.toks[p.pos-1].Pos
	}
	if len(p.toks) > 0 {
		return p.toks[0].Pos
	}
	return pos
}

// splitArgs splits toks on top-level "," operators, as directive and
// instruction argument lists require.
func splitArgs(toks []token.Token) [][]token.Token {
	var out [][]token.Token
	start := 0
	for i, t := range toks {
		if t.Kind == token.KindOp && t.Text == "," {
			out = append(out, toks[start:i])
			start = i + 1
		}
	}
	out = append(out, toks[start:])
	return out
}

func identIsSet(s string) bool { return strings.EqualFold(s, ".set") }
