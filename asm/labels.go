package asm

import (
	"strconv"
	"strings"

	"github.com/shicks/js65/expr"
	"github.com/shicks/js65/scope"
	"github.com/shicks/js65/token"
)

// bindLabel handles a line classified as a label definition: a plain
// "name:"/"@name:", or one of the bare positional spellings (":",
// "+"/"++"/..., "-"/"--"/...).
func (a *Assembler) bindLabel(line token.Line) error {
	if len(line) == 1 {
		return a.bindPositional(line[0])
	}
	name := line[0]
	switch {
	case name.Kind == token.KindIdent && scope.IsCheapName(name.Text):
		a.cheap.Bind(name.Text, a.mgr.PC())
		return nil
	case name.Kind == token.KindIdent:
		return a.assignSymbol(name, a.mgr.PC(), false)
	default:
		return a.fail(name.Pos, "invalid label %q", tokenText(name))
	}
}

// bindPositional handles the bare single-token label spellings: ":",
// "+"/"++"/..., "-"/"--"/....
func (a *Assembler) bindPositional(t token.Token) error {
	switch {
	case t.Text == ":":
		a.anonPast = append(a.anonPast, a.mgr.PC())
		if len(a.anonFwdQueue) > 0 {
			sym := a.anonFwdQueue[0]
			a.anonFwdQueue = a.anonFwdQueue[1:]
			sym.Expr = a.mgr.PC()
		}
		return nil
	case allSameChar(t.Text, '+'):
		n := len(t.Text)
		if sym := a.relFwd[n-1]; sym != nil {
			sym.Expr = a.mgr.PC()
			a.relFwd[n-1] = nil
		}
		return nil
	case allSameChar(t.Text, '-'):
		n := len(t.Text)
		a.relBack[n-1] = a.mgr.PC()
		return nil
	}
	return a.fail(t.Pos, "invalid label %q", t.Text)
}

func allSameChar(s string, c byte) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] != c {
			return false
		}
	}
	return true
}

// bindRts records the current PC as the next rts anonymous-label
// target, called from instruction encoding just before an `rts`
// mnemonic's byte is written.
func (a *Assembler) bindRts() {
	a.rtsPast = append(a.rtsPast, a.mgr.PC())
	if len(a.rtsFwdQueue) > 0 {
		sym := a.rtsFwdQueue[0]
		a.rtsFwdQueue = a.rtsFwdQueue[1:]
		sym.Expr = a.mgr.PC()
	}
}

// parseIdentRef resolves an identifier token encountered in expression
// position: a cheap-local "@name", a qualified/unqualified named
// symbol, or one of the positional reference spellings when a tokenizer
// chooses to fold ":+", ":-", ":>rts" etc. into a single KindIdent token
// rather than a KindOp one. Plain named lookups, the common case, fall
// through to the default branch.
func (p *exprParser) parseIdentRef(t token.Token) (*expr.Expr, error) {
	a := p.a
	name := t.Text
	switch {
	case scope.IsCheapName(name):
		sym := a.cheap.Resolve(name, scope.ResolveOptions{AllowForwardRef: true, Ref: t.Pos})
		return a.symRef(sym), nil
	case strings.HasPrefix(name, ":"):
		return a.parsePositionalRef(t)
	case allSameChar(name, '+'), allSameChar(name, '-'):
		return a.parseRelativeRef(t)
	default:
		sym, err := scope.Resolve(a.cur, name, scope.ResolveOptions{AllowForwardRef: true, Ref: t.Pos})
		if err != nil {
			return nil, a.fail(t.Pos, "%s", err)
		}
		return a.symRef(sym), nil
	}
}

// parsePositionalRef handles anonymous (":+n", ":++", ":-n", ":--")
// and rts-relative (":>rts", ":<<rts") reference spellings.
func (a *Assembler) parsePositionalRef(t token.Token) (*expr.Expr, error) {
	body := strings.TrimPrefix(t.Text, ":")
	if strings.HasSuffix(body, "rts") {
		dir := body[0]
		extra := len(body) - len("rts") - 1
		if extra < 0 {
			extra = 0
		}
		n := extra + 1
		if dir == '>' {
			return a.rtsForward(n), nil
		}
		return a.rtsBackward(n, t)
	}
	if len(body) == 0 {
		return nil, a.fail(t.Pos, "invalid anonymous reference %q", t.Text)
	}
	dir := body[0]
	if allSameChar(body, dir) {
		n := len(body)
		if dir == '+' {
			return a.anonForward(n), nil
		}
		return a.anonBackward(n, t)
	}
	// Numeric count form: ":+3" / ":-2".
	n, err := strconv.Atoi(body[1:])
	if err != nil {
		return nil, a.fail(t.Pos, "invalid anonymous reference %q", t.Text)
	}
	if dir == '+' {
		return a.anonForward(n), nil
	}
	return a.anonBackward(n, t)
}

func (a *Assembler) anonForward(n int) *expr.Expr {
	for len(a.anonFwdQueue) < n {
		a.anonFwdQueue = append(a.anonFwdQueue, a.newPositional())
	}
	return a.symRef(a.anonFwdQueue[n-1])
}

func (a *Assembler) anonBackward(n int, t token.Token) (*expr.Expr, error) {
	if n > len(a.anonPast) {
		return nil, a.fail(t.Pos, "bad anonymous backref %q", t.Text)
	}
	return a.anonPast[len(a.anonPast)-n], nil
}

func (a *Assembler) rtsForward(n int) *expr.Expr {
	for len(a.rtsFwdQueue) < n {
		a.rtsFwdQueue = append(a.rtsFwdQueue, a.newPositional())
	}
	return a.symRef(a.rtsFwdQueue[n-1])
}

func (a *Assembler) rtsBackward(n int, t token.Token) (*expr.Expr, error) {
	if n > len(a.rtsPast) {
		return nil, a.fail(t.Pos, "bad rts backref %q", t.Text)
	}
	return a.rtsPast[len(a.rtsPast)-n], nil
}

// parseRelativeRef handles the "+"/"++"/... and "-"/"--"/... reference
// spellings, one single-slot placeholder per run length.
func (a *Assembler) parseRelativeRef(t token.Token) (*expr.Expr, error) {
	n := len(t.Text)
	if t.Text[0] == '+' {
		sym := a.relFwd[n-1]
		if sym == nil {
			sym = a.newPositional()
			a.relFwd[n-1] = sym
		}
		return a.symRef(sym), nil
	}
	e := a.relBack[n-1]
	if e == nil {
		return nil, a.fail(t.Pos, "bad relative backref %q", t.Text)
	}
	return e, nil
}
