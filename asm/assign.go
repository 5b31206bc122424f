package asm

import (
	"github.com/shicks/js65/expr"
	"github.com/shicks/js65/scope"
	"github.com/shicks/js65/token"
)

// assignSymbol binds name (an ordinary label or a "="/":="/".set"
// assignment target) to value, enforcing that a symbol's mutability
// never flips between its first and a later assignment and that an
// immutable symbol is never redefined.
func (a *Assembler) assignSymbol(name token.Token, value *expr.Expr, mut bool) error {
	if scope.IsCheapName(name.Text) {
		if mut {
			return a.fail(name.Pos, "cheap local %s cannot be mutable", name.Text)
		}
		a.cheap.Bind(name.Text, value)
		return nil
	}

	sym, err := scope.Resolve(a.cur, name.Text, scope.ResolveOptions{AllowForwardRef: true, Ref: name.Pos})
	if err != nil {
		return a.fail(name.Pos, "%s", err)
	}

	if kind, seen := a.symKind[sym]; seen {
		if kind != mut {
			return a.fail(name.Pos, "cannot change mutability of %s", name.Text)
		}
		if !mut && sym.Defined() {
			return a.fail(name.Pos, "redefining symbol %s", name.Text)
		}
	} else {
		a.symKind[sym] = mut
	}

	sym.Expr = value
	a.symRef(sym)

	if !mut {
		// A non-cheap label definition clears the cheap-local scope.
		if err := a.cheap.Clear(); err != nil {
			return a.fail(name.Pos, "%s", err)
		}
	}

	if re := a.opts.RefExtractor; re != nil {
		if mut && re.Assign != nil {
			if v, err := expr.Evaluate(value); err == nil && expr.IsConst(v) {
				re.Assign(name.Text, v.Num)
			}
		}
		if !mut && re.Label != nil {
			re.Label(name.Text, 0, a.mgr.ActiveSegments())
		}
	}
	return nil
}

// handleAssignment dispatches a line classified as "name = expr",
// "name := expr" or "name .set expr".
func (a *Assembler) handleAssignment(line token.Line) error {
	name := line[0]
	op := line[1]
	mut := op.Kind == token.KindControl || op.Text == ":="
	value, err := a.parseExpr(line[2:])
	if err != nil {
		return err
	}
	folded, err := expr.Evaluate(value)
	if err != nil {
		return a.fail(name.Pos, "%s", err)
	}
	return a.assignSymbol(name, folded, mut)
}
