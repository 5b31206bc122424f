package expr

import "github.com/pkg/errors"

// Evaluate reduces e bottom-up: any node whose children are all
// constant Num folds to a constant Num; relative-PC nodes propagate,
// and a subtraction of two relative nodes in the same chunk collapses to
// a constant delta. Anything that cannot be folded is returned as-is
// (partial evaluation), never an error — Evaluate only errors on an
// operator applied to operand shapes it cannot make sense of at all
// (e.g. division by a known-zero constant).
func Evaluate(e *Expr) (*Expr, error) {
	if e == nil {
		return nil, nil
	}
	switch e.Op {
	case Num, Sym, Import:
		return e, nil
	case Move:
		x, err := Evaluate(e.Kids[0])
		if err != nil {
			return nil, err
		}
		if x == e.Kids[0] {
			return e, nil
		}
		return &Expr{Op: Move, MoveLen: e.MoveLen, Kids: []*Expr{x}, Meta: e.Meta, Source: e.Source}, nil
	}

	kids := make([]*Expr, len(e.Kids))
	allConst := true
	for i, k := range e.Kids {
		v, err := Evaluate(k)
		if err != nil {
			return nil, err
		}
		kids[i] = v
		if v.Op != Num {
			allConst = false
		}
	}

	if len(kids) == 1 {
		return evalUnary(e, kids[0], allConst)
	}
	return evalBinary(e, kids[0], kids[1], allConst)
}

func evalUnary(e *Expr, x *Expr, xConst bool) (*Expr, error) {
	if !xConst || x.Meta.Rel {
		return rebuild(e, x, nil), nil
	}
	v := x.Num
	switch e.Op {
	case Neg:
		return NumNode(-v), nil
	case LogNot:
		return NumNode(boolInt(v == 0)), nil
	case BitNot:
		return NumNode(^v), nil
	case LoByte:
		return ForceSize(NumNode(v&0xFF), 1), nil
	case HiByte:
		return ForceSize(NumNode((v>>8)&0xFF), 1), nil
	case Bank:
		return ForceSize(NumNode((v>>16)&0xFF), 1), nil
	}
	return nil, errors.Errorf("unknown unary operator %v", e.Op)
}

func evalBinary(e *Expr, x, y *Expr, bothConst bool) (*Expr, error) {
	// Relative-PC handling: same-chunk subtraction collapses to a
	// constant delta.
	if e.Op == Sub && x.Op == Num && y.Op == Num && x.Meta.Rel && y.Meta.Rel {
		if sameChunk(x.Meta.Chunk, y.Meta.Chunk) {
			return NumNode(x.Num - y.Num), nil
		}
		return rebuild(e, x, y), nil
	}
	// A relative value plus/minus a plain constant stays relative,
	// tracking the same chunk/org.
	if (e.Op == Add || e.Op == Sub) && x.Op == Num && y.Op == Num {
		if x.Meta.Rel && !y.Meta.Rel {
			delta := y.Num
			if e.Op == Sub {
				delta = -delta
			}
			n := RelNode(x.Num+delta, x.Meta.Chunk, x.Meta.Org, x.Meta.OrgValid)
			return n, nil
		}
		if e.Op == Add && y.Meta.Rel && !x.Meta.Rel {
			n := RelNode(y.Num+x.Num, y.Meta.Chunk, y.Meta.Org, y.Meta.OrgValid)
			return n, nil
		}
	}
	if !bothConst || x.Meta.Rel || y.Meta.Rel {
		return rebuild(e, x, y), nil
	}
	a, b := x.Num, y.Num
	switch e.Op {
	case Add:
		return NumNode(a + b), nil
	case Sub:
		return NumNode(a - b), nil
	case Mul:
		return NumNode(a * b), nil
	case Div:
		if b == 0 {
			return nil, errors.New("division by zero in constant expression")
		}
		return NumNode(a / b), nil
	case Mod:
		if b == 0 {
			return nil, errors.New("division by zero in constant expression")
		}
		return NumNode(a % b), nil
	case And:
		return NumNode(a & b), nil
	case Or:
		return NumNode(a | b), nil
	case Xor:
		return NumNode(a ^ b), nil
	case Shl:
		return NumNode(a << uint(b)), nil
	case Shr:
		return NumNode(a >> uint(b)), nil
	case CmpEq:
		return NumNode(boolInt(a == b)), nil
	case CmpNe:
		return NumNode(boolInt(a != b)), nil
	case CmpLt:
		return NumNode(boolInt(a < b)), nil
	case CmpGt:
		return NumNode(boolInt(a > b)), nil
	case CmpLe:
		return NumNode(boolInt(a <= b)), nil
	case CmpGe:
		return NumNode(boolInt(a >= b)), nil
	case LogAnd:
		return NumNode(boolInt(a != 0 && b != 0)), nil
	case LogOr:
		return NumNode(boolInt(a != 0 || b != 0)), nil
	}
	return nil, errors.Errorf("unknown binary operator %v", e.Op)
}

func sameChunk(a, b interface{}) bool {
	return a == b
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// rebuild returns e unchanged if its (possibly re-evaluated) children are
// identical to what it already had, otherwise a shallow copy with the new
// children — avoids needless allocation when nothing actually folded.
func rebuild(e *Expr, x, y *Expr) *Expr {
	if y == nil {
		if x == e.Kids[0] {
			return e
		}
		c := *e
		c.Kids = []*Expr{x}
		return &c
	}
	if x == e.Kids[0] && y == e.Kids[1] {
		return e
	}
	c := *e
	c.Kids = []*Expr{x, y}
	return &c
}
