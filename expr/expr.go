// Package expr implements the expression representation and partial
// evaluator: a tagged tree of numeric literals, symbol references, and
// operators, with bottom-up folding that leaves unresolved subtrees
// intact.
package expr

import "github.com/shicks/js65/srcpos"

// Op identifies an expression node's operator.
type Op int

// Node operators. Num, Sym and Import are leaves; everything else is an
// arithmetic/bitwise/comparison/logical/opaque operator over Kids.
const (
	Num Op = iota
	Sym
	Import

	// Binary arithmetic.
	Add
	Sub
	Mul
	Div
	Mod

	// Binary bitwise.
	And
	Or
	Xor
	Shl
	Shr

	// Binary comparison.
	CmpEq
	CmpNe
	CmpLt
	CmpGt
	CmpLe
	CmpGe

	// Binary logical.
	LogAnd
	LogOr

	// Unary.
	Neg    // -x
	LogNot // !x
	LoByte // <x
	HiByte // >x
	Bank   // ^x
	BitNot // ~x

	// Opaque.
	Move // .move n, x
)

// Meta carries the optional evaluation metadata attached to a node.
type Meta struct {
	// Size is the declared/derived operand width in bytes: 1, 2, 3, or 4.
	// Zero means "not yet determined".
	Size int
	// Rel marks a Num value as a program-counter-relative offset rather
	// than a constant.
	Rel bool
	// Chunk identifies the owning chunk for a Rel value. It is an opaque
	// comparable token supplied by the chunk package; expr never
	// dereferences it, only compares it for equality.
	Chunk interface{}
	// Org records the chunk's origin at the time the node was created,
	// when the chunk is fixed-origin. OrgValid distinguishes "org is 0"
	// from "chunk is relocatable".
	Org      int
	OrgValid bool
}

// Expr is a node in the expression tree.
type Expr struct {
	Op Op

	// Num holds the literal/evaluated integer value when Op == Num.
	Num int

	// Name holds the referenced name for Op == Sym (unresolved-by-name)
	// and Op == Import.
	Name string
	// SymIdx holds the resolved index into the module's symbol array for
	// Op == Sym (resolved-by-id). HasSymIdx distinguishes "index 0" from
	// "not yet resolved, use Name".
	SymIdx    int
	HasSymIdx bool

	// MoveLen is the declared length for Op == Move.
	MoveLen int

	// Kids holds operands: one for unary ops and Move, two for binary ops,
	// none for leaves.
	Kids []*Expr

	Meta Meta

	Source srcpos.Pos
}

// NumNode builds a constant numeric leaf with a derived size.
func NumNode(v int) *Expr {
	return &Expr{Op: Num, Num: v, Meta: Meta{Size: sizeOf(v)}}
}

// RelNode builds a chunk-relative program-counter value: the offset
// bytes into chunk's data at the moment of label binding.
func RelNode(offset int, chunk interface{}, org int, orgValid bool) *Expr {
	return &Expr{Op: Num, Num: offset, Meta: Meta{
		Size: 2, Rel: true, Chunk: chunk, Org: org, OrgValid: orgValid,
	}}
}

// SymByName builds an unresolved symbol reference.
func SymByName(name string) *Expr {
	return &Expr{Op: Sym, Name: name, Meta: Meta{Size: 2}}
}

// SymByIndex builds a resolved symbol reference into the module symbol
// array.
func SymByIndex(idx int) *Expr {
	return &Expr{Op: Sym, SymIdx: idx, HasSymIdx: true, Meta: Meta{Size: 2}}
}

// ImportRef builds an import placeholder.
func ImportRef(name string) *Expr {
	return &Expr{Op: Import, Name: name, Meta: Meta{Size: 2}}
}

// Unary builds a unary-operator node over x.
func Unary(op Op, x *Expr) *Expr {
	size := x.Meta.Size
	if op == LoByte || op == HiByte || op == Bank {
		size = 1
	}
	return &Expr{Op: op, Kids: []*Expr{x}, Meta: Meta{Size: size}}
}

// Binary builds a binary-operator node over x and y.
func Binary(op Op, x, y *Expr) *Expr {
	size := x.Meta.Size
	if y.Meta.Size > size {
		size = y.Meta.Size
	}
	return &Expr{Op: op, Kids: []*Expr{x, y}, Meta: Meta{Size: size}}
}

// MoveNode builds a `.move n, x` placeholder.
func MoveNode(n int, x *Expr) *Expr {
	return &Expr{Op: Move, MoveLen: n, Kids: []*Expr{x}, Meta: Meta{Size: n}}
}

// sizeOf derives the default size for a constant: |v| < 256 fits in one
// byte, otherwise two.
func sizeOf(v int) int {
	if v > -256 && v < 256 {
		return 1
	}
	return 2
}

// ForceSize returns a copy of e with Meta.Size overridden, as the `z:`/`a:`
// source prefixes do to force an explicit operand size.
func ForceSize(e *Expr, size int) *Expr {
	c := *e
	c.Meta.Size = size
	return &c
}

// IsConst reports whether e is a fully-reduced, non-relative numeric
// literal.
func IsConst(e *Expr) bool {
	return e.Op == Num && !e.Meta.Rel
}

// IsRel reports whether e is a program-counter-relative numeric value.
func IsRel(e *Expr) bool {
	return e.Op == Num && e.Meta.Rel
}
