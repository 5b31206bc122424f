// Package chunk implements the chunk/segment model: code chunks with
// absolute or relocatable origins, segment descriptors, the
// .pushseg/.popseg stack, and org<->file-offset translation backed by a
// written-range interval set.
//
// The lazy-chunk-creation and lazily-growing-buffer idioms here
// generalize db47h/ngaro/asm/parser.go's p.write, which grows a flat
// Cell slice in 16384-element blocks on demand; this package grows one
// []byte buffer per chunk the same way, but chunks themselves come and
// go as .org/.reloc/segment directives require.
package chunk

import "github.com/shicks/js65/expr"

// OverwriteMode controls what happens when a fixed-origin write lands on
// file offsets that have already been written.
type OverwriteMode int

const (
	OverwriteForbid OverwriteMode = iota
	OverwriteAllow
	OverwriteWarn
)

// Sub is a deferred patch: size bytes at offset in Data, to be filled by
// the linker once Expr resolves.
type Sub struct {
	Offset int
	Size   int
	Expr   *expr.Expr
}

// AssertLevel is the severity of a deferred .assert.
type AssertLevel int

const (
	AssertError AssertLevel = iota
	AssertWarning
)

// Assert is a deferred assertion attached to a chunk.
type Assert struct {
	Expr  *expr.Expr
	Level AssertLevel
	Msg   string
}

// Chunk is a contiguous run of emitted bytes tagged with the segments it
// belongs to and an optional fixed origin.
type Chunk struct {
	Segments  []string
	Data      []byte
	Org       int
	HasOrg    bool
	Name      string
	Subs      []Sub
	Asserts   []Assert
	Overwrite OverwriteMode
}

// PC returns a PC-relative expression node for the current end of this
// chunk's data — the value a label bound at the current position takes
// on. Chunk's own pointer identity doubles as the opaque expr.Meta.Chunk
// token used to detect same-chunk relative subtraction.
func (c *Chunk) PC() *expr.Expr {
	return expr.RelNode(len(c.Data), c, c.Org, c.HasOrg)
}

// PCAt returns a PC-relative expression node for a position extra bytes
// past the current end of this chunk's data — used to compute a branch's
// displacement against the address immediately following the
// instruction, before that instruction's bytes are actually written.
func (c *Chunk) PCAt(extra int) *expr.Expr {
	return expr.RelNode(len(c.Data)+extra, c, c.Org, c.HasOrg)
}

// Len returns the current length of the chunk's data.
func (c *Chunk) Len() int { return len(c.Data) }

// append appends raw bytes to the chunk's data, growing the backing
// array geometrically like a normal Go slice (no need for a manual
// 16384-cell growth step now that append() does this for us).
func (c *Chunk) append(b ...byte) {
	c.Data = append(c.Data, b...)
}
