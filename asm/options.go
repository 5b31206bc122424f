package asm

import (
	"github.com/shicks/js65/chunk"
	"github.com/shicks/js65/expr"
	"github.com/shicks/js65/srcpos"
)

// RefExtractor receives a side-channel feed of every label, reference and
// mutable assignment the assembler processes, for hosts that want to
// build a cross-reference database alongside the module itself.
type RefExtractor struct {
	Label  func(name string, addr int, segments []string)
	Ref    func(e *expr.Expr, bytes []byte, addr int, segments []string)
	Assign func(name string, value int)
}

// Diagnostics routes `.out`/`.warning` text to a host-provided sink.
// A nil field silently drops that channel.
type Diagnostics struct {
	Out     func(msg string, pos srcpos.Pos)
	Warning func(msg string, pos srcpos.Pos)
}

// Options configures an Assembler. The zero value is the strictest,
// least-permissive configuration.
type Options struct {
	AllowBrackets   bool
	ReentrantScopes bool
	OverwriteMode   chunk.OverwriteMode
	RefExtractor    *RefExtractor
	Diagnostics     Diagnostics
}

// Option mutates an Assembler's configuration at construction time.
type Option func(*Assembler)

// AllowBrackets accepts "[...]" as an alternative to "(...)" for
// indirect addressing.
func AllowBrackets() Option {
	return func(a *Assembler) { a.opts.AllowBrackets = true }
}

// ReentrantScopes permits re-entering a named scope via `.scope name`
// without error.
func ReentrantScopes() Option {
	return func(a *Assembler) { a.opts.ReentrantScopes = true }
}

// WithOverwriteMode stamps mode onto every chunk the assembler creates.
func WithOverwriteMode(mode chunk.OverwriteMode) Option {
	return func(a *Assembler) { a.opts.OverwriteMode = mode; a.mgr.SetOverwriteMode(mode) }
}

// WithRefExtractor installs callbacks for a side-channel reference feed.
func WithRefExtractor(r RefExtractor) Option {
	return func(a *Assembler) { a.opts.RefExtractor = &r }
}

// WithDiagnostics installs `.out`/`.warning` sinks.
func WithDiagnostics(d Diagnostics) Option {
	return func(a *Assembler) { a.opts.Diagnostics = d }
}

// emitRef reports one written-or-deferred value to the host-provided
// RefExtractor.Ref callback, if any host is listening. addr is the
// absolute address (chunk origin plus offset) the bytes were written
// at, or 0 if the active chunk has no fixed origin.
func (a *Assembler) emitRef(e *expr.Expr, bytes []byte) {
	re := a.opts.RefExtractor
	if re == nil || re.Ref == nil {
		return
	}
	addr := 0
	if c := a.mgr.Active(); c != nil && c.HasOrg {
		addr = c.Org + len(c.Data) - len(bytes)
	}
	re.Ref(e, bytes, addr, a.mgr.ActiveSegments())
}
