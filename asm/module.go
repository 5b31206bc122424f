package asm

import (
	"sort"

	"github.com/shicks/js65/chunk"
	"github.com/shicks/js65/expr"
	"github.com/shicks/js65/scope"
	"github.com/shicks/js65/srcpos"
)

// ModuleSymbol is one entry of a finalized module's symbol array.
type ModuleSymbol struct {
	Expr   *expr.Expr
	Export string
}

// ModuleChunk is one finalized, materialized chunk.
type ModuleChunk struct {
	Segments  []string
	Data      []byte
	Org       int
	HasOrg    bool
	Name      string
	Subs      []chunk.Sub
	Asserts   []chunk.Assert
	Overwrite chunk.OverwriteMode
}

// Module is the finalized object module a linker consumes.
type Module struct {
	Chunks   []ModuleChunk
	Symbols  []ModuleSymbol
	Segments []*chunk.Segment
}

// Module runs the finalizer over the assembler's accumulated state and
// returns the resulting object module, or the first structural error
// encountered.
func (a *Assembler) Module() (*Module, error) {
	if err := a.cheap.Clear(); err != nil {
		return nil, a.wrapFinal(err)
	}
	if err := a.promoteScope(a.root); err != nil {
		return nil, a.wrapFinal(err)
	}
	if a.cur != a.root {
		return nil, a.wrapFinal(errScopeNeverClosed{})
	}
	if err := a.resolveGlobals(); err != nil {
		return nil, a.wrapFinal(err)
	}
	for name, sym := range a.root.Symbols {
		if !sym.Defined() {
			return nil, a.wrapFinal(errUndefined{name})
		}
	}
	return a.materialize(), nil
}

type errScopeNeverClosed struct{}

func (errScopeNeverClosed) Error() string { return "scope never closed" }

type errUndefined struct{ name string }

func (e errUndefined) Error() string { return "symbol " + e.name + " undefined" }

func (a *Assembler) wrapFinal(err error) error {
	a.errs = append(a.errs, struct {
		Pos srcpos.Pos
		Msg string
	}{srcpos.Pos{}, err.Error()})
	return a.errs
}

// promoteScope walks the scope tree post-order. In each child, a
// still-undefined symbol that was reached through an explicit "::" path
// is an error; every other still-undefined symbol is promoted into its
// parent (aliased, pointed at the parent's id, or made to inherit the
// parent's definition).
func (a *Assembler) promoteScope(s *scope.Scope) error {
	for _, child := range s.Children {
		if err := a.promoteScope(child); err != nil {
			return err
		}
	}
	for _, child := range s.Anon {
		if err := a.promoteScope(child); err != nil {
			return err
		}
	}
	if s.IsRoot() {
		return nil
	}
	for name, sym := range s.Symbols {
		if sym.Defined() {
			continue
		}
		if sym.Scoped {
			return errUndefined{name}
		}
		parent, ok := s.Parent.Symbols[name]
		if !ok {
			s.Parent.Symbols[name] = sym
			continue
		}
		if parent.Defined() {
			sym.Expr = parent.Expr
		} else if parent.ID >= 0 {
			sym.Expr = expr.SymByIndex(parent.ID)
		} else {
			// Two distinct placeholders for the same name, neither ever
			// defined nor link-visible: a genuine unresolved reference,
			// not something a later pass will still patch.
			return errUndefined{name}
		}
	}
	return nil
}

// resolveGlobals walks every recorded .import/.export directive,
// ensuring exports point at a defined symbol and imports become
// placeholders if nothing else has defined them by now.
func (a *Assembler) resolveGlobals() error {
	for _, exp := range a.exports {
		sym, err := scope.Resolve(a.root, exp.Name, scope.ResolveOptions{})
		if err != nil || sym == nil || !sym.Defined() {
			return errUndefined{exp.Name}
		}
	}
	for _, imp := range a.imports {
		sym, err := scope.Resolve(a.root, imp.Name, scope.ResolveOptions{})
		if err != nil || sym == nil {
			continue
		}
		if sym.Expr == nil {
			sym.Expr = expr.ImportRef(imp.Name)
		}
	}
	return nil
}

// materialize assigns every referenced symbol a final array index,
// substitutes resolved values into every chunk's deferred Subs and
// Asserts (re-folding same-chunk forward references into literal
// bytes where the result is now fully constant), and snapshots
// everything into a Module.
func (a *Assembler) materialize() *Module {
	names := make([]string, 0, len(a.root.Symbols))
	for name := range a.root.Symbols {
		names = append(names, name)
	}
	sort.Strings(names)

	index := make(map[*scope.Symbol]int, len(names))
	symbols := make([]ModuleSymbol, 0, len(names))
	for _, name := range names {
		sym := a.root.Symbols[name]
		if _, seen := index[sym]; seen {
			continue
		}
		index[sym] = len(symbols)
		symbols = append(symbols, ModuleSymbol{Expr: sym.Expr, Export: sym.Export})
	}

	byName := make(map[string]*scope.Symbol, len(a.root.Symbols))
	for name, sym := range a.root.Symbols {
		byName[name] = sym
	}

	resolve := func(e *expr.Expr) *expr.Expr {
		return substituteAndFold(e, byName, index)
	}

	chunks := make([]ModuleChunk, 0, len(a.mgr.Chunks()))
	for _, c := range a.mgr.Chunks() {
		mc := ModuleChunk{
			Segments:  c.Segments,
			Data:      append([]byte{}, c.Data...),
			Org:       c.Org,
			HasOrg:    c.HasOrg,
			Name:      c.Name,
			Overwrite: c.Overwrite,
		}
		var remaining []chunk.Sub
		for _, sub := range c.Subs {
			v := resolve(sub.Expr)
			if expr.IsConst(v) {
				writeLE(mc.Data, sub.Offset, sub.Size, v.Num)
				continue
			}
			remaining = append(remaining, chunk.Sub{Offset: sub.Offset, Size: sub.Size, Expr: v})
		}
		mc.Subs = remaining
		for _, as := range c.Asserts {
			mc.Asserts = append(mc.Asserts, chunk.Assert{Expr: resolve(as.Expr), Level: as.Level, Msg: as.Msg})
		}
		chunks = append(chunks, mc)
	}

	for i, sym := range symbols {
		symbols[i].Expr = resolve(sym.Expr)
	}

	segments := make([]*chunk.Segment, 0)
	seen := make(map[string]bool)
	for _, c := range a.mgr.Chunks() {
		for _, name := range c.Segments {
			if seen[name] {
				continue
			}
			seen[name] = true
			segments = append(segments, a.mgr.Segment(name))
		}
	}

	return &Module{Chunks: chunks, Symbols: symbols, Segments: segments}
}

func writeLE(data []byte, offset, size, v int) {
	for i := 0; i < size; i++ {
		data[offset+i] = byte(v >> uint(8*i))
	}
}

// substituteAndFold replaces every by-name Sym leaf in e with either
// its resolved definition (if the referenced symbol already has one)
// or a by-index Sym leaf pointing into the final symbol array, then
// re-evaluates so that same-chunk forward references collapse to
// constants now that their targets are known.
func substituteAndFold(e *expr.Expr, byName map[string]*scope.Symbol, index map[*scope.Symbol]int) *expr.Expr {
	if e == nil {
		return nil
	}
	if e.Op == expr.Sym && !e.HasSymIdx {
		sym := byName[e.Name]
		if sym == nil {
			return e
		}
		if sym.Defined() {
			return substituteAndFold(sym.Expr, byName, index)
		}
		if idx, ok := index[sym]; ok {
			return expr.SymByIndex(idx)
		}
		return e
	}
	if len(e.Kids) == 0 {
		return e
	}
	kids := make([]*expr.Expr, len(e.Kids))
	for i, k := range e.Kids {
		kids[i] = substituteAndFold(k, byName, index)
	}
	c := *e
	c.Kids = kids
	folded, err := expr.Evaluate(&c)
	if err != nil {
		return &c
	}
	return folded
}
