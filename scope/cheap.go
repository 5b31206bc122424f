package scope

import (
	"github.com/pkg/errors"
	"github.com/shicks/js65/expr"
)

// Cheap is the cheap-local ("@name") scope: a flat map cleared whenever
// a non-cheap label is defined. Clearing fails if any cheap symbol
// currently in scope lacks a definition.
type Cheap struct {
	symbols map[string]*Symbol
}

// NewCheap returns an empty cheap-local scope.
func NewCheap() *Cheap {
	return &Cheap{symbols: make(map[string]*Symbol)}
}

// IsCheapName reports whether name denotes a cheap-local reference.
func IsCheapName(name string) bool {
	return len(name) > 0 && name[0] == '@'
}

// Resolve looks up (or, with forward references allowed, creates) a
// cheap-local symbol by name.
func (c *Cheap) Resolve(name string, opts ResolveOptions) *Symbol {
	if sym, ok := c.symbols[name]; ok {
		return sym
	}
	if !opts.AllowForwardRef {
		return nil
	}
	sym := &Symbol{ID: -1, Ref: opts.Ref}
	c.symbols[name] = sym
	return sym
}

// Bind sets the Expr of the named cheap-local symbol to value, creating
// the symbol first if this is its defining occurrence rather than a
// forward reference.
func (c *Cheap) Bind(name string, value *expr.Expr) {
	sym, ok := c.symbols[name]
	if !ok {
		sym = &Symbol{ID: -1}
		c.symbols[name] = sym
	}
	sym.Expr = value
}

// Clear verifies every cheap symbol currently tracked has a definition,
// then empties the table. It must be called at every normal label
// definition and at module finalization.
func (c *Cheap) Clear() error {
	for name, sym := range c.symbols {
		if !sym.Defined() {
			return errors.Errorf("cheap local label %s never defined", name)
		}
	}
	c.symbols = make(map[string]*Symbol)
	return nil
}
