// Package scope implements the nested named-scope tree and symbol
// tables: named scopes with "::" path resolution, forward-reference
// placeholders, and the definedness predicates the assembler core and
// finalizer rely on.
//
// This generalizes db47h/ngaro/asm's flat map[string]*label bookkeeping
// — which records a forward-reference placeholder as {pos, address: -1}
// and patches it on definition — into a tree of scopes, replacing
// "address == -1" with "Expr == nil" and the flat map with parent-chain
// lookup.
package scope

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shicks/js65/expr"
	"github.com/shicks/js65/srcpos"
)

// Kind distinguishes a plain .scope from a .proc.
type Kind int

const (
	KindScope Kind = iota
	KindProc
)

// Symbol is a named entry in a scope.
type Symbol struct {
	// ID indexes into the module's global symbol array. -1 (the default)
	// marks a mutable symbol that is not link-visible.
	ID int
	// Expr is the symbol's definition. Nil for forward references and
	// for imports that have not yet been assigned a value.
	Expr *expr.Expr
	// Export is the export name, if any.
	Export string
	// Scoped is set when the symbol was reached via an explicit "::"
	// path, which disqualifies it from the finalizer's silent
	// promote-to-parent step.
	Scoped bool
	// Ref records where the symbol was first referenced (forward ref) or
	// defined, for diagnostics.
	Ref srcpos.Pos
}

// Defined reports whether the symbol has been bound to a value.
func (s *Symbol) Defined() bool { return s.Expr != nil }

// Mutable reports whether the symbol is a non-link-visible mutable
// (assigned with `.set`), i.e. ID == -1.
func (s *Symbol) Mutable() bool { return s.ID == -1 }

// Scope is a named scope node: a map of symbols, a map of named
// children, a list of anonymous children, and a parent pointer (nil
// only for the root/global scope).
type Scope struct {
	Kind     Kind
	Name     string
	Parent   *Scope
	Symbols  map[string]*Symbol
	Children map[string]*Scope
	Anon     []*Scope
}

// NewRoot creates the global scope.
func NewRoot() *Scope {
	return &Scope{
		Symbols:  make(map[string]*Symbol),
		Children: make(map[string]*Scope),
	}
}

// IsRoot reports whether s is the global scope.
func (s *Scope) IsRoot() bool { return s.Parent == nil }

// Enter creates (or, with reentrant=true, re-enters) a named child scope.
// An empty name creates an anonymous child, which is always allowed to
// be entered more than once (each call makes a fresh anonymous scope).
func (s *Scope) Enter(name string, kind Kind, reentrant bool) (*Scope, error) {
	if name == "" {
		child := &Scope{Kind: kind, Parent: s, Symbols: make(map[string]*Symbol), Children: make(map[string]*Scope)}
		s.Anon = append(s.Anon, child)
		return child, nil
	}
	if existing, ok := s.Children[name]; ok {
		if !reentrant {
			return nil, errors.Errorf("cannot reenter scope %q", name)
		}
		return existing, nil
	}
	child := &Scope{Kind: kind, Name: name, Parent: s, Symbols: make(map[string]*Symbol), Children: make(map[string]*Scope)}
	s.Children[name] = child
	return child, nil
}

// ResolveOptions controls Resolve's behavior.
type ResolveOptions struct {
	// AllowForwardRef, when the tail name is not found, creates a new
	// placeholder symbol instead of failing.
	AllowForwardRef bool
	// Ref is recorded on a newly created placeholder symbol.
	Ref srcpos.Pos
}

// Resolve splits name on "::", navigates to the target scope (a leading
// "::" pins to global; each intermediate segment walks named children,
// falling back one level to the parent for the first segment only),
// then looks up the tail name.
func Resolve(current *Scope, name string, opts ResolveOptions) (*Symbol, error) {
	scope, tail, scoped, err := navigate(current, name)
	if err != nil {
		return nil, err
	}
	if scoped {
		if sym, ok := scope.Symbols[tail]; ok {
			sym.Scoped = true
			return sym, nil
		}
	} else {
		// Unqualified name: walk the parent chain for an existing
		// definition before falling back to creating one.
		for s := scope; s != nil; s = s.Parent {
			if sym, ok := s.Symbols[tail]; ok {
				return sym, nil
			}
		}
	}
	if !opts.AllowForwardRef {
		return nil, nil
	}
	sym := &Symbol{ID: -1, Ref: opts.Ref, Scoped: scoped}
	scope.Symbols[tail] = sym
	return sym, nil
}

// navigate walks the "::" path in name starting from current, returning
// the scope the tail name should be looked up/defined in, the tail name
// itself, and whether an explicit path was used.
func navigate(current *Scope, name string) (scope *Scope, tail string, scoped bool, err error) {
	if !strings.Contains(name, "::") {
		return current, name, false, nil
	}
	parts := strings.Split(name, "::")
	scope = current
	start := 0
	if parts[0] == "" {
		// Leading "::" pins to global.
		scope = root(current)
		start = 1
	}
	tail = parts[len(parts)-1]
	mid := parts[start : len(parts)-1]
	for i, seg := range mid {
		next, ok := scope.Children[seg]
		if !ok && i == 0 && scope.Parent != nil {
			// One-level fallback to the parent for the first segment.
			next, ok = scope.Parent.Children[seg]
		}
		if !ok {
			return nil, "", false, errors.Errorf("could not resolve scope %q", seg)
		}
		scope = next
	}
	return scope, tail, true, nil
}

func root(s *Scope) *Scope {
	for s.Parent != nil {
		s = s.Parent
	}
	return s
}

// DefinedSymbol reports whether name resolves (walking parents for an
// unqualified name) to a symbol with a definition.
func DefinedSymbol(current *Scope, name string) bool {
	sym, err := Resolve(current, name, ResolveOptions{})
	if err != nil || sym == nil {
		return false
	}
	return sym.Defined()
}

// ConstantSymbol reports whether name, looked up starting at the current
// scope, is an immutable symbol (ID >= 0) with a definition.
func ConstantSymbol(current *Scope, name string) bool {
	sym, err := Resolve(current, name, ResolveOptions{})
	if err != nil || sym == nil {
		return false
	}
	return !sym.Mutable() && sym.Defined()
}

// ReferencedSymbol reports whether name resolves to any symbol at all,
// defined or not.
func ReferencedSymbol(current *Scope, name string) bool {
	sym, err := Resolve(current, name, ResolveOptions{})
	return err == nil && sym != nil
}
