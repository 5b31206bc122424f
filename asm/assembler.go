// Package asm consumes a stream of already-tokenized source lines and
// drives the expression, scope, chunk and cpu packages to build a
// relocatable object module: it classifies each line as a label,
// assignment, directive or instruction, binds labels and symbols,
// encodes opcode bytes, and dispatches directives, then finalizes
// everything into a Module for a separate linker to consume.
package asm

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang/glog"
	"github.com/shicks/js65/chunk"
	"github.com/shicks/js65/cpu"
	"github.com/shicks/js65/expr"
	"github.com/shicks/js65/scope"
	"github.com/shicks/js65/srcpos"
	"github.com/shicks/js65/token"
)

// Assembler holds all mutable state for one assembly session. Each
// instance owns its own scopes, symbols, chunks and segment
// descriptors; nothing is shared across instances.
type Assembler struct {
	opts Options

	cpu *cpu.Cpu
	mgr *chunk.Manager

	root  *scope.Scope
	cur   *scope.Scope
	cheap *scope.Cheap

	// alias maps every *scope.Symbol ever referenced through an
	// expression to a synthetic name registered in root.Symbols, so
	// that later substitution/materialization can find it regardless
	// of which scope it actually lives in.
	alias      map[*scope.Symbol]string
	posCounter int

	// symKind records, for every symbol that has been given a value at
	// least once, whether that first assignment was mutable (.set) or
	// immutable (=); used to reject a later assignment that flips kind.
	symKind map[*scope.Symbol]bool

	anonPast     []*expr.Expr
	anonFwdQueue []*scope.Symbol
	rtsPast      []*expr.Expr
	rtsFwdQueue  []*scope.Symbol
	relFwd       map[int]*scope.Symbol
	relBack      map[int]*expr.Expr

	imports []globalRef
	exports []globalRef

	errs ErrAsm
}

type globalRef struct {
	Name string
	Pos  srcpos.Pos
}

// New returns a ready-to-use Assembler.
func New(opts ...Option) *Assembler {
	root := scope.NewRoot()
	a := &Assembler{
		cpu:     cpu.New(),
		mgr:     chunk.NewManager(chunk.OverwriteForbid),
		root:    root,
		cur:     root,
		cheap:   scope.NewCheap(),
		alias:   make(map[*scope.Symbol]string),
		symKind: make(map[*scope.Symbol]bool),
		relFwd:  make(map[int]*scope.Symbol),
		relBack: make(map[int]*expr.Expr),
	}
	a.mgr.SetWarnSink(func(off, offHi int) {
		if w := a.opts.Diagnostics.Warning; w != nil {
			w(fmt.Sprintf("overlapping write at file offset [%d, %d)", off, offHi), srcpos.Pos{})
		}
	})
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run pulls lines from src until it is exhausted or a line fails,
// classifying and dispatching each one in turn.
func (a *Assembler) Run(ctx context.Context, src token.Source) error {
	for {
		line, ok, err := src.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if len(line) == 0 {
			continue
		}
		if err := a.dispatch(line); err != nil {
			return a.errs
		}
	}
}

// lineKind classifies a line per the four-rule order: assignment,
// label, directive, instruction.
type lineKind int

const (
	lineLabel lineKind = iota
	lineAssignment
	lineDirective
	lineInstruction
)

func classify(line token.Line) lineKind {
	if len(line) >= 2 {
		t := line[1]
		if t.Kind == token.KindOp && (t.Text == "=" || t.Text == ":=") {
			return lineAssignment
		}
		if t.Kind == token.KindControl && strings.EqualFold(t.Text, ".set") {
			return lineAssignment
		}
	}
	if isLabelForm(line) {
		return lineLabel
	}
	if line[0].Kind == token.KindControl {
		return lineDirective
	}
	return lineInstruction
}

// isLabelForm recognizes both the tail-colon forms ("name:", "@name:")
// and the bare positional forms (":", "+", "++", "-", "--", ...).
func isLabelForm(line token.Line) bool {
	if len(line) == 1 {
		t := line[0]
		if t.Kind == token.KindOp && isPositionalSpelling(t.Text) {
			return true
		}
	}
	if len(line) <= 2 {
		last := line[len(line)-1]
		if last.Kind == token.KindOp && last.Text == ":" {
			return true
		}
	}
	return false
}

func isPositionalSpelling(s string) bool {
	if s == ":" {
		return true
	}
	if len(s) == 0 {
		return false
	}
	c := s[0]
	if c != '+' && c != '-' {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] != c {
			return false
		}
	}
	return true
}

func (a *Assembler) dispatch(line token.Line) error {
	switch classify(line) {
	case lineLabel:
		return a.bindLabel(line)
	case lineAssignment:
		return a.handleAssignment(line)
	case lineDirective:
		return a.handleDirective(line)
	default:
		return a.handleInstruction(line)
	}
}

// symRef returns an unresolved-by-name expression referring to sym,
// minting and registering a synthetic global alias for it the first
// time sym is referenced from any expression.
func (a *Assembler) symRef(sym *scope.Symbol) *expr.Expr {
	name, ok := a.alias[sym]
	if !ok {
		a.posCounter++
		name = fmt.Sprintf("$%d", a.posCounter)
		a.alias[sym] = name
		a.root.Symbols[name] = sym
	}
	return expr.SymByName(name)
}

// newPositional allocates a fresh placeholder symbol for an anonymous,
// relative or rts-relative label reference, pre-registering it under a
// synthetic global alias.
func (a *Assembler) newPositional() *scope.Symbol {
	sym := &scope.Symbol{ID: -1}
	a.symRef(sym) // forces registration under a fresh alias
	return sym
}

func (a *Assembler) trace(level glog.Level, format string, args ...interface{}) {
	if glog.V(level) {
		glog.Infof(format, args...)
	}
}
