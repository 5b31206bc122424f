package asm_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/shicks/js65/asm"
	"github.com/shicks/js65/chunk"
	"github.com/shicks/js65/expr"
	"github.com/shicks/js65/srcpos"
	"github.com/shicks/js65/token"
	"github.com/stretchr/testify/require"
)

// Local aliases for the token package's build helpers, trimmed to the
// names this file's scenarios read most naturally.
var (
	ident = token.Ident
	ctrl  = token.Control
	op    = token.OpTok
	num   = token.NumTok
	str   = token.Str
)

func run(t *testing.T, opts []asm.Option, lines []token.Line) *asm.Assembler {
	t.Helper()
	a := asm.New(opts...)
	err := a.Run(context.Background(), token.NewSliceSource(lines))
	require.NoError(t, err)
	return a
}

// Scenario A: an operand under $100 auto-sizes to zero-page, one at or
// above it auto-sizes to absolute.
func TestZeroPageAutoSizing(t *testing.T) {
	lines := []token.Line{
		{ctrl(".segment"), str("CODE")},
		{ctrl(".org"), num(0x8000)},
		{ident("lda"), num(0x10)},
		{ident("lda"), num(0x1000)},
	}
	a := run(t, nil, lines)
	mod, err := a.Module()
	require.NoError(t, err)
	require.Len(t, mod.Chunks, 1)
	require.Equal(t, []byte{0xA5, 0x10, 0xAD, 0x00, 0x10}, mod.Chunks[0].Data)
}

// Scenario B: a forward branch to a not-yet-defined label resolves to
// the correct displacement once the label is bound.
func TestForwardBranch(t *testing.T) {
	lines := []token.Line{
		{ctrl(".segment"), str("CODE")},
		{ctrl(".org"), num(0x8000)},
		{ident("beq"), ident("skip")},
		{ident("nop")},
		{ident("nop")},
		{ident("skip"), op(":")},
		{ident("nop")},
	}
	a := run(t, nil, lines)
	mod, err := a.Module()
	require.NoError(t, err)
	require.Len(t, mod.Chunks, 1)
	require.Equal(t, []byte{0xF0, 0x02, 0xEA, 0xEA, 0xEA}, mod.Chunks[0].Data)
}

// Scenario C: an anonymous backward label ":" followed by a "bne :-"
// resolves against the most recent anonymous mark.
func TestAnonymousBackwardLabel(t *testing.T) {
	lines := []token.Line{
		{ctrl(".segment"), str("CODE")},
		{ctrl(".org"), num(0x8000)},
		{op(":")},
		{ident("nop")},
		{ident("bne"), op(":-")},
	}
	a := run(t, nil, lines)
	mod, err := a.Module()
	require.NoError(t, err)
	require.Len(t, mod.Chunks, 1)
	require.Equal(t, []byte{0xEA, 0xD0, 0xFD}, mod.Chunks[0].Data)
}

// Scenario D: an undefined reference inside a nested scope promotes
// into the parent scope and resolves once the parent later defines it.
func TestScopePromotion(t *testing.T) {
	lines := []token.Line{
		{ctrl(".segment"), str("CODE")},
		{ctrl(".org"), num(0x8000)},
		{ctrl(".scope"), ident("Outer")},
		{ident("lda"), op("#"), ident("foo")},
		{ctrl(".endscope")},
		{ident("foo"), op("="), num(0x42)},
	}
	a := run(t, nil, lines)
	mod, err := a.Module()
	require.NoError(t, err)
	require.Len(t, mod.Chunks, 1)
	require.Equal(t, []byte{0xA9, 0x42}, mod.Chunks[0].Data)
}

func TestMutabilityCannotFlip(t *testing.T) {
	a := asm.New()
	lines := []token.Line{
		{ident("foo"), op("="), num(1)},
	}
	require.NoError(t, a.Run(context.Background(), token.NewSliceSource(lines)))
	err := a.Run(context.Background(), token.NewSliceSource([]token.Line{
		{ident("foo"), ctrl(".set"), num(2)},
	}))
	require.Error(t, err)
}

func TestRedefiningImmutableFails(t *testing.T) {
	a := asm.New()
	lines := []token.Line{
		{ident("foo"), op("="), num(1)},
	}
	require.NoError(t, a.Run(context.Background(), token.NewSliceSource(lines)))
	err := a.Run(context.Background(), token.NewSliceSource([]token.Line{
		{ident("foo"), op("="), num(2)},
	}))
	require.Error(t, err)
}

func TestMutableAssignmentIdempotent(t *testing.T) {
	a := asm.New()
	lines := []token.Line{
		{ident("foo"), ctrl(".set"), num(7)},
		{ident("foo"), ctrl(".set"), num(7)},
	}
	require.NoError(t, a.Run(context.Background(), token.NewSliceSource(lines)))
}

// segmentWithRange builds a ".segment \"CODE\": mem=$8000, size=$10,
// offset=0" directive line, giving the segment the memory/size/offset
// triple .free needs to resolve the current origin into it.
func segmentWithRange() token.Line {
	return token.Line{
		ctrl(".segment"), str("CODE"), op(":"),
		ident("mem"), op("="), num(0x8000), op(","),
		ident("size"), op("="), num(0x10), op(","),
		ident("offset"), op("="), num(0),
	}
}

func TestFreeReservesSpaceAtFixedOrg(t *testing.T) {
	lines := []token.Line{
		segmentWithRange(),
		{ctrl(".org"), num(0x8000)},
		{ctrl(".free"), num(4)},
		{ident("nop")},
	}
	a := run(t, nil, lines)
	mod, err := a.Module()
	require.NoError(t, err)
	require.Len(t, mod.Chunks, 1)
	require.Equal(t, []byte{0xEA}, mod.Chunks[0].Data)
	require.Equal(t, 0x8004, mod.Chunks[0].Org)
}

func TestFreeInRelocModeFails(t *testing.T) {
	lines := []token.Line{
		segmentWithRange(),
		{ctrl(".free"), num(4)},
	}
	a := asm.New()
	err := a.Run(context.Background(), token.NewSliceSource(lines))
	require.Error(t, err)
}

func TestUndefinedSymbolFailsModule(t *testing.T) {
	lines := []token.Line{
		{ctrl(".segment"), str("CODE")},
		{ctrl(".org"), num(0x8000)},
		{ident("lda"), op("#"), ident("nope")},
	}
	a := run(t, nil, lines)
	_, err := a.Module()
	require.Error(t, err)
}

func TestExportUndefinedFails(t *testing.T) {
	lines := []token.Line{
		{ctrl(".export"), ident("foo")},
	}
	a := run(t, nil, lines)
	_, err := a.Module()
	require.Error(t, err)
}

// .segment accepts a comma-separated list of names sharing one trailing
// colon-prefixed attribute clause, applying it to each of them in turn.
func TestSegmentMultiNameWithAttrs(t *testing.T) {
	lines := []token.Line{
		{
			ctrl(".segment"), str("A"), op(","), str("B"), op(":"),
			ident("mem"), op("="), num(0x8000), op(","),
			ident("size"), op("="), num(0x10), op(","),
			ident("offset"), op("="), num(0),
		},
		{ctrl(".org"), num(0x8000)},
		{ident("nop")},
	}
	a := run(t, nil, lines)
	mod, err := a.Module()
	require.NoError(t, err)
	require.Len(t, mod.Chunks, 1)
	require.Equal(t, []string{"A", "B"}, mod.Chunks[0].Segments)
	require.Equal(t, []byte{0xEA}, mod.Chunks[0].Data)
}

func TestForcePrefixRejectedOnImmediate(t *testing.T) {
	lines := []token.Line{
		{ctrl(".segment"), str("CODE")},
		{ctrl(".org"), num(0x8000)},
		{ident("lda"), ident("z"), op(":"), op("#"), num(5)},
	}
	a := asm.New()
	err := a.Run(context.Background(), token.NewSliceSource(lines))
	require.Error(t, err)
}

func TestForcePrefixRejectedOnAccumulator(t *testing.T) {
	lines := []token.Line{
		{ctrl(".segment"), str("CODE")},
		{ctrl(".org"), num(0x8000)},
		{ident("asl"), ident("a"), op(":"), ident("a")},
	}
	a := asm.New()
	err := a.Run(context.Background(), token.NewSliceSource(lines))
	require.Error(t, err)
}

// RefExtractor.Ref fires for every emitted or deferred value, reporting
// the bytes written and the address they landed at.
func TestRefExtractorReportsEmittedBytes(t *testing.T) {
	var refs []string
	re := asm.RefExtractor{
		Ref: func(e *expr.Expr, bytes []byte, addr int, segments []string) {
			refs = append(refs, fmt.Sprintf("%#x:%v", addr, bytes))
		},
	}
	lines := []token.Line{
		{ctrl(".segment"), str("CODE")},
		{ctrl(".org"), num(0x8000)},
		{ident("lda"), num(0x10)},
	}
	a := run(t, []asm.Option{asm.WithRefExtractor(re)}, lines)
	_, err := a.Module()
	require.NoError(t, err)
	require.Contains(t, refs, "0x8001:[16]")
}

// In OverwriteWarn mode a fixed-origin write overlapping a previous one
// is allowed through, but reported via the diagnostics Warning sink
// instead of silently behaving like OverwriteAllow.
func TestOverwriteWarnReportsOverlap(t *testing.T) {
	var warned string
	opts := []asm.Option{
		asm.WithOverwriteMode(chunk.OverwriteWarn),
		asm.WithDiagnostics(asm.Diagnostics{
			Warning: func(msg string, pos srcpos.Pos) { warned = msg },
		}),
	}
	a := run(t, opts, []token.Line{
		segmentWithRange(),
		{ctrl(".org"), num(0x8000)},
		{ident("nop")},
	})
	err := a.Run(context.Background(), token.NewSliceSource([]token.Line{
		{ctrl(".org"), num(0x8000)},
		{ident("nop")},
	}))
	require.NoError(t, err)
	require.NotEmpty(t, warned)
}

func TestImportSatisfiesReference(t *testing.T) {
	lines := []token.Line{
		{ctrl(".import"), ident("foo")},
		{ctrl(".segment"), str("CODE")},
		{ctrl(".org"), num(0x8000)},
		{ident("lda"), op("#"), ident("foo")},
	}
	a := run(t, nil, lines)
	mod, err := a.Module()
	require.NoError(t, err)
	require.Len(t, mod.Chunks, 1)
	require.Equal(t, byte(0xA9), mod.Chunks[0].Data[0])
}
