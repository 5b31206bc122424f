package expr_test

import (
	"testing"

	"github.com/shicks/js65/expr"
)

func mustEval(t *testing.T, e *expr.Expr) *expr.Expr {
	t.Helper()
	v, err := expr.Evaluate(e)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	return v
}

func TestFoldConstant(t *testing.T) {
	e := expr.Binary(expr.Add, expr.NumNode(2), expr.NumNode(3))
	v := mustEval(t, e)
	if v.Op != expr.Num || v.Num != 5 {
		t.Fatalf("got %+v, want Num 5", v)
	}
}

func TestPartialEvaluationKeepsUnresolved(t *testing.T) {
	e := expr.Binary(expr.Add, expr.SymByName("foo"), expr.NumNode(1))
	v := mustEval(t, e)
	if v.Op != expr.Add {
		t.Fatalf("expected partial node, got %+v", v)
	}
	if v.Kids[0].Op != expr.Sym || v.Kids[0].Name != "foo" {
		t.Fatalf("expected unresolved symbol kid, got %+v", v.Kids[0])
	}
}

func TestRelativeSubtractionSameChunk(t *testing.T) {
	chunkID := "chunk-1"
	a := expr.RelNode(10, chunkID, 0x8000, true)
	b := expr.RelNode(6, chunkID, 0x8000, true)
	v := mustEval(t, expr.Binary(expr.Sub, a, b))
	if v.Op != expr.Num || v.Meta.Rel || v.Num != 4 {
		t.Fatalf("got %+v, want constant 4", v)
	}
}

func TestRelativeSubtractionDifferentChunkDoesNotFold(t *testing.T) {
	a := expr.RelNode(10, "chunk-1", 0, true)
	b := expr.RelNode(6, "chunk-2", 0, true)
	v := mustEval(t, expr.Binary(expr.Sub, a, b))
	if v.Op != expr.Sub {
		t.Fatalf("expected unfolded Sub node, got %+v", v)
	}
}

func TestLowHighBankByte(t *testing.T) {
	lo := mustEval(t, expr.Unary(expr.LoByte, expr.NumNode(0x1234)))
	if lo.Num != 0x34 || lo.Meta.Size != 1 {
		t.Fatalf("low byte = %+v", lo)
	}
	hi := mustEval(t, expr.Unary(expr.HiByte, expr.NumNode(0x1234)))
	if hi.Num != 0x12 || hi.Meta.Size != 1 {
		t.Fatalf("high byte = %+v", hi)
	}
	bank := mustEval(t, expr.Unary(expr.Bank, expr.NumNode(0x123456)))
	if bank.Num != 0x12 {
		t.Fatalf("bank byte = %+v", bank)
	}
}

func TestSizeInferenceLaw(t *testing.T) {
	small := expr.NumNode(0x10)
	if small.Meta.Size != 1 {
		t.Fatalf("expected size 1 for %d, got %d", small.Num, small.Meta.Size)
	}
	large := expr.NumNode(0x1000)
	if large.Meta.Size != 2 {
		t.Fatalf("expected size 2 for %d, got %d", large.Num, large.Meta.Size)
	}
	forced := expr.ForceSize(small, 2)
	if forced.Meta.Size != 2 {
		t.Fatalf("ForceSize did not override, got %d", forced.Meta.Size)
	}
}

func TestDivisionByZero(t *testing.T) {
	_, err := expr.Evaluate(expr.Binary(expr.Div, expr.NumNode(1), expr.NumNode(0)))
	if err == nil {
		t.Fatal("expected error dividing by zero")
	}
}

func TestSymbols(t *testing.T) {
	e := expr.Binary(expr.Add, expr.SymByName("foo"), expr.Unary(expr.Neg, expr.SymByName("bar")))
	syms := expr.Symbols(e)
	if !syms["foo"] || !syms["bar"] || len(syms) != 2 {
		t.Fatalf("got %v", syms)
	}
}

func TestTraverseVisitsAllNodes(t *testing.T) {
	e := expr.Binary(expr.Add, expr.NumNode(1), expr.NumNode(2))
	count := 0
	expr.Traverse(e, func(*expr.Expr) { count++ })
	if count != 3 {
		t.Fatalf("expected 3 nodes visited, got %d", count)
	}
}

func TestLogicalOperators(t *testing.T) {
	v := mustEval(t, expr.Binary(expr.LogAnd, expr.NumNode(1), expr.NumNode(0)))
	if v.Num != 0 {
		t.Fatalf("1 && 0 = %d, want 0", v.Num)
	}
	v = mustEval(t, expr.Binary(expr.LogOr, expr.NumNode(0), expr.NumNode(5)))
	if v.Num != 1 {
		t.Fatalf("0 || 5 = %d, want 1", v.Num)
	}
}
