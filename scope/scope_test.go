package scope_test

import (
	"testing"

	"github.com/shicks/js65/expr"
	"github.com/shicks/js65/scope"
)

func TestResolveForwardRefThenDefine(t *testing.T) {
	root := scope.NewRoot()
	sym, err := scope.Resolve(root, "foo", scope.ResolveOptions{AllowForwardRef: true})
	if err != nil {
		t.Fatal(err)
	}
	if sym.Defined() {
		t.Fatal("new forward ref should be undefined")
	}
	sym.Expr = expr.NumNode(42)
	again, err := scope.Resolve(root, "foo", scope.ResolveOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if again != sym || again.Expr.Num != 42 {
		t.Fatalf("expected same symbol with value 42, got %+v", again)
	}
}

func TestResolveMissingNoForwardRef(t *testing.T) {
	root := scope.NewRoot()
	sym, err := scope.Resolve(root, "nope", scope.ResolveOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if sym != nil {
		t.Fatalf("expected nil symbol, got %+v", sym)
	}
}

func TestNestedScopeWalksParent(t *testing.T) {
	root := scope.NewRoot()
	root.Symbols["foo"] = &scope.Symbol{ID: -1, Expr: expr.NumNode(7)}
	child, err := root.Enter("A", scope.KindScope, false)
	if err != nil {
		t.Fatal(err)
	}
	sym, err := scope.Resolve(child, "foo", scope.ResolveOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if sym == nil || sym.Expr.Num != 7 {
		t.Fatalf("expected to resolve foo in parent, got %+v", sym)
	}
}

func TestExplicitScopePath(t *testing.T) {
	root := scope.NewRoot()
	a, err := root.Enter("A", scope.KindScope, false)
	if err != nil {
		t.Fatal(err)
	}
	a.Symbols["bar"] = &scope.Symbol{ID: -1, Expr: expr.NumNode(99)}

	sym, err := scope.Resolve(root, "A::bar", scope.ResolveOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if sym == nil || !sym.Scoped || sym.Expr.Num != 99 {
		t.Fatalf("expected scoped symbol bar=99, got %+v", sym)
	}
}

func TestGlobalPrefix(t *testing.T) {
	root := scope.NewRoot()
	root.Symbols["x"] = &scope.Symbol{ID: -1, Expr: expr.NumNode(1)}
	a, _ := root.Enter("A", scope.KindScope, false)
	sym, err := scope.Resolve(a, "::x", scope.ResolveOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if sym == nil || sym.Expr.Num != 1 {
		t.Fatalf("expected to resolve ::x from global, got %+v", sym)
	}
}

func TestUnresolvableScopePath(t *testing.T) {
	root := scope.NewRoot()
	_, err := scope.Resolve(root, "Nope::bar", scope.ResolveOptions{})
	if err == nil {
		t.Fatal("expected error resolving unknown scope")
	}
}

func TestReenterNamedScopeErrorsWithoutOption(t *testing.T) {
	root := scope.NewRoot()
	if _, err := root.Enter("A", scope.KindScope, false); err != nil {
		t.Fatal(err)
	}
	if _, err := root.Enter("A", scope.KindScope, false); err == nil {
		t.Fatal("expected reentry error")
	}
	if _, err := root.Enter("A", scope.KindScope, true); err != nil {
		t.Fatalf("reentrant=true should allow reentry, got %v", err)
	}
}

func TestConstantVsMutable(t *testing.T) {
	root := scope.NewRoot()
	root.Symbols["x"] = &scope.Symbol{ID: 0, Expr: expr.NumNode(1)}
	root.Symbols["y"] = &scope.Symbol{ID: -1, Expr: expr.NumNode(1)}
	if !scope.ConstantSymbol(root, "x") {
		t.Error("x should be constant")
	}
	if scope.ConstantSymbol(root, "y") {
		t.Error("y is mutable, should not be constant")
	}
	if !scope.DefinedSymbol(root, "y") {
		t.Error("y should still be defined")
	}
}

func TestCheapLocalClear(t *testing.T) {
	c := scope.NewCheap()
	sym := c.Resolve("@loop", scope.ResolveOptions{AllowForwardRef: true})
	if sym.Defined() {
		t.Fatal("new cheap ref should be undefined")
	}
	if err := c.Clear(); err == nil {
		t.Fatal("expected error clearing with undefined cheap local")
	}
	c.Bind("@loop", expr.NumNode(10))
	if err := c.Clear(); err != nil {
		t.Fatalf("expected clean clear, got %v", err)
	}
	// After clear, the table is empty: a fresh reference is a new forward ref.
	sym2 := c.Resolve("@loop", scope.ResolveOptions{AllowForwardRef: true})
	if sym2.Defined() {
		t.Fatal("expected fresh symbol after clear")
	}
}

func TestIsCheapName(t *testing.T) {
	if !scope.IsCheapName("@x") || scope.IsCheapName("x") {
		t.Fatal("IsCheapName mismatch")
	}
}
