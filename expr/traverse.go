package expr

// Visitor is called once per node during Traverse, before its children
// (if any) are visited.
type Visitor func(e *Expr)

// Traverse walks e and its descendants in pre-order, calling visit on
// each node.
func Traverse(e *Expr, visit Visitor) {
	if e == nil {
		return
	}
	visit(e)
	for _, k := range e.Kids {
		Traverse(k, visit)
	}
}

// Symbols returns the set of symbol names referenced (by name, i.e. not
// yet resolved to an index) anywhere within e.
func Symbols(e *Expr) map[string]bool {
	out := make(map[string]bool)
	Traverse(e, func(n *Expr) {
		if n.Op == Sym && !n.HasSymIdx {
			out[n.Name] = true
		}
	})
	return out
}
