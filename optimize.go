package webppl

// The optimize pass removes the administrative indirection the CPS
// rewrite introduces mechanically. Two rewrites, each provably
// behavior-preserving, applied to a fixpoint:
//
//   - beta: an immediately-invoked administrative continuation whose
//     operands are variables or literals is inlined by substitution.
//   - eta: an administrative continuation that does nothing but
//     forward its parameters to another continuation collapses to
//     that continuation.
//
// Only continuations introduced by the CPS pass are touched; source
// functions and labeled (addressed) calls are left alone, so removing
// this pass changes constant factors and code size, never results or
// addresses.

func optimizePass(expr Expr) Expr {
	for {
		o := new(optimizer)
		expr = o.rewrite(expr)
		if o.count == 0 {
			return expr
		}
	}
}

type optimizer struct {
	count int
}

func (o *optimizer) rewrite(expr Expr) Expr {
	out := rebuild(expr, o.rewrite)
	switch e := out.(type) {
	case *CallExpr:
		if fn, ok := e.Func.(*FuncExpr); ok && fn.isCont && e.label == "" {
			if r, ok := o.beta(fn, e.Args); ok {
				o.count++
				return r
			}
		}
	case *FuncExpr:
		if e.isCont {
			if r, ok := o.eta(e); ok {
				o.count++
				return r
			}
		}
	}
	return out
}

// beta inlines ((x...) => body)(a...) when every operand is cheap and
// duplicable and no binder in the body could capture an operand.
func (o *optimizer) beta(fn *FuncExpr, args []Expr) (Expr, bool) {
	if fn.Rest != "" || len(args) != len(fn.Args) {
		return nil, false
	}
	m := make(map[string]Expr, len(args))
	var binders map[string]bool
	for i, a := range args {
		switch a := a.(type) {
		case *LitExpr:
		case *VarExpr:
			if binders == nil {
				binders = boundNames(fn.Body)
			}
			if binders[a.Name] {
				return nil, false // would be captured
			}
		default:
			return nil, false
		}
		m[fn.Args[i]] = args[i]
	}
	return substitute(fn.Body, m), true
}

// eta collapses (s, x) => k(s, x) to k.
func (o *optimizer) eta(fn *FuncExpr) (Expr, bool) {
	call, ok := fn.Body.(*CallExpr)
	if !ok || call.label != "" || len(call.Args) != len(fn.Args) {
		return nil, false
	}
	target, ok := call.Func.(*VarExpr)
	if !ok {
		return nil, false
	}
	for i, a := range call.Args {
		v, ok := a.(*VarExpr)
		if !ok || v.Name != fn.Args[i] {
			return nil, false
		}
		if v.Name == target.Name {
			return nil, false
		}
	}
	return &VarExpr{Name: target.Name, Pos: fn.Pos}, true
}

// substitute replaces free occurrences of the mapped names; binders
// shadow as usual.
func substitute(expr Expr, m map[string]Expr) Expr {
	if len(m) == 0 {
		return expr
	}
	switch e := expr.(type) {
	case *VarExpr:
		if r, ok := m[e.Name]; ok {
			return r
		}
		return e
	case *FuncExpr:
		inner := m
		names := append(append([]string{}, e.Args...), e.Rest, e.Name)
		for _, n := range names {
			if n == "" {
				continue
			}
			if _, ok := inner[n]; ok {
				inner = without(inner, names)
				break
			}
		}
		return &FuncExpr{
			Name: e.Name, Args: e.Args, Rest: e.Rest,
			Body: substitute(e.Body, inner),
			Pos:  e.Pos,
			path: e.path, isCont: e.isCont, collects: e.collects,
		}
	case *LetExpr:
		inner := m
		if _, ok := m[e.Var]; ok {
			inner = without(m, []string{e.Var})
		}
		return &LetExpr{Var: e.Var, Val: substitute(e.Val, m), Body: substitute(e.Body, inner), Pos: e.Pos}
	default:
		return rebuild(expr, func(ch Expr) Expr { return substitute(ch, m) })
	}
}

func without(m map[string]Expr, names []string) map[string]Expr {
	out := make(map[string]Expr, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, n := range names {
		delete(out, n)
	}
	return out
}
