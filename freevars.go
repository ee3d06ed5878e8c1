package webppl

import "fmt"

// Free-variable analysis over the direct-style AST. A function's name
// binds inside its own body (self-recursion), parameters and the rest
// parameter bind their body, and a let binds its body only.

func freeVars(expr Expr) map[string]bool {
	free := make(map[string]bool)
	collectFree(expr, map[string]bool{}, free)
	return free
}

func collectFree(expr Expr, bound map[string]bool, free map[string]bool) {
	switch e := expr.(type) {
	case *VarExpr:
		if !bound[e.Name] {
			free[e.Name] = true
		}
	case *LitExpr:
	case *FuncExpr:
		inner := extend(bound, e.Args...)
		if e.Rest != "" {
			inner = extend(inner, e.Rest)
		}
		if e.Name != "" {
			inner = extend(inner, e.Name)
		}
		collectFree(e.Body, inner, free)
	case *CallExpr:
		collectFree(e.Func, bound, free)
		for i := range e.Args {
			collectFree(e.Args[i], bound, free)
		}
	case *IfExpr:
		collectFree(e.Cond, bound, free)
		collectFree(e.Then, bound, free)
		collectFree(e.Else, bound, free)
	case *SeqExpr:
		for i := range e.List {
			collectFree(e.List[i], bound, free)
		}
	case *LetExpr:
		collectFree(e.Val, bound, free)
		collectFree(e.Body, extend(bound, e.Var), free)
	case *ArrayExpr:
		for i := range e.Elems {
			collectFree(e.Elems[i], bound, free)
		}
	case *ObjectExpr:
		for i := range e.Fields {
			collectFree(e.Fields[i].Val, bound, free)
		}
	case *ReturnExpr:
		collectFree(e.Val, bound, free)
	default:
		panic(fmt.Sprintf("unhandled case in collectFree: %T", e))
	}
}

func extend(bound map[string]bool, names ...string) map[string]bool {
	inner := make(map[string]bool, len(bound)+len(names))
	for k := range bound {
		inner[k] = true
	}
	for _, n := range names {
		inner[n] = true
	}
	return inner
}

// boundNames collects every name bound anywhere inside expr.
func boundNames(expr Expr) map[string]bool {
	names := make(map[string]bool)
	visit(expr, func(e Expr) {
		switch e := e.(type) {
		case *FuncExpr:
			for _, a := range e.Args {
				names[a] = true
			}
			if e.Rest != "" {
				names[e.Rest] = true
			}
			if e.Name != "" {
				names[e.Name] = true
			}
		case *LetExpr:
			names[e.Var] = true
		}
	})
	return names
}
