package webppl

import "sort"

// The caching pass marks eligible call sites for address-keyed
// memoization. It runs on the named direct-style tree, before CPS,
// because eligibility is a source-level property: a function may be
// cached only if its free variables are drawn from the safe set —
// primitives, globals the embedder promises to bind, and other
// cacheable functions. A function explicitly requested for caching
// that fails the check is rejected with a diagnostic, never silently
// cached. The site marks ride through the later passes unchanged;
// the memo table itself lives in the store and is consulted at the
// call boundary.

type cachePass struct {
	requested map[string]bool // nil: every eligible let-bound function
	safe      map[string]bool
}

func cachingPass(expr Expr, requested []string, safe map[string]bool) Expr {
	c := &cachePass{safe: safe}
	if len(requested) > 0 {
		c.requested = make(map[string]bool, len(requested))
		for _, name := range requested {
			c.requested[name] = true
		}
	}
	return c.rewrite(expr, map[string]bool{})
}

// rewrite walks expr; cacheable tracks which names are, in the
// current scope, bound to functions approved for caching.
func (c *cachePass) rewrite(expr Expr, cacheable map[string]bool) Expr {
	switch e := expr.(type) {
	case *LetExpr:
		val := c.rewrite(e.Val, cacheable)
		inner := copyScope(cacheable)
		inner[e.Var] = false
		if fn, ok := val.(*FuncExpr); ok {
			eligible, offender := c.eligible(fn, cacheable)
			wanted := c.requested == nil || c.requested[e.Var]
			if c.requested != nil && c.requested[e.Var] && !eligible {
				panic(compileErrorf(fn.Pos,
					"caching: function %s has uncontrolled free variable %s", e.Var, offender))
			}
			inner[e.Var] = eligible && wanted
		}
		return &LetExpr{Var: e.Var, Val: val, Body: c.rewrite(e.Body, inner), Pos: e.Pos}
	case *FuncExpr:
		inner := copyScope(cacheable)
		for _, a := range e.Args {
			inner[a] = false
		}
		if e.Rest != "" {
			inner[e.Rest] = false
		}
		if e.Name != "" {
			inner[e.Name] = false
		}
		return &FuncExpr{
			Name: e.Name, Args: e.Args, Rest: e.Rest,
			Body: c.rewrite(e.Body, inner),
			Pos:  e.Pos,
			path: e.path,
		}
	case *CallExpr:
		out := rebuild(e, func(ch Expr) Expr { return c.rewrite(ch, cacheable) }).(*CallExpr)
		if v, ok := e.Func.(*VarExpr); ok && cacheable[v.Name] {
			out.cached = true
		}
		return out
	default:
		return rebuild(expr, func(ch Expr) Expr { return c.rewrite(ch, cacheable) })
	}
}

// eligible reports whether every free variable of fn is drawn from
// the safe set; offender names a violating variable otherwise.
func (c *cachePass) eligible(fn *FuncExpr, cacheable map[string]bool) (bool, string) {
	var offenders []string
	for name := range freeVars(fn) {
		if !c.safe[name] && !cacheable[name] {
			offenders = append(offenders, name)
		}
	}
	if len(offenders) == 0 {
		return true, ""
	}
	sort.Strings(offenders)
	return false, offenders[0]
}

func copyScope(scope map[string]bool) map[string]bool {
	out := make(map[string]bool, len(scope))
	for k, v := range scope {
		out[k] = v
	}
	return out
}
