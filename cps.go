package webppl

// cps.go does an ast-to-ast transformation into continuation passing
// style.
//
// C[k][ function(...) body ] = k(function(k1, ...) C[k1][ body ])
// C[k][ var v = x; body ]    = C[ function(v) C[k][ body ] ][ x ]
// C[k][ f(x) ]               = f(k, x)        -- x already atomic
// C[k][ expr ]               = k(expr)        -- expr atomic
//
// Non-atomic subexpressions are lifted left-to-right into fresh
// administrative continuations, so every source effect keeps its
// order and, afterwards, every call node sits in tail position.
// The administrative indirection introduced here is cleaned up by the
// optimize pass.

type cpsConverter struct {
	g *gensym
}

func cpsPass(f *FuncExpr, g *gensym) *FuncExpr {
	c := &cpsConverter{g: g}
	return c.function(f)
}

// function adds the leading continuation parameter and converts the
// body to call it in tail position.
func (c *cpsConverter) function(f *FuncExpr) *FuncExpr {
	kn := c.g.fresh("k")
	return &FuncExpr{
		Name: f.Name,
		Args: append([]string{kn}, f.Args...),
		Rest: f.Rest,
		Body: c.convert(f.Body, &VarExpr{Name: kn, Pos: f.Pos}),
		Pos:  f.Pos,
		path: f.path,
	}
}

func applyK(k Expr, atom Expr) Expr {
	return &CallExpr{Func: k, Args: []Expr{atom}, Pos: exprPos(atom)}
}

// convert rewrites expr so that its value is delivered to the
// continuation expression k instead of being returned.
func (c *cpsConverter) convert(expr Expr, k Expr) Expr {
	switch e := expr.(type) {
	case *VarExpr:
		return applyK(k, e)
	case *LitExpr:
		return applyK(k, e)
	case *FuncExpr:
		return applyK(k, c.function(e))
	case *ReturnExpr:
		// only legal in tail position, where k is the function's
		// return continuation
		return c.convert(e.Val, k)
	case *LetExpr:
		j := &FuncExpr{
			Args: []string{e.Var},
			Body: c.convert(e.Body, k),
			Pos:  e.Pos, isCont: true,
		}
		return c.convert(e.Val, j)
	case *SeqExpr:
		switch len(e.List) {
		case 0:
			return applyK(k, &LitExpr{Value: nil, Pos: e.Pos})
		case 1:
			return c.convert(e.List[0], k)
		}
		j := &FuncExpr{
			Args: []string{c.g.fresh("ig")},
			Body: c.convert(&SeqExpr{List: e.List[1:], Pos: e.Pos}, k),
			Pos:  e.Pos, isCont: true,
		}
		return c.convert(e.List[0], j)
	case *IfExpr:
		// bind the outer continuation once so neither branch
		// duplicates it
		kv, ok := k.(*VarExpr)
		if !ok {
			kn := c.g.fresh("k")
			wrap := &FuncExpr{
				Args: []string{kn},
				Body: c.convert(e, &VarExpr{Name: kn, Pos: e.Pos}),
				Pos:  e.Pos, isCont: true,
			}
			return &CallExpr{Func: wrap, Args: []Expr{k}, Pos: e.Pos}
		}
		return c.atom(e.Cond, func(cv Expr) Expr {
			return &IfExpr{
				Cond: cv,
				Then: c.convert(e.Then, kv),
				Else: c.convert(e.Else, kv),
				Pos:  e.Pos,
			}
		})
	case *CallExpr:
		return c.atom(e.Func, func(fv Expr) Expr {
			return c.atomList(e.Args, func(avs []Expr) Expr {
				return &CallExpr{
					Func: fv,
					Args: append([]Expr{k}, avs...),
					Pos:  e.Pos,
					label: e.label, cached: e.cached,
				}
			})
		})
	case *ArrayExpr:
		return c.atomList(e.Elems, func(avs []Expr) Expr {
			return applyK(k, &ArrayExpr{Elems: avs, Pos: e.Pos})
		})
	case *ObjectExpr:
		vals := make([]Expr, len(e.Fields))
		for i := range e.Fields {
			vals[i] = e.Fields[i].Val
		}
		return c.atomList(vals, func(avs []Expr) Expr {
			fields := make([]Field, len(e.Fields))
			for i := range e.Fields {
				fields[i] = Field{Key: e.Fields[i].Key, Val: avs[i]}
			}
			return applyK(k, &ObjectExpr{Fields: fields, Pos: e.Pos})
		})
	default:
		panic(compileErrorf(exprPos(expr), "cps: unsupported node %T", expr))
	}
}

// atom delivers expr as an atomic value to build, lifting it through
// a fresh continuation when it could perform a call.
func (c *cpsConverter) atom(expr Expr, build func(Expr) Expr) Expr {
	switch e := expr.(type) {
	case *VarExpr:
		return build(e)
	case *LitExpr:
		return build(e)
	case *FuncExpr:
		return build(c.function(e))
	default:
		t := c.g.fresh("r")
		pos := exprPos(expr)
		j := &FuncExpr{
			Args: []string{t},
			Body: build(&VarExpr{Name: t, Pos: pos}),
			Pos:  pos, isCont: true,
		}
		return c.convert(expr, j)
	}
}

// atomList lifts a list of expressions left to right.
func (c *cpsConverter) atomList(exprs []Expr, build func([]Expr) Expr) Expr {
	var rec func(i int, acc []Expr) Expr
	rec = func(i int, acc []Expr) Expr {
		if i == len(exprs) {
			return build(acc)
		}
		return c.atom(exprs[i], func(a Expr) Expr {
			return rec(i+1, append(acc, a))
		})
	}
	return rec(0, nil)
}

// checkTailCalls asserts the static invariant the CPS pass
// establishes: no call node appears in non-tail position, and call
// operands are atomic.
func checkTailCalls(expr Expr) error {
	var walk func(e Expr, tail bool) error
	walk = func(e Expr, tail bool) error {
		switch e := e.(type) {
		case *VarExpr, *LitExpr:
			return nil
		case *FuncExpr:
			return walk(e.Body, true)
		case *CallExpr:
			if !tail {
				return compileErrorf(e.Pos, "cps: call in non-tail position")
			}
			errs := []error{walk(e.Func, false)}
			for i := range e.Args {
				errs = append(errs, walk(e.Args[i], false))
			}
			return multiError(errs...)
		case *IfExpr:
			return multiError(
				walk(e.Cond, false),
				walk(e.Then, tail),
				walk(e.Else, tail),
			)
		case *ArrayExpr:
			var errs []error
			for i := range e.Elems {
				errs = append(errs, walk(e.Elems[i], false))
			}
			return multiError(errs...)
		case *ObjectExpr:
			var errs []error
			for i := range e.Fields {
				errs = append(errs, walk(e.Fields[i].Val, false))
			}
			return multiError(errs...)
		default:
			return compileErrorf(exprPos(e), "cps: residual %T node in output", e)
		}
	}
	return walk(expr, true)
}
