package webppl

// The varargs pass normalizes variable-arity definitions into the
// fixed calling convention: the rest parameter becomes an ordinary
// trailing parameter bound to a collected-arguments array, and the
// function is marked so the call boundary bundles trailing argument
// values into that array. Argument evaluation order is untouched —
// arguments were already evaluated left to right before the boundary
// is reached. The bundling cannot be a static call-site rewrite
// because the callee of a higher-order call is not known statically.

func varargsPass(expr Expr) Expr {
	switch e := expr.(type) {
	case *FuncExpr:
		if e.Rest == "" {
			return rebuild(e, varargsPass)
		}
		return &FuncExpr{
			Name: e.Name,
			Args: append(e.Args[:len(e.Args):len(e.Args)], e.Rest),
			Body: varargsPass(e.Body),
			Pos:  e.Pos,
			path: e.path, isCont: e.isCont,
			collects: true,
		}
	default:
		return rebuild(expr, varargsPass)
	}
}
