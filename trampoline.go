package webppl

// The trampoline pass defers every tail call: evaluating a marked
// call builds a zero-argument unit of work instead of invoking the
// callee, and only the driver loop forces it. After this pass the
// native stack depth needed to run a compiled program is a small
// constant, independent of source recursion depth. Every call is in
// tail position by the CPS invariant, so every call node is marked.

func trampolinePass(expr Expr) Expr {
	switch e := expr.(type) {
	case *CallExpr:
		out := rebuild(e, trampolinePass).(*CallExpr)
		out.deferred = true
		return out
	default:
		return rebuild(expr, trampolinePass)
	}
}
