package webppl

import "fmt"

// The naming pass gives every function literal a stable name and
// every call site a static label. Labels seed runtime addresses: a
// call site's label is the enclosing function's name plus its ordinal
// among that function's call sites, so nested closures inherit their
// ancestry through the name chain and recompiling the same program
// yields identical labels. Coverage must be total — an unsupported
// node kind is fatal here so later passes can assume the full set.

type namer struct {
	nfuncs int
	seen   map[string]int // paths handed out, for disambiguation
}

func namePass(expr Expr) Expr {
	n := &namer{seen: make(map[string]int)}
	return n.name(expr, "", new(int))
}

// name rewrites expr inside the function called owner; sites counts
// the call sites seen so far in that function.
func (n *namer) name(expr Expr, owner string, sites *int) Expr {
	switch e := expr.(type) {
	case *VarExpr, *LitExpr:
		return expr
	case *FuncExpr:
		fname := e.Name
		if fname == "" {
			fname = fmt.Sprintf("f%d", n.nfuncs)
		}
		n.nfuncs++
		path := fname
		if owner != "" {
			path = owner + "." + fname
		}
		// two literals sharing a source name under one owner must not
		// share a path, or their sites would collide
		if c, ok := n.seen[path]; ok {
			n.seen[path] = c + 1
			path = fmt.Sprintf("%s#%d", path, c+1)
		} else {
			n.seen[path] = 0
		}
		return &FuncExpr{
			Name: e.Name, Args: e.Args, Rest: e.Rest,
			Body: n.name(e.Body, path, new(int)),
			Pos:  e.Pos,
			path: path,
		}
	case *CallExpr:
		label := fmt.Sprintf("%s:%d", owner, *sites)
		*sites++
		fn := n.name(e.Func, owner, sites)
		args := make([]Expr, len(e.Args))
		for i := range e.Args {
			args[i] = n.name(e.Args[i], owner, sites)
		}
		return &CallExpr{Func: fn, Args: args, Pos: e.Pos, label: label}
	case *IfExpr:
		return &IfExpr{
			Cond: n.name(e.Cond, owner, sites),
			Then: n.name(e.Then, owner, sites),
			Else: n.name(e.Else, owner, sites),
			Pos:  e.Pos,
		}
	case *SeqExpr:
		list := make([]Expr, len(e.List))
		for i := range e.List {
			list[i] = n.name(e.List[i], owner, sites)
		}
		return &SeqExpr{List: list, Pos: e.Pos}
	case *LetExpr:
		return &LetExpr{
			Var: e.Var,
			Val: n.name(e.Val, owner, sites),
			Body: n.name(e.Body, owner, sites),
			Pos: e.Pos,
		}
	case *ArrayExpr:
		elems := make([]Expr, len(e.Elems))
		for i := range e.Elems {
			elems[i] = n.name(e.Elems[i], owner, sites)
		}
		return &ArrayExpr{Elems: elems, Pos: e.Pos}
	case *ObjectExpr:
		fields := make([]Field, len(e.Fields))
		for i, fl := range e.Fields {
			fields[i] = Field{Key: fl.Key, Val: n.name(fl.Val, owner, sites)}
		}
		return &ObjectExpr{Fields: fields, Pos: e.Pos}
	case *ReturnExpr:
		return &ReturnExpr{Val: n.name(e.Val, owner, sites), Pos: e.Pos}
	default:
		panic(compileErrorf(exprPos(expr), "naming: unsupported node %T", expr))
	}
}
