package webppl

import "fmt"

// The AST delivered by the front end and rewritten by every pass.
// Nodes are immutable once built: a pass constructs a new tree and
// leaves its input alone. Every node carries the source position it
// originated from, and the passes propagate it unchanged.

type Expr interface{}

// Pos is a line/column source coordinate.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Program is the top-level compilation unit.
type Program struct {
	Body Expr
	Pos  Pos
}

type VarExpr struct {
	Name string
	Pos  Pos
}

// LitExpr holds a constant: float64, string, bool, or nil (undefined).
type LitExpr struct {
	Value any
	Pos   Pos
}

type FuncExpr struct {
	Name string   // synthesized by the naming pass when anonymous; binds for self-recursion
	Args []string // parameter names; the CPS and store passes prepend theirs
	Rest string   // rest-parameter name for variadic definitions, "" otherwise
	Body Expr
	Pos  Pos

	path     string // synthesized by the naming pass; seeds call-site labels
	isCont   bool   // administrative continuation introduced by the CPS pass
	collects bool   // set by the varargs pass: trailing args are bundled at the call boundary
}

type CallExpr struct {
	Func Expr
	Args []Expr
	Pos  Pos

	label    string // static call-site label from the naming pass; "" on continuation calls
	cached   bool   // caching pass: consult the memo table at this site
	deferred bool   // trampoline pass: build a thunk instead of calling
}

type IfExpr struct {
	Cond Expr
	Then Expr
	Else Expr
	Pos  Pos
}

// SeqExpr evaluates its list in order and yields the last value.
type SeqExpr struct {
	List []Expr
	Pos  Pos
}

type LetExpr struct {
	Var  string
	Val  Expr
	Body Expr
	Pos  Pos
}

type ArrayExpr struct {
	Elems []Expr
	Pos   Pos
}

type Field struct {
	Key string
	Val Expr
}

type ObjectExpr struct {
	Fields []Field
	Pos    Pos
}

type ReturnExpr struct {
	Val Expr
	Pos Pos
}

func exprPos(expr Expr) Pos {
	switch e := expr.(type) {
	case *Program:
		return e.Pos
	case *VarExpr:
		return e.Pos
	case *LitExpr:
		return e.Pos
	case *FuncExpr:
		return e.Pos
	case *CallExpr:
		return e.Pos
	case *IfExpr:
		return e.Pos
	case *SeqExpr:
		return e.Pos
	case *LetExpr:
		return e.Pos
	case *ArrayExpr:
		return e.Pos
	case *ObjectExpr:
		return e.Pos
	case *ReturnExpr:
		return e.Pos
	default:
		return Pos{}
	}
}

// rebuild maps f over the immediate children of expr, producing a new
// node. Passes that only care about a few node kinds use it to
// propagate the recursion through the rest.
func rebuild(expr Expr, f func(Expr) Expr) Expr {
	switch e := expr.(type) {
	case *Program:
		return &Program{Body: f(e.Body), Pos: e.Pos}
	case *VarExpr:
		return e
	case *LitExpr:
		return e
	case *FuncExpr:
		return &FuncExpr{
			Name: e.Name, Args: e.Args, Rest: e.Rest,
			Body: f(e.Body), Pos: e.Pos,
			path: e.path, isCont: e.isCont, collects: e.collects,
		}
	case *CallExpr:
		args := make([]Expr, len(e.Args))
		for i := range e.Args {
			args[i] = f(e.Args[i])
		}
		return &CallExpr{
			Func: f(e.Func), Args: args, Pos: e.Pos,
			label: e.label, cached: e.cached, deferred: e.deferred,
		}
	case *IfExpr:
		return &IfExpr{Cond: f(e.Cond), Then: f(e.Then), Else: f(e.Else), Pos: e.Pos}
	case *SeqExpr:
		list := make([]Expr, len(e.List))
		for i := range e.List {
			list[i] = f(e.List[i])
		}
		return &SeqExpr{List: list, Pos: e.Pos}
	case *LetExpr:
		return &LetExpr{Var: e.Var, Val: f(e.Val), Body: f(e.Body), Pos: e.Pos}
	case *ArrayExpr:
		elems := make([]Expr, len(e.Elems))
		for i := range e.Elems {
			elems[i] = f(e.Elems[i])
		}
		return &ArrayExpr{Elems: elems, Pos: e.Pos}
	case *ObjectExpr:
		fields := make([]Field, len(e.Fields))
		for i, fl := range e.Fields {
			fields[i] = Field{Key: fl.Key, Val: f(fl.Val)}
		}
		return &ObjectExpr{Fields: fields, Pos: e.Pos}
	case *ReturnExpr:
		return &ReturnExpr{Val: f(e.Val), Pos: e.Pos}
	default:
		panic(fmt.Sprintf("unhandled case in rebuild: %T", e))
	}
}

// visit performs a depth-first preorder traversal of expr.
func visit(expr Expr, visitor func(Expr)) {
	visitor(expr)
	switch e := expr.(type) {
	case *Program:
		visit(e.Body, visitor)
	case *VarExpr:
	case *LitExpr:
	case *FuncExpr:
		visit(e.Body, visitor)
	case *CallExpr:
		visit(e.Func, visitor)
		for i := range e.Args {
			visit(e.Args[i], visitor)
		}
	case *IfExpr:
		visit(e.Cond, visitor)
		visit(e.Then, visitor)
		visit(e.Else, visitor)
	case *SeqExpr:
		for i := range e.List {
			visit(e.List[i], visitor)
		}
	case *LetExpr:
		visit(e.Val, visitor)
		visit(e.Body, visitor)
	case *ArrayExpr:
		for i := range e.Elems {
			visit(e.Elems[i], visitor)
		}
	case *ObjectExpr:
		for i := range e.Fields {
			visit(e.Fields[i].Val, visitor)
		}
	case *ReturnExpr:
		visit(e.Val, visitor)
	default:
		panic(fmt.Sprintf("unhandled case in visit: %T", e))
	}
}

// gensym hands out names that cannot collide with source identifiers;
// the front end rejects identifiers starting with an underscore.
type gensym struct {
	n int
}

func (g *gensym) fresh(prefix string) string {
	g.n++
	return fmt.Sprintf("_%s%d", prefix, g.n)
}
