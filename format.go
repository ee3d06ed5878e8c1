package webppl

import (
	"bytes"
	"fmt"
	"strconv"
)

// format.go converts an AST back to source text. Desugared operator
// calls are printed infix again; pass annotations are invisible, so
// formatting a compiled tree shows its plain expression structure.

type formatter struct {
	buf     bytes.Buffer
	nindent int
}

// FormatExpr renders expr as source text.
func FormatExpr(expr Expr) string {
	var f formatter
	f.visitExpr(expr, 0)
	return f.buf.String()
}

var binOpPrec = map[string]int{
	"==": 2,
	"!=": 2,
	"<":  2,
	"<=": 2,
	">":  2,
	">=": 2,
	"+":  3,
	"-":  3,
	"*":  4,
	"/":  4,
	"%":  4,
}

func (f *formatter) visitExpr(e Expr, prec int) {
	switch e := e.(type) {
	case *Program:
		f.visitBody(e.Body)
	case *VarExpr:
		f.write(e.Name)
	case *LitExpr:
		f.writeLit(e.Value)
	case *CallExpr:
		if v, ok := e.Func.(*VarExpr); ok && len(e.Args) == 2 {
			if op, ok := binOpPrec[v.Name]; ok {
				if op < prec {
					f.write("(")
				}
				f.visitExpr(e.Args[0], op)
				f.write(" " + v.Name + " ")
				f.visitExpr(e.Args[1], op+1)
				if op < prec {
					f.write(")")
				}
				return
			}
		}
		f.visitExpr(e.Func, 6)
		f.write("(")
		for i, a := range e.Args {
			if i != 0 {
				f.write(", ")
			}
			f.visitExpr(a, 0)
		}
		f.write(")")
	case *IfExpr:
		if prec > 0 {
			f.write("(")
		}
		f.visitExpr(e.Cond, 1)
		f.write(" ? ")
		f.visitExpr(e.Then, 1)
		f.write(" : ")
		f.visitExpr(e.Else, 1)
		if prec > 0 {
			f.write(")")
		}
	case *FuncExpr:
		f.write("function")
		if e.Name != "" {
			f.write(" " + e.Name)
		}
		f.write("(")
		for i, name := range e.Args {
			if i != 0 {
				f.write(", ")
			}
			f.write(name)
		}
		if e.Rest != "" {
			if len(e.Args) != 0 {
				f.write(", ")
			}
			f.write("..." + e.Rest)
		}
		f.write(") {")
		f.indent()
		f.visitBody(e.Body)
		f.dedent()
		f.write("}")
	case *LetExpr:
		f.write("var " + e.Var + " = ")
		f.visitExpr(e.Val, 0)
		f.write(";")
		f.newline()
		f.visitBody(e.Body)
	case *SeqExpr:
		for i, s := range e.List {
			if i != 0 {
				f.newline()
			}
			f.visitExpr(s, 0)
			f.write(";")
		}
	case *ReturnExpr:
		f.write("return ")
		f.visitExpr(e.Val, 0)
		f.write(";")
	case *ArrayExpr:
		f.write("[")
		for i, el := range e.Elems {
			if i != 0 {
				f.write(", ")
			}
			f.visitExpr(el, 0)
		}
		f.write("]")
	case *ObjectExpr:
		f.write("{")
		for i, fld := range e.Fields {
			if i != 0 {
				f.write(", ")
			}
			f.write(fld.Key + ": ")
			f.visitExpr(fld.Val, 0)
		}
		f.write("}")
	default:
		panic(fmt.Sprintf("unhandled case in formatter.visitExpr: %T", e))
	}
}

// visitBody prints Let chains and Seq lists as statement lines
// instead of nested expressions.
func (f *formatter) visitBody(e Expr) {
	switch e := e.(type) {
	case *LetExpr, *SeqExpr, *ReturnExpr:
		f.visitExpr(e, 0)
	default:
		f.visitExpr(e, 0)
		f.write(";")
	}
}

func (f *formatter) writeLit(v any) {
	switch v := v.(type) {
	case nil:
		f.write("undefined")
	case float64:
		f.write(strconv.FormatFloat(v, 'g', -1, 64))
	case string:
		f.write(strconv.Quote(v))
	case bool:
		if v {
			f.write("true")
		} else {
			f.write("false")
		}
	default:
		f.write(fmt.Sprint(v))
	}
}

func (f *formatter) indent() {
	f.nindent++
	f.newline()
}

func (f *formatter) dedent() {
	f.nindent--
	f.newline()
}

func (f *formatter) newline() {
	f.write("\n")
	for i := 0; i < f.nindent; i++ {
		f.write("  ")
	}
}

func (f *formatter) write(s string) {
	f.buf.WriteString(s)
}
