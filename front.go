package webppl

import (
	"io"
	"strconv"
	"strings"
	"text/scanner"
)

// front.go is the minimal front end: a recursive-descent parser for a
// small JS-like surface syntax producing the fixed AST node set.
// Operator sugar is resolved here — `a + b` parses to a call of the
// "+" primitive, `a && b` to a conditional — so the passes only ever
// see the node kinds in ast.go. There is no macro system.

const scannerMode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats |
	scanner.ScanStrings | scanner.SkipComments | scanner.ScanComments

type parser struct {
	s    scanner.Scanner
	tok  rune   // current token kind: scanner.Ident etc., or a rune, or opToken
	text string // current token text
	pos  Pos
	err  *CompileError
}

// opToken marks a two-rune operator ("==", "<=", "&&", ...) merged by next.
const opToken rune = -100

// Parse reads a program from r.
func Parse(r io.Reader) (prog *Program, err error) {
	p := new(parser)
	p.s.Init(r)
	p.s.Mode = scannerMode
	p.s.Error = func(s *scanner.Scanner, msg string) {
		p.fail(Pos{Line: s.Position.Line, Col: s.Position.Column}, "%s", msg)
	}
	defer func() {
		if e := recover(); e != nil {
			if ce, ok := e.(*CompileError); ok {
				prog, err = nil, ce
				return
			}
			panic(e)
		}
	}()
	p.next()
	pos := p.pos
	body := p.stmts(false, scanner.EOF)
	return &Program{Body: body, Pos: pos}, nil
}

// ParseString parses a program held in a string.
func ParseString(src string) (*Program, error) {
	return Parse(strings.NewReader(src))
}

func (p *parser) fail(pos Pos, format string, args ...any) {
	panic(compileErrorf(pos, format, args...))
}

func (p *parser) next() {
	r := p.s.Scan()
	p.pos = Pos{Line: p.s.Position.Line, Col: p.s.Position.Column}
	p.text = p.s.TokenText()
	switch r {
	case '=', '!', '<', '>':
		if p.s.Peek() == '=' {
			p.s.Scan()
			p.tok, p.text = opToken, string(r)+"="
			return
		}
	case '&', '|':
		if p.s.Peek() == r {
			p.s.Scan()
			p.tok, p.text = opToken, string(r)+string(r)
			return
		}
		p.fail(p.pos, "unexpected %q", string(r))
	}
	p.tok = r
}

func (p *parser) expect(r rune) {
	if p.tok != r {
		p.fail(p.pos, "expected %q, found %q", string(r), p.text)
	}
	p.next()
}

func (p *parser) keyword(kw string) bool {
	return p.tok == scanner.Ident && p.text == kw
}

func (p *parser) ident() string {
	if p.tok != scanner.Ident {
		p.fail(p.pos, "expected identifier, found %q", p.text)
	}
	name := p.text
	if strings.HasPrefix(name, "_") {
		p.fail(p.pos, "identifiers starting with '_' are reserved")
	}
	switch name {
	case "var", "return", "function", "true", "false", "undefined":
		p.fail(p.pos, "%q is a keyword", name)
	}
	p.next()
	return name
}

// stmts parses a statement list up to the end token and folds it into
// a single expression: var declarations become lets, intermediate
// expression statements become sequence entries, and a return (only
// legal as the last statement of a function body) becomes the tail.
func (p *parser) stmts(inFunc bool, end rune) Expr {
	pos := p.pos
	if p.tok == end {
		return &LitExpr{Value: nil, Pos: pos}
	}
	switch {
	case p.keyword("var"):
		p.next()
		name := p.ident()
		p.expect('=')
		val := p.parseExpr()
		p.expect(';')
		return &LetExpr{Var: name, Val: val, Body: p.stmts(inFunc, end), Pos: pos}
	case p.keyword("return"):
		if !inFunc {
			p.fail(pos, "return outside of a function body")
		}
		p.next()
		val := p.parseExpr()
		p.expect(';')
		if p.tok != end {
			p.fail(p.pos, "return must be the last statement in a function body")
		}
		return &ReturnExpr{Val: val, Pos: pos}
	case p.keyword("function"):
		p.next()
		fn := p.funcLit(pos)
		if fn.Name != "" && p.tok != '(' {
			// function declaration: var name = function name(...) {...}
			if p.tok == ';' {
				p.next()
			}
			return &LetExpr{Var: fn.Name, Val: fn, Body: p.stmts(inFunc, end), Pos: pos}
		}
		e := p.exprFrom(p.suffix(fn))
		p.expect(';')
		if p.tok == end {
			return e
		}
		return &SeqExpr{List: []Expr{e, p.stmts(inFunc, end)}, Pos: pos}
	default:
		e := p.parseExpr()
		p.expect(';')
		if p.tok == end {
			return e
		}
		return &SeqExpr{List: []Expr{e, p.stmts(inFunc, end)}, Pos: pos}
	}
}

func (p *parser) parseExpr() Expr {
	return p.exprFrom(p.binary(1))
}

// exprFrom finishes a ternary conditional started by its condition.
func (p *parser) exprFrom(cond Expr) Expr {
	if p.tok != '?' {
		return cond
	}
	pos := p.pos
	p.next()
	then := p.parseExpr()
	p.expect(':')
	els := p.parseExpr()
	return &IfExpr{Cond: cond, Then: then, Else: els, Pos: pos}
}

var binPrec = map[string]int{
	"||": 1, "&&": 2,
	"==": 3, "!=": 3,
	"<": 4, "<=": 4, ">": 4, ">=": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6, "%": 6,
}

func (p *parser) binOp() string {
	switch p.tok {
	case opToken:
		return p.text
	case '<', '>', '+', '-', '*', '/', '%':
		return string(p.tok)
	}
	return ""
}

func (p *parser) binary(minPrec int) Expr {
	left := p.unary()
	for {
		op := p.binOp()
		if op == "" || binPrec[op] < minPrec {
			return left
		}
		pos := p.pos
		p.next()
		right := p.binary(binPrec[op] + 1)
		switch op {
		case "&&":
			left = &IfExpr{Cond: left, Then: right, Else: &LitExpr{Value: false, Pos: pos}, Pos: pos}
		case "||":
			left = &IfExpr{Cond: left, Then: &LitExpr{Value: true, Pos: pos}, Else: right, Pos: pos}
		default:
			left = &CallExpr{Func: &VarExpr{Name: op, Pos: pos}, Args: []Expr{left, right}, Pos: pos}
		}
	}
}

func (p *parser) unary() Expr {
	pos := p.pos
	switch {
	case p.tok == '!':
		p.next()
		return &CallExpr{Func: &VarExpr{Name: "not", Pos: pos}, Args: []Expr{p.unary()}, Pos: pos}
	case p.tok == '-':
		p.next()
		zero := &LitExpr{Value: float64(0), Pos: pos}
		return &CallExpr{Func: &VarExpr{Name: "-", Pos: pos}, Args: []Expr{zero, p.unary()}, Pos: pos}
	}
	return p.suffix(p.primary())
}

// suffix parses trailing call parentheses.
func (p *parser) suffix(e Expr) Expr {
	for p.tok == '(' {
		pos := p.pos
		p.next()
		var args []Expr
		for p.tok != ')' {
			if len(args) > 0 {
				p.expect(',')
			}
			args = append(args, p.parseExpr())
		}
		p.expect(')')
		e = &CallExpr{Func: e, Args: args, Pos: pos}
	}
	return e
}

func (p *parser) primary() Expr {
	pos := p.pos
	switch {
	case p.tok == scanner.Int || p.tok == scanner.Float:
		v, err := strconv.ParseFloat(p.text, 64)
		if err != nil {
			p.fail(pos, "bad number literal %q", p.text)
		}
		p.next()
		return &LitExpr{Value: v, Pos: pos}
	case p.tok == scanner.String:
		v, err := strconv.Unquote(p.text)
		if err != nil {
			p.fail(pos, "bad string literal %s", p.text)
		}
		p.next()
		return &LitExpr{Value: v, Pos: pos}
	case p.keyword("true"):
		p.next()
		return &LitExpr{Value: true, Pos: pos}
	case p.keyword("false"):
		p.next()
		return &LitExpr{Value: false, Pos: pos}
	case p.keyword("undefined"):
		p.next()
		return &LitExpr{Value: nil, Pos: pos}
	case p.keyword("function"):
		p.next()
		return p.funcLit(pos)
	case p.tok == scanner.Ident:
		return &VarExpr{Name: p.ident(), Pos: pos}
	case p.tok == '(':
		p.next()
		e := p.parseExpr()
		p.expect(')')
		return e
	case p.tok == '[':
		p.next()
		var elems []Expr
		for p.tok != ']' {
			if len(elems) > 0 {
				p.expect(',')
			}
			elems = append(elems, p.parseExpr())
		}
		p.expect(']')
		return &ArrayExpr{Elems: elems, Pos: pos}
	case p.tok == '{':
		p.next()
		var fields []Field
		for p.tok != '}' {
			if len(fields) > 0 {
				p.expect(',')
			}
			var key string
			if p.tok == scanner.String {
				k, err := strconv.Unquote(p.text)
				if err != nil {
					p.fail(p.pos, "bad string literal %s", p.text)
				}
				key = k
				p.next()
			} else {
				key = p.ident()
			}
			p.expect(':')
			fields = append(fields, Field{Key: key, Val: p.parseExpr()})
		}
		p.expect('}')
		return &ObjectExpr{Fields: fields, Pos: pos}
	default:
		p.fail(pos, "unexpected %q", p.text)
		panic("unreachable")
	}
}

// funcLit parses a function literal after the `function` keyword.
// An optional name makes the literal self-recursive.
func (p *parser) funcLit(pos Pos) *FuncExpr {
	name := ""
	if p.tok == scanner.Ident {
		name = p.ident()
	}
	p.expect('(')
	var params []string
	rest := ""
	for p.tok != ')' {
		if len(params) > 0 || rest != "" {
			p.expect(',')
		}
		if rest != "" {
			p.fail(p.pos, "rest parameter must be last")
		}
		if p.tok == '.' {
			p.next()
			p.expect('.')
			p.expect('.')
			rest = p.ident()
			continue
		}
		params = append(params, p.ident())
	}
	p.expect(')')
	p.expect('{')
	body := p.stmts(true, '}')
	p.expect('}')
	return &FuncExpr{Name: name, Args: params, Rest: rest, Body: body, Pos: pos}
}
