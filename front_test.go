package webppl

import (
	"regexp"
	"testing"
)

func TestParseShapes(t *testing.T) {
	prog, err := ParseString("var x = 1;\nx + 2;")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	let, ok := prog.Body.(*LetExpr)
	if !ok {
		t.Fatalf("program body is %T, want *LetExpr", prog.Body)
	}
	if let.Var != "x" || let.Pos.Line != 1 {
		t.Errorf("let = %q at line %d, want x at line 1", let.Var, let.Pos.Line)
	}
	call, ok := let.Body.(*CallExpr)
	if !ok {
		t.Fatalf("let body is %T, want *CallExpr", let.Body)
	}
	if v, ok := call.Func.(*VarExpr); !ok || v.Name != "+" {
		t.Errorf("operator sugar: call target = %#v, want the + primitive", call.Func)
	}
	if call.Pos.Line != 2 {
		t.Errorf("call at line %d, want 2", call.Pos.Line)
	}
}

func TestParseShortCircuitSugar(t *testing.T) {
	prog, err := ParseString("var x = true; x && false;")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	cond, ok := prog.Body.(*LetExpr).Body.(*IfExpr)
	if !ok {
		t.Fatalf("&& did not desugar to a conditional")
	}
	if lit, ok := cond.Else.(*LitExpr); !ok || lit.Value != false {
		t.Errorf("&& else branch = %#v, want the false literal", cond.Else)
	}
}

func TestParseRestParam(t *testing.T) {
	prog, err := ParseString("var f = function(a, ...rest) { return rest; }; f;")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	fn := prog.Body.(*LetExpr).Val.(*FuncExpr)
	if len(fn.Args) != 1 || fn.Args[0] != "a" || fn.Rest != "rest" {
		t.Errorf("params = %v rest = %q, want [a] and rest", fn.Args, fn.Rest)
	}
}

var parseErrorTests = []struct {
	input string
	error string
}{
	{"var _x = 1; _x;", "reserved"},
	{"return 1;", "return outside of a function body"},
	{"var f = function() { return 1; 2; };", "return must be the last statement"},
	{"var var = 1;", `"var" is a keyword`},
	{"var x = ;", "unexpected"},
	{"f(1,);", "unexpected"},
	{"1 + 2", `expected ";"`},
	{"var f = function(...rest, a) { return a; };", "rest parameter must be last"},
	{"1 & 2;", `unexpected "&"`},
}

func TestParseErrors(t *testing.T) {
	for _, tt := range parseErrorTests {
		_, err := ParseString(tt.input)
		if err == nil {
			t.Errorf("parse(%q): expected an error but found none", tt.input)
			continue
		}
		if _, ok := err.(*CompileError); !ok {
			t.Errorf("parse(%q): error has type %T, want *CompileError", tt.input, err)
		}
		matched, matchErr := regexp.MatchString(tt.error, err.Error())
		if matchErr != nil {
			t.Errorf("invalid tt.error (%q): %v", tt.error, matchErr)
		} else if !matched {
			t.Errorf("parse(%q): unexpected error: %v (want match for %q)", tt.input, err, tt.error)
		}
	}
}
