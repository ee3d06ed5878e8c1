package webppl

import (
	"reflect"
	"regexp"
	"testing"
)

var varargsTests = []struct {
	input string
	want  Value
}{
	{"var g = function gather(first, ...rest) { return push(rest, first); }; g(1, 2, 3);",
		[]Value{2.0, 3.0, 1.0}},
	{"var g = function gather(first, ...rest) { return push(rest, first); }; g(1);",
		[]Value{1.0}},
	{"var n = function(...xs) { return len(xs); }; n();", 0.0},
	{"var n = function(...xs) { return len(xs); }; n(1, 2, 3, 4);", 4.0},
	// a rest function passed higher-order still bundles correctly
	{"var apply2 = function(f) { return f(7, 8); }; apply2(function(...xs) { return xs; });",
		[]Value{7.0, 8.0}},
	{"var first = function(...xs) { return len(xs) == 0 ? undefined : nth(xs, 0); }; first(9, 8);", 9.0},
}

func TestVarargs(t *testing.T) {
	for _, tt := range varargsTests {
		v, err := run(t, tt.input, Options{})
		if err != nil {
			t.Errorf("run(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if !reflect.DeepEqual(v, tt.want) {
			t.Errorf("run(%q) = %#v, want %#v", tt.input, v, tt.want)
		}
	}
}

func TestVarargsTooFew(t *testing.T) {
	src := "var g = function(a, b, ...rest) { return rest; }; g(1);"
	_, err := run(t, src, Options{})
	if err == nil {
		t.Fatal("expected an arity error")
	}
	if matched, _ := regexp.MatchString("takes at least 2 arguments, found 1", err.Error()); !matched {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestVarargsPassMarksCollector(t *testing.T) {
	prog, err := ParseString("var g = function(a, ...rest) { return rest; }; g(1, 2);")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	g := new(gensym)
	named := namePass(&FuncExpr{Name: "main", Body: prog.Body, Pos: prog.Pos})
	tree := varargsPass(storeThread(cpsPass(named.(*FuncExpr), g), g))
	found := false
	visit(tree, func(e Expr) {
		if f, ok := e.(*FuncExpr); ok && f.collects {
			found = true
			if f.Rest != "" {
				t.Error("rest parameter survived normalization")
			}
			if f.Args[len(f.Args)-1] != "rest" {
				t.Errorf("collected parameter is %q, want rest in last position", f.Args[len(f.Args)-1])
			}
		}
	})
	if !found {
		t.Error("no function marked as collecting")
	}
}
