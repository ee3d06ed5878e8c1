package webppl

import (
	"math/rand"
	"reflect"
	"regexp"
	"testing"
)

func mustCompile(t *testing.T, src string, opts Options) *Compiled {
	t.Helper()
	unit, err := CompileString(src, opts)
	if err != nil {
		t.Fatalf("compile(%q) failed: %v", src, err)
	}
	return unit
}

func run(t *testing.T, src string, opts Options) (Value, error) {
	t.Helper()
	unit := mustCompile(t, src, opts)
	rt := NewRuntime()
	store := NewStore().WithHandler(DefaultHandler(rand.New(rand.NewSource(1))))
	return rt.Run(unit, store)
}

var evalTests = []struct {
	input string
	want  Value
}{
	{"42;", 42.0},
	{"(1 + 2) * 3;", 9.0},
	{"5 % 3;", 2.0},
	{"-3 + 5;", 2.0},
	{"1 < 2;", true},
	{"1 < 2 && 2 < 3;", true},
	{"false || true;", true},
	{"!false;", true},
	{"true ? 1 : 2;", 1.0},
	{`"a" + "b";`, "ab"},
	{"undefined;", nil},
	{"var x = 4; x + 1;", 5.0},
	{"var x = 1; var y = 2; x + y;", 3.0},
	{"1; 2; 3;", 3.0},
	{"[1, 1 + 1, 3];", []Value{1.0, 2.0, 3.0}},
	{"len([1, 2, 3]);", 3.0},
	{"nth([4, 5, 6], 1);", 5.0},
	{"push([1], 2);", []Value{1.0, 2.0}},
	{"concat([1], [2, 3]);", []Value{1.0, 2.0, 3.0}},
	{`var o = {a: 1, b: 2}; get(o, "b");`, 2.0},
	{`keys({b: 1, a: 2});`, []Value{"a", "b"}},
	{"var f = function(x) { return x * x; }; f(7);", 49.0},
	{"var f = function(x, y) { return x - y; }; f(f(10, 3), 2);", 5.0},
	{"var f = function fact(n) { return n == 0 ? 1 : n * fact(n - 1); }; f(5);", 120.0},
	{"var twice = function(f, x) { return f(f(x)); }; twice(function(n) { return n + 3; }, 1);", 7.0},
	{"var k = function(x) { return function() { return x; }; }; k(9)();", 9.0},
	{"sample([5]);", 5.0},
	{"var x = exit(42); x + 1;", 42.0},
}

func TestEval(t *testing.T) {
	for _, tt := range evalTests {
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

var evalErrorTests = []struct {
	input string
	error string
}{
	{"nosuch;", "not in scope"},
	{"1(2);", "cannot call non-function"},
	{"1 ? 2 : 3;", "if condition must be a boolean"},
	{"true + 1;", `operands to \+ must be numbers`},
	{"var f = function(x) { return x; }; f(1, 2);", "takes 1 arguments, found 2"},
	{"nth([1], 5);", "out of range"},
	{`get({a: 1}, "b");`, `no field "b"`},
	{"not(3);", "must be a boolean"},
}

func TestEvalErrors(t *testing.T) {
	for _, tt := range evalErrorTests {
		_, err := run(t, tt.input, Options{})
		if err == nil {
			t.Errorf("run(%q): expected an error but found none", tt.input)
			continue
		}
		matched, matchErr := regexp.MatchString(tt.error, err.Error())
		if matchErr != nil {
			t.Errorf("invalid tt.error (%q): %v", tt.error, matchErr)
		} else if !matched {
			t.Errorf("run(%q): unexpected error: %v (want match for %q)", tt.input, err, tt.error)
		}
	}
}

// A million-deep recursion must complete: tail calls are thunks
// forced by the driver loop, not native frames.
func TestDeepRecursion(t *testing.T) {
	src := "var c = function c(n) { return n == 0 ? 0 : c(n - 1); }; c(1000000);"
	v, err := run(t, src, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 0.0 {
		t.Fatalf("got %#v, want 0", v)
	}
}

func TestEvaluationOrder(t *testing.T) {
	var seen []Value
	rt := NewRuntime()
	rt.Bind("emit", prim("emit", func(s *Store, args []Value) (Value, error) {
		seen = append(seen, args[0])
		return args[0], nil
	}))
	unit := mustCompile(t, "emit(1) + emit(2) * emit(3);", Options{})
	v, err := rt.Run(unit, NewStore())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 7.0 {
		t.Errorf("got %#v, want 7", v)
	}
	if !reflect.DeepEqual(seen, []Value{1.0, 2.0, 3.0}) {
		t.Errorf("operands evaluated as %v, want [1 2 3]", seen)
	}
}

func TestRunWithCustomTopContinuation(t *testing.T) {
	var delivered Value
	k := &HostCont{Name: "collect", Impl: func(s *Store, v Value) (Value, error) {
		delivered = v
		return &Final{Value: "done"}, nil
	}}
	unit := mustCompile(t, "2 + 3;", Options{})
	rt := NewRuntime()
	v, err := rt.RunWith(unit, NewStore(), k)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "done" || delivered != 5.0 {
		t.Errorf("got %#v with %#v delivered, want done with 5", v, delivered)
	}
}

// suspension is what the test handler hands back instead of running
// the program forward.
type suspension struct {
	k       Value
	s       *Store
	choices []Value
}

// A handler may keep the continuation and return; the same captured
// continuation can then be resumed any number of times with different
// choices.
func TestHandlerCaptureAndResume(t *testing.T) {
	h := &Handler{
		Sample: func(s *Store, k Value, a *Address, args []Value) (Value, error) {
			return &suspension{k: k, s: s, choices: args[0].([]Value)}, nil
		},
	}
	unit := mustCompile(t, "var x = sample([1, 2, 3]); x * 10;", Options{})
	rt := NewRuntime()
	v, err := rt.Run(unit, NewStore().WithHandler(h))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sus, ok := v.(*suspension)
	if !ok {
		t.Fatalf("expected a suspension, got %#v", v)
	}
	for i, want := range []Value{10.0, 20.0, 30.0} {
		got, err := rt.Resume(sus.k, sus.s, sus.choices[i])
		if err != nil {
			t.Fatalf("resume %d: unexpected error: %v", i, err)
		}
		if got != want {
			t.Errorf("resume %d = %#v, want %#v", i, got, want)
		}
	}
}

func TestFactorAccumulatesScore(t *testing.T) {
	var final *Store
	h := DefaultHandler(rand.New(rand.NewSource(1)))
	h.Exit = func(s *Store, k Value, a *Address, args []Value) (Value, error) {
		final = s
		var v Value
		if len(args) > 0 {
			v = args[0]
		}
		return continueWith(s.exit, s, v), nil
	}
	unit := mustCompile(t, "factor(-1); factor(-2); exit(0);", Options{})
	rt := NewRuntime()
	if _, err := rt.Run(unit, NewStore().WithHandler(h)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	score, ok := final.Get("score")
	if !ok || score != -3.0 {
		t.Errorf("score = %#v, want -3", score)
	}
}

// Addresses at different recursion depths must differ even though
// the static call site is the same.
func TestAddressesDistinguishDepth(t *testing.T) {
	var addrs []string
	rt := NewRuntime()
	rt.Bind("here", &Primitive{Name: "here", Impl: func(s *Store, k Value, a *Address, args []Value) (Value, error) {
		addrs = append(addrs, a.String())
		return continueWith(k, s, nil), nil
	}})
	src := "var r = function r(n) { here(); return n == 0 ? 0 : r(n - 1); }; r(2);"
	unit := mustCompile(t, src, Options{})
	if _, err := rt.Run(unit, NewStore()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(addrs) != 3 {
		t.Fatalf("got %d probe calls, want 3", len(addrs))
	}
	seen := map[string]bool{}
	for _, a := range addrs {
		if seen[a] {
			t.Errorf("address %q repeated across recursion depths", a)
		}
		seen[a] = true
	}
}
