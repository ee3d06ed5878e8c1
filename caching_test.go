package webppl

import (
	"regexp"
	"testing"
)

func countingRuntime(ticks *int) *Runtime {
	rt := NewRuntime()
	rt.Bind("tick", prim("tick", func(s *Store, args []Value) (Value, error) {
		*ticks++
		return nil, nil
	}))
	return rt
}

const cachedRecursion = `
var slow = function slow(x) { tick(); return x + 1; };
var r = function r(i) { return i == 0 ? 0 : slow(9) + r(i - 1); };
r(2);
`

func TestCachingMemoizesRepeatedCall(t *testing.T) {
	ticks := 0
	rt := countingRuntime(&ticks)
	opts := Options{Caching: true, CacheFunctions: []string{"slow"}, Globals: []string{"tick"}}
	unit := mustCompile(t, cachedRecursion, opts)
	v, err := rt.Run(unit, NewStore())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 20.0 {
		t.Errorf("result = %#v, want 20", v)
	}
	if ticks != 1 {
		t.Errorf("slow ran %d times, want 1", ticks)
	}
}

func TestCachingDisabledByDefault(t *testing.T) {
	ticks := 0
	rt := countingRuntime(&ticks)
	unit := mustCompile(t, cachedRecursion, Options{})
	if _, err := rt.Run(unit, NewStore()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ticks != 2 {
		t.Errorf("slow ran %d times without caching, want 2", ticks)
	}
}

func TestCachingDistinguishesArguments(t *testing.T) {
	ticks := 0
	rt := countingRuntime(&ticks)
	src := `
var slow = function slow(x) { tick(); return x * 2; };
var via = function via(x) { return slow(x); };
via(1) + via(2) + via(1);
`
	opts := Options{Caching: true, CacheFunctions: []string{"slow", "via"}, Globals: []string{"tick"}}
	unit := mustCompile(t, src, opts)
	v, err := rt.Run(unit, NewStore())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 8.0 {
		t.Errorf("result = %#v, want 8", v)
	}
	// slow(1) is computed once across the two via(1) calls
	if ticks != 2 {
		t.Errorf("slow ran %d times, want 2", ticks)
	}
}

// Cached sites inside two same-named function literals must use
// separate memo entries: a collision would deliver one function's
// result to a call of the other.
func TestCachingKeepsSameNamedFunctionsApart(t *testing.T) {
	src := `
var inc = function inc(u) { return u + 1; };
var dbl = function dbl(u) { return u * 2; };
var a = function w(u) { return inc(u); };
var b = function w(u) { return dbl(u); };
a(5) + b(5);
`
	opts := Options{Caching: true, CacheFunctions: []string{"inc", "dbl"}}
	v, err := run(t, src, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 16.0 {
		t.Errorf("result = %#v, want 16", v)
	}
}

// A function explicitly requested for caching whose free variables
// are not under the compiler's control must be rejected, not
// silently cached.
func TestCachingRejectsUncontrolledFreeVariable(t *testing.T) {
	src := "var y = 1; var bad = function bad(x) { return x + y; }; bad(2);"
	_, err := CompileString(src, Options{Caching: true, CacheFunctions: []string{"bad"}})
	if err == nil {
		t.Fatal("expected a compile error")
	}
	if _, ok := err.(*CompileError); !ok {
		t.Fatalf("error has type %T, want *CompileError", err)
	}
	if matched, _ := regexp.MatchString("uncontrolled free variable y", err.Error()); !matched {
		t.Errorf("unexpected error: %v", err)
	}
}

// Without an explicit request list an ineligible function is simply
// left uncached; the program still runs.
func TestCachingSkipsIneligibleSilently(t *testing.T) {
	src := "var y = 1; var bad = function bad(x) { return x + y; }; bad(2) + bad(2);"
	v, err := run(t, src, Options{Caching: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 6.0 {
		t.Errorf("result = %#v, want 6", v)
	}
}
