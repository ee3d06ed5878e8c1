package webppl

import (
	"math/rand"
	"reflect"
	"testing"
)

// The optimizer is a constant-factor switch: every program must
// produce the same result with it on and off.
func TestOptimizePreservesResults(t *testing.T) {
	for _, tt := range evalTests {
		plain, err := run(t, tt.input, Options{NoOptimize: true})
		if err != nil {
			t.Errorf("run(%q) unoptimized: unexpected error: %v", tt.input, err)
			continue
		}
		opt, err := run(t, tt.input, Options{})
		if err != nil {
			t.Errorf("run(%q) optimized: unexpected error: %v", tt.input, err)
			continue
		}
		if !reflect.DeepEqual(plain, opt) {
			t.Errorf("run(%q): optimized %#v != unoptimized %#v", tt.input, opt, plain)
		}
	}
}

func countNodes(root Expr) int {
	n := 0
	visit(root, func(Expr) { n++ })
	return n
}

func TestOptimizeShrinksCode(t *testing.T) {
	src := "var f = function(x) { var y = x + 1; var z = y * 2; return z - x; }; f(10);"
	plain, err := CompileString(src, Options{NoOptimize: true})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	opt, err := CompileString(src, Options{})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if countNodes(opt.Main) >= countNodes(plain.Main) {
		t.Errorf("optimized tree has %d nodes, unoptimized %d",
			countNodes(opt.Main), countNodes(plain.Main))
	}
}

// Administrative cleanup must not collapse labeled calls: the address
// chain a program observes is identical either way.
func TestOptimizePreservesAddresses(t *testing.T) {
	src := "var r = function r(n) { here(); return n == 0 ? 0 : r(n - 1); }; r(2);"
	trace := func(opts Options) []string {
		var addrs []string
		rt := NewRuntime()
		rt.Bind("here", &Primitive{Name: "here", Impl: func(s *Store, k Value, a *Address, args []Value) (Value, error) {
			addrs = append(addrs, a.String())
			return continueWith(k, s, nil), nil
		}})
		unit := mustCompile(t, src, opts)
		store := NewStore().WithHandler(DefaultHandler(rand.New(rand.NewSource(1))))
		if _, err := rt.Run(unit, store); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return addrs
	}
	plain := trace(Options{NoOptimize: true})
	opt := trace(Options{})
	if !reflect.DeepEqual(plain, opt) {
		t.Errorf("addresses changed by optimization:\n%v\n%v", plain, opt)
	}
}
