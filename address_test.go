package webppl

import "testing"

func TestAddressChain(t *testing.T) {
	root := rootAddress()
	if root.Depth() != 0 || root.String() != "" {
		t.Errorf("root = %q depth %d, want empty at depth 0", root.String(), root.Depth())
	}
	a := root.Extend("main:0")
	b := a.Extend("main.f:1")
	if got := b.String(); got != "main:0.main.f:1" {
		t.Errorf("String() = %q", got)
	}
	if a.Depth() != 1 || b.Depth() != 2 {
		t.Errorf("depths = %d, %d, want 1, 2", a.Depth(), b.Depth())
	}
}

func TestAddressExtendIsPure(t *testing.T) {
	a := rootAddress().Extend("x:0")
	left := a.Extend("y:0")
	right := a.Extend("z:0")
	if a.String() != "x:0" {
		t.Errorf("parent changed by Extend: %q", a.String())
	}
	if left.String() == right.String() {
		t.Errorf("siblings collide: %q", left.String())
	}
}

func TestAddressRecursionDepth(t *testing.T) {
	a := rootAddress()
	for i := 0; i < 3; i++ {
		a = a.Extend("r:0")
	}
	if a.Depth() != 3 {
		t.Errorf("depth = %d, want 3", a.Depth())
	}
	if a.String() != "r:0.r:0.r:0" {
		t.Errorf("String() = %q", a.String())
	}
}
