package webppl

import "strings"

// An Address identifies a dynamic call site: the chain of static
// call-site labels from the run's entry point down to the current
// call. Addresses are pure data; Extend derives a new address and
// never touches the receiver, so continuations captured at different
// points can safely hold different chains.
//
// Recursion is distinguished structurally: a recursive call extends
// the caller's chain by one label per frame, so two dynamic
// invocations of the same static site at different depths have
// different addresses, while recompiling the same program yields the
// same labels and therefore the same addresses.

type Address struct {
	parent *Address
	label  string
}

func rootAddress() *Address {
	return &Address{}
}

func (a *Address) Extend(label string) *Address {
	return &Address{parent: a, label: label}
}

// Depth is the number of extensions from the root.
func (a *Address) Depth() int {
	n := 0
	for p := a; p != nil && p.label != ""; p = p.parent {
		n++
	}
	return n
}

func (a *Address) String() string {
	var labels []string
	for p := a; p != nil; p = p.parent {
		if p.label != "" {
			labels = append(labels, p.label)
		}
	}
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}
	return strings.Join(labels, ".")
}
