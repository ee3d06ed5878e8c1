package webppl

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// runtime.go executes compiled trees. Compiled code can only ever
// bind values, branch on booleans, build literals, and make tail
// calls, so the evaluator's native recursion depth is bounded by
// expression nesting, never by source recursion — recursion shows up
// as thunks handed back to the driver loop.

// Value is a runtime value: float64, string, bool, nil (undefined),
// []Value, map[string]Value, *Closure, *Primitive, *HostCont, or the
// driver-level *Thunk and *Final.
type Value = any

// Env is a chain of single bindings; closures capture their chain.
type Env struct {
	parent *Env
	name   string
	val    Value
}

func bindEnv(parent *Env, name string, v Value) *Env {
	return &Env{parent: parent, name: name, val: v}
}

func (e *Env) lookup(name string) (Value, bool) {
	for p := e; p != nil; p = p.parent {
		if p.name == name {
			return p.val, true
		}
	}
	return nil, false
}

// Closure pairs a compiled function with its captured environment.
// Administrative continuations also capture the address they were
// created at: a continuation resumes where it was built, while a
// source function runs at the address its caller extends.
type Closure struct {
	Fn   *FuncExpr
	Env  *Env
	Addr *Address
}

// PrimFunc is the host-primitive convention: the same leading
// parameters as any compiled function. A primitive may resolve
// synchronously by returning a thunk of its continuation, or keep the
// continuation and return anything else — that is how the inference
// layer intercepts control.
type PrimFunc func(s *Store, k Value, a *Address, args []Value) (Value, error)

type Primitive struct {
	Name string
	Impl PrimFunc
}

// HostCont is a host-level continuation of one result parameter
// (plus the threaded store).
type HostCont struct {
	Name string
	Impl func(s *Store, v Value) (Value, error)
}

// Thunk is one pending step of execution: a deferred tail call.
// Discarding a thunk needs no cleanup; it captures no native frames.
type Thunk struct {
	fn   Value
	args []Value
	addr *Address
	pos  Pos
}

func (t *Thunk) force() (Value, error) {
	return applyValue(t.fn, t.args, t.addr, t.pos)
}

// Final wraps the value a run terminates with, distinguishing it from
// pending work in the driver loop.
type Final struct {
	Value Value
}

// continueWith defers delivery of v to the continuation k.
func continueWith(k Value, s *Store, v Value) Value {
	return &Thunk{fn: k, args: []Value{s, v}}
}

func evalExpr(env *Env, addr *Address, expr Expr) (Value, error) {
	for {
		switch e := expr.(type) {
		case *VarExpr:
			v, ok := env.lookup(e.Name)
			if !ok {
				return nil, runtimeErrorf(e.Pos, "%v not in scope", e.Name)
			}
			return v, nil
		case *LitExpr:
			return e.Value, nil
		case *FuncExpr:
			return &Closure{Fn: e, Env: env, Addr: addr}, nil
		case *IfExpr:
			c, err := evalExpr(env, addr, e.Cond)
			if err != nil {
				return nil, err
			}
			b, ok := c.(bool)
			if !ok {
				return nil, runtimeErrorf(e.Pos, "if condition must be a boolean, found %s", valueKind(c))
			}
			if b {
				expr = e.Then
			} else {
				expr = e.Else
			}
		case *ArrayExpr:
			elems := make([]Value, len(e.Elems))
			for i := range e.Elems {
				v, err := evalExpr(env, addr, e.Elems[i])
				if err != nil {
					return nil, err
				}
				elems[i] = v
			}
			return elems, nil
		case *ObjectExpr:
			obj := make(map[string]Value, len(e.Fields))
			for _, f := range e.Fields {
				v, err := evalExpr(env, addr, f.Val)
				if err != nil {
					return nil, err
				}
				obj[f.Key] = v
			}
			return obj, nil
		case *CallExpr:
			return evalCall(env, addr, e)
		default:
			return nil, contractErrorf(exprPos(expr), "residual %T node reached the evaluator", expr)
		}
	}
}

func evalCall(env *Env, addr *Address, e *CallExpr) (Value, error) {
	fv, err := evalExpr(env, addr, e.Func)
	if err != nil {
		return nil, err
	}
	argv := make([]Value, len(e.Args))
	for i := range e.Args {
		argv[i], err = evalExpr(env, addr, e.Args[i])
		if err != nil {
			return nil, err
		}
	}
	site := addr
	if e.label != "" {
		site = addr.Extend(e.label)
	}
	if e.cached {
		argv, err = consultMemo(e, argv)
		if err != nil {
			return nil, err
		}
		if th, ok := argv[0].(*Thunk); ok {
			return th, nil // memo hit
		}
	}
	if e.deferred {
		return &Thunk{fn: fv, args: argv, addr: site, pos: e.Pos}, nil
	}
	return applyValue(fv, argv, site, e.Pos)
}

// consultMemo implements the memoized call boundary. On a hit the
// recorded result is delivered straight to the caller's continuation;
// on a miss the continuation is wrapped so the result is recorded in
// the store before delivery. The returned slice either starts with
// the hit thunk or is the argument vector to proceed with.
func consultMemo(e *CallExpr, argv []Value) ([]Value, error) {
	if len(argv) < 2 {
		return nil, contractErrorf(e.Pos, "cached call without store and continuation")
	}
	s, ok := argv[0].(*Store)
	if !ok {
		return nil, contractErrorf(e.Pos, "cached call: first argument is %s, not the store", valueKind(argv[0]))
	}
	k := argv[1]
	user := argv[2:]
	if v, ok := s.memoLookup(e.label, user); ok {
		return []Value{continueWith(k, s, v)}, nil
	}
	label := e.label
	rec := &HostCont{
		Name: "memoize",
		Impl: func(s2 *Store, v Value) (Value, error) {
			return continueWith(k, s2.withMemo(label, user, v), v), nil
		},
	}
	out := make([]Value, 0, len(argv))
	out = append(out, s, rec)
	return append(out, user...), nil
}

// applyValue invokes a callable under the compiled convention.
func applyValue(fn Value, args []Value, addr *Address, pos Pos) (Value, error) {
	switch f := fn.(type) {
	case *Closure:
		fe := f.Fn
		if fe.isCont {
			addr = f.Addr
		}
		env := f.Env
		if fe.Name != "" && !fe.isCont {
			env = bindEnv(env, fe.Name, f)
		}
		if fe.collects {
			fixed := len(fe.Args) - 1
			if len(args) < fixed {
				return nil, runtimeErrorf(pos, "function %s takes at least %d arguments, found %d",
					funcName(fe), fixed-2, len(args)-2)
			}
			for i := 0; i < fixed; i++ {
				env = bindEnv(env, fe.Args[i], args[i])
			}
			rest := make([]Value, len(args)-fixed)
			copy(rest, args[fixed:])
			env = bindEnv(env, fe.Args[fixed], rest)
		} else {
			if len(args) != len(fe.Args) {
				if fe.isCont || len(args) < 2 {
					return nil, contractErrorf(pos, "%s expects %d arguments, got %d",
						funcName(fe), len(fe.Args), len(args))
				}
				return nil, runtimeErrorf(pos, "function %s takes %d arguments, found %d",
					funcName(fe), len(fe.Args)-2, len(args)-2)
			}
			for i := range args {
				env = bindEnv(env, fe.Args[i], args[i])
			}
		}
		return evalExpr(env, addr, fe.Body)
	case *Primitive:
		if len(args) < 2 {
			return nil, contractErrorf(pos, "primitive %s invoked without store and continuation", f.Name)
		}
		s, ok := args[0].(*Store)
		if !ok {
			return nil, contractErrorf(pos, "primitive %s: first argument is %s, not the store", f.Name, valueKind(args[0]))
		}
		v, err := f.Impl(s, args[1], addr, args[2:])
		if err != nil {
			if re, ok := err.(*RuntimeError); ok && re.Pos == (Pos{}) {
				re.Pos = pos
			}
			return nil, err
		}
		return v, nil
	case *HostCont:
		if len(args) != 2 {
			return nil, contractErrorf(pos, "continuation %s takes (store, value), got %d arguments", f.Name, len(args))
		}
		s, ok := args[0].(*Store)
		if !ok {
			return nil, contractErrorf(pos, "continuation %s: first argument is %s, not the store", f.Name, valueKind(args[0]))
		}
		return f.Impl(s, args[1])
	default:
		return nil, runtimeErrorf(pos, "cannot call non-function value %s", valueKind(fn))
	}
}

func funcName(f *FuncExpr) string {
	switch {
	case f.Name != "":
		return f.Name
	case f.path != "":
		return f.path
	default:
		return "<anonymous>"
	}
}

// --- primitive library ---

func numbers(name string, args []Value) (float64, float64, error) {
	if len(args) != 2 {
		return 0, 0, runtimeErrorf(Pos{}, "%s takes 2 arguments, found %d", name, len(args))
	}
	a, ok1 := args[0].(float64)
	b, ok2 := args[1].(float64)
	if !ok1 || !ok2 {
		return 0, 0, runtimeErrorf(Pos{}, "operands to %s must be numbers, found %s and %s",
			name, valueKind(args[0]), valueKind(args[1]))
	}
	return a, b, nil
}

func arith(name string, f func(a, b float64) float64) *Primitive {
	return &Primitive{Name: name, Impl: func(s *Store, k Value, a *Address, args []Value) (Value, error) {
		x, y, err := numbers(name, args)
		if err != nil {
			return nil, err
		}
		return continueWith(k, s, f(x, y)), nil
	}}
}

func compare(name string, f func(a, b float64) bool) *Primitive {
	return &Primitive{Name: name, Impl: func(s *Store, k Value, a *Address, args []Value) (Value, error) {
		x, y, err := numbers(name, args)
		if err != nil {
			return nil, err
		}
		return continueWith(k, s, f(x, y)), nil
	}}
}

func prim(name string, f func(s *Store, args []Value) (Value, error)) *Primitive {
	return &Primitive{Name: name, Impl: func(s *Store, k Value, a *Address, args []Value) (Value, error) {
		v, err := f(s, args)
		if err != nil {
			return nil, err
		}
		return continueWith(k, s, v), nil
	}}
}

func builtinPrims() []*Primitive {
	return []*Primitive{
		&Primitive{Name: "+", Impl: func(s *Store, k Value, a *Address, args []Value) (Value, error) {
			if len(args) == 2 {
				if x, ok := args[0].(string); ok {
					if y, ok := args[1].(string); ok {
						return continueWith(k, s, x+y), nil
					}
				}
			}
			x, y, err := numbers("+", args)
			if err != nil {
				return nil, err
			}
			return continueWith(k, s, x+y), nil
		}},
		arith("-", func(a, b float64) float64 { return a - b }),
		arith("*", func(a, b float64) float64 { return a * b }),
		arith("/", func(a, b float64) float64 { return a / b }),
		arith("%", math.Mod),
		compare("<", func(a, b float64) bool { return a < b }),
		compare("<=", func(a, b float64) bool { return a <= b }),
		compare(">", func(a, b float64) bool { return a > b }),
		compare(">=", func(a, b float64) bool { return a >= b }),
		prim("==", func(s *Store, args []Value) (Value, error) {
			if len(args) != 2 {
				return nil, runtimeErrorf(Pos{}, "== takes 2 arguments, found %d", len(args))
			}
			return reflect.DeepEqual(args[0], args[1]), nil
		}),
		prim("!=", func(s *Store, args []Value) (Value, error) {
			if len(args) != 2 {
				return nil, runtimeErrorf(Pos{}, "!= takes 2 arguments, found %d", len(args))
			}
			return !reflect.DeepEqual(args[0], args[1]), nil
		}),
		prim("not", func(s *Store, args []Value) (Value, error) {
			if len(args) != 1 {
				return nil, runtimeErrorf(Pos{}, "not takes 1 argument, found %d", len(args))
			}
			b, ok := args[0].(bool)
			if !ok {
				return nil, runtimeErrorf(Pos{}, "operand to not must be a boolean, found %s", valueKind(args[0]))
			}
			return !b, nil
		}),
		prim("floor", func(s *Store, args []Value) (Value, error) {
			if len(args) != 1 {
				return nil, runtimeErrorf(Pos{}, "floor takes 1 argument, found %d", len(args))
			}
			x, ok := args[0].(float64)
			if !ok {
				return nil, runtimeErrorf(Pos{}, "operand to floor must be a number, found %s", valueKind(args[0]))
			}
			return math.Floor(x), nil
		}),
		prim("len", func(s *Store, args []Value) (Value, error) {
			if len(args) != 1 {
				return nil, runtimeErrorf(Pos{}, "len takes 1 argument, found %d", len(args))
			}
			switch v := args[0].(type) {
			case []Value:
				return float64(len(v)), nil
			case string:
				return float64(len(v)), nil
			case map[string]Value:
				return float64(len(v)), nil
			default:
				return nil, runtimeErrorf(Pos{}, "len: cannot measure %s", valueKind(v))
			}
		}),
		prim("nth", func(s *Store, args []Value) (Value, error) {
			if len(args) != 2 {
				return nil, runtimeErrorf(Pos{}, "nth takes 2 arguments, found %d", len(args))
			}
			arr, ok := args[0].([]Value)
			if !ok {
				return nil, runtimeErrorf(Pos{}, "first argument to nth must be an array, found %s", valueKind(args[0]))
			}
			idx, ok := args[1].(float64)
			if !ok || idx != math.Trunc(idx) || idx < 0 || int(idx) >= len(arr) {
				return nil, runtimeErrorf(Pos{}, "nth: index %v out of range for array of %d", args[1], len(arr))
			}
			return arr[int(idx)], nil
		}),
		prim("push", func(s *Store, args []Value) (Value, error) {
			if len(args) != 2 {
				return nil, runtimeErrorf(Pos{}, "push takes 2 arguments, found %d", len(args))
			}
			arr, ok := args[0].([]Value)
			if !ok {
				return nil, runtimeErrorf(Pos{}, "first argument to push must be an array, found %s", valueKind(args[0]))
			}
			out := make([]Value, len(arr)+1)
			copy(out, arr)
			out[len(arr)] = args[1]
			return out, nil
		}),
		prim("concat", func(s *Store, args []Value) (Value, error) {
			if len(args) != 2 {
				return nil, runtimeErrorf(Pos{}, "concat takes 2 arguments, found %d", len(args))
			}
			x, ok1 := args[0].([]Value)
			y, ok2 := args[1].([]Value)
			if !ok1 || !ok2 {
				return nil, runtimeErrorf(Pos{}, "operands to concat must be arrays, found %s and %s",
					valueKind(args[0]), valueKind(args[1]))
			}
			out := make([]Value, 0, len(x)+len(y))
			return append(append(out, x...), y...), nil
		}),
		prim("get", func(s *Store, args []Value) (Value, error) {
			if len(args) != 2 {
				return nil, runtimeErrorf(Pos{}, "get takes 2 arguments, found %d", len(args))
			}
			obj, ok := args[0].(map[string]Value)
			if !ok {
				return nil, runtimeErrorf(Pos{}, "first argument to get must be an object, found %s", valueKind(args[0]))
			}
			key, ok := args[1].(string)
			if !ok {
				return nil, runtimeErrorf(Pos{}, "second argument to get must be a string, found %s", valueKind(args[1]))
			}
			v, ok := obj[key]
			if !ok {
				return nil, runtimeErrorf(Pos{}, "get: no field %q", key)
			}
			return v, nil
		}),
		prim("keys", func(s *Store, args []Value) (Value, error) {
			if len(args) != 1 {
				return nil, runtimeErrorf(Pos{}, "keys takes 1 argument, found %d", len(args))
			}
			obj, ok := args[0].(map[string]Value)
			if !ok {
				return nil, runtimeErrorf(Pos{}, "argument to keys must be an object, found %s", valueKind(args[0]))
			}
			names := make([]string, 0, len(obj))
			for k := range obj {
				names = append(names, k)
			}
			sort.Strings(names)
			out := make([]Value, len(names))
			for i, n := range names {
				out[i] = n
			}
			return out, nil
		}),
		prim("print", func(s *Store, args []Value) (Value, error) {
			parts := make([]string, len(args))
			for i := range args {
				parts[i] = FormatValue(args[i])
			}
			fmt.Println(strings.Join(parts, " "))
			return nil, nil
		}),
		&Primitive{Name: "sample", Impl: func(s *Store, k Value, a *Address, args []Value) (Value, error) {
			h := s.handler
			if h == nil || h.Sample == nil {
				return nil, runtimeErrorf(Pos{}, "sample: no handler bound")
			}
			return h.Sample(s, k, a, args)
		}},
		&Primitive{Name: "factor", Impl: func(s *Store, k Value, a *Address, args []Value) (Value, error) {
			h := s.handler
			if h == nil || h.Factor == nil {
				return nil, runtimeErrorf(Pos{}, "factor: no handler bound")
			}
			return h.Factor(s, k, a, args)
		}},
		&Primitive{Name: "exit", Impl: func(s *Store, k Value, a *Address, args []Value) (Value, error) {
			if h := s.handler; h != nil && h.Exit != nil {
				return h.Exit(s, k, a, args)
			}
			if s.exit == nil {
				return nil, runtimeErrorf(Pos{}, "exit: no run in progress")
			}
			var v Value
			if len(args) > 0 {
				v = args[0]
			}
			return continueWith(s.exit, s, v), nil
		}},
	}
}

func builtinNames() map[string]bool {
	names := make(map[string]bool)
	for _, p := range builtinPrims() {
		names[p.Name] = true
	}
	return names
}

// valueKind names a value's type the way source programs see it.
func valueKind(v Value) string {
	switch v.(type) {
	case nil:
		return "undefined"
	case float64:
		return "number"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []Value:
		return "array"
	case map[string]Value:
		return "object"
	case *Closure, *Primitive, *HostCont:
		return "function"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// FormatValue renders a runtime value for user-facing output.
func FormatValue(v Value) string {
	switch v := v.(type) {
	case nil:
		return "undefined"
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case []Value:
		parts := make([]string, len(v))
		for i := range v {
			parts[i] = FormatValue(v[i])
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]Value:
		names := make([]string, 0, len(v))
		for k := range v {
			names = append(names, k)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, n := range names {
			parts[i] = n + ": " + FormatValue(v[n])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *Closure:
		return "<function " + funcName(v.Fn) + ">"
	case *Primitive:
		return "<primitive " + v.Name + ">"
	case *HostCont:
		return "<continuation " + v.Name + ">"
	default:
		return fmt.Sprintf("%v", v)
	}
}
