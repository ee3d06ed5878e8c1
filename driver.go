package webppl

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// Handler intercepts the probabilistic primitives for one run. Each
// hook follows the primitive convention, so a handler may resolve a
// choice on the spot (thunk the continuation) or capture the
// continuation for later and return something else entirely, which
// unwinds straight to the driver loop.
type Handler struct {
	Sample PrimFunc
	Factor PrimFunc
	Exit   PrimFunc
}

// DefaultHandler runs the program forward once: sample draws
// uniformly from its array argument, factor accumulates its score in
// the store, exit delivers to the run's exit continuation.
func DefaultHandler(rng *rand.Rand) *Handler {
	return &Handler{
		Sample: func(s *Store, k Value, a *Address, args []Value) (Value, error) {
			if len(args) != 1 {
				return nil, runtimeErrorf(Pos{}, "sample takes 1 argument, found %d", len(args))
			}
			choices, ok := args[0].([]Value)
			if !ok || len(choices) == 0 {
				return nil, runtimeErrorf(Pos{}, "sample: argument must be a non-empty array, found %s", valueKind(args[0]))
			}
			return continueWith(k, s, choices[rng.Intn(len(choices))]), nil
		},
		Factor: func(s *Store, k Value, a *Address, args []Value) (Value, error) {
			if len(args) != 1 {
				return nil, runtimeErrorf(Pos{}, "factor takes 1 argument, found %d", len(args))
			}
			w, ok := args[0].(float64)
			if !ok {
				return nil, runtimeErrorf(Pos{}, "factor: argument must be a number, found %s", valueKind(args[0]))
			}
			score := 0.0
			if prev, ok := s.Get("score"); ok {
				score = prev.(float64)
			}
			return continueWith(k, s.Set("score", score+w), nil), nil
		},
	}
}

// Runtime holds the global environment a compiled program runs in.
type Runtime struct {
	globals *Env
}

func NewRuntime() *Runtime {
	r := &Runtime{}
	for _, p := range builtinPrims() {
		r.globals = bindEnv(r.globals, p.Name, p)
	}
	return r
}

// Bind adds a global binding, shadowing any existing one. Host values
// must follow the primitive convention to be callable.
func (r *Runtime) Bind(name string, v Value) {
	r.globals = bindEnv(r.globals, name, v)
}

// Run drives a compiled program to completion on the given store.
func (r *Runtime) Run(c *Compiled, s *Store) (Value, error) {
	topk := &HostCont{
		Name: "top",
		Impl: func(s *Store, v Value) (Value, error) {
			return &Final{Value: v}, nil
		},
	}
	return r.RunWith(c, s, topk)
}

// RunWith drives a compiled program with a caller-supplied top
// continuation, which also becomes the run's exit target. The driver
// loop is the only place native stack depth is spent per step: every
// tail call in compiled code comes back here as a thunk.
func (r *Runtime) RunWith(c *Compiled, s *Store, k Value) (result Value, err error) {
	runID := uuid.NewString()
	defer func() {
		if p := recover(); p != nil {
			err = &RuntimeError{Msg: fmt.Sprintf("internal: %v", p), RunID: runID}
		}
	}()

	if s == nil {
		s = NewStore()
	}
	s = s.withExit(k)

	main := &Closure{Fn: c.Main, Env: r.globals, Addr: rootAddress()}
	v, err := applyValue(main, []Value{s, k}, rootAddress(), c.Main.Pos)
	return r.loop(v, err, runID)
}

// Resume re-enters a run at a captured continuation, delivering v to
// it on store s, and drives the rest of the run. This is the entry
// point for host code that intercepted a primitive and held on to k.
func (r *Runtime) Resume(k Value, s *Store, v Value) (Value, error) {
	runID := uuid.NewString()
	w, err := applyValue(k, []Value{s, v}, rootAddress(), Pos{})
	return r.loop(w, err, runID)
}

func (r *Runtime) loop(v Value, err error, runID string) (Value, error) {
	for {
		if err != nil {
			if re, ok := err.(*RuntimeError); ok && re.RunID == "" {
				re.RunID = runID
			}
			return nil, err
		}
		switch w := v.(type) {
		case *Thunk:
			v, err = w.force()
		case *Final:
			return w.Value, nil
		default:
			// a handler kept the continuation and returned a host
			// value; hand it to the caller, who may Resume later
			return v, nil
		}
	}
}
