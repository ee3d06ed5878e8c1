package webppl

import "reflect"

// The store pass threads one extra leading parameter, the store,
// through every compiled function and every call. After it runs no
// compiled code can reach implicit global state: anything a primitive
// wants to carry across calls must travel inside the store value.
// Continuations are functions too, so a compiled continuation ends up
// receiving (store, value).

type storePass struct {
	g *gensym
}

func storeThread(f *FuncExpr, g *gensym) *FuncExpr {
	st := &storePass{g: g}
	return st.rewrite(f, "").(*FuncExpr)
}

// rewrite threads the store through expr; svar names the store
// parameter of the innermost enclosing function.
func (st *storePass) rewrite(expr Expr, svar string) Expr {
	switch e := expr.(type) {
	case *FuncExpr:
		sv := st.g.fresh("s")
		return &FuncExpr{
			Name: e.Name,
			Args: append([]string{sv}, e.Args...),
			Rest: e.Rest,
			Body: st.rewrite(e.Body, sv),
			Pos:  e.Pos,
			path: e.path, isCont: e.isCont,
		}
	case *CallExpr:
		args := make([]Expr, len(e.Args)+1)
		args[0] = &VarExpr{Name: svar, Pos: e.Pos}
		for i := range e.Args {
			args[i+1] = st.rewrite(e.Args[i], svar)
		}
		return &CallExpr{
			Func: st.rewrite(e.Func, svar),
			Args: args,
			Pos:  e.Pos,
			label: e.label, cached: e.cached,
		}
	default:
		return rebuild(expr, func(ch Expr) Expr { return st.rewrite(ch, svar) })
	}
}

// Store is the threaded execution context: a single logical run owns
// one store value at a time. Set and Fork derive new stores instead
// of mutating, so two forked continuations never observe each other's
// subsequent changes.
type Store struct {
	data    map[string]Value
	memo    map[string][]memoEntry
	handler *Handler
	exit    Value // the run's designated exit continuation
}

type memoEntry struct {
	args   []Value
	result Value
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Get(name string) (Value, bool) {
	v, ok := s.data[name]
	return v, ok
}

// Set returns a store with name bound to v; the receiver is unchanged.
func (s *Store) Set(name string, v Value) *Store {
	t := s.clone()
	if t.data == nil {
		t.data = make(map[string]Value, 1)
	}
	t.data[name] = v
	return t
}

// Fork copies the store for an independently progressing run.
func (s *Store) Fork() *Store {
	return s.clone()
}

func (s *Store) clone() *Store {
	t := &Store{handler: s.handler, exit: s.exit}
	if s.data != nil {
		t.data = make(map[string]Value, len(s.data))
		for k, v := range s.data {
			t.data[k] = v
		}
	}
	if s.memo != nil {
		t.memo = make(map[string][]memoEntry, len(s.memo))
		for k, v := range s.memo {
			t.memo[k] = v
		}
	}
	return t
}

func (s *Store) Handler() *Handler {
	return s.handler
}

func (s *Store) WithHandler(h *Handler) *Store {
	t := s.clone()
	t.handler = h
	return t
}

func (s *Store) withExit(k Value) *Store {
	t := s.clone()
	t.exit = k
	return t
}

// memoLookup scans the entries recorded for a call site for an
// argument vector equal to args. Equality is structural, so
// independently built equal arrays or objects hit the same entry.
func (s *Store) memoLookup(label string, args []Value) (Value, bool) {
	for _, ent := range s.memo[label] {
		if reflect.DeepEqual(ent.args, args) {
			return ent.result, true
		}
	}
	return nil, false
}

func (s *Store) withMemo(label string, args []Value, result Value) *Store {
	t := s.clone()
	if t.memo == nil {
		t.memo = make(map[string][]memoEntry, 1)
	}
	t.memo[label] = append(t.memo[label][:len(t.memo[label]):len(t.memo[label])],
		memoEntry{args: args, result: result})
	return t
}
