package webppl

// compile.go sequences the passes. Each pass consumes the tree the
// previous one produced; a pass may assume every earlier invariant
// holds and treats a violation as a programming error.

// Options configures a compilation unit.
type Options struct {
	// NoOptimize disables administrative-redex elimination. Purely a
	// constant-factor switch; results are identical either way.
	NoOptimize bool `yaml:"no_optimize"`

	// Caching enables the memoization pass.
	Caching bool `yaml:"caching"`

	// CacheFunctions names the functions to cache. A named function
	// that fails the free-variable check is a compile error. Empty
	// means every eligible let-bound function.
	CacheFunctions []string `yaml:"cache_functions"`

	// Globals are extra names the embedder will bind at run time,
	// treated as safe by the caching eligibility check.
	Globals []string `yaml:"globals"`

	// Trace, when set, receives the tree after each stage.
	Trace func(stage string, root Expr) `yaml:"-"`
}

// Compiled is a compilation unit in its final form: a single function
// obeying the convention (store, continuation, address, ...args).
// The tree is immutable and may be shared by any number of runs.
type Compiled struct {
	Main   *FuncExpr
	Source *Program
}

// Compile runs the pipeline over a parsed program. Compile failures
// are always fatal to the unit; nothing is partially emitted.
func Compile(prog *Program, opts Options) (unit *Compiled, err error) {
	defer func() {
		if e := recover(); e != nil {
			if ce, ok := e.(*CompileError); ok {
				unit, err = nil, ce
				return
			}
			panic(e)
		}
	}()

	trace := opts.Trace
	if trace == nil {
		trace = func(string, Expr) {}
	}

	main := &FuncExpr{Name: "main", Body: prog.Body, Pos: prog.Pos}
	g := new(gensym)

	named := namePass(main)
	trace("naming", named)

	if opts.Caching {
		safe := builtinNames()
		for _, n := range opts.Globals {
			safe[n] = true
		}
		named = cachingPass(named, opts.CacheFunctions, safe)
		trace("caching", named)
	}

	cpsed := cpsPass(named.(*FuncExpr), g)
	trace("cps", cpsed)
	if err := checkTailCalls(cpsed); err != nil {
		return nil, compileErrorf(prog.Pos, "internal: %v", err)
	}

	stored := storeThread(cpsed, g)
	trace("store", stored)

	collected := varargsPass(stored)
	trace("varargs", collected)

	if !opts.NoOptimize {
		collected = optimizePass(collected)
		trace("optimize", collected)
	}

	final := trampolinePass(collected)
	trace("trampoline", final)

	return &Compiled{Main: final.(*FuncExpr), Source: prog}, nil
}

// CompileString parses and compiles a source string.
func CompileString(src string, opts Options) (*Compiled, error) {
	prog, err := ParseString(src)
	if err != nil {
		return nil, err
	}
	return Compile(prog, opts)
}
