package task

// Func pairs a task entry point with its symbolic name, the history
// table's key. Go function values are not comparable to each other, so
// the *Func pointer itself is the handle: history lookups compare *Func
// by pointer identity on the hot path, falling back to the Name string
// only for reporting (history.Table.ByName) and cross-registration
// lookups.
type Func struct {
	name string
	run  func(*Context)
}

// NewFunc registers a task entry point under a symbolic name.
func NewFunc(name string, run func(*Context)) *Func {
	return &Func{name: name, run: run}
}

// Name returns the function's history key.
func (f *Func) Name() string {
	return f.name
}

func (f *Func) invoke(ctx *Context) {
	f.run(ctx)
}
