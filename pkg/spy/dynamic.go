package spy

// Dynamic spies on a signature-agnostic function. Arguments are recorded
// as a slice, empty for a call without arguments.
type Dynamic struct {
	*Spy[[]any, any]
	orig func(args ...any) (any, error)
}

// NewDynamic creates a Dynamic spy around fn. A nil fn is replaced with a
// function that accepts any arguments and returns nil.
func NewDynamic(fn func(args ...any) (any, error), opts ...Option) *Dynamic {
	opts = named(fn, opts)
	if fn == nil {
		fn = func(...any) (any, error) { return nil, nil }
	}
	return &Dynamic{
		Spy: New(func(args []any) (any, error) {
			return fn(cloneArgs(args)...)
		}, opts...),
		orig: fn,
	}
}

// Invoke calls the wrapped function with args. The recorded argument slice
// is a copy, and the wrapped function receives a copy of its own, so
// neither the caller nor the wrapped function can change LastArgs.
func (d *Dynamic) Invoke(args ...any) any {
	return d.Call(cloneArgs(args))
}

// LastArgs returns a copy of the arguments of the most recent invocation.
func (d *Dynamic) LastArgs() ([]any, bool) {
	args, ok := d.Spy.LastArgs()
	if !ok {
		return nil, false
	}
	return cloneArgs(args), true
}

// Snapshot is Spy.Snapshot with LastArgs copied.
func (d *Dynamic) Snapshot() State[[]any, any] {
	st := d.Spy.Snapshot()
	if st.HasArgs {
		st.LastArgs = cloneArgs(st.LastArgs)
	}
	return st
}

// Variadic returns the spy as a variadic function value.
func (d *Dynamic) Variadic() func(args ...any) any {
	return d.Invoke
}

// Original returns the wrapped function.
func (d *Dynamic) Original() func(args ...any) (any, error) {
	return d.orig
}

func cloneArgs(args []any) []any {
	out := make([]any, len(args))
	copy(out, args)
	return out
}
