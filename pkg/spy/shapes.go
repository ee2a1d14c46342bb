package spy

// None is the argument tuple of a function that takes no parameters.
type None struct{}

// Args2 is the argument tuple of a two-parameter function.
type Args2[T1, T2 any] struct {
	First  T1
	Second T2
}

// Args3 is the argument tuple of a three-parameter function.
type Args3[T1, T2, T3 any] struct {
	First  T1
	Second T2
	Third  T3
}

// New0 spies on a function without parameters.
func New0[R any](fn func() (R, error), opts ...Option) *Spy[None, R] {
	var wrapped func(None) (R, error)
	if fn != nil {
		wrapped = func(None) (R, error) { return fn() }
	}
	return New(wrapped, named(fn, opts)...)
}

// New2 spies on a two-parameter function.
func New2[T1, T2, R any](fn func(T1, T2) (R, error), opts ...Option) *Spy[Args2[T1, T2], R] {
	var wrapped func(Args2[T1, T2]) (R, error)
	if fn != nil {
		wrapped = func(a Args2[T1, T2]) (R, error) { return fn(a.First, a.Second) }
	}
	return New(wrapped, named(fn, opts)...)
}

// New3 spies on a three-parameter function.
func New3[T1, T2, T3, R any](fn func(T1, T2, T3) (R, error), opts ...Option) *Spy[Args3[T1, T2, T3], R] {
	var wrapped func(Args3[T1, T2, T3]) (R, error)
	if fn != nil {
		wrapped = func(a Args3[T1, T2, T3]) (R, error) { return fn(a.First, a.Second, a.Third) }
	}
	return New(wrapped, named(fn, opts)...)
}

// Bind0 returns the spy as a function of no parameters.
func Bind0[R any](s *Spy[None, R]) func() R {
	return func() R { return s.Call(None{}) }
}

// Bind2 returns the spy as a function of two parameters.
func Bind2[T1, T2, R any](s *Spy[Args2[T1, T2], R]) func(T1, T2) R {
	return func(a T1, b T2) R { return s.Call(Args2[T1, T2]{First: a, Second: b}) }
}

// Bind3 returns the spy as a function of three parameters.
func Bind3[T1, T2, T3, R any](s *Spy[Args3[T1, T2, T3], R]) func(T1, T2, T3) R {
	return func(a T1, b T2, c T3) R {
		return s.Call(Args3[T1, T2, T3]{First: a, Second: b, Third: c})
	}
}

// NoErr lifts a function that cannot fail into the shape New expects.
func NoErr[A, R any](fn func(A) R) func(A) (R, error) {
	if fn == nil {
		return nil
	}
	return func(a A) (R, error) { return fn(a), nil }
}

// Effect lifts a function without a result into the shape New expects.
func Effect[A any](fn func(A)) func(A) (None, error) {
	if fn == nil {
		return nil
	}
	return func(a A) (None, error) {
		fn(a)
		return None{}, nil
	}
}

// named puts the caller's function name ahead of user options so the
// adapter closure's symbol never leaks into reports.
func named(fn any, opts []Option) []Option {
	return append([]Option{WithName(funcName(fn))}, opts...)
}
