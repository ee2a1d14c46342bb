// Package spy records invocations of a wrapped function for use in tests.
//
// A Spy forwards every call to the function it wraps and remembers the
// most recent call: whether it happened, how many calls there have been,
// the arguments, the result and the error. It never changes what the
// wrapped function does and never re-raises its failures; a returned error
// or a panic is captured and exposed through LastErr.
//
//	parse := spy.New(func(s string) (int, error) { return strconv.Atoi(s) })
//	svc := NewService(parse.Func())
//	svc.Handle("1")
//	parse.Called()     // true
//	parse.LastArgs()   // "1", true
//	parse.LastResult() // 1, true
//
// Spies observe a single function. Expectations, argument matchers, stubbed
// return values and cross-spy ordering are out of scope.
package spy

import (
	"errors"
	"sync"
)

// Spy wraps a function of one argument tuple A returning R.
//
// Functions with zero, two or three parameters are adapted with New0, New2
// and New3; signature-agnostic callables use NewDynamic.
type Spy[A, R any] struct {
	fn   func(A) (R, error)
	opts options
	inst instruments

	mu         sync.Mutex
	called     bool
	callCount  int
	lastArgs   A
	hasArgs    bool
	lastResult R
	hasResult  bool
	lastErr    error
}

// State is a consistent copy of everything a Spy has recorded.
type State[A, R any] struct {
	Called     bool
	CallCount  int
	LastArgs   A
	HasArgs    bool
	LastResult R
	HasResult  bool
	LastErr    error
}

// New creates a Spy around fn. A nil fn is replaced with a function that
// accepts any argument and returns the zero R.
func New[A, R any](fn func(A) (R, error), opts ...Option) *Spy[A, R] {
	o := defaultOptions(fn)
	if fn == nil {
		fn = func(A) (R, error) {
			var zero R
			return zero, nil
		}
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Spy[A, R]{
		fn:   fn,
		opts: o,
		inst: newInstruments(o),
	}
}

// Call invokes the wrapped function with args and returns its result. If
// the function fails the zero R is returned and the failure is available
// from LastErr.
func (s *Spy[A, R]) Call(args A) R {
	res, _ := s.call(args)
	return res
}

// Func returns a plain function value that calls through the spy, for
// injection where the real dependency is expected.
func (s *Spy[A, R]) Func() func(A) R {
	return s.Call
}

// Passthrough returns a function that calls through the spy and hands the
// wrapped function's error back to the caller. The error is still recorded.
func (s *Spy[A, R]) Passthrough() func(A) (R, error) {
	return s.call
}

// Original returns the wrapped function.
func (s *Spy[A, R]) Original() func(A) (R, error) {
	return s.fn
}

// Name returns the name used in logs, traces and tapes.
func (s *Spy[A, R]) Name() string {
	return s.opts.name
}

// Called reports whether the spy has been invoked at least once.
func (s *Spy[A, R]) Called() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.called
}

// CallCount returns the number of invocations so far.
func (s *Spy[A, R]) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}

// LastArgs returns the arguments of the most recent invocation. ok is false
// before the first invocation.
func (s *Spy[A, R]) LastArgs() (args A, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastArgs, s.hasArgs
}

// LastResult returns the value produced by the most recent invocation. ok
// is false before the first invocation and when that invocation failed.
func (s *Spy[A, R]) LastResult() (result R, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult, s.hasResult
}

// LastErr returns the error raised by the most recent invocation, or nil if
// it succeeded or the spy has not been called.
func (s *Spy[A, R]) LastErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Snapshot returns all recorded fields read under a single lock.
func (s *Spy[A, R]) Snapshot() State[A, R] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State[A, R]{
		Called:     s.called,
		CallCount:  s.callCount,
		LastArgs:   s.lastArgs,
		HasArgs:    s.hasArgs,
		LastResult: s.lastResult,
		HasResult:  s.hasResult,
		LastErr:    s.lastErr,
	}
}

func (s *Spy[A, R]) call(args A) (res R, err error) {
	s.mu.Lock()
	s.called = true
	s.callCount++
	n := s.callCount
	s.lastArgs = args
	s.hasArgs = true
	s.lastErr = nil
	s.mu.Unlock()

	// The lock is not held while fn runs so a re-entrant call through the
	// same spy cannot deadlock.
	obs := s.inst.begin(s.opts, n)
	start := s.opts.clock()
	returned := false

	// Deferred so the outcome is written even when fn calls runtime.Goexit.
	defer func() {
		if !returned {
			err = ErrGoexit
		}
		elapsed := s.opts.clock().Sub(start)
		if err != nil {
			var zero R
			res = zero
		}
		s.record(res, err)

		var pe *PanicError
		obs.end(callOutcome{
			call:     n,
			args:     args,
			result:   res,
			err:      err,
			panicked: errors.As(err, &pe),
			start:    start,
			elapsed:  elapsed,
		})
	}()

	res, err = s.invoke(args)
	returned = true
	return res, err
}

// record stores the outcome of a finished invocation. Result and error are
// both written since a re-entrant call may have set either.
func (s *Spy[A, R]) record(res R, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		var zero R
		s.lastResult = zero
		s.hasResult = false
		s.lastErr = err
		return
	}
	s.lastResult = res
	s.hasResult = true
	s.lastErr = nil
}

func (s *Spy[A, R]) invoke(args A) (res R, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero R
			res = zero
			err = newPanicError(r)
		}
	}()
	return s.fn(args)
}
