//go:build property
// +build property

package spy_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/Mindburn-Labs/callspy/pkg/spy"
)

var errOdd = errors.New("odd")

// failOnOdd fails for odd inputs and echoes even ones.
func failOnOdd(n int) (int, error) {
	if n%2 != 0 {
		return 0, errOdd
	}
	return n, nil
}

// TestCallCountMatchesInvocations verifies the counter tracks every call.
// Property: after N calls, CallCount == N and Called == true
func TestCallCountMatchesInvocations(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("CallCount equals the number of invocations", prop.ForAll(
		func(inputs []int) bool {
			if len(inputs) == 0 {
				return true
			}
			s := spy.New(failOnOdd)
			for _, n := range inputs {
				s.Call(n)
			}
			return s.CallCount() == len(inputs) && s.Called()
		},
		gen.SliceOf(gen.IntRange(-1000, 1000)),
	))

	properties.TestingRun(t)
}

// TestLastCallWins verifies recorded state reflects only the final call.
// Property: LastArgs == inputs[len-1]; result and error are exclusive
func TestLastCallWins(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("state mirrors the last invocation", prop.ForAll(
		func(inputs []int) bool {
			if len(inputs) == 0 {
				return true
			}
			s := spy.New(failOnOdd)
			var got int
			for _, n := range inputs {
				got = s.Call(n)
			}
			last := inputs[len(inputs)-1]
			st := s.Snapshot()

			if !st.HasArgs || st.LastArgs != last {
				return false
			}
			if st.HasResult == (st.LastErr != nil) {
				return false
			}
			if last%2 != 0 {
				return errors.Is(st.LastErr, errOdd) && got == 0 && st.LastResult == 0
			}
			return st.LastResult == last && got == last
		},
		gen.SliceOf(gen.IntRange(-1000, 1000)),
	))

	properties.TestingRun(t)
}

// TestArgumentsRecordedExactly verifies dynamic spies record and forward the
// exact argument list.
// Property: LastArgs deep-equals the arguments given, and the wrapped
// function sees the same list exactly once
func TestArgumentsRecordedExactly(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("arguments round-trip through the spy", prop.ForAll(
		func(words []string) bool {
			args := make([]any, len(words))
			for i, w := range words {
				args[i] = w
			}

			var forwarded [][]any
			s := spy.NewDynamic(func(in ...any) (any, error) {
				forwarded = append(forwarded, in)
				return len(in), nil
			})
			res := s.Invoke(args...)

			recorded, ok := s.LastArgs()
			return ok &&
				reflect.DeepEqual(recorded, args) &&
				len(forwarded) == 1 &&
				reflect.DeepEqual(forwarded[0], args) &&
				res == len(args)
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
