package spy

import (
	"log/slog"
	"reflect"
	"runtime"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/Mindburn-Labs/callspy/pkg/tape"
)

// Option configures a Spy. Options add reporting only; none of them change
// what the spy records or returns.
type Option func(*options)

type options struct {
	name     string
	logger   *slog.Logger
	recorder *tape.Recorder
	tracer   trace.Tracer
	meter    metric.Meter
	clock    func() time.Time
}

func defaultOptions(fn any) options {
	return options{
		name:  funcName(fn),
		clock: time.Now,
	}
}

// WithName sets the name reported in logs, spans and tape entries. It
// defaults to the wrapped function's symbol name.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger emits one debug record per invocation.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRecorder appends every invocation to a shared tape.
func WithRecorder(r *tape.Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithTracer wraps every invocation in a span.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// WithMeter counts invocations and records their duration.
func WithMeter(m metric.Meter) Option {
	return func(o *options) {
		o.meter = m
	}
}

// WithClock overrides the clock used for durations and tape timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return "noop"
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return "func"
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}
