package spy

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/Mindburn-Labs/callspy/pkg/tape"
)

// instruments holds the metric handles created once per spy.
type instruments struct {
	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

func newInstruments(o options) instruments {
	var inst instruments
	if o.meter == nil {
		return inst
	}
	var err error
	inst.calls, err = o.meter.Int64Counter("spy.calls",
		metric.WithDescription("Invocations observed by a spy"),
		metric.WithUnit("{call}"))
	if err != nil && o.logger != nil {
		o.logger.Warn("spy: counter unavailable", "spy", o.name, "error", err)
	}
	inst.duration, err = o.meter.Float64Histogram("spy.call.duration",
		metric.WithDescription("Time spent in the wrapped function"),
		metric.WithUnit("s"))
	if err != nil && o.logger != nil {
		o.logger.Warn("spy: histogram unavailable", "spy", o.name, "error", err)
	}
	return inst
}

type callOutcome struct {
	call     int
	args     any
	result   any
	err      error
	panicked bool
	start    time.Time
	elapsed  time.Duration
}

func (c callOutcome) label() string {
	switch {
	case c.panicked:
		return "panic"
	case c.err != nil:
		return "error"
	default:
		return "ok"
	}
}

type observation struct {
	ctx  context.Context
	span trace.Span
	opts options
	inst instruments
}

func (i instruments) begin(o options, call int) observation {
	obs := observation{ctx: context.Background(), opts: o, inst: i}
	if o.tracer != nil {
		obs.ctx, obs.span = o.tracer.Start(obs.ctx, "spy.call",
			trace.WithAttributes(
				attribute.String("spy.name", o.name),
				attribute.Int("spy.call", call),
			))
	}
	return obs
}

func (obs observation) end(c callOutcome) {
	o := obs.opts
	outcome := c.label()

	if obs.span != nil {
		obs.span.SetAttributes(attribute.String("spy.outcome", outcome))
		if c.err != nil {
			obs.span.RecordError(c.err)
			obs.span.SetStatus(codes.Error, c.err.Error())
		}
		obs.span.End()
	}

	attrs := metric.WithAttributes(
		attribute.String("spy", o.name),
		attribute.String("outcome", outcome),
	)
	if obs.inst.calls != nil {
		obs.inst.calls.Add(obs.ctx, 1, attrs)
	}
	if obs.inst.duration != nil {
		obs.inst.duration.Record(obs.ctx, c.elapsed.Seconds(), attrs)
	}

	if o.recorder != nil {
		var result any
		if c.err == nil {
			result = c.result
		}
		o.recorder.Record(tape.CallRecord{
			Spy:      o.name,
			Call:     c.call,
			Args:     c.args,
			Result:   result,
			Err:      c.err,
			Panicked: c.panicked,
			Start:    c.start,
			Duration: c.elapsed,
		})
	}

	if o.logger != nil {
		fields := []any{"spy", o.name, "call", c.call, "outcome", outcome, "duration", c.elapsed}
		if c.err != nil {
			fields = append(fields, "error", c.err)
		}
		o.logger.Log(obs.ctx, slog.LevelDebug, "spy invoked", fields...)
	}
}
