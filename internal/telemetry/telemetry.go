// Package telemetry wires the Facade's per-call instrumentation: a
// request counter and an execution-time histogram, exported to stdout by
// default (SPEC_FULL.md ambient-stack "per-call instrumentation is
// ambient observability, not a reporting surface"). Grounded on the
// teacher's `internal/telemetry` Meter/Tracer delegation pattern
// referenced from `internal/compact/haiku.go` and
// `internal/storage/dolt/store.go` (the package itself was not present
// in the retrieved pack, only its call sites).
package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const instrumentationName = "github.com/pluginforge/core"

// NewStdoutMeterProvider builds a MeterProvider that periodically writes
// metrics to w (stdout by default). Embedders that want a different
// backend build their own metric.MeterProvider and pass it to New
// instead of calling this.
func NewStdoutMeterProvider(w io.Writer) (*sdkmetric.MeterProvider, error) {
	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, err
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
	), nil
}

// Instrumentation holds the Facade's OTel instruments: a request counter
// tagged by operation/success and an execution-time histogram
// (SPEC_FULL.md ambient stack).
type Instrumentation struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	log      *slog.Logger
}

// New builds Instrumentation against mp. A nil mp falls back to a
// stdout-exporting provider so the engine is observable with zero
// configuration; a nil log falls back to slog.Default.
func New(mp metric.MeterProvider, log *slog.Logger) (*Instrumentation, error) {
	if log == nil {
		log = slog.Default()
	}
	if mp == nil {
		var err error
		mp, err = NewStdoutMeterProvider(os.Stdout)
		if err != nil {
			return nil, err
		}
	}
	m := mp.Meter(instrumentationName)

	requests, err := m.Int64Counter("plugin_engine.requests",
		metric.WithDescription("Facade calls, tagged by operation and outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := m.Float64Histogram("plugin_engine.execution_time_ms",
		metric.WithDescription("Facade call execution time"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	return &Instrumentation{requests: requests, duration: duration, log: log}, nil
}

// RecordCall records one Facade call's outcome and latency.
func (i *Instrumentation) RecordCall(ctx context.Context, op string, elapsed time.Duration, success bool) {
	attrs := metric.WithAttributes(
		attribute.String("operation", op),
		attribute.Bool("success", success),
	)
	i.requests.Add(ctx, 1, attrs)
	i.duration.Record(ctx, float64(elapsed)/float64(time.Millisecond), attrs)
	if !success {
		i.log.Warn("facade call failed", "operation", op, "elapsed_ms", float64(elapsed)/float64(time.Millisecond))
	}
}

// Timer starts timing a Facade call; call Stop with the call's outcome
// once it completes.
func (i *Instrumentation) Timer(op string) *callTimer {
	return &callTimer{i: i, op: op, start: time.Now()}
}

type callTimer struct {
	i     *Instrumentation
	op    string
	start time.Time
}

// Stop records the call's elapsed time and outcome.
func (t *callTimer) Stop(ctx context.Context, success bool) {
	t.i.RecordCall(ctx, t.op, time.Since(t.start), success)
}
