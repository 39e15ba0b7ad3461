package pluginforge

import (
	"context"
	"time"

	"github.com/pluginforge/core/internal/engineerr"
	"github.com/pluginforge/core/internal/recommend"
)

// do runs fn, timing it and mapping any error through engineerr.Message
// into the envelope's error field, and records the call with the
// telemetry instrumentation layer (spec §4.7, §7).
func do[T any](ctx context.Context, e *Engine, op string, fn func(ctx context.Context) (T, error)) Envelope {
	start := time.Now()
	data, err := fn(ctx)
	elapsed := time.Since(start)
	e.inst.RecordCall(ctx, op, elapsed, err == nil)

	env := Envelope{
		Success: err == nil,
		Metadata: Metadata{
			Timestamp:       time.Now(),
			ExecutionTimeMS: elapsed.Milliseconds(),
		},
	}
	if err != nil {
		env.Error = engineerr.Message(err)
		return env
	}
	env.Data = data
	return env
}

// doRecommend is do, plus it attaches a recommend.CacheStat to ctx
// before calling fn and copies the observed hit/miss into the
// envelope's metadata.cached (spec §4.7 "cached true only on a
// recommendation-path cache hit").
func doRecommend[T any](ctx context.Context, e *Engine, op string, fn func(ctx context.Context) (T, error)) Envelope {
	stat := &recommend.CacheStat{}
	ctx = recommend.WithCacheStat(ctx, stat)

	start := time.Now()
	data, err := fn(ctx)
	elapsed := time.Since(start)
	e.inst.RecordCall(ctx, op, elapsed, err == nil)

	env := Envelope{
		Success: err == nil,
		Metadata: Metadata{
			Timestamp:       time.Now(),
			ExecutionTimeMS: elapsed.Milliseconds(),
			Cached:          stat.Hit(),
		},
	}
	if err != nil {
		env.Error = engineerr.Message(err)
		return env
	}
	env.Data = data
	return env
}
