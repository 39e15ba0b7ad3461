package recommend

import (
	"context"
	"sync/atomic"
)

// CacheStat reports whether a single Engine call was served from cache.
// The facade attaches one to the context before calling Recommend/
// Trending/etc. and reads it back afterward to populate the envelope's
// metadata.cached field (spec §4.7) — the same context-carries-an-
// observer pattern net/http/httptrace uses for per-request tracing,
// chosen here over widening every method's return signature. Recommend()
// fans its collaborative/content-based/trending sub-queries out
// concurrently (see personalize.go), each sharing this same context, so
// Hit is an atomic.Bool rather than a plain field: it is only ever set
// true on a hit, never reset to false, so a concurrent miss in one
// sub-query can never race away a hit recorded by another.
type CacheStat struct {
	hit atomic.Bool
}

// Hit reports whether any wrapped sub-call was served from cache.
func (s *CacheStat) Hit() bool { return s.hit.Load() }

type cacheStatKey struct{}

// WithCacheStat returns a context that cached() will report cache hits
// into via stat.
func WithCacheStat(ctx context.Context, stat *CacheStat) context.Context {
	return context.WithValue(ctx, cacheStatKey{}, stat)
}

func markCacheHit(ctx context.Context) {
	if stat, ok := ctx.Value(cacheStatKey{}).(*CacheStat); ok {
		stat.hit.Store(true)
	}
}
