// Package recommend implements collaborative filtering, content-based
// similarity, and trending recommendations, blended and deduplicated
// into a single ranked list behind a TTL cache (spec §4.5).
package recommend

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pluginforge/core/internal/engineerr"
	"github.com/pluginforge/core/internal/store/sqlite"
	"github.com/pluginforge/core/internal/types"
)

// TTLs holds the per-recommendation-kind cache lifetime (spec §4.5
// "Cache... TTL per kind: collaborative 1h, content-based 2h, trending
// 30m, similar 1h"), tunable via config so an operator can retune
// freshness without a rebuild (SPEC_FULL.md §A.2).
type TTLs struct {
	Collaborative time.Duration
	ContentBased  time.Duration
	Trending      time.Duration
	Similar       time.Duration
}

// DefaultTTLs returns the spec's built-in per-kind cache lifetimes.
func DefaultTTLs() TTLs {
	return TTLs{
		Collaborative: time.Hour,
		ContentBased:  2 * time.Hour,
		Trending:      30 * time.Minute,
		Similar:       time.Hour,
	}
}

const (
	kindCollaborative = "collaborative"
	kindContentBased  = "content_based"
	kindTrending      = "trending"
	kindSimilar       = "similar"
	kindPersonalized  = "personalized"
)

// hotCacheSize bounds the in-process LRU layered in front of the
// SQL-backed recommendation_cache table (spec §4.5's cache is defined at
// the Store, but a hot in-memory layer avoids a round trip for the
// common case of back-to-back identical requests).
const hotCacheSize = 512

// hotEntry is one hot-layer slot; expiresAt carries the same expiry as
// the persisted cache row.
type hotEntry struct {
	recs      []types.Recommendation
	expiresAt time.Time
}

// Engine resolves collaborative, content-based, trending, similar-to-one,
// and personalized recommendation requests (spec §4.5).
type Engine struct {
	store *sqlite.Store
	log   *slog.Logger
	hot   *lru.Cache[string, hotEntry]
	ttls  TTLs
}

// New builds a recommendation Engine over store, using ttls for
// per-kind cache lifetimes (zero value means DefaultTTLs).
func New(store *sqlite.Store, log *slog.Logger, ttls TTLs) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if ttls == (TTLs{}) {
		ttls = DefaultTTLs()
	}
	hot, err := lru.New[string, hotEntry](hotCacheSize)
	if err != nil {
		// Only possible on a non-positive size, which hotCacheSize never is.
		panic(err)
	}
	return &Engine{store: store, log: log, hot: hot, ttls: ttls}
}

// cached runs compute and caches its result under kind+ctx with the
// given TTL, unless a live cache entry already exists (spec §4.5
// "Cache"). The hot in-process LRU is checked first and populated on
// every path so repeat lookups within the process skip the Store until
// the entry's expiry passes.
func (e *Engine) cached(ctx context.Context, kind string, rctx types.RecommendContext, ttl time.Duration, compute func(ctx context.Context) ([]types.Recommendation, error)) ([]types.Recommendation, error) {
	key := cacheKey(kind, rctx)
	now := time.Now()
	if h, ok := e.hot.Get(key); ok {
		if now.Before(h.expiresAt) {
			markCacheHit(ctx)
			return h.recs, nil
		}
		e.hot.Remove(key)
	}

	if entry, ok, err := e.store.GetCacheEntry(ctx, key, now); err != nil {
		e.log.Warn("recommendation cache read failed", "kind", kind, "error", err)
	} else if ok {
		var recs []types.Recommendation
		if err := json.Unmarshal(entry.ResultsBlob, &recs); err == nil {
			e.hot.Add(key, hotEntry{recs: recs, expiresAt: entry.ExpiresAt})
			markCacheHit(ctx)
			return recs, nil
		}
	}

	recs, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	blob, err := json.Marshal(recs)
	if err == nil {
		entry := types.CacheEntry{
			CacheKey:    key,
			Kind:        kind,
			Context:     canonicalContext(rctx),
			ResultsBlob: blob,
			GeneratedAt: now,
			ExpiresAt:   now.Add(ttl),
		}
		if err := e.store.PutCacheEntry(ctx, entry, rctx.InstalledPluginIDs); err != nil {
			e.log.Warn("recommendation cache write failed", "kind", kind, "error", err)
		}
	}
	e.hot.Add(key, hotEntry{recs: recs, expiresAt: now.Add(ttl)})
	return recs, nil
}

// InvalidateForPlugin expires every persisted cache entry referencing
// pluginID and drops the entire hot layer (the hot layer has no index by
// plugin id, so a full purge is the simplest correct invalidation; it is
// bounded in size and cheap to repopulate) — spec §4.5 "Cache
// invalidation: on install or uninstall of plugin p...".
func (e *Engine) InvalidateForPlugin(ctx context.Context, pluginID string) error {
	if err := e.store.InvalidateCacheForPlugin(ctx, pluginID, time.Now()); err != nil {
		return engineerr.Store("invalidate recommendation cache", err)
	}
	e.hot.Purge()
	return nil
}

// RecordInstall records an install and invalidates recommendation cache
// entries referencing pluginID (spec §4.5).
func (e *Engine) RecordInstall(ctx context.Context, pluginID, userID, version, source string, at time.Time) error {
	if err := e.store.RecordInstall(ctx, pluginID, userID, version, source, at); err != nil {
		return engineerr.Store("record install", err)
	}
	return e.InvalidateForPlugin(ctx, pluginID)
}

// RecordUninstall records an uninstall and invalidates recommendation
// cache entries referencing pluginID (spec §4.5).
func (e *Engine) RecordUninstall(ctx context.Context, pluginID, userID string, at time.Time) error {
	if err := e.store.RecordUninstall(ctx, pluginID, userID, at); err != nil {
		return engineerr.Store("record uninstall", err)
	}
	return e.InvalidateForPlugin(ctx, pluginID)
}
