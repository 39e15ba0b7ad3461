package recommend

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/pluginforge/core/internal/engineerr"
	"github.com/pluginforge/core/internal/types"
)

// Recommend runs collaborative, content-based, and trending concurrently,
// concatenates in that order, deduplicates by plugin id keeping the
// first (highest-sorted) occurrence, optionally excludes `I`, and returns
// the top-limit (spec §4.5 "Personalized recommend"). A failing
// sub-query contributes nothing rather than aborting the call; only a
// total failure across all three surfaces as an error.
func (e *Engine) Recommend(ctx context.Context, rctx types.RecommendContext) ([]types.Recommendation, error) {
	limit := rctx.Limit
	if limit <= 0 {
		limit = 20
	}

	var collaborative, content, trending []types.Recommendation
	var collabErr, contentErr, trendingErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		collaborative, collabErr = e.Collaborative(gctx, rctx.InstalledPluginIDs, limit)
		return nil // sub-query failures are captured, not propagated (spec §4.6 failure semantics)
	})
	g.Go(func() error {
		content, contentErr = e.ContentBased(gctx, rctx.InstalledPluginIDs, rctx.Category, limit)
		return nil
	})
	g.Go(func() error {
		trending, trendingErr = e.Trending(gctx, types.PeriodWeek, limit)
		return nil
	})
	_ = g.Wait() // the three goroutines above never return a non-nil error

	if collabErr != nil {
		e.log.Warn("collaborative sub-query failed", "error", collabErr)
	}
	if contentErr != nil {
		e.log.Warn("content-based sub-query failed", "error", contentErr)
	}
	if trendingErr != nil {
		e.log.Warn("trending sub-query failed", "error", trendingErr)
	}
	if collabErr != nil && contentErr != nil && trendingErr != nil {
		return nil, engineerr.Store("recommend", collabErr)
	}

	in := toSet(rctx.InstalledPluginIDs)
	seen := make(map[string]struct{})
	merged := make([]types.Recommendation, 0, len(collaborative)+len(content)+len(trending))
	for _, group := range [][]types.Recommendation{collaborative, content, trending} {
		for _, r := range group {
			if rctx.ExcludeInstalled && isIn(in, r.Plugin.PluginID) {
				continue
			}
			if _, dup := seen[r.Plugin.PluginID]; dup {
				continue
			}
			seen[r.Plugin.PluginID] = struct{}{}
			merged = append(merged, r)
		}
	}

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}
