package recommend

import (
	"context"

	"github.com/pluginforge/core/internal/engineerr"
	"github.com/pluginforge/core/internal/types"
)

// Trending returns the top-limit plugins by velocity score, deprecated
// plugins filtered (spec §4.5 "Trending"). period is accepted for cache
// keying parity with the other kinds but the underlying table already
// reflects all three windows; period only changes the cache key.
func (e *Engine) Trending(ctx context.Context, period types.TrendingPeriod, limit int) ([]types.Recommendation, error) {
	rctx := types.RecommendContext{Category: string(period), Limit: limit}
	return e.cached(ctx, kindTrending, rctx, e.ttls.Trending, func(ctx context.Context) ([]types.Recommendation, error) {
		return e.trending(ctx, limit)
	})
}

func (e *Engine) trending(ctx context.Context, limit int) ([]types.Recommendation, error) {
	top, err := e.store.TrendingTop(ctx, limit)
	if err != nil {
		return nil, engineerr.Store("trending", err)
	}
	if len(top) == 0 {
		return nil, nil
	}

	ids := make([]string, len(top))
	for i, t := range top {
		ids[i] = t.PluginID
	}
	plugins, err := e.store.GetPluginsByIDs(ctx, ids)
	if err != nil {
		return nil, engineerr.Store("trending: load plugins", err)
	}

	recs := make([]types.Recommendation, 0, len(top))
	for _, t := range top {
		p, ok := plugins[t.PluginID]
		if !ok || p.IsDeprecated {
			continue
		}
		recs = append(recs, types.Recommendation{
			Plugin: p,
			Score:  t.VelocityScore,
			Reason: "trending now",
			Kind:   types.KindTrending,
		})
	}
	return recs, nil
}

// Similar returns content-based recommendations seeded by a single
// plugin (spec §4.5 "Similar-to-one. Content-based similarity with I =
// {pluginId}").
func (e *Engine) Similar(ctx context.Context, pluginID string, limit int) ([]types.Recommendation, error) {
	if _, err := e.store.GetPlugin(ctx, pluginID); err != nil {
		return nil, engineerr.NotFound("similar", pluginID)
	}
	rctx := types.RecommendContext{InstalledPluginIDs: []string{pluginID}, Limit: limit}
	return e.cached(ctx, kindSimilar, rctx, e.ttls.Similar, func(ctx context.Context) ([]types.Recommendation, error) {
		recs, err := e.contentBased(ctx, []string{pluginID}, "", limit)
		if err != nil {
			return nil, err
		}
		for i := range recs {
			recs[i].Kind = types.KindContentBased
		}
		return recs, nil
	})
}
