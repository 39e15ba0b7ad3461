package recommend_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pluginforge/core/internal/indexer"
	"github.com/pluginforge/core/internal/recommend"
	"github.com/pluginforge/core/internal/store/sqlite"
	"github.com/pluginforge/core/internal/types"
)

func setup(t *testing.T) (*sqlite.Store, *indexer.Indexer, *recommend.Engine) {
	t.Helper()
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	ix := indexer.New(st, nil, indexer.DefaultConfig())
	eng := recommend.New(st, nil, recommend.DefaultTTLs())
	return st, ix, eng
}

func TestCollaborativeRecommendsCoInstalledPlugins(t *testing.T) {
	st, ix, eng := setup(t)
	ctx := context.Background()

	for _, p := range []types.Plugin{
		{PluginID: "a", Name: "Alpha", Category: types.CategoryTools},
		{PluginID: "b", Name: "Beta", Category: types.CategoryTools},
		{PluginID: "c", Name: "Gamma", Category: types.CategoryTools},
	} {
		require.NoError(t, ix.IndexPlugin(ctx, p))
	}

	now := time.Now()
	// U1: a, b. U2: a, b. U3: a, b, c. This drives a<->b to a strong
	// relationship and a<->c / b<->c weaker (single co-occurrence each,
	// below the count>=2 persistence floor) so only a<->b survives.
	for _, u := range []string{"u1", "u2", "u3"} {
		require.NoError(t, st.RecordInstall(ctx, "a", u, "1.0", "manual", now))
		require.NoError(t, st.RecordInstall(ctx, "b", u, "1.0", "manual", now))
	}
	require.NoError(t, st.RecordInstall(ctx, "c", "u3", "1.0", "manual", now))

	require.NoError(t, ix.RefreshRelationships(ctx))

	recs, err := eng.Collaborative(ctx, []string{"a"}, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "b", recs[0].Plugin.PluginID)
	require.Equal(t, types.KindCollaborative, recs[0].Kind)
}

func TestCollaborativeExcludesDeprecated(t *testing.T) {
	st, ix, eng := setup(t)
	ctx := context.Background()

	require.NoError(t, ix.IndexPlugin(ctx, types.Plugin{PluginID: "a", Name: "Alpha", Category: types.CategoryTools}))
	require.NoError(t, ix.IndexPlugin(ctx, types.Plugin{PluginID: "b", Name: "Beta", Category: types.CategoryTools, IsDeprecated: true}))

	now := time.Now()
	for _, u := range []string{"u1", "u2"} {
		require.NoError(t, st.RecordInstall(ctx, "a", u, "1.0", "manual", now))
		require.NoError(t, st.RecordInstall(ctx, "b", u, "1.0", "manual", now))
	}
	require.NoError(t, ix.RefreshRelationships(ctx))

	recs, err := eng.Collaborative(ctx, []string{"a"}, 10)
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestContentBasedJaccardSimilarity(t *testing.T) {
	_, ix, eng := setup(t)
	ctx := context.Background()

	require.NoError(t, ix.IndexPlugin(ctx, types.Plugin{
		PluginID: "seed", Name: "Seed Plugin", Category: types.CategoryTools,
		Tags: []string{"linting", "formatting"}, Keywords: "style quality",
	}))
	require.NoError(t, ix.IndexPlugin(ctx, types.Plugin{
		PluginID: "close", Name: "Close Match", Category: types.CategoryTools,
		Tags: []string{"linting", "formatting"}, Keywords: "style quality",
	}))
	require.NoError(t, ix.IndexPlugin(ctx, types.Plugin{
		PluginID: "far", Name: "Unrelated", Category: types.CategoryWorkflows,
		Tags: []string{"deployment"}, Keywords: "ci cd",
	}))

	recs, err := eng.ContentBased(ctx, []string{"seed"}, "", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "close", recs[0].Plugin.PluginID)
	require.InDelta(t, 1.0, recs[0].Score, 1e-9)
}

func TestTrendingFiltersDeprecated(t *testing.T) {
	st, ix, eng := setup(t)
	ctx := context.Background()
	require.NoError(t, ix.IndexPlugin(ctx, types.Plugin{PluginID: "p1", Name: "Hot", Category: types.CategoryTools}))
	require.NoError(t, ix.IndexPlugin(ctx, types.Plugin{PluginID: "p2", Name: "Old", Category: types.CategoryTools, IsDeprecated: true}))

	now := time.Now()
	require.NoError(t, st.RecordInstall(ctx, "p1", "u1", "1.0", "manual", now))
	require.NoError(t, st.RecordInstall(ctx, "p2", "u1", "1.0", "manual", now))
	require.NoError(t, ix.RefreshTrending(ctx, now))

	recs, err := eng.Trending(ctx, types.PeriodWeek, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "p1", recs[0].Plugin.PluginID)
}

func TestRecommendCacheHitAvoidsRecompute(t *testing.T) {
	st, ix, eng := setup(t)
	ctx := context.Background()
	require.NoError(t, ix.IndexPlugin(ctx, types.Plugin{PluginID: "p1", Name: "Hot", Category: types.CategoryTools}))
	now := time.Now()
	require.NoError(t, st.RecordInstall(ctx, "p1", "u1", "1.0", "manual", now))
	require.NoError(t, ix.RefreshTrending(ctx, now))

	first, err := eng.Trending(ctx, types.PeriodWeek, 10)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// A second call should come back from the cache with the same
	// payload even if the underlying trending table changed in between.
	require.NoError(t, ix.RefreshTrending(ctx, now.Add(time.Hour)))
	second, err := eng.Trending(ctx, types.PeriodWeek, 10)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestRecommendInvalidatesCacheOnInstall(t *testing.T) {
	_, ix, eng := setup(t)
	ctx := context.Background()
	require.NoError(t, ix.IndexPlugin(ctx, types.Plugin{PluginID: "a", Name: "Alpha", Category: types.CategoryTools}))
	require.NoError(t, ix.IndexPlugin(ctx, types.Plugin{PluginID: "b", Name: "Beta", Category: types.CategoryTools}))

	now := time.Now()

	// No co-install signal yet: empty result gets cached under a context
	// that references plugin "a".
	first, err := eng.Collaborative(ctx, []string{"a"}, 10)
	require.NoError(t, err)
	require.Empty(t, first)

	// Recording installs of "a" invalidates every cache entry whose
	// context references "a" (spec §4.5 cache invalidation), so once the
	// co-install relationship is built, a repeat call must recompute
	// rather than replay the cached empty result.
	require.NoError(t, eng.RecordInstall(ctx, "a", "u1", "1.0", "manual", now))
	require.NoError(t, eng.RecordInstall(ctx, "b", "u1", "1.0", "manual", now))
	require.NoError(t, eng.RecordInstall(ctx, "a", "u2", "1.0", "manual", now))
	require.NoError(t, eng.RecordInstall(ctx, "b", "u2", "1.0", "manual", now))
	require.NoError(t, ix.RefreshRelationships(ctx))

	second, err := eng.Collaborative(ctx, []string{"a"}, 10)
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.Equal(t, "b", second[0].Plugin.PluginID)
}

func TestPersonalizedRecommendDedupesAndBlends(t *testing.T) {
	st, ix, eng := setup(t)
	ctx := context.Background()

	for _, p := range []types.Plugin{
		{PluginID: "a", Name: "Alpha", Category: types.CategoryTools, Tags: []string{"x"}},
		{PluginID: "b", Name: "Beta", Category: types.CategoryTools, Tags: []string{"x"}},
	} {
		require.NoError(t, ix.IndexPlugin(ctx, p))
	}
	now := time.Now()
	for _, u := range []string{"u1", "u2"} {
		require.NoError(t, st.RecordInstall(ctx, "a", u, "1.0", "manual", now))
		require.NoError(t, st.RecordInstall(ctx, "b", u, "1.0", "manual", now))
	}
	require.NoError(t, ix.RefreshRelationships(ctx))

	recs, err := eng.Recommend(ctx, types.RecommendContext{InstalledPluginIDs: []string{"a"}, Limit: 10})
	require.NoError(t, err)
	seen := make(map[string]int)
	for _, r := range recs {
		seen[r.Plugin.PluginID]++
	}
	for id, count := range seen {
		require.Equal(t, 1, count, "plugin %s should appear once", id)
	}
}
