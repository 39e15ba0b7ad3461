package pluginforge_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pluginforge "github.com/pluginforge/core"
	"github.com/pluginforge/core/internal/types"
)

func open(t *testing.T) *pluginforge.Engine {
	t.Helper()
	e, err := pluginforge.Open(context.Background(), pluginforge.Options{
		StorePath: filepath.Join(t.TempDir(), "engine.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func seedPlugin(t *testing.T, e *pluginforge.Engine, id, category string) {
	t.Helper()
	env := e.IndexPlugin(context.Background(), types.Plugin{
		PluginID: id,
		Name:     id,
		Category: types.Category(category),
	})
	require.True(t, env.Success, env.Error)
}

func TestIndexPluginRejectsInvalidRecord(t *testing.T) {
	e := open(t)
	env := e.IndexPlugin(context.Background(), types.Plugin{PluginID: "", Name: "no id"})
	require.False(t, env.Success)
	require.NotEmpty(t, env.Error)
	require.Zero(t, env.Metadata.Cached)
}

func TestBuildIndexRunsRequestedMaintenancePasses(t *testing.T) {
	e := open(t)
	ctx := context.Background()

	env := e.BuildIndex(ctx, []types.Plugin{
		{PluginID: "kubectl", Name: "kubectl", Category: types.CategoryTools, Downloads: 100},
		{PluginID: "helm", Name: "helm", Category: types.CategoryTools, Downloads: 50},
	}, pluginforge.BuildOptions{ComputeTFIDF: true, UpdateRelationships: true, UpdateTrending: true})
	require.True(t, env.Success, env.Error)

	result, ok := env.Data.(pluginforge.BuildResult)
	require.True(t, ok)
	require.Equal(t, 2, result.Indexed)
	require.True(t, result.TFIDFRefreshed)
	require.True(t, result.RelationshipsRebuilt)
	require.True(t, result.TrendingRefreshed)
}

func TestSearchReturnsEnvelopeWithSessionID(t *testing.T) {
	e := open(t)
	ctx := context.Background()
	seedPlugin(t, e, "kubectl", "tools")

	env := e.Search(ctx, "kubectl", types.SearchOptions{Limit: 10})
	require.True(t, env.Success, env.Error)
	require.False(t, env.Metadata.Cached)

	result, ok := env.Data.(pluginforge.SearchResult)
	require.True(t, ok)
	require.NotEmpty(t, result.SessionID)
	require.NotEmpty(t, result.Results)
}

func TestRecordClickDefaultsSessionIDWhenOmitted(t *testing.T) {
	e := open(t)
	ctx := context.Background()
	seedPlugin(t, e, "kubectl", "tools")

	searchEnv := e.Search(ctx, "kubectl", types.SearchOptions{Limit: 10})
	require.True(t, searchEnv.Success, searchEnv.Error)
	sessionID := searchEnv.Data.(pluginforge.SearchResult).SessionID

	clickEnv := e.RecordClick(ctx, "kubectl", "kubectl", 0, sessionID)
	require.True(t, clickEnv.Success, clickEnv.Error)
	result := clickEnv.Data.(pluginforge.ClickResult)
	require.True(t, result.Found)
	require.Equal(t, sessionID, result.SessionID)

	noSessionEnv := e.RecordClick(ctx, "kubectl", "kubectl", 0, "")
	require.True(t, noSessionEnv.Success, noSessionEnv.Error)
	noSessionResult := noSessionEnv.Data.(pluginforge.ClickResult)
	require.NotEmpty(t, noSessionResult.SessionID)
	require.False(t, noSessionResult.Found) // fresh session id matches no prior search event
}

func TestRecommendTrendingMarksCacheHitOnSecondCall(t *testing.T) {
	e := open(t)
	ctx := context.Background()
	seedPlugin(t, e, "kubectl", "tools")
	env := e.UpdateTrending(ctx)
	require.True(t, env.Success, env.Error)

	first := e.Trending(ctx, types.PeriodWeek, 10)
	require.True(t, first.Success, first.Error)
	require.False(t, first.Metadata.Cached)

	second := e.Trending(ctx, types.PeriodWeek, 10)
	require.True(t, second.Success, second.Error)
	require.True(t, second.Metadata.Cached)
}

func TestRecordInstallThenRecommendCollaborative(t *testing.T) {
	e := open(t)
	ctx := context.Background()
	seedPlugin(t, e, "a", "tools")
	seedPlugin(t, e, "b", "tools")

	require.True(t, e.RecordInstall(ctx, "a", "u1", "1.0", "search").Success)
	require.True(t, e.RecordInstall(ctx, "b", "u1", "1.0", "search").Success)
	require.True(t, e.RecordInstall(ctx, "a", "u2", "1.0", "search").Success)
	require.True(t, e.RecordInstall(ctx, "b", "u2", "1.0", "search").Success)
	require.True(t, e.UpdateRelationships(ctx).Success)

	env := e.Recommend(ctx, types.RecommendContext{InstalledPluginIDs: []string{"a"}, Limit: 10})
	require.True(t, env.Success, env.Error)
	recs, ok := env.Data.([]types.Recommendation)
	require.True(t, ok)
	require.Len(t, recs, 1)
	require.Equal(t, "b", recs[0].Plugin.PluginID)
}

func TestCategoriesAndAnalyticsAndCleanup(t *testing.T) {
	e := open(t)
	ctx := context.Background()
	seedPlugin(t, e, "kubectl", "tools")
	require.True(t, e.UpdateTrending(ctx).Success)
	require.True(t, e.Optimize(ctx).Success)

	catEnv := e.Categories(ctx)
	require.True(t, catEnv.Success, catEnv.Error)
	_, ok := catEnv.Data.([]types.CategoryMeta)
	require.True(t, ok)

	searchEnv := e.Search(ctx, "kubectl", types.SearchOptions{Limit: 10})
	require.True(t, searchEnv.Success, searchEnv.Error)

	analyticsEnv := e.GetAnalytics(ctx, 30)
	require.True(t, analyticsEnv.Success, analyticsEnv.Error)
	summary, ok := analyticsEnv.Data.(types.AnalyticsSummary)
	require.True(t, ok)
	require.Equal(t, 30, summary.WindowDays)
	require.NotEmpty(t, summary.TopSearches)

	cleanupEnv := e.Cleanup(ctx, -1)
	require.True(t, cleanupEnv.Success, cleanupEnv.Error)
	cleanupResult := cleanupEnv.Data.(pluginforge.CleanupResult)
	require.Equal(t, int64(1), cleanupResult.SearchEventsRemoved)
}

func TestSimilarUnknownPluginReturnsNotFoundError(t *testing.T) {
	e := open(t)
	env := e.Similar(context.Background(), "does-not-exist", 10)
	require.False(t, env.Success)
	require.Equal(t, "not found", env.Error)
}

func TestSuggestionsMatchesSeededPlugin(t *testing.T) {
	e := open(t)
	ctx := context.Background()
	seedPlugin(t, e, "kubectl", "tools")
	require.True(t, e.UpdateTFIDF(ctx).Success)

	env := e.Suggestions(ctx, "kube", 5)
	require.True(t, env.Success, env.Error)
	plugins, ok := env.Data.([]types.Plugin)
	require.True(t, ok)
	require.NotEmpty(t, plugins)
}
