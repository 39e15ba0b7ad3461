package search_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pluginforge/core/internal/indexer"
	"github.com/pluginforge/core/internal/search"
	"github.com/pluginforge/core/internal/store/sqlite"
	"github.com/pluginforge/core/internal/types"
)

func setup(t *testing.T) (*sqlite.Store, *indexer.Indexer, *search.Engine) {
	t.Helper()
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	ix := indexer.New(st, nil, indexer.DefaultConfig())
	eng := search.New(st, nil, types.DefaultScoreWeights())
	return st, ix, eng
}

func TestSearchExactNameBoost(t *testing.T) {
	_, ix, eng := setup(t)
	ctx := context.Background()

	require.NoError(t, ix.IndexPlugin(ctx, types.Plugin{
		PluginID: "kube-ctl", Name: "kubectl", Description: "Kubernetes command line tool",
		Category: types.CategoryTools, Downloads: 1000, Rating: 4.8,
	}))
	require.NoError(t, ix.IndexPlugin(ctx, types.Plugin{
		PluginID: "kube-helper", Name: "Kube Helper Plugin", Description: "helps with kubectl workflows",
		Category: types.CategoryTools, Downloads: 500, Rating: 4.0,
	}))
	require.NoError(t, ix.RefreshTFIDF(ctx))

	page, err := eng.Search(ctx, "kubectl", search.DefaultOptions())
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(page.Results), 1)
	require.Equal(t, "kube-ctl", page.Results[0].Plugin.PluginID)
	require.Equal(t, 1.0, page.Results[0].RelevanceBoost)
}

func TestSearchEmptyQueryReturnsEmptyPage(t *testing.T) {
	_, _, eng := setup(t)
	page, err := eng.Search(context.Background(), "   ", search.DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 0, page.Total)
	require.Nil(t, page.Results)
}

func TestSearchExcludesDeprecatedByDefault(t *testing.T) {
	_, ix, eng := setup(t)
	ctx := context.Background()

	p := types.Plugin{PluginID: "old", Name: "legacy tool", Description: "deprecated plugin", Category: types.CategoryTools, IsDeprecated: true}
	require.NoError(t, ix.IndexPlugin(ctx, p))
	require.NoError(t, ix.RefreshTFIDF(ctx))

	page, err := eng.Search(ctx, "legacy", search.DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 0, page.Total)
}

func TestSearchRecordsGapOnZeroResults(t *testing.T) {
	st, _, eng := setup(t)
	ctx := context.Background()

	_, err := eng.Search(ctx, "nonexistentquery", search.DefaultOptions())
	require.NoError(t, err)

	gap, err := st.SearchGapRow(ctx, "nonexistentquery")
	require.NoError(t, err)
	require.EqualValues(t, 1, gap.OccurrenceCount)
	require.Equal(t, types.GapOpen, gap.Status)

	_, err = eng.Search(ctx, "nonexistentquery", search.DefaultOptions())
	require.NoError(t, err)
	gap, err = st.SearchGapRow(ctx, "nonexistentquery")
	require.NoError(t, err)
	require.EqualValues(t, 2, gap.OccurrenceCount)
}

func TestFuzzySearchFallsBackToPrefixMatch(t *testing.T) {
	_, ix, eng := setup(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		id := "kubernetes-plugin"
		if i == 1 {
			id = "kubernetes-extra"
		}
		require.NoError(t, ix.IndexPlugin(ctx, types.Plugin{
			PluginID: id, Name: "kubernetesX helper", Description: "works with kubernetes clusters",
			Category: types.CategoryTools, Downloads: int64(10 + i),
		}))
	}
	require.NoError(t, ix.RefreshTFIDF(ctx))

	// Exact search on "kubernete" (a typo) should not reach the fuzzy
	// floor, given only two documents and a token that never literally
	// appears; fuzzy fallback should still surface them via prefix match.
	page, err := eng.FuzzySearch(ctx, "kubernete", search.DefaultOptions())
	require.NoError(t, err)
	require.True(t, page.UsedFuzzy)
	require.GreaterOrEqual(t, page.Total, 1)
}

func TestSuggestionsOrderedByDownloads(t *testing.T) {
	_, ix, eng := setup(t)
	ctx := context.Background()

	require.NoError(t, ix.IndexPlugin(ctx, types.Plugin{PluginID: "p1", Name: "Runner One", Category: types.CategoryTools, Downloads: 5}))
	require.NoError(t, ix.IndexPlugin(ctx, types.Plugin{PluginID: "p2", Name: "Runner Two", Category: types.CategoryTools, Downloads: 50}))
	require.NoError(t, ix.RefreshTFIDF(ctx))

	names, err := eng.Suggestions(ctx, "runn", 10)
	require.NoError(t, err)
	require.Len(t, names, 2)
	require.Equal(t, "p2", names[0].PluginID)
}

func TestRecordClickAttachesToMostRecentEvent(t *testing.T) {
	_, ix, eng := setup(t)
	ctx := context.Background()
	require.NoError(t, ix.IndexPlugin(ctx, types.Plugin{PluginID: "p1", Name: "Widget", Category: types.CategoryTools, Downloads: 1}))
	require.NoError(t, ix.RefreshTFIDF(ctx))

	opts := search.DefaultOptions()
	opts.SessionID = "sess-1"
	_, err := eng.Search(ctx, "widget", opts)
	require.NoError(t, err)

	found, err := eng.RecordClick(ctx, "widget", "sess-1", "p1", 0)
	require.NoError(t, err)
	require.True(t, found)

	found, err = eng.RecordClick(ctx, "widget", "sess-1", "p1", 0)
	require.NoError(t, err)
	require.False(t, found)
}
