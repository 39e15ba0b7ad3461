package analytics_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pluginforge/core/internal/analytics"
	"github.com/pluginforge/core/internal/indexer"
	"github.com/pluginforge/core/internal/search"
	"github.com/pluginforge/core/internal/store/sqlite"
	"github.com/pluginforge/core/internal/types"
)

func setup(t *testing.T) (*sqlite.Store, *indexer.Indexer, *search.Engine, *analytics.Collector) {
	t.Helper()
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "analytics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	ix := indexer.New(st, nil, indexer.DefaultConfig())
	se := search.New(st, nil, types.ScoreWeights{})
	col := analytics.New(st, nil)
	return st, ix, se, col
}

func TestSummaryAggregatesRecordedActivity(t *testing.T) {
	st, ix, se, col := setup(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, ix.IndexPlugin(ctx, types.Plugin{PluginID: "kubectl", Name: "kubectl", Category: types.CategoryTools}))
	require.NoError(t, st.RecordInstall(ctx, "kubectl", "u1", "1.0", "search", now))

	page, err := se.Search(ctx, "kubectl", search.DefaultOptions())
	require.NoError(t, err)
	require.NotEmpty(t, page.Results)

	ok, err := se.RecordClick(ctx, "kubectl", "", "kubectl", 0)
	require.NoError(t, err)
	require.True(t, ok)

	summary, err := col.Summary(ctx, 30, now)
	require.NoError(t, err)
	require.Equal(t, 30, summary.WindowDays)
	require.NotEmpty(t, summary.TopSearches)
	require.Equal(t, "kubectl", summary.TopSearches[0].Query)
	require.Equal(t, int64(1), summary.OverallCTR.Clicks)
	require.Equal(t, int64(1), summary.OverallCTR.Searches)
	require.InDelta(t, 1.0, summary.OverallCTR.CTR, 1e-9)
	require.NotEmpty(t, summary.PopularCategories)
	require.Equal(t, int64(1), summary.Funnel.Searches)
}

func TestSummaryIncludesSearchGaps(t *testing.T) {
	_, _, se, col := setup(t)
	ctx := context.Background()
	now := time.Now()

	_, err := se.Search(ctx, "totally-unknown-query", search.DefaultOptions())
	require.NoError(t, err)
	_, err = se.Search(ctx, "totally-unknown-query", search.DefaultOptions())
	require.NoError(t, err)

	summary, err := col.Summary(ctx, 30, now)
	require.NoError(t, err)
	require.Len(t, summary.SearchGaps, 1)
	require.Equal(t, "totally-unknown-query", summary.SearchGaps[0].Query)
	require.Equal(t, int64(2), summary.SearchGaps[0].OccurrenceCount)
	require.Equal(t, types.GapOpen, summary.SearchGaps[0].Status)
}

func TestSearchGapsFiltersByMinOccurrencesAndStatus(t *testing.T) {
	_, _, se, col := setup(t)
	ctx := context.Background()

	_, err := se.Search(ctx, "rare-miss", search.DefaultOptions())
	require.NoError(t, err)

	gaps, err := col.SearchGaps(ctx, 2, "")
	require.NoError(t, err)
	require.Empty(t, gaps)

	gaps, err = col.SearchGaps(ctx, 1, types.GapOpen)
	require.NoError(t, err)
	require.Len(t, gaps, 1)

	gaps, err = col.SearchGaps(ctx, 1, types.GapAddressed)
	require.NoError(t, err)
	require.Empty(t, gaps)
}

func TestSummaryIncludesUserPatterns(t *testing.T) {
	st, ix, _, col := setup(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, ix.IndexPlugin(ctx, types.Plugin{PluginID: "kubectl", Name: "kubectl", Category: types.CategoryTools}))
	_, err := st.RecordSearchEvent(ctx, types.SearchEvent{
		Query: "kubectl", ResultsCount: 1, UserID: "u1", SearchedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, st.RecordInstall(ctx, "kubectl", "u1", "1.0", "search", now))

	summary, err := col.Summary(ctx, 30, now)
	require.NoError(t, err)
	require.Len(t, summary.UserPatterns, 1)
	require.Equal(t, "u1", summary.UserPatterns[0].UserID)
	require.Equal(t, int64(1), summary.UserPatterns[0].Searches)
	require.Equal(t, int64(1), summary.UserPatterns[0].Installs)
}

func TestCleanupRemovesOldSearchEvents(t *testing.T) {
	_, ix, se, col := setup(t)
	ctx := context.Background()

	_, err := se.Search(ctx, "old-query", search.DefaultOptions())
	require.NoError(t, err)

	// Retention lives on the Indexer's maintenance surface (spec §6
	// groups cleanup(days) with build_index/optimize), not on Collector.
	removed, err := ix.Cleanup(ctx, -1, time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	summary, err := col.Summary(ctx, 30, time.Now())
	require.NoError(t, err)
	require.Empty(t, summary.TopSearches)
}
