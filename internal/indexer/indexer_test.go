package indexer_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pluginforge/core/internal/indexer"
	"github.com/pluginforge/core/internal/store/sqlite"
	"github.com/pluginforge/core/internal/types"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func samplePlugin(id, name, category string, downloads int64) types.Plugin {
	return types.Plugin{
		PluginID:    id,
		Name:        name,
		Description: "a plugin for " + name,
		Category:    types.Category(category),
		Tags:        []string{"cli", "productivity"},
		Keywords:    "automation scripting",
		Downloads:   downloads,
		Rating:      4.2,
	}
}

func TestIndexPluginValidation(t *testing.T) {
	ix := indexer.New(newStore(t), nil, indexer.DefaultConfig())
	ctx := context.Background()

	require.Error(t, ix.IndexPlugin(ctx, types.Plugin{}))
	require.Error(t, ix.IndexPlugin(ctx, types.Plugin{PluginID: "p1", Rating: 7}))
	require.Error(t, ix.IndexPlugin(ctx, types.Plugin{PluginID: "p1", Category: "not-a-category"}))
	require.NoError(t, ix.IndexPlugin(ctx, samplePlugin("p1", "Runner", "tools", 10)))
}

func TestBuildIndexRunsRequestedMaintenance(t *testing.T) {
	st := newStore(t)
	ix := indexer.New(st, nil, indexer.DefaultConfig())
	ctx := context.Background()

	plugins := []types.Plugin{
		samplePlugin("p1", "Running Services", "tools", 100),
		samplePlugin("p2", "Service Runner", "tools", 50),
	}
	result, err := ix.BuildIndex(ctx, plugins, indexer.BuildOptions{
		ComputeTFIDF:        true,
		UpdateRelationships: true,
		UpdateTrending:      true,
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.Indexed)
	require.True(t, result.TFIDFRefreshed)
	require.True(t, result.RelationshipsRebuilt)
	require.True(t, result.TrendingRefreshed)

	sum, err := st.TFIDFSum(ctx, []string{"p1"}, []string{"runn"})
	require.NoError(t, err)
	require.Greater(t, sum["p1"], 0.0)
}

func TestRefreshTFIDFMatchesWorkedExample(t *testing.T) {
	st := newStore(t)
	ix := indexer.New(st, nil, indexer.DefaultConfig())
	ctx := context.Background()

	// A single document's "name" field tokenizes to "running", "services",
	// "more" (the hyphen/underscore both act as separators), stemming to
	// "runn", "servic", "more".
	p := types.Plugin{
		PluginID: "p1",
		Name:     "Running-Services_and_More",
		Category: types.CategoryTools,
	}
	require.NoError(t, ix.IndexPlugin(ctx, p))
	require.NoError(t, ix.RefreshTFIDF(ctx))

	sum, err := st.TFIDFSum(ctx, []string{"p1"}, []string{"runn"})
	require.NoError(t, err)
	require.Greater(t, sum["p1"], 0.0)

	sum, err = st.TFIDFSum(ctx, []string{"p1"}, []string{"nonexistentstem"})
	require.NoError(t, err)
	require.Equal(t, 0.0, sum["p1"])
}

func TestRefreshTFIDFDocumentFrequencyIsUnionAcrossFields(t *testing.T) {
	st := newStore(t)
	ix := indexer.New(st, nil, indexer.DefaultConfig())
	ctx := context.Background()

	// "widget" appears only in A's name and only in B's description — two
	// distinct documents, no overlap within a single field. df(widget)
	// must be 2 (union over all fields), not 1 (max of any one field's count).
	require.NoError(t, ix.IndexPlugin(ctx, types.Plugin{
		PluginID: "a", Name: "widget", Category: types.CategoryTools,
	}))
	require.NoError(t, ix.IndexPlugin(ctx, types.Plugin{
		PluginID: "b", Name: "other", Description: "a widget helper", Category: types.CategoryTools,
	}))
	require.NoError(t, ix.RefreshTFIDF(ctx))

	df, ok, err := st.DocumentFrequencyFor(ctx, "widget")
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 2, df.DocumentCount)
}

func TestRefreshRelationshipsComputesJaccardConfidence(t *testing.T) {
	st := newStore(t)
	ix := indexer.New(st, nil, indexer.DefaultConfig())
	ctx := context.Background()

	for _, p := range []types.Plugin{
		samplePlugin("a", "Alpha", "tools", 10),
		samplePlugin("b", "Beta", "tools", 10),
		samplePlugin("c", "Gamma", "tools", 10),
	} {
		require.NoError(t, ix.IndexPlugin(ctx, p))
	}

	now := time.Now()
	// U1: a,b. U2: a,b,c. U3: c only. U4: a,c.
	require.NoError(t, st.RecordInstall(ctx, "a", "u1", "1.0", "manual", now))
	require.NoError(t, st.RecordInstall(ctx, "b", "u1", "1.0", "manual", now))
	require.NoError(t, st.RecordInstall(ctx, "a", "u2", "1.0", "manual", now))
	require.NoError(t, st.RecordInstall(ctx, "b", "u2", "1.0", "manual", now))
	require.NoError(t, st.RecordInstall(ctx, "c", "u2", "1.0", "manual", now))
	require.NoError(t, st.RecordInstall(ctx, "c", "u3", "1.0", "manual", now))
	require.NoError(t, st.RecordInstall(ctx, "a", "u4", "1.0", "manual", now))
	require.NoError(t, st.RecordInstall(ctx, "c", "u4", "1.0", "manual", now))

	require.NoError(t, ix.RefreshRelationships(ctx))

	rels, err := st.RelationshipsTouching(ctx, []string{"a"})
	require.NoError(t, err)
	var ab, ac *types.CoInstallRelationship
	for i := range rels {
		r := rels[i]
		switch {
		case (r.PluginA == "a" && r.PluginB == "b") || (r.PluginA == "b" && r.PluginB == "a"):
			ab = &r
		case (r.PluginA == "a" && r.PluginB == "c") || (r.PluginA == "c" && r.PluginB == "a"):
			ac = &r
		}
	}
	require.NotNil(t, ab)
	require.Equal(t, int64(2), ab.CoInstallCount)
	// users(a) = {u1,u2,u4}, users(b) = {u1,u2}; intersection {u1,u2}, union {u1,u2,u4}.
	require.InDelta(t, 2.0/3.0, ab.Confidence, 1e-9)

	require.NotNil(t, ac)
	require.Equal(t, int64(2), ac.CoInstallCount)
	// users(a) = {u1,u2,u4}, users(c) = {u2,u3,u4}; intersection {u2,u4}, union {u1,u2,u3,u4}.
	require.InDelta(t, 2.0/4.0, ac.Confidence, 1e-9)
}

func TestRefreshTrendingComputesVelocity(t *testing.T) {
	st := newStore(t)
	ix := indexer.New(st, nil, indexer.DefaultConfig())
	ctx := context.Background()
	require.NoError(t, ix.IndexPlugin(ctx, samplePlugin("p1", "Popular", "tools", 0)))

	now := time.Now()
	require.NoError(t, st.RecordInstall(ctx, "p1", "u1", "1.0", "manual", now.Add(-1*time.Hour)))
	require.NoError(t, st.RecordInstall(ctx, "p1", "u2", "1.0", "manual", now.Add(-3*24*time.Hour)))
	require.NoError(t, st.RecordInstall(ctx, "p1", "u3", "1.0", "manual", now.Add(-20*24*time.Hour)))

	require.NoError(t, ix.RefreshTrending(ctx, now))

	top, err := st.TrendingTop(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	require.EqualValues(t, 1, top[0].Installs24h)
	require.EqualValues(t, 2, top[0].Installs7d)
	require.EqualValues(t, 3, top[0].Installs30d)
	require.InDelta(t, 10*1+3*2+1*3, top[0].VelocityScore, 1e-9)
}

func TestBuildIndexRebuildSeedsCategories(t *testing.T) {
	st := newStore(t)
	ix := indexer.New(st, nil, indexer.DefaultConfig())
	ctx := context.Background()

	result, err := ix.BuildIndex(ctx, []types.Plugin{samplePlugin("p1", "Runner", "tools", 10)}, indexer.BuildOptions{Rebuild: true})
	require.NoError(t, err)
	require.True(t, result.CategoriesSeeded)

	cats, err := st.Categories(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, cats)
	var tools *types.CategoryMeta
	for i := range cats {
		if cats[i].Name == "tools" {
			tools = &cats[i]
		}
	}
	require.NotNil(t, tools)
	require.Equal(t, "Tools", tools.DisplayName)
	require.EqualValues(t, 1, tools.PluginCount)
}

func TestStopWordFingerprintStale(t *testing.T) {
	st := newStore(t)
	ix := indexer.New(st, nil, indexer.DefaultConfig())
	ctx := context.Background()

	stale, err := ix.StopWordFingerprintStale(ctx)
	require.NoError(t, err)
	require.True(t, stale, "no RefreshTFIDF has run yet")

	require.NoError(t, ix.IndexPlugin(ctx, samplePlugin("p1", "Runner", "tools", 10)))
	require.NoError(t, ix.RefreshTFIDF(ctx))

	stale, err = ix.StopWordFingerprintStale(ctx)
	require.NoError(t, err)
	require.False(t, stale)

	cfg := indexer.DefaultConfig()
	cfg.StopWordFingerprint = "en-short-v2"
	ix2 := indexer.New(st, nil, cfg)
	stale, err = ix2.StopWordFingerprintStale(ctx)
	require.NoError(t, err)
	require.True(t, stale, "fingerprint changed since the last refresh")
}

func TestOptimizeAndCleanup(t *testing.T) {
	st := newStore(t)
	ix := indexer.New(st, nil, indexer.DefaultConfig())
	ctx := context.Background()

	require.NoError(t, ix.Optimize(ctx))

	_, err := st.RecordSearchEvent(ctx, types.SearchEvent{
		Query:        "old query",
		ResultsCount: 3,
		SearchedAt:   time.Now().Add(-100 * 24 * time.Hour),
	})
	require.NoError(t, err)

	n, err := ix.Cleanup(ctx, 30, time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}
