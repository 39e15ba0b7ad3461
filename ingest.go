package pluginforge

import (
	"context"
	"time"

	"github.com/pluginforge/core/internal/indexer"
	"github.com/pluginforge/core/internal/types"
)

// BuildOptions is indexer.BuildOptions re-exported at the facade
// boundary so callers never need to import the internal package (spec
// §6 "build_index(source, options)").
type BuildOptions = indexer.BuildOptions

// BuildResult mirrors indexer.BuildResult but renders batch errors as
// strings so the envelope's Data is safe to marshal as-is (an []error
// of unexported sentinel types marshals to empty objects).
type BuildResult struct {
	Indexed              int      `json:"indexed"`
	Skipped              int      `json:"skipped"`
	Failed               int      `json:"failed"`
	Errors               []string `json:"errors,omitempty"`
	TFIDFRefreshed       bool     `json:"tfidf_refreshed"`
	RelationshipsRebuilt bool     `json:"relationships_rebuilt"`
	TrendingRefreshed    bool     `json:"trending_refreshed"`
	CategoriesSeeded     bool     `json:"categories_seeded"`
}

func toBuildResult(r indexer.BuildResult) BuildResult {
	out := BuildResult{
		Indexed:              r.Indexed,
		Skipped:              r.Skipped,
		Failed:               r.Failed,
		TFIDFRefreshed:       r.TFIDFRefreshed,
		RelationshipsRebuilt: r.RelationshipsRebuilt,
		TrendingRefreshed:    r.TrendingRefreshed,
		CategoriesSeeded:     r.CategoriesSeeded,
	}
	for _, err := range r.Errors {
		out.Errors = append(out.Errors, err.Error())
	}
	return out
}

// IndexPlugin ingests a single plugin record (spec §6 "index_plugin(record)").
func (e *Engine) IndexPlugin(ctx context.Context, p types.Plugin) Envelope {
	return do(ctx, e, "index_plugin", func(ctx context.Context) (ack, error) {
		return ack{}, e.indexer.IndexPlugin(ctx, p)
	})
}

// BuildIndex ingests a batch and runs whichever maintenance passes opts
// requests (spec §6 "build_index(source, options)").
func (e *Engine) BuildIndex(ctx context.Context, plugins []types.Plugin, opts BuildOptions) Envelope {
	return do(ctx, e, "build_index", func(ctx context.Context) (BuildResult, error) {
		r, err := e.indexer.BuildIndex(ctx, plugins, opts)
		return toBuildResult(r), err
	})
}

// UpdateTFIDF recomputes term frequency / document frequency / tf-idf
// across every non-deprecated plugin (spec §6 "update_tfidf()").
func (e *Engine) UpdateTFIDF(ctx context.Context) Envelope {
	return do(ctx, e, "update_tfidf", func(ctx context.Context) (ack, error) {
		return ack{}, e.indexer.RefreshTFIDF(ctx)
	})
}

// UpdateRelationships rebuilds the co-install graph (spec §6
// "update_relationships()").
func (e *Engine) UpdateRelationships(ctx context.Context) Envelope {
	return do(ctx, e, "update_relationships", func(ctx context.Context) (ack, error) {
		return ack{}, e.indexer.RefreshRelationships(ctx)
	})
}

// UpdateTrending recomputes install velocity and the trending table
// (spec §6 "update_trending()").
func (e *Engine) UpdateTrending(ctx context.Context) Envelope {
	return do(ctx, e, "update_trending", func(ctx context.Context) (ack, error) {
		return ack{}, e.indexer.RefreshTrending(ctx, time.Now())
	})
}

// Optimize asks the store to reclaim space and refresh planner
// statistics (spec §6 "optimize()").
func (e *Engine) Optimize(ctx context.Context) Envelope {
	return do(ctx, e, "optimize", func(ctx context.Context) (ack, error) {
		return ack{}, e.indexer.Optimize(ctx)
	})
}

// CleanupResult reports how much retention cleanup removed.
type CleanupResult struct {
	SearchEventsRemoved int64 `json:"search_events_removed"`
}

// Cleanup deletes search events older than daysToKeep (spec §6
// "cleanup(days)").
func (e *Engine) Cleanup(ctx context.Context, daysToKeep int) Envelope {
	return do(ctx, e, "cleanup", func(ctx context.Context) (CleanupResult, error) {
		n, err := e.indexer.Cleanup(ctx, daysToKeep, time.Now())
		return CleanupResult{SearchEventsRemoved: n}, err
	})
}
