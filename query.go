package pluginforge

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pluginforge/core/internal/engineerr"
	"github.com/pluginforge/core/internal/types"
)

// SearchResult wraps a SearchPage with the session id the search was
// recorded under, so a caller that omitted one can pass it back into
// RecordClick (spec §4.4 step 8, §4.6 "Click recording").
type SearchResult struct {
	types.SearchPage
	SessionID string `json:"session_id"`
}

func sessionIDOrNew(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

// Search resolves query against the index, scores, filters, sorts, and
// paginates (spec §6 "search(query, options)").
func (e *Engine) Search(ctx context.Context, query string, opts types.SearchOptions) Envelope {
	return do(ctx, e, "search", func(ctx context.Context) (SearchResult, error) {
		opts.SessionID = sessionIDOrNew(opts.SessionID)
		page, err := e.search.Search(ctx, query, opts)
		if err != nil {
			return SearchResult{}, err
		}
		return SearchResult{SearchPage: page, SessionID: opts.SessionID}, nil
	})
}

// FuzzySearch is Search with a prefix-match fallback when the exact
// query under-returns (spec §6 "fuzzy_search(query, options)").
func (e *Engine) FuzzySearch(ctx context.Context, query string, opts types.SearchOptions) Envelope {
	return do(ctx, e, "fuzzy_search", func(ctx context.Context) (SearchResult, error) {
		opts.SessionID = sessionIDOrNew(opts.SessionID)
		page, err := e.search.FuzzySearch(ctx, query, opts)
		if err != nil {
			return SearchResult{}, err
		}
		return SearchResult{SearchPage: page, SessionID: opts.SessionID}, nil
	})
}

// Suggestions returns up to limit plugin names matching partial (spec §6
// "suggestions(partial, limit)").
func (e *Engine) Suggestions(ctx context.Context, partial string, limit int) Envelope {
	return do(ctx, e, "suggestions", func(ctx context.Context) ([]types.Plugin, error) {
		return e.search.Suggestions(ctx, partial, limit)
	})
}

// Recommend blends collaborative, content-based, and trending
// recommendations for rctx (spec §6 "recommend(context)").
func (e *Engine) Recommend(ctx context.Context, rctx types.RecommendContext) Envelope {
	return doRecommend(ctx, e, "recommend", func(ctx context.Context) ([]types.Recommendation, error) {
		return e.recommend.Recommend(ctx, rctx)
	})
}

// Trending returns the top plugins by install velocity (spec §6
// "trending(period, limit)").
func (e *Engine) Trending(ctx context.Context, period types.TrendingPeriod, limit int) Envelope {
	return doRecommend(ctx, e, "trending", func(ctx context.Context) ([]types.Recommendation, error) {
		return e.recommend.Trending(ctx, period, limit)
	})
}

// Similar returns content-based recommendations seeded by one plugin
// (spec §6 "similar(plugin_id, limit)").
func (e *Engine) Similar(ctx context.Context, pluginID string, limit int) Envelope {
	return doRecommend(ctx, e, "similar", func(ctx context.Context) ([]types.Recommendation, error) {
		return e.recommend.Similar(ctx, pluginID, limit)
	})
}

// Categories lists category display metadata (spec §6 "categories()").
func (e *Engine) Categories(ctx context.Context) Envelope {
	return do(ctx, e, "categories", func(ctx context.Context) ([]types.CategoryMeta, error) {
		cats, err := e.store.Categories(ctx)
		if err != nil {
			return nil, engineerr.Store("categories", err)
		}
		return cats, nil
	})
}

// RecordInstall records an install event and invalidates the
// recommendation cache entries it touches (spec §6
// "record_install(plugin_id, user_id?, version?, source?)").
func (e *Engine) RecordInstall(ctx context.Context, pluginID, userID, version, source string) Envelope {
	return do(ctx, e, "record_install", func(ctx context.Context) (ack, error) {
		return ack{}, e.recommend.RecordInstall(ctx, pluginID, userID, version, source, time.Now())
	})
}

// RecordUninstall records an uninstall event and invalidates the
// recommendation cache entries it touches (spec §6
// "record_uninstall(plugin_id, user_id?)").
func (e *Engine) RecordUninstall(ctx context.Context, pluginID, userID string) Envelope {
	return do(ctx, e, "record_uninstall", func(ctx context.Context) (ack, error) {
		return ack{}, e.recommend.RecordUninstall(ctx, pluginID, userID, time.Now())
	})
}

// ClickResult reports whether the click was attached to a matching
// search event and the session id it was recorded under.
type ClickResult struct {
	Found     bool   `json:"found"`
	SessionID string `json:"session_id"`
}

// RecordClick attaches a click to the most recent unclicked matching
// search event for (query, session_id) (spec §6 "record_click(query,
// plugin_id, position, session_id?)").
func (e *Engine) RecordClick(ctx context.Context, query, pluginID string, position int, sessionID string) Envelope {
	return do(ctx, e, "record_click", func(ctx context.Context) (ClickResult, error) {
		sessionID = sessionIDOrNew(sessionID)
		found, err := e.search.RecordClick(ctx, query, sessionID, pluginID, position)
		if err != nil {
			return ClickResult{}, err
		}
		return ClickResult{Found: found, SessionID: sessionID}, nil
	})
}

// GetAnalytics assembles the full analytics bundle over the trailing
// daysBack window (spec §6 "get_analytics(days_back)").
func (e *Engine) GetAnalytics(ctx context.Context, daysBack int) Envelope {
	return do(ctx, e, "get_analytics", func(ctx context.Context) (types.AnalyticsSummary, error) {
		return e.analytics.Summary(ctx, daysBack, time.Now())
	})
}
