// Package search resolves full-text queries against the Store, scores
// and ranks candidates on a blend of signals, and records the
// query-time analytics that feed gap detection and CTR (spec §4.4).
package search

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pluginforge/core/internal/engineerr"
	"github.com/pluginforge/core/internal/normalize"
	"github.com/pluginforge/core/internal/store/sqlite"
	"github.com/pluginforge/core/internal/timeparse"
	"github.com/pluginforge/core/internal/types"
)

// fuzzyFloor is the minimum result count that short-circuits the fuzzy
// fallback (spec §4.4 "Fuzzy search. First attempt exact search. If >=5
// results, return them.").
const fuzzyFloor = 5

// Engine resolves search queries (spec §4.4).
type Engine struct {
	store   *sqlite.Store
	log     *slog.Logger
	weights types.ScoreWeights
}

// New builds a search Engine. A zero-value weights argument falls back
// to the spec defaults.
func New(store *sqlite.Store, log *slog.Logger, weights types.ScoreWeights) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if weights == (types.ScoreWeights{}) {
		weights = types.DefaultScoreWeights()
	}
	return &Engine{store: store, log: log, weights: weights}
}

// DefaultOptions returns the spec's default option set: relevance sort
// descending, limit 20, offset 0, deprecated plugins excluded.
func DefaultOptions() types.SearchOptions {
	return types.SearchOptions{
		Filters: types.SearchFilters{ExcludeDeprecated: true},
		Sort:    types.SortRelevance,
		Order:   types.OrderDesc,
		Limit:   20,
	}
}

// Search resolves query against the full-text index, scores and ranks
// the result, applies filters and pagination, and records a search
// event (spec §4.4 steps 1-8).
func (e *Engine) Search(ctx context.Context, query string, opts types.SearchOptions) (types.SearchPage, error) {
	return e.search(ctx, query, opts, false)
}

// FuzzySearch runs an exact search first; if it returns fewer than
// fuzzyFloor results, it retries with each query token expanded to a
// prefix match and re-scores (spec §4.4 "Fuzzy search").
func (e *Engine) FuzzySearch(ctx context.Context, query string, opts types.SearchOptions) (types.SearchPage, error) {
	page, err := e.search(ctx, query, opts, false)
	if err != nil {
		return types.SearchPage{}, err
	}
	if page.Total >= fuzzyFloor {
		return page, nil
	}
	fuzzyPage, err := e.search(ctx, query, opts, true)
	if err != nil {
		return types.SearchPage{}, err
	}
	fuzzyPage.UsedFuzzy = true
	return fuzzyPage, nil
}

func (e *Engine) search(ctx context.Context, query string, opts types.SearchOptions, fuzzy bool) (types.SearchPage, error) {
	now := time.Now()
	norm := normalize.Text(query)
	if len(norm.Tokens) == 0 {
		return types.SearchPage{Query: query, EchoedFilters: opts.Filters, GeneratedAt: now}, nil
	}

	// The FTS5 backend indexes raw tokens, not stems (see
	// internal/store/sqlite/schema.go's design note), so the full-text
	// predicate is built from the query's raw tokens; tfidf_sum below
	// still runs against stems per spec §4.4 step 4.
	hits, err := e.store.FullTextSearch(ctx, norm.Tokens, fuzzy)
	if err != nil {
		return types.SearchPage{}, engineerr.Store("search: full text lookup", err)
	}
	if len(hits) == 0 {
		e.recordSearchEvent(ctx, query, opts.SessionID, 0, now)
		return types.SearchPage{Query: query, EchoedFilters: opts.Filters, GeneratedAt: now}, nil
	}

	candidateIDs := make([]string, len(hits))
	for i, h := range hits {
		candidateIDs[i] = h.PluginID
	}

	filter, err := e.toCandidateFilter(ctx, opts.Filters, candidateIDs, now)
	if err != nil {
		return types.SearchPage{}, err
	}

	plugins, _, err := e.store.ListPlugins(ctx, filter, "", len(candidateIDs), 0)
	if err != nil {
		return types.SearchPage{}, engineerr.Store("search: list candidates", err)
	}
	if len(plugins) == 0 {
		e.recordSearchEvent(ctx, query, opts.SessionID, 0, now)
		return types.SearchPage{Query: query, EchoedFilters: opts.Filters, GeneratedAt: now}, nil
	}

	pluginIDs := make([]string, len(plugins))
	for i, p := range plugins {
		pluginIDs[i] = p.PluginID
	}
	tfidfSums, err := e.store.TFIDFSum(ctx, pluginIDs, norm.Stems)
	if err != nil {
		return types.SearchPage{}, engineerr.Store("search: tfidf sum", err)
	}

	var maxDownloads int64
	for _, p := range plugins {
		if p.Downloads > maxDownloads {
			maxDownloads = p.Downloads
		}
	}

	rawQuery := strings.ToLower(strings.TrimSpace(query))
	results := make([]types.ScoredResult, 0, len(plugins))
	for _, p := range plugins {
		results = append(results, e.score(p, tfidfSums[p.PluginID], maxDownloads, rawQuery, norm.Tokens, now))
	}

	sortResults(results, opts.Sort, opts.Order)

	total := len(results)
	page := paginate(results, opts.Limit, opts.Offset)

	e.recordSearchEvent(ctx, query, opts.SessionID, total, now)

	return types.SearchPage{
		Results:       page,
		Total:         total,
		Query:         query,
		EchoedFilters: opts.Filters,
		GeneratedAt:   now,
	}, nil
}

func (e *Engine) toCandidateFilter(ctx context.Context, f types.SearchFilters, candidateIDs []string, now time.Time) (sqlite.CandidateFilter, error) {
	cf := sqlite.CandidateFilter{
		PluginIDs:    candidateIDs,
		Category:     f.Category,
		Author:       f.Author,
		MinDownloads: f.MinDownloads,
		MaxDownloads: f.MaxDownloads,
		MinRating:    f.MinRating,
		FeaturedOnly: f.FeaturedOnly,
		// ExcludeDeprecated is copied as given: DefaultOptions sets it
		// true, but a zero-value SearchOptions leaves it false, and
		// deprecated plugins are then included.
		ExcludeDeprecated: f.ExcludeDeprecated,
		TagsAnyOf:         f.TagsAnyOf,
	}
	if f.PublishedAfter != "" {
		t, ok, err := timeparse.Resolve(f.PublishedAfter, now)
		if err != nil {
			return sqlite.CandidateFilter{}, engineerr.Validation("published_after: " + err.Error())
		}
		if ok {
			cf.PublishedAfter = &t
		}
	}
	if f.PublishedBefore != "" {
		t, ok, err := timeparse.Resolve(f.PublishedBefore, now)
		if err != nil {
			return sqlite.CandidateFilter{}, engineerr.Validation("published_before: " + err.Error())
		}
		if ok {
			cf.PublishedBefore = &t
		}
	}
	return cf, nil
}

// score computes the five component signals and the weighted combined
// score for one candidate (spec §4.4 step 4-5).
func (e *Engine) score(p types.Plugin, tfidfSum float64, maxDownloads int64, rawQuery string, queryTokens []string, now time.Time) types.ScoredResult {
	downloadScore := 1.0
	if maxDownloads > 0 {
		downloadScore = float64(p.Downloads) / float64(maxDownloads)
	}
	ratingScore := p.Rating / 5.0

	recencyScore := 0.0
	if p.PublishedAt != nil {
		ageYears := now.Sub(*p.PublishedAt).Hours() / 24 / 365.25
		recencyScore = math.Max(0, 1-ageYears)
	}

	boost := relevanceBoost(p, rawQuery)

	combined := e.weights.TFIDF*tfidfSum +
		e.weights.Downloads*downloadScore +
		e.weights.Rating*ratingScore +
		e.weights.Recency*recencyScore +
		e.weights.Relevance*boost

	return types.ScoredResult{
		Plugin:         p,
		CombinedScore:  combined,
		TFIDFSum:       tfidfSum,
		DownloadScore:  downloadScore,
		RatingScore:    ratingScore,
		RecencyScore:   recencyScore,
		RelevanceBoost: boost,
		MatchedFields:  matchedFields(p, queryTokens),
	}
}

// relevanceBoost implements spec §4.4 step 4's name/description boost
// ladder, capped at 1.0.
func relevanceBoost(p types.Plugin, rawQuery string) float64 {
	if rawQuery == "" {
		return 0
	}
	name := strings.ToLower(p.Name)
	var boost float64
	switch {
	case name == rawQuery:
		boost = 1.0
	case strings.HasPrefix(name, rawQuery):
		boost = 0.7
	case strings.Contains(name, rawQuery):
		boost = 0.5
	}
	if strings.Contains(strings.ToLower(p.Description), rawQuery) {
		boost += 0.3
	}
	if p.IsFeatured {
		boost += 0.2
	}
	return math.Min(1.0, boost)
}

// matchedFields reports which of {name, description, keywords, readme}
// contain any query token, for UI highlighting (spec §4.4).
func matchedFields(p types.Plugin, queryTokens []string) []types.Field {
	check := func(text string) bool {
		lower := strings.ToLower(text)
		for _, tok := range queryTokens {
			if strings.Contains(lower, tok) {
				return true
			}
		}
		return false
	}
	var fields []types.Field
	if check(p.Name) {
		fields = append(fields, types.FieldName)
	}
	if check(p.Description) {
		fields = append(fields, types.FieldDescription)
	}
	if check(p.Keywords) {
		fields = append(fields, types.FieldKeywords)
	}
	if check(p.README) {
		fields = append(fields, types.FieldREADME)
	}
	return fields
}

// sortResults orders results in place per the requested sort key and
// order, with a deterministic downloads-desc then plugin_id-asc tiebreak
// (spec §4.4 step 6).
func sortResults(results []types.ScoredResult, sortKey types.SortKey, order types.SortOrder) {
	less := func(i, j int) bool {
		a, b := results[i], results[j]
		var primary bool
		var tie bool
		switch sortKey {
		case types.SortDownloads:
			primary = a.Plugin.Downloads < b.Plugin.Downloads
			tie = a.Plugin.Downloads == b.Plugin.Downloads
		case types.SortRating:
			primary = a.Plugin.Rating < b.Plugin.Rating
			tie = a.Plugin.Rating == b.Plugin.Rating
		case types.SortRecent:
			at, bt := publishedOrZero(a.Plugin), publishedOrZero(b.Plugin)
			primary = at.Before(bt)
			tie = at.Equal(bt)
		case types.SortName:
			primary = a.Plugin.Name < b.Plugin.Name
			tie = a.Plugin.Name == b.Plugin.Name
		default: // relevance
			primary = a.CombinedScore < b.CombinedScore
			tie = a.CombinedScore == b.CombinedScore
		}
		if order == types.OrderAsc {
			if tie {
				return deterministicTiebreak(a, b)
			}
			return primary
		}
		if tie {
			return deterministicTiebreak(a, b)
		}
		return !primary
	}
	sort.SliceStable(results, less)
}

// deterministicTiebreak breaks ties by downloads desc then plugin_id asc
// (spec §4.4 step 6, §5 "Ordering guarantees").
func deterministicTiebreak(a, b types.ScoredResult) bool {
	if a.Plugin.Downloads != b.Plugin.Downloads {
		return a.Plugin.Downloads > b.Plugin.Downloads
	}
	return a.Plugin.PluginID < b.Plugin.PluginID
}

func publishedOrZero(p types.Plugin) time.Time {
	if p.PublishedAt == nil {
		return time.Time{}
	}
	return *p.PublishedAt
}

func paginate(results []types.ScoredResult, limit, offset int) []types.ScoredResult {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(results) {
		return nil
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}

// recordSearchEvent records the query outcome and, on a zero-result
// query, upserts a search gap. Store failures here are logged and
// swallowed per spec §4.4's failure semantics.
func (e *Engine) recordSearchEvent(ctx context.Context, query, sessionID string, resultsCount int, at time.Time) {
	if _, err := e.store.RecordSearchEvent(ctx, types.SearchEvent{
		Query:        query,
		ResultsCount: resultsCount,
		SessionID:    sessionID,
		SearchedAt:   at,
	}); err != nil {
		e.log.Warn("record search event failed", "query", query, "error", err)
	}
	if resultsCount == 0 {
		if err := e.store.UpsertSearchGap(ctx, query, resultsCount, at); err != nil {
			e.log.Warn("upsert search gap failed", "query", query, "error", err)
		}
	}
}
