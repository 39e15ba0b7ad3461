package types

import "time"

// SortKey selects the ordering for a search results page (spec §4.4
// "options.sort").
type SortKey string

const (
	SortRelevance SortKey = "relevance"
	SortDownloads SortKey = "downloads"
	SortRating    SortKey = "rating"
	SortRecent    SortKey = "recent"
	SortName      SortKey = "name"
)

// SortOrder selects ascending or descending.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// SearchFilters narrows the candidate set (spec §4.4 "options.filters").
type SearchFilters struct {
	Category          string
	Author            string
	MinDownloads      *int64
	MaxDownloads      *int64
	MinRating         *float64
	FeaturedOnly      bool
	ExcludeDeprecated bool
	PublishedAfter    string // RFC3339 or natural-language, resolved by internal/timeparse
	PublishedBefore   string
	TagsAnyOf         []string
}

// SearchOptions is the full recognized option set for search/fuzzy_search
// (spec §4.4).
type SearchOptions struct {
	Filters       SearchFilters
	Sort          SortKey
	Order         SortOrder
	Limit         int
	Offset        int
	IncludeReadme bool
	// SessionID correlates this search event with a later record_click
	// call (spec §4.4 step 8, §4.6 "Click recording"). The facade
	// generates one when a caller omits it.
	SessionID string
}

// ScoredResult is one ranked search hit with its scoring breakdown and
// the fields that matched the query, for UI highlighting (spec §4.4
// "matched_fields").
type ScoredResult struct {
	Plugin         Plugin
	CombinedScore  float64
	TFIDFSum       float64
	DownloadScore  float64
	RatingScore    float64
	RecencyScore   float64
	RelevanceBoost float64
	MatchedFields  []Field
}

// SearchPage is the full return value of search/fuzzy_search: the
// ranked page plus pagination/echo metadata.
type SearchPage struct {
	Results        []ScoredResult
	Total          int
	Query          string
	EchoedFilters  SearchFilters
	UsedFuzzy      bool
	GeneratedAt    time.Time
}

// ScoreWeights are the configurable combination weights for the search
// scoring formula (spec §4.4 step 5, spec §6 "Configuration"). They
// are expected to sum to 1.0 by convention, not enforced.
type ScoreWeights struct {
	TFIDF      float64
	Downloads  float64
	Rating     float64
	Recency    float64
	Relevance  float64
}

// DefaultScoreWeights are the spec's default combination weights:
// 0.4·tfidf + 0.2·download + 0.2·rating + 0.1·recency + 0.1·boost.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{TFIDF: 0.4, Downloads: 0.2, Rating: 0.2, Recency: 0.1, Relevance: 0.1}
}
