package types

import "time"

// RecommendationKind tags how a recommended plugin was sourced (spec §4.5
// "Personalized recommend").
type RecommendationKind string

const (
	KindCollaborative RecommendationKind = "collaborative"
	KindContentBased  RecommendationKind = "content_based"
	KindTrending      RecommendationKind = "trending"
	KindPopular       RecommendationKind = "popular"
)

// Recommendation is one ranked result, carrying the plugin, its score, a
// human-readable reason, and its source kind.
type Recommendation struct {
	Plugin Plugin
	Score  float64
	Reason string
	Kind   RecommendationKind
}

// CacheEntry is a persisted recommendation-cache row (spec §3
// "Recommendation cache entry").
type CacheEntry struct {
	CacheKey     string
	Kind         string
	Context      string
	ResultsBlob  []byte
	GeneratedAt  time.Time
	ExpiresAt    time.Time
	HitCount     int64
}

// TrendingPeriod selects the window for the trending() operation.
type TrendingPeriod string

const (
	PeriodDay   TrendingPeriod = "day"
	PeriodWeek  TrendingPeriod = "week"
	PeriodMonth TrendingPeriod = "month"
)
