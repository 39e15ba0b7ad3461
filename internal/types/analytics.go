package types

import "time"

// TopSearch is one row of the "top searches" aggregate (spec §4.6).
type TopSearch struct {
	Query        string
	SearchCount  int64
	AvgResults   float64
}

// CTRStat is the overall or per-query click-through aggregate.
type CTRStat struct {
	Query   string // empty for the overall aggregate
	Clicks  int64
	Searches int64
	CTR     float64
}

// TrendingQuery is a query whose search volume grew week over week.
type TrendingQuery struct {
	Query      string
	ThisWeek   int64
	LastWeek   int64
	GrowthRatio float64
}

// ConversionFunnel is the search -> result -> click -> install pipeline
// counted over a window (spec §4.6).
type ConversionFunnel struct {
	Searches       int64
	NonEmptyResults int64
	Clicks         int64
	Installs       int64
}

// CategoryPopularity is one row of the popular-categories aggregate.
type CategoryPopularity struct {
	Category string
	Installs int64
}

// PositionBias is clicks observed at a given result position.
type PositionBias struct {
	Position int
	Clicks   int64
}

// UserPattern is one row of the per-user activity aggregate: search,
// click, and install counts for one user_id over the window (spec §4.6
// "Per-user patterns... analogous SQL aggregate" to per-position bias
// and popular categories).
type UserPattern struct {
	UserID   string
	Searches int64
	Clicks   int64
	Installs int64
}

// AnalyticsSummary bundles every aggregate returned by get_analytics
// (spec §6 "get_analytics(days_back)").
type AnalyticsSummary struct {
	WindowDays      int
	GeneratedAt     time.Time
	TopSearches     []TopSearch
	SearchGaps      []SearchGap
	OverallCTR      CTRStat
	PerQueryCTR     []CTRStat
	TrendingQueries []TrendingQuery
	Funnel          ConversionFunnel
	PositionBias    []PositionBias
	PopularCategories []CategoryPopularity
	UserPatterns    []UserPattern
}
