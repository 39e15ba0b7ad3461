// Package analytics assembles the search-analytics summary from the
// store's raw aggregate queries (spec §4.6). Clicks and installs are
// recorded by internal/search and internal/recommend, not here.
package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/pluginforge/core/internal/engineerr"
	"github.com/pluginforge/core/internal/store/sqlite"
	"github.com/pluginforge/core/internal/types"
)

// defaultMinGapOccurrences and defaultMinQuerySearches match spec §4.6's
// worked thresholds ("search gaps with occurrence_count >= min", "CTR per
// query with >= 5 searches").
const (
	defaultMinGapOccurrences = 1
	defaultMinQuerySearches  = 5
	defaultTopLimit          = 20
)

// Collector assembles analytics summaries over the store's recorded
// search/install events.
type Collector struct {
	store *sqlite.Store
	log   *slog.Logger
}

// New builds a Collector over store.
func New(store *sqlite.Store, log *slog.Logger) *Collector {
	if log == nil {
		log = slog.Default()
	}
	return &Collector{store: store, log: log}
}

// Summary assembles every aggregate in spec §4.6's get_analytics bundle
// over the trailing daysBack window, evaluated as of now.
func (c *Collector) Summary(ctx context.Context, daysBack int, now time.Time) (types.AnalyticsSummary, error) {
	if daysBack <= 0 {
		daysBack = 30
	}
	since := now.Add(-time.Duration(daysBack) * 24 * time.Hour)

	topSearches, err := c.store.TopSearches(ctx, since, defaultTopLimit)
	if err != nil {
		return types.AnalyticsSummary{}, engineerr.Store("analytics: top searches", err)
	}
	gaps, err := c.store.SearchGaps(ctx, defaultMinGapOccurrences, "")
	if err != nil {
		return types.AnalyticsSummary{}, engineerr.Store("analytics: search gaps", err)
	}
	overallCTR, err := c.store.OverallCTR(ctx, since)
	if err != nil {
		return types.AnalyticsSummary{}, engineerr.Store("analytics: overall ctr", err)
	}
	perQueryCTR, err := c.store.PerQueryCTR(ctx, since, defaultMinQuerySearches)
	if err != nil {
		return types.AnalyticsSummary{}, engineerr.Store("analytics: per query ctr", err)
	}
	trending, err := c.store.TrendingQueries(ctx, now, defaultTopLimit)
	if err != nil {
		return types.AnalyticsSummary{}, engineerr.Store("analytics: trending queries", err)
	}
	funnel, err := c.store.ConversionFunnel(ctx, since)
	if err != nil {
		return types.AnalyticsSummary{}, engineerr.Store("analytics: conversion funnel", err)
	}
	positionBias, err := c.store.PositionBias(ctx, since)
	if err != nil {
		return types.AnalyticsSummary{}, engineerr.Store("analytics: position bias", err)
	}
	popularCategories, err := c.store.PopularCategories(ctx, since, defaultTopLimit)
	if err != nil {
		return types.AnalyticsSummary{}, engineerr.Store("analytics: popular categories", err)
	}
	userPatterns, err := c.store.UserPatterns(ctx, since, defaultTopLimit)
	if err != nil {
		return types.AnalyticsSummary{}, engineerr.Store("analytics: user patterns", err)
	}

	return types.AnalyticsSummary{
		WindowDays:        daysBack,
		GeneratedAt:       now,
		TopSearches:       topSearches,
		SearchGaps:        gaps,
		OverallCTR:        overallCTR,
		PerQueryCTR:       perQueryCTR,
		TrendingQueries:   trending,
		Funnel:            funnel,
		PositionBias:      positionBias,
		PopularCategories: popularCategories,
		UserPatterns:      userPatterns,
	}, nil
}

// SearchGaps lists gap rows filtered by minimum occurrence count and
// status, exposed separately from Summary for curation workflows (spec
// §4.6 "Search gaps: rows with occurrence_count >= min and status
// filter").
func (c *Collector) SearchGaps(ctx context.Context, minOccurrences int64, status types.GapStatus) ([]types.SearchGap, error) {
	gaps, err := c.store.SearchGaps(ctx, minOccurrences, status)
	if err != nil {
		return nil, engineerr.Store("search gaps", err)
	}
	return gaps, nil
}
