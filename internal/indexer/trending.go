package indexer

import (
	"context"
	"time"

	"github.com/pluginforge/core/internal/engineerr"
	"github.com/pluginforge/core/internal/types"
)

// RefreshTrending recomputes each plugin's 24h/7d/30d install counts and
// velocity score relative to now, and replaces the trending table
// atomically (spec §4.3 "Trending refresh").
func (ix *Indexer) RefreshTrending(ctx context.Context, now time.Time) error {
	counts24h, err := ix.store.InstallCountsSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return engineerr.Store("refresh trending: 24h counts", err)
	}
	counts7d, err := ix.store.InstallCountsSince(ctx, now.Add(-7*24*time.Hour))
	if err != nil {
		return engineerr.Store("refresh trending: 7d counts", err)
	}
	counts30d, err := ix.store.InstallCountsSince(ctx, now.Add(-30*24*time.Hour))
	if err != nil {
		return engineerr.Store("refresh trending: 30d counts", err)
	}

	seen := make(map[string]struct{}, len(counts30d))
	for id := range counts24h {
		seen[id] = struct{}{}
	}
	for id := range counts7d {
		seen[id] = struct{}{}
	}
	for id := range counts30d {
		seen[id] = struct{}{}
	}

	records := make([]types.TrendingRecord, 0, len(seen))
	for id := range seen {
		d, w, m := counts24h[id], counts7d[id], counts30d[id]
		records = append(records, types.TrendingRecord{
			PluginID:      id,
			Installs24h:   d,
			Installs7d:    w,
			Installs30d:   m,
			VelocityScore: ix.cfg.VelocityWeightDay*float64(d) + ix.cfg.VelocityWeightWeek*float64(w) + ix.cfg.VelocityWeightMonth*float64(m),
			ComputedAt:    now,
		})
	}

	if err := ix.store.ReplaceTrending(ctx, records); err != nil {
		return engineerr.Store("refresh trending: replace", err)
	}
	ix.log.Info("trending refresh complete", "plugins", len(records))
	return nil
}

// Optimize asks the Store to reclaim space and refresh planner
// statistics; idempotent (spec §4.3 "Index maintenance").
func (ix *Indexer) Optimize(ctx context.Context) error {
	if err := ix.store.Optimize(ctx); err != nil {
		return engineerr.Store("optimize", err)
	}
	return nil
}

// Cleanup deletes search events older than daysToKeep (spec §4.6
// "Retention"). It lives on the Indexer's maintenance surface since
// build_index/optimize/cleanup are grouped under the same ingest API
// (spec §6).
func (ix *Indexer) Cleanup(ctx context.Context, daysToKeep int, now time.Time) (int64, error) {
	cutoff := now.Add(-time.Duration(daysToKeep) * 24 * time.Hour)
	n, err := ix.store.CleanupSearchEvents(ctx, cutoff)
	if err != nil {
		return 0, engineerr.Store("cleanup", err)
	}
	return n, nil
}
