package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/pluginforge/core/internal/types"
)

// EncodePluginIDs renders a sorted, deduped plugin id list as the ',' …
// ',' delimited column schema.go's comment describes, so
// invalidation is an exact membership test (SPEC_FULL.md §C).
func EncodePluginIDs(ids []string) string {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	uniq := make([]string, 0, len(set))
	for id := range set {
		uniq = append(uniq, id)
	}
	sort.Strings(uniq)
	return "," + strings.Join(uniq, ",") + ","
}

// GetCacheEntry fetches a live (non-expired) cache entry and bumps its
// hit count, or reports a miss (spec §4.5 "Cache").
func (s *Store) GetCacheEntry(ctx context.Context, key string, now time.Time) (types.CacheEntry, bool, error) {
	var e types.CacheEntry
	var generatedAt, expiresAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT cache_key, kind, context, results_blob, generated_at, expires_at, hit_count
		FROM recommendation_cache WHERE cache_key = ?
	`, key).Scan(&e.CacheKey, &e.Kind, &e.Context, &e.ResultsBlob, &generatedAt, &expiresAt, &e.HitCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.CacheEntry{}, false, nil
		}
		return types.CacheEntry{}, false, wrapDBError("get cache entry", err)
	}
	e.GeneratedAt = parseTime(generatedAt)
	e.ExpiresAt = parseTime(expiresAt)
	if !e.ExpiresAt.After(now) {
		return types.CacheEntry{}, false, nil
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE recommendation_cache SET hit_count = hit_count + 1 WHERE cache_key = ?`, key); err != nil {
		return types.CacheEntry{}, false, wrapDBError("bump cache hit count", err)
	}
	return e, true, nil
}

// PutCacheEntry upserts a fresh cache entry.
func (s *Store) PutCacheEntry(ctx context.Context, e types.CacheEntry, pluginIDs []string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recommendation_cache (cache_key, kind, context, context_plugin_ids, results_blob, generated_at, expires_at, hit_count)
		VALUES (?,?,?,?,?,?,?,0)
		ON CONFLICT(cache_key) DO UPDATE SET
			kind=excluded.kind, context=excluded.context, context_plugin_ids=excluded.context_plugin_ids,
			results_blob=excluded.results_blob, generated_at=excluded.generated_at,
			expires_at=excluded.expires_at, hit_count=0
	`, e.CacheKey, e.Kind, e.Context, EncodePluginIDs(pluginIDs), e.ResultsBlob,
		e.GeneratedAt.UTC().Format(time.RFC3339Nano), e.ExpiresAt.UTC().Format(time.RFC3339Nano))
	return wrapDBError("put cache entry", err)
}

// InvalidateCacheForPlugin expires every cache entry whose context
// references pluginID (spec §4.5 "Cache invalidation: on install or
// uninstall of plugin p, mark all cache entries whose context string
// references p as expired").
func (s *Store) InvalidateCacheForPlugin(ctx context.Context, pluginID string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE recommendation_cache SET expires_at = ?
		WHERE context_plugin_ids LIKE ?
	`, now.UTC().Format(time.RFC3339Nano), "%,"+pluginID+",%")
	return wrapDBError("invalidate cache for plugin", err)
}
