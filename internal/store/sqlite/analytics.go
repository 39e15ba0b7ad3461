package sqlite

import (
	"context"
	"time"

	"github.com/pluginforge/core/internal/types"
)

// TopSearches groups search_events by query over [since, now) and orders
// by search count descending (spec §4.6 "Top searches").
func (s *Store) TopSearches(ctx context.Context, since time.Time, limit int) ([]types.TopSearch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT query, COUNT(*) AS n, AVG(results_count)
		FROM search_events
		WHERE searched_at >= ?
		GROUP BY query
		ORDER BY n DESC, query ASC
		LIMIT ?
	`, since.UTC().Format(time.RFC3339Nano), limit)
	if err != nil {
		return nil, wrapDBError("top searches", err)
	}
	defer rows.Close()

	var out []types.TopSearch
	for rows.Next() {
		var t types.TopSearch
		if err := rows.Scan(&t.Query, &t.SearchCount, &t.AvgResults); err != nil {
			return nil, wrapDBError("scan top search", err)
		}
		out = append(out, t)
	}
	return out, wrapDBError("top searches", rows.Err())
}

// SearchGaps lists gap rows with occurrence_count >= minOccurrences and a
// matching status, newest-last-seen first (spec §4.6 "Search gaps"). An
// empty status matches every status.
func (s *Store) SearchGaps(ctx context.Context, minOccurrences int64, status types.GapStatus) ([]types.SearchGap, error) {
	query := `
		SELECT query, results_count, first_seen, last_seen, occurrence_count, status
		FROM search_gaps
		WHERE occurrence_count >= ?
	`
	args := []any{minOccurrences}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY last_seen DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("search gaps", err)
	}
	defer rows.Close()

	var out []types.SearchGap
	for rows.Next() {
		var g types.SearchGap
		var firstSeen, lastSeen, st string
		if err := rows.Scan(&g.Query, &g.ResultsCount, &firstSeen, &lastSeen, &g.OccurrenceCount, &st); err != nil {
			return nil, wrapDBError("scan search gap", err)
		}
		g.FirstSeen = parseTime(firstSeen)
		g.LastSeen = parseTime(lastSeen)
		g.Status = types.GapStatus(st)
		out = append(out, g)
	}
	return out, wrapDBError("search gaps", rows.Err())
}

// OverallCTR computes clicks/searches across every search event in the
// window (spec §4.6 "CTR").
func (s *Store) OverallCTR(ctx context.Context, since time.Time) (types.CTRStat, error) {
	var stat types.CTRStat
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(clicked_plugin_id)
		FROM search_events WHERE searched_at >= ?
	`, since.UTC().Format(time.RFC3339Nano)).Scan(&stat.Searches, &stat.Clicks)
	if err != nil {
		return types.CTRStat{}, wrapDBError("overall ctr", err)
	}
	if stat.Searches > 0 {
		stat.CTR = float64(stat.Clicks) / float64(stat.Searches)
	}
	return stat, nil
}

// PerQueryCTR computes per-query CTR restricted to queries with at least
// minSearches occurrences in the window (spec §4.6 "CTR... per query with
// ≥5 searches").
func (s *Store) PerQueryCTR(ctx context.Context, since time.Time, minSearches int64) ([]types.CTRStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT query, COUNT(*) AS n, COUNT(clicked_plugin_id) AS c
		FROM search_events
		WHERE searched_at >= ?
		GROUP BY query
		HAVING n >= ?
		ORDER BY n DESC, query ASC
	`, since.UTC().Format(time.RFC3339Nano), minSearches)
	if err != nil {
		return nil, wrapDBError("per query ctr", err)
	}
	defer rows.Close()

	var out []types.CTRStat
	for rows.Next() {
		var c types.CTRStat
		if err := rows.Scan(&c.Query, &c.Searches, &c.Clicks); err != nil {
			return nil, wrapDBError("scan per query ctr", err)
		}
		if c.Searches > 0 {
			c.CTR = float64(c.Clicks) / float64(c.Searches)
		}
		out = append(out, c)
	}
	return out, wrapDBError("per query ctr", rows.Err())
}

// TrendingQueries compares search volume for the most recent 7-day window
// against the preceding 7-day window and returns queries where both
// counts are positive, ordered by growth ratio descending (spec §4.6
// "Trending queries: this_week / last_week growth ratio where both
// positive").
func (s *Store) TrendingQueries(ctx context.Context, now time.Time, limit int) ([]types.TrendingQuery, error) {
	thisWeekStart := now.Add(-7 * 24 * time.Hour).UTC().Format(time.RFC3339Nano)
	lastWeekStart := now.Add(-14 * 24 * time.Hour).UTC().Format(time.RFC3339Nano)
	nowStr := now.UTC().Format(time.RFC3339Nano)

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			tw.query,
			tw.n AS this_week,
			COALESCE(lw.n, 0) AS last_week
		FROM (
			SELECT query, COUNT(*) AS n FROM search_events
			WHERE searched_at >= ? AND searched_at < ?
			GROUP BY query
		) tw
		LEFT JOIN (
			SELECT query, COUNT(*) AS n FROM search_events
			WHERE searched_at >= ? AND searched_at < ?
			GROUP BY query
		) lw ON lw.query = tw.query
		WHERE tw.n > 0 AND COALESCE(lw.n, 0) > 0
	`, thisWeekStart, nowStr, lastWeekStart, thisWeekStart)
	if err != nil {
		return nil, wrapDBError("trending queries", err)
	}
	defer rows.Close()

	var out []types.TrendingQuery
	for rows.Next() {
		var t types.TrendingQuery
		if err := rows.Scan(&t.Query, &t.ThisWeek, &t.LastWeek); err != nil {
			return nil, wrapDBError("scan trending query", err)
		}
		if t.LastWeek > 0 {
			t.GrowthRatio = float64(t.ThisWeek) / float64(t.LastWeek)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("trending queries", err)
	}

	sortTrendingQueriesByGrowth(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortTrendingQueriesByGrowth(qs []types.TrendingQuery) {
	for i := 1; i < len(qs); i++ {
		for j := i; j > 0 && qs[j].GrowthRatio > qs[j-1].GrowthRatio; j-- {
			qs[j], qs[j-1] = qs[j-1], qs[j]
		}
	}
}

// ConversionFunnel counts the search -> non-empty-result -> click ->
// install pipeline over the window (spec §4.6 "Search-conversion
// funnel... joined on installation_source = 'search'").
func (s *Store) ConversionFunnel(ctx context.Context, since time.Time) (types.ConversionFunnel, error) {
	var f types.ConversionFunnel
	sinceStr := since.UTC().Format(time.RFC3339Nano)

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			SUM(CASE WHEN results_count > 0 THEN 1 ELSE 0 END),
			SUM(CASE WHEN clicked_plugin_id IS NOT NULL THEN 1 ELSE 0 END)
		FROM search_events WHERE searched_at >= ?
	`, sinceStr).Scan(&f.Searches, &f.NonEmptyResults, &f.Clicks)
	if err != nil {
		return types.ConversionFunnel{}, wrapDBError("conversion funnel searches", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM install_events
		WHERE installation_source = 'search' AND installed_at >= ?
	`, sinceStr).Scan(&f.Installs)
	if err != nil {
		return types.ConversionFunnel{}, wrapDBError("conversion funnel installs", err)
	}
	return f, nil
}

// PositionBias counts clicks by reported click position (spec §4.6
// "per-position bias").
func (s *Store) PositionBias(ctx context.Context, since time.Time) ([]types.PositionBias, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT click_position, COUNT(*)
		FROM search_events
		WHERE searched_at >= ? AND click_position IS NOT NULL
		GROUP BY click_position
		ORDER BY click_position ASC
	`, since.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, wrapDBError("position bias", err)
	}
	defer rows.Close()

	var out []types.PositionBias
	for rows.Next() {
		var p types.PositionBias
		if err := rows.Scan(&p.Position, &p.Clicks); err != nil {
			return nil, wrapDBError("scan position bias", err)
		}
		out = append(out, p)
	}
	return out, wrapDBError("position bias", rows.Err())
}

// PopularCategories counts installs by the category of the installed
// plugin (spec §4.6 "popular categories").
func (s *Store) PopularCategories(ctx context.Context, since time.Time, limit int) ([]types.CategoryPopularity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.category, COUNT(*) AS n
		FROM install_events ie
		JOIN plugins p ON p.plugin_id = ie.plugin_id
		WHERE ie.installed_at >= ?
		GROUP BY p.category
		ORDER BY n DESC, p.category ASC
		LIMIT ?
	`, since.UTC().Format(time.RFC3339Nano), limit)
	if err != nil {
		return nil, wrapDBError("popular categories", err)
	}
	defer rows.Close()

	var out []types.CategoryPopularity
	for rows.Next() {
		var c types.CategoryPopularity
		if err := rows.Scan(&c.Category, &c.Installs); err != nil {
			return nil, wrapDBError("scan popular category", err)
		}
		out = append(out, c)
	}
	return out, wrapDBError("popular categories", rows.Err())
}

// UserPatterns aggregates search/click/install counts per user_id over
// the window, anonymous (empty user_id) rows excluded, ordered by total
// activity descending (spec §4.6 "Per-user patterns... analogous SQL
// aggregate" to PositionBias/PopularCategories above).
func (s *Store) UserPatterns(ctx context.Context, since time.Time, limit int) ([]types.UserPattern, error) {
	sinceStr := since.UTC().Format(time.RFC3339Nano)
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			u.user_id,
			COALESCE(se.searches, 0),
			COALESCE(se.clicks, 0),
			COALESCE(ie.installs, 0)
		FROM (
			SELECT user_id FROM search_events WHERE user_id != '' AND searched_at >= ?
			UNION
			SELECT user_id FROM install_events WHERE user_id != '' AND installed_at >= ?
		) u
		LEFT JOIN (
			SELECT user_id, COUNT(*) AS searches, COUNT(clicked_plugin_id) AS clicks
			FROM search_events WHERE user_id != '' AND searched_at >= ?
			GROUP BY user_id
		) se ON se.user_id = u.user_id
		LEFT JOIN (
			SELECT user_id, COUNT(*) AS installs
			FROM install_events WHERE user_id != '' AND installed_at >= ?
			GROUP BY user_id
		) ie ON ie.user_id = u.user_id
		ORDER BY (COALESCE(se.searches, 0) + COALESCE(ie.installs, 0)) DESC, u.user_id ASC
		LIMIT ?
	`, sinceStr, sinceStr, sinceStr, sinceStr, limit)
	if err != nil {
		return nil, wrapDBError("user patterns", err)
	}
	defer rows.Close()

	var out []types.UserPattern
	for rows.Next() {
		var p types.UserPattern
		if err := rows.Scan(&p.UserID, &p.Searches, &p.Clicks, &p.Installs); err != nil {
			return nil, wrapDBError("scan user pattern", err)
		}
		out = append(out, p)
	}
	return out, wrapDBError("user patterns", rows.Err())
}

// CleanupSearchEvents deletes search events older than the retention
// cutoff and returns the number of rows removed (spec §4.6 "Retention:
// cleanup(days_to_keep) deletes search events older than the cutoff").
func (s *Store) CleanupSearchEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM search_events WHERE searched_at < ?`, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, wrapDBError("cleanup search events", err)
	}
	n, err := res.RowsAffected()
	return n, wrapDBError("cleanup search events", err)
}
