package sqlite

import (
	"context"
	"time"

	"github.com/pluginforge/core/internal/types"
)

// RecordSearchEvent appends a search event and returns its id (spec §4.4
// step 8). Best-effort: callers swallow the error per spec §4.4's
// failure semantics ("a store failure during analytics recording is
// logged and swallowed").
func (s *Store) RecordSearchEvent(ctx context.Context, ev types.SearchEvent) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO search_events (query, filters_snapshot, results_count, session_id, user_id, searched_at)
		VALUES (?,?,?,?,?,?)
	`, ev.Query, ev.FiltersSnapshot, ev.ResultsCount, ev.SessionID, ev.UserID, ev.SearchedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, wrapDBError("record search event", err)
	}
	id, err := res.LastInsertId()
	return id, wrapDBError("record search event", err)
}

// UpsertSearchGap inserts a new zero-result gap or increments an
// existing one's occurrence count (spec §3 "Search-gap record").
func (s *Store) UpsertSearchGap(ctx context.Context, query string, resultsCount int, at time.Time) error {
	ts := at.UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO search_gaps (query, results_count, first_seen, last_seen, occurrence_count, status)
		VALUES (?, ?, ?, ?, 1, 'open')
		ON CONFLICT(query) DO UPDATE SET
			last_seen = excluded.last_seen,
			results_count = excluded.results_count,
			occurrence_count = occurrence_count + 1
	`, query, resultsCount, ts, ts)
	return wrapDBError("upsert search gap", err)
}

// RecordClick locates the most recent matching search event for
// (query, sessionID) with no recorded click and attaches the click (spec
// §4.4 "Click recording"). If no match is found, no row is written.
func (s *Store) RecordClick(ctx context.Context, query, sessionID, pluginID string, position int) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE search_events SET clicked_plugin_id = ?, click_position = ?
		WHERE id = (
			SELECT id FROM search_events
			WHERE query = ? AND session_id = ? AND clicked_plugin_id IS NULL
			ORDER BY searched_at DESC LIMIT 1
		)
	`, pluginID, position, query, sessionID)
	if err != nil {
		return false, wrapDBError("record click", err)
	}
	n, err := res.RowsAffected()
	return n > 0, wrapDBError("record click", err)
}

// SearchGapRow fetches one gap row by query, for tests and diagnostics.
func (s *Store) SearchGapRow(ctx context.Context, query string) (types.SearchGap, error) {
	var g types.SearchGap
	var firstSeen, lastSeen, status string
	err := s.db.QueryRowContext(ctx, `
		SELECT query, results_count, first_seen, last_seen, occurrence_count, status
		FROM search_gaps WHERE query = ?
	`, query).Scan(&g.Query, &g.ResultsCount, &firstSeen, &lastSeen, &g.OccurrenceCount, &status)
	if err != nil {
		return types.SearchGap{}, wrapDBError("search gap row", err)
	}
	g.FirstSeen = parseTime(firstSeen)
	g.LastSeen = parseTime(lastSeen)
	g.Status = types.GapStatus(status)
	return g, nil
}
