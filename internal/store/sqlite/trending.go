package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pluginforge/core/internal/types"
)

// ReplaceTrending atomically replaces the per-plugin trending table
// (spec §4.3 "Trending refresh").
func (s *Store) ReplaceTrending(ctx context.Context, records []types.TrendingRecord) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM trending`); err != nil {
			return wrapDBError("clear trending", err)
		}
		stmt, err := tx.Prepare(`
			INSERT INTO trending (plugin_id, installs_24h, installs_7d, installs_30d, velocity_score, computed_at)
			VALUES (?,?,?,?,?,?)
		`)
		if err != nil {
			return wrapDBError("prepare trending insert", err)
		}
		defer stmt.Close()
		for _, r := range records {
			if _, err := stmt.ExecContext(ctx, r.PluginID, r.Installs24h, r.Installs7d, r.Installs30d,
				r.VelocityScore, r.ComputedAt.UTC().Format(time.RFC3339Nano)); err != nil {
				return wrapDBError("insert trending", err)
			}
		}
		return nil
	})
}

// TrendingTop returns the top-limit non-deprecated plugins by velocity
// score (spec §4.5 "Trending").
func (s *Store) TrendingTop(ctx context.Context, limit int) ([]types.TrendingRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.plugin_id, t.installs_24h, t.installs_7d, t.installs_30d, t.velocity_score, t.computed_at
		FROM trending t
		JOIN plugins p ON p.plugin_id = t.plugin_id
		WHERE p.is_deprecated = 0
		ORDER BY t.velocity_score DESC, t.plugin_id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, wrapDBError("trending top", err)
	}
	defer rows.Close()

	var out []types.TrendingRecord
	for rows.Next() {
		var r types.TrendingRecord
		var computedAt string
		if err := rows.Scan(&r.PluginID, &r.Installs24h, &r.Installs7d, &r.Installs30d, &r.VelocityScore, &computedAt); err != nil {
			return nil, wrapDBError("scan trending", err)
		}
		r.ComputedAt = parseTime(computedAt)
		out = append(out, r)
	}
	return out, wrapDBError("trending top", rows.Err())
}
