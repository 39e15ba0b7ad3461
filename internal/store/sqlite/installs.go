package sqlite

import (
	"context"
	"database/sql"
	"time"
)

// RecordInstall appends an install event and upserts the active
// membership row (spec §3 "Install event" / "User-plugin membership"),
// and bumps the plugin's download counter.
func (s *Store) RecordInstall(ctx context.Context, pluginID, userID, version, source string, at time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		ts := at.UTC().Format(time.RFC3339Nano)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO install_events (plugin_id, user_id, version, installed_at, installation_source)
			VALUES (?,?,?,?,?)
		`, pluginID, userID, version, ts, source); err != nil {
			return wrapDBError("record install event", err)
		}

		if userID != "" {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO user_plugin_membership (user_id, plugin_id, installed_at, is_active)
				VALUES (?, ?, ?, 1)
				ON CONFLICT(user_id, plugin_id) DO UPDATE SET installed_at=excluded.installed_at, is_active=1
			`, userID, pluginID, ts); err != nil {
				return wrapDBError("upsert membership", err)
			}
		}

		if _, err := tx.ExecContext(ctx, `UPDATE plugins SET downloads = downloads + 1, updated_at = ? WHERE plugin_id = ?`, nowStr(), pluginID); err != nil {
			return wrapDBError("bump downloads", err)
		}
		return nil
	})
}

// RecordUninstall marks the most recent matching install event
// uninstalled and flips the membership row inactive.
func (s *Store) RecordUninstall(ctx context.Context, pluginID, userID string, at time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		ts := at.UTC().Format(time.RFC3339Nano)
		_, err := tx.ExecContext(ctx, `
			UPDATE install_events SET uninstalled_at = ?
			WHERE id = (
				SELECT id FROM install_events
				WHERE plugin_id = ? AND user_id = ? AND uninstalled_at IS NULL
				ORDER BY installed_at DESC LIMIT 1
			)
		`, ts, pluginID, userID)
		if err != nil {
			return wrapDBError("record uninstall event", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE user_plugin_membership SET is_active = 0 WHERE user_id = ? AND plugin_id = ?
		`, userID, pluginID); err != nil {
			return wrapDBError("deactivate membership", err)
		}
		return nil
	})
}

// ActiveMembershipByUser returns, for every user with at least one active
// install within the fan-out cap, the set of plugin ids they have
// active. Users with more than maxFanOut active installs are skipped
// entirely (spec §9's bound on co-install enumeration scale).
func (s *Store) ActiveMembershipByUser(ctx context.Context, maxFanOut int) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, plugin_id FROM user_plugin_membership
		WHERE is_active = 1 AND user_id IN (
			SELECT user_id FROM user_plugin_membership WHERE is_active = 1
			GROUP BY user_id HAVING COUNT(*) <= ?
		)
		ORDER BY user_id
	`, maxFanOut)
	if err != nil {
		return nil, wrapDBError("active membership by user", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var user, plugin string
		if err := rows.Scan(&user, &plugin); err != nil {
			return nil, wrapDBError("scan membership", err)
		}
		out[user] = append(out[user], plugin)
	}
	return out, wrapDBError("active membership by user", rows.Err())
}

// ActiveUsersForPlugin returns the set of user ids with an active install
// of pluginID, used to compute Jaccard confidence between two plugins.
func (s *Store) ActiveUsersForPlugin(ctx context.Context, pluginID string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM user_plugin_membership WHERE plugin_id = ? AND is_active = 1`, pluginID)
	if err != nil {
		return nil, wrapDBError("active users for plugin", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, wrapDBError("scan user", err)
		}
		out[u] = struct{}{}
	}
	return out, wrapDBError("active users for plugin", rows.Err())
}

// InstallCountsSince counts active-install events with installed_at >= since,
// per plugin, for trending window computation (spec §3 "Trending record").
func (s *Store) InstallCountsSince(ctx context.Context, since time.Time) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT plugin_id, COUNT(*) FROM install_events
		WHERE installed_at >= ? AND uninstalled_at IS NULL GROUP BY plugin_id
	`, since.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, wrapDBError("install counts since", err)
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var id string
		var n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, wrapDBError("scan install count", err)
		}
		out[id] = n
	}
	return out, wrapDBError("install counts since", rows.Err())
}
