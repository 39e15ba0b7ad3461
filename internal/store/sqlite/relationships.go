package sqlite

import (
	"context"
	"database/sql"

	"github.com/pluginforge/core/internal/types"
)

// ReplaceCoInstallRelationships atomically replaces the co-install graph
// (spec §4.3 "Co-install relationship rebuild... in one transaction").
func (s *Store) ReplaceCoInstallRelationships(ctx context.Context, rels []types.CoInstallRelationship) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM co_install_relationships`); err != nil {
			return wrapDBError("clear relationships", err)
		}
		stmt, err := tx.Prepare(`INSERT INTO co_install_relationships (plugin_a, plugin_b, co_install_count, confidence) VALUES (?,?,?,?)`)
		if err != nil {
			return wrapDBError("prepare relationship insert", err)
		}
		defer stmt.Close()
		for _, r := range rels {
			if _, err := stmt.ExecContext(ctx, r.PluginA, r.PluginB, r.CoInstallCount, r.Confidence); err != nil {
				return wrapDBError("insert relationship", err)
			}
		}
		return nil
	})
}

// RelationshipsTouching returns every relationship row with either
// endpoint in pluginIDs (spec §4.5 "Collaborative filtering").
func (s *Store) RelationshipsTouching(ctx context.Context, pluginIDs []string) ([]types.CoInstallRelationship, error) {
	if len(pluginIDs) == 0 {
		return nil, nil
	}
	ph, args := inClause(pluginIDs)
	args2 := make([]any, len(args)*2)
	copy(args2, args)
	copy(args2[len(args):], args)

	rows, err := s.db.QueryContext(ctx, `
		SELECT plugin_a, plugin_b, co_install_count, confidence FROM co_install_relationships
		WHERE plugin_a IN (`+ph+`) OR plugin_b IN (`+ph+`)
	`, args2...)
	if err != nil {
		return nil, wrapDBError("relationships touching", err)
	}
	defer rows.Close()

	var out []types.CoInstallRelationship
	for rows.Next() {
		var r types.CoInstallRelationship
		if err := rows.Scan(&r.PluginA, &r.PluginB, &r.CoInstallCount, &r.Confidence); err != nil {
			return nil, wrapDBError("scan relationship", err)
		}
		out = append(out, r)
	}
	return out, wrapDBError("relationships touching", rows.Err())
}
