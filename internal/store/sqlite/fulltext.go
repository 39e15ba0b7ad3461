package sqlite

import (
	"context"
	"strings"
)

// FTSHit is one full-text candidate with its backend (bm25-like) rank.
// Lower Rank is better, matching SQLite FTS5's bm25() convention.
type FTSHit struct {
	PluginID string
	Rank     float64
}

// FullTextSearch returns the plugin ids whose name/description/keywords/
// readme/tags token projection matches the OR of tokens, each with a
// backend rank (spec §4.2). When prefix is true, each token is expanded
// to a prefix match (tok*) for the fuzzy-search fallback (spec §4.4).
func (s *Store) FullTextSearch(ctx context.Context, tokens []string, prefix bool) ([]FTSHit, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	matchExpr := buildMatchExpr(tokens, prefix)

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.plugin_id, bm25(plugins_fts) AS rank
		FROM plugins_fts
		JOIN plugins p ON p.rowid = plugins_fts.rowid
		WHERE plugins_fts MATCH ?
		ORDER BY rank
	`, matchExpr)
	if err != nil {
		return nil, wrapDBError("full text search", err)
	}
	defer rows.Close()

	var hits []FTSHit
	for rows.Next() {
		var h FTSHit
		if err := rows.Scan(&h.PluginID, &h.Rank); err != nil {
			return nil, wrapDBError("scan fts hit", err)
		}
		hits = append(hits, h)
	}
	return hits, wrapDBError("full text search", rows.Err())
}

// buildMatchExpr renders tokens as an FTS5 MATCH expression ORing each
// token (optionally as a prefix query) across all indexed columns.
func buildMatchExpr(tokens []string, prefix bool) string {
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = escapeFTSTerm(t)
		if prefix {
			parts = append(parts, `"`+t+`"*`)
		} else {
			parts = append(parts, `"`+t+`"`)
		}
	}
	return strings.Join(parts, " OR ")
}

// escapeFTSTerm strips double quotes from a term before it is embedded in
// an FTS5 MATCH string literal; normalized tokens never contain quotes in
// practice (they are alphanumeric, see internal/normalize), this is
// defense in depth against a stray token breaking the query syntax.
func escapeFTSTerm(t string) string {
	return strings.ReplaceAll(t, `"`, "")
}
