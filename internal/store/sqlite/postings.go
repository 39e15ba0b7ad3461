package sqlite

import (
	"context"
	"database/sql"

	"github.com/pluginforge/core/internal/types"
)

// ReplaceAllPostings atomically replaces every term_postings and
// document_frequency row with the supplied sets (spec §4.3 "TF-IDF
// refresh... runs as one transaction. A failed refresh leaves prior state
// intact.").
func (s *Store) ReplaceAllPostings(ctx context.Context, postings []types.TermPosting, dfs []types.DocumentFrequency) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM term_postings`); err != nil {
			return wrapDBError("clear term postings", err)
		}
		if _, err := tx.Exec(`DELETE FROM document_frequency`); err != nil {
			return wrapDBError("clear document frequency", err)
		}

		stmt, err := tx.Prepare(`INSERT INTO term_postings (term, plugin_id, field, tf, idf, tfidf) VALUES (?,?,?,?,?,?)`)
		if err != nil {
			return wrapDBError("prepare posting insert", err)
		}
		defer stmt.Close()
		for _, p := range postings {
			if _, err := stmt.ExecContext(ctx, p.Term, p.PluginID, string(p.Field), p.TF, p.IDF, p.TFIDF); err != nil {
				return wrapDBError("insert posting", err)
			}
		}

		dfStmt, err := tx.Prepare(`INSERT INTO document_frequency (term, document_count, total_documents, idf_score) VALUES (?,?,?,?)`)
		if err != nil {
			return wrapDBError("prepare df insert", err)
		}
		defer dfStmt.Close()
		for _, d := range dfs {
			if _, err := dfStmt.ExecContext(ctx, d.Term, d.DocumentCount, d.TotalDocuments, d.IDFScore); err != nil {
				return wrapDBError("insert document frequency", err)
			}
		}
		return nil
	})
}

// TFIDFSum sums tfidf_score for each candidate plugin across the supplied
// query stems, restricted to no particular field (spec §4.4 step 4).
func (s *Store) TFIDFSum(ctx context.Context, pluginIDs []string, stems []string) (map[string]float64, error) {
	out := make(map[string]float64, len(pluginIDs))
	if len(pluginIDs) == 0 || len(stems) == 0 {
		return out, nil
	}
	pluginPH, pluginArgs := inClause(pluginIDs)
	stemPH, stemArgs := inClause(stems)

	args := append(pluginArgs, stemArgs...)
	rows, err := s.db.QueryContext(ctx, `
		SELECT plugin_id, SUM(tfidf) FROM term_postings
		WHERE plugin_id IN (`+pluginPH+`) AND term IN (`+stemPH+`)
		GROUP BY plugin_id
	`, args...)
	if err != nil {
		return nil, wrapDBError("tfidf sum", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var sum float64
		if err := rows.Scan(&id, &sum); err != nil {
			return nil, wrapDBError("scan tfidf sum", err)
		}
		out[id] = sum
	}
	return out, wrapDBError("tfidf sum", rows.Err())
}

// DocumentFrequencyFor returns the persisted document_frequency row for
// term, if one exists.
func (s *Store) DocumentFrequencyFor(ctx context.Context, term string) (types.DocumentFrequency, bool, error) {
	var d types.DocumentFrequency
	err := s.db.QueryRowContext(ctx, `
		SELECT term, document_count, total_documents, idf_score FROM document_frequency WHERE term = ?
	`, term).Scan(&d.Term, &d.DocumentCount, &d.TotalDocuments, &d.IDFScore)
	if err == sql.ErrNoRows {
		return types.DocumentFrequency{}, false, nil
	}
	if err != nil {
		return types.DocumentFrequency{}, false, wrapDBError("document frequency for term", err)
	}
	return d, true, nil
}

// SuggestByStem returns up to limit non-deprecated plugins whose name or
// keywords field has a term_postings row whose term contains stem, ordered
// by downloads descending (spec §4.4 "Suggestions").
func (s *Store) SuggestByStem(ctx context.Context, stem string, limit int) ([]types.Plugin, error) {
	rows, err := s.db.QueryContext(ctx, pluginSelectColumns+` FROM plugins WHERE is_deprecated = 0 AND plugin_id IN (
		SELECT DISTINCT plugin_id FROM term_postings WHERE term LIKE ? AND field IN ('name', 'keywords')
	) ORDER BY downloads DESC, plugin_id ASC LIMIT ?`, "%"+stem+"%", limit)
	if err != nil {
		return nil, wrapDBError("suggest by stem", err)
	}
	defer rows.Close()

	var out []types.Plugin
	for rows.Next() {
		p, err := scanPluginRows(rows)
		if err != nil {
			return nil, wrapDBError("scan suggestion", err)
		}
		out = append(out, p)
	}
	return out, wrapDBError("suggest by stem", rows.Err())
}

// AllNonDeprecatedPluginFields returns, for every non-deprecated plugin,
// its id paired with the raw text of each field the indexer tokenizes
// (spec §4.3's per-(plugin,field) tf/df computation needs the raw text,
// not the pre-joined token projection, so tf is computed against the
// field's own token count).
type PluginFieldText struct {
	PluginID    string
	Name        string
	Description string
	Keywords    string
	README      string
	Tags        string
}

func (s *Store) AllNonDeprecatedPluginFields(ctx context.Context) ([]PluginFieldText, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT plugin_id, name, description, keywords, readme, tags
		FROM plugins WHERE is_deprecated = 0
	`)
	if err != nil {
		return nil, wrapDBError("list plugin fields", err)
	}
	defer rows.Close()

	var out []PluginFieldText
	for rows.Next() {
		var f PluginFieldText
		if err := rows.Scan(&f.PluginID, &f.Name, &f.Description, &f.Keywords, &f.README, &f.Tags); err != nil {
			return nil, wrapDBError("scan plugin fields", err)
		}
		out = append(out, f)
	}
	return out, wrapDBError("list plugin fields", rows.Err())
}
