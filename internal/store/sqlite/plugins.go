package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pluginforge/core/internal/normalize"
	"github.com/pluginforge/core/internal/types"
)

// UpsertPlugin inserts or updates one plugin by plugin_id, preserving
// downloads/rating/rating_count/created_at across an update (spec §4.3
// step 2). The FTS5 projection stays in sync automatically via the
// plugins_ai/au/ad triggers (schema.go).
func (s *Store) UpsertPlugin(ctx context.Context, p types.Plugin) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return upsertPluginTx(tx, p)
	})
}

func upsertPluginTx(tx *sql.Tx, p types.Plugin) error {
	now := nowStr()
	tagsJoined := strings.Join(p.Tags, ",")

	var existingCreatedAt sql.NullString
	var existingDownloads, existingRatingCount sql.NullInt64
	var existingRating sql.NullFloat64
	err := tx.QueryRow(`SELECT created_at, downloads, rating, rating_count FROM plugins WHERE plugin_id = ?`, p.PluginID).
		Scan(&existingCreatedAt, &existingDownloads, &existingRating, &existingRatingCount)
	exists := err == nil
	if err != nil && err != sql.ErrNoRows {
		return wrapDBError("check existing plugin", err)
	}

	createdAt := now
	downloads := p.Downloads
	rating := p.Rating
	ratingCount := p.RatingCount
	if exists {
		createdAt = existingCreatedAt.String
		downloads = existingDownloads.Int64
		rating = existingRating.Float64
		ratingCount = existingRatingCount.Int64
	}

	nameRes := normalize.Text(p.Name)
	descRes := normalize.Text(p.Description)
	kwRes := normalize.Text(p.Keywords)
	readmeRes := normalize.Text(p.README)
	tagsRes := normalize.Text(tagsJoined)

	_, err = tx.Exec(`
		INSERT INTO plugins (
			plugin_id, name, version, description, author_name, author_email,
			license, homepage, repository_url, category, tags, keywords, readme,
			downloads, rating, rating_count, created_at, updated_at, published_at,
			last_modified_at, is_featured, is_deprecated, metadata,
			name_tokens, description_tokens, keywords_tokens, readme_tokens, tags_tokens
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(plugin_id) DO UPDATE SET
			name=excluded.name, version=excluded.version, description=excluded.description,
			author_name=excluded.author_name, author_email=excluded.author_email,
			license=excluded.license, homepage=excluded.homepage,
			repository_url=excluded.repository_url, category=excluded.category,
			tags=excluded.tags, keywords=excluded.keywords, readme=excluded.readme,
			downloads=excluded.downloads, rating=excluded.rating, rating_count=excluded.rating_count,
			updated_at=excluded.updated_at, published_at=excluded.published_at,
			last_modified_at=excluded.last_modified_at, is_featured=excluded.is_featured,
			is_deprecated=excluded.is_deprecated, metadata=excluded.metadata,
			name_tokens=excluded.name_tokens, description_tokens=excluded.description_tokens,
			keywords_tokens=excluded.keywords_tokens, readme_tokens=excluded.readme_tokens,
			tags_tokens=excluded.tags_tokens
	`,
		p.PluginID, p.Name, p.Version, p.Description, p.AuthorName, p.AuthorEmail,
		p.License, p.Homepage, p.RepositoryURL, string(p.Category), tagsJoined, p.Keywords, p.README,
		downloads, rating, ratingCount, createdAt, now, nullableTime(p.PublishedAt),
		nullableTime(p.LastModifiedAt), boolToInt(p.IsFeatured), boolToInt(p.IsDeprecated), p.Metadata,
		strings.Join(nameRes.Tokens, " "), strings.Join(descRes.Tokens, " "),
		strings.Join(kwRes.Tokens, " "), strings.Join(readmeRes.Tokens, " "), strings.Join(tagsRes.Tokens, " "),
	)
	if err != nil {
		return wrapDBError("upsert plugin", err)
	}
	return nil
}

// BatchResult is the outcome of a bulk ingest (spec §4.3 "Ingest a batch").
type BatchResult struct {
	Indexed int
	Skipped int
	Failed  int
	Errors  []error
}

// UpsertPluginsBatch ingests plugins in one transaction. A single
// plugin's failure is recorded in Errors and does not abort the batch.
func (s *Store) UpsertPluginsBatch(ctx context.Context, plugins []types.Plugin) (BatchResult, error) {
	var result BatchResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, p := range plugins {
			if p.PluginID == "" {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Errorf("plugin missing plugin_id"))
				continue
			}
			if err := upsertPluginTx(tx, p); err != nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Errorf("plugin %q: %w", p.PluginID, err))
				continue
			}
			result.Indexed++
		}
		return nil
	})
	return result, err
}

// GetPlugin fetches one plugin by id.
func (s *Store) GetPlugin(ctx context.Context, id string) (types.Plugin, error) {
	row := s.db.QueryRowContext(ctx, pluginSelectColumns+` FROM plugins WHERE plugin_id = ?`, id)
	return scanPlugin(row)
}

// GetPluginsByIDs fetches multiple plugins by id, skipping any that are
// missing rather than erroring.
func (s *Store) GetPluginsByIDs(ctx context.Context, ids []string) (map[string]types.Plugin, error) {
	out := make(map[string]types.Plugin, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders, args := inClause(ids)
	rows, err := s.db.QueryContext(ctx, pluginSelectColumns+` FROM plugins WHERE plugin_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, wrapDBError("get plugins by ids", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanPluginRows(rows)
		if err != nil {
			return nil, wrapDBError("scan plugin", err)
		}
		out[p.PluginID] = p
	}
	return out, wrapDBError("get plugins by ids", rows.Err())
}

// CandidateFilter narrows a plugin listing (spec §4.4 "options.filters").
type CandidateFilter struct {
	PluginIDs         []string // restrict to this candidate set (e.g. FTS hits); nil means unrestricted
	Category          string
	Author            string
	MinDownloads      *int64
	MaxDownloads      *int64
	MinRating         *float64
	FeaturedOnly      bool
	ExcludeDeprecated bool
	PublishedAfter    *time.Time
	PublishedBefore   *time.Time
	TagsAnyOf         []string
}

func (f CandidateFilter) where() (string, []any) {
	var clauses []string
	var args []any

	if f.PluginIDs != nil {
		if len(f.PluginIDs) == 0 {
			return "1=0", nil // empty candidate set matches nothing
		}
		ph, a := inClause(f.PluginIDs)
		clauses = append(clauses, "plugin_id IN ("+ph+")")
		args = append(args, a...)
	}
	if f.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, f.Category)
	}
	if f.Author != "" {
		clauses = append(clauses, "author_name = ?")
		args = append(args, f.Author)
	}
	if f.MinDownloads != nil {
		clauses = append(clauses, "downloads >= ?")
		args = append(args, *f.MinDownloads)
	}
	if f.MaxDownloads != nil {
		clauses = append(clauses, "downloads <= ?")
		args = append(args, *f.MaxDownloads)
	}
	if f.MinRating != nil {
		clauses = append(clauses, "rating >= ?")
		args = append(args, *f.MinRating)
	}
	if f.FeaturedOnly {
		clauses = append(clauses, "is_featured = 1")
	}
	if f.ExcludeDeprecated {
		clauses = append(clauses, "is_deprecated = 0")
	}
	if f.PublishedAfter != nil {
		clauses = append(clauses, "published_at >= ?")
		args = append(args, f.PublishedAfter.UTC().Format(time.RFC3339Nano))
	}
	if f.PublishedBefore != nil {
		clauses = append(clauses, "published_at <= ?")
		args = append(args, f.PublishedBefore.UTC().Format(time.RFC3339Nano))
	}
	for _, tag := range f.TagsAnyOf {
		clauses = append(clauses, "(',' || tags || ',') LIKE ?")
		args = append(args, "%,"+tag+",%")
	}
	if len(clauses) == 0 {
		return "1=1", args
	}
	return strings.Join(clauses, " AND "), args
}

// ListPlugins returns plugins matching filter, sorted by sortSQL
// (a column expression already validated by the caller), paginated.
// It also returns the total matching count, for pagination metadata.
func (s *Store) ListPlugins(ctx context.Context, filter CandidateFilter, orderBy string, limit, offset int) ([]types.Plugin, int, error) {
	whereSQL, args := filter.where()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM plugins WHERE `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, wrapDBError("count plugins", err)
	}

	q := pluginSelectColumns + ` FROM plugins WHERE ` + whereSQL
	if orderBy != "" {
		q += " ORDER BY " + orderBy
	}
	q += " LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, wrapDBError("list plugins", err)
	}
	defer rows.Close()

	var out []types.Plugin
	for rows.Next() {
		p, err := scanPluginRows(rows)
		if err != nil {
			return nil, 0, wrapDBError("scan plugin", err)
		}
		out = append(out, p)
	}
	return out, total, wrapDBError("list plugins", rows.Err())
}

const pluginSelectColumns = `SELECT
	plugin_id, name, version, description, author_name, author_email, license,
	homepage, repository_url, category, tags, keywords, readme, downloads,
	rating, rating_count, created_at, updated_at, published_at, last_modified_at,
	is_featured, is_deprecated, metadata`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlugin(row *sql.Row) (types.Plugin, error) {
	return scanPluginGeneric(row)
}

func scanPluginRows(rows *sql.Rows) (types.Plugin, error) {
	return scanPluginGeneric(rows)
}

func scanPluginGeneric(s rowScanner) (types.Plugin, error) {
	var p types.Plugin
	var category, tags string
	var createdAt, updatedAt string
	var publishedAt, lastModifiedAt sql.NullString
	var isFeatured, isDeprecated int

	err := s.Scan(
		&p.PluginID, &p.Name, &p.Version, &p.Description, &p.AuthorName, &p.AuthorEmail, &p.License,
		&p.Homepage, &p.RepositoryURL, &category, &tags, &p.Keywords, &p.README, &p.Downloads,
		&p.Rating, &p.RatingCount, &createdAt, &updatedAt, &publishedAt, &lastModifiedAt,
		&isFeatured, &isDeprecated, &p.Metadata,
	)
	if err != nil {
		return types.Plugin{}, wrapDBError("scan plugin", err)
	}
	p.Category = types.Category(category)
	if tags != "" {
		p.Tags = strings.Split(tags, ",")
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	p.PublishedAt = parseTimePtr(publishedAt)
	p.LastModifiedAt = parseTimePtr(lastModifiedAt)
	p.IsFeatured = isFeatured != 0
	p.IsDeprecated = isDeprecated != 0
	return p, nil
}

func inClause(ids []string) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ","), args
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableTime(t *time.Time) sql.NullString {
	return timePtrStr(t)
}
