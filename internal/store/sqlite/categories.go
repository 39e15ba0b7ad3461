package sqlite

import (
	"context"

	"github.com/pluginforge/core/internal/types"
)

// UpsertCategoryMeta seeds or updates display metadata for a category;
// plugin_count is left to RecountCategories (spec §3 "plugin_count is
// derived").
func (s *Store) UpsertCategoryMeta(ctx context.Context, c types.CategoryMeta) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (name, display_name, description, sort_order, is_active, plugin_count)
		VALUES (?,?,?,?,?,0)
		ON CONFLICT(name) DO UPDATE SET
			display_name=excluded.display_name, description=excluded.description,
			sort_order=excluded.sort_order, is_active=excluded.is_active
	`, c.Name, c.DisplayName, c.Description, c.SortOrder, boolToInt(c.IsActive))
	return wrapDBError("upsert category meta", err)
}

// RecountCategories recomputes plugin_count for every category from the
// live plugins table.
func (s *Store) RecountCategories(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE categories SET plugin_count = (
			SELECT COUNT(*) FROM plugins WHERE plugins.category = categories.name
		)
	`)
	return wrapDBError("recount categories", err)
}

// Categories lists category metadata ordered for display (spec §6
// "categories()").
func (s *Store) Categories(ctx context.Context) ([]types.CategoryMeta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, display_name, description, plugin_count, sort_order, is_active
		FROM categories ORDER BY sort_order ASC, name ASC
	`)
	if err != nil {
		return nil, wrapDBError("list categories", err)
	}
	defer rows.Close()

	var out []types.CategoryMeta
	for rows.Next() {
		var c types.CategoryMeta
		var isActive int
		if err := rows.Scan(&c.Name, &c.DisplayName, &c.Description, &c.PluginCount, &c.SortOrder, &isActive); err != nil {
			return nil, wrapDBError("scan category", err)
		}
		c.IsActive = isActive != 0
		out = append(out, c)
	}
	return out, wrapDBError("list categories", rows.Err())
}
