package indexer

import (
	"context"
	_ "embed"

	"gopkg.in/yaml.v3"

	"github.com/pluginforge/core/internal/engineerr"
	"github.com/pluginforge/core/internal/types"
)

//go:embed categories.yaml
var builtinCategories []byte

// categorySeed mirrors types.CategoryMeta's author-facing fields; the
// derived plugin_count is never part of the seed (spec §3 "plugin_count
// is derived").
type categorySeed struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`
	SortOrder   int    `yaml:"sort_order"`
	IsActive    bool   `yaml:"is_active"`
}

// SeedCategories (re)seeds the categories table's display metadata from
// the embedded categories.yaml, then recounts plugin_count against the
// live plugins table. Called on a build_index(options.rebuild=true)
// pass (spec §3 Category; display name/description/sort order are
// authored, not derived from ingest).
func (ix *Indexer) SeedCategories(ctx context.Context) error {
	var seeds []categorySeed
	if err := yaml.Unmarshal(builtinCategories, &seeds); err != nil {
		return engineerr.Validation("parse categories.yaml: " + err.Error())
	}
	for _, s := range seeds {
		meta := types.CategoryMeta{
			Name:        s.Name,
			DisplayName: s.DisplayName,
			Description: s.Description,
			SortOrder:   s.SortOrder,
			IsActive:    s.IsActive,
		}
		if err := ix.store.UpsertCategoryMeta(ctx, meta); err != nil {
			return engineerr.Store("seed category "+s.Name, err)
		}
	}
	if err := ix.store.RecountCategories(ctx); err != nil {
		return engineerr.Store("recount categories", err)
	}
	return nil
}
