package search

import (
	"context"

	"github.com/pluginforge/core/internal/engineerr"
	"github.com/pluginforge/core/internal/normalize"
	"github.com/pluginforge/core/internal/types"
)

// Suggestions tokenizes partial, takes its last stem, and returns up to
// limit plugin names whose name or keywords carry a posting containing
// that stem, ordered by downloads descending (spec §4.4 "Suggestions").
func (e *Engine) Suggestions(ctx context.Context, partial string, limit int) ([]types.Plugin, error) {
	stems := normalize.Stems(partial)
	if len(stems) == 0 {
		return nil, nil
	}
	last := stems[len(stems)-1]
	if limit <= 0 {
		limit = 10
	}
	plugins, err := e.store.SuggestByStem(ctx, last, limit)
	if err != nil {
		return nil, engineerr.Store("suggestions", err)
	}
	return plugins, nil
}

// RecordClick attaches a click to the most recent unclicked matching
// search event (spec §4.4 "Click recording"). It reports whether a
// matching event was found; no row is fabricated when none is.
func (e *Engine) RecordClick(ctx context.Context, query, sessionID, pluginID string, position int) (bool, error) {
	found, err := e.store.RecordClick(ctx, query, sessionID, pluginID, position)
	if err != nil {
		return false, engineerr.Store("record click", err)
	}
	return found, nil
}
