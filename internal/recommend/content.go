package recommend

import (
	"context"
	"sort"
	"strings"

	"github.com/pluginforge/core/internal/engineerr"
	"github.com/pluginforge/core/internal/store/sqlite"
	"github.com/pluginforge/core/internal/types"
)

// minContentSimilarity is the Jaccard floor below which a candidate is
// dropped (spec §4.5 "Keep pairs with sim >= 0.1").
const minContentSimilarity = 0.1

// contentPoolSize bounds how many non-deprecated candidates the
// content-based pass scans against; the engine is single-process and
// embedded, so this is a practical ceiling rather than a derived limit.
const contentPoolSize = 5000

// ContentBased returns plugins similar to the installed set `I` by
// tag/keyword Jaccard overlap, topped up from the given category when
// `I` is empty or thin (spec §4.5 "Content-based filtering").
func (e *Engine) ContentBased(ctx context.Context, installed []string, category string, limit int) ([]types.Recommendation, error) {
	rctx := types.RecommendContext{InstalledPluginIDs: installed, Category: category, Limit: limit}
	return e.cached(ctx, kindContentBased, rctx, e.ttls.ContentBased, func(ctx context.Context) ([]types.Recommendation, error) {
		return e.contentBased(ctx, installed, category, limit)
	})
}

func (e *Engine) contentBased(ctx context.Context, installed []string, category string, limit int) ([]types.Recommendation, error) {
	in := toSet(installed)

	seedPlugins, err := e.store.GetPluginsByIDs(ctx, installed)
	if err != nil {
		return nil, engineerr.Store("content based: load seeds", err)
	}

	pool, _, err := e.store.ListPlugins(ctx, sqlite.CandidateFilter{ExcludeDeprecated: true}, "downloads DESC", contentPoolSize, 0)
	if err != nil {
		return nil, engineerr.Store("content based: load pool", err)
	}

	best := make(map[string]types.Recommendation)
	for _, seed := range seedPlugins {
		tagSet := toStringSet(seed.Tags)
		kwSet := toStringSet(strings.Fields(seed.Keywords))
		for _, c := range pool {
			if isIn(in, c.PluginID) {
				continue
			}
			tagJ := jaccardStrings(tagSet, toStringSet(c.Tags))
			kwJ := jaccardStrings(kwSet, toStringSet(strings.Fields(c.Keywords)))
			sim := 0.6*tagJ + 0.4*kwJ
			if sim < minContentSimilarity {
				continue
			}
			if existing, ok := best[c.PluginID]; !ok || sim > existing.Score {
				best[c.PluginID] = types.Recommendation{
					Plugin: c,
					Score:  sim,
					Reason: "similar tags and keywords to your installed plugins",
					Kind:   types.KindContentBased,
				}
			}
		}
	}

	recs := make([]types.Recommendation, 0, len(best))
	for _, r := range best {
		recs = append(recs, r)
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].Plugin.PluginID < recs[j].Plugin.PluginID
	})

	// Top up with highest-downloaded/rated non-deprecated plugins in
	// category when I is empty or thin (spec §4.5).
	if (len(installed) == 0 || len(recs) < limit) && category != "" {
		recs = topUpFromCategory(recs, pool, in, category, limit)
	}

	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func topUpFromCategory(recs []types.Recommendation, pool []types.Plugin, in installedSet, category string, limit int) []types.Recommendation {
	have := make(map[string]struct{}, len(recs))
	for _, r := range recs {
		have[r.Plugin.PluginID] = struct{}{}
	}

	var candidates []types.Plugin
	for _, p := range pool {
		if isIn(in, p.PluginID) {
			continue
		}
		if _, ok := have[p.PluginID]; ok {
			continue
		}
		if string(p.Category) != category {
			continue
		}
		candidates = append(candidates, p)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Downloads != candidates[j].Downloads {
			return candidates[i].Downloads > candidates[j].Downloads
		}
		if candidates[i].Rating != candidates[j].Rating {
			return candidates[i].Rating > candidates[j].Rating
		}
		return candidates[i].PluginID < candidates[j].PluginID
	})

	for _, c := range candidates {
		if limit > 0 && len(recs) >= limit {
			break
		}
		recs = append(recs, types.Recommendation{
			Plugin: c,
			Score:  0,
			Reason: "popular in " + category,
			Kind:   types.KindPopular,
		})
	}
	return recs
}

func toStringSet(items []string) map[string]struct{} {
	s := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it != "" {
			s[it] = struct{}{}
		}
	}
	return s
}

func jaccardStrings(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
