package recommend

import (
	"context"
	"fmt"
	"sort"

	"github.com/pluginforge/core/internal/engineerr"
	"github.com/pluginforge/core/internal/types"
)

type installedSet map[string]struct{}

func toSet(ids []string) installedSet {
	s := make(installedSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// collaborativeCandidate accumulates the score and driving plugins for
// one candidate while folding in every relationship edge that touches it.
type collaborativeCandidate struct {
	pluginID string
	score    float64
	matches  []driver
}

type driver struct {
	pluginID   string
	confidence float64
}

// Collaborative returns plugins co-installed with the installed set `I`,
// scored by summed Jaccard confidence across every matching relationship
// edge, tie-broken by match count (spec §4.5 "Collaborative filtering").
func (e *Engine) Collaborative(ctx context.Context, installed []string, limit int) ([]types.Recommendation, error) {
	return e.cached(ctx, kindCollaborative, types.RecommendContext{InstalledPluginIDs: installed, Limit: limit}, e.ttls.Collaborative,
		func(ctx context.Context) ([]types.Recommendation, error) {
			return e.collaborative(ctx, installed, limit)
		})
}

func (e *Engine) collaborative(ctx context.Context, installed []string, limit int) ([]types.Recommendation, error) {
	if len(installed) == 0 {
		return nil, nil
	}
	in := toSet(installed)

	rels, err := e.store.RelationshipsTouching(ctx, installed)
	if err != nil {
		return nil, engineerr.Store("collaborative: relationships", err)
	}

	candidates := make(map[string]*collaborativeCandidate)
	for _, r := range rels {
		var installedEnd, other string
		switch {
		case isIn(in, r.PluginA) && !isIn(in, r.PluginB):
			installedEnd, other = r.PluginA, r.PluginB
		case isIn(in, r.PluginB) && !isIn(in, r.PluginA):
			installedEnd, other = r.PluginB, r.PluginA
		default:
			continue // both or neither endpoint installed; not a recommendation edge
		}
		c, ok := candidates[other]
		if !ok {
			c = &collaborativeCandidate{pluginID: other}
			candidates[other] = c
		}
		c.score += r.Confidence
		c.matches = append(c.matches, driver{pluginID: installedEnd, confidence: r.Confidence})
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	plugins, err := e.store.GetPluginsByIDs(ctx, ids)
	if err != nil {
		return nil, engineerr.Store("collaborative: load plugins", err)
	}

	ordered := make([]*collaborativeCandidate, 0, len(candidates))
	for _, c := range candidates {
		p, ok := plugins[c.pluginID]
		if !ok || p.IsDeprecated {
			continue // filter out deprecated and unknown plugins
		}
		ordered = append(ordered, c)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].score != ordered[j].score {
			return ordered[i].score > ordered[j].score
		}
		if len(ordered[i].matches) != len(ordered[j].matches) {
			return len(ordered[i].matches) > len(ordered[j].matches)
		}
		return ordered[i].pluginID < ordered[j].pluginID
	})
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[:limit]
	}

	recs := make([]types.Recommendation, 0, len(ordered))
	for _, c := range ordered {
		recs = append(recs, types.Recommendation{
			Plugin: plugins[c.pluginID],
			Score:  c.score,
			Reason: reasonFromDrivers(c.matches),
			Kind:   types.KindCollaborative,
		})
	}
	return recs, nil
}

func isIn(set installedSet, id string) bool {
	_, ok := set[id]
	return ok
}

// reasonFromDrivers names the two most-weighted driving plugins in I
// (spec §4.5 "Attach reason string identifying the two most-weighted
// driving plugins in I").
func reasonFromDrivers(matches []driver) string {
	sort.Slice(matches, func(i, j int) bool { return matches[i].confidence > matches[j].confidence })
	switch {
	case len(matches) == 0:
		return "co-installed with your plugins"
	case len(matches) == 1:
		return fmt.Sprintf("often installed with %s", matches[0].pluginID)
	default:
		return fmt.Sprintf("often installed with %s and %s", matches[0].pluginID, matches[1].pluginID)
	}
}
