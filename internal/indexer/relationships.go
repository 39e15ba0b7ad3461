package indexer

import (
	"context"

	"github.com/pluginforge/core/internal/engineerr"
	"github.com/pluginforge/core/internal/types"
)

// pairKey canonicalizes an unordered plugin pair by lexicographic order
// so each pair is counted once regardless of enumeration order (spec §3
// "Co-install relationship... canonicalize pairs by lexicographic
// order").
func pairKey(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}

// RefreshRelationships rebuilds the co-install graph from active
// membership: for every user (within the fan-out cap), every pair of
// their active plugins co-occurs once; confidence is the Jaccard index
// of the two plugins' active-user sets (spec §4.3 "Co-install
// relationship rebuild").
func (ix *Indexer) RefreshRelationships(ctx context.Context) error {
	membership, err := ix.store.ActiveMembershipByUser(ctx, ix.cfg.MaxUserFanout)
	if err != nil {
		return engineerr.Store("refresh relationships: load membership", err)
	}

	counts := make(map[[2]string]int64)
	for _, plugins := range membership {
		for i := 0; i < len(plugins); i++ {
			for j := i + 1; j < len(plugins); j++ {
				a, b := pairKey(plugins[i], plugins[j])
				if a == b {
					continue
				}
				counts[[2]string{a, b}]++
			}
		}
	}

	userSetCache := make(map[string]map[string]struct{})
	usersFor := func(pluginID string) (map[string]struct{}, error) {
		if cached, ok := userSetCache[pluginID]; ok {
			return cached, nil
		}
		users, err := ix.store.ActiveUsersForPlugin(ctx, pluginID)
		if err != nil {
			return nil, err
		}
		userSetCache[pluginID] = users
		return users, nil
	}

	var rels []types.CoInstallRelationship
	for pair, count := range counts {
		if count < ix.cfg.MinCoInstallCount {
			continue
		}
		usersA, err := usersFor(pair[0])
		if err != nil {
			return engineerr.Store("refresh relationships: active users", err)
		}
		usersB, err := usersFor(pair[1])
		if err != nil {
			return engineerr.Store("refresh relationships: active users", err)
		}
		confidence := jaccard(usersA, usersB)
		rels = append(rels, types.CoInstallRelationship{
			PluginA:        pair[0],
			PluginB:        pair[1],
			CoInstallCount: count,
			Confidence:     confidence,
		})
	}

	if err := ix.store.ReplaceCoInstallRelationships(ctx, rels); err != nil {
		return engineerr.Store("refresh relationships: replace", err)
	}
	ix.log.Info("relationship rebuild complete", "users", len(membership), "pairs", len(rels))
	return nil
}

// jaccard computes |a ∩ b| / |a ∪ b| over two user-id sets, 0 if the
// union is empty.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for u := range a {
		if _, ok := b[u]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
