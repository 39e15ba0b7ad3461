package recommend

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/pluginforge/core/internal/types"
)

// canonicalContext renders ctx as a deterministic string: stable field
// order, sorted/deduped id and tag lists (spec §3 "canonical is a
// deterministic serialization of the context object").
func canonicalContext(ctx types.RecommendContext) string {
	ids := append([]string(nil), ctx.InstalledPluginIDs...)
	sort.Strings(ids)
	ids = dedupeSorted(ids)
	return fmt.Sprintf("ids=%s;category=%s;exclude=%t;limit=%d",
		strings.Join(ids, ","), ctx.Category, ctx.ExcludeInstalled, ctx.Limit)
}

func dedupeSorted(sorted []string) []string {
	out := sorted[:0:0]
	var prev string
	for i, s := range sorted {
		if i > 0 && s == prev {
			continue
		}
		out = append(out, s)
		prev = s
	}
	return out
}

// cacheKey computes H(kind || canonical(context)) with H = sha256,
// rendered as hex (spec §3 "cache_key = H(kind ∥ canonical(context))"),
// the same sha256-over-a-pipe-joined-content-string approach the
// teacher's idgen.GenerateHashID uses for its content hash
// (_teacherref/idgen/hash.go.txt), without the base36 id-shortening step
// since this key is an internal lookup key, never a user-facing id.
func cacheKey(kind string, ctx types.RecommendContext) string {
	content := kind + "||" + canonicalContext(ctx)
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
