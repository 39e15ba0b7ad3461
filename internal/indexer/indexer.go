// Package indexer ingests plugin records and maintains the derived
// tables the search and recommendation engines read from: term
// postings/document frequency (TF-IDF), the co-install relationship
// graph, and trending velocity (spec §4.3).
package indexer

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/pluginforge/core/internal/engineerr"
	"github.com/pluginforge/core/internal/normalize"
	"github.com/pluginforge/core/internal/store/sqlite"
	"github.com/pluginforge/core/internal/types"
)

// Config tunes indexing behavior that the spec leaves as an open
// parameter (spec §9's note on co-install enumeration scale).
type Config struct {
	// MaxUserFanout bounds how many active installs a single user may
	// have before their membership is excluded from co-install mining;
	// protects the rebuild from O(n^2) blowup on a power user. Default 500.
	MaxUserFanout int
	// MinCoInstallCount drops relationship pairs below this count
	// (spec §4.3 "co_install_count >= 2... smaller counts are not
	// useful and are dropped to bound cardinality"). Default 2.
	MinCoInstallCount int64
	// VelocityWeightDay, VelocityWeightWeek, VelocityWeightMonth weight
	// the 24h/7d/30d install counts in the trending velocity score (spec
	// §3 "velocity_score = 10*installs_today + 3*installs_week +
	// installs_month"), tunable via config so an operator can retune
	// trending without a rebuild (SPEC_FULL.md §A.2).
	VelocityWeightDay   float64
	VelocityWeightWeek  float64
	VelocityWeightMonth float64
	// StopWordFingerprint identifies the stop-word set the caller built
	// the index with (normally normalize.StopWordFingerprint). Recorded
	// by RefreshTFIDF and compared by StopWordFingerprintStale, so a
	// deployment that changes its stop-word list knows a reindex is
	// required before the new fingerprint matches again.
	StopWordFingerprint string
}

// stopWordFingerprintKey is the index_metadata row RefreshTFIDF records its
// Config.StopWordFingerprint under, compared by StopWordFingerprintStale.
const stopWordFingerprintKey = "stopword_fingerprint"

// DefaultConfig returns the spec-default tuning.
func DefaultConfig() Config {
	return Config{
		MaxUserFanout:       500,
		MinCoInstallCount:   2,
		VelocityWeightDay:   10.0,
		VelocityWeightWeek:  3.0,
		VelocityWeightMonth: 1.0,
		StopWordFingerprint: normalize.StopWordFingerprint,
	}
}

// Indexer owns plugin ingest and the periodic maintenance passes that
// derive term postings, relationships, and trending from the Store's
// raw event tables.
type Indexer struct {
	store *sqlite.Store
	log   *slog.Logger
	cfg   Config
}

// New builds an Indexer over store. A nil logger falls back to
// slog.Default().
func New(store *sqlite.Store, log *slog.Logger, cfg Config) *Indexer {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxUserFanout <= 0 {
		cfg.MaxUserFanout = DefaultConfig().MaxUserFanout
	}
	if cfg.MinCoInstallCount <= 0 {
		cfg.MinCoInstallCount = DefaultConfig().MinCoInstallCount
	}
	if cfg.VelocityWeightDay <= 0 && cfg.VelocityWeightWeek <= 0 && cfg.VelocityWeightMonth <= 0 {
		def := DefaultConfig()
		cfg.VelocityWeightDay, cfg.VelocityWeightWeek, cfg.VelocityWeightMonth = def.VelocityWeightDay, def.VelocityWeightWeek, def.VelocityWeightMonth
	}
	if cfg.StopWordFingerprint == "" {
		cfg.StopWordFingerprint = DefaultConfig().StopWordFingerprint
	}
	return &Indexer{store: store, log: log, cfg: cfg}
}

// IndexPlugin upserts one plugin record (spec §4.3 "Ingest one plugin").
// TF-IDF is not recomputed inline; callers schedule RefreshTFIDF
// separately.
func (ix *Indexer) IndexPlugin(ctx context.Context, p types.Plugin) error {
	if p.PluginID == "" {
		return engineerr.Validation("plugin missing plugin_id")
	}
	if p.Rating < 0 || p.Rating > 5 {
		return engineerr.Validation("rating out of range [0,5]")
	}
	if p.Category != "" && !p.Category.IsValid() {
		return engineerr.Validation("unknown category " + string(p.Category))
	}
	if err := ix.store.UpsertPlugin(ctx, p); err != nil {
		return engineerr.Store("index plugin", err)
	}
	return nil
}

// BuildOptions configures a bulk ingest (spec §6 "build_index(source,
// options)").
type BuildOptions struct {
	Rebuild             bool // (re)seeds categories.yaml's display metadata via SeedCategories; the plugin upsert itself is idempotent either way
	ComputeTFIDF        bool
	UpdateRelationships bool
	UpdateTrending      bool
}

// BuildResult reports the outcome of a bulk ingest plus whichever
// maintenance passes ran.
type BuildResult struct {
	sqlite.BatchResult
	TFIDFRefreshed       bool
	RelationshipsRebuilt bool
	TrendingRefreshed    bool
	CategoriesSeeded     bool
}

// BuildIndex ingests a batch of plugin records in one transaction, then
// optionally runs the requested maintenance passes (spec §4.3 "Ingest a
// batch").
func (ix *Indexer) BuildIndex(ctx context.Context, plugins []types.Plugin, opts BuildOptions) (BuildResult, error) {
	batch, err := ix.store.UpsertPluginsBatch(ctx, plugins)
	if err != nil {
		return BuildResult{}, engineerr.Store("build index", err)
	}
	result := BuildResult{BatchResult: batch}
	ix.log.Info("build index batch complete", "indexed", batch.Indexed, "skipped", batch.Skipped, "failed", batch.Failed)

	if opts.Rebuild {
		if err := ix.SeedCategories(ctx); err != nil {
			return result, err
		}
		result.CategoriesSeeded = true
	}

	if opts.ComputeTFIDF {
		if err := ix.RefreshTFIDF(ctx); err != nil {
			return result, err
		}
		result.TFIDFRefreshed = true
	}
	if opts.UpdateRelationships {
		if err := ix.RefreshRelationships(ctx); err != nil {
			return result, err
		}
		result.RelationshipsRebuilt = true
	}
	if opts.UpdateTrending {
		if err := ix.RefreshTrending(ctx, time.Now()); err != nil {
			return result, err
		}
		result.TrendingRefreshed = true
	}
	return result, nil
}

// RefreshTFIDF recomputes term frequency, document frequency, and
// tf-idf for every non-deprecated plugin across all five tokenized
// fields, and replaces the postings/document-frequency tables atomically
// (spec §4.3 "TF-IDF refresh").
func (ix *Indexer) RefreshTFIDF(ctx context.Context) error {
	docs, err := ix.store.AllNonDeprecatedPluginFields(ctx)
	if err != nil {
		return engineerr.Store("refresh tfidf: load fields", err)
	}

	n := float64(len(docs))
	// termDocs[term] -> set of plugin ids with term in any field; df(t) =
	// |{p : (t,p,*) exists}| is a union across fields, not a per-field
	// count (spec §3 "document_frequency... term -> document_count").
	termDocs := make(map[string]map[string]struct{})
	// perDoc[pluginID][field] -> stem frequency map for that document's field.
	type docTerms struct {
		counts map[string]int64
		total  int
	}
	perDoc := make(map[string]map[types.Field]docTerms, len(docs))

	fieldText := func(d sqlite.PluginFieldText, f types.Field) string {
		switch f {
		case types.FieldName:
			return d.Name
		case types.FieldDescription:
			return d.Description
		case types.FieldKeywords:
			return d.Keywords
		case types.FieldREADME:
			return d.README
		case types.FieldTags:
			return strings.ReplaceAll(d.Tags, ",", " ")
		}
		return ""
	}

	for _, d := range docs {
		perDoc[d.PluginID] = make(map[types.Field]docTerms, len(types.AllFields))
		for _, f := range types.AllFields {
			stems := normalize.Stems(fieldText(d, f))
			counts := make(map[string]int64, len(stems))
			for _, s := range stems {
				counts[s]++
			}
			perDoc[d.PluginID][f] = docTerms{counts: counts, total: len(stems)}

			for term := range counts {
				if termDocs[term] == nil {
					termDocs[term] = make(map[string]struct{})
				}
				termDocs[term][d.PluginID] = struct{}{}
			}
		}
	}

	mergedDF := make(map[string]int64, len(termDocs))
	for term, docSet := range termDocs {
		mergedDF[term] = int64(len(docSet))
	}

	idf := func(df int64) float64 {
		return math.Log((1+n)/(1+float64(df))) + 1
	}

	var postings []types.TermPosting
	var dfs []types.DocumentFrequency
	for term, df := range mergedDF {
		dfs = append(dfs, types.DocumentFrequency{
			Term:           term,
			DocumentCount:  df,
			TotalDocuments: int64(n),
			IDFScore:       idf(df),
		})
	}

	for pluginID, byField := range perDoc {
		for field, dt := range byField {
			if dt.total == 0 {
				continue
			}
			for term, count := range dt.counts {
				tf := float64(count) / float64(maxInt(1, dt.total))
				termIDF := idf(mergedDF[term])
				postings = append(postings, types.TermPosting{
					Term:     term,
					PluginID: pluginID,
					Field:    field,
					TF:       tf,
					IDF:      termIDF,
					TFIDF:    tf * termIDF,
				})
			}
		}
	}

	if err := ix.store.ReplaceAllPostings(ctx, postings, dfs); err != nil {
		return engineerr.Store("refresh tfidf: replace postings", err)
	}
	if err := ix.store.SetMetadata(ctx, stopWordFingerprintKey, ix.cfg.StopWordFingerprint); err != nil {
		return engineerr.Store("refresh tfidf: record stopword fingerprint", err)
	}
	ix.log.Info("tfidf refresh complete", "documents", len(docs), "terms", len(dfs), "postings", len(postings))
	return nil
}

// StopWordFingerprintStale reports whether the stop-word set this Indexer
// was configured with differs from the one recorded at the last
// RefreshTFIDF, meaning persisted term frequencies were computed against a
// different stop-word list and a reindex is due. Before any RefreshTFIDF
// has run, it reports stale.
func (ix *Indexer) StopWordFingerprintStale(ctx context.Context) (bool, error) {
	recorded, ok, err := ix.store.GetMetadata(ctx, stopWordFingerprintKey)
	if err != nil {
		return false, engineerr.Store("stopword fingerprint stale", err)
	}
	if !ok {
		return true, nil
	}
	return recorded != ix.cfg.StopWordFingerprint, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
