// Package pluginforge is the embeddable facade over the plugin
// discovery engine: one entry point wiring the store, indexer, search,
// recommendation, analytics, config, and telemetry subsystems together,
// and exposing every operation through a uniform success/error envelope
// (spec §4.7, §6). The teacher has no single facade of its own (it's a
// CLI over many backend integrations), so this shape is built directly
// from the spec; the envelope mirrors the teacher's RPC response
// wrapper in spirit — one typed result shape, timing attached uniformly
// — without depending on that package (daemon transport, out of scope
// here).
package pluginforge

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/pluginforge/core/internal/analytics"
	"github.com/pluginforge/core/internal/config"
	"github.com/pluginforge/core/internal/indexer"
	"github.com/pluginforge/core/internal/normalize"
	"github.com/pluginforge/core/internal/recommend"
	"github.com/pluginforge/core/internal/search"
	"github.com/pluginforge/core/internal/store/sqlite"
	"github.com/pluginforge/core/internal/telemetry"
)

// Options configures Open.
type Options struct {
	// StorePath is the SQLite database file (or ":memory:"). Required.
	StorePath string
	// ConfigPath is an optional TOML file of tunables (SPEC_FULL.md
	// §A.2). Empty means built-in defaults.
	ConfigPath string
	// Logger receives structured diagnostics from every subsystem. A
	// nil Logger falls back to slog.Default().
	Logger *slog.Logger
	// MeterProvider supplies the OpenTelemetry metrics backend. A nil
	// MeterProvider gets a stdout exporter (see internal/telemetry).
	MeterProvider metric.MeterProvider
	// WatchConfig starts a background reload loop against ConfigPath
	// (spec SPEC_FULL.md §A.2 "hot-reload"). Ignored when ConfigPath is
	// empty. A reload updates the config Manager's snapshot only; the
	// subsystems keep the values Open copied into them.
	WatchConfig bool
}

// Engine is the facade: every exported method corresponds to one spec
// §6 operation and returns an Envelope rather than an (T, error) pair,
// so callers get a uniform success/error/timing contract regardless of
// which subsystem served the request.
type Engine struct {
	store     *sqlite.Store
	indexer   *indexer.Indexer
	search    *search.Engine
	recommend *recommend.Engine
	analytics *analytics.Collector
	config    *config.Manager
	inst      *telemetry.Instrumentation
}

// Open builds an Engine over opts.StorePath, loading and (optionally)
// watching opts.ConfigPath, and wiring a telemetry instrumentation
// layer around every operation.
func Open(ctx context.Context, opts Options) (*Engine, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	store, err := sqlite.Open(opts.StorePath)
	if err != nil {
		return nil, err
	}

	cfgMgr, err := config.Load(opts.ConfigPath, log)
	if err != nil {
		store.Close()
		return nil, err
	}
	if opts.WatchConfig && opts.ConfigPath != "" {
		if err := cfgMgr.Watch(ctx); err != nil {
			store.Close()
			return nil, err
		}
	}
	cfg := cfgMgr.Current()

	inst, err := telemetry.New(opts.MeterProvider, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	idxCfg := indexer.DefaultConfig()
	idxCfg.VelocityWeightDay = cfg.Velocity.Day
	idxCfg.VelocityWeightWeek = cfg.Velocity.Week
	idxCfg.VelocityWeightMonth = cfg.Velocity.Month
	if cfg.StopWordFingerprint != "" {
		idxCfg.StopWordFingerprint = cfg.StopWordFingerprint
	}
	normalize.SetStemmerEnabled(cfg.StemmerEnabled)

	e := &Engine{
		store:   store,
		indexer: indexer.New(store, log, idxCfg),
		search:  search.New(store, log, cfg.ScoreWeights),
		recommend: recommend.New(store, log, recommend.TTLs{
			Collaborative: cfg.CacheTTLs.Collaborative,
			ContentBased:  cfg.CacheTTLs.ContentBased,
			Trending:      cfg.CacheTTLs.Trending,
			Similar:       cfg.CacheTTLs.Similar,
		}),
		analytics: analytics.New(store, log),
		config:    cfgMgr,
		inst:      inst,
	}
	return e, nil
}

// Close releases the underlying store and stops the config watcher, if
// any.
func (e *Engine) Close() error {
	e.config.Stop()
	return e.store.Close()
}

// Envelope is the uniform result shape every facade operation returns
// (spec §4.7): success plus data, or success=false plus a short
// human-readable error, always carrying timing/caching metadata.
type Envelope struct {
	Success  bool     `json:"success"`
	Data     any      `json:"data,omitempty"`
	Error    string   `json:"error,omitempty"`
	Metadata Metadata `json:"metadata"`
}

// Metadata is the envelope's uniform timing/caching footer (spec §4.7
// "metadata: { timestamp, execution_time_ms, cached }").
type Metadata struct {
	Timestamp       time.Time `json:"timestamp"`
	ExecutionTimeMS int64     `json:"execution_time_ms"`
	Cached          bool      `json:"cached"`
}

// ack is the zero-data payload for operations whose success is the
// whole answer (index_plugin, update_tfidf, record_install, ...).
type ack struct{}
