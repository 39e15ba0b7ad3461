// Package config loads and hot-reloads the engine's tunable parameters:
// search scoring weights, recommendation cache TTLs, trending velocity
// weights, the stop-word fingerprint, the stemmer toggle, and SQLite
// connection parameters (SPEC_FULL.md §A.2). Grounded on the teacher's
// `internal/config` package (`yaml_config.go`'s viper-backed file
// loading, `cmd/bd/config.go`'s `viper.New()` + `SetConfigFile` +
// `ReadInConfig` pattern) and its `fsnotify` dependency for watch-driven
// reload.
package config

import (
	"sync/atomic"
	"time"

	"github.com/pluginforge/core/internal/types"
)

// CacheTTLs mirrors internal/recommend's per-kind cache lifetimes so they
// are tunable without a rebuild (spec §4.5 "TTL per kind").
type CacheTTLs struct {
	Collaborative time.Duration
	ContentBased  time.Duration
	Trending      time.Duration
	Similar       time.Duration
}

// VelocityWeights mirrors internal/indexer's trending-score coefficients
// (spec §4.3 "velocity_score = 10*installs_24h + 3*installs_7d +
// 1*installs_30d").
type VelocityWeights struct {
	Day   float64
	Week  float64
	Month float64
}

// SQLiteParams are connection-pool knobs read from the config file.
// sqlite.Open does not take them: the Store always runs with one open
// connection.
type SQLiteParams struct {
	MaxOpenConns int
}

// Config is the full set of engine tunables.
type Config struct {
	ScoreWeights types.ScoreWeights
	CacheTTLs    CacheTTLs
	Velocity     VelocityWeights

	// StopWordFingerprint is a short hash of the active stop-word set,
	// normally normalize.StopWordFingerprint. Passed into
	// indexer.Config.StopWordFingerprint; Indexer.RefreshTFIDF records it
	// in index_metadata and Indexer.StopWordFingerprintStale compares
	// against the recorded value to decide whether postings are stale
	// (changing the stop-word list invalidates every document's term
	// frequencies).
	StopWordFingerprint string
	// StemmerEnabled toggles internal/normalize's stemming pass via
	// normalize.SetStemmerEnabled at facade.Open time. Disabling it makes
	// Result.Stems equal Result.Tokens (no suffix stripping), for
	// deployments whose plugin catalog is mostly non-English prose the
	// shallow English suffix list would otherwise mangle.
	StemmerEnabled bool

	SQLite SQLiteParams
}

// Default returns the spec's built-in defaults (spec §4.4 step 5,
// §4.5 "Cache", §4.3 "Trending").
func Default() Config {
	return Config{
		ScoreWeights: types.DefaultScoreWeights(),
		CacheTTLs: CacheTTLs{
			Collaborative: time.Hour,
			ContentBased:  2 * time.Hour,
			Trending:      30 * time.Minute,
			Similar:       time.Hour,
		},
		Velocity: VelocityWeights{
			Day:   10.0,
			Week:  3.0,
			Month: 1.0,
		},
		StemmerEnabled: true,
		SQLite:         SQLiteParams{MaxOpenConns: 1},
	}
}

// Snapshot is an atomically-swappable live view of Config, read through
// Manager.Current. facade.Open reads it once and copies the values into
// the search, recommend and indexer engines; a later reload does not
// reach engines already built.
type Snapshot struct {
	ptr atomic.Pointer[Config]
}

// NewSnapshot wraps an initial Config for atomic reads/swaps.
func NewSnapshot(cfg Config) *Snapshot {
	s := &Snapshot{}
	s.ptr.Store(&cfg)
	return s
}

// Current returns the live Config. Safe to call from any goroutine.
func (s *Snapshot) Current() Config {
	return *s.ptr.Load()
}

// Swap atomically replaces the live Config.
func (s *Snapshot) Swap(cfg Config) {
	s.ptr.Store(&cfg)
}
