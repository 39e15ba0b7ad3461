package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Manager loads Config from a TOML file, applies environment overrides,
// and optionally watches the file for changes (spec SPEC_FULL.md §A.2).
type Manager struct {
	path     string
	v        *viper.Viper
	snapshot *Snapshot
	log      *slog.Logger
	watcher  *fsnotify.Watcher
	stop     chan struct{}
}

// Load reads path (a TOML file) into Config, merged over Default(),
// with PLUGINFORGE_-prefixed environment variables taking precedence. An
// empty or missing path falls back to Default() alone. The file is
// decoded with BurntSushi/toml and merged into a viper instance so
// AutomaticEnv overrides apply uniformly across file and environment
// sources (the same viper.New / SetConfigFile shape the teacher's
// cmd/bd/config.go uses for its own config.yaml).
func Load(path string, log *slog.Logger) (*Manager, error) {
	if log == nil {
		log = slog.Default()
	}
	v := viper.New()
	v.SetEnvPrefix("PLUGINFORGE")
	v.AutomaticEnv()

	cfg := Default()
	if path != "" {
		if err := mergeFile(v, path, &cfg); err != nil {
			return nil, err
		}
	}
	applyEnvOverrides(v, &cfg)

	return &Manager{
		path:     path,
		v:        v,
		snapshot: NewSnapshot(cfg),
		log:      log,
		stop:     make(chan struct{}),
	}, nil
}

// mergeFile decodes the TOML file at path into a raw map with
// BurntSushi/toml, merges it into v, then unmarshals the merged keys
// onto cfg's fields (explicit field-by-field, since Config's units
// (time.Duration) do not map 1:1 onto TOML's scalar types).
func mergeFile(v *viper.Viper, path string, cfg *Config) error {
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := v.MergeConfigMap(raw); err != nil {
		return err
	}
	applyMapOverrides(v, cfg)
	return nil
}

func applyMapOverrides(v *viper.Viper, cfg *Config) {
	if v.IsSet("score_weights.tfidf") {
		cfg.ScoreWeights.TFIDF = v.GetFloat64("score_weights.tfidf")
	}
	if v.IsSet("score_weights.downloads") {
		cfg.ScoreWeights.Downloads = v.GetFloat64("score_weights.downloads")
	}
	if v.IsSet("score_weights.rating") {
		cfg.ScoreWeights.Rating = v.GetFloat64("score_weights.rating")
	}
	if v.IsSet("score_weights.recency") {
		cfg.ScoreWeights.Recency = v.GetFloat64("score_weights.recency")
	}
	if v.IsSet("score_weights.relevance") {
		cfg.ScoreWeights.Relevance = v.GetFloat64("score_weights.relevance")
	}
	if v.IsSet("cache_ttls.collaborative_minutes") {
		cfg.CacheTTLs.Collaborative = time.Duration(v.GetInt64("cache_ttls.collaborative_minutes")) * time.Minute
	}
	if v.IsSet("cache_ttls.content_based_minutes") {
		cfg.CacheTTLs.ContentBased = time.Duration(v.GetInt64("cache_ttls.content_based_minutes")) * time.Minute
	}
	if v.IsSet("cache_ttls.trending_minutes") {
		cfg.CacheTTLs.Trending = time.Duration(v.GetInt64("cache_ttls.trending_minutes")) * time.Minute
	}
	if v.IsSet("cache_ttls.similar_minutes") {
		cfg.CacheTTLs.Similar = time.Duration(v.GetInt64("cache_ttls.similar_minutes")) * time.Minute
	}
	if v.IsSet("velocity.day") {
		cfg.Velocity.Day = v.GetFloat64("velocity.day")
	}
	if v.IsSet("velocity.week") {
		cfg.Velocity.Week = v.GetFloat64("velocity.week")
	}
	if v.IsSet("velocity.month") {
		cfg.Velocity.Month = v.GetFloat64("velocity.month")
	}
	if v.IsSet("stemmer_enabled") {
		cfg.StemmerEnabled = v.GetBool("stemmer_enabled")
	}
	if v.IsSet("stop_word_fingerprint") {
		cfg.StopWordFingerprint = v.GetString("stop_word_fingerprint")
	}
	if v.IsSet("sqlite.max_open_conns") {
		cfg.SQLite.MaxOpenConns = v.GetInt("sqlite.max_open_conns")
	}
}

// applyEnvOverrides re-checks every key AutomaticEnv might have picked up
// from the environment even when the file didn't set it (e.g. a fresh
// deployment with no config file at all).
func applyEnvOverrides(v *viper.Viper, cfg *Config) {
	applyMapOverrides(v, cfg)
}

// Current returns the live Config.
func (m *Manager) Current() Config {
	return m.snapshot.Current()
}

// Watch starts a background reload loop: on every write to the config
// file, the file is re-decoded and the snapshot atomically swapped. It
// returns immediately; call Stop (or cancel ctx) to end the watch.
func (m *Manager) Watch(ctx context.Context) error {
	if m.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	m.watcher = watcher
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		_ = watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stop:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(m.path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				m.reload()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				m.log.Warn("config watch error", "error", err)
			}
		}
	}()
	return nil
}

func (m *Manager) reload() {
	cfg := Default()
	if err := mergeFile(m.v, m.path, &cfg); err != nil {
		m.log.Warn("config reload failed, keeping previous snapshot", "path", m.path, "error", err)
		return
	}
	applyEnvOverrides(m.v, &cfg)
	m.snapshot.Swap(cfg)
	m.log.Info("config reloaded", "path", m.path)
}

// Stop ends the watch loop started by Watch.
func (m *Manager) Stop() {
	select {
	case <-m.stop:
	default:
		close(m.stop)
	}
}
