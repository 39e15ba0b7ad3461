package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pluginforge/core/internal/config"
)

func TestLoadWithNoPathReturnsDefaults(t *testing.T) {
	m, err := config.Load("", nil)
	require.NoError(t, err)
	cfg := m.Current()
	require.Equal(t, config.Default(), cfg)
}

func TestLoadMergesTOMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
stemmer_enabled = false

[score_weights]
tfidf = 0.5
downloads = 0.3

[velocity]
day = 20.0
`), 0o644))

	m, err := config.Load(path, nil)
	require.NoError(t, err)
	cfg := m.Current()

	require.False(t, cfg.StemmerEnabled)
	require.Equal(t, 0.5, cfg.ScoreWeights.TFIDF)
	require.Equal(t, 0.3, cfg.ScoreWeights.Downloads)
	require.Equal(t, 20.0, cfg.Velocity.Day)
	// Unset fields keep their defaults.
	require.Equal(t, config.Default().ScoreWeights.Rating, cfg.ScoreWeights.Rating)
	require.Equal(t, config.Default().Velocity.Week, cfg.Velocity.Week)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	m, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"), nil)
	require.NoError(t, err)
	require.Equal(t, config.Default(), m.Current())
}

func TestWatchReloadsOnFileChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[velocity]
day = 10.0
`), 0o644))

	m, err := config.Load(path, nil)
	require.NoError(t, err)
	require.Equal(t, 10.0, m.Current().Velocity.Day)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Watch(ctx))
	defer m.Stop()

	require.NoError(t, os.WriteFile(path, []byte(`
[velocity]
day = 99.0
`), 0o644))

	require.Eventually(t, func() bool {
		return m.Current().Velocity.Day == 99.0
	}, 2*time.Second, 10*time.Millisecond)
}
