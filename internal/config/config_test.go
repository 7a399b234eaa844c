package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := New()
	require.NoError(t, c.Load(nil))

	opts := c.EngineOptions()
	assert.Equal(t, 16, opts.Hash)
	assert.Equal(t, 1, opts.Threads)
	assert.Equal(t, 1, opts.MultiPV)
	assert.Equal(t, 5, opts.MaxThreadsPerSplitPoint)
	assert.Equal(t, 30*time.Millisecond, opts.MoveOverhead)
	assert.Equal(t, zerolog.InfoLevel, c.LogLevel())
	assert.False(t, c.GetBool(KeyAnalysisStore))
	assert.Empty(t, c.ConfigFile())
}

func TestPrecedence(t *testing.T) {
	dir := t.TempDir()
	yaml := "hash: 64\nthreads: 2\nlog-level: debug\ncontempt: 10\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chesscore.yaml"), []byte(yaml), 0o644))

	t.Setenv("CHESSCORE_THREADS", "3")
	t.Setenv("CHESSCORE_MIN_SPLIT_DEPTH", "6")

	c := New()
	require.NoError(t, c.Load([]string{"-data-dir", dir, "-hash", "128", "-move-overhead", "75ms"}))

	opts := c.EngineOptions()
	assert.Equal(t, 128, opts.Hash, "flag beats file")
	assert.Equal(t, 3, opts.Threads, "env beats file")
	assert.Equal(t, 6, opts.MinSplitDepth)
	assert.Equal(t, 10, opts.Contempt)
	assert.Equal(t, 75*time.Millisecond, opts.MoveOverhead)
	assert.Equal(t, zerolog.DebugLevel, c.LogLevel())
	assert.Equal(t, filepath.Join(dir, "chesscore.yaml"), c.ConfigFile())
}

func TestExplicitConfigFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(file, []byte("multipv: 4\nanalysis-store: true\n"), 0o644))

	c := New()
	require.NoError(t, c.Load([]string{"-config", file}))
	assert.Equal(t, 4, c.EngineOptions().MultiPV)
	assert.True(t, c.GetBool(KeyAnalysisStore))

	c = New()
	assert.Error(t, c.Load([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")}))
}

func TestBadInput(t *testing.T) {
	c := New()
	assert.Error(t, c.Load([]string{"-threads", "many"}))

	c = New()
	require.NoError(t, c.Load([]string{"-log-level", "loud"}))
	assert.Equal(t, zerolog.InfoLevel, c.LogLevel())
}
