package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	state, err := cfg.GetState()
	require.NoError(t, err)
	assert.Equal(t, StateConfig{
		Capacity:    500,
		TTL:         24 * time.Hour,
		CacheSlot:   "feed_filter_cache",
		DedupSlot:   "feed_filter_processed",
		CounterSlot: "feed_filter_api_calls",
	}, state)

	pipeline, err := cfg.GetPipeline()
	require.NoError(t, err)
	assert.Equal(t, time.Second, pipeline.MinInterval)

	httpCfg, err := cfg.GetHTTP()
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8000/completion", httpCfg.Endpoint)
	assert.Equal(t, 30*time.Second, httpCfg.Timeout)

	assert.Equal(t, "http", cfg.GetClassifier().Provider)
	assert.Equal(t, "permalink", cfg.GetFilter().IdentityStrategy)
	assert.Equal(t, 2000, cfg.GetFilter().MaxTextSize)
	assert.Empty(t, cfg.GetFilter().AllowedAuthors)
	assert.Equal(t, "memory", cfg.GetStore().Type)
	assert.Equal(t, SourceConfig{Path: "./feed.jsonl", Watch: true}, cfg.GetSource())
	assert.Equal(t, "log", cfg.GetSink().Type)
	assert.Equal(t, LoggingConfig{Level: "info", Format: "json"}, cfg.GetLogging())
}

func TestOverrides(t *testing.T) {
	v := NewEmptyViper()
	v.Set("cache.capacity", 2)
	v.Set("cache.ttl", "90m")
	v.Set("filter.allowed_authors", []string{"alice", "bob"})
	v.Set("openai.temperature", 0.5)
	cfg := NewFromViper(v)

	state, err := cfg.GetState()
	require.NoError(t, err)
	assert.Equal(t, 2, state.Capacity)
	assert.Equal(t, 90*time.Minute, state.TTL)
	assert.Equal(t, []string{"alice", "bob"}, cfg.GetFilter().AllowedAuthors)
	assert.InDelta(t, 0.5, cfg.GetOpenAI().Temperature, 1e-6)
}

func TestInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
		get  func(*Config) error
	}{
		{"zero capacity", "cache.capacity", 0, func(c *Config) error { _, err := c.GetState(); return err }},
		{"bad ttl", "cache.ttl", "soon", func(c *Config) error { _, err := c.GetState(); return err }},
		{"bad interval", "pipeline.min_interval", "1 second", func(c *Config) error { _, err := c.GetPipeline(); return err }},
		{"bad timeout", "http.timeout", "x", func(c *Config) error { _, err := c.GetHTTP(); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewEmptyViper()
			v.Set(tt.key, tt.val)
			assert.Error(t, tt.get(NewFromViper(v)))
		})
	}
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("FEED_FILTER_STORE_TYPE", "sqlite")
	t.Chdir(t.TempDir())

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.GetStore().Type)
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filter.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  capacity: 42\nclassifier:\n  provider: gemini\n"), 0644))

	cfg, err := NewFromFile(path)
	require.NoError(t, err)

	state, err := cfg.GetState()
	require.NoError(t, err)
	assert.Equal(t, 42, state.Capacity)
	assert.Equal(t, "gemini", cfg.GetClassifier().Provider)
	assert.Equal(t, "feed_filter_cache", state.CacheSlot)

	_, err = NewFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
