package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "auto", cfg.Chunking.Strategy)
	assert.Equal(t, 1536, cfg.Chunking.MaxChars)
	assert.Equal(t, 50, cfg.Chunking.CoalesceThreshold)
	assert.Equal(t, 50, cfg.Chunking.FallbackWindow)
	assert.Equal(t, 10, cfg.Chunking.FallbackOverlap)
	assert.Equal(t, []string{"python", "java", "cpp", "go", "rust", "ruby", "php"}, cfg.Chunking.Grammars)
	assert.False(t, cfg.Chunking.StrictSelection)
	assert.Empty(t, Validate(cfg))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"simple strategy", func(c *Config) { c.Chunking.Strategy = "simple" }, false},
		{"unknown strategy", func(c *Config) { c.Chunking.Strategy = "treesitter" }, true},
		{"zero max chars", func(c *Config) { c.Chunking.MaxChars = 0 }, true},
		{"zero window", func(c *Config) { c.Chunking.FallbackWindow = 0 }, true},
		{"overlap equals window", func(c *Config) { c.Chunking.FallbackOverlap = 50 }, true},
		{"negative overlap", func(c *Config) { c.Chunking.FallbackOverlap = -1 }, true},
		{"no grammars", func(c *Config) { c.Chunking.Grammars = nil }, true},
		{"negative workers", func(c *Config) { c.Chunking.Workers = -2 }, true},
		{"negative debounce", func(c *Config) { c.Watch.Debounce = -time.Second }, true},
		{"blank pattern", func(c *Config) { c.Watch.Include = []string{" "} }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"empty log level", func(c *Config) { c.Logging.Level = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			errs := Validate(cfg)
			if tt.wantErr {
				assert.NotEmpty(t, errs)
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, warnings, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.NotEmpty(t, warnings)
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Chunking.MaxChars = 800
	cfg.Chunking.Grammars = []string{"go", "rust"}
	cfg.Chunking.StrictSelection = true
	cfg.Watch.Debounce = 2 * time.Second
	cfg.Logging.Format = "json"

	require.NoError(t, Save(dir, cfg))
	_, err := os.Stat(ConfigPath(dir))
	require.NoError(t, err)

	loaded, warnings, err := Load(dir)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, cfg, loaded)
}

func TestLoadFilePartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codesplit.yaml")
	data := []byte("chunking:\n  max_chars: 900\nwatch:\n  debounce: 250ms\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, _, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 900, cfg.Chunking.MaxChars)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, 50, cfg.Chunking.CoalesceThreshold)
	assert.Equal(t, DefaultConfig().Chunking.Grammars, cfg.Chunking.Grammars)
}

func TestLoadFileZeroCoalesce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codesplit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunking:\n  coalesce_threshold: 0\n"), 0644))

	cfg, warnings, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Chunking.CoalesceThreshold)
	assert.Contains(t, warnings, "chunking.coalesce_threshold 0 selects the default of 50; use a negative value to disable the size test")

	require.NoError(t, os.WriteFile(path, []byte("chunking:\n  coalesce_threshold: -1\n"), 0644))
	cfg, warnings, err = LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, -1, cfg.Chunking.CoalesceThreshold)
	assert.NotContains(t, warnings, "chunking.coalesce_threshold 0 selects the default of 50; use a negative value to disable the size test")
}

func TestLoadFileInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codesplit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunking: [unclosed\n"), 0644))

	_, _, err := LoadFile(path)
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("CODESPLIT_CHUNKING_MAX_CHARS", "700")
	t.Setenv("CODESPLIT_LOGGING_LEVEL", "debug")

	cfg, _, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 700, cfg.Chunking.MaxChars)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestHash(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()
	assert.Equal(t, a.Hash(), b.Hash())

	b.Logging.Level = "debug"
	b.Watch.Debounce = time.Minute
	assert.Equal(t, a.Hash(), b.Hash(), "logging and watch settings do not affect chunks")

	b.Chunking.MaxChars = 100
	assert.NotEqual(t, a.Hash(), b.Hash())

	c := DefaultConfig()
	c.Chunking.Grammars = []string{"go"}
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestCopy(t *testing.T) {
	cfg := DefaultConfig()
	cp := cfg.Copy()
	require.Equal(t, cfg, cp)

	cp.Chunking.Grammars[0] = "cobol"
	cp.Watch.Exclude[0] = "nothing"
	assert.Equal(t, "python", cfg.Chunking.Grammars[0])
	assert.Equal(t, "**/vendor/**", cfg.Watch.Exclude[0])
}
